package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/collab-board/internal/worker"
)

type fakeSubscriber struct {
	id   string
	got  chan Event
	fail bool
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id, got: make(chan Event, 16)}
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Send(_ context.Context, data []byte) error {
	if f.fail {
		return errors.New("broken pipe")
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	f.got <- ev
	return nil
}

func startedHub(t *testing.T) *Hub {
	t.Helper()
	pool := worker.NewPool(zap.NewNop(), 2, 32)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})
	return NewHub(zap.NewNop(), pool)
}

func receive(t *testing.T, s *fakeSubscriber) Event {
	t.Helper()
	select {
	case ev := <-s.got:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("subscriber %s received nothing", s.id)
		return Event{}
	}
}

func assertSilent(t *testing.T, s *fakeSubscriber) {
	t.Helper()
	select {
	case ev := <-s.got:
		t.Fatalf("subscriber %s unexpectedly received %+v", s.id, ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := startedHub(t)
	a := newFakeSubscriber("a")

	assert.True(t, hub.Subscribe(a))
	assert.False(t, hub.Subscribe(newFakeSubscriber("a")), "duplicate id")
	assert.Equal(t, 1, hub.Count())

	hub.Unsubscribe("a")
	assert.Equal(t, 0, hub.Count())
	assert.Equal(t, 0, hub.Broadcast("", Event{Type: EventResync}))
}

func TestHub_NotifySkipsOrigin(t *testing.T) {
	hub := startedHub(t)
	a, b, c := newFakeSubscriber("a"), newFakeSubscriber("b"), newFakeSubscriber("c")
	for _, s := range []*fakeSubscriber{a, b, c} {
		require.True(t, hub.Subscribe(s))
	}

	hub.Notify("a")

	for _, s := range []*fakeSubscriber{b, c} {
		ev := receive(t, s)
		assert.Equal(t, EventTaskUpdate, ev.Type)
		assert.Equal(t, "a", ev.Origin)
	}
	assertSilent(t, a)
}

func TestHub_NotifyWithoutOriginReachesEveryone(t *testing.T) {
	hub := startedHub(t)
	a, b := newFakeSubscriber("a"), newFakeSubscriber("b")
	hub.Subscribe(a)
	hub.Subscribe(b)

	hub.Notify("")

	assert.Equal(t, EventTaskUpdate, receive(t, a).Type)
	assert.Equal(t, EventTaskUpdate, receive(t, b).Type)
}

func TestHub_FailedDeliveryDoesNotAffectOthers(t *testing.T) {
	hub := startedHub(t)
	broken := newFakeSubscriber("broken")
	broken.fail = true
	ok := newFakeSubscriber("ok")
	hub.Subscribe(broken)
	hub.Subscribe(ok)

	assert.Equal(t, 2, hub.Broadcast("", Event{Type: EventResync}))
	assert.Equal(t, EventResync, receive(t, ok).Type)
}

func TestHub_BroadcastDoesNotBlockWhenQueueFull(t *testing.T) {
	// пул не запущен: очередь на одну задачу сразу заполняется
	pool := worker.NewPool(zap.NewNop(), 1, 1)
	hub := NewHub(zap.NewNop(), pool)
	for _, id := range []string{"a", "b", "c"} {
		hub.Subscribe(newFakeSubscriber(id))
	}

	done := make(chan int, 1)
	go func() { done <- hub.Broadcast("", Event{Type: EventTaskUpdate}) }()

	select {
	case queued := <-done:
		assert.Equal(t, 1, queued)
		assert.Equal(t, int64(2), pool.Dropped())
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full queue")
	}
}

func TestHub_CloseAll(t *testing.T) {
	hub := startedHub(t)
	c := &closingSubscriber{fakeSubscriber: newFakeSubscriber("c")}
	hub.Subscribe(c)
	hub.Subscribe(newFakeSubscriber("plain"))

	hub.CloseAll()
	assert.True(t, c.closed)
}

type closingSubscriber struct {
	*fakeSubscriber
	closed bool
}

func (c *closingSubscriber) Close() error {
	c.closed = true
	return nil
}
