// Package realtime fans "board changed" signals out to connected clients.
//
// A notification carries no task state. Receivers re-fetch tasks and recent
// actions; a client that misses one converges on its next fetch.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/collab-board/internal/worker"
)

const (
	EventTaskUpdate = "task-update"
	EventResync     = "resync"
	EventHello      = "hello"
)

type Event struct {
	Type    string          `json:"type"`
	Origin  string          `json:"origin,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Subscriber is one live connection.
type Subscriber interface {
	ID() string
	Send(ctx context.Context, data []byte) error
}

// Hub is the process-wide subscriber registry.
type Hub struct {
	logger       *zap.Logger
	pool         *worker.Pool
	writeTimeout time.Duration

	mu   sync.RWMutex
	subs map[string]Subscriber
}

func NewHub(logger *zap.Logger, pool *worker.Pool) *Hub {
	return &Hub{
		logger:       logger,
		pool:         pool,
		writeTimeout: 5 * time.Second,
		subs:         make(map[string]Subscriber),
	}
}

// Subscribe registers s. It reports false if the id is already taken.
func (h *Hub) Subscribe(s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s.ID()]; ok {
		return false
	}
	h.subs[s.ID()] = s
	return true
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// CloseAll disconnects every subscriber that supports closing.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if c, ok := s.(interface{ Close() error }); ok {
			c.Close()
		}
	}
}

// Broadcast queues ev for every subscriber except the one with id except.
// It returns the number of deliveries queued and never waits on a socket.
func (h *Hub) Broadcast(except string, ev Event) int {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs))
	for id, s := range h.subs {
		if id != except {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	queued := 0
	for _, s := range targets {
		s := s
		ok := h.pool.Submit(func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			defer cancel()
			if err := s.Send(ctx, data); err != nil {
				h.logger.Debug("delivery failed", zap.String("client", s.ID()), zap.Error(err))
			}
		})
		if ok {
			queued++
		}
	}
	return queued
}

// Notify implements service.Notifier.
func (h *Hub) Notify(origin string) {
	h.Broadcast(origin, Event{Type: EventTaskUpdate, Origin: origin})
}
