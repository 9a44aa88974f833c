package realtime

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Resync periodically broadcasts a resync hint to every client, covering
// clients that missed a task-update notification.
type Resync struct {
	cron   *cron.Cron
	hub    *Hub
	logger *zap.Logger
}

// NewResync schedules the broadcast. An empty schedule disables it.
func NewResync(hub *Hub, schedule string, logger *zap.Logger) (*Resync, error) {
	r := &Resync{hub: hub, logger: logger}
	if schedule == "" {
		return r, nil
	}

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return nil, fmt.Errorf("resync schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Resync) tick() {
	if r.hub.Count() == 0 {
		return
	}
	n := r.hub.Broadcast("", Event{Type: EventResync})
	r.logger.Debug("resync broadcast", zap.Int("queued", n))
}

func (r *Resync) Start() {
	if r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("resync scheduler started", zap.Int("entries", len(r.cron.Entries())))
}

// Stop waits for a running tick to finish or ctx to expire.
func (r *Resync) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}
