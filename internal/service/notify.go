package service

import "context"

// Notifier tells connected clients that the board changed. Implementations
// must return immediately; delivery is best effort.
type Notifier interface {
	Notify(origin string)
}

type NopNotifier struct{}

func (NopNotifier) Notify(string) {}

type originKey struct{}

// WithOrigin marks ctx with the id of the client that issued the mutation,
// so the change notification skips it.
func WithOrigin(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, originKey{}, clientID)
}

func OriginFrom(ctx context.Context) string {
	id, _ := ctx.Value(originKey{}).(string)
	return id
}
