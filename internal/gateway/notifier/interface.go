package notifier

import "context"

// Notifier pushes trade events to an external channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Noop is used when no channel is configured.
type Noop struct{}

func (Noop) Notify(context.Context, string) error { return nil }
