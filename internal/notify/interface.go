package notify

import "context"

// Notifier delivers a benchmark summary to a chat channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, message string) error
}
