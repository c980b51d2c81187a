package queue

import "context"

// Job consumes one message type from the queue.
type Job interface {
	// Name identifies the handler in logs.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	// Handle processes one payload. A returned error triggers the retry
	// path.
	Handle(ctx context.Context, payload interface{}) error
}
