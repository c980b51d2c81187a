package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher submits messages to the delivery queue. Delivery is
// at-least-once: consumers must tolerate replays.
type Publisher interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Config tunes queue concurrency and retry behavior.
type Config struct {
	Workers    int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is the wire envelope stored in Redis.
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Attempts  int
	Timestamp time.Time
}

// ParsePayload converts a queue payload into the expected type. Typed
// values pass through; maps and raw JSON are decoded.
func ParsePayload[T any](payload interface{}) (*T, error) {
	var result T

	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case map[string]interface{}:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal payload map: %w", err)
		}
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
