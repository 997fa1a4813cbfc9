package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SignalKind names which collection changed.
type SignalKind string

const (
	ListingsChanged SignalKind = "listings.changed"
	OrdersChanged   SignalKind = "orders.changed"
)

// Signal tells subscribers to re-read state. It never carries a diff.
type Signal struct {
	Kind SignalKind `json:"kind"`
	At   time.Time  `json:"at"`
}

// Encode returns the wire form of s.
func (s Signal) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSignal parses the wire form produced by Encode.
func DecodeSignal(payload []byte) (Signal, error) {
	var s Signal
	if err := json.Unmarshal(payload, &s); err != nil {
		return Signal{}, fmt.Errorf("failed to unmarshal signal: %w", err)
	}
	return s, nil
}

// Publisher defines an interface for publishing change signals.
type Publisher interface {
	Publish(ctx context.Context, signal Signal) error
}

// Subscriber defines an interface for receiving change signals. Consume
// blocks until ctx is cancelled.
type Subscriber interface {
	Consume(ctx context.Context, handler func(ctx context.Context, signal Signal) error)
}

// Discard is a Publisher that drops every signal.
type Discard struct{}

func (Discard) Publish(context.Context, Signal) error { return nil }
