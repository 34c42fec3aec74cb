// Package notify delivers outbound account messages (verification emails)
// off the request path.
package notify

import (
	"context"
	"errors"
)

var (
	// ErrQueueFull indicates the delivery queue has no free slot.
	ErrQueueFull = errors.New("notification queue is full")

	// ErrQueueClosed indicates the queue is shutting down.
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier accepts messages for asynchronous delivery.
type Notifier interface {
	Enqueue(ctx context.Context, msg Message) error
}
