package queue

import "context"

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Disposition tells a backend what to do with a delivered job.
type Disposition int

const (
	// Ack removes the job.
	Ack Disposition = iota
	// Requeue returns the job for another attempt.
	Requeue
	// Reject drops a job that can never succeed.
	Reject
)

// Handler processes one raw job body.
type Handler func(ctx context.Context, body []byte) Disposition
