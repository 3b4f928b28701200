package main

import (
	"context"
	"testing"
	"time"

	"docextract-backend/internal/queue"
)

func TestBoundedHandlerAppliesDeadline(t *testing.T) {
	var hadDeadline bool
	handle := func(ctx context.Context, body []byte) queue.Disposition {
		_, hadDeadline = ctx.Deadline()
		return queue.Reject
	}

	got := boundedHandler(handle, time.Minute)(context.Background(), []byte("{}"))

	if got != queue.Reject {
		t.Fatalf("expected disposition to pass through, got %d", got)
	}
	if !hadDeadline {
		t.Fatalf("expected job context to carry a deadline")
	}
}

func TestBoundedHandlerWithoutTimeout(t *testing.T) {
	var hadDeadline bool
	handle := func(ctx context.Context, body []byte) queue.Disposition {
		_, hadDeadline = ctx.Deadline()
		return queue.Ack
	}

	if got := boundedHandler(handle, 0)(context.Background(), nil); got != queue.Ack {
		t.Fatalf("expected ack, got %d", got)
	}
	if hadDeadline {
		t.Fatalf("expected no deadline when timeout is zero")
	}
}

func TestDispositionName(t *testing.T) {
	tests := []struct {
		in   queue.Disposition
		want string
	}{
		{in: queue.Ack, want: "ack"},
		{in: queue.Requeue, want: "requeue"},
		{in: queue.Reject, want: "reject"},
	}
	for _, tt := range tests {
		if got := dispositionName(tt.in); got != tt.want {
			t.Fatalf("dispositionName(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
