package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"docextract-backend/internal/shared/telemetry"
)

var ErrPoolFull = errors.New("job queue is full")

// Pool is an in-process Client: a buffered channel drained by a fixed set of workers.
// It stands in for the broker when none is configured.
type Pool struct {
	jobs        chan []byte
	handle      Handler
	concurrency int
	jobTimeout  time.Duration
	wg          sync.WaitGroup
}

func NewPool(concurrency, size int, jobTimeout time.Duration, handle Handler) *Pool {
	return &Pool{
		jobs:        make(chan []byte, max(1, size)),
		handle:      handle,
		concurrency: max(1, concurrency),
		jobTimeout:  jobTimeout,
	}
}

// Send enqueues msg without blocking.
func (p *Pool) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	select {
	case p.jobs <- body:
		return nil
	default:
		return ErrPoolFull
	}
}

// Run processes jobs until ctx is cancelled and in-flight jobs finish. Jobs do not
// inherit ctx cancellation; each is bounded by the job timeout instead.
func (p *Pool) Run(ctx context.Context) error {
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case body := <-p.jobs:
					p.process(context.WithoutCancel(ctx), body)
				}
			}
		}()
	}
	p.wg.Wait()
	if pending := len(p.jobs); pending > 0 {
		telemetry.Warn("queue.pool_abandoned", map[string]any{"pending": pending})
	}
	return nil
}

func (p *Pool) process(ctx context.Context, body []byte) {
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}
	if disp := p.handle(ctx, body); disp == Requeue {
		telemetry.Warn("queue.pool_requeue_dropped", map[string]any{"body_len": len(body)})
	}
}

var _ Client = (*Pool)(nil)
