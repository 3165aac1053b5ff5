package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/pkg/metrics"
)

// ErrDispatcherClosed is returned by Submit after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

type task struct {
	callerCtx context.Context
	run       func(ctx context.Context) error
	done      chan error
}

// lane holds the pending tasks of one key. A goroutine drains it and exits
// once it is empty.
type lane struct {
	pending []*task
}

// Dispatcher runs jobs one at a time per key, in submission order, while
// different keys proceed concurrently. Lanes are created on demand and
// discarded when idle, so memory follows the number of busy keys.
type Dispatcher struct {
	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		lanes: make(map[string]*lane),
		log:   log,
	}
}

// Submit queues job behind any earlier job for key and waits for it. The job
// receives a context that is not cancelled when the submitter gives up.
//
// If ctx ends while the job is still queued, the job is skipped. If ctx ends
// after the job started, the job runs to completion anyway and Submit returns
// ctx.Err() without waiting for it.
func (d *Dispatcher) Submit(ctx context.Context, key string, job func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := &task{callerCtx: ctx, run: job, done: make(chan error, 1)}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	l, ok := d.lanes[key]
	if !ok {
		l = &lane{}
		d.lanes[key] = l
		metrics.LanesActive.Inc()
	}
	l.pending = append(l.pending, t)
	metrics.LaneQueueDepth.Inc()
	if !ok {
		d.wg.Add(1)
		go d.drain(key, l)
	}
	d.mu.Unlock()

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) drain(key string, l *lane) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(l.pending) == 0 {
			delete(d.lanes, key)
			metrics.LanesActive.Dec()
			d.mu.Unlock()
			return
		}
		t := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		metrics.LaneQueueDepth.Dec()
		d.mu.Unlock()

		if err := t.callerCtx.Err(); err != nil {
			d.log.Debug().Str("lane", key).Msg("skipping job abandoned before start")
			t.done <- err
			continue
		}
		t.done <- t.run(context.WithoutCancel(t.callerCtx))
	}
}

// Pending returns the number of jobs for key still waiting to start.
func (d *Dispatcher) Pending(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.lanes[key]; ok {
		return len(l.pending)
	}
	return 0
}

// Close rejects new jobs and waits for queued ones to finish or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
