package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDispatcher_SameKeyRunsInSubmissionOrder(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	release := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	var order []int

	// The first job blocks the lane so the rest queue up behind it.
	go func() {
		_ = d.Submit(context.Background(), "briv", func(context.Context) error {
			close(started)
			<-release
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
			return nil
		})
	}()
	<-started

	var wg sync.WaitGroup
	for i := 1; i <= 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Submit(context.Background(), "briv", func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// Wait until job i is queued before submitting i+1.
		waitFor(t, func() bool { return d.Pending("briv") == i })
	}

	close(release)
	wg.Wait()

	want := []int{0, 1, 2, 3, 4, 5}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDispatcher_DifferentKeysRunConcurrently(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	aRunning := make(chan struct{})
	release := make(chan struct{})
	errCh := make(chan error, 1)

	go func() {
		errCh <- d.Submit(context.Background(), "a", func(context.Context) error {
			close(aRunning)
			<-release
			return nil
		})
	}()
	<-aRunning

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Submit(ctx, "b", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("job for b blocked behind a: %v", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("job a: %v", err)
	}
}

func TestDispatcher_ReturnsJobError(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	boom := errors.New("boom")

	err := d.Submit(context.Background(), "k", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestDispatcher_StartedJobSurvivesCallerCancel(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan error, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Submit(ctx, "k", func(jobCtx context.Context) error {
			close(started)
			<-release
			finished <- jobCtx.Err()
			return nil
		})
	}()

	<-started
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("submit err = %v, want context.Canceled", err)
	}

	close(release)
	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("job context was cancelled: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
}

func TestDispatcher_QueuedJobSkippedWhenCallerLeft(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = d.Submit(context.Background(), "k", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Submit(ctx, "k", func(context.Context) error {
			ran <- struct{}{}
			return nil
		})
	}()
	waitFor(t, func() bool { return d.Pending("k") == 1 })

	cancel()
	<-errCh
	close(release)

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case <-ran:
		t.Fatal("abandoned job ran")
	default:
	}
}

func TestDispatcher_RejectsAfterClose(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	err := d.Submit(context.Background(), "k", func(context.Context) error { return nil })
	if !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("err = %v, want ErrDispatcherClosed", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
