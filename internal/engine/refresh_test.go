package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRefreshLoopTicks(t *testing.T) {
	var calls atomic.Int32
	ticked := make(chan struct{}, 8)
	loop := NewRefreshLoop(5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		select {
		case ticked <- struct{}{}:
		default:
		}
		return nil
	}, nil)

	loop.Start(context.Background())
	defer loop.Stop()

	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatalf("refresh never ran")
	}
}

func TestRefreshLoopSuspendSkipsFetches(t *testing.T) {
	var calls atomic.Int32
	loop := NewRefreshLoop(5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	loop.Suspend()
	loop.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("suspended loop must not fetch, got %d calls", got)
	}

	loop.Resume()
	deadline := time.Now().Add(time.Second)
	for calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("resume did not restart fetching")
		}
		time.Sleep(5 * time.Millisecond)
	}
	loop.Stop()
}

func TestRefreshLoopKeepsGoingAfterErrors(t *testing.T) {
	var calls atomic.Int32
	loop := NewRefreshLoop(5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("transient")
	}, nil)

	loop.Start(context.Background())
	deadline := time.Now().Add(time.Second)
	for calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("loop stopped after an error, got %d calls", calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	loop.Stop()
}

func TestRefreshLoopStopWaitsAndIsIdempotent(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var finished atomic.Bool
	loop := NewRefreshLoop(5*time.Millisecond, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		finished.Store(true)
		return nil
	}, nil)

	loop.Start(context.Background())
	<-started

	done := make(chan struct{})
	go func() {
		loop.Stop()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Stop returned while a refresh was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Stop never returned")
	}
	if !finished.Load() {
		t.Fatalf("in-flight refresh was abandoned")
	}

	// Second Stop must be a no-op.
	loop.Stop()
}

func TestRefreshLoopStartStopChurn(t *testing.T) {
	// Stop immediately after Start must neither race on the done channel
	// nor deadlock, even before the loop goroutine gets scheduled.
	loop := NewRefreshLoop(time.Millisecond, func(ctx context.Context) error {
		return nil
	}, nil)
	for i := 0; i < 500; i++ {
		loop.Start(context.Background())
		loop.Stop()
	}
}

func TestRefreshLoopStartTwiceIsNoop(t *testing.T) {
	var calls atomic.Int32
	loop := NewRefreshLoop(time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	loop.Start(context.Background())
	loop.Start(context.Background())
	loop.Stop()
	if calls.Load() != 0 {
		t.Fatalf("hour-long interval should not have ticked")
	}
}
