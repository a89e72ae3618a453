package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RefreshLoop keeps the store approximately fresh by re-running a refresh
// function on a fixed delay between completions. It never overlaps
// in-flight refreshes: the next tick is armed only after the current one
// returns. While suspended (edit form open) ticks elapse without fetching.
type RefreshLoop struct {
	interval time.Duration
	refresh  func(ctx context.Context) error
	logger   *zap.Logger

	mu        sync.Mutex
	suspended bool

	cancel context.CancelFunc
	done   chan struct{}
}

const DefaultRefreshInterval = 10 * time.Second

func NewRefreshLoop(interval time.Duration, refresh func(ctx context.Context) error, logger *zap.Logger) *RefreshLoop {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshLoop{
		interval: interval,
		refresh:  refresh,
		logger:   logger,
	}
}

// Start launches the loop. Calling Start twice without Stop is a no-op.
func (l *RefreshLoop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	done := make(chan struct{})
	l.done = done
	go l.run(ctx, done)
}

// run owns its done channel: Stop nils the field, so the goroutine must
// never read it back through the struct.
func (l *RefreshLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !l.Suspended() {
			if err := l.refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				// Transient by assumption; the next tick self-heals.
				l.logger.Warn("auto-refresh skipped", zap.Error(err))
			}
		}
		timer.Reset(l.interval)
	}
}

// Stop cancels the loop and waits for the in-flight tick, if any.
func (l *RefreshLoop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.done = nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Suspend stops new fetches from being issued. An already in-flight
// request is not cancelled.
func (l *RefreshLoop) Suspend() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspended = true
}

func (l *RefreshLoop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspended = false
}

func (l *RefreshLoop) Suspended() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suspended
}
