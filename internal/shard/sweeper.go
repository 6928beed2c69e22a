package shard

import (
	"context"
	"sync"
	"time"
)

// Sweeper runs a function on a fixed interval until stopped.
type Sweeper struct {
	interval  time.Duration
	fn        func()
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewSweeper returns a stopped Sweeper. A non-positive interval makes Start a
// no-op.
func NewSweeper(interval time.Duration, fn func()) *Sweeper {
	return &Sweeper{
		interval: interval,
		fn:       fn,
		done:     make(chan struct{}),
	}
}

// Start launches the loop. It returns immediately; the loop exits when ctx is
// cancelled or Close is called.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil || s.interval <= 0 || s.fn == nil {
		return
	}
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run(ctx)
	})
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fn()
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// Close stops the loop and waits for it to exit. Safe to call more than once.
func (s *Sweeper) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
