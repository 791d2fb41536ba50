package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalCounter counts shutdown signals: the first cancels the run
// gracefully, the forceAfter-th invokes onForce (typically os.Exit).
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onGraceful func()
	onForce    func()
}

// NewSignalCounter creates a counter. Either callback may be nil.
func NewSignalCounter(forceAfter int, onGraceful, onForce func()) *SignalCounter {
	if forceAfter < 1 {
		forceAfter = 2
	}
	return &SignalCounter{
		forceAfter: forceAfter,
		onGraceful: onGraceful,
		onForce:    onForce,
	}
}

// Increment records one signal and returns the new count.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	s.count++
	count := s.count
	onGraceful, onForce := s.onGraceful, s.onForce
	s.mu.Unlock()

	if count == 1 && onGraceful != nil {
		onGraceful()
	}
	if count >= s.forceAfter && onForce != nil {
		onForce()
	}
	return count
}

// Count returns the number of signals seen.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Watch feeds SIGINT and SIGTERM into counter until ctx is done.
func Watch(ctx context.Context, counter *SignalCounter) {
	watch(ctx, counter, func(ch chan<- os.Signal) {
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	}, signal.Stop)
}

func watch(ctx context.Context, counter *SignalCounter, notify func(chan<- os.Signal), stop func(chan<- os.Signal)) {
	sigCh := make(chan os.Signal, 2)
	notify(sigCh)

	go func() {
		defer stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				counter.Increment()
			}
		}
	}()
}
