// Package shutdown coordinates graceful termination of the CLI: it tracks
// in-flight pipeline runs and turns repeated interrupts into a forced exit.
package shutdown

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrTrackerClosed is returned when trying to start a run on a closed tracker.
var ErrTrackerClosed = errors.New("shutdown: operation tracker is closed")

// ErrDuplicateOperation is returned when an id is already being tracked.
var ErrDuplicateOperation = errors.New("shutdown: operation already tracked")

// OperationTracker tracks in-flight runs by correlation id so shutdown can
// wait for them and report which ones were still running.
//
// Usage:
//
//	done, err := tracker.Start(runID)
//	if err != nil {
//	    return err // shutting down
//	}
//	defer done()
//
//	// During shutdown:
//	tracker.Close()
//	if err := tracker.Wait(ctx); err != nil {
//	    log.Warn("runs still active", zap.Strings("ids", tracker.Active()))
//	}
type OperationTracker struct {
	mu     sync.Mutex
	active map[string]struct{}
	idle   chan struct{}
	closed bool
}

// NewOperationTracker creates a tracker ready to accept runs.
func NewOperationTracker() *OperationTracker {
	idle := make(chan struct{})
	close(idle)
	return &OperationTracker{
		active: make(map[string]struct{}),
		idle:   idle,
	}
}

// Start registers id as in flight. The returned func marks it done and is
// safe to call more than once.
func (t *OperationTracker) Start(id string) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTrackerClosed
	}
	if _, ok := t.active[id]; ok {
		return nil, ErrDuplicateOperation
	}
	if len(t.active) == 0 {
		t.idle = make(chan struct{})
	}
	t.active[id] = struct{}{}

	var once sync.Once
	return func() { once.Do(func() { t.done(id) }) }, nil
}

func (t *OperationTracker) done(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.active, id)
	if len(t.active) == 0 {
		close(t.idle)
	}
}

// Wait blocks until no runs are in flight or ctx is done, in which case it
// returns ctx.Err().
func (t *OperationTracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close prevents new runs from starting. Runs already in flight continue.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// ActiveCount returns the number of runs in flight.
func (t *OperationTracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Active returns the ids of runs in flight, sorted.
func (t *OperationTracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsClosed reports whether Close has been called.
func (t *OperationTracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
