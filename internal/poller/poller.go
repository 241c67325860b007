// Package poller repeatedly fetches remote status until a terminal state or a
// fetch failure, emitting every snapshot. Each poll loop is owned by a Handle
// that must be stopped when its consumer goes away.
package poller

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the delay between fetches.
const DefaultInterval = 750 * time.Millisecond

// FetchFunc performs one status fetch.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Update is one observation. Err is set when the fetch itself failed, which is
// different from a snapshot reporting a failed job. Final marks the last
// update before the Updates channel closes.
type Update[T any] struct {
	Snapshot T
	Err      error
	Terminal bool
	Final    bool
	Seq      int
}

// Handle owns one running poll loop.
type Handle[T any] struct {
	cancel  context.CancelFunc
	updates chan Update[T]
	done    chan struct{}

	mu       sync.Mutex
	snapshot T
	hasSnap  bool
	err      error
	fetches  int
}

// Start issues an immediate fetch and then one fetch per interval until
// isTerminal reports true, a fetch fails, ctx is cancelled, or Stop is called.
// Fetches never overlap: the next timer is armed only after the previous
// result has been delivered.
func Start[T any](ctx context.Context, fetch FetchFunc[T], interval time.Duration, isTerminal func(T) bool) *Handle[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle[T]{
		cancel:  cancel,
		updates: make(chan Update[T], 1),
		done:    make(chan struct{}),
	}
	go h.run(ctx, fetch, interval, isTerminal)
	return h
}

func (h *Handle[T]) run(ctx context.Context, fetch FetchFunc[T], interval time.Duration, isTerminal func(T) bool) {
	defer close(h.done)
	defer close(h.updates)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for seq := 1; ; seq++ {
		if ctx.Err() != nil {
			return
		}

		h.mu.Lock()
		h.fetches++
		h.mu.Unlock()

		snap, err := fetch(ctx)
		if ctx.Err() != nil {
			// Stopped mid-fetch; the result belongs to nobody.
			return
		}

		u := Update[T]{Seq: seq}
		h.mu.Lock()
		if err != nil {
			h.err = err
			u.Err = err
			u.Final = true
		} else {
			h.snapshot = snap
			h.hasSnap = true
			u.Terminal = isTerminal(snap)
			u.Final = u.Terminal
		}
		u.Snapshot = h.snapshot
		h.mu.Unlock()

		select {
		case h.updates <- u:
		case <-ctx.Done():
			return
		}
		if u.Final {
			return
		}

		if timer == nil {
			timer = time.NewTimer(interval)
		} else {
			timer.Reset(interval)
		}
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}
}

// Updates delivers every observation in order. It is closed when the loop ends.
func (h *Handle[T]) Updates() <-chan Update[T] {
	return h.updates
}

// Done is closed once the loop goroutine has exited.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Stop cancels the pending timer and any in-flight fetch, and returns once the
// loop has exited. No fetch starts after Stop returns. Safe to call more than once.
func (h *Handle[T]) Stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}

// Snapshot returns the last successful observation, if any.
func (h *Handle[T]) Snapshot() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot, h.hasSnap
}

// Err returns the fetch failure that ended the loop, if any.
func (h *Handle[T]) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Fetches returns how many fetches have been issued.
func (h *Handle[T]) Fetches() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fetches
}
