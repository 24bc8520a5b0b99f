// Package scheduler implements the recordstore core's DeferredExecutor: a
// coalescing "run once at end-of-tick" scheduler safe to call from multiple
// goroutines, unlike the Store itself.
package scheduler

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Executor coalesces repeated Schedule(key, fn) calls within one tick into a
// single invocation of the last-registered fn for that key, fired by Flush.
// A host loop calls Flush once per tick (e.g. after draining a network read
// or a batch of UI events); tests and hosts without a natural tick boundary
// can call Flush directly after every mutation.
//
// Schedule is safe for concurrent use. Flush is not meant to run
// concurrently with itself — like the Store it drains, one tick completes
// before the next begins.
type Executor struct {
	mu      sync.Mutex
	pending map[string]func()
	order   []string
	group   singleflight.Group
}

// NewExecutor returns a ready-to-use Executor.
func NewExecutor() *Executor {
	return &Executor{pending: make(map[string]func())}
}

// Schedule arranges for fn to run at the next Flush. Calling Schedule again
// with the same key before the tick flushes replaces the pending fn (the
// last scheduler wins) rather than queuing a second call — this is the
// coalescing contract: "N calls this tick → one flush".
func (e *Executor) Schedule(key string, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.pending[key]; !exists {
		e.order = append(e.order, key)
	}
	e.pending[key] = fn
}

// Flush runs every pending scheduled fn, in first-scheduled-this-tick order,
// then clears the pending set. Concurrent Flush calls arriving in the same
// instant are coalesced via singleflight so the drained work only runs once.
func (e *Executor) Flush() {
	_, _, _ = e.group.Do("flush", func() (any, error) {
		e.mu.Lock()
		keys := e.order
		pending := e.pending
		e.order = nil
		e.pending = make(map[string]func())
		e.mu.Unlock()

		for _, k := range keys {
			if fn := pending[k]; fn != nil {
				fn()
			}
		}
		return nil, nil
	})
}
