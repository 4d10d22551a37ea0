// Package registry implements the cell instance registry (spec §4.3): a
// process-wide table mapping opaque handles to live modem instances, so
// C-style callers that only hold an integer handle (and Go callers that
// hold a *ubxmodem.CellInstance) can share the same underlying state.
// The global-mutex-guarded map mirrors how the teacher's Device type
// keeps its own internal bookkeeping (runners, metrics, observer)
// behind a single struct rather than scattered package globals; here
// that bookkeeping is shared across possibly many Instances instead of
// exactly one.
package registry

import (
	"fmt"
	"sync"
)

// Handle is an opaque identifier for a registered instance.
type Handle uint32

var (
	mu      sync.Mutex
	entries = make(map[Handle]interface{})
	next    Handle = 1
)

// Add registers inst and returns a fresh handle for it.
func Add(inst interface{}) Handle {
	mu.Lock()
	defer mu.Unlock()
	h := next
	next++
	entries[h] = inst
	return h
}

// Get returns the instance registered under h, if any.
func Get(h Handle) (interface{}, bool) {
	mu.Lock()
	defer mu.Unlock()
	inst, ok := entries[h]
	return inst, ok
}

// Remove unregisters h. It is a no-op if h is unknown.
func Remove(h Handle) {
	mu.Lock()
	defer mu.Unlock()
	delete(entries, h)
}

// Count returns the number of live registrations, mainly for tests.
func Count() int {
	mu.Lock()
	defer mu.Unlock()
	return len(entries)
}

// MustGet is a convenience wrapper for callers that treat an unknown
// handle as a programming error rather than a recoverable condition.
func MustGet(h Handle) interface{} {
	inst, ok := Get(h)
	if !ok {
		panic(fmt.Sprintf("registry: unknown handle %d", h))
	}
	return inst
}
