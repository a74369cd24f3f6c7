package ingest

import "sync"

// stopRegistry holds per-id stop flags. A flag set here is observed at the
// orchestrator's checkpoints only; it never pre-empts an in-flight adapter
// call.
type stopRegistry struct {
	mu    sync.Mutex
	flags map[string]bool
}

func newStopRegistry() *stopRegistry {
	return &stopRegistry{flags: make(map[string]bool)}
}

// request marks id for cooperative cancellation.
func (r *stopRegistry) request(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[id] = true
}

// requested reports whether a stop was requested for id.
func (r *stopRegistry) requested(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags[id]
}

// clear removes id's flag, if any.
func (r *stopRegistry) clear(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flags, id)
}
