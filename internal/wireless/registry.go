package wireless

import "sync"

// Registry tracks the PIDs of tool processes spawned during an attack
// so cleanup can kill anything still running after a cancel or error.
// Sessions are normally stopped by the step that started them; the
// registry is the backstop.
type Registry struct {
	mu   sync.Mutex
	pids map[int]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pids: make(map[int]struct{})}
}

// Register records a PID.
func (r *Registry) Register(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pids[pid] = struct{}{}
}

// Unregister removes a PID, typically after a clean stop.
func (r *Registry) Unregister(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pids, pid)
}

// KillAll kills the process group of every registered PID and clears
// the registry. Kill errors are ignored: the process usually exited
// already.
func (r *Registry) KillAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pid := range r.pids {
		_ = killGroup(pid)
	}
	r.pids = make(map[int]struct{})
}

// Len returns the number of registered PIDs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pids)
}
