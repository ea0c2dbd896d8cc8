package training

import (
	"sync"

	"drawcast/internal/ml"
)

// handle is the process-wide slot for one named model. Holding mu grants
// exclusive use of model for training or prediction.
type handle struct {
	mu    sync.Mutex
	model ml.Model // nil until loaded or trained
}

// Registry hands out one handle per model name. Controllers sharing a
// registry serialize on the same model.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*handle)}
}

// acquire locks the handle for name. The caller must call unlock.
func (r *Registry) acquire(name string) *handle {
	r.mu.Lock()
	h, ok := r.handles[name]
	if !ok {
		h = &handle{}
		r.handles[name] = h
	}
	r.mu.Unlock()

	h.mu.Lock()
	return h
}

func (h *handle) unlock() {
	h.mu.Unlock()
}
