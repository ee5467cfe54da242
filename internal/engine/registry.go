package engine

import "sync"

// Registry maps an archive source path to its live engine. It is the only
// cross-archive shared mutable structure; insert and remove are O(1) and
// guarded. It is carried by the processing Context, never global.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*Engine)}
}

func (r *Registry) register(path string, e *Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[path] = e
}

func (r *Registry) unregister(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, path)
}

// Lookup returns the engine for an archive path, or nil.
func (r *Registry) Lookup(path string) *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engines[path]
}

// Len reports how many engines are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
