package saved

import "sync"

// Registry holds at most one active pack/unpack hook pair. Each autodiff
// engine owns one Registry; operations snapshot it when they save tensors.
//
// The single slot is deliberate: nesting of hook scopes is not supported,
// and Set fails rather than silently replacing an active pair.
type Registry struct {
	mu    sync.Mutex
	hooks Hooks
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Set installs a hook pair. Returns ErrAlreadyRegistered if a pair is
// already active and ErrNilHooks for a nil pair. No validation of the hooks
// beyond that: contract violations surface lazily at unpack time.
func (r *Registry) Set(h Hooks) error {
	if h == nil {
		return ErrNilHooks
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hooks != nil {
		return ErrAlreadyRegistered
	}
	r.hooks = h
	return nil
}

// Reset clears the active pair. Idempotent: resetting an empty registry is
// not an error. Tensors saved under the previous pair keep their binding.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = nil
}

// Snapshot returns the currently active pair, or nil when none is active.
// This is the read path used at save time; the mutex guarantees the pair is
// never observed half-written relative to Set and Reset.
func (r *Registry) Snapshot() Hooks {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hooks
}

// Active reports whether a hook pair is currently installed.
func (r *Registry) Active() bool {
	return r.Snapshot() != nil
}
