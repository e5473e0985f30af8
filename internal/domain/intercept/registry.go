package intercept

import "sync"

// Invocation carries one intercepted call through its hook chain. Before
// hooks may rewrite Args or force a return value; After hooks may replace
// the result produced by the delegate.
type Invocation struct {
	Target any
	Member string
	Args   []any

	result  any
	settled bool
}

// Result returns the invocation's current return value.
func (inv *Invocation) Result() any { return inv.result }

// Return sets the invocation's return value. In a Before hook this also
// skips delegation to the original member.
func (inv *Invocation) Return(v any) {
	inv.result = v
	inv.settled = true
}

// Access carries one intercepted property read or write.
type Access struct {
	Target any
	Member string
	// Value is the read result during get hooks and the incoming value
	// during set hooks. Hooks may replace it.
	Value any

	settled bool
	stopped bool
}

// Return sets the read result. In a BeforeGet hook this also skips the
// delegate read.
func (a *Access) Return(v any) {
	a.Value = v
	a.settled = true
}

// Stop cancels a write. Only meaningful in a BeforeSet hook.
func (a *Access) Stop() { a.stopped = true }

// ApplyHooks wrap a method call.
type ApplyHooks struct {
	Before func(*Invocation)
	After  func(*Invocation)
}

// TrapHooks wrap property reads and writes.
type TrapHooks struct {
	BeforeGet func(*Access)
	AfterGet  func(*Access)
	BeforeSet func(*Access)
	AfterSet  func(*Access)
}

type slotKey struct {
	target any
	member string
}

// Registry is the explicit hook table consulted at call sites. Installing
// hooks for a (target, member) pair that already has hooks replaces them,
// which makes repeated installation idempotent.
type Registry struct {
	mu      sync.RWMutex
	applies map[slotKey]ApplyHooks
	traps   map[slotKey]TrapHooks
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		applies: make(map[slotKey]ApplyHooks),
		traps:   make(map[slotKey]TrapHooks),
	}
}

// InstallApply installs call hooks for a member of target.
func (r *Registry) InstallApply(target any, member string, hooks ApplyHooks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applies[slotKey{target, member}] = hooks
}

// InstallTrap installs property hooks for a member of target.
func (r *Registry) InstallTrap(target any, member string, hooks TrapHooks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traps[slotKey{target, member}] = hooks
}

// Installed reports whether any hooks exist for the (target, member) pair.
func (r *Registry) Installed(target any, member string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := slotKey{target, member}
	_, apply := r.applies[key]
	_, trap := r.traps[key]
	return apply || trap
}

// Release drops every hook installed for target.
func (r *Registry) Release(target any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.applies {
		if key.target == target {
			delete(r.applies, key)
		}
	}
	for key := range r.traps {
		if key.target == target {
			delete(r.traps, key)
		}
	}
}

// Apply routes a method call through the installed hooks. The original
// function receives the (possibly rewritten) arguments unless a Before hook
// settled the result first; After hooks see and may replace the result.
func (r *Registry) Apply(target any, member string, original func(args []any) any, args ...any) any {
	r.mu.RLock()
	hooks, ok := r.applies[slotKey{target, member}]
	r.mu.RUnlock()

	if !ok {
		return original(args)
	}

	inv := &Invocation{Target: target, Member: member, Args: args}
	if hooks.Before != nil {
		hooks.Before(inv)
	}
	if !inv.settled {
		inv.result = original(inv.Args)
	}
	if hooks.After != nil {
		hooks.After(inv)
	}
	return inv.result
}

// Get routes a property read through the installed hooks.
func (r *Registry) Get(target any, member string, original func() any) any {
	r.mu.RLock()
	hooks, ok := r.traps[slotKey{target, member}]
	r.mu.RUnlock()

	if !ok {
		return original()
	}

	acc := &Access{Target: target, Member: member}
	if hooks.BeforeGet != nil {
		hooks.BeforeGet(acc)
	}
	if !acc.settled {
		acc.Value = original()
	}
	if hooks.AfterGet != nil {
		hooks.AfterGet(acc)
	}
	return acc.Value
}

// Set routes a property write through the installed hooks. A BeforeSet hook
// may rewrite the value or stop the write; AfterSet observes the final value.
func (r *Registry) Set(target any, member string, original func(any), value any) {
	r.mu.RLock()
	hooks, ok := r.traps[slotKey{target, member}]
	r.mu.RUnlock()

	if !ok {
		original(value)
		return
	}

	acc := &Access{Target: target, Member: member, Value: value}
	if hooks.BeforeSet != nil {
		hooks.BeforeSet(acc)
	}
	if acc.stopped {
		return
	}
	original(acc.Value)
	if hooks.AfterSet != nil {
		hooks.AfterSet(acc)
	}
}
