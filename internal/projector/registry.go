package projector

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/trustledger/internal/eventlog"
	"github.com/roach88/trustledger/internal/ir"
)

// Transition applies one event to the accumulator and returns the new
// accumulator. The state passed in is owned by the current Rebuild call, so a
// transition may update it in place and return it. A nil return is treated as
// an empty state.
type Transition func(state ir.IRObject, p Payload) (ir.IRObject, error)

// Registry maps event types to transitions.
//
// Registration is add-only: an event type can be registered once and never
// replaced, so new rules cannot alter existing behavior.
//
// Thread-safety: Registry is safe for concurrent use. Rebuilds may run while
// new types are registered; a rebuild sees the rules present at lookup time.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Transition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Transition)}
}

// Register adds a transition for eventType.
// Rejects empty types, nil transitions and duplicate registrations.
func (r *Registry) Register(eventType string, fn Transition) error {
	if eventType == "" {
		return eventlog.NewInvalidArgument("event type must be non-empty")
	}
	if fn == nil {
		return eventlog.NewInvalidArgument(fmt.Sprintf("transition for %s is nil", eventType))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[eventType]; exists {
		return eventlog.NewInvalidArgument(fmt.Sprintf("transition for %s already registered", eventType))
	}
	r.rules[eventType] = fn
	return nil
}

// MustRegister is like Register but panics on error.
// Use only for rules wired at construction time.
func (r *Registry) MustRegister(eventType string, fn Transition) {
	if err := r.Register(eventType, fn); err != nil {
		panic(err)
	}
}

// RegisterSpec builds a declarative transition from spec and registers it.
func (r *Registry) RegisterSpec(spec ir.RuleSpec) error {
	fn, err := Declarative(spec)
	if err != nil {
		return err
	}
	return r.Register(spec.EventType, fn)
}

// Lookup returns the transition for eventType.
func (r *Registry) Lookup(eventType string) (Transition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.rules[eventType]
	return fn, ok
}

// Types returns the registered event types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.rules))
	for t := range r.rules {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
