package venues

import (
	"fmt"
	"sort"

	"intentnet/core/types"
)

// Registry indexes venue adapters by id. The solver, verifier and executor
// all dispatch through the registry and never name a concrete venue type.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Registering the same id twice replaces the
// previous adapter.
func (r *Registry) Register(adapter Adapter) {
	id := adapter.ID()
	if _, exists := r.adapters[id]; !exists {
		r.order = append(r.order, id)
		sort.Strings(r.order)
	}
	r.adapters[id] = adapter
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (Adapter, error) {
	adapter, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVenueNotFound, id)
	}
	return adapter, nil
}

// ForPair returns every adapter supporting the pair, in deterministic order.
func (r *Registry) ForPair(a, b types.AssetID) []Adapter {
	var out []Adapter
	for _, id := range r.order {
		if adapter := r.adapters[id]; adapter.SupportsPair(a, b) {
			out = append(out, adapter)
		}
	}
	return out
}

// WithLedger returns a registry whose adapters are rebound to another ledger
// view. Used by the executor to run venue legs against a snapshot.
func (r *Registry) WithLedger(ledger Ledger) *Registry {
	clone := NewRegistry()
	for _, id := range r.order {
		clone.Register(r.adapters[id].WithLedger(ledger))
	}
	return clone
}
