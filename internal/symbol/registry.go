package symbol

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrEmptyBinding is returned when a name is registered without symbols.
	ErrEmptyBinding = errors.New("binding has no symbols")

	// ErrPrimaryNotMember is returned when the primary is not in the symbol set.
	ErrPrimaryNotMember = errors.New("primary symbol is not a member of the binding")

	// ErrSymbolCollision is returned when a symbol is already owned by another name.
	ErrSymbolCollision = errors.New("symbol already bound to another name")
)

// Binding is one authoritative (name, symbols, primary) triple.
type Binding struct {
	Name    string   `yaml:"name" json:"name"`
	Symbols []Symbol `yaml:"symbols" json:"symbols"`
	Primary Symbol   `yaml:"primary" json:"primary"`
}

// Registry maps names to symbols and symbols back to names.
// Both directions are written together from one Binding, so every symbol
// registered for a name is also present in the reverse map.
type Registry struct {
	mu      sync.RWMutex
	forward map[string]Binding
	reverse map[Symbol]string
}

// NewRegistry creates a Registry from bindings, registered in order.
func NewRegistry(bindings ...Binding) (*Registry, error) {
	r := &Registry{
		forward: make(map[string]Binding),
		reverse: make(map[Symbol]string),
	}
	for _, b := range bindings {
		if err := r.Register(b.Name, b.Symbols, b.Primary); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register binds name to symbols with the given primary. Registering an
// existing name replaces its previous binding.
func (r *Registry) Register(name string, symbols []Symbol, primary Symbol) error {
	if name == "" {
		return fmt.Errorf("symbol: register: empty name")
	}
	if len(symbols) == 0 {
		return fmt.Errorf("symbol: register %q: %w", name, ErrEmptyBinding)
	}

	member := false
	for _, s := range symbols {
		if s == primary {
			member = true
			break
		}
	}
	if !member {
		return fmt.Errorf("symbol: register %q: %s: %w", name, FormatUPlus(primary), ErrPrimaryNotMember)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range symbols {
		if owner, ok := r.reverse[s]; ok && owner != name {
			return fmt.Errorf("symbol: register %q: %s owned by %q: %w", name, FormatUPlus(s), owner, ErrSymbolCollision)
		}
	}

	if old, ok := r.forward[name]; ok {
		for _, s := range old.Symbols {
			delete(r.reverse, s)
		}
	}

	cp := make([]Symbol, len(symbols))
	copy(cp, symbols)
	r.forward[name] = Binding{Name: name, Symbols: cp, Primary: primary}
	for _, s := range cp {
		r.reverse[s] = name
	}
	return nil
}

// Forward returns the symbols registered for name.
func (r *Registry) Forward(name string) ([]Symbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.forward[name]
	if !ok {
		return nil, false
	}
	cp := make([]Symbol, len(b.Symbols))
	copy(cp, b.Symbols)
	return cp, true
}

// Primary returns the primary symbol registered for name.
func (r *Registry) Primary(name string) (Symbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.forward[name]
	if !ok {
		return 0, false
	}
	return b.Primary, true
}

// Reverse returns the name owning s.
func (r *Registry) Reverse(s Symbol) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.reverse[s]
	return name, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.forward))
	for n := range r.forward {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Bindings exports the registered triples sorted by name.
func (r *Registry) Bindings() []Binding {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, 0, len(names))
	for _, n := range names {
		b := r.forward[n]
		cp := make([]Symbol, len(b.Symbols))
		copy(cp, b.Symbols)
		out = append(out, Binding{Name: n, Symbols: cp, Primary: b.Primary})
	}
	return out
}
