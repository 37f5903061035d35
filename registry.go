package replica

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Registry maps type ids and Go types to descriptors.
//
// Registrations are meant to happen during program start-up, before any
// encode, decode or clone runs. Lookups after that point only read.
type Registry struct {
	mu       sync.RWMutex
	byID     map[TypeID]*Type
	byGoType map[reflect.Type]*Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[TypeID]*Type),
		byGoType: make(map[reflect.Type]*Type),
	}
}

// Register adds types to the registry. Either every type is added or none is.
func (r *Registry) Register(types ...*Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make(map[TypeID]bool, len(types))
	goTypes := make(map[reflect.Type]bool, len(types))
	for _, t := range types {
		if t == nil {
			return newTypeError(ErrInvalidType, NullTypeID, "<nil>")
		}
		if _, ok := r.byID[t.id]; ok || ids[t.id] {
			return newTypeError(ErrDuplicateType, t.id, t.name)
		}
		if _, ok := r.byGoType[t.goType]; ok || goTypes[t.goType] {
			return fmt.Errorf("%w: go type %s already registered", newTypeError(ErrDuplicateType, t.id, t.name), t.goType)
		}
		ids[t.id] = true
		goTypes[t.goType] = true
	}

	for _, t := range types {
		r.byID[t.id] = t
		r.byGoType[t.goType] = t
		emitTypeRegistered(context.Background(), t)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(types ...*Type) {
	if err := r.Register(types...); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered under id.
func (r *Registry) Lookup(id TypeID) (*Type, error) {
	r.mu.RLock()
	t, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, newTypeError(ErrUnknownType, id, "")
	}
	return t, nil
}

// LookupInstance returns the descriptor of obj's concrete Go type.
func (r *Registry) LookupInstance(obj Reflectable) (*Type, error) {
	rt := reflect.TypeOf(obj)
	if rt == nil {
		return nil, newTypeError(ErrUnknownType, NullTypeID, "<nil>")
	}
	r.mu.RLock()
	t, ok := r.byGoType[rt]
	r.mu.RUnlock()
	if !ok {
		return nil, newTypeError(ErrUnknownType, NullTypeID, rt.String())
	}
	return t, nil
}

// Types returns every registered descriptor ordered by id.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	out := make([]*Type, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Type) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// reset drops every registration.
func (r *Registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[TypeID]*Type)
	r.byGoType = make(map[reflect.Type]*Type)
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry used by the package-level
// functions.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register adds types to the default registry.
func Register(types ...*Type) error {
	return DefaultRegistry().Register(types...)
}

// MustRegister adds types to the default registry and panics on error.
// It is intended for init functions.
func MustRegister(types ...*Type) {
	DefaultRegistry().MustRegister(types...)
}

// Lookup returns the descriptor registered under id in the default registry.
func Lookup(id TypeID) (*Type, error) {
	return DefaultRegistry().Lookup(id)
}

// LookupInstance returns the descriptor of obj in the default registry.
func LookupInstance(obj Reflectable) (*Type, error) {
	return DefaultRegistry().LookupInstance(obj)
}

// Reset clears the default registry.
// This is primarily useful for test isolation.
func Reset() {
	DefaultRegistry().reset()
}
