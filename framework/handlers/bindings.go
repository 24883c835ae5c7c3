package handlers

import (
	"reflect"
	"strings"
	"sync"

	"github.com/km-arc/go-inject/framework/container"
)

// Bindings remaps requested types before construction. Explicit bindings
// (abstract -> concrete) are followed first; an interface still unmapped
// is autowired to the single registered candidate implementing it.
type Bindings struct {
	mu         sync.RWMutex
	explicit   map[reflect.Type]reflect.Type
	candidates []reflect.Type
}

// NewBindings returns an empty Bindings handler.
func NewBindings() *Bindings {
	return &Bindings{explicit: make(map[reflect.Type]reflect.Type)}
}

// Bind maps abstract to concrete. concrete must be assignable to abstract.
//
//	b.Bind(container.TypeOf[Greeter](), container.TypeOf[*englishGreeter]())
func (b *Bindings) Bind(abstract, concrete reflect.Type) error {
	if abstract == nil || concrete == nil {
		return &container.ConfigError{Type: abstract, Reason: "binding needs two types"}
	}
	if concrete != abstract && !concrete.AssignableTo(abstract) {
		return &container.ConfigError{Type: abstract, Reason: "cannot bind to " + concrete.String() + ": not assignable"}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.explicit[abstract] = concrete
	return nil
}

// Candidates adds implementation candidates for interface autowiring.
func (b *Bindings) Candidates(types ...reflect.Type) *Bindings {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.candidates = append(b.candidates, types...)
	return b
}

// PreConstruct implements container.PreConstructHandler.
func (b *Bindings) PreConstruct(ctx *container.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := map[reflect.Type]bool{ctx.MappedType(): true}
	for {
		concrete, ok := b.explicit[ctx.MappedType()]
		if !ok || seen[concrete] {
			break
		}
		if err := ctx.MapTo(concrete); err != nil {
			return err
		}
		seen[concrete] = true
	}

	t := ctx.MappedType()
	if t.Kind() != reflect.Interface {
		return nil
	}

	var matches []reflect.Type
	for _, c := range b.candidates {
		if c != t && c.Kind() != reflect.Interface && c.Implements(t) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil
	case 1:
		return ctx.MapTo(matches[0])
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.String()
		}
		return &container.ConfigError{
			Type:   t,
			Reason: "ambiguous implementations: " + strings.Join(names, ", "),
		}
	}
}
