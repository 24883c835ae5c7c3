package handlers

import (
	"reflect"
	"sync"

	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/metadata"
)

// Factory builds a value on demand.
type Factory func(c *container.Container) (any, error)

// Contextual overrides what a specific consumer receives for a dependency
// type. Rules are keyed on the concrete type being built and the declared
// dependency type.
//
//	ctx.When(container.TypeOf[*PhotoController]()).
//	    Needs(container.TypeOf[Filesystem]()).
//	    Give(func(c *container.Container) (any, error) { return NewS3(), nil })
type Contextual struct {
	mu    sync.RWMutex
	rules map[reflect.Type]map[reflect.Type]Factory
}

// NewContextual returns an empty Contextual handler.
func NewContextual() *Contextual {
	return &Contextual{rules: make(map[reflect.Type]map[reflect.Type]Factory)}
}

// ContextualBuilder implements the fluent When/Needs/Give API.
type ContextualBuilder struct {
	handler  *Contextual
	concrete reflect.Type
	needs    reflect.Type
}

// When starts a rule for the consumer type concrete.
func (x *Contextual) When(concrete reflect.Type) *ContextualBuilder {
	return &ContextualBuilder{handler: x, concrete: concrete}
}

// Needs names the dependency type the rule applies to.
func (b *ContextualBuilder) Needs(abstract reflect.Type) *ContextualBuilder {
	b.needs = abstract
	return b
}

// Give installs the factory for the rule.
func (b *ContextualBuilder) Give(factory Factory) {
	b.handler.mu.Lock()
	defer b.handler.mu.Unlock()
	if _, ok := b.handler.rules[b.concrete]; !ok {
		b.handler.rules[b.concrete] = make(map[reflect.Type]Factory)
	}
	b.handler.rules[b.concrete][b.needs] = factory
}

// GiveValue is Give for a pre-built value.
func (b *ContextualBuilder) GiveValue(value any) {
	b.Give(func(*container.Container) (any, error) { return value, nil })
}

func (x *Contextual) lookup(concrete, needs reflect.Type) (Factory, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	f, ok := x.rules[concrete][needs]
	return f, ok
}

// ResolveValue implements container.ValueResolver.
func (x *Contextual) ResolveValue(ctx *container.ResolvedContext, d metadata.Descriptor) (reflect.Value, bool, error) {
	f, ok := x.lookup(ctx.MappedType(), d.Type)
	if !ok {
		return reflect.Value{}, false, nil
	}
	v, err := f(ctx.Container())
	if err != nil {
		return reflect.Value{}, false, &container.ReflectError{Type: ctx.MappedType(), Member: "contextual " + d.Type.String(), Cause: err}
	}
	if v == nil {
		return reflect.Zero(d.Type), true, nil
	}
	return reflect.ValueOf(v), true, nil
}
