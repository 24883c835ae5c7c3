package handlers

import (
	"reflect"
	"slices"
	"sync"

	"github.com/km-arc/go-inject/framework/container"
)

// Decorator wraps or replaces a resolved instance. The result must still
// be assignable to the requested type.
type Decorator func(instance any, c *container.Container) (any, error)

// Decorators runs extenders and resolving callbacks after construction.
//
//	d.Extend(container.TypeOf[Cache](), func(inst any, _ *container.Container) (any, error) {
//	    return &loggingCache{inner: inst.(Cache)}, nil
//	})
type Decorators struct {
	mu        sync.RWMutex
	extenders map[reflect.Type][]Decorator
	callbacks []func(t reflect.Type, instance any)
}

// NewDecorators returns an empty Decorators handler.
func NewDecorators() *Decorators {
	return &Decorators{extenders: make(map[reflect.Type][]Decorator)}
}

// Extend adds a decorator for instances requested as t. Decorators for the
// same type run in registration order.
func (d *Decorators) Extend(t reflect.Type, fn Decorator) *Decorators {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.extenders[t] = append(d.extenders[t], fn)
	return d
}

// AfterResolving registers a callback invoked with every constructed
// instance and its requested type.
func (d *Decorators) AfterResolving(fn func(t reflect.Type, instance any)) *Decorators {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = append(d.callbacks, fn)
	return d
}

// PostConstruct implements container.PostConstructHandler. Extenders are
// keyed on the requested type: a concrete type's extenders run when it is
// built, an interface's extenders run when an instance bound to it is first
// handed out under that interface. Callbacks see constructed instances only.
func (d *Decorators) PostConstruct(instance reflect.Value, ctx *container.ResolvedContext) (reflect.Value, error) {
	d.mu.RLock()
	fns := slices.Clone(d.extenders[ctx.OriginalType()])
	var callbacks []func(reflect.Type, any)
	if !ctx.Reused() {
		callbacks = slices.Clone(d.callbacks)
	}
	d.mu.RUnlock()

	if len(fns) == 0 && len(callbacks) == 0 {
		return reflect.Value{}, nil
	}

	current := instance.Interface()
	for _, fn := range fns {
		next, err := fn(current, ctx.Container())
		if err != nil {
			return reflect.Value{}, &container.ReflectError{Type: ctx.OriginalType(), Member: "decorator", Cause: err}
		}
		if next == nil {
			return reflect.Value{}, &container.ConfigError{Type: ctx.OriginalType(), Reason: "decorator returned nil"}
		}
		current = next
	}
	for _, cb := range callbacks {
		cb(ctx.OriginalType(), current)
	}

	if len(fns) == 0 {
		return reflect.Value{}, nil
	}
	return reflect.ValueOf(current), nil
}
