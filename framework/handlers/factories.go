package handlers

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"

	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/metadata"
)

// Factories supplies a construction strategy from a factory function. Unlike
// a registry provider, a factory takes part in the normal lifecycle: its
// parameters are injected, the product is cached per scope and post-construct
// handlers run on it.
//
//	f.Add(container.TypeOf[Mailer](), func(cfg *Config) (Mailer, error) {
//	    return smtp.New(cfg.MailHost)
//	})
type Factories struct {
	mu   sync.RWMutex
	byTy map[reflect.Type]*factory
}

type factory struct {
	fn       reflect.Value
	deps     []metadata.Descriptor
	hasError bool
}

// NewFactories returns an empty Factories handler.
func NewFactories() *Factories {
	return &Factories{byTy: make(map[reflect.Type]*factory)}
}

// Add registers fn as the factory for t. fn returns a value assignable to t,
// optionally followed by an error. tags, when given, annotate the
// parameters positionally with `inject` tag syntax.
func (f *Factories) Add(t reflect.Type, fn any, tags ...string) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return &container.ConfigError{Type: t, Reason: fmt.Sprintf("factory must be a function, got %T", fn)}
	}
	ft := v.Type()
	if ft.IsVariadic() {
		return &container.ConfigError{Type: t, Reason: "factory cannot be variadic"}
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return &container.ConfigError{Type: t, Reason: "factory must return T or (T, error)"}
	}
	if !ft.Out(0).AssignableTo(t) {
		return &container.ConfigError{Type: t, Reason: fmt.Sprintf("factory returns %s", ft.Out(0))}
	}
	if len(tags) > ft.NumIn() {
		return &container.ConfigError{Type: t, Reason: fmt.Sprintf("%d tags for %d parameters", len(tags), ft.NumIn())}
	}

	name := runtime.FuncForPC(v.Pointer()).Name()
	deps := make([]metadata.Descriptor, ft.NumIn())
	for i := range deps {
		tag := ""
		if i < len(tags) {
			tag = tags[i]
		}
		owner := metadata.Member{Kind: metadata.MemberConstructor, Owner: t, Name: name, Index: []int{i}}
		ann, err := metadata.ParseTag(tag)
		if err != nil {
			return &container.ConfigError{Type: t, Reason: "factory " + owner.String(), Cause: err}
		}
		if ann.Has(metadata.NoFields) {
			return &container.ConfigError{Type: t, Reason: "nofields is not valid on factory parameter " + owner.String()}
		}
		deps[i] = metadata.Descriptor{Type: ft.In(i), Annotations: ann, Owner: owner}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.byTy[t] = &factory{fn: v, deps: deps, hasError: ft.NumOut() == 2}
	return nil
}

// Has reports whether a factory is registered for t.
func (f *Factories) Has(t reflect.Type) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.byTy[t]
	return ok
}

// ProvideStrategy implements container.StrategyProvider.
func (f *Factories) ProvideStrategy(ctx *container.Context) (container.Strategy, error) {
	f.mu.RLock()
	fac, ok := f.byTy[ctx.MappedType()]
	f.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	meta := ctx.Container().Metadata()
	t := ctx.MappedType()
	return container.FuncStrategy(fac.deps, func(values []reflect.Value) (reflect.Value, error) {
		out, err := meta.Invoke(fac.fn, values)
		if err != nil {
			return reflect.Value{}, &container.ReflectError{Type: t, Member: "factory", Cause: err}
		}
		if fac.hasError && !out[1].IsNil() {
			return reflect.Value{}, &container.ReflectError{Type: t, Member: "factory", Cause: out[1].Interface().(error)}
		}
		return out[0], nil
	}), nil
}
