package container

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/km-arc/go-inject/framework/metadata"
)

// StrategyKind names the way a strategy builds its instance.
type StrategyKind int

const (
	ConstructorInjection StrategyKind = iota + 1
	FieldInjection
	NoArgConstruction
	ExternalInstance
	ProviderDelegated
)

func (k StrategyKind) String() string {
	switch k {
	case ConstructorInjection:
		return "constructor-injection"
	case FieldInjection:
		return "field-injection"
	case NoArgConstruction:
		return "no-arg"
	case ExternalInstance:
		return "external-instance"
	case ProviderDelegated:
		return "provider-delegated"
	default:
		return "unknown"
	}
}

// Strategy builds one instance of a concrete type. Dependencies lists the
// values Build expects, in order.
type Strategy interface {
	Kind() StrategyKind
	Dependencies() []metadata.Descriptor
	Build(values []reflect.Value) (reflect.Value, error)
}

// FuncStrategy returns a provider-delegated strategy calling build with the
// resolved values of deps.
func FuncStrategy(deps []metadata.Descriptor, build func(values []reflect.Value) (reflect.Value, error)) Strategy {
	return &funcStrategy{deps: deps, build: build}
}

// InstanceStrategy returns a strategy that always yields v.
func InstanceStrategy(v any) Strategy {
	return &instanceStrategy{value: reflect.ValueOf(v)}
}

type funcStrategy struct {
	deps  []metadata.Descriptor
	build func([]reflect.Value) (reflect.Value, error)
}

func (s *funcStrategy) Kind() StrategyKind                  { return ProviderDelegated }
func (s *funcStrategy) Dependencies() []metadata.Descriptor { return s.deps }
func (s *funcStrategy) Build(values []reflect.Value) (reflect.Value, error) {
	return s.build(values)
}

type instanceStrategy struct {
	value reflect.Value
}

func (s *instanceStrategy) Kind() StrategyKind                  { return ExternalInstance }
func (s *instanceStrategy) Dependencies() []metadata.Descriptor { return nil }
func (s *instanceStrategy) Build([]reflect.Value) (reflect.Value, error) {
	return s.value, nil
}

// ── Constructor injection ─────────────────────────────────────────────────────

type constructorStrategy struct {
	meta metadata.Service
	typ  reflect.Type
	ctor metadata.Constructor
}

func (s *constructorStrategy) Kind() StrategyKind { return ConstructorInjection }

func (s *constructorStrategy) Dependencies() []metadata.Descriptor { return s.ctor.Params }

func (s *constructorStrategy) Build(values []reflect.Value) (reflect.Value, error) {
	return invokeConstructor(s.meta, s.typ, s.ctor, values)
}

func invokeConstructor(meta metadata.Service, t reflect.Type, ctor metadata.Constructor, args []reflect.Value) (reflect.Value, error) {
	out, err := meta.Invoke(ctor.Fn, args)
	if err != nil {
		return reflect.Value{}, &ReflectError{Type: t, Member: ctor.Name(), Cause: err}
	}
	if ctor.HasError && !out[1].IsNil() {
		return reflect.Value{}, &ReflectError{Type: t, Member: ctor.Name(), Cause: out[1].Interface().(error)}
	}
	return dynamic(out[0]), nil
}

// dynamic unwraps an interface-typed value to its concrete value.
func dynamic(v reflect.Value) reflect.Value {
	if v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		return v.Elem()
	}
	return v
}

// ── Field injection ───────────────────────────────────────────────────────────

type fieldStrategy struct {
	meta   metadata.Service
	typ    reflect.Type
	alloc  func() (reflect.Value, error)
	fields []metadata.Field
}

func (s *fieldStrategy) Kind() StrategyKind { return FieldInjection }

func (s *fieldStrategy) Dependencies() []metadata.Descriptor {
	deps := make([]metadata.Descriptor, len(s.fields))
	for i, f := range s.fields {
		deps[i] = f.Descriptor
	}
	return deps
}

func (s *fieldStrategy) Build(values []reflect.Value) (reflect.Value, error) {
	inst, err := s.alloc()
	if err != nil {
		return reflect.Value{}, err
	}
	if err := setFields(s.meta, s.typ, inst, s.fields, values); err != nil {
		return reflect.Value{}, err
	}
	return inst, nil
}

// checkUnset rejects fields that already hold a value; injected fields
// must start out zero.
func checkUnset(t reflect.Type, inst reflect.Value, fields []metadata.Field) error {
	if inst.Kind() != reflect.Pointer || inst.IsNil() {
		return configError(t, "field injection needs a non-nil pointer, got %s", inst.Type())
	}
	for _, f := range fields {
		if !inst.Elem().FieldByIndex(f.Index).IsZero() {
			return configError(t, "field %s is already set", f.Name)
		}
	}
	return nil
}

func setFields(meta metadata.Service, t reflect.Type, inst reflect.Value, fields []metadata.Field, values []reflect.Value) error {
	if err := checkUnset(t, inst, fields); err != nil {
		return err
	}
	for i, f := range fields {
		if err := meta.SetField(f, inst, values[i]); err != nil {
			return &ReflectError{Type: t, Member: "field " + f.Name, Cause: err}
		}
	}
	return nil
}

// ── No-arg construction ───────────────────────────────────────────────────────

type noArgStrategy struct {
	alloc func() (reflect.Value, error)
}

func (s *noArgStrategy) Kind() StrategyKind                  { return NoArgConstruction }
func (s *noArgStrategy) Dependencies() []metadata.Descriptor { return nil }
func (s *noArgStrategy) Build([]reflect.Value) (reflect.Value, error) {
	return s.alloc()
}

// ── Default selection ─────────────────────────────────────────────────────────

// selectStrategy picks the default strategy for t:
//
//  1. exactly one constructor marked as injection point: constructor injection
//  2. a no-arg constructor and tagged fields: field injection
//  3. a no-arg constructor and no tagged fields: direct construction
//  4. anything else is a configuration error
//
// A registered zero-parameter constructor is the no-arg constructor; a
// pointer-to-struct type without one is allocated as its zero value.
func selectStrategy(meta metadata.Service, t reflect.Type) (Strategy, error) {
	var (
		marked []metadata.Constructor
		noArg  *metadata.Constructor
	)
	for _, c := range meta.Constructors(t) {
		switch {
		case c.Inject:
			marked = append(marked, c)
		case len(c.Params) == 0 && noArg == nil:
			c := c
			noArg = &c
		}
	}

	fields, err := meta.InjectableFields(t)
	if err != nil {
		return nil, errors.Wrapf(err, "scanning fields of %s", t)
	}

	switch {
	case len(marked) == 1:
		if len(fields) > 0 {
			return nil, configError(t, "declares both an injection constructor and %d injectable fields", len(fields))
		}
		return &constructorStrategy{meta: meta, typ: t, ctor: marked[0]}, nil
	case len(marked) > 1:
		return nil, configError(t, "%d constructors are marked as injection point", len(marked))
	}

	alloc := allocator(meta, t, noArg)
	if alloc == nil {
		return nil, configError(t, "no constructor is marked as injection point and no no-arg constructor is available")
	}
	if len(fields) > 0 {
		return &fieldStrategy{meta: meta, typ: t, alloc: alloc, fields: fields}, nil
	}
	return &noArgStrategy{alloc: alloc}, nil
}

func allocator(meta metadata.Service, t reflect.Type, noArg *metadata.Constructor) func() (reflect.Value, error) {
	if noArg != nil {
		ctor := *noArg
		return func() (reflect.Value, error) {
			return invokeConstructor(meta, t, ctor, nil)
		}
	}
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		return func() (reflect.Value, error) {
			return reflect.New(t.Elem()), nil
		}
	}
	return nil
}
