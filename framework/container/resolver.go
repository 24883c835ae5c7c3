package container

import (
	"reflect"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/metadata"
)

// resolution tracks the types under construction for one top-level request.
// A request made from inside a construction (a lazy provider called by a
// constructor) gets its own resolution whose parent is the outer one, so a
// cycle through it is still seen.
type resolution struct {
	parent *resolution

	mu    sync.Mutex
	stack []reflect.Type
}

func (r *resolution) push(t reflect.Type) error {
	if r.active(t) {
		return circularError(r.chain(), t)
	}
	r.mu.Lock()
	r.stack = append(r.stack, t)
	r.mu.Unlock()
	return nil
}

func (r *resolution) pop() {
	r.mu.Lock()
	r.stack = r.stack[:len(r.stack)-1]
	r.mu.Unlock()
}

func (r *resolution) active(t reflect.Type) bool {
	for p := r; p != nil; p = p.parent {
		p.mu.Lock()
		found := slices.Contains(p.stack, t)
		p.mu.Unlock()
		if found {
			return true
		}
	}
	return false
}

// chain is the stack from the outermost resolution inwards.
func (r *resolution) chain() []reflect.Type {
	var out []reflect.Type
	if r.parent != nil {
		out = r.parent.chain()
	}
	r.mu.Lock()
	out = append(out, r.stack...)
	r.mu.Unlock()
	return out
}

// resolve produces a value for t:
//
//  1. a registry entry for t wins outright
//  2. pre-construct handlers may remap t
//  3. cached kinds return the stored singleton of the mapped type
//  4. otherwise a strategy is chosen and its dependencies resolved
//  5. the instance is built and passed through post-construct handlers
//  6. cached kinds store the instance under the mapped type
//  7. a remapped request hands the instance out through post-construct
//     handlers for the requested type; cached kinds keep that view apart
//     from the store so the mapped type's singleton is never replaced
func (c *Container) resolve(r *resolution, t reflect.Type, kind ResolutionKind) (reflect.Value, error) {
	if t == nil {
		return reflect.Value{}, configError(nil, "cannot resolve a nil type")
	}

	if e, ok := c.registry.lookup(t); ok {
		return c.fromRegistry(r, e, kind)
	}

	ctx := newContext(c, r, kind, t)
	if err := c.pipeline.preConstruct(ctx); err != nil {
		return reflect.Value{}, err
	}
	mapped := ctx.MappedType()
	if mapped != t {
		c.log.Debug("type remapped", zap.Stringer("from", t), zap.Stringer("to", mapped))
		if e, ok := c.registry.lookup(mapped); ok {
			return c.fromRegistry(r, e, kind)
		}
	}

	if err := r.push(mapped); err != nil {
		return reflect.Value{}, err
	}
	defer r.pop()

	if !kind.cached() {
		v, err := c.construct(r, ctx)
		if err != nil || mapped == t {
			return v, err
		}
		return c.handout(ctx, v)
	}

	v, hit, err := c.store.GetOrCreate(mapped, func() (reflect.Value, error) {
		return c.construct(r, ctx)
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if hit {
		c.log.Debug("singleton cache hit", zap.Stringer("type", mapped))
	} else {
		c.log.Debug("singleton stored", zap.Stringer("type", mapped))
	}
	if mapped == t {
		return v, nil
	}
	return c.views.GetOrCreate(t, mapped, func() (reflect.Value, error) {
		return c.handout(ctx, v)
	})
}

// handout passes v, an instance of the mapped type, through post-construct
// handlers for the requested type. The result must be assignable to it.
func (c *Container) handout(ctx *Context, v reflect.Value) (reflect.Value, error) {
	out, err := c.pipeline.postConstruct(v, ctx.handout(v))
	if err != nil {
		return reflect.Value{}, err
	}
	out = dynamic(out)
	if out.IsValid() && !out.Type().AssignableTo(ctx.OriginalType()) {
		return reflect.Value{}, configError(ctx.OriginalType(), "post-construct produced %s", out.Type())
	}
	return out, nil
}

func (c *Container) construct(r *resolution, ctx *Context) (reflect.Value, error) {
	mapped := ctx.MappedType()

	s, err := c.pipeline.provideStrategy(ctx)
	if err != nil {
		return reflect.Value{}, err
	}
	if s == nil {
		if s, err = selectStrategy(c.meta, mapped); err != nil {
			return reflect.Value{}, err
		}
	}
	rctx := ctx.construction(s)

	deps := s.Dependencies()
	values := make([]reflect.Value, len(deps))
	for i, d := range deps {
		v, err := c.resolveDependency(r, rctx, d)
		if err != nil {
			return reflect.Value{}, errors.Wrapf(err, "dependency %s of %s", d, mapped)
		}
		values[i] = v
	}

	inst, err := s.Build(values)
	if err != nil {
		return reflect.Value{}, err
	}
	inst = dynamic(inst)
	if !inst.IsValid() {
		return reflect.Value{}, configError(mapped, "%s strategy built no value", s.Kind())
	}

	out, err := c.pipeline.postConstruct(inst, rctx)
	if err != nil {
		return reflect.Value{}, err
	}
	out = dynamic(out)
	if !out.Type().AssignableTo(mapped) {
		return reflect.Value{}, configError(mapped, "post-construct produced %s", out.Type())
	}

	c.log.Debug("instance constructed",
		zap.Stringer("type", mapped),
		zap.Stringer("strategy", s.Kind()),
		zap.Stringer("kind", ctx.Kind()))
	return out, nil
}

// resolveDependency asks the value resolvers first and falls back to a
// nested Dependency request for the declared type.
func (c *Container) resolveDependency(r *resolution, ctx *ResolvedContext, d metadata.Descriptor) (reflect.Value, error) {
	v, ok, err := c.pipeline.resolveValue(ctx, d)
	if err != nil {
		return reflect.Value{}, err
	}
	if ok {
		return v, nil
	}
	return c.resolve(r, d.Type, Dependency)
}

func (c *Container) fromRegistry(r *resolution, e *registryEntry, kind ResolutionKind) (reflect.Value, error) {
	if e.kind == instanceEntry {
		return e.value, nil
	}

	if err := r.push(e.target); err != nil {
		return reflect.Value{}, err
	}
	defer r.pop()

	if !kind.cached() {
		return c.produce(r, e)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return e.product, nil
	}
	v, err := c.produce(r, e)
	if err != nil {
		return reflect.Value{}, err
	}
	e.product, e.done = v, true
	return v, nil
}

func (c *Container) produce(r *resolution, e *registryEntry) (reflect.Value, error) {
	fn := e.provider
	member := e.kind.String()
	if e.kind == providerTypeEntry {
		pv, err := c.resolve(r, e.providerType, Dependency)
		if err != nil {
			return reflect.Value{}, errors.Wrapf(err, "provider %s for %s", e.providerType, e.target)
		}
		fn = pv.MethodByName(ProviderMethod)
		if !fn.IsValid() {
			return reflect.Value{}, configError(e.target, "provider %s resolved to %s without %s method", e.providerType, pv.Type(), ProviderMethod)
		}
		member = e.providerType.String() + "." + ProviderMethod
	}

	out, err := c.meta.Invoke(fn, nil)
	if err != nil {
		return reflect.Value{}, &ReflectError{Type: e.target, Member: member, Cause: err}
	}
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, &ReflectError{Type: e.target, Member: member, Cause: out[1].Interface().(error)}
	}

	v := dynamic(out[0])
	if v.Kind() == reflect.Interface {
		// nil interface result
		return reflect.Zero(e.target), nil
	}
	if !v.Type().AssignableTo(e.target) {
		return reflect.Value{}, configError(e.target, "provider returned %s", v.Type())
	}
	c.log.Debug("provider invoked", zap.Stringer("type", e.target), zap.String("provider", member))
	return v, nil
}
