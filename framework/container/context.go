package container

import "reflect"

// ResolutionKind tells why a type is being resolved.
type ResolutionKind int

const (
	// Singleton results are cached per concrete type and reused.
	Singleton ResolutionKind = iota + 1
	// RequestScoped always constructs a fresh instance.
	RequestScoped
	// Dependency is a nested request made on behalf of another type. It
	// follows the container default and is cached like Singleton.
	Dependency
)

func (k ResolutionKind) String() string {
	switch k {
	case Singleton:
		return "singleton"
	case RequestScoped:
		return "request-scoped"
	case Dependency:
		return "dependency"
	default:
		return "unknown"
	}
}

func (k ResolutionKind) cached() bool {
	return k == Singleton || k == Dependency
}

// Context is the unresolved state of one resolution: the requested type
// and, after pre-construct handlers ran, the concrete type to build.
type Context struct {
	container *Container
	res       *resolution
	kind      ResolutionKind
	original  reflect.Type
	mapped    reflect.Type
}

func newContext(c *Container, r *resolution, kind ResolutionKind, t reflect.Type) *Context {
	return &Context{container: c, res: r, kind: kind, original: t, mapped: t}
}

// Container returns the container running the resolution.
func (ctx *Context) Container() *Container { return ctx.container }

// Kind returns the resolution kind.
func (ctx *Context) Kind() ResolutionKind { return ctx.kind }

// OriginalType returns the type that was requested.
func (ctx *Context) OriginalType() reflect.Type { return ctx.original }

// MappedType returns the type that will be constructed.
func (ctx *Context) MappedType() reflect.Type { return ctx.mapped }

// MapTo remaps the type to construct. t must be the original type or
// assignable to it; otherwise the mapping is left unchanged and a
// *ConfigError is returned.
func (ctx *Context) MapTo(t reflect.Type) error {
	if t == nil {
		return configError(ctx.original, "cannot map to a nil type")
	}
	if t != ctx.original && !t.AssignableTo(ctx.original) {
		return configError(ctx.original, "cannot map to %s: not assignable to %s", t, ctx.original)
	}
	ctx.mapped = t
	return nil
}

func (ctx *Context) resolve(s Strategy) *ResolvedContext {
	return &ResolvedContext{
		container: ctx.container,
		res:       ctx.res,
		kind:      ctx.kind,
		original:  ctx.original,
		mapped:    ctx.mapped,
		strategy:  s,
	}
}

// construction is the context an instance of the mapped type is built
// under. Its requested type is the mapped type; handlers keyed on a
// remapped requested type see the instance later, with Reused set.
func (ctx *Context) construction(s Strategy) *ResolvedContext {
	rctx := ctx.resolve(s)
	rctx.original = ctx.mapped
	return rctx
}

// handout is the context for passing an already built instance v of the
// mapped type through post-construct handlers for the requested type.
func (ctx *Context) handout(v reflect.Value) *ResolvedContext {
	rctx := ctx.resolve(&instanceStrategy{value: v})
	rctx.reused = true
	return rctx
}

// ResolvedContext is a Context frozen after a strategy was chosen.
type ResolvedContext struct {
	container *Container
	res       *resolution
	kind      ResolutionKind
	original  reflect.Type
	mapped    reflect.Type
	strategy  Strategy
	reused    bool
}

func (ctx *ResolvedContext) Container() *Container      { return ctx.container }
func (ctx *ResolvedContext) Kind() ResolutionKind       { return ctx.kind }
func (ctx *ResolvedContext) OriginalType() reflect.Type { return ctx.original }
func (ctx *ResolvedContext) MappedType() reflect.Type   { return ctx.mapped }
func (ctx *ResolvedContext) Strategy() Strategy         { return ctx.strategy }

// Reused reports whether the instance was built earlier and is now being
// handed out under a remapped requested type. Handlers that act once per
// instance, such as lifecycle hooks, skip reused instances.
func (ctx *ResolvedContext) Reused() bool { return ctx.reused }

// NewInstance builds a fresh instance of t as a nested request of this
// resolution. A cycle back to a type still under construction here fails
// with ErrCircularDependency instead of waiting for it.
func (ctx *ResolvedContext) NewInstance(t reflect.Type) (any, error) {
	return ctx.container.get(&resolution{parent: ctx.res}, t, RequestScoped)
}
