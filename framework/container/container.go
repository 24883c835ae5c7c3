package container

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/metadata"
)

// ── Options ───────────────────────────────────────────────────────────────────

// Option configures a Container.
type Option func(*options)

type options struct {
	handlers []any
	meta     metadata.Service
	logger   *zap.Logger
}

// WithHandlers appends handlers to the pipeline, in order.
func WithHandlers(handlers ...any) Option {
	return func(o *options) { o.handlers = append(o.handlers, handlers...) }
}

// WithMetadata replaces the default *metadata.Reflector.
func WithMetadata(meta metadata.Service) Option {
	return func(o *options) { o.meta = meta }
}

// WithLogger sets the logger used for resolution events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container builds object graphs for requested types.
//
// It owns:
//   - an immutable handler pipeline (the only extension point)
//   - a Store holding one instance per concrete type for singleton scope
//   - a registry of explicit instances and providers that bypass default
//     construction
//
// A Container is safe for concurrent use.
type Container struct {
	meta     metadata.Service
	pipeline *pipeline
	store    *Store
	views    *views
	registry *registry
	log      *zap.Logger
}

// New creates a container with the given handler pipeline. Every handler
// must implement at least one capability interface.
func New(opts ...Option) (*Container, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meta == nil {
		o.meta = metadata.NewReflector()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	p, err := newPipeline(o.handlers)
	if err != nil {
		return nil, err
	}

	c := &Container{
		meta:     o.meta,
		pipeline: p,
		store:    NewStore(),
		views:    newViews(),
		registry: newRegistry(),
		log:      o.logger,
	}
	// the container can be injected into the objects it builds
	if err := c.Instance(TypeOf[*Container](), c); err != nil {
		return nil, err
	}
	c.log.Debug("container created", zap.Int("handlers", len(p.handlers)))
	return c, nil
}

// Metadata returns the metadata service used by the container.
func (c *Container) Metadata() metadata.Service { return c.meta }

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger { return c.log }

// Handlers returns the pipeline handlers in order.
func (c *Container) Handlers() []any { return append([]any(nil), c.pipeline.handlers...) }

// ── Registration ──────────────────────────────────────────────────────────────

type constructorRegistrar interface {
	Register(fn any, opts ...metadata.ConstructorOption) error
}

// Constructor registers a constructor function with the metadata service.
//
//	c.Constructor(NewUserRepository, metadata.InjectionPoint())
func (c *Container) Constructor(fn any, opts ...metadata.ConstructorOption) error {
	reg, ok := c.meta.(constructorRegistrar)
	if !ok {
		return errors.Errorf("metadata service %T does not accept constructors", c.meta)
	}
	return reg.Register(fn, opts...)
}

// Instance registers a pre-built value for t. It replaces any earlier
// registration for t.
//
//	c.Instance(container.TypeOf[*Config](), cfg)
func (c *Container) Instance(t reflect.Type, value any) error {
	e, err := newInstanceEntry(t, value)
	if err != nil {
		return err
	}
	c.registry.put(e)
	c.log.Debug("instance registered", zap.Stringer("type", t))
	return nil
}

// Provide registers a provider for t: a func() T, a func() (T, error), an
// object with such a Get method, or a reflect.Type of a provider to be
// built by the container (see ProvideType).
func (c *Container) Provide(t reflect.Type, provider any) error {
	e, err := newProviderEntry(t, provider)
	if err != nil {
		return err
	}
	c.registry.put(e)
	c.log.Debug("provider registered", zap.Stringer("type", t), zap.Stringer("entry", e.kind))
	return nil
}

// ProvideType registers provider type pt for t. The provider is itself
// resolved through the container, so it may have injected dependencies,
// and its Get method produces the value.
func (c *Container) ProvideType(t, pt reflect.Type) error {
	e, err := newProviderTypeEntry(t, pt)
	if err != nil {
		return err
	}
	c.registry.put(e)
	c.log.Debug("provider type registered", zap.Stringer("type", t), zap.Stringer("provider", pt))
	return nil
}

// ProvideExternal hands a value identified by a marker name to the
// provided-value handlers.
func (c *Container) ProvideExternal(marker string, value any) error {
	if err := c.pipeline.provideValue(marker, value); err != nil {
		return err
	}
	c.log.Debug("external value provided", zap.String("marker", marker))
	return nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// GetSingleton returns the shared instance for t, building it on first use.
func (c *Container) GetSingleton(t reflect.Type) (any, error) {
	return c.get(&resolution{}, t, Singleton)
}

// NewInstance builds a fresh instance of t. Its dependencies are shared
// singletons.
func (c *Container) NewInstance(t reflect.Type) (any, error) {
	return c.get(&resolution{}, t, RequestScoped)
}

func (c *Container) get(r *resolution, t reflect.Type, kind ResolutionKind) (any, error) {
	v, err := c.resolve(r, t, kind)
	if err != nil {
		c.log.Debug("resolution failed", zap.Stringer("type", t), zap.Stringer("kind", kind), zap.Error(err))
		return nil, &ResolutionError{Type: t, Kind: kind, Err: err}
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

// InjectInto injects the tagged fields of an existing object (a non-nil
// pointer to struct) and runs post-construct handlers on it. Every tagged
// field must still be zero.
func (c *Container) InjectInto(target any) error {
	v := reflect.ValueOf(target)
	if !v.IsValid() {
		return &ResolutionError{Kind: RequestScoped, Err: &ConfigError{Reason: "invalid injection target", Cause: ErrNotPointer}}
	}
	t := v.Type()
	if err := c.injectInto(v); err != nil {
		return &ResolutionError{Type: t, Kind: RequestScoped, Err: err}
	}
	return nil
}

func (c *Container) injectInto(v reflect.Value) error {
	t := v.Type()
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct || v.IsNil() {
		return &ConfigError{Type: t, Reason: "invalid injection target", Cause: ErrNotPointer}
	}
	fields, err := c.meta.InjectableFields(t)
	if err != nil {
		return err
	}
	if err := checkUnset(t, v, fields); err != nil {
		return err
	}

	r := &resolution{}
	ctx := newContext(c, r, RequestScoped, t).resolve(&instanceStrategy{value: v})
	values := make([]reflect.Value, len(fields))
	for i, f := range fields {
		fv, err := c.resolveDependency(r, ctx, f.Descriptor)
		if err != nil {
			return errors.Wrapf(err, "dependency %s of %s", f.Descriptor, t)
		}
		values[i] = fv
	}
	if err := setFields(c.meta, t, v, fields, values); err != nil {
		return err
	}
	// the caller keeps its object; replacements are ignored
	_, err = c.pipeline.postConstruct(v, ctx)
	return err
}

// AllAssignableTo returns every known singleton assignable to t: stored
// instances first, then registered instances and provider products, with
// duplicates removed.
func (c *Container) AllAssignableTo(t reflect.Type) []any {
	values := c.allAssignableTo(t)
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v.Interface()
	}
	return out
}

func (c *Container) allAssignableTo(t reflect.Type) []reflect.Value {
	all := append(c.store.AllAssignableTo(t), c.registry.products(t)...)
	out := make([]reflect.Value, 0, len(all))
	for _, v := range all {
		if containsValue(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsValue(values []reflect.Value, v reflect.Value) bool {
	if !v.Comparable() {
		return false
	}
	for _, o := range values {
		if o.Type() == v.Type() && o.Comparable() && o.Equal(v) {
			return true
		}
	}
	return false
}

// AssignableValues is AllAssignableTo for handlers working with reflect values.
func (c *Container) AssignableValues(t reflect.Type) []reflect.Value {
	return c.allAssignableTo(t)
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Bound reports whether an instance or provider is registered for t.
func (c *Container) Bound(t reflect.Type) bool {
	_, ok := c.registry.lookup(t)
	return ok
}

// Resolved reports whether a singleton for t has been built or registered.
// For a type remapped by a pre-construct handler this is true once t itself
// was requested; building the mapped type directly does not count, since
// Resolved does not run the pipeline.
func (c *Container) Resolved(t reflect.Type) bool {
	if _, ok := c.store.Get(t); ok {
		return true
	}
	if c.views.Has(t) {
		return true
	}
	if e, ok := c.registry.lookup(t); ok {
		_, done := e.cachedProduct()
		return done
	}
	return false
}

// Singletons returns the concrete types held in the scope store, in
// construction order.
func (c *Container) Singletons() []reflect.Type {
	return c.store.Types()
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// TypeOf returns the reflect.Type of T, including interface types.
//
//	container.TypeOf[Greeter]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Resolve returns the singleton of T.
//
//	repo, err := container.Resolve[*UserRepository](c)
func Resolve[T any](c *Container) (T, error) {
	v, err := c.GetSingleton(TypeOf[T]())
	return cast[T](v, err)
}

// Make returns a fresh instance of T.
func Make[T any](c *Container) (T, error) {
	v, err := c.NewInstance(TypeOf[T]())
	return cast[T](v, err)
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(fmt.Sprintf("container: MustResolve[%s]: %v", TypeOf[T](), err))
	}
	return v
}

// Bind registers value as the instance of T.
func Bind[T any](c *Container, value T) error {
	return c.Instance(TypeOf[T](), value)
}

// Supply registers a provider of T.
func Supply[T any](c *Container, provider any) error {
	return c.Provide(TypeOf[T](), provider)
}

func cast[T any](v any, err error) (T, error) {
	var zero T
	if err != nil || v == nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, configError(TypeOf[T](), "resolved to %T", v)
	}
	return typed, nil
}
