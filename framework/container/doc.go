// Package container is a reflection-driven dependency-injection container.
//
// # Overview
//
// Given a requested type, the container builds a fully wired object graph:
// it consults the provider registry, lets the handler pipeline remap the
// type, picks an instantiation strategy, resolves each dependency
// depth-first and caches singletons. Reflective inspection is delegated to a
// metadata.Service (by default a *metadata.Reflector).
//
// # Container Lifecycle
//
//  1. Create: c, err := container.New(container.WithHandlers(handlers.Defaults("example.com/app")...))
//  2. Register constructors, instances and providers (or Modules)
//  3. Resolve: container.Resolve[*App](c)
//
// # Strategies
//
//	// Constructor injection: exactly one constructor marked as injection point
//	c.Constructor(NewUserRepository, metadata.InjectionPoint())
//
//	// Field injection: a no-arg constructor (or zero value) plus tagged fields
//	type UserController struct {
//	    Repo   *UserRepository `inject:""`
//	    Greets []Greeter       `inject:"all"`
//	    Port   int             `inject:"marker=port"`
//	}
//
//	// Opt out of field scanning
//	type Plain struct {
//	    _ struct{} `inject:"nofields"`
//	}
//
// # Resolving
//
//	// Shared instance, cached per concrete type
//	repo, err := container.Resolve[*UserRepository](c)
//
//	// Fresh instance; its dependencies are still shared
//	ctl, err := container.Make[*UserController](c)
//
// # Registry
//
//	// Pre-built value
//	c.Instance(container.TypeOf[*Config](), cfg)
//
//	// Provider function, object with a Get method, or provider type
//	c.Provide(container.TypeOf[*sql.DB](), func() (*sql.DB, error) { ... })
//	c.ProvideType(container.TypeOf[Clock](), container.TypeOf[*ClockProvider]())
//
// Registry entries take precedence over every other resolution path.
//
// # Handlers
//
// The pipeline is the only extension mechanism. A handler implements any
// of PreConstructHandler, StrategyProvider, ValueResolver,
// PostConstructHandler and ProvidedValueHandler. See package handlers for
// the stock set.
//
// # Modules
//
//	modules := container.NewModules(c)
//	modules.Register(&StorageModule{})
//	modules.Boot()
package container
