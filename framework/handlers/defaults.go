package handlers

// Set is the stock handler pipeline with its configurable handlers exposed,
// so callers can add bindings, markers and rules after the container exists.
type Set struct {
	Bindings   *Bindings
	Boundary   *PackageBoundary // nil when every package is allowed
	Factories  *Factories
	Contextual *Contextual
	Markers    *Markers
	Decorators *Decorators
}

// NewSet builds a Set. An empty allowedPackage disables the package
// boundary.
func NewSet(allowedPackage string) *Set {
	s := &Set{
		Bindings:   NewBindings(),
		Factories:  NewFactories(),
		Contextual: NewContextual(),
		Markers:    NewMarkers(),
		Decorators: NewDecorators(),
	}
	if allowedPackage != "" {
		s.Boundary = NewPackageBoundary(allowedPackage).Exempt(s.Factories.Has)
	}
	return s
}

// Handlers returns the pipeline in order:
//
//	pre-construct   Bindings, PackageBoundary
//	strategy        Factories
//	value           Contextual, Markers, All, Lazy
//	post-construct  PostConstruct, Decorators
func (s *Set) Handlers() []any {
	out := []any{s.Bindings}
	if s.Boundary != nil {
		out = append(out, s.Boundary)
	}
	return append(out,
		s.Factories,
		s.Contextual,
		s.Markers,
		All{},
		Lazy{},
		PostConstruct{},
		s.Decorators,
	)
}

// Defaults returns the stock pipeline for allowedPackage.
func Defaults(allowedPackage string) []any {
	return NewSet(allowedPackage).Handlers()
}
