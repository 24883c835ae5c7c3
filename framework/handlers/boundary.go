package handlers

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/km-arc/go-inject/framework/container"
)

// PackageBoundary rejects types the container should not construct on its
// own: built-in scalars, arrays/slices/maps and types declared outside the
// allowed package root. Registered instances and providers never reach it,
// and types reported by Exempt are let through.
type PackageBoundary struct {
	root   string
	exempt []func(reflect.Type) bool
}

// NewPackageBoundary allows types declared in root or any package below it.
func NewPackageBoundary(root string) *PackageBoundary {
	return &PackageBoundary{root: strings.TrimSuffix(root, "/")}
}

// Exempt lets through every type for which fn reports true, such as types
// with an explicit factory.
func (b *PackageBoundary) Exempt(fn func(reflect.Type) bool) *PackageBoundary {
	b.exempt = append(b.exempt, fn)
	return b
}

// Root returns the allowed package root.
func (b *PackageBoundary) Root() string { return b.root }

// PreConstruct implements container.PreConstructHandler.
func (b *PackageBoundary) PreConstruct(ctx *container.Context) error {
	t := ctx.MappedType()
	for _, fn := range b.exempt {
		if fn(t) {
			return nil
		}
	}
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	switch base.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.UnsafePointer:
		return &container.ConfigError{Type: t, Reason: "primitive type", Cause: container.ErrPrimitive}
	case reflect.Array, reflect.Slice, reflect.Map:
		return &container.ConfigError{Type: t, Reason: "array type", Cause: container.ErrArray}
	}

	if !b.allows(base.PkgPath()) {
		return &container.ConfigError{
			Type:   t,
			Reason: fmt.Sprintf("package %q is not within %q", base.PkgPath(), b.root),
			Cause:  container.ErrOutsideBoundary,
		}
	}
	return nil
}

func (b *PackageBoundary) allows(pkg string) bool {
	if pkg == "" {
		return false
	}
	return b.root == "" || pkg == b.root || strings.HasPrefix(pkg, b.root+"/")
}
