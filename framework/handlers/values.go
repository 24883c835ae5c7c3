package handlers

import (
	"reflect"

	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/metadata"
)

var errorType = reflect.TypeFor[error]()

// ── Lazy ──────────────────────────────────────────────────────────────────────

// Lazy satisfies dependencies of shape func() (T, error) with a closure
// that builds a fresh T on every call. A type registered explicitly for the
// func type itself keeps precedence. Calls made while the consumer is still
// being built count as part of its resolution, so a cycle back to it fails
// instead of blocking.
type Lazy struct{}

// ProviderTarget returns T for a func() (T, error) type.
func ProviderTarget(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Func || t.IsVariadic() || t.NumIn() != 0 || t.NumOut() != 2 || t.Out(1) != errorType {
		return nil, false
	}
	return t.Out(0), true
}

// ResolveValue implements container.ValueResolver.
func (Lazy) ResolveValue(ctx *container.ResolvedContext, d metadata.Descriptor) (reflect.Value, bool, error) {
	target, ok := ProviderTarget(d.Type)
	if !ok {
		return reflect.Value{}, false, nil
	}
	if ctx.Container().Bound(d.Type) {
		return reflect.Value{}, false, nil
	}

	fn := reflect.MakeFunc(d.Type, func([]reflect.Value) []reflect.Value {
		out := reflect.New(target).Elem()
		errOut := reflect.New(errorType).Elem()
		v, err := ctx.NewInstance(target)
		if err != nil {
			errOut.Set(reflect.ValueOf(&err).Elem())
			return []reflect.Value{out, errOut}
		}
		if v != nil {
			out.Set(reflect.ValueOf(v))
		}
		return []reflect.Value{out, errOut}
	})
	return fn, true, nil
}

// ── All ───────────────────────────────────────────────────────────────────────

// All satisfies `inject:"all"` slice dependencies with every known
// singleton assignable to the element type.
type All struct{}

// ResolveValue implements container.ValueResolver.
func (All) ResolveValue(ctx *container.ResolvedContext, d metadata.Descriptor) (reflect.Value, bool, error) {
	if !d.Annotations.Has(metadata.All) {
		return reflect.Value{}, false, nil
	}
	if d.Type.Kind() != reflect.Slice {
		return reflect.Value{}, false, &container.AnnotationError{
			Annotation: metadata.All.String(),
			Type:       ctx.MappedType(),
			Member:     d.Owner.String(),
			Reason:     "requires a slice type, got " + d.Type.String(),
		}
	}
	values := ctx.Container().AssignableValues(d.Type.Elem())
	out := reflect.MakeSlice(d.Type, 0, len(values))
	for _, v := range values {
		out = reflect.Append(out, v)
	}
	return out, true, nil
}
