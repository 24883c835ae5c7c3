package handlers

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/metadata"
)

// Markers keeps externally provided values by marker name and hands them to
// dependencies tagged `inject:"marker=<name>"`.
//
// String values are coerced to the declared type with YAML scalar rules, so
// values loaded from the environment or a config file ("8080", "true",
// "1.5", "30s") fill int, bool, float and time.Duration dependencies.
type Markers struct {
	mu     sync.RWMutex
	values map[string]reflect.Value
}

// NewMarkers returns an empty Markers handler.
func NewMarkers() *Markers {
	return &Markers{values: make(map[string]reflect.Value)}
}

// ProvideValue implements container.ProvidedValueHandler. A later value for
// the same marker replaces the earlier one.
func (m *Markers) ProvideValue(marker string, value any) (bool, error) {
	if marker == "" {
		return false, &container.ConfigError{Reason: "empty marker name"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[marker] = reflect.ValueOf(value)
	return true, nil
}

// Names returns the provided marker names, sorted.
func (m *Markers) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.values))
	for k := range m.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ResolveValue implements container.ValueResolver.
func (m *Markers) ResolveValue(ctx *container.ResolvedContext, d metadata.Descriptor) (reflect.Value, bool, error) {
	a, ok := d.Annotations.Get(metadata.Marker)
	if !ok {
		return reflect.Value{}, false, nil
	}

	m.mu.RLock()
	v, ok := m.values[a.Value]
	m.mu.RUnlock()
	if !ok {
		return reflect.Value{}, false, &container.ConfigError{
			Type:   ctx.MappedType(),
			Reason: fmt.Sprintf("no value provided for marker %q (%s)", a.Value, d.Owner),
		}
	}
	if !v.IsValid() {
		return reflect.Zero(d.Type), true, nil
	}
	if v.Type().AssignableTo(d.Type) {
		return v, true, nil
	}
	if v.Kind() == reflect.String {
		out, err := coerce(v.String(), d.Type)
		if err != nil {
			return reflect.Value{}, false, &container.ConfigError{
				Type:   ctx.MappedType(),
				Reason: fmt.Sprintf("marker %q: cannot use %q as %s", a.Value, v.String(), d.Type),
				Cause:  err,
			}
		}
		return out, true, nil
	}
	return reflect.Value{}, false, &container.ConfigError{
		Type:   ctx.MappedType(),
		Reason: fmt.Sprintf("marker %q holds %s, not assignable to %s", a.Value, v.Type(), d.Type),
	}
}

func coerce(s string, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t)
	if err := yaml.Unmarshal([]byte(s), out.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}
