package container

import (
	"reflect"
	"sync"
)

// ProviderMethod is the method a provider object must expose.
const ProviderMethod = "Get"

type entryKind int

const (
	instanceEntry entryKind = iota + 1
	providerEntry
	providerTypeEntry
)

func (k entryKind) String() string {
	switch k {
	case instanceEntry:
		return "instance"
	case providerEntry:
		return "provider"
	case providerTypeEntry:
		return "provider type"
	default:
		return "unknown"
	}
}

// registryEntry overrides default construction for one requested type.
type registryEntry struct {
	kind   entryKind
	target reflect.Type

	value        reflect.Value // instanceEntry
	provider     reflect.Value // providerEntry: func or bound Get method
	providerType reflect.Type  // providerTypeEntry

	// product caches the provider result for singleton requests.
	mu      sync.Mutex
	done    bool
	product reflect.Value
}

func (e *registryEntry) cachedProduct() (reflect.Value, bool) {
	if e.kind == instanceEntry {
		return e.value, true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.product, e.done
}

// registry holds explicit instances and providers, keyed by requested type.
// Re-registration replaces the previous entry.
type registry struct {
	mu      sync.RWMutex
	entries map[reflect.Type]*registryEntry
	order   []reflect.Type
}

func newRegistry() *registry {
	return &registry{entries: make(map[reflect.Type]*registryEntry)}
}

func (r *registry) put(e *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.target]; !exists {
		r.order = append(r.order, e.target)
	}
	r.entries[e.target] = e
}

func (r *registry) lookup(t reflect.Type) (*registryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[t]
	return e, ok
}

// products returns registered instances and already produced provider
// values assignable to t, in registration order.
func (r *registry) products(t reflect.Type) []reflect.Value {
	r.mu.RLock()
	entries := make([]*registryEntry, 0, len(r.order))
	for _, key := range r.order {
		entries = append(entries, r.entries[key])
	}
	r.mu.RUnlock()

	var out []reflect.Value
	for _, e := range entries {
		v, ok := e.cachedProduct()
		if !ok || !v.IsValid() {
			continue
		}
		v = dynamic(v)
		if v.Type().AssignableTo(t) {
			out = append(out, v)
		}
	}
	return out
}

// ── validation ────────────────────────────────────────────────────────────────

func newInstanceEntry(t reflect.Type, value any) (*registryEntry, error) {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return &registryEntry{kind: instanceEntry, target: t, value: reflect.Zero(t)}, nil
	}
	if !v.Type().AssignableTo(t) {
		return nil, configError(t, "instance of %s is not assignable", v.Type())
	}
	return &registryEntry{kind: instanceEntry, target: t, value: v}, nil
}

func newProviderEntry(t reflect.Type, provider any) (*registryEntry, error) {
	if pt, ok := provider.(reflect.Type); ok {
		return newProviderTypeEntry(t, pt)
	}
	v := reflect.ValueOf(provider)
	if !v.IsValid() {
		return nil, configError(t, "provider is nil")
	}
	fn := v
	if v.Kind() != reflect.Func {
		fn = v.MethodByName(ProviderMethod)
		if !fn.IsValid() {
			return nil, configError(t, "provider %s has no %s method", v.Type(), ProviderMethod)
		}
	} else if v.IsNil() {
		return nil, configError(t, "provider is nil")
	}
	if err := checkProviderSignature(t, fn.Type(), 0); err != nil {
		return nil, err
	}
	return &registryEntry{kind: providerEntry, target: t, provider: fn}, nil
}

func newProviderTypeEntry(t, pt reflect.Type) (*registryEntry, error) {
	if pt == nil {
		return nil, configError(t, "provider type is nil")
	}
	m, ok := pt.MethodByName(ProviderMethod)
	if !ok {
		return nil, configError(t, "provider type %s has no %s method", pt, ProviderMethod)
	}
	// method expressions take the receiver first
	if err := checkProviderSignature(t, m.Type, 1); err != nil {
		return nil, err
	}
	return &registryEntry{kind: providerTypeEntry, target: t, providerType: pt}, nil
}

var errorType = reflect.TypeFor[error]()

func checkProviderSignature(t, fn reflect.Type, receivers int) error {
	switch {
	case fn.NumIn() > receivers:
		return configError(t, "provider method declares %d parameters", fn.NumIn()-receivers)
	case fn.NumOut() == 0:
		return configError(t, "provider method returns nothing")
	case fn.NumOut() > 2:
		return configError(t, "provider method must return (T) or (T, error)")
	case fn.NumOut() == 2 && fn.Out(1) != errorType:
		return configError(t, "provider method's second result must be error")
	}
	out := fn.Out(0)
	if out.Kind() != reflect.Interface && !out.AssignableTo(t) {
		return configError(t, "provider returns %s", out)
	}
	return nil
}
