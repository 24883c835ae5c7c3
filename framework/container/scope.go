package container

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Store holds one instance per concrete type for singleton scope. Entries
// are write-once and kept in construction order.
type Store struct {
	mu      sync.RWMutex
	entries map[reflect.Type]reflect.Value
	order   []reflect.Type

	// locks serialises construction per type so a supplier runs at most
	// once even when several goroutines miss the cache together.
	locks sync.Map // reflect.Type -> *sync.Mutex
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[reflect.Type]reflect.Value)}
}

// Get returns the instance stored for t.
func (s *Store) Get(t reflect.Type) (reflect.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[t]
	return v, ok
}

// GetOrCreate returns the instance stored for t, calling supplier to build
// it on a miss. Concurrent callers for the same t wait for the first one;
// only one supplier call completes per type. A failing supplier stores
// nothing, so a later call may try again.
func (s *Store) GetOrCreate(t reflect.Type, supplier func() (reflect.Value, error)) (reflect.Value, bool, error) {
	if v, ok := s.Get(t); ok {
		return v, true, nil
	}

	lock, _ := s.locks.LoadOrStore(t, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	// another caller may have finished while we waited
	if v, ok := s.Get(t); ok {
		return v, true, nil
	}

	v, err := supplier()
	if err != nil {
		return reflect.Value{}, false, err
	}

	s.mu.Lock()
	s.entries[t] = v
	s.order = append(s.order, t)
	s.mu.Unlock()
	return v, false, nil
}

// AllAssignableTo returns every stored instance whose dynamic type is
// assignable to t, in construction order.
func (s *Store) AllAssignableTo(t reflect.Type) []reflect.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []reflect.Value
	for _, key := range s.order {
		v := s.entries[key]
		if v.IsValid() && v.Type().AssignableTo(t) {
			out = append(out, v)
		}
	}
	return out
}

// Types returns the keys of the stored instances in construction order.
func (s *Store) Types() []reflect.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]reflect.Type(nil), s.order...)
}

// Len returns the number of stored instances.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// views caches what a stored instance looks like when it is handed out
// under a remapped requested type. Entries are keyed on the requested and
// the mapped type, so a rebinding of the requested type gets a fresh view.
// Views are not singletons of their own: Types and AllAssignableTo of the
// Store never see them.
type views struct {
	mu      sync.Mutex
	entries map[viewKey]*view
}

type viewKey struct {
	requested, mapped reflect.Type
}

type view struct {
	mu    sync.Mutex
	value reflect.Value
	done  atomic.Bool
}

func newViews() *views {
	return &views{entries: make(map[viewKey]*view)}
}

// GetOrCreate returns the view of mapped under requested, calling supplier
// on the first request. A failing supplier stores nothing.
func (vs *views) GetOrCreate(requested, mapped reflect.Type, supplier func() (reflect.Value, error)) (reflect.Value, error) {
	k := viewKey{requested: requested, mapped: mapped}
	vs.mu.Lock()
	e, ok := vs.entries[k]
	if !ok {
		e = &view{}
		vs.entries[k] = e
	}
	vs.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done.Load() {
		return e.value, nil
	}
	v, err := supplier()
	if err != nil {
		return reflect.Value{}, err
	}
	e.value = v
	e.done.Store(true)
	return v, nil
}

// Has reports whether a view under requested has been built.
func (vs *views) Has(requested reflect.Type) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	for k, e := range vs.entries {
		if k.requested == requested && e.done.Load() {
			return true
		}
	}
	return false
}
