package metadata

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
)

var errorType = reflect.TypeFor[error]()

// Post-construct method names. A type may declare one of them, not both.
const (
	PostConstructMethod = "PostConstruct"
	InitializeMethod    = "Initialize"
)

// ConstructorOption configures a constructor registration.
type ConstructorOption func(*constructorConfig)

type constructorConfig struct {
	inject bool
	tags   []string
}

// InjectionPoint marks the constructor as the one the container must use.
func InjectionPoint() ConstructorOption {
	return func(c *constructorConfig) { c.inject = true }
}

// ParamTags attaches `inject` tag values to the constructor's parameters,
// by position. Missing positions default to a plain dependency.
func ParamTags(tags ...string) ConstructorOption {
	return func(c *constructorConfig) { c.tags = tags }
}

// Reflector is the default Service. Constructors are registered
// explicitly; fields, annotations and hooks are read from struct
// definitions and cached per type.
type Reflector struct {
	mu    sync.RWMutex
	ctors map[reflect.Type][]Constructor

	fields sync.Map // reflect.Type -> fieldScan
	hooks  sync.Map // reflect.Type -> hookScan
}

type fieldScan struct {
	fields []Field
	err    error
}

type hookScan struct {
	hooks []Hook
	err   error
}

// NewReflector returns an empty Reflector.
func NewReflector() *Reflector {
	return &Reflector{ctors: make(map[reflect.Type][]Constructor)}
}

// Register adds a constructor for its first return type. The function must
// have the signature func(deps...) T or func(deps...) (T, error).
func (r *Reflector) Register(fn any, opts ...ConstructorOption) error {
	if fn == nil {
		return errors.New("metadata: constructor must be a function")
	}
	val := reflect.ValueOf(fn)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return errors.New("metadata: constructor must be a function")
	}
	if typ.IsVariadic() {
		return errors.Errorf("metadata: constructor %s must not be variadic", funcName(val))
	}
	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return errors.Errorf("metadata: constructor %s must return (T) or (T, error)", funcName(val))
	}
	if typ.NumOut() == 2 && !typ.Out(1).Implements(errorType) {
		return errors.Errorf("metadata: constructor %s: second return value must implement error", funcName(val))
	}

	cfg := constructorConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.tags) > typ.NumIn() {
		return errors.Errorf("metadata: constructor %s has %d parameters but %d tags", funcName(val), typ.NumIn(), len(cfg.tags))
	}

	name := funcName(val)
	ctor := Constructor{
		Fn:       val,
		Out:      typ.Out(0),
		Inject:   cfg.inject,
		HasError: typ.NumOut() == 2,
		Params:   make([]Descriptor, typ.NumIn()),
	}
	for i := 0; i < typ.NumIn(); i++ {
		tag := ""
		if i < len(cfg.tags) {
			tag = cfg.tags[i]
		}
		member := Member{Kind: MemberConstructor, Owner: ctor.Out, Name: name, Index: []int{i}}
		set, err := r.parseMemberTag(tag, typ.In(i), member)
		if err != nil {
			return err
		}
		ctor.Params[i] = Descriptor{Type: typ.In(i), Annotations: set, Owner: member}
	}

	r.mu.Lock()
	r.ctors[ctor.Out] = append(r.ctors[ctor.Out], ctor)
	r.mu.Unlock()
	return nil
}

func (r *Reflector) parseMemberTag(tag string, t reflect.Type, m Member) (Annotations, error) {
	set, err := ParseTag(tag)
	if err != nil {
		var ae *AnnotationError
		if errors.As(err, &ae) {
			ae.Type = m.Owner
			ae.Member = m.String()
		}
		return Annotations{}, err
	}
	if set.Has(NoFields) {
		return Annotations{}, &AnnotationError{Annotation: "nofields", Type: m.Owner, Member: m.String(), Reason: "only allowed on a blank field"}
	}
	if set.Has(All) && t.Kind() != reflect.Slice {
		return Annotations{}, &AnnotationError{Annotation: "all", Type: m.Owner, Member: m.String(), Reason: "requires a slice type, got " + t.String()}
	}
	return set, nil
}

// Constructors returns the constructors registered for t.
func (r *Reflector) Constructors(t reflect.Type) []Constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctors := r.ctors[t]
	out := make([]Constructor, len(ctors))
	copy(out, ctors)
	return out
}

// InjectableFields returns the `inject`-tagged fields of a pointer-to-struct
// type, including fields promoted from embedded structs. Types annotated
// with `nofields` report none.
func (r *Reflector) InjectableFields(t reflect.Type) ([]Field, error) {
	if cached, ok := r.fields.Load(t); ok {
		scan := cached.(fieldScan)
		return scan.fields, scan.err
	}
	fields, err := r.scanFields(t)
	r.fields.Store(t, fieldScan{fields: fields, err: err})
	return fields, err
}

func (r *Reflector) scanFields(t reflect.Type) ([]Field, error) {
	s, ok := structOf(t)
	if !ok {
		return nil, nil
	}

	typeLevel, err := typeAnnotations(t)
	if err != nil {
		return nil, err
	}
	if typeLevel.Has(NoFields) {
		return nil, nil
	}

	var fields []Field
	for _, f := range reflect.VisibleFields(s) {
		tag, ok := f.Tag.Lookup(TagName)
		if !ok || f.Name == "_" {
			continue
		}
		member := Member{Kind: MemberField, Owner: t, Name: f.Name, Index: f.Index}
		if !f.IsExported() {
			return nil, &AnnotationError{Annotation: TagName, Type: t, Member: f.Name, Reason: "tag on unexported field"}
		}
		if throughPointer(s, f.Index) {
			return nil, &AnnotationError{Annotation: TagName, Type: t, Member: f.Name, Reason: "field is promoted through an embedded pointer"}
		}
		set, err := r.parseMemberTag(tag, f.Type, member)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{
			Descriptor: Descriptor{Type: f.Type, Annotations: set, Owner: member},
			Name:       f.Name,
			Index:      f.Index,
		})
	}
	return fields, nil
}

// Annotations returns the annotation set of a member; malformed tags yield
// an empty set (InjectableFields reports the error).
func (r *Reflector) Annotations(m Member) Annotations {
	switch m.Kind {
	case MemberType:
		set, _ := typeAnnotations(m.Owner)
		return set
	case MemberField:
		s, ok := structOf(m.Owner)
		if !ok || len(m.Index) == 0 {
			return Annotations{}
		}
		f := s.FieldByIndex(m.Index)
		tag, ok := f.Tag.Lookup(TagName)
		if !ok {
			return Annotations{}
		}
		set, _ := ParseTag(tag)
		return set
	case MemberConstructor:
		for _, c := range r.Constructors(m.Owner) {
			if c.Name() != m.Name || len(m.Index) != 1 || m.Index[0] >= len(c.Params) {
				continue
			}
			return c.Params[m.Index[0]].Annotations
		}
	}
	return Annotations{}
}

// PostConstructMethods returns the post-construct hooks of t ordered from
// the innermost embedded struct to t itself.
func (r *Reflector) PostConstructMethods(t reflect.Type) ([]Hook, error) {
	if cached, ok := r.hooks.Load(t); ok {
		scan := cached.(hookScan)
		return scan.hooks, scan.err
	}
	var hooks []Hook
	err := collectHooks(t, nil, &hooks)
	if err != nil {
		hooks = nil
	}
	r.hooks.Store(t, hookScan{hooks: hooks, err: err})
	return hooks, err
}

func collectHooks(t reflect.Type, path []int, out *[]Hook) error {
	if s, ok := structOf(t); ok {
		for i := 0; i < s.NumField(); i++ {
			f := s.Field(i)
			if !f.Anonymous {
				continue
			}
			var embedded reflect.Type
			switch {
			case f.Type.Kind() == reflect.Struct:
				embedded = reflect.PointerTo(f.Type)
			case f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct:
				embedded = f.Type
			default:
				continue
			}
			sub := append(append([]int{}, path...), i)
			if err := collectHooks(embedded, sub, out); err != nil {
				return err
			}
		}
	}

	post, hasPost, err := declaredHook(t, PostConstructMethod)
	if err != nil {
		return err
	}
	initz, hasInit, err := declaredHook(t, InitializeMethod)
	if err != nil {
		return err
	}
	switch {
	case hasPost && hasInit:
		return &HookError{Type: t, Reason: "declares both PostConstruct and Initialize"}
	case hasPost:
		post.Path = path
		*out = append(*out, post)
	case hasInit:
		initz.Path = path
		*out = append(*out, initz)
	}
	return nil
}

// declaredHook reports whether t itself (not an embedded struct) declares
// the named method, and validates its signature.
func declaredHook(t reflect.Type, name string) (Hook, bool, error) {
	m, ok := t.MethodByName(name)
	if !ok {
		return Hook{}, false, nil
	}
	if promoted(t, name, m) {
		return Hook{}, false, nil
	}
	// receiver is In(0)
	if m.Type.NumIn() != 1 {
		return Hook{}, false, &HookError{Type: t, Reason: name + " must not declare parameters"}
	}
	switch {
	case m.Type.NumOut() == 0:
		return Hook{Owner: t, Method: name}, true, nil
	case m.Type.NumOut() == 1 && m.Type.Out(0) == errorType:
		return Hook{Owner: t, Method: name, ReturnsError: true}, true, nil
	default:
		return Hook{}, false, &HookError{Type: t, Reason: name + " must return nothing or error"}
	}
}

// promoted reports whether the method is inherited from an embedded field.
// Promoted methods and pointer wrappers of value methods are compiler
// generated; a generated method counts as declared only when no embedded
// field could have supplied it.
func promoted(t reflect.Type, name string, m reflect.Method) bool {
	if t.Kind() == reflect.Pointer {
		if vm, ok := t.Elem().MethodByName(name); ok {
			return generated(vm)
		}
	}
	if !generated(m) {
		return false
	}
	s, ok := structOf(t)
	if !ok {
		return false
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if !f.Anonymous {
			continue
		}
		if _, ok := reflect.PointerTo(f.Type).MethodByName(name); ok {
			return true
		}
		if _, ok := f.Type.MethodByName(name); ok {
			return true
		}
	}
	return false
}

func generated(m reflect.Method) bool {
	pc := m.Func.Pointer()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	file, _ := fn.FileLine(fn.Entry())
	return file == "<autogenerated>"
}

// HookReceiver returns the value a hook must be called on: target itself
// or the embedded struct at h.Path. ok is false when an embedded pointer on
// the path is nil.
func HookReceiver(target reflect.Value, h Hook) (reflect.Value, bool) {
	v := target
	for _, i := range h.Path {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		f := v.Field(i)
		// unexported embedded structs are still valid receivers
		f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
		if f.Kind() == reflect.Pointer {
			v = f
			continue
		}
		v = f.Addr()
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return reflect.Value{}, false
	}
	return v, true
}

// Invoke calls fn, converting a panic into an *InvokeError.
func (r *Reflector) Invoke(fn reflect.Value, args []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = &InvokeError{Func: funcName(fn), Panic: rec}
		}
	}()
	return fn.Call(args), nil
}

// SetField assigns value to f on target.
func (r *Reflector) SetField(f Field, target, value reflect.Value) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &InvokeError{Func: "set " + f.Owner.String(), Panic: rec}
		}
	}()
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return errors.Errorf("metadata: cannot set %s on %s", f.Name, target.Type())
	}
	target.Elem().FieldByIndex(f.Index).Set(value)
	return nil
}

// InvokeError is a panic raised by a reflective call.
type InvokeError struct {
	Func  string
	Panic any
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Func, e.Panic)
}

// Unwrap exposes a panic value that is itself an error.
func (e *InvokeError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// HookError reports an invalid post-construct method declaration.
type HookError struct {
	Type   reflect.Type
	Reason string
}

func (e *HookError) Error() string {
	return fmt.Sprintf("post-construct on %s: %s", e.Type, e.Reason)
}

func typeAnnotations(t reflect.Type) (Annotations, error) {
	s, ok := structOf(t)
	if !ok {
		return Annotations{}, nil
	}
	var items []Annotation
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if f.Name != "_" {
			continue
		}
		tag, ok := f.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		set, err := ParseTag(tag)
		if err != nil {
			return Annotations{}, err
		}
		if !set.Has(NoFields) {
			return Annotations{}, &AnnotationError{Annotation: tag, Type: t, Member: "_", Reason: "blank fields only carry type annotations"}
		}
		items = append(items, set.All()...)
	}
	return NewAnnotations(items...), nil
}

func structOf(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	return t, true
}

func throughPointer(s reflect.Type, index []int) bool {
	cur := s
	for _, i := range index[:len(index)-1] {
		f := cur.Field(i)
		if f.Type.Kind() == reflect.Pointer {
			return true
		}
		cur = f.Type
	}
	return false
}

func funcName(fn reflect.Value) string {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return "<nil>"
	}
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		return f.Name()
	}
	return fn.Type().String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
