package metadata_test

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/metadata"
)

type store struct{}

type handler struct {
	Store   *store   `inject:""`
	Stores  []*store `inject:"all"`
	Port    int      `inject:"marker=port"`
	Skipped string
}

type withEmbedded struct {
	handler
	Extra *store `inject:""`
}

type hidden struct {
	store *store `inject:""`
}

type viaPointer struct {
	*handler
}

type plain struct {
	_     struct{} `inject:"nofields"`
	Store *store   `inject:""`
}

// ── Tags ──────────────────────────────────────────────────────────────────────

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"", "[inject]"},
		{"all", "[inject,all]"},
		{"marker=port", "[inject,marker=port]"},
		{" marker = port ", "[inject,marker=port]"},
		{"nofields", "[nofields]"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := metadata.ParseTag(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseTag_Errors(t *testing.T) {
	for _, tag := range []string{"bogus", "marker", "marker=", "nofields,all"} {
		t.Run(tag, func(t *testing.T) {
			_, err := metadata.ParseTag(tag)
			var ae *metadata.AnnotationError
			require.ErrorAs(t, err, &ae)
		})
	}
}

// ── Constructors ──────────────────────────────────────────────────────────────

func newHandler(s *store, all []*store) *handler { return &handler{Store: s, Stores: all} }

func TestRegister(t *testing.T) {
	r := metadata.NewReflector()
	require.NoError(t, r.Register(newHandler, metadata.InjectionPoint(), metadata.ParamTags("", "all")))

	ctors := r.Constructors(reflect.TypeFor[*handler]())
	require.Len(t, ctors, 1)
	c := ctors[0]
	assert.True(t, c.Inject)
	assert.False(t, c.HasError)
	assert.Contains(t, c.Name(), "newHandler")
	require.Len(t, c.Params, 2)
	assert.True(t, c.Params[1].Annotations.Has(metadata.All))
	assert.Equal(t, metadata.MemberConstructor, c.Params[1].Owner.Kind)
	assert.Equal(t, []int{1}, c.Params[1].Owner.Index)

	ann := r.Annotations(c.Params[1].Owner)
	assert.True(t, ann.Has(metadata.All))
}

func TestRegister_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		opts []metadata.ConstructorOption
	}{
		{"not a function", 42, nil},
		{"nil", nil, nil},
		{"variadic", func(...int) *store { return nil }, nil},
		{"no results", func() {}, nil},
		{"bad second result", func() (*store, int) { return nil, 0 }, nil},
		{"too many tags", func() *store { return nil }, []metadata.ConstructorOption{metadata.ParamTags("")}},
		{"all on non-slice", func(*store) *handler { return nil }, []metadata.ConstructorOption{metadata.ParamTags("all")}},
		{"nofields on parameter", func(*store) *handler { return nil }, []metadata.ConstructorOption{metadata.ParamTags("nofields")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := metadata.NewReflector()
			assert.Error(t, r.Register(tt.fn, tt.opts...))
		})
	}
}

// ── Fields ────────────────────────────────────────────────────────────────────

func TestInjectableFields(t *testing.T) {
	r := metadata.NewReflector()

	fields, err := r.InjectableFields(reflect.TypeFor[*handler]())
	require.NoError(t, err)

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"Store", "Stores", "Port"}, names)

	marker, ok := fields[2].Annotations.Get(metadata.Marker)
	require.True(t, ok)
	assert.Equal(t, "port", marker.Value)
	assert.Equal(t, "*metadata_test.handler.Port", fields[2].Owner.String())
}

func TestInjectableFields_Promoted(t *testing.T) {
	r := metadata.NewReflector()

	fields, err := r.InjectableFields(reflect.TypeFor[*withEmbedded]())
	require.NoError(t, err)

	require.Len(t, fields, 4)
	assert.Equal(t, []int{0, 0}, fields[0].Index)
	assert.Equal(t, "Extra", fields[3].Name)
}

func TestInjectableFields_Errors(t *testing.T) {
	r := metadata.NewReflector()

	_, err := r.InjectableFields(reflect.TypeFor[*hidden]())
	var ae *metadata.AnnotationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "store", ae.Member)

	_, err = r.InjectableFields(reflect.TypeFor[*viaPointer]())
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Reason, "embedded pointer")
}

func TestInjectableFields_NoFields(t *testing.T) {
	r := metadata.NewReflector()

	fields, err := r.InjectableFields(reflect.TypeFor[*plain]())
	require.NoError(t, err)
	assert.Empty(t, fields)
	assert.True(t, r.Annotations(metadata.TypeMember(reflect.TypeFor[*plain]())).Has(metadata.NoFields))
}

func TestSetField(t *testing.T) {
	r := metadata.NewReflector()
	fields, err := r.InjectableFields(reflect.TypeFor[*handler]())
	require.NoError(t, err)

	h := &handler{}
	s := &store{}
	require.NoError(t, r.SetField(fields[0], reflect.ValueOf(h), reflect.ValueOf(s)))
	assert.Same(t, s, h.Store)

	err = r.SetField(fields[0], reflect.ValueOf(h), reflect.ValueOf("wrong"))
	var ie *metadata.InvokeError
	require.ErrorAs(t, err, &ie)
}

// ── Hooks ─────────────────────────────────────────────────────────────────────

type inner struct{ calls *[]string }

func (i *inner) PostConstruct() { *i.calls = append(*i.calls, "inner") }

type middle struct {
	inner
}

func (m *middle) Initialize() error {
	*m.calls = append(*m.calls, "middle")
	return nil
}

type outer struct {
	middle
}

func (o *outer) PostConstruct() { *o.calls = append(*o.calls, "outer") }

type inheritsOnly struct {
	inner
}

type both struct{}

func (both) PostConstruct()     {}
func (both) Initialize() error { return nil }

type badHook struct{}

func (*badHook) PostConstruct(int) {}

type badResult struct{}

func (*badResult) Initialize() string { return "" }

func TestPostConstructMethods_InnermostFirst(t *testing.T) {
	r := metadata.NewReflector()

	hooks, err := r.PostConstructMethods(reflect.TypeFor[*outer]())
	require.NoError(t, err)

	require.Len(t, hooks, 3)
	assert.Equal(t, reflect.TypeFor[*inner](), hooks[0].Owner)
	assert.Equal(t, []int{0, 0}, hooks[0].Path)
	assert.Equal(t, reflect.TypeFor[*middle](), hooks[1].Owner)
	assert.True(t, hooks[1].ReturnsError)
	assert.Equal(t, reflect.TypeFor[*outer](), hooks[2].Owner)
	assert.Empty(t, hooks[2].Path)

	var calls []string
	o := &outer{middle{inner{calls: &calls}}}
	v := reflect.ValueOf(o)
	for _, h := range hooks {
		recv, ok := metadata.HookReceiver(v, h)
		require.True(t, ok)
		_, err := r.Invoke(recv.MethodByName(h.Method), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"inner", "middle", "outer"}, calls)
}

func TestPostConstructMethods_PromotedCountsOnce(t *testing.T) {
	r := metadata.NewReflector()

	hooks, err := r.PostConstructMethods(reflect.TypeFor[*inheritsOnly]())
	require.NoError(t, err)

	require.Len(t, hooks, 1)
	assert.Equal(t, reflect.TypeFor[*inner](), hooks[0].Owner)
}

func TestPostConstructMethods_Invalid(t *testing.T) {
	for _, typ := range []reflect.Type{
		reflect.TypeFor[*both](),
		reflect.TypeFor[*badHook](),
		reflect.TypeFor[*badResult](),
	} {
		t.Run(typ.String(), func(t *testing.T) {
			r := metadata.NewReflector()
			_, err := r.PostConstructMethods(typ)
			var he *metadata.HookError
			require.ErrorAs(t, err, &he)
		})
	}
}

// ── Invoke ────────────────────────────────────────────────────────────────────

func TestInvoke_RecoversPanic(t *testing.T) {
	r := metadata.NewReflector()
	cause := errors.New("exploded")

	_, err := r.Invoke(reflect.ValueOf(func() { panic(cause) }), nil)

	var ie *metadata.InvokeError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, cause)
}
