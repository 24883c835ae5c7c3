package container_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/container"
)

// ── stub modules ──────────────────────────────────────────────────────────────

type clockValue struct{ name string }

type eagerModule struct {
	container.BaseModule
	registerCalls int
	bootCalled    bool
}

func (m *eagerModule) Register(c *container.Container) error {
	m.registerCalls++
	return container.Bind(c, &clockValue{name: "eager"})
}

func (m *eagerModule) Boot(c *container.Container) error {
	m.bootCalled = true
	// every module is registered by now
	_, err := container.Resolve[*alphaValue](c)
	return err
}

type alphaValue struct{ v string }
type betaValue struct{ v string }

// multiModule registers multiple types.
type multiModule struct {
	container.BaseModule
}

func (m *multiModule) Register(c *container.Container) error {
	if err := container.Bind(c, &alphaValue{v: "α"}); err != nil {
		return err
	}
	return container.Supply[*betaValue](c, func() *betaValue { return &betaValue{v: "β"} })
}

type failingModule struct {
	container.BaseModule
	err error
}

func (m *failingModule) Register(*container.Container) error { return m.err }

// unresolvableModule asks for an interface nothing implements.
type unresolvableModule struct {
	container.BaseModule
}

func (m *unresolvableModule) Register(*container.Container) error { return nil }

func (m *unresolvableModule) Boot(c *container.Container) error {
	_, err := container.Resolve[fmt.Stringer](c)
	return err
}

func newContainer(t *testing.T) *container.Container {
	t.Helper()
	c, err := container.New()
	require.NoError(t, err)
	return c
}

// ── Modules ───────────────────────────────────────────────────────────────────

func TestModules_RegisterCalledImmediately(t *testing.T) {
	reg := container.NewModules(newContainer(t))

	m := &eagerModule{}
	require.NoError(t, reg.Register(m))

	if m.registerCalls != 1 {
		t.Errorf("Register() calls: got %d, want 1", m.registerCalls)
	}
}

func TestModules_BootCalledAfterBoot(t *testing.T) {
	reg := container.NewModules(newContainer(t))

	m := &eagerModule{}
	require.NoError(t, reg.Register(&multiModule{}))
	require.NoError(t, reg.Register(m))

	if m.bootCalled {
		t.Error("Boot() should NOT be called before Modules.Boot()")
	}

	require.NoError(t, reg.Boot())

	if !m.bootCalled {
		t.Error("Boot() should be called after Modules.Boot()")
	}
}

func TestModules_ServicesResolvable(t *testing.T) {
	c := newContainer(t)
	reg := container.NewModules(c)
	require.NoError(t, reg.Register(&multiModule{}))
	require.NoError(t, reg.Register(&eagerModule{}))
	require.NoError(t, reg.Boot())

	if got := container.MustResolve[*alphaValue](c).v; got != "α" {
		t.Errorf("alpha: got %q, want 'α'", got)
	}
	if got := container.MustResolve[*betaValue](c).v; got != "β" {
		t.Errorf("beta: got %q, want 'β'", got)
	}
	if got := container.MustResolve[*clockValue](c).name; got != "eager" {
		t.Errorf("clock: got %q, want 'eager'", got)
	}
}

func TestModules_Boot_IdempotentCallsAreIgnored(t *testing.T) {
	reg := container.NewModules(newContainer(t))

	require.NoError(t, reg.Register(&multiModule{}))
	require.NoError(t, reg.Boot())
	require.NoError(t, reg.Boot())

	if !reg.Booted() {
		t.Error("Booted() should be true after Boot()")
	}
}

func TestModules_Booted_FalseBeforeBoot(t *testing.T) {
	reg := container.NewModules(newContainer(t))
	if reg.Booted() {
		t.Error("Booted() should be false before Boot()")
	}
}

func TestModules_DuplicateRegister_Ignored(t *testing.T) {
	reg := container.NewModules(newContainer(t))

	m := &eagerModule{}
	require.NoError(t, reg.Register(m))
	require.NoError(t, reg.Register(m))

	if m.registerCalls != 1 {
		t.Errorf("Register() calls: got %d, want 1", m.registerCalls)
	}
	if len(reg.Modules()) != 1 {
		t.Errorf("Modules(): got %d, want 1", len(reg.Modules()))
	}
}

func TestModules_RegisterError_Wrapped(t *testing.T) {
	reg := container.NewModules(newContainer(t))
	cause := errors.New("boom")

	err := reg.Register(&failingModule{err: cause})

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "failingModule")
	require.Empty(t, reg.Modules())
}

func TestModules_BootError_Stops(t *testing.T) {
	reg := container.NewModules(newContainer(t))
	late := &eagerModule{}
	require.NoError(t, reg.Register(&unresolvableModule{}))
	require.NoError(t, reg.Register(late))

	err := reg.Boot()

	require.ErrorIs(t, err, container.ErrConfiguration)
	require.Contains(t, err.Error(), "booting module")
	require.False(t, late.bootCalled)
}

func TestBaseModule_BootIsNoop(t *testing.T) {
	var m container.BaseModule
	if err := m.Boot(newContainer(t)); err != nil {
		t.Errorf("BaseModule.Boot(): got %v, want nil", err)
	}
}

// ── Boot after registration (late module) ─────────────────────────────────────

func TestModules_RegisterAfterBoot_BootsImmediately(t *testing.T) {
	reg := container.NewModules(newContainer(t))
	require.NoError(t, reg.Boot())

	require.NoError(t, reg.Register(&multiModule{}))
	m := &eagerModule{}
	require.NoError(t, reg.Register(m))

	if !m.bootCalled {
		t.Error("module registered after Boot() should be booted immediately")
	}
}
