package container

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ── Module interface ──────────────────────────────────────────────────────────

// Module groups related registrations: constructors, instances and
// providers for one area of an application.
//
// Register is called when the module is added. Boot is called after ALL
// modules have been registered, making it safe to resolve other types
// inside Boot.
//
//	type StorageModule struct{ container.BaseModule }
//
//	func (m *StorageModule) Register(c *container.Container) error {
//	    return c.Constructor(NewUserRepository, metadata.InjectionPoint())
//	}
//
//	func (m *StorageModule) Boot(c *container.Container) error {
//	    _, err := container.Resolve[*UserRepository](c)
//	    return err
//	}
type Module interface {
	// Register adds registrations to the container.
	// Do NOT resolve types here; use Boot for that.
	Register(c *Container) error

	// Boot is called after all modules are registered.
	Boot(c *Container) error
}

// ── BaseModule ────────────────────────────────────────────────────────────────

// BaseModule is an embeddable struct with a no-op Boot.
//
//	type MyModule struct{ container.BaseModule }
//	func (m *MyModule) Register(c *container.Container) error { ... }
type BaseModule struct{}

func (m *BaseModule) Boot(_ *Container) error { return nil }

// ── Modules ───────────────────────────────────────────────────────────────────

// Modules manages registration and booting of Modules for one container.
type Modules struct {
	c          *Container
	modules    []Module
	registered map[Module]bool
	booted     bool
}

// NewModules creates a module registry bound to c.
func NewModules(c *Container) *Modules {
	return &Modules{
		c:          c,
		registered: make(map[Module]bool),
	}
}

// Register adds a module and calls its Register method. A module already
// registered is ignored. Modules registered after Boot are booted at once.
func (r *Modules) Register(m Module) error {
	if r.registered[m] {
		return nil
	}
	if err := m.Register(r.c); err != nil {
		return errors.Wrapf(err, "registering module %T", m)
	}
	r.registered[m] = true
	r.modules = append(r.modules, m)
	r.c.log.Debug("module registered", zap.String("module", fmt.Sprintf("%T", m)))

	if r.booted {
		return r.boot(m)
	}
	return nil
}

// Boot calls Boot on every registered module, in registration order.
// Must be called after ALL modules have been registered.
func (r *Modules) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, m := range r.modules {
		if err := r.boot(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Modules) boot(m Module) error {
	if err := m.Boot(r.c); err != nil {
		return errors.Wrapf(err, "booting module %T", m)
	}
	return nil
}

// Booted returns true if Boot has been called.
func (r *Modules) Booted() bool { return r.booted }

// Modules returns the registered modules in order.
func (r *Modules) Modules() []Module { return append([]Module(nil), r.modules...) }
