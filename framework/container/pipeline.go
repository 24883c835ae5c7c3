package container

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"

	"github.com/km-arc/go-inject/framework/metadata"
)

// ── Capabilities ──────────────────────────────────────────────────────────────

// PreConstructHandler may remap the requested type (ctx.MapTo) or reject it.
// All pre-construct handlers run, in pipeline order.
type PreConstructHandler interface {
	PreConstruct(ctx *Context) error
}

// StrategyProvider may supply the strategy for the mapped type. The first
// non-nil strategy wins.
type StrategyProvider interface {
	ProvideStrategy(ctx *Context) (Strategy, error)
}

// ValueResolver may supply the value of one dependency. The first handler
// returning ok wins.
type ValueResolver interface {
	ResolveValue(ctx *ResolvedContext, d metadata.Descriptor) (v reflect.Value, ok bool, err error)
}

// PostConstructHandler runs after construction, with the mapped type as the
// requested type. Returning a valid Value replaces the instance; handlers
// are chained, each seeing the previous output. A replacement must stay
// assignable to the mapped type.
//
// When a remapped type is requested, the stored instance is passed through
// the handlers once more for that requested type, with ctx.Reused() true.
// A replacement then needs only be assignable to the requested type.
type PostConstructHandler interface {
	PostConstruct(instance reflect.Value, ctx *ResolvedContext) (reflect.Value, error)
}

// ProvidedValueHandler receives values passed to Container.ProvideExternal.
type ProvidedValueHandler interface {
	ProvideValue(marker string, value any) (accepted bool, err error)
}

// ── Pipeline ──────────────────────────────────────────────────────────────────

type pipeline struct {
	handlers   []any
	pre        []PreConstructHandler
	strategies []StrategyProvider
	values     []ValueResolver
	post       []PostConstructHandler
	provided   []ProvidedValueHandler
}

func newPipeline(handlers []any) (*pipeline, error) {
	p := &pipeline{handlers: append([]any(nil), handlers...)}
	for i, h := range handlers {
		n := 0
		if v, ok := h.(PreConstructHandler); ok {
			p.pre = append(p.pre, v)
			n++
		}
		if v, ok := h.(StrategyProvider); ok {
			p.strategies = append(p.strategies, v)
			n++
		}
		if v, ok := h.(ValueResolver); ok {
			p.values = append(p.values, v)
			n++
		}
		if v, ok := h.(PostConstructHandler); ok {
			p.post = append(p.post, v)
			n++
		}
		if v, ok := h.(ProvidedValueHandler); ok {
			p.provided = append(p.provided, v)
			n++
		}
		if n == 0 {
			return nil, errors.Wrapf(ErrNoCapability, "handler %d (%T)", i, h)
		}
	}
	return p, nil
}

func (p *pipeline) preConstruct(ctx *Context) error {
	for _, h := range p.pre {
		if err := h.PreConstruct(ctx); err != nil {
			return errors.Wrapf(err, "pre-construct %T", h)
		}
	}
	return nil
}

func (p *pipeline) provideStrategy(ctx *Context) (Strategy, error) {
	for _, h := range p.strategies {
		s, err := h.ProvideStrategy(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "strategy provider %T", h)
		}
		if s != nil {
			return s, nil
		}
	}
	return nil, nil
}

func (p *pipeline) resolveValue(ctx *ResolvedContext, d metadata.Descriptor) (reflect.Value, bool, error) {
	for _, h := range p.values {
		v, ok, err := h.ResolveValue(ctx, d)
		if err != nil {
			return reflect.Value{}, false, errors.Wrapf(err, "value resolver %T", h)
		}
		if !ok {
			continue
		}
		if !v.IsValid() {
			return reflect.Zero(d.Type), true, nil
		}
		if !v.Type().AssignableTo(d.Type) {
			return reflect.Value{}, false, configError(ctx.MappedType(),
				"value resolver %T returned %s for dependency %s", h, v.Type(), d)
		}
		return v, true, nil
	}
	return reflect.Value{}, false, nil
}

func (p *pipeline) postConstruct(instance reflect.Value, ctx *ResolvedContext) (reflect.Value, error) {
	for _, h := range p.post {
		out, err := h.PostConstruct(instance, ctx)
		if err != nil {
			return reflect.Value{}, errors.Wrapf(err, "post-construct %T", h)
		}
		if out.IsValid() {
			instance = out
		}
	}
	return instance, nil
}

func (p *pipeline) provideValue(marker string, value any) error {
	accepted := false
	for _, h := range p.provided {
		ok, err := h.ProvideValue(marker, value)
		if err != nil {
			return errors.Wrapf(err, "provided-value %T", h)
		}
		accepted = accepted || ok
	}
	if !accepted {
		return errors.Wrap(ErrNoValue, fmt.Sprintf("marker %q", marker))
	}
	return nil
}
