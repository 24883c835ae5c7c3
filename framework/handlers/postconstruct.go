package handlers

import (
	"reflect"

	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/metadata"
)

// PostConstruct calls the PostConstruct or Initialize method of a freshly
// built instance, and of each embedded struct, innermost first. A hook may
// return an error; it aborts the resolution. Hooks run once per instance.
type PostConstruct struct{}

// PostConstruct implements container.PostConstructHandler.
func (PostConstruct) PostConstruct(instance reflect.Value, ctx *container.ResolvedContext) (reflect.Value, error) {
	if ctx.Reused() {
		return reflect.Value{}, nil
	}
	meta := ctx.Container().Metadata()
	t := instance.Type()
	hooks, err := meta.PostConstructMethods(t)
	if err != nil {
		return reflect.Value{}, &container.ConfigError{Type: t, Reason: "invalid post-construct method", Cause: err}
	}

	for _, h := range hooks {
		recv, ok := metadata.HookReceiver(instance, h)
		if !ok {
			continue
		}
		out, err := meta.Invoke(recv.MethodByName(h.Method), nil)
		if err != nil {
			return reflect.Value{}, &container.ReflectError{Type: h.Owner, Member: h.Method, Cause: err}
		}
		if h.ReturnsError && len(out) == 1 && !out[0].IsNil() {
			return reflect.Value{}, &container.ReflectError{Type: h.Owner, Member: h.Method, Cause: out[0].Interface().(error)}
		}
	}
	return reflect.Value{}, nil
}
