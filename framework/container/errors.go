package container

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/km-arc/go-inject/framework/metadata"
)

var (
	// ErrConfiguration matches every *ConfigError.
	ErrConfiguration = errors.New("configuration error")

	// ErrCircularDependency is returned when a type depends on itself,
	// directly or transitively. The message includes the full chain.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrNoCapability is returned by New for a handler that implements none
	// of the pipeline capabilities.
	ErrNoCapability = errors.New("handler implements no pipeline capability")

	// ErrOutsideBoundary is the cause of a ConfigError for a type outside the
	// allowed package root.
	ErrOutsideBoundary = errors.New("type is outside the allowed package")

	// ErrPrimitive is the cause of a ConfigError for a built-in scalar type.
	ErrPrimitive = errors.New("primitive types cannot be constructed")

	// ErrArray is the cause of a ConfigError for array, slice and map types.
	ErrArray = errors.New("array types cannot be constructed")

	// ErrNotPointer is the cause of a ConfigError for an InjectInto target
	// that is not a non-nil pointer to struct.
	ErrNotPointer = errors.New("injection target must be a non-nil pointer to struct")

	// ErrNoValue is returned by ProvideExternal when no handler accepted the value.
	ErrNoValue = errors.New("no handler accepted the provided value")
)

// AnnotationError reports an annotation used in an unsupported position.
type AnnotationError = metadata.AnnotationError

// ConfigError reports a misconfiguration detected while resolving Type:
// missing or ambiguous strategy, invalid provider, invalid remap, scope
// violation. Cause optionally carries a more specific sentinel.
type ConfigError struct {
	Type   reflect.Type
	Reason string
	Cause  error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Type != nil {
		fmt.Fprintf(&b, " for %s", e.Type)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Is makes errors.Is(err, ErrConfiguration) true for every ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigError) Unwrap() error { return e.Cause }

func configError(t reflect.Type, reason string, args ...any) *ConfigError {
	if len(args) > 0 {
		reason = fmt.Sprintf(reason, args...)
	}
	return &ConfigError{Type: t, Reason: reason}
}

// ReflectError wraps a failure of an underlying construction, field set or
// method call, keeping the declaring type and member.
type ReflectError struct {
	Type   reflect.Type
	Member string
	Cause  error
}

func (e *ReflectError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Type, e.Member, e.Cause)
}

func (e *ReflectError) Unwrap() error { return e.Cause }

// ResolutionError is the error returned to callers of GetSingleton,
// NewInstance and InjectInto. It names the requested type and kind.
type ResolutionError struct {
	Type reflect.Type
	Kind ResolutionKind
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s (%s): %v", e.Type, e.Kind, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Cause returns the innermost error, for github.com/pkg/errors.Cause.
func (e *ResolutionError) Cause() error { return errors.Cause(e.Err) }

func circularError(stack []reflect.Type, t reflect.Type) error {
	chain := make([]string, len(stack)+1)
	for i, s := range stack {
		chain[i] = s.String()
	}
	chain[len(stack)] = t.String()
	return errors.Wrap(ErrCircularDependency, strings.Join(chain, " -> "))
}
