package metadata

import (
	"fmt"
	"reflect"
)

// MemberKind tells what a Member points at.
type MemberKind int

const (
	MemberType MemberKind = iota + 1
	MemberConstructor
	MemberField
)

func (k MemberKind) String() string {
	switch k {
	case MemberType:
		return "type"
	case MemberConstructor:
		return "constructor"
	case MemberField:
		return "field"
	default:
		return "unknown"
	}
}

// Member identifies the constructor, field or type a descriptor belongs to.
// For constructors Index holds the parameter position, for fields the
// reflect field index path.
type Member struct {
	Kind  MemberKind
	Owner reflect.Type
	Name  string
	Index []int
}

// TypeMember returns the type-level member of t.
func TypeMember(t reflect.Type) Member {
	return Member{Kind: MemberType, Owner: t, Name: typeName(t)}
}

func (m Member) String() string {
	switch m.Kind {
	case MemberConstructor:
		if len(m.Index) == 1 {
			return fmt.Sprintf("%s(param %d)", m.Name, m.Index[0])
		}
		return m.Name
	case MemberField:
		return fmt.Sprintf("%s.%s", typeName(m.Owner), m.Name)
	default:
		return m.Name
	}
}

// Descriptor is the declared type, annotations and owner of one value a
// strategy needs. Descriptors are created once by the Service and never
// modified.
type Descriptor struct {
	Type        reflect.Type
	Annotations Annotations
	Owner       Member
}

func (d Descriptor) String() string {
	if d.Annotations.Len() == 0 {
		return fmt.Sprintf("%s (%s)", d.Type, d.Owner)
	}
	return fmt.Sprintf("%s %s (%s)", d.Type, d.Annotations, d.Owner)
}

// Constructor is a registered constructor function.
type Constructor struct {
	Fn       reflect.Value
	Out      reflect.Type
	Params   []Descriptor
	Inject   bool
	HasError bool
}

// Name returns the function's symbol name.
func (c Constructor) Name() string {
	return funcName(c.Fn)
}

// Field is one injectable struct field.
type Field struct {
	Descriptor
	Name  string
	Index []int
}

// Hook is a post-construct method declared on the instance type or on one
// of its embedded structs. Path is the field index path of the embedded
// struct, empty for the instance itself.
type Hook struct {
	Owner        reflect.Type
	Path         []int
	Method       string
	ReturnsError bool
}

func (h Hook) String() string {
	return fmt.Sprintf("(%s).%s", h.Owner, h.Method)
}

// Service is the reflective collaborator the container delegates to. The
// engine never inspects types itself; it only sees what a Service reports.
type Service interface {
	// Constructors returns the constructors registered for t.
	Constructors(t reflect.Type) []Constructor
	// InjectableFields returns the tagged fields of t (a pointer to struct).
	InjectableFields(t reflect.Type) ([]Field, error)
	// Annotations returns the annotation set attached to a member.
	Annotations(m Member) Annotations
	// PostConstructMethods returns hooks in execution order.
	PostConstructMethods(t reflect.Type) ([]Hook, error)
	// Invoke calls fn with args; panics are returned as errors.
	Invoke(fn reflect.Value, args []reflect.Value) ([]reflect.Value, error)
	// SetField assigns value to field f of target (a pointer to struct).
	SetField(f Field, target, value reflect.Value) error
}
