package metadata

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag key read by the Reflector.
const TagName = "inject"

// AnnotationKind enumerates the annotations the container understands.
type AnnotationKind int

const (
	// Inject marks a field or parameter as a dependency.
	Inject AnnotationKind = iota + 1
	// All requests every known instance assignable to the slice element type.
	All
	// Marker requests a value supplied out of band under a marker name.
	Marker
	// NoFields opts a type out of field scanning.
	NoFields
)

func (k AnnotationKind) String() string {
	switch k {
	case Inject:
		return "inject"
	case All:
		return "all"
	case Marker:
		return "marker"
	case NoFields:
		return "nofields"
	default:
		return "unknown"
	}
}

// Annotation is one parsed tag option.
type Annotation struct {
	Kind  AnnotationKind
	Value string
}

func (a Annotation) String() string {
	if a.Value == "" {
		return a.Kind.String()
	}
	return a.Kind.String() + "=" + a.Value
}

// Annotations is an immutable annotation set.
type Annotations struct {
	items []Annotation
}

// NewAnnotations builds a set; later duplicates of a kind replace earlier ones.
func NewAnnotations(items ...Annotation) Annotations {
	out := make([]Annotation, 0, len(items))
	for _, a := range items {
		replaced := false
		for i := range out {
			if out[i].Kind == a.Kind {
				out[i] = a
				replaced = true
			}
		}
		if !replaced {
			out = append(out, a)
		}
	}
	return Annotations{items: out}
}

// Has reports whether the set carries an annotation of kind k.
func (s Annotations) Has(k AnnotationKind) bool {
	_, ok := s.Get(k)
	return ok
}

// Get returns the annotation of kind k.
func (s Annotations) Get(k AnnotationKind) (Annotation, bool) {
	for _, a := range s.items {
		if a.Kind == k {
			return a, true
		}
	}
	return Annotation{}, false
}

// Len returns the number of annotations in the set.
func (s Annotations) Len() int { return len(s.items) }

// All returns a copy of the annotations in declaration order.
func (s Annotations) All() []Annotation {
	out := make([]Annotation, len(s.items))
	copy(out, s.items)
	return out
}

func (s Annotations) String() string {
	parts := make([]string, len(s.items))
	for i, a := range s.items {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ParseTag parses the value of an `inject` struct tag.
//
//	`inject:""`              -> inject
//	`inject:"all"`           -> inject, all
//	`inject:"marker=port"`   -> inject, marker=port
//	`inject:"nofields"`      -> nofields (type level, on a blank field)
func ParseTag(tag string) (Annotations, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return NewAnnotations(Annotation{Kind: Inject}), nil
	}

	items := []Annotation{}
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		name, value, hasValue := strings.Cut(opt, "=")
		name = strings.TrimSpace(name)
		switch name {
		case "":
			continue
		case "all":
			items = append(items, Annotation{Kind: All})
		case "marker":
			if !hasValue || strings.TrimSpace(value) == "" {
				return Annotations{}, &AnnotationError{Annotation: "marker", Reason: "marker requires a name"}
			}
			items = append(items, Annotation{Kind: Marker, Value: strings.TrimSpace(value)})
		case "nofields":
			items = append(items, Annotation{Kind: NoFields})
		default:
			return Annotations{}, &AnnotationError{Annotation: name, Reason: "unknown tag option"}
		}
	}

	set := NewAnnotations(items...)
	if set.Has(NoFields) {
		if set.Len() > 1 {
			return Annotations{}, &AnnotationError{Annotation: "nofields", Reason: "cannot be combined with other options"}
		}
		return set, nil
	}
	return NewAnnotations(append([]Annotation{{Kind: Inject}}, items...)...), nil
}

// AnnotationError reports an annotation used where it is not supported.
type AnnotationError struct {
	Annotation string
	Type       reflect.Type
	Member     string
	Reason     string
}

func (e *AnnotationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "annotation %q", e.Annotation)
	if e.Type != nil {
		fmt.Fprintf(&b, " on %s", e.Type)
		if e.Member != "" {
			fmt.Fprintf(&b, ".%s", e.Member)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}
