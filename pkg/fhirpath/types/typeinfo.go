package types

import "fmt"

// TypeInfoObject is the reified result of the type() function: a
// namespace-qualified type name (spec §3.1).
type TypeInfoObject struct {
	Namespace string
	Name      string
}

func NewTypeInfoObject(namespace, name string) TypeInfoObject {
	return TypeInfoObject{Namespace: namespace, Name: name}
}

func (t TypeInfoObject) Type() string { return "TypeInfo" }

func (t TypeInfoObject) Equal(other Value) bool {
	if o, ok := other.(TypeInfoObject); ok {
		return t.Namespace == o.Namespace && t.Name == o.Name
	}
	return false
}

func (t TypeInfoObject) Equivalent(other Value) bool { return t.Equal(other) }

func (t TypeInfoObject) String() string {
	if t.Namespace == "" {
		return t.Name
	}
	return fmt.Sprintf("%s.%s", t.Namespace, t.Name)
}

func (t TypeInfoObject) IsEmpty() bool { return false }

// TypeOf returns the most specific System/FHIR type name for v, per spec
// §4.1. For resources/objects this is their resourceType or inferred
// complex-type name; for collections, the type of the element when the
// collection is a singleton, and "Collection" for an empty or
// multi-element collection (most callers instead ask per-element).
func TypeOf(v Value) string {
	switch val := Unwrap(v).(type) {
	case emptyValue:
		return ""
	case *ObjectValue:
		return val.Type()
	case Wrapped:
		return TypeOf(val.Value)
	default:
		if val == nil {
			return ""
		}
		return val.Type()
	}
}
