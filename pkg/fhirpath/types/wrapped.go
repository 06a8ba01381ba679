package types

// Extension is a FHIR extension element: a URL plus a value carried under
// one of the value[x] siblings.
type Extension struct {
	URL   string
	Value Value
}

// PrimitiveElement carries the companion "_field" sibling data for a FHIR
// primitive: an optional element id, plus any extensions. Navigation does
// not build it: a "_field" key in the JSON is not read into a
// PrimitiveElement.
type PrimitiveElement struct {
	ID         string
	Extensions []Extension
}

// Wrapped is the type-preserving shell described in spec §3.2: it carries a
// value plus optional type metadata and optional primitive-extension
// sibling data. Arithmetic and comparison operators unwrap to the inner
// Value at their boundary. Navigation does not produce Wrapped values: it
// returns the plain values it reads, so type metadata and "_field"
// companions are not carried along a path.
type Wrapped struct {
	Value            Value
	TypeInfo         *WrappedTypeInfo
	PrimitiveElement *PrimitiveElement
}

// WrappedTypeInfo is the optional type descriptor attached to a Wrapped
// value, independent of the richer model.TypeInfo used by the analyzer —
// this one is cheap, value-typed, and travels with the value itself.
type WrappedTypeInfo struct {
	TypeName     string
	Namespace    string
	Singleton    bool
	IsEmpty      bool
	IsUnionType  bool
	UnionChoices []string
}

func NewWrapped(v Value) Wrapped {
	return Wrapped{Value: v}
}

func (w Wrapped) Type() string {
	if w.Value == nil {
		return ""
	}
	return w.Value.Type()
}

func (w Wrapped) Equal(other Value) bool {
	if w.Value == nil {
		return IsEmptyValue(other)
	}
	return w.Value.Equal(unwrapShell(other))
}

func (w Wrapped) Equivalent(other Value) bool {
	if w.Value == nil {
		return IsEmptyValue(other)
	}
	return w.Value.Equivalent(unwrapShell(other))
}

func (w Wrapped) String() string {
	if w.Value == nil {
		return ""
	}
	return w.Value.String()
}

func (w Wrapped) IsEmpty() bool {
	return w.Value == nil || w.Value.IsEmpty()
}

// Inner returns the wrapped value with shells stripped, recursively.
func (w Wrapped) Inner() Value {
	return unwrapShell(w.Value)
}

func unwrapShell(v Value) Value {
	if w, ok := v.(Wrapped); ok {
		return unwrapShell(w.Value)
	}
	return v
}

// WithExtensions returns a copy of w with its primitive element set,
// reconstructed from a FHIR "_field" sibling object holding "id" and
// "extension" members.
func (w Wrapped) WithExtensions(id string, exts []Extension) Wrapped {
	w.PrimitiveElement = &PrimitiveElement{ID: id, Extensions: exts}
	return w
}
