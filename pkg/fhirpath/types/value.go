// Package types implements the FHIRPath value model: the concrete scalar
// types (Boolean, Integer, Decimal, String, Date, DateTime, Time,
// Quantity) that every evaluation step produces, always wrapped in a
// Collection (see collection.go), plus the conversions between them and
// the underlying FHIR resource representation (object.go).
package types

// Value is implemented by every concrete FHIRPath scalar type. There is
// deliberately no way to ask a Value for its raw Go representation;
// callers that need that drop to a type switch on the concrete type.
type Value interface {
	// Type returns the FHIRPath type name (e.g. "Integer", "DateTime").
	Type() string

	// Equal implements the `=` operator's per-value comparison.
	Equal(other Value) bool

	// Equivalent implements the `~` operator's per-value comparison, which
	// relaxes Equal for some types (String: case- and whitespace-insensitive).
	// Decimal's Equivalent is the same exact comparison as its Equal; it does
	// not round either operand to the lower of the two precisions.
	Equivalent(other Value) bool

	// String renders the value for diagnostics; not a FHIRPath literal
	// serialization (use the registry's toString conversions for that).
	String() string

	// IsEmpty reports true for the Empty sentinel, an empty Collection, the
	// empty String "" and a Wrapped whose inner value is nil or empty; the
	// other value types always report false.
	IsEmpty() bool
}

// Comparable is implemented by the subset of Value types that support the
// ordering operators (`<`, `<=`, `>`, `>=`): the numeric types, String,
// and the temporal types.
type Comparable interface {
	Value
	// Compare returns -1/0/1 for less-than/equal/greater-than. An error
	// return means the comparison couldn't be resolved to an ordering
	// (incompatible types, or — for Date/DateTime/Time — an
	// AmbiguousPrecisionError). The registry's comparison operators fold an
	// AmbiguousPrecisionError into Empty and return any other error as is.
	Compare(other Value) (int, error)
}

// Numeric is implemented by Integer and Decimal, letting arithmetic
// operators promote either to Decimal for mixed-type math without a type
// switch at every call site.
type Numeric interface {
	Value
	ToDecimal() Decimal
}
