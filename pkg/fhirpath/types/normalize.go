package types

// Normalize builds a Collection from a sequence of values, flattening any
// nested Collection and dropping values that are empty. An empty input
// normalizes to an empty Collection (semantically equivalent to Empty); a
// single surviving element normalizes to a one-element Collection rather
// than being unwrapped — callers that want unwrapping use AsSingleton.
func Normalize(values ...Value) Collection {
	out := make(Collection, 0, len(values))
	var flatten func(Value)
	flatten = func(v Value) {
		if v == nil {
			return
		}
		if c, ok := v.(Collection); ok {
			for _, item := range c {
				flatten(item)
			}
			return
		}
		if _, isEmptySentinel := v.(emptyValue); isEmptySentinel {
			return
		}
		out = append(out, v)
	}
	for _, v := range values {
		flatten(v)
	}
	return out
}

// emptyValue is the sentinel Empty value: distinct from Boolean(false) and
// from a zero-value String, per spec §3.1.
type emptyValue struct{}

// Empty is the canonical absence-of-value sentinel.
var Empty Value = emptyValue{}

func (emptyValue) Type() string              { return "" }
func (emptyValue) Equal(other Value) bool    { return IsEmptyValue(other) }
func (emptyValue) Equivalent(o Value) bool   { return IsEmptyValue(o) }
func (emptyValue) String() string            { return "" }
func (emptyValue) IsEmpty() bool             { return true }

// IsEmptyValue reports whether v is the Empty sentinel or an empty Collection.
// Per spec §3.1, Empty and Collection([]) are equivalent and MUST be treated
// identically by comparisons, existence checks, and serialization.
func IsEmptyValue(v Value) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(emptyValue); ok {
		return true
	}
	if c, ok := v.(Collection); ok {
		return len(c) == 0
	}
	return false
}

// AsSingleton returns the unique element of a one-element collection, or v
// itself if v is already scalar, or an error if v is empty or has more than
// one element (SingletonRequired, per spec §4.1).
func AsSingleton(v Value) (Value, error) {
	if c, ok := v.(Collection); ok {
		switch len(c) {
		case 0:
			return nil, NewSingletonError(0)
		case 1:
			return c[0], nil
		default:
			return nil, NewSingletonError(len(c))
		}
	}
	if IsEmptyValue(v) {
		return nil, NewSingletonError(0)
	}
	return v, nil
}

// SingletonError signals that a singleton-only operation received a
// multi-element (or empty) collection.
type SingletonError struct {
	Count int
}

func NewSingletonError(count int) *SingletonError { return &SingletonError{Count: count} }

func (e *SingletonError) Error() string {
	if e.Count == 0 {
		return "expected a singleton value, got empty collection"
	}
	return "expected a singleton value, got a multi-element collection"
}

// IsTruthy implements FHIRPath boolean coercion for control-flow contexts
// (where conditions, and/or/not operands): Empty -> false, Boolean(b) -> b,
// a singleton collection delegates to its element, anything else -> false.
// This is distinct from ToBoolean's string/numeric coercion table.
func IsTruthy(v Value) bool {
	if IsEmptyValue(v) {
		return false
	}
	if c, ok := v.(Collection); ok {
		if len(c) != 1 {
			return false
		}
		return IsTruthy(c[0])
	}
	if b, ok := v.(Boolean); ok {
		return b.Bool()
	}
	return false
}

// Unwrap strips a one-element Collection down to its element, leaving any
// other shape (including multi-element collections and Empty) unchanged.
// Operators and comparisons use this to implement singleton-transparent
// semantics without requiring a full AsSingleton error path.
func Unwrap(v Value) Value {
	if c, ok := v.(Collection); ok {
		if len(c) == 1 {
			return Unwrap(c[0])
		}
	}
	return v
}
