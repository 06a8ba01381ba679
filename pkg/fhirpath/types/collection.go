package types

import (
	"fmt"
	"strings"
)

// Collection is the uniform result type of every FHIRPath expression: every
// evaluation step, whether it yields no value, a scalar, or a list, produces
// one of these. There is no separate "scalar" type in the evaluator.
type Collection []Value

// Empty reports whether c carries no result, which in FHIRPath is distinct
// from carrying a false/zero-valued result.
func (c Collection) Empty() bool {
	return len(c) == 0
}

// Count backs the `count()` function (spec §4.4).
func (c Collection) Count() int {
	return len(c)
}

// First backs the `first()` function (spec §4.4): the first element, or
// ok=false if c is empty.
func (c Collection) First() (Value, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return c[0], true
}

// Last backs the `last()` function (spec §4.4): the last element, or
// ok=false if c is empty.
func (c Collection) Last() (Value, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return c[len(c)-1], true
}

// Single enforces the singleton-evaluation rule used throughout the
// evaluator: many operators only accept a collection of cardinality 1 and
// must raise rather than silently pick an element.
func (c Collection) Single() (Value, error) {
	switch len(c) {
	case 0:
		return nil, fmt.Errorf("expected single value, got empty collection")
	case 1:
		return c[0], nil
	default:
		return nil, fmt.Errorf("expected single value, got %d elements", len(c))
	}
}

// Tail drops the first element, backing the `tail()` function (spec §4.4).
func (c Collection) Tail() Collection {
	if len(c) <= 1 {
		return EmptyCollection
	}
	return c[1:]
}

// Skip drops the first n elements, backing the `skip(num)` function
// (spec §4.4). A non-positive n is a no-op; n >= len empties the result.
func (c Collection) Skip(n int) Collection {
	if n >= len(c) {
		return EmptyCollection
	}
	if n <= 0 {
		return c
	}
	return c[n:]
}

// Take keeps only the first n elements, backing the `take(num)` function
// (spec §4.4).
func (c Collection) Take(n int) Collection {
	if n <= 0 {
		return EmptyCollection
	}
	if n >= len(c) {
		return c
	}
	return c[:n]
}

// Contains reports whether any element of c is Equal to v; Distinct/Union/
// Intersect/Exclude all build on this, so its cost is quadratic in the
// collection size for those operations.
func (c Collection) Contains(v Value) bool {
	for _, item := range c {
		if item.Equal(v) {
			return true
		}
	}
	return false
}

// Distinct returns a new collection with duplicate values removed, keeping
// the first occurrence of each distinct value (spec §4.4's `distinct()`).
func (c Collection) Distinct() Collection {
	if len(c) <= 1 {
		return c
	}
	result := NewCollectionWithCap(len(c))
	for _, item := range c {
		if !result.Contains(item) {
			result = append(result, item)
		}
	}
	return result
}

// IsDistinct backs the `isDistinct()` function (spec §4.4).
func (c Collection) IsDistinct() bool {
	return len(c) == len(c.Distinct())
}

// Union returns the merge of c and other with duplicates removed. The `|`
// operator does not call it (it concatenates without de-duplication), and
// no registry entry calls it either. Sized for the worst case (no overlap) up front
// since the caller rarely knows the overlap in advance.
func (c Collection) Union(other Collection) Collection {
	result := NewCollectionWithCap(len(c) + len(other))
	result = append(result, c...)
	for _, item := range other {
		if !result.Contains(item) {
			result = append(result, item)
		}
	}
	return result
}

// Combine concatenates c and other without deduplication, backing the
// `combine()` function (spec §4.4) rather than the `|` operator.
func (c Collection) Combine(other Collection) Collection {
	result := NewCollectionWithCap(len(c) + len(other))
	result = append(result, c...)
	result = append(result, other...)
	return result
}

// Intersect returns the elements of c that also occur in other, in c's
// order, deduplicated. Backs the `intersect()` function (spec §4.4).
func (c Collection) Intersect(other Collection) Collection {
	result := NewCollectionWithCap(len(c))
	for _, item := range c {
		if other.Contains(item) && !result.Contains(item) {
			result = append(result, item)
		}
	}
	return result
}

// Exclude returns the elements of c with any element also present in other
// removed. Backs the `exclude()` function (spec §4.4).
func (c Collection) Exclude(other Collection) Collection {
	result := NewCollectionWithCap(len(c))
	for _, item := range c {
		if !other.Contains(item) {
			result = append(result, item)
		}
	}
	return result
}

// String renders c in the bracketed debug form used by diagnostics and
// test failure messages, not any FHIRPath surface syntax.
func (c Collection) String() string {
	if len(c) == 0 {
		return "[]"
	}
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ToBoolean applies FHIRPath's singleton evaluation of collections rule
// (spec §4.2.1): a one-element Boolean collection converts to its value;
// anything else (empty, multi-element, or non-Boolean singleton) is an
// error for the caller to decide how to handle.
func (c Collection) ToBoolean() (bool, error) {
	if len(c) == 0 {
		return false, fmt.Errorf("cannot convert empty collection to boolean")
	}
	if len(c) > 1 {
		return false, fmt.Errorf("cannot convert collection with %d elements to boolean", len(c))
	}
	if b, ok := c[0].(Boolean); ok {
		return b.Bool(), nil
	}
	return false, fmt.Errorf("cannot convert %s to boolean", c[0].Type())
}

// AllTrue backs the `allTrue()` aggregate function (spec §4.4.5): every
// item must be the Boolean true for the whole collection to qualify.
func (c Collection) AllTrue() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); !ok || !b.Bool() {
			return false
		}
	}
	return true
}

// AnyTrue backs the `anyTrue()` aggregate function (spec §4.4.5).
func (c Collection) AnyTrue() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); ok && b.Bool() {
			return true
		}
	}
	return false
}

// AllFalse backs the `allFalse()` aggregate function (spec §4.4.5).
func (c Collection) AllFalse() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); !ok || b.Bool() {
			return false
		}
	}
	return true
}

// AnyFalse backs the `anyFalse()` aggregate function (spec §4.4.5).
func (c Collection) AnyFalse() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); ok && !b.Bool() {
			return true
		}
	}
	return false
}
