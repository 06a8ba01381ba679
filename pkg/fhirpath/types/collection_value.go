package types

// Collection satisfies Value directly so that flattened results can flow
// through the same Value-typed plumbing as scalars (operation results,
// variable bindings, wrapped shells), per spec §3.1's Collection type.

// Type reports "Collection" for a multi-element Collection, or the element's
// own type name for a one-element Collection (FHIRPath treats a singleton
// collection as indistinguishable from its element for typing purposes).
func (c Collection) Type() string {
	if len(c) == 1 {
		return c[0].Type()
	}
	return "Collection"
}

// Equal implements the `=` operator's collection form: same length, same
// order, element-wise Equal.
func (c Collection) Equal(other Value) bool {
	oc, ok := other.(Collection)
	if !ok {
		if len(c) == 1 {
			return c[0].Equal(other)
		}
		return false
	}
	if len(c) != len(oc) {
		return false
	}
	for i := range c {
		if !c[i].Equal(oc[i]) {
			return false
		}
	}
	return true
}

// Equivalent implements the `~` operator's collection form: same length,
// element-wise Equivalent, order-independent per spec §3.1.
func (c Collection) Equivalent(other Value) bool {
	oc, ok := other.(Collection)
	if !ok {
		if len(c) == 1 {
			return c[0].Equivalent(other)
		}
		return false
	}
	if len(c) != len(oc) {
		return false
	}
	used := make([]bool, len(oc))
	for _, item := range c {
		found := false
		for j, cand := range oc {
			if used[j] {
				continue
			}
			if item.Equivalent(cand) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the collection has no elements.
func (c Collection) IsEmpty() bool { return len(c) == 0 }
