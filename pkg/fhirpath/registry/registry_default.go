package registry

// Default builds the standard catalog every evaluator starts from: the
// full Collection/String/Math/Conversion/Type/Utility groups of spec §4.4,
// plus the terminology group (memberOf, subsumes, translate, validateCode,
// designation, property), which only resolves successfully when a
// model.TerminologyProvider has been configured on the evaluation context.
// Operator entries (arithmetic, comparison, boolean, union, membership) are
// registered separately by registerOperators so the operator precedence
// table in package parser and the registry's operator metadata stay in
// lockstep (see DESIGN.md, Component D).
func Default() *Registry {
	r := New()
	registerCollection(r)
	registerMath(r)
	registerStrings(r)
	registerConversion(r)
	registerUtility(r)
	registerOperators(r)
	registerTerminology(r)
	return r
}
