package model

import "context"

// ChoiceResolution is the result of resolving a FHIR value[x]-style choice
// property, per spec §4.2's resolve_choice contract.
type ChoiceResolution struct {
	PropertyName string
	Type         TypeInfo
}

// ModelProvider is the sole source of schema truth the evaluator and
// analyzer consult (spec §4.2). Implementations MAY be asynchronous (e.g.
// backed by on-demand StructureDefinition loading); every method therefore
// takes a context.Context and may suspend. Implementations MUST be safe for
// concurrent read access (spec §5, §6.2).
type ModelProvider interface {
	// GetType resolves a type by name, handling both resource and
	// data-type namespaces. Returns ok=false for an unknown name.
	GetType(ctx context.Context, name string) (TypeInfo, bool, error)

	// GetPropertyType returns the declared type of a navigable member.
	// Returns ok=false for an unknown property.
	GetPropertyType(ctx context.Context, parent TypeInfo, property string) (TypeInfo, bool, error)

	// ResolveChoice implements FHIR's value[x] pattern: given a parent type
	// and a base property name ("value"), and optionally the concrete JSON
	// object backing the instance, return the specific variant present
	// ("valueQuantity" -> Quantity). When instanceJSON is nil, the
	// highest-priority declared variant is returned.
	ResolveChoice(ctx context.Context, parent TypeInfo, baseProperty string, instanceJSON []byte) (ChoiceResolution, bool, error)

	// VariantsPresent returns every declared value[x] variant of baseProperty
	// that is actually present in instanceJSON, in provider priority order.
	// Well-formed data has at most one; more than one means the instance is
	// malformed (spec §4.5.2). ResolveChoice silently picks the
	// highest-priority match in that case; this method exists so a caller
	// with an instance to check (the analyzer) can surface the ambiguity
	// instead of letting it pass unnoticed.
	VariantsPresent(ctx context.Context, parent TypeInfo, baseProperty string, instanceJSON []byte) ([]ChoiceResolution, error)

	// IsSubtype reports whether child conforms to parent in the FHIR type
	// hierarchy (e.g. Patient is a subtype of DomainResource and Resource).
	IsSubtype(ctx context.Context, child, parent TypeInfo) (bool, error)

	IsResource(ctx context.Context, name string) bool
	IsPrimitive(ctx context.Context, name string) bool
}

// TerminologyProvider is the optional collaborator behind spec §6.3's
// terminology functions (memberOf, subsumes, translate, …). No concrete
// network client ships with this module (Non-goal: no canonical-package
// download / external service integration) — callers inject their own.
type TerminologyProvider interface {
	ValidateVS(ctx context.Context, valueSetURL, codedValue string, params map[string]string) ([]bool, error)
	Translate(ctx context.Context, conceptMapURL, codedValue string, params map[string]string) ([]string, error)
	Lookup(ctx context.Context, codedValue string, params map[string]string) (map[string]string, error)
	Subsumes(ctx context.Context, systemURL, codeA, codeB string, params map[string]string) (bool, error)
}
