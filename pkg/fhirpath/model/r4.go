package model

import (
	"context"
	"strings"

	"github.com/buger/jsonparser"
)

// polymorphicTypeSuffixes mirrors the FHIR value[x] suffix catalog used for
// choice-type resolution. Ordered by declared priority: when more than one
// variant is present in malformed data, the first match wins (spec §4.5.2).
var polymorphicTypeSuffixes = []string{
	"Boolean", "Integer", "Integer64", "Decimal", "String", "Code", "Id", "Uri", "Url", "Canonical",
	"Base64Binary", "Instant", "Date", "DateTime", "Time", "Oid", "Uuid", "Markdown", "PositiveInt", "UnsignedInt",
	"Quantity", "CodeableConcept", "Coding", "Range", "Period", "Ratio", "RatioRange",
	"Identifier", "Reference", "Attachment", "HumanName", "Address", "ContactPoint",
	"Timing", "Signature", "Annotation", "SampledData", "Age", "Distance", "Duration",
	"Count", "Money", "MoneyQuantity", "SimpleQuantity",
}

// nonDomainResources inherit directly from Resource, not DomainResource.
var nonDomainResources = map[string]bool{
	"Bundle": true, "Binary": true, "Parameters": true,
}

var fhirPrimitiveToSystem = map[string]string{
	"boolean": "Boolean", "string": "String", "integer": "Integer", "decimal": "Decimal",
	"date": "Date", "datetime": "DateTime", "time": "Time", "instant": "DateTime",
	"uri": "String", "url": "String", "canonical": "String", "base64binary": "String",
	"code": "String", "id": "String", "markdown": "String", "oid": "String", "uuid": "String",
	"positiveint": "Integer", "unsignedint": "Integer", "integer64": "Integer",
	"quantity": "Quantity", "simplequantity": "Quantity", "age": "Quantity", "count": "Quantity",
	"distance": "Quantity", "duration": "Quantity", "money": "Quantity",
}

// R4Provider is a dependency-free ModelProvider adapted from the FHIR-shape
// inference heuristics a hand-built FHIRPath evaluator typically carries
// inline: it recognizes the Resource/DomainResource hierarchy and the
// value[x] choice-suffix convention without requiring a loaded
// StructureDefinition package (Non-goal: no canonical-package download).
// It answers structurally: any PascalCase name not in the primitive table
// is treated as a resource/data-type name.
type R4Provider struct{}

func NewR4Provider() *R4Provider { return &R4Provider{} }

func (p *R4Provider) GetType(_ context.Context, name string) (TypeInfo, bool, error) {
	if t, ok := systemTypeByLowerName(name); ok {
		return t, true, nil
	}
	if isPossibleResourceOrDataTypeName(name) {
		return Resource(name), true, nil
	}
	return TypeInfo{}, false, nil
}

func (p *R4Provider) GetPropertyType(ctx context.Context, parent TypeInfo, property string) (TypeInfo, bool, error) {
	// Without a loaded schema there is no declared property table; callers
	// fall back to structural (runtime JSON-shape) typing. A schema-backed
	// provider would look the property up in parent's StructureDefinition.
	return TypeInfo{}, false, nil
}

func (p *R4Provider) ResolveChoice(_ context.Context, parent TypeInfo, baseProperty string, instanceJSON []byte) (ChoiceResolution, bool, error) {
	if instanceJSON == nil {
		// No instance to disambiguate: return the highest-priority variant.
		suffix := polymorphicTypeSuffixes[0]
		return ChoiceResolution{PropertyName: baseProperty + suffix, Type: typeForSuffix(suffix)}, true, nil
	}
	for _, suffix := range polymorphicTypeSuffixes {
		field := baseProperty + suffix
		if _, _, _, err := jsonparser.Get(instanceJSON, field); err == nil {
			return ChoiceResolution{PropertyName: field, Type: typeForSuffix(suffix)}, true, nil
		}
	}
	return ChoiceResolution{}, false, nil
}

func (p *R4Provider) VariantsPresent(_ context.Context, _ TypeInfo, baseProperty string, instanceJSON []byte) ([]ChoiceResolution, error) {
	if instanceJSON == nil {
		return nil, nil
	}
	var present []ChoiceResolution
	for _, suffix := range polymorphicTypeSuffixes {
		field := baseProperty + suffix
		if _, _, _, err := jsonparser.Get(instanceJSON, field); err == nil {
			present = append(present, ChoiceResolution{PropertyName: field, Type: typeForSuffix(suffix)})
		}
	}
	return present, nil
}

func typeForSuffix(suffix string) TypeInfo {
	if sys, ok := fhirPrimitiveToSystem[strings.ToLower(suffix)]; ok {
		return Simple(NamespaceSystem, sys)
	}
	return Resource(suffix)
}

func (p *R4Provider) IsSubtype(_ context.Context, child, parent TypeInfo) (bool, error) {
	return isSubtypeOf(child.Name, parent.Name), nil
}

func (p *R4Provider) IsResource(_ context.Context, name string) bool {
	return isPossibleResourceOrDataTypeName(name) && !isFHIRPrimitiveName(name)
}

func (p *R4Provider) IsPrimitive(_ context.Context, name string) bool {
	return isFHIRPrimitiveName(name)
}

func isFHIRPrimitiveName(name string) bool {
	_, ok := fhirPrimitiveToSystem[strings.ToLower(name)]
	if ok {
		return true
	}
	switch name {
	case "Boolean", "String", "Integer", "Decimal", "Date", "DateTime", "Time", "Quantity":
		return true
	}
	return false
}

func systemTypeByLowerName(name string) (TypeInfo, bool) {
	if sys, ok := fhirPrimitiveToSystem[strings.ToLower(name)]; ok {
		return Simple(NamespaceSystem, sys), true
	}
	switch name {
	case "Boolean", "String", "Integer", "Decimal", "Date", "DateTime", "Time", "Quantity":
		return Simple(NamespaceSystem, name), true
	}
	return TypeInfo{}, false
}

func isPossibleResourceOrDataTypeName(name string) bool {
	if name == "" {
		return false
	}
	return name[0] >= 'A' && name[0] <= 'Z'
}

func isDomainResource(resourceType string) bool { return !nonDomainResources[resourceType] }

// isSubtypeOf implements the Resource/DomainResource hierarchy check used
// by both GetType-adjacent reasoning and the TypeCheck/TypeCast evaluator
// paths (component F).
func isSubtypeOf(actualType, baseType string) bool {
	if actualType == baseType {
		return true
	}
	if strings.EqualFold(actualType, baseType) {
		return true
	}
	switch {
	case strings.EqualFold(baseType, "Resource"):
		return isPossibleResourceOrDataTypeName(actualType) && !isFHIRPrimitiveName(actualType)
	case strings.EqualFold(baseType, "DomainResource"):
		return isPossibleResourceOrDataTypeName(actualType) && !isFHIRPrimitiveName(actualType) && isDomainResource(actualType)
	}
	return false
}

// TypeMatches checks actualType against typeName per spec §4.5 items 14-15:
// case-insensitive match, Resource/DomainResource subtyping, FHIR-primitive
// to System-type aliasing, and System./FHIR. namespace prefixes. Exported
// for the evaluator's TypeCheck/TypeCast handling.
func TypeMatches(actualType, typeName string) bool {
	if actualType == typeName {
		return true
	}
	actualLower := strings.ToLower(actualType)
	typeNameLower := strings.ToLower(typeName)
	if actualLower == typeNameLower {
		return true
	}
	if isSubtypeOf(actualType, typeName) {
		return true
	}
	if sys, ok := fhirPrimitiveToSystem[typeNameLower]; ok && actualType == sys {
		return true
	}
	if sys, ok := fhirPrimitiveToSystem[actualLower]; ok && strings.EqualFold(sys, typeName) {
		return true
	}
	if strings.HasPrefix(typeNameLower, "system.") {
		if strings.EqualFold(actualType, typeName[len("System."):]) {
			return true
		}
	}
	if strings.HasPrefix(typeNameLower, "fhir.") {
		if strings.EqualFold(actualType, typeName[len("FHIR."):]) {
			return true
		}
	}
	return false
}
