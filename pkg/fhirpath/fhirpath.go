package fhirpath

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Collection is an alias for types.Collection for easier external use.
type Collection = types.Collection

// Value is an alias for types.Value for easier external use.
type Value = types.Value

// Evaluate parses and evaluates expr against a JSON resource in one step.
// Prefer Compile (or EvaluateCached) when the same expression is run
// repeatedly, to avoid re-parsing it each time.
func Evaluate(resource []byte, expr string) (Collection, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(resource)
}

// MustEvaluate is like Evaluate but panics on error.
func MustEvaluate(resource []byte, expr string) Collection {
	result, err := Evaluate(resource, expr)
	if err != nil {
		panic(err)
	}
	return result
}

// Compile parses expr into a reusable, repeatedly-evaluatable Expression.
func Compile(expr string) (*Expression, error) {
	return compile(expr)
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Expression {
	compiled, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return compiled
}

// Analyze parses and statically checks expr, returning diagnostics without
// evaluating anything.
func Analyze(expr string, opts ...AnalyzeOption) (*AnalysisResult, error) {
	return analyze(expr, opts...)
}
