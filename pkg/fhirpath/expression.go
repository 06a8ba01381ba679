package fhirpath

import (
	"context"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Expression represents a compiled FHIRPath expression, parsed once and
// evaluatable many times against different resources.
type Expression struct {
	source string
	tree   ast.Node
}

// Evaluate executes the expression against a JSON resource using the
// default model provider (R4Provider), registry, and limits.
func (e *Expression) Evaluate(resource []byte) (Collection, error) {
	return e.EvaluateWithOptions(resource)
}

// EvaluateWithContext executes the expression with a caller-built eval
// context, for callers that need full control (a custom ModelProvider,
// pre-seeded variables, an existing evaluator/registry).
func (e *Expression) EvaluateWithContext(evaluator *eval.Evaluator, ctx *eval.Context) (Collection, error) {
	v, err := evaluator.Eval(ctx, e.tree)
	if err != nil {
		return nil, err
	}
	return types.Normalize(v), nil
}

// String returns the original expression source text.
func (e *Expression) String() string {
	return e.source
}

func newDefaultContext(goCtx context.Context, resource []byte, provider model.ModelProvider, terminology model.TerminologyProvider, limits eval.Limits) (*eval.Context, error) {
	root, err := types.JSONToCollection(resource)
	if err != nil {
		return nil, err
	}
	return eval.NewContext(goCtx, collOrEmptyValue(root), provider, terminology, limits), nil
}

func collOrEmptyValue(c types.Collection) types.Value {
	if c.Empty() {
		return types.Empty
	}
	return c
}
