package eval

import (
	"fmt"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// evalBinary implements spec §3.4's binary operator set. and/or/xor/implies
// get three-valued short-circuit handling here (registry entries for them
// carry metadata only, per DESIGN.md); everything else eager-evaluates
// both sides and dispatches through the registry.
func (e *Evaluator) evalBinary(ctx *Context, b ast.BinaryOp) (types.Value, error) {
	switch b.Op {
	case "and":
		return e.evalAnd(ctx, b)
	case "or":
		return e.evalOr(ctx, b)
	case "xor":
		return e.evalXor(ctx, b)
	case "implies":
		return e.evalImplies(ctx, b)
	}

	lhs, err := e.Eval(ctx, b.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := e.Eval(ctx, b.RHS)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case "=", "!=", "~", "!~", "|":
		// Collection-shaped operators: operate on the full (possibly
		// multi-element) values, not a forced singleton.
	default:
		if lhs, err = types.AsSingleton(orEmpty(lhs)); err != nil {
			return types.Empty, nil
		}
		if rhs, err = types.AsSingleton(orEmpty(rhs)); err != nil {
			return types.Empty, nil
		}
	}

	op, ok := e.registry.Get(b.Op)
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", b.Op)
	}
	if op.TrySync == nil {
		return nil, fmt.Errorf("operator %q has no synchronous implementation", b.Op)
	}
	out, _, err := op.TrySync(ctx, []types.Value{lhs, rhs})
	return out, err
}

func orEmpty(v types.Value) types.Value {
	if v == nil {
		return types.Empty
	}
	return v
}

// threeValued represents FHIRPath's true/false/empty truth values.
type threeValued int

const (
	tvEmpty threeValued = iota
	tvTrue
	tvFalse
)

func toThreeValued(v types.Value) (threeValued, error) {
	if types.IsEmptyValue(v) {
		return tvEmpty, nil
	}
	singleton, err := types.AsSingleton(v)
	if err != nil {
		return tvEmpty, nil
	}
	if types.IsEmptyValue(singleton) {
		return tvEmpty, nil
	}
	b, ok := singleton.(types.Boolean)
	if !ok {
		return tvEmpty, fmt.Errorf("expected Boolean operand, got %s", singleton.Type())
	}
	if b.Bool() {
		return tvTrue, nil
	}
	return tvFalse, nil
}

func (tv threeValued) toValue() types.Value {
	switch tv {
	case tvTrue:
		return types.NewBoolean(true)
	case tvFalse:
		return types.NewBoolean(false)
	default:
		return types.Empty
	}
}

func (e *Evaluator) evalAnd(ctx *Context, b ast.BinaryOp) (types.Value, error) {
	lv, err := e.Eval(ctx, b.LHS)
	if err != nil {
		return nil, err
	}
	l, err := toThreeValued(lv)
	if err != nil {
		return nil, err
	}
	if l == tvFalse {
		return types.NewBoolean(false), nil
	}
	rv, err := e.Eval(ctx, b.RHS)
	if err != nil {
		return nil, err
	}
	r, err := toThreeValued(rv)
	if err != nil {
		return nil, err
	}
	if r == tvFalse {
		return types.NewBoolean(false), nil
	}
	if l == tvTrue && r == tvTrue {
		return types.NewBoolean(true), nil
	}
	return types.Empty, nil
}

func (e *Evaluator) evalOr(ctx *Context, b ast.BinaryOp) (types.Value, error) {
	lv, err := e.Eval(ctx, b.LHS)
	if err != nil {
		return nil, err
	}
	l, err := toThreeValued(lv)
	if err != nil {
		return nil, err
	}
	if l == tvTrue {
		return types.NewBoolean(true), nil
	}
	rv, err := e.Eval(ctx, b.RHS)
	if err != nil {
		return nil, err
	}
	r, err := toThreeValued(rv)
	if err != nil {
		return nil, err
	}
	if r == tvTrue {
		return types.NewBoolean(true), nil
	}
	if l == tvFalse && r == tvFalse {
		return types.NewBoolean(false), nil
	}
	return types.Empty, nil
}

func (e *Evaluator) evalXor(ctx *Context, b ast.BinaryOp) (types.Value, error) {
	lv, err := e.Eval(ctx, b.LHS)
	if err != nil {
		return nil, err
	}
	l, err := toThreeValued(lv)
	if err != nil {
		return nil, err
	}
	rv, err := e.Eval(ctx, b.RHS)
	if err != nil {
		return nil, err
	}
	r, err := toThreeValued(rv)
	if err != nil {
		return nil, err
	}
	if l == tvEmpty || r == tvEmpty {
		return types.Empty, nil
	}
	return types.NewBoolean(l != r), nil
}

func (e *Evaluator) evalImplies(ctx *Context, b ast.BinaryOp) (types.Value, error) {
	lv, err := e.Eval(ctx, b.LHS)
	if err != nil {
		return nil, err
	}
	l, err := toThreeValued(lv)
	if err != nil {
		return nil, err
	}
	if l == tvFalse {
		return types.NewBoolean(true), nil
	}
	rv, err := e.Eval(ctx, b.RHS)
	if err != nil {
		return nil, err
	}
	r, err := toThreeValued(rv)
	if err != nil {
		return nil, err
	}
	if l == tvTrue {
		return r.toValue(), nil
	}
	// l == tvEmpty
	if r == tvTrue {
		return types.NewBoolean(true), nil
	}
	return types.Empty, nil
}
