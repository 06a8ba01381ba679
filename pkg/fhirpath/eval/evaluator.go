package eval

import (
	"fmt"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/registry"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Evaluator walks a parsed ast.Node against a Context, dispatching
// functions and operators through a registry.Registry. One Evaluator is
// safe for concurrent use across independent Contexts (spec §5): it holds
// no mutable per-evaluation state itself.
type Evaluator struct {
	registry *registry.Registry
}

func NewEvaluator(reg *registry.Registry) *Evaluator {
	if reg == nil {
		reg = registry.Default()
	}
	return &Evaluator{registry: reg}
}

// Eval dispatches node against ctx, per spec §4.5's items 1-15.
func (e *Evaluator) Eval(ctx *Context, node ast.Node) (types.Value, error) {
	leave, err := ctx.enterDepth()
	defer leave()
	if err != nil {
		return nil, err
	}
	if err := ctx.CheckCancellation(); err != nil {
		return nil, err
	}

	switch n := node.(type) {
	case ast.Literal:
		return e.evalLiteral(n)
	case ast.Identifier:
		return e.navigate(ctx, ctx.Input(), n.Name)
	case ast.Variable:
		return e.evalVariable(ctx, n)
	case ast.Path:
		return e.evalPath(ctx, n)
	case ast.Index:
		return e.evalIndex(ctx, n)
	case ast.FunctionCall:
		return e.evalCall(ctx, n.Name, nil, n.Args)
	case ast.MethodCall:
		recv, err := e.Eval(ctx, n.Receiver)
		if err != nil {
			return nil, err
		}
		return e.evalCall(ctx, n.Name, &recv, n.Args)
	case ast.BinaryOp:
		return e.evalBinary(ctx, n)
	case ast.UnaryOp:
		return e.evalUnary(ctx, n)
	case ast.Conditional:
		return e.evalConditional(ctx, n)
	case ast.Filter:
		return e.evalFilter(ctx, n)
	case ast.Union:
		lhs, err := e.Eval(ctx, n.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := e.Eval(ctx, n.RHS)
		if err != nil {
			return nil, err
		}
		return collOrEmpty(types.Normalize(lhs, rhs)), nil
	case ast.TypeCheck:
		return e.evalTypeCheck(ctx, n)
	case ast.TypeCast:
		return e.evalTypeCast(ctx, n)
	case ast.Lambda:
		// A bare Lambda should never reach Eval directly: lambda-form
		// operations evaluate n.Body themselves with a rebound focus.
		return e.Eval(ctx, n.Body)
	}
	return nil, fmt.Errorf("eval: unsupported node %T", node)
}

func collOrEmpty(c types.Collection) types.Value {
	if c.Empty() {
		return types.Empty
	}
	return c
}

func (e *Evaluator) evalLiteral(l ast.Literal) (types.Value, error) {
	switch l.Kind {
	case ast.LitNull:
		return types.Empty, nil
	case ast.LitBool:
		return types.NewBoolean(l.Bool), nil
	case ast.LitString:
		return types.NewString(l.Str), nil
	case ast.LitInteger:
		var i int64
		if _, err := fmt.Sscanf(l.Text, "%d", &i); err != nil {
			return nil, fmt.Errorf("invalid integer literal %q", l.Text)
		}
		return types.NewInteger(i), nil
	case ast.LitDecimal:
		d, err := types.NewDecimal(l.Text)
		if err != nil {
			return nil, err
		}
		return d, nil
	case ast.LitDate:
		d, err := types.NewDate(l.Text)
		if err != nil {
			return nil, err
		}
		return d, nil
	case ast.LitDateTime:
		dt, err := types.NewDateTime(l.Text)
		if err != nil {
			return nil, err
		}
		return dt, nil
	case ast.LitTime:
		t, err := types.NewTime(l.Text)
		if err != nil {
			return nil, err
		}
		return t, nil
	case ast.LitQuantity:
		q, err := types.NewQuantity(l.Text + " '" + l.Unit + "'")
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return types.Empty, nil
}

func (e *Evaluator) evalVariable(ctx *Context, v ast.Variable) (types.Value, error) {
	val, ok := ctx.GetVariable(v.Name)
	if !ok {
		return nil, fmt.Errorf("undefined variable %%%s", v.Name)
	}
	return val, nil
}

// evalPath evaluates Base then navigates Segment per-item against the
// resulting focus, flattening the per-item results (spec §4.5's path
// navigation + the "Collection flattening invariant" of §3.1).
func (e *Evaluator) evalPath(ctx *Context, p ast.Path) (types.Value, error) {
	base, err := e.Eval(ctx, p.Base)
	if err != nil {
		return nil, err
	}
	items := types.Normalize(base)
	out := types.NewCollectionWithCap(len(items))
	for _, item := range items {
		segCtx := ctx.withFocus(item)
		res, err := e.Eval(segCtx, p.Segment)
		if err != nil {
			return nil, err
		}
		out = types.Normalize(out, res)
	}
	return collOrEmpty(out), nil
}

func (e *Evaluator) evalIndex(ctx *Context, ix ast.Index) (types.Value, error) {
	base, err := e.Eval(ctx, ix.Base)
	if err != nil {
		return nil, err
	}
	idxVal, err := e.Eval(ctx, ix.Index)
	if err != nil {
		return nil, err
	}
	idxVal, err = types.AsSingleton(idxVal)
	if err != nil {
		return types.Empty, nil
	}
	iv, ok := idxVal.(types.Integer)
	if !ok {
		return nil, fmt.Errorf("index expression must be an Integer")
	}
	items := types.Normalize(base)
	i := int(iv.Value())
	if i < 0 || i >= len(items) {
		return types.Empty, nil
	}
	return items[i], nil
}

// navigate resolves a single property name against a single item (the
// per-item step of evalPath and the bare-Identifier case), including FHIR
// choice-type (value[x]) resolution via the ModelProvider (spec §4.5.2).
func (e *Evaluator) navigate(ctx *Context, focus types.Value, name string) (types.Value, error) {
	items := types.Normalize(focus)
	out := types.NewCollectionWithCap(len(items))
	for _, item := range items {
		res, err := e.navigateOne(ctx, item, name)
		if err != nil {
			return nil, err
		}
		out = types.Normalize(out, res)
	}
	if len(items) == 0 {
		// Bare reference to a resource-type name (e.g. the expression
		// "Patient" evaluated with no prior focus) resolves against root.
		if ctx.root != nil {
			if obj, ok := types.Unwrap(ctx.root).(*types.ObjectValue); ok && obj.Type() == name {
				return ctx.root, nil
			}
		}
		return types.Empty, nil
	}
	return collOrEmpty(out), nil
}

func (e *Evaluator) navigateOne(ctx *Context, item types.Value, name string) (types.Value, error) {
	switch v := types.Unwrap(item).(type) {
	case *types.ObjectValue:
		// A leading resource-type filter: `Bundle.entry.resource.Patient`.
		if v.Type() == name {
			return item, nil
		}
		if coll := v.GetCollection(name); !coll.Empty() {
			return coll, nil
		}
		if e.registry != nil && ctx.ModelProvider() != nil {
			parent := model.Resource(v.Type())
			if res, ok, err := ctx.ModelProvider().ResolveChoice(ctx, parent, name, v.Data()); err == nil && ok {
				if coll := v.GetCollection(res.PropertyName); !coll.Empty() {
					return coll, nil
				}
			}
		}
		return types.Empty, nil
	case types.TypeInfoObject:
		switch name {
		case "namespace":
			return types.NewString(v.Namespace), nil
		case "name":
			return types.NewString(v.Name), nil
		}
		return types.Empty, nil
	default:
		return types.Empty, nil
	}
}

func (e *Evaluator) evalConditional(ctx *Context, c ast.Conditional) (types.Value, error) {
	cond, err := e.Eval(ctx, c.Cond)
	if err != nil {
		return nil, err
	}
	if types.IsTruthy(cond) {
		return e.Eval(ctx, c.Then)
	}
	if c.Else == nil {
		return types.Empty, nil
	}
	return e.Eval(ctx, c.Else)
}

func (e *Evaluator) evalFilter(ctx *Context, f ast.Filter) (types.Value, error) {
	base, err := e.Eval(ctx, f.Base)
	if err != nil {
		return nil, err
	}
	return e.whereLike(ctx, base, f.Cond)
}

func (e *Evaluator) whereLike(ctx *Context, base types.Value, criteria ast.Node) (types.Value, error) {
	items := types.Normalize(base)
	var out types.Collection
	total := types.Value(types.NewInteger(int64(len(items))))
	for i, item := range items {
		itemCtx := ctx.withLambdaVars(item, i, total)
		res, err := e.Eval(itemCtx, criteria)
		if err != nil {
			return nil, err
		}
		if types.IsTruthy(res) {
			out = append(out, item)
		}
	}
	return collOrEmpty(out), nil
}

func (e *Evaluator) evalTypeCheck(ctx *Context, t ast.TypeCheck) (types.Value, error) {
	v, err := e.Eval(ctx, t.Expr)
	if err != nil {
		return nil, err
	}
	v, err = types.AsSingleton(v)
	if err != nil {
		return types.NewBoolean(false), nil
	}
	if types.IsEmptyValue(v) {
		return types.Empty, nil
	}
	return types.NewBoolean(model.TypeMatches(types.TypeOf(v), t.TypeName)), nil
}

func (e *Evaluator) evalTypeCast(ctx *Context, t ast.TypeCast) (types.Value, error) {
	v, err := e.Eval(ctx, t.Expr)
	if err != nil {
		return nil, err
	}
	v, err = types.AsSingleton(v)
	if err != nil {
		return types.Empty, nil
	}
	if types.IsEmptyValue(v) {
		return types.Empty, nil
	}
	if model.TypeMatches(types.TypeOf(v), t.TypeName) {
		return v, nil
	}
	return types.Empty, nil
}

func (e *Evaluator) evalUnary(ctx *Context, u ast.UnaryOp) (types.Value, error) {
	operand, err := e.Eval(ctx, u.Operand)
	if err != nil {
		return nil, err
	}
	if u.Op == ast.UnaryNot {
		if types.IsEmptyValue(operand) {
			return types.Empty, nil
		}
		v, err := types.AsSingleton(operand)
		if err != nil {
			return nil, err
		}
		b, ok := v.(types.Boolean)
		if !ok {
			return nil, fmt.Errorf("not: expected Boolean, got %s", v.Type())
		}
		return b.Not(), nil
	}
	name := "unary+"
	if u.Op == ast.UnaryMinus {
		name = "unary-"
	}
	op, ok := e.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("no operator registered for %s", name)
	}
	out, _, err := op.TrySync(ctx, []types.Value{operand})
	return out, err
}
