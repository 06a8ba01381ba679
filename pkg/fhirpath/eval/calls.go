package eval

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// evalCall dispatches a function/method invocation. receiver is nil for a
// bare FunctionCall (the focus is ctx.Input()); otherwise it is the
// evaluated MethodCall receiver. Lambda-shaped operations (spec §4.5.1)
// are intercepted here, ahead of the registry, since they need access to
// the raw, unevaluated argument AST to install a per-item scope.
func (e *Evaluator) evalCall(ctx *Context, name string, receiver *types.Value, argNodes []ast.Node) (types.Value, error) {
	focus := ctx.Input()
	if receiver != nil {
		focus = *receiver
	}
	focusCtx := ctx.withFocus(focus)

	switch name {
	case "where":
		if len(argNodes) != 1 {
			return nil, fmt.Errorf("where() takes exactly one argument")
		}
		return e.whereLike(focusCtx, focus, argNodes[0])
	case "select":
		return e.evalSelect(focusCtx, focus, argNodes)
	case "all":
		return e.evalAll(focusCtx, focus, argNodes)
	case "any":
		return e.evalAny(focusCtx, focus, argNodes)
	case "exists":
		// The no-criteria form is an ordinary registry entry (collection.go);
		// only the criteria form needs raw-AST lambda handling.
		if len(argNodes) == 1 {
			filtered, err := e.whereLike(focusCtx, focus, argNodes[0])
			if err != nil {
				return nil, err
			}
			return types.NewBoolean(!types.Normalize(filtered).Empty()), nil
		}
	case "repeat":
		return e.evalRepeat(focusCtx, focus, argNodes)
	case "aggregate":
		return e.evalAggregate(focusCtx, focus, argNodes)
	case "sort":
		return e.evalSort(focusCtx, focus, argNodes)
	case "iif":
		return e.evalIif(focusCtx, focus, argNodes)
	case "ofType":
		return e.evalOfType(focusCtx, focus, argNodes)
	case "is":
		return e.evalIsAsFunc(focusCtx, focus, argNodes, true)
	case "as":
		return e.evalIsAsFunc(focusCtx, focus, argNodes, false)
	case "children":
		return e.evalChildren(focus), nil
	case "descendants":
		return e.evalDescendants(focus), nil
	}

	op, ok := e.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	args := make([]types.Value, 0, len(argNodes))
	for _, a := range argNodes {
		v, err := e.Eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	if n := len(args); n < op.MinArgs || (op.MaxArgs >= 0 && n > op.MaxArgs) {
		return nil, fmt.Errorf("%s: expected between %d and %d arguments, got %d", name, op.MinArgs, op.MaxArgs, n)
	}
	if op.TrySync == nil {
		return nil, fmt.Errorf("function %q has no synchronous implementation", name)
	}
	out, _, err := op.TrySync(focusCtx, args)
	return out, err
}

func (e *Evaluator) evalSelect(ctx *Context, focus types.Value, argNodes []ast.Node) (types.Value, error) {
	if len(argNodes) != 1 {
		return nil, fmt.Errorf("select() takes exactly one argument")
	}
	items := types.Normalize(focus)
	total := types.Value(types.NewInteger(int64(len(items))))
	out := types.NewCollectionWithCap(len(items))
	for i, item := range items {
		res, err := e.Eval(ctx.withLambdaVars(item, i, total), argNodes[0])
		if err != nil {
			return nil, err
		}
		out = types.Normalize(out, res)
	}
	return collOrEmpty(out), nil
}

func (e *Evaluator) evalAll(ctx *Context, focus types.Value, argNodes []ast.Node) (types.Value, error) {
	if len(argNodes) != 1 {
		return nil, fmt.Errorf("all() takes exactly one argument")
	}
	items := types.Normalize(focus)
	total := types.Value(types.NewInteger(int64(len(items))))
	for i, item := range items {
		res, err := e.Eval(ctx.withLambdaVars(item, i, total), argNodes[0])
		if err != nil {
			return nil, err
		}
		if !types.IsTruthy(res) {
			return types.NewBoolean(false), nil
		}
	}
	return types.NewBoolean(true), nil
}

func (e *Evaluator) evalAny(ctx *Context, focus types.Value, argNodes []ast.Node) (types.Value, error) {
	if len(argNodes) != 1 {
		return nil, fmt.Errorf("any() takes exactly one argument")
	}
	items := types.Normalize(focus)
	total := types.Value(types.NewInteger(int64(len(items))))
	for i, item := range items {
		res, err := e.Eval(ctx.withLambdaVars(item, i, total), argNodes[0])
		if err != nil {
			return nil, err
		}
		if types.IsTruthy(res) {
			return types.NewBoolean(true), nil
		}
	}
	return types.NewBoolean(false), nil
}

// evalRepeat repeatedly applies projection to the frontier until no
// structurally-new items are produced, guarding against cycles and runaway
// iteration with ctx.limits.MaxRepeatRounds (spec §4.5.1).
func (e *Evaluator) evalRepeat(ctx *Context, focus types.Value, argNodes []ast.Node) (types.Value, error) {
	if len(argNodes) != 1 {
		return nil, fmt.Errorf("repeat() takes exactly one argument")
	}
	seen := map[string]bool{}
	var result types.Collection
	frontier := types.Normalize(focus)
	for _, item := range frontier {
		seen[item.String()] = true
	}
	rounds := 0
	limit := ctx.limits.MaxRepeatRounds
	if limit <= 0 {
		limit = DefaultLimits.MaxRepeatRounds
	}
	for len(frontier) > 0 {
		rounds++
		if rounds > limit {
			return nil, fmt.Errorf("repeat(): exceeded maximum of %d rounds", limit)
		}
		total := types.Value(types.NewInteger(int64(len(frontier))))
		var next types.Collection
		for i, item := range frontier {
			res, err := e.Eval(ctx.withLambdaVars(item, i, total), argNodes[0])
			if err != nil {
				return nil, err
			}
			for _, newItem := range types.Normalize(res) {
				key := newItem.String()
				if seen[key] {
					continue
				}
				seen[key] = true
				next = append(next, newItem)
				result = append(result, newItem)
			}
		}
		frontier = next
	}
	return collOrEmpty(result), nil
}

func (e *Evaluator) evalAggregate(ctx *Context, focus types.Value, argNodes []ast.Node) (types.Value, error) {
	if len(argNodes) < 1 || len(argNodes) > 2 {
		return nil, fmt.Errorf("aggregate() takes one or two arguments")
	}
	var acc types.Value = types.Empty
	if len(argNodes) == 2 {
		v, err := e.Eval(ctx, argNodes[1])
		if err != nil {
			return nil, err
		}
		acc = v
	}
	items := types.Normalize(focus)
	total := types.Value(types.NewInteger(int64(len(items))))
	for i, item := range items {
		itemCtx := ctx.withLambdaVars(item, i, total)
		itemCtx.total = acc
		res, err := e.Eval(itemCtx, argNodes[0])
		if err != nil {
			return nil, err
		}
		acc = res
	}
	return acc, nil
}

// evalSort implements stable multi-key sorting: each argument is a key
// expression, a leading unary `-` (surfaced as ast.UnaryOp{Op: UnaryMinus})
// requests descending order for that key; empty key values sort last,
// ascending (spec §4.5.1).
func (e *Evaluator) evalSort(ctx *Context, focus types.Value, argNodes []ast.Node) (types.Value, error) {
	items := append(types.Collection(nil), types.Normalize(focus)...)
	if len(argNodes) == 0 {
		slices.SortStableFunc(items, compareDefault)
		return collOrEmpty(items), nil
	}

	keys := make([]descending, len(argNodes))
	for i, n := range argNodes {
		if u, ok := n.(ast.UnaryOp); ok && u.Op == ast.UnaryMinus {
			keys[i] = descending{expr: u.Operand, desc: true}
		} else {
			keys[i] = descending{expr: n, desc: false}
		}
	}

	total := types.Value(types.NewInteger(int64(len(items))))
	var evalErr error
	sort.SliceStable(items, func(i, j int) bool {
		for _, k := range keys {
			vi, err := e.Eval(ctx.withLambdaVars(items[i], i, total), k.expr)
			if err != nil {
				evalErr = err
				return false
			}
			vj, err := e.Eval(ctx.withLambdaVars(items[j], j, total), k.expr)
			if err != nil {
				evalErr = err
				return false
			}
			c := compareDefault(vi, vj)
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return collOrEmpty(items), nil
}

type descending struct {
	expr ast.Node
	desc bool
}

// compareDefault orders Empty last, then delegates to Comparable.Compare.
func compareDefault(a, b types.Value) int {
	ae, be := types.IsEmptyValue(a), types.IsEmptyValue(b)
	if ae && be {
		return 0
	}
	if ae {
		return 1
	}
	if be {
		return -1
	}
	av, _ := types.AsSingleton(a)
	bv, _ := types.AsSingleton(b)
	ac, aok := av.(types.Comparable)
	if !aok {
		return 0
	}
	c, err := ac.Compare(bv)
	if err != nil {
		return 0
	}
	return c
}

func (e *Evaluator) evalIif(ctx *Context, focus types.Value, argNodes []ast.Node) (types.Value, error) {
	if len(argNodes) < 2 || len(argNodes) > 3 {
		return nil, fmt.Errorf("iif() takes two or three arguments")
	}
	cond, err := e.Eval(ctx, argNodes[0])
	if err != nil {
		return nil, err
	}
	if types.IsTruthy(cond) {
		return e.Eval(ctx, argNodes[1])
	}
	if len(argNodes) == 3 {
		return e.Eval(ctx, argNodes[2])
	}
	return types.Empty, nil
}

// typeNameFromArg extracts a dotted type specifier ("FHIR.Patient",
// "Quantity") from an argument AST shaped as nested ast.Path/ast.Identifier
// nodes (type specifiers are parsed as ordinary member-access chains since
// they are lexically identical to one).
func typeNameFromArg(n ast.Node) (string, bool) {
	switch v := n.(type) {
	case ast.Identifier:
		return v.Name, true
	case ast.Path:
		base, ok := typeNameFromArg(v.Base)
		if !ok {
			return "", false
		}
		seg, ok := typeNameFromArg(v.Segment)
		if !ok {
			return "", false
		}
		return base + "." + seg, true
	}
	return "", false
}

func (e *Evaluator) evalOfType(ctx *Context, focus types.Value, argNodes []ast.Node) (types.Value, error) {
	if len(argNodes) != 1 {
		return nil, fmt.Errorf("ofType() takes exactly one argument")
	}
	typeName, ok := typeNameFromArg(argNodes[0])
	if !ok {
		return nil, fmt.Errorf("ofType(): expected a type specifier")
	}
	items := types.Normalize(focus)
	out := types.NewCollectionWithCap(len(items))
	for _, item := range items {
		if model.TypeMatches(types.TypeOf(item), typeName) {
			out = append(out, item)
		}
	}
	return collOrEmpty(out), nil
}

func (e *Evaluator) evalIsAsFunc(ctx *Context, focus types.Value, argNodes []ast.Node, isCheck bool) (types.Value, error) {
	if len(argNodes) != 1 {
		return nil, fmt.Errorf("expected exactly one type-specifier argument")
	}
	typeName, ok := typeNameFromArg(argNodes[0])
	if !ok {
		return nil, fmt.Errorf("expected a type specifier")
	}
	v, err := types.AsSingleton(focus)
	if err != nil {
		if isCheck {
			return types.NewBoolean(false), nil
		}
		return types.Empty, nil
	}
	matches := model.TypeMatches(types.TypeOf(v), typeName)
	if isCheck {
		return types.NewBoolean(matches), nil
	}
	if matches {
		return v, nil
	}
	return types.Empty, nil
}

func (e *Evaluator) evalChildren(focus types.Value) types.Value {
	items := types.Normalize(focus)
	out := types.NewCollectionWithCap(len(items))
	for _, item := range items {
		if obj, ok := types.Unwrap(item).(*types.ObjectValue); ok {
			out = append(out, obj.Children()...)
		}
	}
	return collOrEmpty(out)
}

func (e *Evaluator) evalDescendants(focus types.Value) types.Value {
	var out types.Collection
	var walk func(types.Value)
	walk = func(v types.Value) {
		obj, ok := types.Unwrap(v).(*types.ObjectValue)
		if !ok {
			return
		}
		for _, child := range obj.Children() {
			out = append(out, child)
			walk(child)
		}
	}
	for _, item := range types.Normalize(focus) {
		walk(item)
	}
	return collOrEmpty(out)
}
