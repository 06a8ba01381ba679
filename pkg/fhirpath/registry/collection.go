package registry

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// registerCollection installs the existence/subsetting/combining catalog
// (spec §4.4 Collection group), grounded on the teacher's
// funcs/existence.go and funcs/subsetting.go. Lambda-shaped forms
// (where/select/all/any/repeat/aggregate/sort/iif, and exists with a
// criteria argument) are intercepted directly by the evaluator per spec
// §4.5.1. All but exists are registered here only as IsLambda metadata
// stubs for the analyzer/LSP surface; exists is registered below as a
// plain no-argument function.
func registerCollection(r *Registry) {
	sync := func(name string, minArgs, maxArgs int, summary string, fn func(ctx EvalContext, args []types.Value) (types.Value, error)) {
		r.Register(&Operation{
			Identifier: name,
			Type:       OperationType{Kind: KindFunction},
			MinArgs:    minArgs,
			MaxArgs:    maxArgs,
			Metadata: OperationMetadata{
				Summary:     summary,
				Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true},
			},
			TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
				v, err := fn(ctx, args)
				if err != nil {
					return nil, false, err
				}
				return v, true, nil
			},
		})
	}

	sync("empty", 0, 0, "True if the input collection has no items.", func(ctx EvalContext, _ []types.Value) (types.Value, error) {
		return types.NewBoolean(types.Normalize(ctx.Input()).Empty()), nil
	})

	sync("exists", 0, 0, "True if the input collection has at least one item (no-criteria form).", func(ctx EvalContext, _ []types.Value) (types.Value, error) {
		return types.NewBoolean(!types.Normalize(ctx.Input()).Empty()), nil
	})

	sync("count", 0, 0, "The number of items in the input collection.", func(ctx EvalContext, _ []types.Value) (types.Value, error) {
		return types.NewInteger(int64(types.Normalize(ctx.Input()).Count())), nil
	})

	sync("distinct", 0, 0, "The input collection with duplicates removed.", func(ctx EvalContext, _ []types.Value) (types.Value, error) {
		return collOrEmpty(types.Normalize(ctx.Input()).Distinct()), nil
	})

	sync("isDistinct", 0, 0, "True if the input collection has no duplicates.", func(ctx EvalContext, _ []types.Value) (types.Value, error) {
		return types.NewBoolean(types.Normalize(ctx.Input()).IsDistinct()), nil
	})

	sync("first", 0, 0, "The first item of the input collection.", func(ctx EvalContext, _ []types.Value) (types.Value, error) {
		v, ok := types.Normalize(ctx.Input()).First()
		if !ok {
			return types.Empty, nil
		}
		return v, nil
	})

	sync("last", 0, 0, "The last item of the input collection.", func(ctx EvalContext, _ []types.Value) (types.Value, error) {
		v, ok := types.Normalize(ctx.Input()).Last()
		if !ok {
			return types.Empty, nil
		}
		return v, nil
	})

	sync("tail", 0, 0, "All items except the first.", func(ctx EvalContext, _ []types.Value) (types.Value, error) {
		return collOrEmpty(types.Normalize(ctx.Input()).Tail()), nil
	})

	sync("skip", 1, 1, "All items after skipping the first `num`.", func(ctx EvalContext, args []types.Value) (types.Value, error) {
		n, ok := args[0].(types.Integer)
		if !ok {
			return nil, typeErr("skip", args[0])
		}
		return collOrEmpty(types.Normalize(ctx.Input()).Skip(int(n.Value()))), nil
	})

	sync("take", 1, 1, "The first `num` items.", func(ctx EvalContext, args []types.Value) (types.Value, error) {
		n, ok := args[0].(types.Integer)
		if !ok {
			return nil, typeErr("take", args[0])
		}
		return collOrEmpty(types.Normalize(ctx.Input()).Take(int(n.Value()))), nil
	})

	sync("single", 0, 0, "The single item of the input collection; errors if there is more than one.", func(ctx EvalContext, _ []types.Value) (types.Value, error) {
		v, err := types.Normalize(ctx.Input()).Single()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return types.Empty, nil
		}
		return v, nil
	})

	sync("combine", 1, 1, "Merges the input with `other`, without removing duplicates.", func(ctx EvalContext, args []types.Value) (types.Value, error) {
		return collOrEmpty(types.Normalize(ctx.Input()).Combine(types.Normalize(args[0]))), nil
	})

	sync("intersect", 1, 1, "Items present in both the input and `other`.", func(ctx EvalContext, args []types.Value) (types.Value, error) {
		return collOrEmpty(types.Normalize(ctx.Input()).Intersect(types.Normalize(args[0]))), nil
	})

	sync("exclude", 1, 1, "Items from the input not present in `other`.", func(ctx EvalContext, args []types.Value) (types.Value, error) {
		return collOrEmpty(types.Normalize(ctx.Input()).Exclude(types.Normalize(args[0]))), nil
	})

	sync("subsetOf", 1, 1, "True if every input item is present in `other`.", func(ctx EvalContext, args []types.Value) (types.Value, error) {
		input := types.Normalize(ctx.Input())
		other := types.Normalize(args[0])
		for _, item := range input {
			if !other.Contains(item) {
				return types.NewBoolean(false), nil
			}
		}
		return types.NewBoolean(true), nil
	})

	sync("supersetOf", 1, 1, "True if every item of `other` is present in the input.", func(ctx EvalContext, args []types.Value) (types.Value, error) {
		input := types.Normalize(ctx.Input())
		other := types.Normalize(args[0])
		for _, item := range other {
			if !input.Contains(item) {
				return types.NewBoolean(false), nil
			}
		}
		return types.NewBoolean(true), nil
	})

	// Lambda-shaped forms: metadata only (analyzer/LSP); evaluation happens
	// inline in the evaluator per spec §4.5.1.
	lambdaStub := func(name, summary string) {
		r.Register(&Operation{
			Identifier: name,
			Type:       OperationType{Kind: KindFunction},
			MinArgs:    0,
			MaxArgs:    -1,
			IsLambda:   true,
			Metadata: OperationMetadata{
				Summary:     summary,
				Parameters:  []ParameterConstraint{{Name: "criteria", Type: LambdaConstraint()}},
				Performance: PerformanceHints{SupportsSync: false, Pure: true, Cacheable: false},
			},
		})
	}
	lambdaStub("where", "Filters the input to items for which `criteria` is true.")
	lambdaStub("select", "Projects each input item through `projection`, flattening the result.")
	lambdaStub("all", "True if `criteria` holds for every input item.")
	lambdaStub("any", "True if `criteria` holds for at least one input item.")
	lambdaStub("repeat", "Repeatedly applies `projection`, collecting new (structurally distinct) results until none remain.")
	lambdaStub("aggregate", "Folds the input with `aggregator`, threading $total, seeded with the optional `init`.")
	lambdaStub("sort", "Sorts the input by the given key expressions.")
	lambdaStub("iif", "Evaluates `then`/`else` based on `condition`.")
}

func collOrEmpty(c types.Collection) types.Value {
	if c.Empty() {
		return types.Empty
	}
	return c
}
