package registry

import (
	"errors"
	"fmt"
	"math"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// foldUndefined turns an ArithmeticUndefinedError into Empty, per
// FHIRPath's rule that an undefined arithmetic result (division by zero,
// a non-real root, an out-of-domain logarithm) is Empty rather than a
// raised error.
func foldUndefined(v types.Value, err error) (types.Value, bool, error) {
	if err == nil {
		return v, true, nil
	}
	var undefined *types.ArithmeticUndefinedError
	if errors.As(err, &undefined) {
		return types.Empty, true, nil
	}
	return nil, false, err
}

// registerMath installs the arithmetic function catalog (spec §4.4), ported
// from the teacher's funcs/math.go fnAbs/fnCeiling/... family, adapted to
// operate against the focus singleton via ctx.Input() rather than a
// positional input parameter.
func registerMath(r *Registry) {
	unary := func(name, summary string, fn func(types.Value) (types.Value, error)) {
		r.Register(&Operation{
			Identifier: name,
			Type:       OperationType{Kind: KindFunction},
			MinArgs:    0,
			MaxArgs:    0,
			Metadata: OperationMetadata{
				Summary:     summary,
				Return:      NumericConstraint(),
				Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true},
			},
			TrySync: func(ctx EvalContext, _ []types.Value) (types.Value, bool, error) {
				v, err := types.AsSingleton(ctx.Input())
				if err != nil {
					return nil, false, err
				}
				if types.IsEmptyValue(v) {
					return types.Empty, true, nil
				}
				out, err := fn(v)
				return foldUndefined(out, err)
			},
		})
	}

	unary("abs", "Returns the absolute value.", func(v types.Value) (types.Value, error) {
		switch n := v.(type) {
		case types.Integer:
			return n.Abs(), nil
		case types.Decimal:
			return n.Abs(), nil
		case types.Quantity:
			if n.Value().IsNegative() {
				return types.NewQuantityFromDecimal(n.Value().Neg(), n.Unit()), nil
			}
			return n, nil
		}
		return nil, typeErr("abs", v)
	})

	unary("ceiling", "Returns the smallest integer >= the input.", func(v types.Value) (types.Value, error) {
		switch n := v.(type) {
		case types.Integer:
			return n, nil
		case types.Decimal:
			return n.Ceiling(), nil
		}
		return nil, typeErr("ceiling", v)
	})

	unary("floor", "Returns the largest integer <= the input.", func(v types.Value) (types.Value, error) {
		switch n := v.(type) {
		case types.Integer:
			return n, nil
		case types.Decimal:
			return n.Floor(), nil
		}
		return nil, typeErr("floor", v)
	})

	unary("truncate", "Returns the integer part, truncated toward zero.", func(v types.Value) (types.Value, error) {
		switch n := v.(type) {
		case types.Integer:
			return n, nil
		case types.Decimal:
			return n.Truncate(), nil
		}
		return nil, typeErr("truncate", v)
	})

	unary("exp", "Returns e raised to the power of the input.", func(v types.Value) (types.Value, error) {
		d, ok := asDecimal(v)
		if !ok {
			return nil, typeErr("exp", v)
		}
		return d.Exp(), nil
	})

	unary("ln", "Returns the natural logarithm of the input.", func(v types.Value) (types.Value, error) {
		d, ok := asDecimal(v)
		if !ok {
			return nil, typeErr("ln", v)
		}
		if d.Value().Sign() <= 0 {
			return types.Empty, nil
		}
		return d.Ln()
	})

	unary("sqrt", "Returns the square root of the input.", func(v types.Value) (types.Value, error) {
		d, ok := asDecimal(v)
		if !ok {
			return nil, typeErr("sqrt", v)
		}
		if d.Value().IsNegative() {
			return types.Empty, nil
		}
		return d.Sqrt()
	})

	binary := func(name, summary string, fn func(types.Value, types.Value) (types.Value, error)) {
		r.Register(&Operation{
			Identifier: name,
			Type:       OperationType{Kind: KindFunction},
			MinArgs:    1,
			MaxArgs:    1,
			IsLambda:   false,
			Metadata: OperationMetadata{
				Summary:     summary,
				Return:      NumericConstraint(),
				Parameters:  []ParameterConstraint{{Name: "arg", Type: NumericConstraint()}},
				Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true},
			},
			TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
				v, err := types.AsSingleton(ctx.Input())
				if err != nil {
					return nil, false, err
				}
				if types.IsEmptyValue(v) || len(args) == 0 || types.IsEmptyValue(args[0]) {
					return types.Empty, true, nil
				}
				out, err := fn(v, args[0])
				return foldUndefined(out, err)
			},
		})
	}

	binary("power", "Raises the input to the given power.", func(base, exp types.Value) (types.Value, error) {
		b, ok1 := asDecimal(base)
		e, ok2 := asDecimal(exp)
		if !ok1 || !ok2 {
			return nil, typeErr("power", base)
		}
		result := b.Power(e)
		if result.Value().InexactFloat64() != 0 && math.IsNaN(result.Value().InexactFloat64()) {
			return types.Empty, nil
		}
		return result, nil
	})

	binary("log", "Returns the logarithm base `arg` of the input.", func(v, base types.Value) (types.Value, error) {
		d, ok1 := asDecimal(v)
		b, ok2 := asDecimal(base)
		if !ok1 || !ok2 {
			return nil, typeErr("log", v)
		}
		return d.Log(b)
	})

	r.Register(&Operation{
		Identifier: "round",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    1,
		Metadata: OperationMetadata{
			Summary:     "Rounds the input to the given number of decimal places (default 0).",
			Return:      NumericConstraint(),
			Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true},
		},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			v, err := types.AsSingleton(ctx.Input())
			if err != nil {
				return nil, false, err
			}
			if types.IsEmptyValue(v) {
				return types.Empty, true, nil
			}
			precision := int32(0)
			if len(args) > 0 {
				if iv, ok := args[0].(types.Integer); ok {
					precision = int32(iv.Value())
				}
			}
			switch n := v.(type) {
			case types.Integer:
				return n, true, nil
			case types.Decimal:
				return n.Round(precision), true, nil
			}
			return nil, false, typeErr("round", v)
		},
	})

	aggregateNumeric := func(name, summary string, fold func([]types.Value) (types.Value, error)) {
		r.Register(&Operation{
			Identifier: name,
			Type:       OperationType{Kind: KindFunction},
			MinArgs:    0,
			MaxArgs:    0,
			Metadata: OperationMetadata{
				Summary:     summary,
				Return:      NumericConstraint(),
				Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true},
			},
			TrySync: func(ctx EvalContext, _ []types.Value) (types.Value, bool, error) {
				coll := types.Normalize(ctx.Input())
				out, err := fold([]types.Value(coll))
				if err != nil {
					return nil, false, err
				}
				return out, true, nil
			},
		})
	}

	aggregateNumeric("sum", "Returns the sum of the numeric items in the input.", func(items []types.Value) (types.Value, error) {
		if len(items) == 0 {
			return types.NewInteger(0), nil
		}
		var sum types.Decimal
		allInt := true
		for _, it := range items {
			d, ok := asDecimal(it)
			if !ok {
				return types.Empty, nil
			}
			if _, isInt := it.(types.Integer); !isInt {
				allInt = false
			}
			sum = sum.Add(d)
		}
		if allInt {
			iv, _ := sum.ToInteger()
			return iv, nil
		}
		return sum, nil
	})

	aggregateNumeric("avg", "Returns the average of the numeric items in the input.", func(items []types.Value) (types.Value, error) {
		if len(items) == 0 {
			return types.Empty, nil
		}
		var sum types.Decimal
		for _, it := range items {
			d, ok := asDecimal(it)
			if !ok {
				return types.Empty, nil
			}
			sum = sum.Add(d)
		}
		return sum.Divide(types.NewDecimalFromInt(int64(len(items))))
	})

	minmax := func(name string, keepIfBetter func(cmp int) bool, summary string) {
		aggregateNumeric(name, summary, func(items []types.Value) (types.Value, error) {
			if len(items) == 0 {
				return types.Empty, nil
			}
			best := items[0]
			cmp, ok := best.(types.Comparable)
			if !ok {
				return types.Empty, nil
			}
			_ = cmp
			for _, it := range items[1:] {
				bc, ok1 := best.(types.Comparable)
				if !ok1 {
					return types.Empty, nil
				}
				c, err := bc.Compare(it)
				if err != nil {
					return types.Empty, nil
				}
				if keepIfBetter(c) {
					best = it
				}
			}
			return best, nil
		})
	}
	minmax("min", func(c int) bool { return c > 0 }, "Returns the minimum item in the input.")
	minmax("max", func(c int) bool { return c < 0 }, "Returns the maximum item in the input.")
}

func asDecimal(v types.Value) (types.Decimal, bool) {
	switch n := v.(type) {
	case types.Integer:
		return n.ToDecimal(), true
	case types.Decimal:
		return n, true
	}
	return types.Decimal{}, false
}

func typeErr(op string, v types.Value) error {
	return fmt.Errorf("%s: unsupported operand type %s", op, v.Type())
}
