package registry

import (
	"errors"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// registerOperators installs binary/unary operator Operations (spec §3.4's
// precedence table, §4.5.3's promotion rules), ported from the teacher's
// eval/operators.go Add/Subtract/Multiply/Divide/IntegerDivide/Mod family.
// The evaluator dispatches every other binary operator through its
// TrySync, but performs three-valued short-circuiting for and/or/xor/
// implies itself (spec §4.5 item 7), since that requires withholding
// evaluation of the right operand.
func registerOperators(r *Registry) {
	arith := func(op string, precedence int, fn func(l, r types.Value) (types.Value, error)) {
		r.Register(&Operation{
			Identifier: op,
			Type:       OperationType{Kind: KindBinaryOperator, Precedence: precedence, Associativity: AssocLeft},
			MinArgs:    2,
			MaxArgs:    2,
			Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
			TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
				l, r := types.Unwrap(args[0]), types.Unwrap(args[1])
				if types.IsEmptyValue(l) || types.IsEmptyValue(r) {
					return types.Empty, true, nil
				}
				out, err := fn(l, r)
				if err != nil {
					var undefined *types.ArithmeticUndefinedError
					if errors.As(err, &undefined) {
						// Division/modulo by zero and similar domain
						// errors yield Empty per FHIRPath, not a raised
						// evaluation error.
						return types.Empty, true, nil
					}
					return nil, false, err
				}
				return out, true, nil
			},
		})
	}

	arith("+", 5, Add)
	arith("-", 5, Subtract)
	arith("*", 4, Multiply)
	arith("/", 4, Divide)
	arith("div", 4, IntegerDivide)
	arith("mod", 4, Modulo)

	// `&` treats Empty as "" rather than short-circuiting (spec §4.5.3),
	// so it is registered directly instead of through the shared arith()
	// helper.
	r.Register(&Operation{
		Identifier: "&",
		Type:       OperationType{Kind: KindBinaryOperator, Precedence: 5, Associativity: AssocLeft},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			out, err := Concatenate(types.Unwrap(args[0]), types.Unwrap(args[1]))
			if err != nil {
				return nil, false, err
			}
			return out, true, nil
		},
	})

	cmp := func(op string, accept func(c int) bool) {
		r.Register(&Operation{
			Identifier: op,
			Type:       OperationType{Kind: KindBinaryOperator, Precedence: 8, Associativity: AssocLeft},
			MinArgs:    2,
			MaxArgs:    2,
			Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
			TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
				l, r := types.Unwrap(args[0]), types.Unwrap(args[1])
				if types.IsEmptyValue(l) || types.IsEmptyValue(r) {
					return types.Empty, true, nil
				}
				lc, ok := l.(types.Comparable)
				if !ok {
					return nil, false, typeErr(op, l)
				}
				c, err := lc.Compare(r)
				if err != nil {
					var ambiguous *types.AmbiguousPrecisionError
					if errors.As(err, &ambiguous) {
						// Cross-precision Date/DateTime/Time comparisons that
						// can't be ordered (spec §3.2) yield Empty.
						return types.Empty, true, nil
					}
					return nil, false, err
				}
				return types.NewBoolean(accept(c)), true, nil
			},
		})
	}
	cmp("<", func(c int) bool { return c < 0 })
	cmp("<=", func(c int) bool { return c <= 0 })
	cmp(">", func(c int) bool { return c > 0 })
	cmp(">=", func(c int) bool { return c >= 0 })

	r.Register(&Operation{
		Identifier: "=",
		Type:       OperationType{Kind: KindBinaryOperator, Precedence: 9, Associativity: AssocLeft},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			l, r := args[0], args[1]
			if types.IsEmptyValue(l) || types.IsEmptyValue(r) {
				return types.Empty, true, nil
			}
			return types.NewBoolean(l.Equal(r)), true, nil
		},
	})
	r.Register(&Operation{
		Identifier: "!=",
		Type:       OperationType{Kind: KindBinaryOperator, Precedence: 9, Associativity: AssocLeft},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			l, r := args[0], args[1]
			if types.IsEmptyValue(l) || types.IsEmptyValue(r) {
				return types.Empty, true, nil
			}
			return types.NewBoolean(!l.Equal(r)), true, nil
		},
	})
	r.Register(&Operation{
		Identifier: "~",
		Type:       OperationType{Kind: KindBinaryOperator, Precedence: 9, Associativity: AssocLeft},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			l, r := args[0], args[1]
			if types.IsEmptyValue(l) && types.IsEmptyValue(r) {
				return types.NewBoolean(true), true, nil
			}
			if types.IsEmptyValue(l) || types.IsEmptyValue(r) {
				return types.NewBoolean(false), true, nil
			}
			return types.NewBoolean(l.Equivalent(r)), true, nil
		},
	})
	r.Register(&Operation{
		Identifier: "!~",
		Type:       OperationType{Kind: KindBinaryOperator, Precedence: 9, Associativity: AssocLeft},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			l, r := args[0], args[1]
			if types.IsEmptyValue(l) && types.IsEmptyValue(r) {
				return types.NewBoolean(false), true, nil
			}
			if types.IsEmptyValue(l) || types.IsEmptyValue(r) {
				return types.NewBoolean(true), true, nil
			}
			return types.NewBoolean(!l.Equivalent(r)), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "|",
		Type:       OperationType{Kind: KindBinaryOperator, Precedence: 6, Associativity: AssocLeft},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Summary: "Union without de-duplication, per spec §8.", Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			return collOrEmpty(types.Normalize(args[0], args[1])), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "in",
		Type:       OperationType{Kind: KindBinaryOperator, Precedence: 10, Associativity: AssocLeft},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			item := args[0]
			coll := types.Normalize(args[1])
			if types.IsEmptyValue(item) {
				return types.Empty, true, nil
			}
			return types.NewBoolean(coll.Contains(item)), true, nil
		},
	})
	r.Register(&Operation{
		Identifier: "contains",
		Type:       OperationType{Kind: KindBinaryOperator, Precedence: 10, Associativity: AssocLeft},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			coll := types.Normalize(args[0])
			item := args[1]
			if types.IsEmptyValue(item) {
				return types.Empty, true, nil
			}
			return types.NewBoolean(coll.Contains(item)), true, nil
		},
	})

	// and/or/xor/implies are registered for metadata/analyzer purposes only:
	// the evaluator short-circuits them directly against ast.BinaryOp since
	// the registry's Evaluate contract receives already-computed arguments,
	// which would defeat three-valued short-circuiting (spec §4.5 item 7).
	boolMeta := func(op string, precedence int) {
		r.Register(&Operation{
			Identifier: op,
			Type:       OperationType{Kind: KindBinaryOperator, Precedence: precedence, Associativity: AssocLeft},
			MinArgs:    2,
			MaxArgs:    2,
			Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: false, Pure: true, Cacheable: false}},
		})
	}
	boolMeta("and", 11)
	boolMeta("or", 12)
	boolMeta("xor", 12)
	r.Register(&Operation{
		Identifier: "implies",
		Type:       OperationType{Kind: KindBinaryOperator, Precedence: 13, Associativity: AssocRight},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: false, Pure: true, Cacheable: false}},
	})

	unary := func(op string, fn func(types.Value) (types.Value, error)) {
		r.Register(&Operation{
			Identifier: op,
			Type:       OperationType{Kind: KindUnaryOperator},
			MinArgs:    1,
			MaxArgs:    1,
			Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
			TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
				v := types.Unwrap(args[0])
				if types.IsEmptyValue(v) {
					return types.Empty, true, nil
				}
				out, err := fn(v)
				if err != nil {
					return nil, false, err
				}
				return out, true, nil
			},
		})
	}
	unary("unary-", func(v types.Value) (types.Value, error) {
		switch n := v.(type) {
		case types.Integer:
			return n.Negate(), nil
		case types.Decimal:
			return n.Negate(), nil
		case types.Quantity:
			return types.NewQuantityFromDecimal(n.Value().Neg(), n.Unit()), nil
		}
		return nil, typeErr("unary-", v)
	})
	unary("unary+", func(v types.Value) (types.Value, error) { return v, nil })
}

// Add implements the `+` promotion table: Integer/Decimal arithmetic,
// String concatenation, Date/DateTime + Quantity duration arithmetic, and
// Quantity + Quantity.
func Add(left, right types.Value) (types.Value, error) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			return l.Add(r), nil
		case types.Decimal:
			return l.ToDecimal().Add(r), nil
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return l.Add(r.ToDecimal()), nil
		case types.Decimal:
			return l.Add(r), nil
		}
	case types.String:
		if r, ok := right.(types.String); ok {
			return types.NewString(l.Value() + r.Value()), nil
		}
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return l.AddDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return l.AddDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			return l.Add(r)
		}
	}
	return nil, typeErr("+", left)
}

func Subtract(left, right types.Value) (types.Value, error) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			return l.Subtract(r), nil
		case types.Decimal:
			return l.ToDecimal().Subtract(r), nil
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return l.Subtract(r.ToDecimal()), nil
		case types.Decimal:
			return l.Subtract(r), nil
		}
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return l.SubtractDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return l.SubtractDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			return l.Subtract(r)
		}
	}
	return nil, typeErr("-", left)
}

func Multiply(left, right types.Value) (types.Value, error) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			return l.Multiply(r), nil
		case types.Decimal:
			return l.ToDecimal().Multiply(r), nil
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return l.Multiply(r.ToDecimal()), nil
		case types.Decimal:
			return l.Multiply(r), nil
		}
	case types.Quantity:
		switch r := right.(type) {
		case types.Integer:
			return l.Multiply(r.ToDecimal().Value()), nil
		case types.Decimal:
			return l.Multiply(r.Value()), nil
		}
	}
	return nil, typeErr("*", left)
}

func Divide(left, right types.Value) (types.Value, error) {
	var lDec, rDec types.Decimal
	switch l := left.(type) {
	case types.Integer:
		lDec = l.ToDecimal()
	case types.Decimal:
		lDec = l
	case types.Quantity:
		switch r := right.(type) {
		case types.Integer:
			return l.Divide(r.ToDecimal().Value())
		case types.Decimal:
			return l.Divide(r.Value())
		}
		return nil, typeErr("/", left)
	default:
		return nil, typeErr("/", left)
	}
	switch r := right.(type) {
	case types.Integer:
		rDec = r.ToDecimal()
	case types.Decimal:
		rDec = r
	default:
		return nil, typeErr("/", left)
	}
	return lDec.Divide(rDec)
}

func IntegerDivide(left, right types.Value) (types.Value, error) {
	l, ok1 := left.(types.Integer)
	r, ok2 := right.(types.Integer)
	if !ok1 || !ok2 {
		return nil, typeErr("div", left)
	}
	return l.Div(r)
}

func Modulo(left, right types.Value) (types.Value, error) {
	switch l := left.(type) {
	case types.Integer:
		if r, ok := right.(types.Integer); ok {
			return l.Mod(r)
		}
	case types.Decimal:
		if r, ok := right.(types.Decimal); ok {
			if r.Value().IsZero() {
				return nil, types.NewArithmeticUndefinedError("mod")
			}
			q := l.Value().DivRound(r.Value(), 0)
			rem := l.Value().Sub(q.Mul(r.Value()))
			d, _ := types.NewDecimal(rem.String())
			return d, nil
		}
	}
	return nil, typeErr("mod", left)
}

// Concatenate implements `&`: string concatenation treating Empty as "".
func Concatenate(left, right types.Value) (types.Value, error) {
	l, lok := left.(types.String)
	r, rok := right.(types.String)
	lv, rv := "", ""
	if lok {
		lv = l.Value()
	}
	if rok {
		rv = r.Value()
	}
	return types.NewString(lv + rv), nil
}
