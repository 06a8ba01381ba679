package registry

import (
	"strconv"
	"strings"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// registerConversion installs the to*/convertsTo* catalog (spec §4.4
// Conversion group), grounded on the teacher's funcs/conversion.go.
// toInteger() permissiveness for a fractional-zero Decimal ("1.0" ->
// Integer(1)) is one of this module's recorded Open Question decisions
// (DESIGN.md): allowed, matching the reference implementation's tolerance.
func registerConversion(r *Registry) {
	convert := func(name string, fn func(types.Value) (types.Value, bool)) {
		r.Register(&Operation{
			Identifier: name,
			Type:       OperationType{Kind: KindFunction},
			MinArgs:    0,
			MaxArgs:    0,
			Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
			TrySync: func(ctx EvalContext, _ []types.Value) (types.Value, bool, error) {
				v, err := types.AsSingleton(ctx.Input())
				if err != nil {
					return nil, false, err
				}
				if types.IsEmptyValue(v) {
					return types.Empty, true, nil
				}
				out, ok := fn(v)
				if !ok {
					return types.Empty, true, nil
				}
				return out, true, nil
			},
		})
	}
	convertsCheck := func(name string, fn func(types.Value) (types.Value, bool)) {
		r.Register(&Operation{
			Identifier: name,
			Type:       OperationType{Kind: KindFunction},
			MinArgs:    0,
			MaxArgs:    0,
			Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
			TrySync: func(ctx EvalContext, _ []types.Value) (types.Value, bool, error) {
				v, err := types.AsSingleton(ctx.Input())
				if err != nil {
					return nil, false, err
				}
				if types.IsEmptyValue(v) {
					return types.Empty, true, nil
				}
				_, ok := fn(v)
				return types.NewBoolean(ok), true, nil
			},
		})
	}

	toBoolean := func(v types.Value) (types.Value, bool) {
		switch n := v.(type) {
		case types.Boolean:
			return n, true
		case types.Integer:
			switch n.Value() {
			case 0:
				return types.NewBoolean(false), true
			case 1:
				return types.NewBoolean(true), true
			}
		case types.Decimal:
			if iv, ok := n.ToInteger(); ok {
				switch iv.Value() {
				case 0:
					return types.NewBoolean(false), true
				case 1:
					return types.NewBoolean(true), true
				}
			}
		case types.String:
			switch strings.ToLower(strings.TrimSpace(n.Value())) {
			case "true", "t", "yes", "y", "1", "1.0":
				return types.NewBoolean(true), true
			case "false", "f", "no", "n", "0", "0.0":
				return types.NewBoolean(false), true
			}
		}
		return nil, false
	}
	convert("toBoolean", toBoolean)
	convertsCheck("convertsToBoolean", toBoolean)

	toInteger := func(v types.Value) (types.Value, bool) {
		switch n := v.(type) {
		case types.Integer:
			return n, true
		case types.Boolean:
			if n.Bool() {
				return types.NewInteger(1), true
			}
			return types.NewInteger(0), true
		case types.Decimal:
			if iv, ok := n.ToInteger(); ok {
				return iv, true
			}
		case types.String:
			if i, err := strconv.ParseInt(strings.TrimSpace(n.Value()), 10, 64); err == nil {
				return types.NewInteger(i), true
			}
		}
		return nil, false
	}
	convert("toInteger", toInteger)
	convertsCheck("convertsToInteger", toInteger)

	toDecimal := func(v types.Value) (types.Value, bool) {
		switch n := v.(type) {
		case types.Decimal:
			return n, true
		case types.Integer:
			return n.ToDecimal(), true
		case types.Boolean:
			if n.Bool() {
				return types.NewDecimalFromInt(1), true
			}
			return types.NewDecimalFromInt(0), true
		case types.String:
			if d, err := types.NewDecimal(strings.TrimSpace(n.Value())); err == nil {
				return d, true
			}
		}
		return nil, false
	}
	convert("toDecimal", toDecimal)
	convertsCheck("convertsToDecimal", toDecimal)

	toStringVal := func(v types.Value) (types.Value, bool) {
		switch v.(type) {
		case types.String:
			return v, true
		}
		return types.NewString(v.String()), true
	}
	convert("toString", toStringVal)
	convertsCheck("convertsToString", toStringVal)

	toDate := func(v types.Value) (types.Value, bool) {
		switch n := v.(type) {
		case types.Date:
			return n, true
		case types.DateTime:
			return types.NewDateFromTime(n.ToTime()), true
		case types.String:
			if d, err := types.NewDate(n.Value()); err == nil {
				return d, true
			}
		}
		return nil, false
	}
	convert("toDate", toDate)
	convertsCheck("convertsToDate", toDate)

	toDateTime := func(v types.Value) (types.Value, bool) {
		switch n := v.(type) {
		case types.DateTime:
			return n, true
		case types.Date:
			return types.NewDateTimeFromTime(n.ToTime()), true
		case types.String:
			if dt, err := types.NewDateTime(n.Value()); err == nil {
				return dt, true
			}
		}
		return nil, false
	}
	convert("toDateTime", toDateTime)
	convertsCheck("convertsToDateTime", toDateTime)

	toTime := func(v types.Value) (types.Value, bool) {
		switch n := v.(type) {
		case types.Time:
			return n, true
		case types.String:
			if t, err := types.NewTime(n.Value()); err == nil {
				return t, true
			}
		}
		return nil, false
	}
	convert("toTime", toTime)
	convertsCheck("convertsToTime", toTime)

	toQuantity := func(v types.Value) (types.Value, bool) {
		switch n := v.(type) {
		case types.Quantity:
			return n, true
		case types.Integer:
			return types.NewQuantityFromDecimal(n.ToDecimal().Value(), "1"), true
		case types.Decimal:
			return types.NewQuantityFromDecimal(n.Value(), "1"), true
		case types.String:
			if q, err := types.NewQuantity(n.Value()); err == nil {
				return q, true
			}
		}
		return nil, false
	}
	convert("toQuantity", toQuantity)
	convertsCheck("convertsToQuantity", toQuantity)
}
