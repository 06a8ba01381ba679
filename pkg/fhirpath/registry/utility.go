package registry

import (
	"time"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// registerUtility installs the type-reflection, temporal-anchor, and
// diagnostic catalog (spec §4.4 Type/Datetime/Utility groups), grounded on
// the teacher's funcs/typechecking.go and funcs/utility.go.
func registerUtility(r *Registry) {
	r.Register(&Operation{
		Identifier: "type",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    0,
		Metadata:   OperationMetadata{Summary: "Returns a TypeInfo object describing the input's runtime type.", Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, _ []types.Value) (types.Value, bool, error) {
			v, err := types.AsSingleton(ctx.Input())
			if err != nil {
				return nil, false, err
			}
			if types.IsEmptyValue(v) {
				return types.Empty, true, nil
			}
			namespace := "System"
			name := types.TypeOf(v)
			if wrapped, ok := types.Unwrap(v).(types.Wrapped); ok && wrapped.TypeInfo != nil {
				namespace = wrapped.TypeInfo.Namespace
				name = wrapped.TypeInfo.TypeName
			} else if ctx.ModelProvider() != nil && ctx.ModelProvider().IsResource(ctx, name) {
				namespace = "FHIR"
			}
			return types.NewTypeInfoObject(namespace, name), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "ofType",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    1,
		MaxArgs:    1,
		IsLambda:   true, // the argument is a type specifier, not an expression
		Metadata:   OperationMetadata{Summary: "Filters the input to items whose runtime type matches the given type specifier.", Performance: PerformanceHints{SupportsSync: false, Pure: true, Cacheable: false}},
	})

	r.Register(&Operation{
		Identifier: "today",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    0,
		Metadata:   OperationMetadata{Summary: "The current date.", Performance: PerformanceHints{SupportsSync: true, Pure: false, Cacheable: false}},
		TrySync: func(_ EvalContext, _ []types.Value) (types.Value, bool, error) {
			return types.NewDateFromTime(time.Now()), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "now",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    0,
		Metadata:   OperationMetadata{Summary: "The current date and time.", Performance: PerformanceHints{SupportsSync: true, Pure: false, Cacheable: false}},
		TrySync: func(_ EvalContext, _ []types.Value) (types.Value, bool, error) {
			return types.NewDateTimeFromTime(time.Now()), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "timeOfDay",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    0,
		Metadata:   OperationMetadata{Summary: "The current time.", Performance: PerformanceHints{SupportsSync: true, Pure: false, Cacheable: false}},
		TrySync: func(_ EvalContext, _ []types.Value) (types.Value, bool, error) {
			return types.NewTimeFromGoTime(time.Now()), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "trace",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    1,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Summary: "Returns the input unchanged; the name and projection arguments are accepted but nothing is logged.", Performance: PerformanceHints{SupportsSync: true, Pure: false, Cacheable: false}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			return ctx.Input(), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "children",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    0,
		IsLambda:   true, // intercepted by the evaluator, which expands via ObjectValue.Children()
		Metadata:   OperationMetadata{Summary: "Returns the immediate child nodes of each input item.", Performance: PerformanceHints{SupportsSync: false, Pure: true, Cacheable: false}},
	})

	r.Register(&Operation{
		Identifier: "descendants",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    0,
		IsLambda:   true,
		Metadata:   OperationMetadata{Summary: "Returns all descendant nodes of each input item, depth-first.", Performance: PerformanceHints{SupportsSync: false, Pure: true, Cacheable: false}},
	})

	r.Register(&Operation{
		Identifier: "not",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    0,
		Metadata:   OperationMetadata{Summary: "Boolean negation of the singleton input.", Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, _ []types.Value) (types.Value, bool, error) {
			v, err := types.AsSingleton(ctx.Input())
			if err != nil {
				return nil, false, err
			}
			if types.IsEmptyValue(v) {
				return types.Empty, true, nil
			}
			b, ok := v.(types.Boolean)
			if !ok {
				return nil, false, typeErr("not", v)
			}
			return b.Not(), true, nil
		},
	})

	// hasValue rounds out the FHIR-shaped primitive-element group.
	r.Register(&Operation{
		Identifier: "hasValue",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    0,
		Metadata:   OperationMetadata{Summary: "True if the input is a single primitive value with a value (not just extensions).", Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, _ []types.Value) (types.Value, bool, error) {
			v, err := types.AsSingleton(ctx.Input())
			if err != nil {
				return types.NewBoolean(false), true, nil
			}
			if _, ok := v.(*types.ObjectValue); ok {
				return types.NewBoolean(false), true, nil
			}
			return types.NewBoolean(!types.IsEmptyValue(v)), true, nil
		},
	})
}
