package registry

import (
	"fmt"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// registerTerminology installs the terminology-function group of spec
// §4.4 ("when a terminology-service collaborator is supplied"): memberOf,
// subsumes, translate, validateCode, designation, property. Each is a thin
// surface over the four coarse operations spec §6.3 describes
// (validate_vs/translate/lookup/subsumes); the coarse/surface split mirrors
// the spec's own wording rather than a 1:1 mapping. Every entry is a no-op
// error, not a panic or Empty, when no model.TerminologyProvider was
// configured, since silently returning Empty would hide a host
// misconfiguration (spec §7's ModelError precedent).
func registerTerminology(r *Registry) {
	codedValueArg := func(ctx EvalContext) (string, error) {
		v, err := types.AsSingleton(ctx.Input())
		if err != nil {
			return "", err
		}
		s, ok := types.Unwrap(v).(types.String)
		if !ok {
			return "", fmt.Errorf("terminology functions require a String coded value, got %s", v.Type())
		}
		return s.Value(), nil
	}
	stringArg := func(args []types.Value, i int, name string) (string, error) {
		s, ok := types.Unwrap(args[i]).(types.String)
		if !ok {
			return "", fmt.Errorf("%s: argument %d must be a String", name, i+1)
		}
		return s.Value(), nil
	}

	r.Register(&Operation{
		Identifier: "memberOf",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    1,
		MaxArgs:    1,
		Metadata:   OperationMetadata{Summary: "True if the input coded value belongs to the given value set."},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			term := ctx.TerminologyProvider()
			if term == nil {
				return nil, false, fmt.Errorf("memberOf: no terminology service configured")
			}
			coded, err := codedValueArg(ctx)
			if err != nil {
				return nil, false, err
			}
			valueSetURL, err := stringArg(args, 0, "memberOf")
			if err != nil {
				return nil, false, err
			}
			results, err := term.ValidateVS(ctx, valueSetURL, coded, nil)
			if err != nil {
				return nil, false, err
			}
			if len(results) == 0 {
				return types.Empty, true, nil
			}
			return types.NewBoolean(results[0]), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "validateCode",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Summary: "True if the given code is valid within the given system."},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			term := ctx.TerminologyProvider()
			if term == nil {
				return nil, false, fmt.Errorf("validateCode: no terminology service configured")
			}
			system, err := stringArg(args, 0, "validateCode")
			if err != nil {
				return nil, false, err
			}
			code, err := stringArg(args, 1, "validateCode")
			if err != nil {
				return nil, false, err
			}
			results, err := term.ValidateVS(ctx, system, code, nil)
			if err != nil {
				return nil, false, err
			}
			if len(results) == 0 {
				return types.Empty, true, nil
			}
			return types.NewBoolean(results[0]), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "subsumes",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    2,
		MaxArgs:    2,
		Metadata:   OperationMetadata{Summary: "True if the input code subsumes the given code within the given code system."},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			term := ctx.TerminologyProvider()
			if term == nil {
				return nil, false, fmt.Errorf("subsumes: no terminology service configured")
			}
			codeA, err := codedValueArg(ctx)
			if err != nil {
				return nil, false, err
			}
			systemURL, err := stringArg(args, 0, "subsumes")
			if err != nil {
				return nil, false, err
			}
			codeB, err := stringArg(args, 1, "subsumes")
			if err != nil {
				return nil, false, err
			}
			ok, err := term.Subsumes(ctx, systemURL, codeA, codeB, nil)
			if err != nil {
				return nil, false, err
			}
			return types.NewBoolean(ok), true, nil
		},
	})

	r.Register(&Operation{
		Identifier: "translate",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    1,
		MaxArgs:    1,
		Metadata:   OperationMetadata{Summary: "Maps the input coded value through the given concept map, returning the mapped codings."},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			term := ctx.TerminologyProvider()
			if term == nil {
				return nil, false, fmt.Errorf("translate: no terminology service configured")
			}
			coded, err := codedValueArg(ctx)
			if err != nil {
				return nil, false, err
			}
			conceptMapURL, err := stringArg(args, 0, "translate")
			if err != nil {
				return nil, false, err
			}
			mapped, err := term.Translate(ctx, conceptMapURL, coded, nil)
			if err != nil {
				return nil, false, err
			}
			if len(mapped) == 0 {
				return types.Empty, true, nil
			}
			out := make(types.Collection, len(mapped))
			for i, m := range mapped {
				out[i] = types.NewString(m)
			}
			return out, true, nil
		},
	})

	lookupKey := func(name, key string) func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
		return func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			term := ctx.TerminologyProvider()
			if term == nil {
				return nil, false, fmt.Errorf("%s: no terminology service configured", name)
			}
			coded, err := codedValueArg(ctx)
			if err != nil {
				return nil, false, err
			}
			params := map[string]string{}
			if len(args) > 0 {
				if v, err := stringArg(args, 0, name); err == nil {
					params[key] = v
				}
			}
			info, err := term.Lookup(ctx, coded, params)
			if err != nil {
				return nil, false, err
			}
			v, ok := info[key]
			if !ok {
				return types.Empty, true, nil
			}
			return types.NewString(v), true, nil
		}
	}

	r.Register(&Operation{
		Identifier: "designation",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    1,
		Metadata:   OperationMetadata{Summary: "The display designation for the input coded value, optionally restricted to the given use."},
		TrySync:    lookupKey("designation", "designation"),
	})

	r.Register(&Operation{
		Identifier: "property",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    1,
		MaxArgs:    1,
		Metadata:   OperationMetadata{Summary: "The named terminology property of the input coded value."},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			name, err := stringArg(args, 0, "property")
			if err != nil {
				return nil, false, err
			}
			return lookupKey("property", name)(ctx, nil)
		},
	})
}
