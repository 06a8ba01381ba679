package registry

import (
	"regexp"
	"strings"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// registerStrings installs the string-manipulation catalog (spec §4.4
// String group), grounded on the teacher's funcs/strings.go
// fnStartsWith/fnEndsWith/... family.
func registerStrings(r *Registry) {
	strFn := func(name string, minArgs, maxArgs int, fn func(ctx EvalContext, s types.String, args []types.Value) (types.Value, error)) {
		r.Register(&Operation{
			Identifier: name,
			Type:       OperationType{Kind: KindFunction},
			MinArgs:    minArgs,
			MaxArgs:    maxArgs,
			Metadata:   OperationMetadata{Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
			TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
				v, err := types.AsSingleton(ctx.Input())
				if err != nil {
					return nil, false, err
				}
				if types.IsEmptyValue(v) {
					return types.Empty, true, nil
				}
				s, ok := v.(types.String)
				if !ok {
					return nil, false, typeErr(name, v)
				}
				out, err := fn(ctx, s, args)
				if err != nil {
					return nil, false, err
				}
				return out, true, nil
			},
		})
	}

	argString := func(args []types.Value, i int) (string, bool) {
		if i >= len(args) {
			return "", false
		}
		s, ok := args[i].(types.String)
		if !ok {
			return "", false
		}
		return s.Value(), true
	}

	strFn("startsWith", 1, 1, func(_ EvalContext, s types.String, args []types.Value) (types.Value, error) {
		arg, ok := argString(args, 0)
		if !ok {
			return nil, typeErr("startsWith", args[0])
		}
		return types.NewBoolean(s.StartsWith(arg)), nil
	})

	strFn("endsWith", 1, 1, func(_ EvalContext, s types.String, args []types.Value) (types.Value, error) {
		arg, ok := argString(args, 0)
		if !ok {
			return nil, typeErr("endsWith", args[0])
		}
		return types.NewBoolean(s.EndsWith(arg)), nil
	})

	strFn("contains", 1, 1, func(_ EvalContext, s types.String, args []types.Value) (types.Value, error) {
		arg, ok := argString(args, 0)
		if !ok {
			return nil, typeErr("contains", args[0])
		}
		return types.NewBoolean(s.Contains(arg)), nil
	})

	strFn("indexOf", 1, 1, func(_ EvalContext, s types.String, args []types.Value) (types.Value, error) {
		arg, ok := argString(args, 0)
		if !ok {
			return nil, typeErr("indexOf", args[0])
		}
		return types.NewInteger(int64(s.IndexOf(arg))), nil
	})

	strFn("substring", 1, 2, func(_ EvalContext, s types.String, args []types.Value) (types.Value, error) {
		start, ok := args[0].(types.Integer)
		if !ok {
			return nil, typeErr("substring", args[0])
		}
		length := -1
		if len(args) > 1 {
			l, ok := args[1].(types.Integer)
			if !ok {
				return nil, typeErr("substring", args[1])
			}
			length = int(l.Value())
		}
		if int(start.Value()) < 0 || int(start.Value()) >= s.Length() {
			return types.Empty, nil
		}
		return s.Substring(int(start.Value()), length), nil
	})

	strFn("replace", 2, 2, func(_ EvalContext, s types.String, args []types.Value) (types.Value, error) {
		from, ok1 := argString(args, 0)
		to, ok2 := argString(args, 1)
		if !ok1 || !ok2 {
			return nil, typeErr("replace", args[0])
		}
		return s.Replace(from, to), nil
	})

	strFn("matches", 1, 1, func(_ EvalContext, s types.String, args []types.Value) (types.Value, error) {
		pattern, ok := argString(args, 0)
		if !ok {
			return nil, typeErr("matches", args[0])
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		return types.NewBoolean(re.MatchString(s.Value())), nil
	})

	strFn("replaceMatches", 2, 2, func(_ EvalContext, s types.String, args []types.Value) (types.Value, error) {
		pattern, ok1 := argString(args, 0)
		repl, ok2 := argString(args, 1)
		if !ok1 || !ok2 {
			return nil, typeErr("replaceMatches", args[0])
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		return types.NewString(re.ReplaceAllString(s.Value(), repl)), nil
	})

	strFn("lower", 0, 0, func(_ EvalContext, s types.String, _ []types.Value) (types.Value, error) {
		return s.Lower(), nil
	})

	strFn("upper", 0, 0, func(_ EvalContext, s types.String, _ []types.Value) (types.Value, error) {
		return s.Upper(), nil
	})

	strFn("toChars", 0, 0, func(_ EvalContext, s types.String, _ []types.Value) (types.Value, error) {
		return collOrEmpty(s.ToChars()), nil
	})

	strFn("split", 1, 1, func(_ EvalContext, s types.String, args []types.Value) (types.Value, error) {
		sep, ok := argString(args, 0)
		if !ok {
			return nil, typeErr("split", args[0])
		}
		parts := strings.Split(s.Value(), sep)
		out := make(types.Collection, len(parts))
		for i, p := range parts {
			out[i] = types.NewString(p)
		}
		return collOrEmpty(out), nil
	})

	strFn("length", 0, 0, func(_ EvalContext, s types.String, _ []types.Value) (types.Value, error) {
		return types.NewInteger(int64(s.Length())), nil
	})

	strFn("trim", 0, 0, func(_ EvalContext, s types.String, _ []types.Value) (types.Value, error) {
		return types.NewString(strings.TrimSpace(s.Value())), nil
	})

	r.Register(&Operation{
		Identifier: "join",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    1,
		Metadata:   OperationMetadata{Summary: "Joins a collection of strings with the given separator.", Performance: PerformanceHints{SupportsSync: true, Pure: true, Cacheable: true}},
		TrySync: func(ctx EvalContext, args []types.Value) (types.Value, bool, error) {
			sep := ""
			if len(args) > 0 {
				if s, ok := args[0].(types.String); ok {
					sep = s.Value()
				}
			}
			items := types.Normalize(ctx.Input())
			parts := make([]string, 0, len(items))
			for _, item := range items {
				s, ok := item.(types.String)
				if !ok {
					return nil, false, typeErr("join", item)
				}
				parts = append(parts, s.Value())
			}
			return types.NewString(strings.Join(parts, sep)), true, nil
		},
	})
}
