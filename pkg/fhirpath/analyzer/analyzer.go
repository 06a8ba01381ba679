// Package analyzer implements static analysis of a parsed FHIRPath
// expression (spec §4.3): unknown-identifier detection with typo
// suggestions, arity checks against the operation registry, and a
// best-effort static type-inference pass that threads a model.TypeInfo
// through the AST to catch argument-type and operand-type mismatches
// before evaluation. It never evaluates the expression — only its AST
// shape, the registry's catalog, and (when supplied) a ModelProvider are
// consulted, so analysis does not require a live resource instance,
// though supplying one sharpens choice-type diagnostics (see
// Options.Instance).
//
// Grounded on original_source/crates/fhirpath-diagnostics's suggestion
// engine (fuzzy_matching module) for the ranking algorithm, reimplemented
// in Go rather than transliterated (see DESIGN.md, Component E).
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/registry"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Code identifies the diagnostic rule that fired, for tool-side filtering.
type Code string

const (
	CodeUnknownFunction      Code = "unknown-function"
	CodeUnknownVariable      Code = "unknown-variable"
	CodeArityMismatch        Code = "arity-mismatch"
	CodeArgumentTypeMismatch Code = "argument-type-mismatch"
	CodeIncompatibleOperands Code = "incompatible-operands"
	CodeAmbiguousChoice      Code = "ambiguous-choice"
)

// Diagnostic is one static-analysis finding.
type Diagnostic struct {
	Severity    Severity
	Code        Code
	Message     string
	Pos         ast.Pos
	Suggestions []string
}

// AnalysisResult is the outcome of analyzing one expression.
type AnalysisResult struct {
	Source      string
	Diagnostics []Diagnostic
}

// Options configures Analyze.
type Options struct {
	Registry *registry.Registry
	// Variables lists known external %variable names beyond the built-ins.
	Variables []string
	// ModelProvider supplies schema truth for the type-inference pass
	// (Path property resolution, FunctionCall argument checks, BinaryOp
	// operand checks). Nil disables provider-backed resolution: identifiers
	// and paths are typed as model.Any(), while literals keep their System
	// types, so argument/operand checks still fire where literals alone
	// decide them (e.g. `true + 1`).
	ModelProvider model.ModelProvider
	// RootType is the static type of the expression's initial focus (e.g.
	// model.Resource("Patient") when analyzing a FHIRPath meant to run
	// against a Patient). Zero value means unknown.
	RootType model.TypeInfo
	// Instance is the optional raw JSON of the resource under analysis.
	// Supplying it lets the analyzer detect malformed value[x] choice data
	// (spec §4.5.2) statically instead of only at evaluation time.
	Instance []byte
}

var builtinVariables = []string{"this", "index", "total", "resource", "context", "sct", "loinc", "ucum", "vs-", "us-zip"}

// Analyze walks root and returns every diagnostic found.
func Analyze(source string, root ast.Node, opts Options) *AnalysisResult {
	reg := opts.Registry
	if reg == nil {
		reg = registry.Default()
	}
	rootType := opts.RootType
	if rootType.Kind == model.KindSimple && rootType.Namespace == "" && rootType.Name == "" {
		rootType = model.Any()
	}
	a := &analysis{
		reg:      reg,
		known:    knownVariableSet(opts.Variables),
		provider: opts.ModelProvider,
		ctx:      context.Background(),
		rootType: rootType,
		instance: opts.Instance,
	}
	a.walk(root)
	return &AnalysisResult{Source: source, Diagnostics: a.diags}
}

func knownVariableSet(extra []string) map[string]bool {
	set := make(map[string]bool, len(builtinVariables)+len(extra))
	for _, v := range builtinVariables {
		set[v] = true
	}
	for _, v := range extra {
		set[v] = true
	}
	return set
}

type analysis struct {
	reg      *registry.Registry
	known    map[string]bool
	diags    []Diagnostic
	provider model.ModelProvider
	ctx      context.Context
	rootType model.TypeInfo
	instance []byte
}

// walk visits n, recording any diagnostics, and returns n's inferred
// static type (model.Any() when it can't be determined — either because
// no ModelProvider was supplied, or because the provider doesn't declare
// a schema for that shape, which is expected of a schema-free provider
// like model.R4Provider).
func (a *analysis) walk(n ast.Node) model.TypeInfo {
	if n == nil {
		return model.Any()
	}
	switch v := n.(type) {
	case ast.Literal:
		return a.literalType(v)
	case ast.Identifier:
		return a.identifierType(v)
	case ast.Variable:
		a.checkVariable(v)
		return model.Any()
	case ast.Path:
		return a.pathType(v)
	case ast.Index:
		baseType := a.walk(v.Base)
		a.walk(v.Index)
		if baseType.Kind == model.KindCollection && baseType.Inner != nil {
			return *baseType.Inner
		}
		return model.Any()
	case ast.FunctionCall:
		return a.callType(v.Name, v.Pos, v.Args)
	case ast.MethodCall:
		a.walk(v.Receiver)
		return a.callType(v.Name, v.Pos, v.Args)
	case ast.BinaryOp:
		return a.binaryOpType(v)
	case ast.UnaryOp:
		return a.walk(v.Operand)
	case ast.Conditional:
		a.walk(v.Cond)
		thenType := a.walk(v.Then)
		a.walk(v.Else)
		return thenType
	case ast.Filter:
		a.walk(v.Base)
		a.walk(v.Cond)
		return model.Any()
	case ast.Union:
		a.walk(v.LHS)
		a.walk(v.RHS)
		return model.Any()
	case ast.TypeCheck:
		a.walk(v.Expr)
		return model.TypeBoolean
	case ast.TypeCast:
		a.walk(v.Expr)
		return a.typeByName(v.TypeName)
	case ast.Lambda:
		return a.walk(v.Body)
	}
	return model.Any()
}

func (a *analysis) literalType(l ast.Literal) model.TypeInfo {
	switch l.Kind {
	case ast.LitBool:
		return model.TypeBoolean
	case ast.LitInteger:
		return model.TypeInteger
	case ast.LitDecimal:
		return model.TypeDecimal
	case ast.LitString:
		return model.TypeString
	case ast.LitDate:
		return model.TypeDate
	case ast.LitDateTime:
		return model.TypeDateTime
	case ast.LitTime:
		return model.TypeTime
	case ast.LitQuantity:
		return model.TypeQuantity
	default:
		return model.Any()
	}
}

// identifierType resolves a bare identifier: first as a root type
// reference (e.g. "Patient" starting a path), then as an implicit
// property of rootType (e.g. "name" meaning "this resource's name" at
// the start of an expression analyzed against a known RootType).
func (a *analysis) identifierType(id ast.Identifier) model.TypeInfo {
	if a.provider == nil {
		return model.Any()
	}
	if t, ok, err := a.provider.GetType(a.ctx, id.Name); err == nil && ok {
		return t
	}
	return a.resolveProperty(a.rootType, id)
}

// pathType resolves base.segment. Segment is usually a plain Identifier
// (a property name); the rarer Path/FunctionCall segment forms are just
// walked for their own diagnostics since there's no property name to look
// up against baseType.
func (a *analysis) pathType(p ast.Path) model.TypeInfo {
	baseType := a.walk(p.Base)
	ident, ok := p.Segment.(ast.Identifier)
	if !ok {
		return a.walk(p.Segment)
	}
	return a.resolveProperty(baseType, ident)
}

// resolveProperty looks up ident as a declared property of baseType, then
// falls back to FHIR's value[x] choice-type convention: a base name like
// "value" that isn't itself declared but has one or more "value<Type>"
// variants. When Options.Instance was supplied and more than one variant
// is actually present, that's malformed data (spec §4.5.2) and a Warning
// is recorded; the highest-priority declared variant's type is still
// returned so analysis of the rest of the path can proceed.
func (a *analysis) resolveProperty(baseType model.TypeInfo, ident ast.Identifier) model.TypeInfo {
	if a.provider == nil || baseType.Kind == model.KindAny {
		return model.Any()
	}
	if t, ok, err := a.provider.GetPropertyType(a.ctx, baseType, ident.Name); err == nil && ok {
		return t
	}
	if variants, err := a.provider.VariantsPresent(a.ctx, baseType, ident.Name, a.instance); err == nil && len(variants) > 0 {
		if len(variants) > 1 {
			names := make([]string, len(variants))
			for i, v := range variants {
				names[i] = v.PropertyName
			}
			a.diags = append(a.diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeAmbiguousChoice,
				Message: fmt.Sprintf("multiple value[x] variants present for %q (%s); %q is used",
					ident.Name, strings.Join(names, ", "), variants[0].PropertyName),
				Pos: ident.Pos,
			})
		}
		return variants[0].Type
	}
	if res, ok, err := a.provider.ResolveChoice(a.ctx, baseType, ident.Name, a.instance); err == nil && ok {
		return res.Type
	}
	return model.Any()
}

func (a *analysis) typeByName(name string) model.TypeInfo {
	if a.provider != nil {
		if t, ok, err := a.provider.GetType(a.ctx, name); err == nil && ok {
			return t
		}
	}
	return model.Any()
}

// lambdaForms are intercepted directly by the evaluator (eval/calls.go)
// rather than registered with TrySync/Evaluate, but they are still valid
// identifiers — the analyzer must not flag them as unknown.
var lambdaForms = map[string]bool{
	"where": true, "select": true, "all": true, "any": true, "exists": true,
	"repeat": true, "aggregate": true, "sort": true, "iif": true,
	"ofType": true, "is": true, "as": true, "children": true, "descendants": true,
}

// callType validates a function/method call (name resolution, arity,
// per-parameter type constraints) and returns its declared return type.
func (a *analysis) callType(name string, pos ast.Pos, args []ast.Node) model.TypeInfo {
	argTypes := make([]model.TypeInfo, len(args))
	for i, arg := range args {
		argTypes[i] = a.walk(arg)
	}
	if lambdaForms[name] {
		return model.Any()
	}
	op, ok := a.reg.Get(name)
	if !ok {
		a.diags = append(a.diags, Diagnostic{
			Severity:    SeverityError,
			Code:        CodeUnknownFunction,
			Message:     fmt.Sprintf("unknown function %q", name),
			Pos:         pos,
			Suggestions: suggestNames(name, a.candidateNames()),
		})
		return model.Any()
	}
	n := len(args)
	if n < op.MinArgs || (op.MaxArgs >= 0 && n > op.MaxArgs) {
		a.diags = append(a.diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeArityMismatch,
			Message:  fmt.Sprintf("%s: expected between %d and %d arguments, got %d", name, op.MinArgs, op.MaxArgs, n),
			Pos:      pos,
		})
	}
	a.checkArgTypes(name, pos, op, argTypes)
	return returnType(op)
}

// checkArgTypes validates each argument's inferred type against the
// operation's declared TypeConstraint (spec §4.3), skipping any argument
// whose type couldn't be inferred (model.Any()) rather than guessing.
func (a *analysis) checkArgTypes(name string, pos ast.Pos, op *registry.Operation, argTypes []model.TypeInfo) {
	params := op.Metadata.Parameters
	for i, t := range argTypes {
		if t.Kind == model.KindAny || i >= len(params) {
			continue
		}
		c := params[i].Type
		if typeSatisfies(t, c) {
			continue
		}
		a.diags = append(a.diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeArgumentTypeMismatch,
			Message: fmt.Sprintf("%s: argument %d (%s) expects %s, got %s",
				name, i+1, params[i].Name, constraintDescription(c), t.String()),
			Pos: pos,
		})
	}
}

func typeSatisfies(t model.TypeInfo, c registry.TypeConstraint) bool {
	switch c.Kind {
	case registry.ConstraintNumeric:
		return isNumericType(t)
	case registry.ConstraintSpecific:
		return t.Equal(c.Type)
	case registry.ConstraintOneOf:
		for _, o := range c.OneOf {
			if t.Equal(o) {
				return true
			}
		}
		return false
	default:
		// ConstraintAny, ConstraintLambda, ConstraintCollection,
		// ConstraintOptional: not scalar-checkable from a bare TypeInfo.
		return true
	}
}

func constraintDescription(c registry.TypeConstraint) string {
	switch c.Kind {
	case registry.ConstraintNumeric:
		return "a numeric type"
	case registry.ConstraintSpecific:
		return c.Type.String()
	case registry.ConstraintOneOf:
		names := make([]string, len(c.OneOf))
		for i, o := range c.OneOf {
			names[i] = o.String()
		}
		return "one of " + strings.Join(names, ", ")
	default:
		return "any type"
	}
}

func returnType(op *registry.Operation) model.TypeInfo {
	if op.Metadata.Return.Kind == registry.ConstraintSpecific {
		return op.Metadata.Return.Type
	}
	return model.Any()
}

var arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "div": true, "mod": true}
var comparisonOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}

// binaryOpType checks operand-type compatibility for the arithmetic and
// ordering operators (spec §4.5.3's promotion rules); equality/membership/
// logical operators accept any operand types under FHIRPath's value
// model, so they aren't checked here.
func (a *analysis) binaryOpType(b ast.BinaryOp) model.TypeInfo {
	lhs := a.walk(b.LHS)
	rhs := a.walk(b.RHS)
	if lhs.Kind == model.KindAny || rhs.Kind == model.KindAny {
		return model.Any()
	}
	switch {
	case arithmeticOps[b.Op]:
		if !arithmeticCompatible(b.Op, lhs, rhs) {
			a.incompatibleOperands(b.Op, b.Pos, lhs, rhs)
			return model.Any()
		}
		if b.Op == "+" && lhs.Equal(model.TypeString) {
			return model.TypeString
		}
		if b.Op != "/" && lhs.Equal(model.TypeInteger) && rhs.Equal(model.TypeInteger) {
			return model.TypeInteger
		}
		return model.TypeDecimal
	case comparisonOps[b.Op]:
		if !sameComparableFamily(lhs, rhs) {
			a.incompatibleOperands(b.Op, b.Pos, lhs, rhs)
			return model.Any()
		}
		return model.TypeBoolean
	default:
		return model.Any()
	}
}

func (a *analysis) incompatibleOperands(op string, pos ast.Pos, lhs, rhs model.TypeInfo) {
	a.diags = append(a.diags, Diagnostic{
		Severity: SeverityError,
		Code:     CodeIncompatibleOperands,
		Message:  fmt.Sprintf("operator %q: incompatible operand types %s and %s", op, lhs.String(), rhs.String()),
		Pos:      pos,
	})
}

func arithmeticCompatible(op string, lhs, rhs model.TypeInfo) bool {
	if op == "+" && lhs.Equal(model.TypeString) && rhs.Equal(model.TypeString) {
		return true
	}
	return isNumericType(lhs) && isNumericType(rhs)
}

func isNumericType(t model.TypeInfo) bool {
	return t.Equal(model.TypeInteger) || t.Equal(model.TypeDecimal) || t.Equal(model.TypeQuantity)
}

func sameComparableFamily(lhs, rhs model.TypeInfo) bool {
	switch {
	case isNumericType(lhs) && isNumericType(rhs):
		return true
	case lhs.Equal(model.TypeString) && rhs.Equal(model.TypeString):
		return true
	case isTemporalType(lhs) && isTemporalType(rhs):
		return true
	}
	return false
}

func isTemporalType(t model.TypeInfo) bool {
	return t.Equal(model.TypeDate) || t.Equal(model.TypeDateTime) || t.Equal(model.TypeTime)
}

func (a *analysis) checkVariable(v ast.Variable) {
	if a.known[v.Name] {
		return
	}
	a.diags = append(a.diags, Diagnostic{
		Severity:    SeverityWarning,
		Code:        CodeUnknownVariable,
		Message:     fmt.Sprintf("undeclared variable %%%s", v.Name),
		Pos:         v.Pos,
		Suggestions: suggestNames(v.Name, a.candidateVariables()),
	})
}

func (a *analysis) candidateNames() []string {
	names := a.reg.Names()
	for name := range lambdaForms {
		names = append(names, name)
	}
	return names
}

func (a *analysis) candidateVariables() []string {
	names := make([]string, 0, len(a.known))
	for name := range a.known {
		names = append(names, name)
	}
	return names
}

func suggestNames(input string, candidates []string) []string {
	matches := findBestMatches(input, candidates, 3)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Replacement
	}
	return out
}
