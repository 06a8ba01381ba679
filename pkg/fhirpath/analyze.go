package fhirpath

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/analyzer"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/parser"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/registry"
)

// AnalysisResult is an alias for analyzer.AnalysisResult for easier
// external use.
type AnalysisResult = analyzer.AnalysisResult

// Diagnostic is an alias for analyzer.Diagnostic for easier external use.
type Diagnostic = analyzer.Diagnostic

// AnalyzeOption configures Analyze.
type AnalyzeOption func(*analyzer.Options)

// WithAnalyzerRegistry overrides the operation catalog Analyze checks
// function calls against.
func WithAnalyzerRegistry(r *registry.Registry) AnalyzeOption {
	return func(o *analyzer.Options) { o.Registry = r }
}

// WithKnownVariables declares external %variable names beyond the
// built-ins (%this, %resource, %context, …) so Analyze doesn't flag them.
func WithKnownVariables(names ...string) AnalyzeOption {
	return func(o *analyzer.Options) { o.Variables = append(o.Variables, names...) }
}

// WithModelProvider enables Analyze's static type-inference pass: Path
// property resolution, FunctionCall argument-type checks, and BinaryOp
// operand-type checks against the provider's declared schema. Without it,
// Analyze still performs identifier/arity checks and types literals, but
// treats identifiers and paths as untyped.
func WithModelProvider(p model.ModelProvider) AnalyzeOption {
	return func(o *analyzer.Options) { o.ModelProvider = p }
}

// WithRootType declares the static type of the expression's initial focus
// (e.g. model.Resource("Patient")), so a leading bare identifier like
// "name" resolves as a property of that type rather than staying untyped.
func WithRootType(t model.TypeInfo) AnalyzeOption {
	return func(o *analyzer.Options) { o.RootType = t }
}

// WithInstance supplies the raw JSON of the resource under analysis, so
// the type-inference pass can detect malformed value[x] choice data (more
// than one variant present) and report it as a diagnostic rather than
// leaving the ambiguity undetected until evaluation.
func WithInstance(instanceJSON []byte) AnalyzeOption {
	return func(o *analyzer.Options) { o.Instance = instanceJSON }
}

func analyze(expr string, opts ...AnalyzeOption) (*AnalysisResult, error) {
	tree, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	options := analyzer.Options{}
	for _, opt := range opts {
		opt(&options)
	}
	return analyzer.Analyze(expr, tree, options), nil
}
