package fhirpath

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/registry"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// EvalOptions configures a single Evaluate call.
type EvalOptions struct {
	Ctx context.Context

	// Timeout bounds evaluation wall-clock time (0 means no timeout).
	Timeout time.Duration

	// MaxDepth limits AST recursion depth (0 means DefaultLimits.MaxDepth).
	MaxDepth int

	// MaxRepeatRounds bounds repeat()'s fixed-point iteration (0 means
	// DefaultLimits.MaxRepeatRounds).
	MaxRepeatRounds int

	// MaxCollectionSize is copied into eval.Limits.MaxCollectionSize; no
	// evaluation or analysis step reads it, so collections of any size are
	// neither rejected nor reported.
	MaxCollectionSize int

	// Variables are external variables accessible via %name.
	Variables map[string]types.Value

	// ModelProvider supplies schema-aware navigation (default: R4Provider).
	ModelProvider model.ModelProvider

	// TerminologyProvider backs the optional terminology functions (spec
	// §6.3); nil means those functions return an error when invoked.
	TerminologyProvider model.TerminologyProvider

	// Registry overrides the default operation catalog (useful for
	// analyzer tooling or a restricted dialect).
	Registry *registry.Registry
}

// maxDepthEnvVar lets a deployment lower or raise the recursion ceiling
// without a code change — useful when embedding this module behind a
// request handler where the default 100 is too generous or too strict.
const maxDepthEnvVar = "FHIRPATH_MAX_DEPTH"

// DefaultOptions returns the conservative defaults used by Evaluate.
// MaxDepth honors the FHIRPATH_MAX_DEPTH environment variable when set to
// a positive integer, overriding eval.DefaultLimits.MaxDepth; an unset or
// invalid value falls back to the built-in default.
func DefaultOptions() *EvalOptions {
	return &EvalOptions{
		Ctx:               context.Background(),
		MaxDepth:          defaultMaxDepth(),
		MaxRepeatRounds:   eval.DefaultLimits.MaxRepeatRounds,
		MaxCollectionSize: eval.DefaultLimits.MaxCollectionSize,
		Variables:         make(map[string]types.Value),
		ModelProvider:     model.NewR4Provider(),
	}
}

func defaultMaxDepth() int {
	if v := os.Getenv(maxDepthEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return eval.DefaultLimits.MaxDepth
}

// EvalOption is a functional option for EvaluateWithOptions.
type EvalOption func(*EvalOptions)

func WithContext(ctx context.Context) EvalOption {
	return func(o *EvalOptions) { o.Ctx = ctx }
}

func WithTimeout(d time.Duration) EvalOption {
	return func(o *EvalOptions) { o.Timeout = d }
}

func WithMaxDepth(depth int) EvalOption {
	return func(o *EvalOptions) { o.MaxDepth = depth }
}

func WithMaxRepeatRounds(n int) EvalOption {
	return func(o *EvalOptions) { o.MaxRepeatRounds = n }
}

func WithMaxCollectionSize(size int) EvalOption {
	return func(o *EvalOptions) { o.MaxCollectionSize = size }
}

func WithVariable(name string, value types.Value) EvalOption {
	return func(o *EvalOptions) {
		if o.Variables == nil {
			o.Variables = make(map[string]types.Value)
		}
		o.Variables[name] = value
	}
}

func WithModelProvider(p model.ModelProvider) EvalOption {
	return func(o *EvalOptions) { o.ModelProvider = p }
}

func WithTerminologyProvider(p model.TerminologyProvider) EvalOption {
	return func(o *EvalOptions) { o.TerminologyProvider = p }
}

func WithRegistry(r *registry.Registry) EvalOption {
	return func(o *EvalOptions) { o.Registry = r }
}

// EvaluateWithOptions evaluates the expression against resource with the
// given functional options layered over DefaultOptions.
func (e *Expression) EvaluateWithOptions(resource []byte, opts ...EvalOption) (Collection, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	goCtx := options.Ctx
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		goCtx, cancel = context.WithTimeout(goCtx, options.Timeout)
		defer cancel()
	}

	limits := eval.Limits{
		MaxDepth:          options.MaxDepth,
		MaxRepeatRounds:   options.MaxRepeatRounds,
		MaxCollectionSize: options.MaxCollectionSize,
	}
	evalCtx, err := newDefaultContext(goCtx, resource, options.ModelProvider, options.TerminologyProvider, limits)
	if err != nil {
		return nil, err
	}
	for name, value := range options.Variables {
		evalCtx = evalCtx.WithVariable(name, value)
	}

	evaluator := eval.NewEvaluator(options.Registry)
	return e.EvaluateWithContext(evaluator, evalCtx)
}
