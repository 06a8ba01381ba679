// Package registry implements the unified operation dispatch table of spec
// §4.4: a single keyed catalog of functions, operators, and lambda-form
// metadata, with arity/type validation, an optional synchronous fast path,
// and a lock-free-on-hit dispatch cache. It replaces the teacher's bare
// map[string]FuncDef registry (see DESIGN.md) with a shape grounded on
// fhirpath-registry/src/metadata.rs from the Rust original this module was
// distilled from.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Associativity of a binary operator.
type Associativity int

const (
	AssocLeft Associativity = iota
	AssocRight
	AssocNone
)

// OperationKind discriminates how an identifier is dispatched.
type OperationKind int

const (
	KindFunction OperationKind = iota
	KindBinaryOperator
	KindUnaryOperator
)

// OperationType carries the kind-specific shape (precedence/associativity
// only make sense for BinaryOperator).
type OperationType struct {
	Kind          OperationKind
	Precedence    int
	Associativity Associativity
}

// ParameterConstraint describes one formal parameter for arity/type
// validation and LSP hover text.
type ParameterConstraint struct {
	Name        string
	Type        TypeConstraint
	Optional    bool
	Description string
}

// TypeConstraintKind enumerates the constraint shapes from spec §4.3.
type TypeConstraintKind int

const (
	ConstraintAny TypeConstraintKind = iota
	ConstraintSpecific
	ConstraintOneOf
	ConstraintCollection
	ConstraintOptional
	ConstraintNumeric
	ConstraintLambda
)

type TypeConstraint struct {
	Kind    TypeConstraintKind
	Type    model.TypeInfo
	OneOf   []model.TypeInfo
	Element *TypeConstraint
}

func AnyConstraint() TypeConstraint { return TypeConstraint{Kind: ConstraintAny} }
func SpecificConstraint(t model.TypeInfo) TypeConstraint {
	return TypeConstraint{Kind: ConstraintSpecific, Type: t}
}
func NumericConstraint() TypeConstraint { return TypeConstraint{Kind: ConstraintNumeric} }
func LambdaConstraint() TypeConstraint  { return TypeConstraint{Kind: ConstraintLambda} }

// PerformanceHints are the LSP/cost-model metadata fields from spec §4.4.
type PerformanceHints struct {
	SupportsSync bool
	Pure         bool
	Cacheable    bool
}

// OperationMetadata is the human/tool-facing description of an operation.
type OperationMetadata struct {
	Summary         string
	Examples        []string
	Parameters      []ParameterConstraint
	Return          TypeConstraint
	Performance     PerformanceHints
	CompletionLabel string
	HoverText       string
}

// EvalContext is the minimal surface an Operation's Evaluate/TrySync needs
// from the evaluator, kept as an interface here (rather than importing
// pkg/fhirpath/eval) to avoid a registry<->eval import cycle; package eval
// implements it.
type EvalContext interface {
	context.Context
	Input() types.Value
	Root() types.Value
	GetVariable(name string) (types.Value, bool)
	ModelProvider() model.ModelProvider
	TerminologyProvider() model.TerminologyProvider
}

// Operation is one entry in the registry, per spec §4.4's operation
// contract.
type Operation struct {
	Identifier   string
	Type         OperationType
	Metadata     OperationMetadata
	IsLambda     bool
	MinArgs      int
	MaxArgs      int // -1 means unbounded
	ValidateArgs func(args []types.Value) error
	Evaluate     func(ctx EvalContext, args []types.Value) (types.Value, error)
	// TrySync is the synchronous implementation the evaluator calls; package
	// eval never calls Evaluate, so a nil TrySync makes the evaluator report
	// the operation as having no synchronous implementation.
	TrySync func(ctx EvalContext, args []types.Value) (types.Value, bool, error)
}

func (o *Operation) checkArity(n int) error {
	if n < o.MinArgs || (o.MaxArgs >= 0 && n > o.MaxArgs) {
		return fmt.Errorf("%s: expected between %d and %d arguments, got %d", o.Identifier, o.MinArgs, o.MaxArgs, n)
	}
	return nil
}

type cacheKey struct {
	identifier string
	argCount   int
	typeHash   string
}

// Registry is the read-mostly, bulk-populated dispatch table. Registration
// happens once at startup. Dispatch lookups are cache-accelerated and
// lock-free on a hit, per spec §5; Get bypasses the cache and takes the
// read lock.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]*Operation
	cache sync.Map // cacheKey -> *Operation
}

func New() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Register adds or replaces an operation. Registration clears the dispatch
// cache, per spec §4.4 ("Cache clears on any registration change").
func (r *Registry) Register(op *Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.Identifier] = op
	r.cache = sync.Map{}
}

// Get returns the operation registered under identifier, if any.
func (r *Registry) Get(identifier string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[identifier]
	return op, ok
}

// Dispatch resolves identifier for a call with argCount arguments and the
// given type-signature hash (an opaque string the caller derives from
// argument types), consulting the dispatch cache first.
func (r *Registry) Dispatch(identifier string, argCount int, typeSigHash string) (*Operation, error) {
	key := cacheKey{identifier: identifier, argCount: argCount, typeHash: typeSigHash}
	if cached, ok := r.cache.Load(key); ok {
		return cached.(*Operation), nil
	}
	op, ok := r.Get(identifier)
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", identifier)
	}
	if err := op.checkArity(argCount); err != nil {
		return nil, err
	}
	r.cache.Store(key, op)
	return op, nil
}

// Has reports whether identifier is registered.
func (r *Registry) Has(identifier string) bool {
	_, ok := r.Get(identifier)
	return ok
}

// Names returns every registered identifier, sorted — used by the analyzer
// for typo suggestions and by LSP-style completion.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
