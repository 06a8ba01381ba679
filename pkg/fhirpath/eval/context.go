// Package eval implements the Evaluator (spec §4.5): AST-walking
// interpretation of a parsed FHIRPath expression against an input value,
// dispatching functions and operators through the operation registry and
// consulting a ModelProvider for schema-aware navigation and type checks.
// Grounded on the teacher's eval/evaluator.go and eval/operators.go Context/
// Evaluator shapes, adapted from ANTLR-visitor dispatch to direct dispatch
// over package ast's node types (see DESIGN.md, Component C/F).
package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Limits bounds runaway recursion/iteration, per spec §4.5's "depth guard"
// and §6.5's configurable ceilings.
type Limits struct {
	MaxDepth          int
	MaxRepeatRounds   int
	MaxCollectionSize int
}

// DefaultLimits mirrors the teacher's conservative built-in ceilings.
var DefaultLimits = Limits{MaxDepth: 100, MaxRepeatRounds: 1000, MaxCollectionSize: 1_000_000}

// Context carries the per-evaluation state threaded through every AST
// dispatch: the current focus (this), the original root, $index/$total for
// lambda bodies, variable bindings, and the collaborators (ModelProvider,
// TerminologyProvider, Go context for cancellation).
type Context struct {
	goCtx        context.Context
	root         types.Value
	this         types.Value
	index        int
	total        types.Value
	inLambda     bool
	variables    map[string]types.Value
	model        model.ModelProvider
	terminology  model.TerminologyProvider
	limits       Limits
	depth        int
	repeatRounds int
}

// NewContext builds the root evaluation context: %resource and %context
// both point at root, per FHIRPath's constraint-evaluation convention.
func NewContext(goCtx context.Context, root types.Value, provider model.ModelProvider, terminology model.TerminologyProvider, limits Limits) *Context {
	if goCtx == nil {
		goCtx = context.Background()
	}
	return &Context{
		goCtx:       goCtx,
		root:        root,
		this:        root,
		variables:   map[string]types.Value{"resource": root, "context": root},
		model:       provider,
		terminology: terminology,
		limits:      limits,
	}
}

// --- context.Context passthrough (registry.EvalContext embeds it) ---

func (c *Context) Deadline() (deadline time.Time, ok bool) { return c.goCtx.Deadline() }
func (c *Context) Done() <-chan struct{}                   { return c.goCtx.Done() }
func (c *Context) Err() error                              { return c.goCtx.Err() }
func (c *Context) Value(key any) any                       { return c.goCtx.Value(key) }

// --- registry.EvalContext ---

func (c *Context) Input() types.Value                       { return c.this }
func (c *Context) Root() types.Value                         { return c.root }
func (c *Context) ModelProvider() model.ModelProvider         { return c.model }
func (c *Context) TerminologyProvider() model.TerminologyProvider { return c.terminology }

func (c *Context) GetVariable(name string) (types.Value, bool) {
	switch name {
	case "this":
		return c.this, true
	case "index":
		if !c.inLambda {
			return nil, false
		}
		return types.NewInteger(int64(c.index)), true
	case "total":
		if c.total == nil {
			return nil, false
		}
		return c.total, true
	}
	v, ok := c.variables[name]
	return v, ok
}

// withFocus returns a shallow copy of c with only the focus rebound, for
// navigation; withLambdaVars below also rebinds $index/$total for
// lambda-body evaluation.
func (c *Context) withFocus(v types.Value) *Context {
	next := *c
	next.this = v
	return &next
}

func (c *Context) withLambdaVars(item types.Value, index int, total types.Value) *Context {
	next := *c
	next.this = item
	next.index = index
	next.total = total
	next.inLambda = true
	return &next
}

// WithVariable returns a copy of c with an additional %name variable bound,
// for host packages seeding external variables before evaluation.
func (c *Context) WithVariable(name string, v types.Value) *Context {
	return c.withVariable(name, v)
}

func (c *Context) withVariable(name string, v types.Value) *Context {
	next := *c
	next.variables = make(map[string]types.Value, len(c.variables)+1)
	for k, val := range c.variables {
		next.variables[k] = val
	}
	next.variables[name] = v
	return &next
}

// enterDepth increments the recursion depth guard, returning an error if
// MaxDepth is exceeded; callers must call the returned leave func via defer.
func (c *Context) enterDepth() (func(), error) {
	limit := c.limits.MaxDepth
	if limit <= 0 {
		limit = DefaultLimits.MaxDepth
	}
	c.depth++
	if c.depth > limit {
		return func() { c.depth-- }, fmt.Errorf("maximum expression depth (%d) exceeded", limit)
	}
	return func() { c.depth-- }, nil
}

// CheckCancellation reports ctx.Err() if the underlying context was
// canceled or timed out.
func (c *Context) CheckCancellation() error { return c.goCtx.Err() }
