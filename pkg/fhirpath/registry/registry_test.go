package registry

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func TestDefaultRegistersCoreOperations(t *testing.T) {
	r := Default()
	for _, name := range []string{"first", "last", "count", "empty", "exists", "abs", "upper", "toInteger", "not"} {
		assert.True(t, r.Has(name), "expected %q to be registered", name)
	}
}

func TestNamesIsSorted(t *testing.T) {
	r := Default()
	names := r.Names()
	require.NotEmpty(t, names)
	assert.True(t, sort.StringsAreSorted(names))
}

func TestDispatchRejectsUnknownOperation(t *testing.T) {
	r := Default()
	_, err := r.Dispatch("definitelyNotAFunction", 0, "")
	assert.Error(t, err)
}

func TestDispatchRejectsArityMismatch(t *testing.T) {
	r := Default()
	// first() takes no arguments.
	_, err := r.Dispatch("first", 1, "")
	assert.Error(t, err)
	_, err = r.Dispatch("first", 0, "")
	assert.NoError(t, err)
}

func TestDispatchCachesResolution(t *testing.T) {
	r := Default()
	op1, err := r.Dispatch("count", 0, "")
	require.NoError(t, err)
	op2, err := r.Dispatch("count", 0, "")
	require.NoError(t, err)
	assert.Same(t, op1, op2, "expected the cached dispatch to return the same *Operation")
}

func TestRegisterClearsDispatchCache(t *testing.T) {
	r := Default()
	_, err := r.Dispatch("count", 0, "")
	require.NoError(t, err)

	replacement := &Operation{
		Identifier: "count",
		Type:       OperationType{Kind: KindFunction},
		MinArgs:    0,
		MaxArgs:    0,
		TrySync: func(ctx EvalContext, _ []types.Value) (types.Value, bool, error) {
			return types.NewInteger(-1), true, nil
		},
	}
	r.Register(replacement)

	op, err := r.Dispatch("count", 0, "")
	require.NoError(t, err)
	assert.Same(t, replacement, op, "expected Dispatch to resolve the freshly registered operation after Register invalidates the cache")
}

func TestFirstTrySyncOnEmptyCollection(t *testing.T) {
	r := Default()
	op, ok := r.Get("first")
	require.True(t, ok)

	out, handled, err := op.TrySync(testEvalContext{Context: context.Background(), input: types.Empty}, nil)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, types.IsEmptyValue(out))
}

// testEvalContext is a minimal EvalContext stub for exercising an
// Operation's TrySync in isolation, without pulling in package eval.
type testEvalContext struct {
	context.Context
	input types.Value
}

func (c testEvalContext) Input() types.Value                             { return c.input }
func (c testEvalContext) Root() types.Value                              { return c.input }
func (c testEvalContext) GetVariable(name string) (types.Value, bool)    { return nil, false }
func (c testEvalContext) ModelProvider() model.ModelProvider             { return model.NewR4Provider() }
func (c testEvalContext) TerminologyProvider() model.TerminologyProvider { return nil }
