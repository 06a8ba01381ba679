package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/parser"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/registry"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

const observationJSON = `{
	"resourceType": "Observation",
	"status": "final",
	"component": [
		{"code": {"text": "systolic"}, "valueInteger": 120},
		{"code": {"text": "diastolic"}, "valueInteger": 80},
		{"code": {"text": "heartRate"}, "valueInteger": 72}
	]
}`

func evalExpr(t *testing.T, source string, root []byte) types.Value {
	t.Helper()
	coll, err := types.JSONToCollection(root)
	require.NoError(t, err)
	ctx := NewContext(context.Background(), coll, model.NewR4Provider(), nil, DefaultLimits)
	node, err := parser.Parse(source)
	require.NoError(t, err)
	ev := NewEvaluator(registry.Default())
	result, err := ev.Eval(ctx, node)
	require.NoError(t, err)
	return result
}

func TestSelectProjectsEachItem(t *testing.T) {
	result := evalExpr(t, "Observation.component.select(valueInteger)", []byte(observationJSON))
	coll := types.Normalize(result)
	require.Len(t, coll, 3)
	total := int64(0)
	for _, v := range coll {
		i, ok := v.(types.Integer)
		require.True(t, ok, "expected Integer, got %T", v)
		total += i.Value()
	}
	assert.Equal(t, int64(272), total)
}

func TestWhereFiltersByCriteria(t *testing.T) {
	result := evalExpr(t, "Observation.component.where(valueInteger > 100).code.text", []byte(observationJSON))
	coll := types.Normalize(result)
	require.Len(t, coll, 1)
	s, ok := coll[0].(types.String)
	require.True(t, ok)
	assert.Equal(t, "systolic", s.Value())
}

func TestAllAndAny(t *testing.T) {
	allPositive := evalExpr(t, "Observation.component.all(valueInteger > 0)", []byte(observationJSON))
	b, ok := allPositive.(types.Boolean)
	require.True(t, ok)
	assert.True(t, b.Bool())

	anyHigh := evalExpr(t, "Observation.component.any(valueInteger > 100)", []byte(observationJSON))
	b, ok = anyHigh.(types.Boolean)
	require.True(t, ok)
	assert.True(t, b.Bool())
}

func TestAggregateSumsWithAccumulator(t *testing.T) {
	result := evalExpr(t, "Observation.component.valueInteger.aggregate($this + $total, 0)", []byte(observationJSON))
	total, err := types.AsSingleton(result)
	require.NoError(t, err)
	i, ok := total.(types.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(272), i.Value())
}

func TestIifTernary(t *testing.T) {
	result := evalExpr(t, "iif(Observation.status = 'final', 'done', 'pending')", []byte(observationJSON))
	coll := types.Normalize(result)
	require.Len(t, coll, 1)
	s, ok := coll[0].(types.String)
	require.True(t, ok)
	assert.Equal(t, "done", s.Value())
}

func TestSortOrdersDescendingByKey(t *testing.T) {
	result := evalExpr(t, "Observation.component.valueInteger.sort(-$this)", []byte(observationJSON))
	coll := types.Normalize(result)
	require.Len(t, coll, 3)
	first, ok := coll[0].(types.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(120), first.Value())
	last, ok := coll[2].(types.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(72), last.Value())
}

func TestThreeValuedAndShortCircuitsOnFalse(t *testing.T) {
	result := evalExpr(t, "false and (1/0 = 1)", []byte(observationJSON))
	b, ok := result.(types.Boolean)
	require.True(t, ok)
	assert.False(t, b.Bool())
}
