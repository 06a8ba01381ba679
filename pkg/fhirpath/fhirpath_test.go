package fhirpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

var samplePatient = []byte(`{
	"resourceType": "Patient",
	"id": "example",
	"active": true,
	"name": [
		{"use": "official", "family": "Chalmers", "given": ["Peter", "James"]},
		{"use": "nickname", "given": ["Jim"]}
	],
	"birthDate": "1974-12-25",
	"telecom": [
		{"system": "phone", "value": "555-1234", "use": "home"},
		{"system": "email", "value": "peter@example.com"}
	]
}`)

func TestEvaluateBasicPath(t *testing.T) {
	result, err := Evaluate(samplePatient, "Patient.name.given")
	require.NoError(t, err)
	assert.Len(t, result, 3)
}

func TestEvaluateWhere(t *testing.T) {
	result, err := Evaluate(samplePatient, "Patient.name.where(use = 'nickname').given")
	require.NoError(t, err)
	require.Len(t, result, 1)
	s, ok := result[0].(types.String)
	require.True(t, ok)
	assert.Equal(t, "Jim", s.Value())
}

func TestEvaluateBooleanLogic(t *testing.T) {
	ok, err := EvaluateToBoolean(samplePatient, "Patient.active and Patient.name.exists()")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateSelect(t *testing.T) {
	result, err := Evaluate(samplePatient, "Patient.telecom.select(system)")
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestEvaluateCount(t *testing.T) {
	n, err := Count(samplePatient, "Patient.name")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExists(t *testing.T) {
	ok, err := Exists(samplePatient, "Patient.name.where(use = 'official')")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(samplePatient, "Patient.name.where(use = 'maiden')")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateEmptyResultIsNotError(t *testing.T) {
	result, err := Evaluate(samplePatient, "Patient.deceasedBoolean")
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestMustEvaluatePanicsOnParseError(t *testing.T) {
	assert.Panics(t, func() {
		MustEvaluate(samplePatient, "Patient.name.")
	})
}

func TestCompileAndReuse(t *testing.T) {
	expr, err := Compile("Patient.name.given.first()")
	require.NoError(t, err)
	result, err := expr.Evaluate(samplePatient)
	require.NoError(t, err)
	require.Len(t, result, 1)
	s, ok := result[0].(types.String)
	require.True(t, ok)
	assert.Equal(t, "Peter", s.Value())
}

func TestEvaluateWithOptionsVariable(t *testing.T) {
	expr, err := Compile("%threshold")
	require.NoError(t, err)
	result, err := expr.EvaluateWithOptions(samplePatient, WithVariable("threshold", types.NewInteger(42)))
	require.NoError(t, err)
	require.Len(t, result, 1)
	i, ok := result[0].(types.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(42), i.Value())
}

func TestAnalyzeFlagsUnknownFunction(t *testing.T) {
	res, err := Analyze("Patient.name.bogusFunc()")
	require.NoError(t, err)
	codes := make([]string, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		codes[i] = string(d.Code)
	}
	assert.Contains(t, codes, "unknown-function")
}

func TestAnalyzeAcceptsKnownExpression(t *testing.T) {
	res, err := Analyze("Patient.name.where(use = 'official').given.first()")
	require.NoError(t, err)
	for _, d := range res.Diagnostics {
		assert.NotEqual(t, "unknown-function", string(d.Code))
	}
}
