package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// mockTerminology is a canned model.TerminologyProvider for exercising the
// registry's terminology-function group without a real terminology service.
type mockTerminology struct {
	validateVS func(valueSetURL, codedValue string) ([]bool, error)
	translate  func(conceptMapURL, codedValue string) ([]string, error)
	lookup     func(codedValue string, params map[string]string) (map[string]string, error)
	subsumes   func(systemURL, codeA, codeB string) (bool, error)
}

func (m *mockTerminology) ValidateVS(_ context.Context, valueSetURL, codedValue string, _ map[string]string) ([]bool, error) {
	return m.validateVS(valueSetURL, codedValue)
}

func (m *mockTerminology) Translate(_ context.Context, conceptMapURL, codedValue string, _ map[string]string) ([]string, error) {
	return m.translate(conceptMapURL, codedValue)
}

func (m *mockTerminology) Lookup(_ context.Context, codedValue string, params map[string]string) (map[string]string, error) {
	return m.lookup(codedValue, params)
}

func (m *mockTerminology) Subsumes(_ context.Context, systemURL, codeA, codeB string, _ map[string]string) (bool, error) {
	return m.subsumes(systemURL, codeA, codeB)
}

// termEvalContext is testEvalContext plus a configurable TerminologyProvider.
type termEvalContext struct {
	context.Context
	input types.Value
	term  model.TerminologyProvider
}

func (c termEvalContext) Input() types.Value                             { return c.input }
func (c termEvalContext) Root() types.Value                              { return c.input }
func (c termEvalContext) GetVariable(string) (types.Value, bool)         { return nil, false }
func (c termEvalContext) ModelProvider() model.ModelProvider             { return model.NewR4Provider() }
func (c termEvalContext) TerminologyProvider() model.TerminologyProvider { return c.term }

func TestMemberOfRequiresConfiguredProvider(t *testing.T) {
	r := Default()
	op, ok := r.Get("memberOf")
	require.True(t, ok)

	ctx := termEvalContext{Context: context.Background(), input: types.NewString("active")}
	_, _, err := op.TrySync(ctx, []types.Value{types.NewString("http://example.org/fhir/ValueSet/status")})
	assert.Error(t, err, "expected an error when no terminology service is configured")
}

func TestMemberOfDelegatesToValidateVS(t *testing.T) {
	r := Default()
	op, ok := r.Get("memberOf")
	require.True(t, ok)

	term := &mockTerminology{
		validateVS: func(valueSetURL, codedValue string) ([]bool, error) {
			assert.Equal(t, "http://example.org/fhir/ValueSet/status", valueSetURL)
			assert.Equal(t, "active", codedValue)
			return []bool{true}, nil
		},
	}
	ctx := termEvalContext{Context: context.Background(), input: types.NewString("active"), term: term}
	out, handled, err := op.TrySync(ctx, []types.Value{types.NewString("http://example.org/fhir/ValueSet/status")})
	require.NoError(t, err)
	assert.True(t, handled)
	b, ok := types.Unwrap(out).(types.Boolean)
	require.True(t, ok)
	assert.True(t, b.Bool())
}

func TestValidateCodeDelegatesToValidateVS(t *testing.T) {
	r := Default()
	op, ok := r.Get("validateCode")
	require.True(t, ok)

	term := &mockTerminology{
		validateVS: func(system, code string) ([]bool, error) {
			assert.Equal(t, "http://hl7.org/fhir/administrative-gender", system)
			assert.Equal(t, "male", code)
			return []bool{true}, nil
		},
	}
	ctx := termEvalContext{Context: context.Background(), input: types.Empty, term: term}
	out, handled, err := op.TrySync(ctx, []types.Value{
		types.NewString("http://hl7.org/fhir/administrative-gender"),
		types.NewString("male"),
	})
	require.NoError(t, err)
	assert.True(t, handled)
	b, ok := types.Unwrap(out).(types.Boolean)
	require.True(t, ok)
	assert.True(t, b.Bool())
}

func TestSubsumesDelegatesToProvider(t *testing.T) {
	r := Default()
	op, ok := r.Get("subsumes")
	require.True(t, ok)

	term := &mockTerminology{
		subsumes: func(systemURL, codeA, codeB string) (bool, error) {
			assert.Equal(t, "http://snomed.info/sct", systemURL)
			assert.Equal(t, "73211009", codeA)
			assert.Equal(t, "46635009", codeB)
			return true, nil
		},
	}
	ctx := termEvalContext{Context: context.Background(), input: types.NewString("73211009"), term: term}
	out, handled, err := op.TrySync(ctx, []types.Value{
		types.NewString("http://snomed.info/sct"),
		types.NewString("46635009"),
	})
	require.NoError(t, err)
	assert.True(t, handled)
	b, ok := types.Unwrap(out).(types.Boolean)
	require.True(t, ok)
	assert.True(t, b.Bool())
}

func TestTranslateReturnsCollectionOfMappedCodes(t *testing.T) {
	r := Default()
	op, ok := r.Get("translate")
	require.True(t, ok)

	term := &mockTerminology{
		translate: func(conceptMapURL, codedValue string) ([]string, error) {
			assert.Equal(t, "http://example.org/fhir/ConceptMap/map", conceptMapURL)
			assert.Equal(t, "old-code", codedValue)
			return []string{"new-code-1", "new-code-2"}, nil
		},
	}
	ctx := termEvalContext{Context: context.Background(), input: types.NewString("old-code"), term: term}
	out, handled, err := op.TrySync(ctx, []types.Value{types.NewString("http://example.org/fhir/ConceptMap/map")})
	require.NoError(t, err)
	assert.True(t, handled)
	coll, ok := out.(types.Collection)
	require.True(t, ok)
	require.Len(t, coll, 2)
	assert.Equal(t, "new-code-1", coll[0].(types.String).Value())
	assert.Equal(t, "new-code-2", coll[1].(types.String).Value())
}

func TestTranslateReturnsEmptyWhenNoMapping(t *testing.T) {
	r := Default()
	op, ok := r.Get("translate")
	require.True(t, ok)

	term := &mockTerminology{
		translate: func(string, string) ([]string, error) { return nil, nil },
	}
	ctx := termEvalContext{Context: context.Background(), input: types.NewString("old-code"), term: term}
	out, handled, err := op.TrySync(ctx, []types.Value{types.NewString("http://example.org/fhir/ConceptMap/map")})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, types.IsEmptyValue(out))
}

func TestDesignationReadsLookupResult(t *testing.T) {
	r := Default()
	op, ok := r.Get("designation")
	require.True(t, ok)

	term := &mockTerminology{
		lookup: func(codedValue string, params map[string]string) (map[string]string, error) {
			assert.Equal(t, "active", codedValue)
			return map[string]string{"designation": "Active"}, nil
		},
	}
	ctx := termEvalContext{Context: context.Background(), input: types.NewString("active"), term: term}
	out, handled, err := op.TrySync(ctx, nil)
	require.NoError(t, err)
	assert.True(t, handled)
	s, ok := types.Unwrap(out).(types.String)
	require.True(t, ok)
	assert.Equal(t, "Active", s.Value())
}

func TestPropertyReadsNamedLookupKey(t *testing.T) {
	r := Default()
	op, ok := r.Get("property")
	require.True(t, ok)

	term := &mockTerminology{
		lookup: func(codedValue string, params map[string]string) (map[string]string, error) {
			return map[string]string{"status": "retired"}, nil
		},
	}
	ctx := termEvalContext{Context: context.Background(), input: types.NewString("old-code"), term: term}
	out, handled, err := op.TrySync(ctx, []types.Value{types.NewString("status")})
	require.NoError(t, err)
	assert.True(t, handled)
	s, ok := types.Unwrap(out).(types.String)
	require.True(t, ok)
	assert.Equal(t, "retired", s.Value())
}

func TestPropertyReturnsEmptyWhenKeyAbsent(t *testing.T) {
	r := Default()
	op, ok := r.Get("property")
	require.True(t, ok)

	term := &mockTerminology{
		lookup: func(string, map[string]string) (map[string]string, error) { return map[string]string{}, nil },
	}
	ctx := termEvalContext{Context: context.Background(), input: types.NewString("old-code"), term: term}
	out, handled, err := op.TrySync(ctx, []types.Value{types.NewString("status")})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, types.IsEmptyValue(out))
}

func TestCodedValueArgRejectsNonStringFocus(t *testing.T) {
	r := Default()
	op, ok := r.Get("memberOf")
	require.True(t, ok)

	term := &mockTerminology{}
	ctx := termEvalContext{Context: context.Background(), input: types.NewInteger(1), term: term}
	_, _, err := op.TrySync(ctx, []types.Value{types.NewString("http://example.org/fhir/ValueSet/status")})
	assert.Error(t, err)
}
