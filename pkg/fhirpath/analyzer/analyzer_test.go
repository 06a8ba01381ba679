package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/parser"
)

func parseOrFail(t *testing.T, src string) ast.Node {
	t.Helper()
	node, err := parser.Parse(src)
	require.NoError(t, err)
	return node
}

func TestAnalyzeValidExpressionHasNoDiagnostics(t *testing.T) {
	node := parseOrFail(t, "Patient.name.where(use = 'official').given.first()")
	result := Analyze("", node, Options{})
	assert.Empty(t, result.Diagnostics)
}

func TestAnalyzeFlagsUnknownFunctionWithSuggestion(t *testing.T) {
	node := parseOrFail(t, "Patient.name.wher(use = 'official')")
	result := Analyze("", node, Options{})
	require.Len(t, result.Diagnostics, 1)
	d := result.Diagnostics[0]
	assert.Equal(t, CodeUnknownFunction, d.Code)
	assert.Contains(t, d.Suggestions, "where")
}

func TestAnalyzeFlagsArityMismatch(t *testing.T) {
	node := parseOrFail(t, "Patient.name.skip(1, 2, 3)")
	result := Analyze("", node, Options{})
	codes := diagnosticCodes(result)
	assert.Contains(t, codes, CodeArityMismatch)
}

func TestAnalyzeFlagsUnknownVariable(t *testing.T) {
	node := parseOrFail(t, "%bogusVar + 1")
	result := Analyze("", node, Options{})
	codes := diagnosticCodes(result)
	assert.Contains(t, codes, CodeUnknownVariable)
}

func TestAnalyzeAcceptsDeclaredExternalVariable(t *testing.T) {
	node := parseOrFail(t, "%threshold + 1")
	result := Analyze("", node, Options{Variables: []string{"threshold"}})
	codes := diagnosticCodes(result)
	assert.NotContains(t, codes, CodeUnknownVariable)
}

func TestAnalyzeDoesNotFlagLambdaForms(t *testing.T) {
	node := parseOrFail(t, "Patient.name.repeat(given).aggregate($this + $total, 0)")
	result := Analyze("", node, Options{})
	codes := diagnosticCodes(result)
	assert.NotContains(t, codes, CodeUnknownFunction)
}

func TestAnalyzeFlagsIncompatibleOperandTypesFromLiterals(t *testing.T) {
	node := parseOrFail(t, "true + 1")
	result := Analyze("", node, Options{})
	codes := diagnosticCodes(result)
	assert.Contains(t, codes, CodeIncompatibleOperands)
}

func TestAnalyzeFlagsIncompatibleComparisonOperandFamilies(t *testing.T) {
	node := parseOrFail(t, "true < 1")
	result := Analyze("", node, Options{})
	codes := diagnosticCodes(result)
	assert.Contains(t, codes, CodeIncompatibleOperands)
}

func TestAnalyzeFlagsArgumentTypeMismatch(t *testing.T) {
	node := parseOrFail(t, "1.power('x')")
	result := Analyze("", node, Options{})
	codes := diagnosticCodes(result)
	assert.Contains(t, codes, CodeArgumentTypeMismatch)
}

func TestAnalyzeDoesNotTypeCheckWithoutModelProvider(t *testing.T) {
	node := parseOrFail(t, "Patient.active + 1")
	result := Analyze("", node, Options{})
	codes := diagnosticCodes(result)
	assert.NotContains(t, codes, CodeIncompatibleOperands)
}

func TestAnalyzeFlagsIncompatibleOperandsUsingDeclaredPropertyType(t *testing.T) {
	provider := model.NewMockProvider().
		RegisterType(model.Resource("Patient")).
		RegisterProperty("Patient", "active", model.TypeBoolean)
	node := parseOrFail(t, "Patient.active + 1")
	result := Analyze("", node, Options{ModelProvider: provider})
	codes := diagnosticCodes(result)
	assert.Contains(t, codes, CodeIncompatibleOperands)
}

func TestAnalyzeResolvesRootTypeImplicitProperty(t *testing.T) {
	provider := model.NewMockProvider().
		RegisterType(model.Resource("Patient")).
		RegisterProperty("Patient", "active", model.TypeBoolean)
	node := parseOrFail(t, "active + 1")
	result := Analyze("", node, Options{ModelProvider: provider, RootType: model.Resource("Patient")})
	codes := diagnosticCodes(result)
	assert.Contains(t, codes, CodeIncompatibleOperands)
}

func TestAnalyzeWarnsOnAmbiguousChoiceVariantsPresent(t *testing.T) {
	provider := model.NewMockProvider().
		RegisterType(model.Resource("Observation")).
		RegisterChoice("Observation", "value", model.TypeString, model.TypeQuantity)
	node := parseOrFail(t, "Observation.value")
	instance := []byte(`{"valueString":"x","valueQuantity":{"value":1}}`)
	result := Analyze("", node, Options{ModelProvider: provider, Instance: instance})
	codes := diagnosticCodes(result)
	require.Contains(t, codes, CodeAmbiguousChoice)
	for _, d := range result.Diagnostics {
		if d.Code == CodeAmbiguousChoice {
			assert.Equal(t, SeverityWarning, d.Severity)
		}
	}
}

func TestAnalyzeResolvesSingleChoiceVariantWithoutWarning(t *testing.T) {
	provider := model.NewMockProvider().
		RegisterType(model.Resource("Observation")).
		RegisterChoice("Observation", "value", model.TypeString, model.TypeQuantity)
	node := parseOrFail(t, "Observation.value")
	instance := []byte(`{"valueQuantity":{"value":1}}`)
	result := Analyze("", node, Options{ModelProvider: provider, Instance: instance})
	assert.Empty(t, result.Diagnostics)
}

func diagnosticCodes(result *AnalysisResult) []Code {
	codes := make([]Code, len(result.Diagnostics))
	for i, d := range result.Diagnostics {
		codes[i] = d.Code
	}
	return codes
}

func TestLevenshteinDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"where", "where", 0},
		{"wher", "where", 1},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, levenshtein(c.a, c.b), "levenshtein(%q, %q)", c.a, c.b)
	}
}

func TestFindBestMatchesRanksClosestFirst(t *testing.T) {
	matches := findBestMatches("wher", []string{"where", "select", "first"}, 3)
	require.NotEmpty(t, matches)
	assert.Equal(t, "where", matches[0].Replacement)
}
