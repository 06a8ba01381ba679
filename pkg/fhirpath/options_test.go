package fhirpath

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
)

func TestDefaultMaxDepthFallsBackWithoutEnvVar(t *testing.T) {
	t.Setenv(maxDepthEnvVar, "")
	assert.Equal(t, eval.DefaultLimits.MaxDepth, defaultMaxDepth())
}

func TestDefaultMaxDepthHonorsEnvOverride(t *testing.T) {
	t.Setenv(maxDepthEnvVar, "17")
	assert.Equal(t, 17, defaultMaxDepth())
}

func TestDefaultMaxDepthIgnoresInvalidEnvValue(t *testing.T) {
	t.Setenv(maxDepthEnvVar, "not-a-number")
	assert.Equal(t, eval.DefaultLimits.MaxDepth, defaultMaxDepth())
}

func TestDefaultMaxDepthIgnoresNonPositiveEnvValue(t *testing.T) {
	t.Setenv(maxDepthEnvVar, "0")
	assert.Equal(t, eval.DefaultLimits.MaxDepth, defaultMaxDepth())
}

func TestDefaultOptionsUsesEnvOverride(t *testing.T) {
	t.Setenv(maxDepthEnvVar, "5")
	assert.Equal(t, 5, DefaultOptions().MaxDepth)
}
