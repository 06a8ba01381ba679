package fhirpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpressionCacheHitsOnRepeatedLookup(t *testing.T) {
	c := NewExpressionCache(10)
	e1, err := c.Get("Patient.name")
	require.NoError(t, err)
	e2, err := c.Get("Patient.name")
	require.NoError(t, err)
	assert.Same(t, e1, e2, "expected the second Get to return the cached *Expression")

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestExpressionCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewExpressionCache(2)
	_, err := c.Get("Patient.a")
	require.NoError(t, err)
	_, err = c.Get("Patient.b")
	require.NoError(t, err)
	// Touch "a" so "b" becomes the least recently used entry.
	_, err = c.Get("Patient.a")
	require.NoError(t, err)
	_, err = c.Get("Patient.c")
	require.NoError(t, err)
	require.Equal(t, 2, c.Size())

	before := c.Stats()
	_, err = c.Get("Patient.b")
	require.NoError(t, err)
	after := c.Stats()
	assert.Equal(t, before.Misses+1, after.Misses, "expected 'Patient.b' to have been evicted and recompiled as a fresh miss")
}

func TestExpressionCacheRejectsInvalidExpression(t *testing.T) {
	c := NewExpressionCache(10)
	_, err := c.Get("Patient...")
	assert.Error(t, err)
	assert.Equal(t, 0, c.Size())
}

func TestHitRateComputation(t *testing.T) {
	c := NewExpressionCache(10)
	assert.Zero(t, c.HitRate())

	_, err := c.Get("Patient.a")
	require.NoError(t, err)
	_, err = c.Get("Patient.a")
	require.NoError(t, err)
	assert.Equal(t, float64(50), c.HitRate())
}
