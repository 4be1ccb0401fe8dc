package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverallScore(t *testing.T) {
	assert.InDelta(t, 1.0, OverallScore(1, 0, true), 1e-9)
	assert.InDelta(t, 0.0, OverallScore(0, 1, false), 1e-9)
	assert.InDelta(t, 0.4*0.5+0.3*0.8+0.3, OverallScore(0.5, 0.2, true), 1e-9)
}

func TestFailedEvaluation(t *testing.T) {
	r := FailedEvaluation("boom")

	assert.False(t, r.Passed)
	assert.False(t, r.Schema.Valid)
	assert.Equal(t, 1.0, r.Hallucination.Score)
	assert.Equal(t, 0.0, r.OverallScore)
	assert.Equal(t, "boom", r.Error)
}
