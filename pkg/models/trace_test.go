package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_AppendOnlyOrdering(t *testing.T) {
	tr := NewTrace()
	tr.Add(CalculationStep{Key: StepKeCalc, Result: 0.09})
	tr.Add(CalculationStep{Key: StepWACCCalc, Result: 0.075})

	steps := tr.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].StepID)
	assert.Equal(t, 2, steps[1].StepID)
	assert.Equal(t, StepKeCalc, steps[0].Key)

	// Steps() hands out a copy; mutating it does not touch the trace.
	steps[0].Result = -1
	again := tr.Steps()
	assert.Equal(t, 0.09, again[0].Result)
}

func TestTrace_UnregisteredKeyPanics(t *testing.T) {
	tr := NewTrace()
	assert.Panics(t, func() {
		tr.Add(CalculationStep{Key: "NOT_A_KEY"})
	})
}

func TestUpside(t *testing.T) {
	assert.InDelta(t, 25.0, Upside(125, 100), 1e-9)
	assert.InDelta(t, -20.0, Upside(80, 100), 1e-9)
	assert.Equal(t, 0.0, Upside(50, 0))
}

func TestResult_WithMonteCarloRecenters(t *testing.T) {
	base := ValuationResult{IntrinsicValue: 120, MarketPrice: 100, UpsidePct: 20}
	enriched := base.WithMonteCarlo(MonteCarloStats{P50: 110, Valid: 900, Iterations: 1000, ValidRatio: 0.9})

	assert.Equal(t, 110.0, enriched.IntrinsicValue)
	assert.InDelta(t, 10.0, enriched.UpsidePct, 1e-9)
	// original untouched
	assert.Equal(t, 120.0, base.IntrinsicValue)
	assert.Nil(t, base.MonteCarlo)
}

func TestResult_WithMonteCarloUnstableWarns(t *testing.T) {
	base := ValuationResult{IntrinsicValue: 120, MarketPrice: 100}
	enriched := base.WithMonteCarlo(MonteCarloStats{P50: 90, ValidRatio: 0.3, Unstable: true})
	require.Len(t, enriched.Warnings, 1)
	assert.Empty(t, base.Warnings)
}
