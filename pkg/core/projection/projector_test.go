package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glassbox_valuation/pkg/models"
)

func TestFadeDown_PlateauThenFade(t *testing.T) {
	f := FadeDown{
		GrowthStart:     0.10,
		GrowthTerminal:  0.02,
		Years:           5,
		HighGrowthYears: 2,
	}
	res, err := f.Project(100)
	require.NoError(t, err)
	require.Len(t, res.Flows, 5)

	// Two plateau years at 10%
	assert.InDelta(t, 110.0, res.Flows[0], 1e-9)
	assert.InDelta(t, 121.0, res.Flows[1], 1e-9)

	// Fade over 3 remaining years: g3 = 0.10 + 1/3*(-0.08)
	g3 := 0.10 + (1.0/3.0)*(0.02-0.10)
	assert.InDelta(t, 121.0*(1+g3), res.Flows[2], 1e-9)

	// Final year growth equals the terminal rate exactly
	gLast := res.Flows[4]/res.Flows[3] - 1
	assert.InDelta(t, 0.02, gLast, 1e-12)

	assert.Equal(t, models.StepFCFProjection, res.Step.Key)
	assert.Equal(t, res.Flows[4], res.Step.Result)
}

func TestFadeDown_NoDiscontinuityWithZeroPlateau(t *testing.T) {
	f := FadeDown{GrowthStart: 0.10, GrowthTerminal: 0.02, Years: 5, HighGrowthYears: 0}
	res, err := f.Project(100)
	require.NoError(t, err)

	// Growth rate changes strictly monotonically from year one on.
	prevFlow := 100.0
	prevG := 2.0 // above any plausible rate
	for _, fl := range res.Flows {
		g := fl/prevFlow - 1
		assert.Less(t, g, prevG)
		prevG = g
		prevFlow = fl
	}
	// Year-1 growth is already faded, not the raw start rate.
	assert.InDelta(t, 0.10+(1.0/5.0)*(0.02-0.10), res.Flows[0]/100-1, 1e-12)
}

func TestFadeDown_PlateauClampedToHorizonMinusOne(t *testing.T) {
	f := FadeDown{GrowthStart: 0.10, GrowthTerminal: 0.02, Years: 5, HighGrowthYears: 9}
	res, err := f.Project(100)
	require.NoError(t, err)

	// Plateau clamped to 4, so only the final year fades, straight to g_term.
	for i := 1; i < 4; i++ {
		assert.InDelta(t, 0.10, res.Flows[i]/res.Flows[i-1]-1, 1e-12)
	}
	assert.InDelta(t, 0.02, res.Flows[4]/res.Flows[3]-1, 1e-12)
}

func TestFadeDown_RejectsBadHorizon(t *testing.T) {
	_, err := FadeDown{GrowthStart: 0.1, GrowthTerminal: 0.02, Years: 0}.Project(100)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = FadeDown{GrowthStart: 0.1, GrowthTerminal: 0.02, Years: 16}.Project(100)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestMarginConvergence(t *testing.T) {
	m := MarginConvergence{
		RevenueGrowth: 0.08,
		MarginStart:   0.10,
		MarginTarget:  0.20,
		Years:         5,
	}
	res, err := m.Project(1000)
	require.NoError(t, err)
	require.Len(t, res.Flows, 5)

	// Year 1: revenue 1080, margin 0.12
	assert.InDelta(t, 1080*0.12, res.Flows[0], 1e-9)
	// Year 5: revenue 1000*1.08^5, margin exactly at target
	rev5 := 1000 * 1.08 * 1.08 * 1.08 * 1.08 * 1.08
	assert.InDelta(t, rev5*0.20, res.Flows[4], 1e-6)
}

func TestMarginConvergence_RejectsNonPositiveRevenue(t *testing.T) {
	_, err := MarginConvergence{RevenueGrowth: 0.05, MarginStart: 0.1, MarginTarget: 0.2, Years: 5}.Project(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestManualVector_Passthrough(t *testing.T) {
	m := ManualVector{Flows: []float64{10, 11, 12}}
	res, err := m.Project(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11, 12}, res.Flows)

	// Own copy: mutating the result does not touch the config.
	res.Flows[0] = -1
	assert.Equal(t, 10.0, m.Flows[0])
}

func TestManualVector_RejectsEmpty(t *testing.T) {
	_, err := ManualVector{}.Project(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestClampPlateau(t *testing.T) {
	assert.Equal(t, 4, ClampPlateau(9, 5))
	assert.Equal(t, 2, ClampPlateau(2, 5))
	assert.Equal(t, 0, ClampPlateau(-1, 5))
}
