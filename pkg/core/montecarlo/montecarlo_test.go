package montecarlo

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glassbox_valuation/pkg/core/strategy"
	"glassbox_valuation/pkg/models"
)

func fp(v float64) *float64 { return &v }

func testSnapshot() *models.CompanySnapshot {
	fcf := 10_000_000.0
	return &models.CompanySnapshot{
		Ticker:            "ACME",
		Currency:          "USD",
		CurrentPrice:      100,
		SharesOutstanding: 1_000_000,
		Beta:              fp(1.0),
		EBITTTM:           20_000_000,
		FCFTTM:            &fcf,
		InterestExpense:   4_000_000,
		TotalDebt:         200_000_000,
		Cash:              50_000_000,
	}
}

func testParams(t *testing.T, mc models.MonteCarloParams) *models.Parameters {
	t.Helper()
	p, err := models.NewParameters(models.Parameters{
		Rates: models.RatesParams{
			RiskFreeRate:      fp(0.04),
			MarketRiskPremium: fp(0.05),
			CostOfDebt:        fp(0.05),
			TaxRate:           fp(0.25),
		},
		Growth: models.GrowthParams{
			FCFGrowthRate:   fp(0.03),
			PerpetualGrowth: fp(0.02),
			Years:           5,
		},
		MonteCarlo: mc,
	})
	require.NoError(t, err)
	return p
}

func fcffRunner(t *testing.T) Runner {
	t.Helper()
	s, err := strategy.Get(strategy.FCFFStandard)
	require.NoError(t, err)
	return s.Execute
}

func TestEnrich_ZeroVolatilityMatchesDeterministic(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.MonteCarloParams{
		Enabled:            true,
		Iterations:         100,
		BetaVolatility:     fp(0.0),
		GrowthVolatility:   fp(0.0),
		TerminalVolatility: fp(0.0),
	})

	run := fcffRunner(t)
	base, err := run(snap, params)
	require.NoError(t, err)

	res, err := Enrich(base, snap, params, run)
	require.NoError(t, err)
	require.NotNil(t, res.MonteCarlo)

	// Every draw collapses onto the deterministic run.
	assert.Equal(t, 100, res.MonteCarlo.Valid)
	assert.InDelta(t, base.IntrinsicValue, res.MonteCarlo.P50, 1e-9)
	assert.InDelta(t, base.IntrinsicValue, res.IntrinsicValue, 1e-9)
	assert.InDelta(t, 0.0, res.MonteCarlo.StdDev, 1e-9)
	assert.False(t, res.MonteCarlo.Unstable)
}

func TestEnrich_ZeroBetaCentersOnSnapshotBeta(t *testing.T) {
	snap := testSnapshot()
	snap.Beta = fp(0.0)
	params := testParams(t, models.MonteCarloParams{
		Enabled:            true,
		Iterations:         100,
		BetaVolatility:     fp(0.0),
		GrowthVolatility:   fp(0.0),
		TerminalVolatility: fp(0.0),
	})

	// The simulation must center on the same beta the deterministic
	// resolver picks, even when that beta is exactly zero.
	cfg := resolveConfig(snap, params)
	assert.Equal(t, 0.0, cfg.beta0)

	run := fcffRunner(t)
	base, err := run(snap, params)
	require.NoError(t, err)

	res, err := Enrich(base, snap, params, run)
	require.NoError(t, err)
	assert.InDelta(t, base.IntrinsicValue, res.MonteCarlo.P50, 1e-9)
	assert.InDelta(t, 0.0, res.MonteCarlo.StdDev, 1e-9)
}

func TestEnrich_SeededReproducibility(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.MonteCarloParams{Enabled: true, Iterations: 200})
	run := fcffRunner(t)

	base, err := run(snap, params)
	require.NoError(t, err)

	a, err := Enrich(base, snap, params, run)
	require.NoError(t, err)
	b, err := Enrich(base, snap, params, run)
	require.NoError(t, err)

	assert.Equal(t, *a.MonteCarlo, *b.MonteCarlo)
}

func TestEnrich_PercentilesOrdered(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.MonteCarloParams{Enabled: true, Iterations: 500})
	run := fcffRunner(t)

	base, err := run(snap, params)
	require.NoError(t, err)
	res, err := Enrich(base, snap, params, run)
	require.NoError(t, err)

	mc := res.MonteCarlo
	assert.LessOrEqual(t, mc.P5, mc.P10)
	assert.LessOrEqual(t, mc.P10, mc.P50)
	assert.LessOrEqual(t, mc.P50, mc.P90)
	assert.LessOrEqual(t, mc.P90, mc.P95)
	assert.Greater(t, mc.StdDev, 0.0)
}

func TestEnrich_AppendsSimulationSteps(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.MonteCarloParams{Enabled: true, Iterations: 100})
	run := fcffRunner(t)

	base, err := run(snap, params)
	require.NoError(t, err)
	res, err := Enrich(base, snap, params, run)
	require.NoError(t, err)

	n := len(res.Steps)
	require.Greater(t, n, 4)
	assert.Equal(t, models.StepMCConfig, res.Steps[n-4].Key)
	assert.Equal(t, models.StepMCSampling, res.Steps[n-3].Key)
	assert.Equal(t, models.StepMCFiltering, res.Steps[n-2].Key)
	assert.Equal(t, models.StepMCMedian, res.Steps[n-1].Key)
	// Numbering continues from the deterministic trace.
	assert.Equal(t, n, res.Steps[n-1].StepID)
}

func TestEnrich_UnstableWhenMostDrawsDiverge(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.MonteCarloParams{Enabled: true, Iterations: 100})

	// 30 valid draws out of 100: below the stability floor.
	var calls atomic.Int64
	run := func(_ *models.CompanySnapshot, _ *models.Parameters) (models.ValuationResult, error) {
		if calls.Add(1) <= 30 {
			return models.ValuationResult{IntrinsicValue: 100}, nil
		}
		return models.ValuationResult{}, models.NewModelDivergence(0.05, 0.06)
	}

	res, err := Enrich(models.ValuationResult{IntrinsicValue: 100}, snap, params, run)
	require.NoError(t, err)
	assert.True(t, res.MonteCarlo.Unstable)
	assert.InDelta(t, 0.30, res.MonteCarlo.ValidRatio, 1e-9)
	require.NotEmpty(t, res.Warnings)
}

func TestEnrich_NoValidDrawsFails(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.MonteCarloParams{Enabled: true, Iterations: 100})

	run := func(_ *models.CompanySnapshot, _ *models.Parameters) (models.ValuationResult, error) {
		return models.ValuationResult{}, models.NewModelDivergence(0.05, 0.06)
	}

	_, err := Enrich(models.ValuationResult{}, snap, params, run)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestEnrich_UnexpectedErrorAborts(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.MonteCarloParams{Enabled: true, Iterations: 100})

	run := func(_ *models.CompanySnapshot, _ *models.Parameters) (models.ValuationResult, error) {
		return models.ValuationResult{}, assert.AnError
	}

	_, err := Enrich(models.ValuationResult{}, snap, params, run)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFilter_PlausibilityBand(t *testing.T) {
	values := []float64{math.NaN(), -5, 0, 100, models.MCValueCeiling, models.MCValueCeiling + 1, 42}
	assert.Equal(t, []float64{100, 42}, filter(values))
}

func TestSample_TerminalGrowthClipped(t *testing.T) {
	cfg := config{
		iterations: 1000,
		seed:       models.DefaultMCSeed,
		beta0:      1.0, betaSigma: 0.1,
		g0: 0.03, gSigma: 0.015,
		gt0: 0.02, gtSigma: 0.05, // wide on purpose
		rho: models.DefaultMCCorrelation,
	}
	for _, d := range sample(cfg) {
		assert.GreaterOrEqual(t, d.terminal, 0.0)
		assert.LessOrEqual(t, d.terminal, models.MaxPerpetualGrowth)
	}
}
