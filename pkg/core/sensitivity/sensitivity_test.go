package sensitivity

import (
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

func testParams(t *testing.T, sens models.SensitivityParams) *models.Parameters {
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
		Sensitivity: sens,
	})
	require.NoError(t, err)
	return p
}

func runnerFor(t *testing.T, name string) Runner {
	t.Helper()
	s, err := strategy.Get(name)
	require.NoError(t, err)
	return s.Execute
}

func TestRun_DisabledReturnsNil(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.SensitivityParams{})
	run := runnerFor(t, strategy.FCFFStandard)

	base, err := run(snap, params)
	require.NoError(t, err)
	assert.Nil(t, Run(base, snap, params, run))
}

func TestRun_CenterCellMatchesBase(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.SensitivityParams{Enabled: true})
	run := runnerFor(t, strategy.FCFFStandard)

	base, err := run(snap, params)
	require.NoError(t, err)

	sens := Run(base, snap, params, run)
	require.NotNil(t, sens)

	require.Len(t, sens.XValues, models.DefaultSensitivitySteps)
	require.Len(t, sens.YValues, models.DefaultSensitivitySteps)
	require.Len(t, sens.Values, models.DefaultSensitivitySteps)

	// The middle cell pins the exact rate and growth the base run used,
	// so it reproduces the base value.
	assert.InDelta(t, base.IntrinsicValue, sens.CenterValue, 1e-9)
	assert.InDelta(t, base.DiscountRate, sens.XValues[2], 1e-12)
	assert.Greater(t, sens.SensitivityScore, 0.0)

	// X axis ascends, Y axis descends (top row is the highest growth).
	for i := 1; i < len(sens.XValues); i++ {
		assert.Greater(t, sens.XValues[i], sens.XValues[i-1])
		assert.Less(t, sens.YValues[i], sens.YValues[i-1])
	}
}

func TestRun_MonotoneAcrossAxes(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.SensitivityParams{Enabled: true})
	run := runnerFor(t, strategy.FCFFStandard)

	base, err := run(snap, params)
	require.NoError(t, err)
	sens := Run(base, snap, params, run)
	require.NotNil(t, sens)

	// A higher discount rate lowers the value along every row; a lower
	// terminal growth lowers it down every column.
	for _, row := range sens.Values {
		for j := 1; j < len(row); j++ {
			assert.Less(t, row[j], row[j-1])
		}
	}
	for i := 1; i < len(sens.Values); i++ {
		for j := range sens.Values[i] {
			assert.Less(t, sens.Values[i][j], sens.Values[i-1][j])
		}
	}
}

func TestRun_DivergedCellsHoldZero(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.SensitivityParams{Enabled: true})
	params.Rates.CostOfEquity = fp(0.045)
	params.Growth.PerpetualGrowth = fp(0.04)
	run := runnerFor(t, strategy.FCFE)

	base, err := run(snap, params)
	require.NoError(t, err)
	sens := Run(base, snap, params, run)
	require.NotNil(t, sens)

	// Top row growth is 4.5%: cells whose rate does not exceed it
	// diverge and stay zero, the rest compute normally.
	top := sens.Values[0]
	assert.Zero(t, top[0])
	assert.Zero(t, top[1])
	assert.Zero(t, top[2])
	assert.Greater(t, top[3], 0.0)
	assert.Greater(t, sens.CenterValue, 0.0)
}

func TestRun_UndiscountedModelReturnsNil(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.SensitivityParams{Enabled: true})

	base := models.ValuationResult{RateKind: models.RateNone}
	called := false
	run := func(_ *models.CompanySnapshot, _ *models.Parameters) (models.ValuationResult, error) {
		called = true
		return models.ValuationResult{}, nil
	}

	assert.Nil(t, Run(base, snap, params, run))
	assert.False(t, called)
}

func TestRun_BundleNotMutated(t *testing.T) {
	snap := testSnapshot()
	params := testParams(t, models.SensitivityParams{Enabled: true})
	run := runnerFor(t, strategy.FCFFStandard)

	base, err := run(snap, params)
	require.NoError(t, err)
	require.NotNil(t, Run(base, snap, params, run))

	assert.Nil(t, params.Rates.WACC)
	assert.Nil(t, params.Rates.CostOfEquity)
	assert.InDelta(t, 0.02, *params.Growth.PerpetualGrowth, 1e-12)
	assert.True(t, params.Sensitivity.Enabled)
}

func TestLinspace_Endpoints(t *testing.T) {
	v := linspace(0.045, 0.065, 5)
	require.Len(t, v, 5)
	assert.InDelta(t, 0.045, v[0], 1e-12)
	assert.InDelta(t, 0.055, v[2], 1e-12)
	assert.InDelta(t, 0.065, v[4], 1e-12)
}
