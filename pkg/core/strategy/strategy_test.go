package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
		RevenueTTM:        80_000_000,
		EBITTTM:           20_000_000,
		NetIncomeTTM:      12_000_000,
		EPSTTM:            12,
		FCFTTM:            &fcf,
		FCFHistory:        []float64{8_000_000, 9_000_000, 10_000_000},
		DividendPerShare:  4,
		DepreciationTTM:   5_000_000,
		CapexTTM:          6_000_000,
		InterestExpense:   4_000_000,
		NetBorrowing:      1_000_000,
		TotalDebt:         200_000_000,
		Cash:              50_000_000,
		BookValuePerShare: 60,
		Peers: &models.PeerMultiples{
			MedianPE:        15,
			MedianEVEBITDA:  10,
			MedianEVRevenue: 2,
			Peers:           []string{"PEER1", "PEER2"},
		},
	}
}

func testParams(t *testing.T) *models.Parameters {
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
	})
	require.NoError(t, err)
	return p
}

func TestRegistry_ClosedSet(t *testing.T) {
	for _, name := range Names() {
		s, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	_, err := Get("lbo")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFCFFStandard(t *testing.T) {
	s, _ := Get(FCFFStandard)
	res, err := s.Execute(testSnapshot(), testParams(t))
	require.NoError(t, err)

	assert.Equal(t, models.RateWACC, res.RateKind)
	assert.Equal(t, models.StepFCFBase, res.Steps[0].Key)
	assert.Greater(t, res.IntrinsicValue, 0.0)
	assert.Len(t, res.ProjectedFlows, 5)
}

func TestFCFFStandard_MissingAnchor(t *testing.T) {
	snap := testSnapshot()
	snap.FCFTTM = nil
	s, _ := Get(FCFFStandard)
	_, err := s.Execute(snap, testParams(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingData)
}

func TestFCFFStandard_NegativeAnchorAutomatic(t *testing.T) {
	snap := testSnapshot()
	neg := -5_000_000.0
	snap.FCFTTM = &neg
	s, _ := Get(FCFFStandard)
	_, err := s.Execute(snap, testParams(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFCFFStandard_ManualOverrideBypassesCheck(t *testing.T) {
	snap := testSnapshot()
	neg := -5_000_000.0
	snap.FCFTTM = &neg

	p := testParams(t)
	p.Growth.ManualFCF = fp(9_000_000)

	s, _ := Get(FCFFStandard)
	res, err := s.Execute(snap, p)
	require.NoError(t, err)
	assert.Equal(t, models.SourceManual, res.Steps[0].Hypotheses[0].Source)
}

func TestFCFFNormalized_SmoothedAnchorAndStabilityStep(t *testing.T) {
	s, _ := Get(FCFFNormalized)
	res, err := s.Execute(testSnapshot(), testParams(t))
	require.NoError(t, err)

	// Linear weights 1,2,3 over 8,9,10M -> (8+18+30)/6 M
	require.Equal(t, models.StepFCFNormSelection, res.Steps[0].Key)
	assert.InDelta(t, 56_000_000.0/6.0, res.Steps[0].Result, 1e-6)
	assert.Equal(t, models.StepFCFStabilityCheck, res.Steps[1].Key)
}

func TestFCFFNormalized_NoHistoryFails(t *testing.T) {
	snap := testSnapshot()
	snap.FCFHistory = nil
	s, _ := Get(FCFFNormalized)
	_, err := s.Execute(snap, testParams(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingData)
}

func TestFCFFRevenueDriven(t *testing.T) {
	p := testParams(t)
	p.Growth.TargetFCFMargin = fp(0.20)

	s, _ := Get(FCFFRevenueDriven)
	res, err := s.Execute(testSnapshot(), p)
	require.NoError(t, err)

	// Margin starts at 10/80 = 12.5% and converges to 20%.
	finalRev := 80_000_000 * pow(1.03, 5)
	assert.InDelta(t, finalRev*0.20, res.ProjectedFlows[4], 1e-3)
	assert.Greater(t, res.IntrinsicValue, 0.0)
}

func TestFCFE_Reconstruction(t *testing.T) {
	s, _ := Get(FCFE)
	res, err := s.Execute(testSnapshot(), testParams(t))
	require.NoError(t, err)

	// FCFE = 10M - 4M*0.75 + 1M = 8M
	assert.Equal(t, models.StepFCFEBaseSelection, res.Steps[0].Key)
	assert.InDelta(t, 8_000_000, res.Steps[0].Result, 1e-6)
	assert.Equal(t, models.RateKe, res.RateKind)
	assert.InDelta(t, 0.09, res.DiscountRate, 1e-9)
	assert.Zero(t, res.EnterpriseValue)
}

func TestDDM_DividendMass(t *testing.T) {
	s, _ := Get(DDM)
	res, err := s.Execute(testSnapshot(), testParams(t))
	require.NoError(t, err)

	assert.Equal(t, models.StepDDMBaseSelection, res.Steps[0].Key)
	assert.InDelta(t, 4_000_000, res.Steps[0].Result, 1e-6)
	assert.Equal(t, models.RateKe, res.RateKind)
}

func TestDDM_NoDividendFails(t *testing.T) {
	snap := testSnapshot()
	snap.DividendPerShare = 0
	s, _ := Get(DDM)
	_, err := s.Execute(snap, testParams(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingData)
}

func TestRIM_ValueAboveBookWhenROEExceedsKe(t *testing.T) {
	s, _ := Get(ResidualIncome)
	res, err := s.Execute(testSnapshot(), testParams(t))
	require.NoError(t, err)

	// ROE = 12/60 = 20% > Ke = 9%: residual income is positive, so
	// intrinsic value must exceed book value.
	assert.Greater(t, res.IntrinsicValue, 60.0)
	assert.Equal(t, models.RateKe, res.RateKind)

	keys := []string{res.Steps[0].Key, res.Steps[1].Key, res.Steps[2].Key, res.Steps[3].Key}
	assert.Equal(t, []string{
		models.StepRIMBase, models.StepKeCalc, models.StepRIMProjection, models.StepRIMTerminal,
	}, keys)
}

func TestRIM_PayoutClamped(t *testing.T) {
	snap := testSnapshot()
	snap.DividendPerShare = 20 // payout would be 167%
	s, _ := Get(ResidualIncome)
	res, err := s.Execute(snap, testParams(t))
	require.NoError(t, err)
	assert.InDelta(t, models.MaxPayoutRatio, res.PayoutObserved, 1e-9)
}

func TestRIM_DilutionTracedAfterPerShare(t *testing.T) {
	params := testParams(t)
	params.Growth.DilutionRate = fp(0.04)
	s, _ := Get(ResidualIncome)
	res, err := s.Execute(testSnapshot(), params)
	require.NoError(t, err)

	// Same step order as the DCF chain: per-share value first, then
	// the dilution haircut as the final step.
	n := len(res.Steps)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, models.StepValuePerShare, res.Steps[n-2].Key)
	assert.Equal(t, models.StepSBCDilution, res.Steps[n-1].Key)
	assert.Less(t, res.IntrinsicValue, res.Steps[n-2].Result)
}

func TestGraham_ExactValue(t *testing.T) {
	s, _ := Get(Graham)
	res, err := s.Execute(testSnapshot(), testParams(t))
	require.NoError(t, err)

	// sqrt(22.5 * 12 * 60) = sqrt(16200)
	assert.InDelta(t, 127.2792206, res.IntrinsicValue, 1e-6)
	assert.Equal(t, models.RateNone, res.RateKind)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, models.StepGrahamFormula, res.Steps[0].Key)
}

func TestGraham_MissingEPS(t *testing.T) {
	snap := testSnapshot()
	snap.EPSTTM = 0
	s, _ := Get(Graham)
	_, err := s.Execute(snap, testParams(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingData)
}

func TestMultiples_Triangulation(t *testing.T) {
	s, _ := Get(Multiples)
	snap := testSnapshot()
	res, err := s.Execute(snap, testParams(t))
	require.NoError(t, err)

	// P/E: 12M*15/1M = 180
	// EV/EBITDA: (25M*10 - 150M)/1M = 100
	// EV/Revenue: (80M*2 - 150M)/1M = 10
	pe, ebitda, rev := 180.0, 100.0, 10.0
	assert.InDelta(t, (pe+ebitda+rev)/3, res.IntrinsicValue, 1e-6)

	last := res.Steps[len(res.Steps)-1]
	assert.Equal(t, models.StepTriangulation, last.Key)
}

func TestMultiples_NegativeSignalsFiltered(t *testing.T) {
	snap := testSnapshot()
	snap.NetIncomeTTM = -1_000_000 // kills the P/E signal
	s, _ := Get(Multiples)
	res, err := s.Execute(snap, testParams(t))
	require.NoError(t, err)

	assert.InDelta(t, (100.0+10.0)/2, res.IntrinsicValue, 1e-6)
}

func TestMultiples_NoPeersFails(t *testing.T) {
	snap := testSnapshot()
	snap.Peers = nil
	s, _ := Get(Multiples)
	_, err := s.Execute(snap, testParams(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingData)
}

func pow(base float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= base
	}
	return out
}
