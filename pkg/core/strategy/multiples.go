package strategy

import (
	"fmt"

	"github.com/samber/lo"

	"glassbox_valuation/pkg/models"
)

// multiplesStrategy triangulates three relative price signals from
// peer-panel medians: P/E on net income, EV/EBITDA and EV/Revenue
// through the net-debt bridge. Non-positive signals are dropped; the
// final value is the average of the survivors.
type multiplesStrategy struct{}

func (multiplesStrategy) Name() string { return Multiples }

func (s multiplesStrategy) Execute(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	m := snap.Peers
	if m == nil {
		return models.ValuationResult{}, models.NewMissingAnchor("peer multiples")
	}
	if snap.SharesOutstanding <= 0 {
		return models.ValuationResult{}, models.NewInvalidShares(snap.SharesOutstanding)
	}

	trace := models.NewTrace()

	pricePE := priceFromPE(snap.NetIncomeTTM, m.MedianPE, snap.SharesOutstanding)
	trace.Add(models.CalculationStep{
		Key:     models.StepRelativePE,
		Label:   "P/E price signal",
		Formula: "P = NI x PE_median / Shares",
		Hypotheses: []models.Variable{
			{Name: "net_income", Value: snap.NetIncomeTTM, Source: models.SourceProvider},
			{Name: "median_pe", Value: m.MedianPE, Source: models.SourceProvider},
		},
		Substitution:   fmt.Sprintf("%.2f x %.1f / %.0f = %.2f", snap.NetIncomeTTM, m.MedianPE, snap.SharesOutstanding, pricePE),
		Result:         pricePE,
		Interpretation: "Earnings priced at the peer-panel median multiple.",
	})

	priceEBITDA := priceFromEV(snap.EBITDATTM(), m.MedianEVEBITDA, snap)
	trace.Add(models.CalculationStep{
		Key:     models.StepRelativeEBITDA,
		Label:   "EV/EBITDA price signal",
		Formula: "P = (EBITDA x M - NetDebt - Minorities - Pensions) / Shares",
		Hypotheses: []models.Variable{
			{Name: "ebitda", Value: snap.EBITDATTM(), Source: models.SourceProvider},
			{Name: "median_ev_ebitda", Value: m.MedianEVEBITDA, Source: models.SourceProvider},
		},
		Substitution:   fmt.Sprintf("(%.2f x %.1f - bridge) / %.0f = %.2f", snap.EBITDATTM(), m.MedianEVEBITDA, snap.SharesOutstanding, priceEBITDA),
		Result:         priceEBITDA,
		Interpretation: "Firm-level multiple converted to equity through the net-debt bridge.",
	})

	priceRev := priceFromEV(snap.RevenueTTM, m.MedianEVRevenue, snap)
	trace.Add(models.CalculationStep{
		Key:     models.StepRelativeRevenue,
		Label:   "EV/Revenue price signal",
		Formula: "P = (Revenue x M - NetDebt - Minorities - Pensions) / Shares",
		Hypotheses: []models.Variable{
			{Name: "revenue", Value: snap.RevenueTTM, Source: models.SourceProvider},
			{Name: "median_ev_revenue", Value: m.MedianEVRevenue, Source: models.SourceProvider},
		},
		Substitution:   fmt.Sprintf("(%.2f x %.2f - bridge) / %.0f = %.2f", snap.RevenueTTM, m.MedianEVRevenue, snap.SharesOutstanding, priceRev),
		Result:         priceRev,
		Interpretation: "Scale-based floor signal for loss-making or early-cycle firms.",
	})

	signals := []float64{pricePE, priceEBITDA, priceRev}
	valid := lo.Filter(signals, func(v float64, _ int) bool { return v > 0 })
	if len(valid) == 0 {
		return models.ValuationResult{}, models.NewMissingAnchor("positive multiple signal")
	}
	iv := lo.Sum(valid) / float64(len(valid))

	trace.Add(models.CalculationStep{
		Key:          models.StepTriangulation,
		Label:        "Signal triangulation",
		Formula:      "IV = mean(positive signals)",
		Substitution: fmt.Sprintf("mean of %d valid signals = %.2f", len(valid), iv),
		Result:       iv,
		Hypotheses: []models.Variable{
			{Name: "valid_signals", Value: float64(len(valid)), Source: models.SourceSystem},
		},
		Interpretation: "Averaging uncorrelated signal errors; negatives carry no information.",
	})

	return models.ValuationResult{
		Ticker:         snap.Ticker,
		Currency:       snap.Currency,
		Strategy:       s.Name(),
		Source:         params.Source,
		IntrinsicValue: iv,
		MarketPrice:    snap.CurrentPrice,
		UpsidePct:      models.Upside(iv, snap.CurrentPrice),
		RateKind:       models.RateNone,
		Steps:          trace.Steps(),
	}, nil
}

func priceFromPE(netIncome, medianPE, shares float64) float64 {
	if netIncome <= 0 || medianPE <= 0 {
		return 0
	}
	return netIncome * medianPE / shares
}

func priceFromEV(metric, multiple float64, snap *models.CompanySnapshot) float64 {
	if metric <= 0 || multiple <= 0 {
		return 0
	}
	equity := metric*multiple - snap.NetDebt() - snap.MinorityInterests - snap.PensionProvisions
	return equity / snap.SharesOutstanding
}
