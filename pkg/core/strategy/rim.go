package strategy

import (
	"fmt"
	"math"

	"glassbox_valuation/pkg/core/discount"
	"glassbox_valuation/pkg/core/rates"
	"glassbox_valuation/pkg/models"
)

// rimStrategy is the Residual Income Model (Penman/Ohlson), built for
// financial institutions where cash-flow models misfire:
//
//	IV = BV_0 + sum PV(RI_t) + PV(TV), RI_t = EPS_t - Ke x BV_{t-1}
//
// Terminal value uses Ohlson persistence: TV = RI_N x w / (1 + Ke - w).
type rimStrategy struct{}

func (rimStrategy) Name() string { return ResidualIncome }

func (s rimStrategy) Execute(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	trace := models.NewTrace()
	g := params.Growth

	// Book value anchor
	var bvps *float64
	if snap.BookValuePerShare > 0 {
		bvps = &snap.BookValuePerShare
	}
	bv0, bvSrc, err := resolveAnchor("book value per share", g.ManualBVPS, bvps)
	if err != nil {
		return models.ValuationResult{}, err
	}

	// EPS anchor
	var eps *float64
	if snap.EPSTTM > 0 {
		eps = &snap.EPSTTM
	}
	epsBase, epsSrc, err := resolveAnchor("earnings per share", g.ManualEPS, eps)
	if err != nil {
		return models.ValuationResult{}, err
	}

	// Distribution policy, clamped to the retention floor.
	payout, payoutSrc := observedPayout(snap, epsBase)
	if g.PayoutRatio != nil {
		payout, payoutSrc = math.Min(*g.PayoutRatio, models.MaxPayoutRatio), models.SourceManual
	}

	trace.Add(models.CalculationStep{
		Key:     models.StepRIMBase,
		Label:   "Residual income anchors",
		Formula: "BV_0, EPS_0, payout",
		Hypotheses: []models.Variable{
			{Name: "book_value_per_share", Value: bv0, Source: bvSrc},
			{Name: "eps_base", Value: epsBase, Source: epsSrc},
			{Name: "payout_ratio", Value: payout, Source: payoutSrc},
		},
		Substitution:   fmt.Sprintf("BV_0 = %.2f, EPS_0 = %.2f, payout %.2f%%", bv0, epsBase, payout*100),
		Result:         bv0,
		Interpretation: "Book value is the value floor; retained earnings compound it.",
	})

	ke := rates.ResolveKe(snap, params)
	trace.Add(models.CalculationStep{
		Key:     models.StepKeCalc,
		Label:   "Cost of equity (CAPM)",
		Formula: "Ke = Rf + beta x MRP",
		Hypotheses: []models.Variable{
			{Name: "risk_free_rate", Value: ke.RiskFree, Source: ke.RiskFreeSrc},
			{Name: "beta", Value: ke.Beta, Source: ke.BetaSrc},
			{Name: "market_risk_premium", Value: ke.MRP, Source: ke.MRPSrc},
		},
		Substitution: fmt.Sprintf("%.4f + %.3f x %.4f = %.4f", ke.RiskFree, ke.Beta, ke.MRP, ke.ComputedKe),
		Result:       ke.Ke,
	})

	// Residual income projection
	years := params.YearsOrDefault()
	growth, _ := models.Float(g.FCFGrowthRate, 0.0)

	riVec := make([]float64, years)
	bv := bv0
	epsT := epsBase
	for t := 0; t < years; t++ {
		epsT = epsT * (1 + growth)
		riVec[t] = epsT - ke.Ke*bv
		bv += epsT * (1 - payout)
	}

	factors := discount.Factors(ke.Ke, years)
	riSum, err := discount.NPV(riVec, factors)
	if err != nil {
		return models.ValuationResult{}, err
	}
	trace.Add(models.CalculationStep{
		Key:     models.StepRIMProjection,
		Label:   "Discounted residual income",
		Formula: "sum PV(EPS_t - Ke x BV_{t-1})",
		Hypotheses: []models.Variable{
			{Name: "eps_growth", Value: growth, Source: models.SourceSystem},
			{Name: "years", Value: float64(years), Source: models.SourceManual},
		},
		Substitution:   fmt.Sprintf("%d residual incomes discounted at %.4f -> %.2f", years, ke.Ke, riSum),
		Result:         riSum,
		Interpretation: "Value created above the cost of equity on the book base.",
	})

	// Ohlson persistence terminal value
	omega, omegaSrc := models.Float(g.RIMPersistence, models.DefaultRIMPersistence)
	tv := riVec[years-1] * omega / (1 + ke.Ke - omega)
	discountedTV := tv * factors[years-1]
	trace.Add(models.CalculationStep{
		Key:     models.StepRIMTerminal,
		Label:   "Residual income terminal value (Ohlson)",
		Formula: "TV = RI_N x w / (1 + Ke - w)",
		Hypotheses: []models.Variable{
			{Name: "persistence_omega", Value: omega, Source: omegaSrc},
			{Name: "final_residual_income", Value: riVec[years-1], Source: models.SourceSystem},
		},
		Substitution:   fmt.Sprintf("(%.2f x %.2f) / (1 + %.4f - %.2f) x %.4f = %.2f", riVec[years-1], omega, ke.Ke, omega, factors[years-1], discountedTV),
		Result:         discountedTV,
		Interpretation: "Excess returns decay with persistence omega instead of lasting forever.",
	})

	perShare := bv0 + riSum + discountedTV

	shares := snap.SharesOutstanding
	if g.ManualShares != nil {
		shares = *g.ManualShares
	}
	if shares <= 0 {
		return models.ValuationResult{}, models.NewInvalidShares(shares)
	}

	trace.Add(models.CalculationStep{
		Key:     models.StepValuePerShare,
		Label:   "Intrinsic value per share",
		Formula: "IV = BV_0 + sum PV(RI) + PV(TV)",
		Hypotheses: []models.Variable{
			{Name: "book_value", Value: bv0, Source: bvSrc},
			{Name: "pv_residual_income", Value: riSum, Source: models.SourceSystem},
			{Name: "pv_terminal", Value: discountedTV, Source: models.SourceSystem},
		},
		Substitution: fmt.Sprintf("%.2f + %.2f + %.2f = %.4f", bv0, riSum, discountedTV, perShare),
		Result:       perShare,
	})

	// Dilution comes last, as in the DCF chain.
	dilution, dilutionSrc := discount.EstimateDilutionRate(snap.SharesHistory), models.SourceProvider
	if g.DilutionRate != nil {
		dilution, dilutionSrc = *g.DilutionRate, models.SourceManual
	}
	adjusted, dilStep := discount.ApplyDilution(perShare, dilution, years, dilutionSrc)
	if dilStep != nil {
		trace.Add(*dilStep)
	}

	result := models.ValuationResult{
		Ticker:         snap.Ticker,
		Currency:       snap.Currency,
		Strategy:       s.Name(),
		Source:         params.Source,
		IntrinsicValue: adjusted,
		MarketPrice:    snap.CurrentPrice,
		UpsidePct:      models.Upside(adjusted, snap.CurrentPrice),

		RateKind:     models.RateKe,
		DiscountRate: ke.Ke,

		ProjectedFlows:          riVec,
		DiscountFactors:         factors,
		SumDiscountedFlows:      riSum,
		TerminalValue:           tv,
		DiscountedTerminalValue: discountedTV,
		EquityValue:             adjusted * shares,

		PayoutObserved: payout,
		Steps:          trace.Steps(),
	}
	if total := bv0 + riSum + discountedTV; total != 0 {
		result.TerminalValueWeight = discountedTV / total
	}
	return result, nil
}

// observedPayout derives DPS/EPS clamped to [0, MaxPayoutRatio].
func observedPayout(snap *models.CompanySnapshot, eps float64) (float64, models.Provenance) {
	if eps <= 0 {
		return 0, models.SourceSystem
	}
	p := snap.DividendPerShare / eps
	return math.Max(0, math.Min(models.MaxPayoutRatio, p)), models.SourceProvider
}
