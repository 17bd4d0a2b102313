// Package pipeline executes the deterministic valuation chain: rate
// resolution, flow projection, terminal value, discounting, the
// equity bridge (or the direct-equity shortcut) and the per-share
// conversion, recording every intermediate value in the glass-box
// trace. A run is purely functional: immutable inputs in, a new
// ValuationResult out.
package pipeline

import (
	"fmt"

	"glassbox_valuation/pkg/core/discount"
	"glassbox_valuation/pkg/core/projection"
	"glassbox_valuation/pkg/core/rates"
	"glassbox_valuation/pkg/models"
)

// Run describes one pipeline execution. Strategies fill this in: the
// anchor (base flow), its provenance, the projector, and whether the
// flows are firm-level (bridge) or equity-level (no bridge).
type Run struct {
	Snapshot *models.CompanySnapshot
	Params   *models.Parameters

	StrategyName string
	DirectEquity bool

	// Base is the anchor flow the projector compounds from. BaseSteps
	// are the anchor-selection steps the strategy already produced,
	// provenance included.
	Base      float64
	BaseSteps []models.CalculationStep

	Projector projection.Projector
}

// Execute runs the chain and assembles the result. Math-invariant
// violations (divergence, invalid shares) propagate; nothing is
// swallowed.
func Execute(run Run) (models.ValuationResult, error) {
	snap, params := run.Snapshot, run.Params
	trace := models.NewTrace()
	var warnings []string

	for _, s := range run.BaseSteps {
		trace.Add(s)
	}

	// 1. Discount rate
	var rate float64
	var rateKind models.RateKind
	if run.DirectEquity {
		ke := rates.ResolveKe(snap, params)
		rate, rateKind = ke.Ke, models.RateKe
		trace.Add(keStep(ke))
	} else {
		w := rates.ResolveWACC(snap, params)
		rate, rateKind = w.WACC, models.RateWACC
		warnings = append(warnings, w.Warnings...)
		if w.BetaAdjusted {
			trace.Add(hamadaStep(w))
		}
		trace.Add(keStep(w.Ke))
		trace.Add(waccStep(w))
	}

	// 2. Explicit flows
	proj, err := run.Projector.Project(run.Base)
	if err != nil {
		return models.ValuationResult{}, err
	}
	trace.Add(proj.Step)
	flows := proj.Flows
	years := len(flows)

	// 3. Terminal value
	gPerp, gPerpSrc := models.Float(params.Growth.PerpetualGrowth, models.DefaultPerpetualGrowth)
	finalFlow := flows[years-1]

	var tv float64
	switch params.Growth.TVMethod {
	case models.TVExitMultiple:
		multiple, _ := models.Float(params.Growth.ExitMultiple, models.DefaultExitMultiple)
		var step models.CalculationStep
		tv, step = discount.ExitMultipleTerminalValue(finalFlow, multiple)
		trace.Add(step)
	default:
		var step models.CalculationStep
		tv, step, err = discount.GordonTerminalValue(finalFlow, rate, gPerp)
		if err != nil {
			return models.ValuationResult{}, err
		}
		step.Hypotheses[2].Source = gPerpSrc
		trace.Add(step)
	}

	// 4. Discounting
	factors := discount.Factors(rate, years)
	npv, err := discount.NPV(flows, factors)
	if err != nil {
		return models.ValuationResult{}, err
	}
	trace.Add(discount.NPVStep(rate, flows, npv, rateKind))

	discountedTV := tv * factors[years-1]
	coreValue := npv + discountedTV

	// 5. Equity value
	var equity float64
	var enterprise float64
	if run.DirectEquity {
		equity = coreValue
		trace.Add(discount.DirectEquityStep(equity))
	} else {
		enterprise = coreValue
		items := discount.ResolveBridgeItems(snap, params.Growth)
		var step models.CalculationStep
		equity, step = discount.EquityBridge(enterprise, items)
		trace.Add(step)
	}

	// 6. Per share
	perShare, shareStep, err := discount.PerShare(equity, snap, params.Growth)
	if err != nil {
		return models.ValuationResult{}, err
	}
	trace.Add(shareStep)

	// 7. Dilution (configured rate first, else estimated from history)
	dilution, dilutionSrc := resolveDilution(snap, params)
	adjusted, dilStep := discount.ApplyDilution(perShare, dilution, years, dilutionSrc)
	if dilStep != nil {
		trace.Add(*dilStep)
	}

	result := models.ValuationResult{
		Ticker:         snap.Ticker,
		Currency:       snap.Currency,
		Strategy:       run.StrategyName,
		Source:         params.Source,
		IntrinsicValue: adjusted,
		MarketPrice:    snap.CurrentPrice,
		UpsidePct:      models.Upside(adjusted, snap.CurrentPrice),

		RateKind:     rateKind,
		DiscountRate: rate,

		ProjectedFlows:          flows,
		DiscountFactors:         factors,
		SumDiscountedFlows:      npv,
		TerminalValue:           tv,
		DiscountedTerminalValue: discountedTV,
		EnterpriseValue:         enterprise,
		EquityValue:             equity,

		Steps:    trace.Steps(),
		Warnings: warnings,
	}
	attachObservedMetrics(&result, snap, coreValue, discountedTV)
	return result, nil
}

func resolveDilution(snap *models.CompanySnapshot, params *models.Parameters) (float64, models.Provenance) {
	if params.Growth.DilutionRate != nil {
		return *params.Growth.DilutionRate, models.SourceManual
	}
	return discount.EstimateDilutionRate(snap.SharesHistory), models.SourceProvider
}

// attachObservedMetrics derives the ratios the audit engine evaluates.
// Pure bookkeeping over values the run already produced.
func attachObservedMetrics(r *models.ValuationResult, snap *models.CompanySnapshot, coreValue, discountedTV float64) {
	if coreValue != 0 {
		r.TerminalValueWeight = discountedTV / coreValue
	}
	if snap.InterestExpense > 0 {
		r.ICRObserved = snap.EBITTTM / snap.InterestExpense
	}
	if mcap := snap.MarketCap(); mcap > 0 {
		r.LeverageObserved = snap.TotalDebt / mcap
	}
	if snap.NetIncomeTTM > 0 {
		r.PayoutObserved = snap.DividendPerShare * snap.SharesOutstanding / snap.NetIncomeTTM
	}
	if snap.DepreciationTTM > 0 {
		r.CapexToDA = snap.CapexTTM / snap.DepreciationTTM
	}
}

func keStep(ke rates.KeBreakdown) models.CalculationStep {
	step := models.CalculationStep{
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
	}
	if ke.Overridden {
		step.Interpretation = fmt.Sprintf(
			"Manual Ke %.4f supersedes the CAPM result %.4f; both are kept for comparison.",
			ke.Ke, ke.ComputedKe)
	}
	return step
}

func waccStep(w rates.WACCBreakdown) models.CalculationStep {
	step := models.CalculationStep{
		Key:     models.StepWACCCalc,
		Label:   "Weighted average cost of capital",
		Formula: "WACC = We x Ke + Wd x Kd x (1-t)",
		Hypotheses: []models.Variable{
			{Name: "cost_of_equity", Value: w.Ke.Ke, Source: models.SourceSystem},
			{Name: "cost_of_debt_pre_tax", Value: w.CostOfDebtPreTax, Source: kdSource(w)},
			{Name: "tax_rate", Value: w.TaxRate, Source: w.TaxSrc},
			{Name: "weight_equity", Value: w.WeightEquity, Source: models.SourceSystem},
			{Name: "weight_debt", Value: w.WeightDebt, Source: models.SourceSystem},
		},
		Substitution: fmt.Sprintf("%.4f x %.4f + %.4f x %.4f = %.4f",
			w.WeightEquity, w.Ke.Ke, w.WeightDebt, w.CostOfDebtAfterTax, w.ComputedWACC),
		Result:         w.WACC,
		Interpretation: fmt.Sprintf("Capital weights method: %s.", w.Method),
	}
	if w.Overridden {
		step.Interpretation = fmt.Sprintf(
			"Manual WACC %.4f supersedes the computed %.4f; the decomposition stays visible for audit.",
			w.WACC, w.ComputedWACC)
	}
	return step
}

// kdSource tags where the pre-tax cost of debt came from: the ICR
// table is a system derivation, anything else is the analyst's input.
func kdSource(w rates.WACCBreakdown) models.Provenance {
	if w.KdSynthetic {
		return models.SourceSystem
	}
	return models.SourceManual
}

func hamadaStep(w rates.WACCBreakdown) models.CalculationStep {
	return models.CalculationStep{
		Key:     models.StepBetaHamada,
		Label:   "Hamada beta re-levering",
		Formula: "beta_l = beta_u x (1 + (1-t) x D/E)",
		Hypotheses: []models.Variable{
			{Name: "beta_observed", Value: w.BetaRaw, Source: models.SourceProvider},
			{Name: "current_de", Value: w.CurrentDE, Source: models.SourceProvider},
			{Name: "target_de", Value: w.TargetDE, Source: models.SourceManual},
			{Name: "tax_rate", Value: w.TaxRate, Source: w.TaxSrc},
		},
		Substitution: fmt.Sprintf("beta %.3f at D/E %.3f re-levered to %.3f at target D/E %.3f",
			w.BetaRaw, w.CurrentDE, w.Ke.Beta, w.TargetDE),
		Result:         w.Ke.Beta,
		Interpretation: "Beta restated for the target capital structure before CAPM.",
	}
}
