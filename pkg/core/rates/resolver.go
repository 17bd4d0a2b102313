// Package rates resolves discount rates: Cost of Equity via CAPM for
// direct-equity strategies, full WACC with capital-structure weighting
// and Hamada beta adjustment for entity strategies. It never fails;
// every missing input falls back to a documented default.
package rates

import (
	"fmt"
	"math"

	"glassbox_valuation/pkg/models"
)

// WeightMethod names where the capital weights came from.
type WeightMethod string

const (
	WeightsMarket   WeightMethod = "market_weights"
	WeightsTarget   WeightMethod = "target_weights"
	WeightsOverride WeightMethod = "manual_override"
)

// KeBreakdown is the resolved cost of equity with its inputs.
type KeBreakdown struct {
	Ke         float64
	ComputedKe float64 // CAPM result, kept visible when overridden
	Overridden bool

	RiskFree    float64
	RiskFreeSrc models.Provenance
	MRP         float64
	MRPSrc      models.Provenance
	Beta        float64
	BetaSrc     models.Provenance
}

// WACCBreakdown is the full technical decomposition of the blended
// rate, sufficient for the trace and the audit without recomputation.
type WACCBreakdown struct {
	Ke KeBreakdown

	CostOfDebtPreTax   float64
	CostOfDebtAfterTax float64
	KdSynthetic        bool // true when derived from the ICR table
	TaxRate            float64
	TaxSrc             models.Provenance

	WeightEquity float64
	WeightDebt   float64
	Method       WeightMethod

	WACC         float64
	ComputedWACC float64 // formula result, kept visible when overridden
	Overridden   bool

	// Hamada
	BetaAdjusted bool
	BetaRaw      float64 // before re-levering
	CurrentDE    float64
	TargetDE     float64 // 0 when no target supplied

	Warnings []string
}

// ResolveKe resolves the cost of equity for direct-equity strategies.
// Beta resolution order: manual override, snapshot, system default. A
// manual Ke supersedes the formula but the CAPM result stays in the
// breakdown for the trace.
func ResolveKe(snap *models.CompanySnapshot, params *models.Parameters) KeBreakdown {
	return resolveKeWithBeta(snap, params, nil, models.Provenance(""))
}

func resolveKeWithBeta(snap *models.CompanySnapshot, params *models.Parameters, betaOverride *float64, betaSrc models.Provenance) KeBreakdown {
	r := params.Rates

	rf, rfSrc := models.Float(r.RiskFreeRate, models.DefaultRiskFreeRate)
	mrp, mrpSrc := models.Float(r.MarketRiskPremium, models.DefaultMarketRiskPremium)

	var beta float64
	var bSrc models.Provenance
	switch {
	case betaOverride != nil:
		beta, bSrc = *betaOverride, betaSrc
	case r.Beta != nil:
		beta, bSrc = *r.Beta, models.SourceManual
	default:
		beta, bSrc = snap.ResolvedBeta()
	}

	computed := CostOfEquityCAPM(rf, beta, mrp)

	out := KeBreakdown{
		Ke:          computed,
		ComputedKe:  computed,
		RiskFree:    rf,
		RiskFreeSrc: rfSrc,
		MRP:         mrp,
		MRPSrc:      mrpSrc,
		Beta:        beta,
		BetaSrc:     bSrc,
	}
	if r.CostOfEquity != nil {
		out.Ke = *r.CostOfEquity
		out.Overridden = true
	}
	return out
}

// ResolveWACC resolves the blended discount rate for entity
// strategies. Weights come from the target capital structure when the
// analyst supplied one (auto-normalized with a recorded warning when
// they do not sum to 1), otherwise from observed market values. When
// the target implies a D/E materially different from the market D/E,
// beta is re-levered via Hamada before CAPM.
func ResolveWACC(snap *models.CompanySnapshot, params *models.Parameters) WACCBreakdown {
	r := params.Rates
	g := params.Growth

	tax, taxSrc := models.Float(r.TaxRate, models.DefaultTaxRate)
	rf, _ := models.Float(r.RiskFreeRate, models.DefaultRiskFreeRate)

	var out WACCBreakdown
	out.TaxRate = tax
	out.TaxSrc = taxSrc

	// Observed market structure
	marketEquity := snap.MarketCap()
	debt := resolvedBridgeItem(g.ManualDebt, snap.TotalDebt)
	currentDE := 0.0
	if marketEquity > 0 {
		currentDE = debt / marketEquity
	}
	out.CurrentDE = currentDE

	// Target weights, if any
	targetDE, targetWe, targetWd, weightWarns := resolveTargetWeights(g)
	out.Warnings = append(out.Warnings, weightWarns...)
	out.TargetDE = targetDE

	// Beta, possibly Hamada-adjusted to the target structure
	var beta float64
	var betaSrc models.Provenance
	if r.Beta != nil {
		beta, betaSrc = *r.Beta, models.SourceManual
	} else {
		beta, betaSrc = snap.ResolvedBeta()
	}
	out.BetaRaw = beta

	if targetDE > 0 && math.Abs(targetDE-currentDE) > models.HamadaThreshold {
		unlevered := UnleverBeta(beta, tax, currentDE)
		beta = ReleverBeta(unlevered, tax, targetDE)
		out.BetaAdjusted = true
	} else if targetDE > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"hamada adjustment skipped: target D/E %.3f within %.0f%% of market D/E %.3f",
			targetDE, models.HamadaThreshold*100, currentDE))
	}

	out.Ke = resolveKeWithBeta(snap, params, &beta, betaSrc)

	// Cost of debt: manual override, else synthetic from coverage
	if r.CostOfDebt != nil {
		out.CostOfDebtPreTax = *r.CostOfDebt
	} else {
		out.CostOfDebtPreTax = SyntheticCostOfDebt(rf, snap.EBITTTM, snap.InterestExpense, marketEquity)
		out.KdSynthetic = true
	}
	out.CostOfDebtAfterTax = out.CostOfDebtPreTax * (1 - tax)

	// Weights
	if targetDE > 0 {
		out.WeightEquity, out.WeightDebt = targetWe, targetWd
		out.Method = WeightsTarget
	} else {
		totalCap := marketEquity + debt
		if totalCap > 0 {
			out.WeightEquity = marketEquity / totalCap
			out.WeightDebt = debt / totalCap
		} else {
			out.WeightEquity, out.WeightDebt = 1.0, 0.0
		}
		out.Method = WeightsMarket
	}

	out.ComputedWACC = out.WeightEquity*out.Ke.Ke + out.WeightDebt*out.CostOfDebtAfterTax
	out.WACC = out.ComputedWACC

	if r.WACC != nil {
		out.WACC = *r.WACC
		out.Overridden = true
		out.Method = WeightsOverride
	}
	return out
}

// resolveTargetWeights turns analyst-supplied target weights into a
// normalized (We, Wd) pair and the implied D/E. Weights that do not
// sum to 1 are normalized with a recorded warning rather than
// rejected; a single supplied weight implies its complement.
func resolveTargetWeights(g models.GrowthParams) (de, we, wd float64, warnings []string) {
	if g.TargetEquityWeight == nil && g.TargetDebtWeight == nil {
		return 0, 0, 0, nil
	}

	switch {
	case g.TargetEquityWeight != nil && g.TargetDebtWeight != nil:
		we, wd = *g.TargetEquityWeight, *g.TargetDebtWeight
	case g.TargetEquityWeight != nil:
		we = *g.TargetEquityWeight
		wd = 1 - we
	default:
		wd = *g.TargetDebtWeight
		we = 1 - wd
	}

	sum := we + wd
	if sum <= 0 {
		return 0, 0, 0, []string{"target weights sum to zero; falling back to market weights"}
	}
	if math.Abs(sum-1.0) > 1e-9 {
		warnings = append(warnings, fmt.Sprintf(
			"target weights sum to %.4f; auto-normalized to 1.0", sum))
		we, wd = we/sum, wd/sum
	}
	if we <= 0 {
		return 0, 0, 0, append(warnings, "target equity weight <= 0; falling back to market weights")
	}
	return wd / we, we, wd, warnings
}

func resolvedBridgeItem(override *float64, observed float64) float64 {
	if override != nil {
		return *override
	}
	return observed
}
