package discount

import (
	"fmt"

	"glassbox_valuation/pkg/models"
)

// BridgeItems are the balance-sheet adjustments converting Enterprise
// Value to Equity Value, each resolved manual-override-first.
type BridgeItems struct {
	Debt       models.Variable
	Cash       models.Variable
	Minorities models.Variable
	Pensions   models.Variable
}

// ResolveBridgeItems applies the override cascade to every bridge
// input.
func ResolveBridgeItems(snap *models.CompanySnapshot, g models.GrowthParams) BridgeItems {
	item := func(name string, override *float64, observed float64) models.Variable {
		v, src := observed, models.SourceProvider
		if override != nil {
			v, src = *override, models.SourceManual
		}
		return models.Variable{Name: name, Value: v, Source: src}
	}
	return BridgeItems{
		Debt:       item("total_debt", g.ManualDebt, snap.TotalDebt),
		Cash:       item("cash", g.ManualCash, snap.Cash),
		Minorities: item("minority_interests", g.ManualMinorities, snap.MinorityInterests),
		Pensions:   item("pension_provisions", g.ManualPensions, snap.PensionProvisions),
	}
}

// EquityBridge converts enterprise value to equity value:
// Equity = EV - Debt + Cash - Minorities - Pensions.
func EquityBridge(enterpriseValue float64, items BridgeItems) (float64, models.CalculationStep) {
	equity := enterpriseValue - items.Debt.Value + items.Cash.Value - items.Minorities.Value - items.Pensions.Value

	step := models.CalculationStep{
		Key:     models.StepEquityBridge,
		Label:   "Enterprise-to-equity bridge",
		Formula: "Equity = EV - Debt + Cash - Minorities - Pensions",
		Hypotheses: []models.Variable{
			{Name: "enterprise_value", Value: enterpriseValue, Source: models.SourceSystem},
			items.Debt, items.Cash, items.Minorities, items.Pensions,
		},
		Substitution: fmt.Sprintf("%.2f - %.2f + %.2f - %.2f - %.2f = %.2f",
			enterpriseValue, items.Debt.Value, items.Cash.Value,
			items.Minorities.Value, items.Pensions.Value, equity),
		Result:         equity,
		Interpretation: "Claims senior to shareholders are stripped out of the firm value.",
	}
	return equity, step
}

// DirectEquityStep records the explicit no-bridge step direct-equity
// strategies emit for trace symmetry.
func DirectEquityStep(equityValue float64) models.CalculationStep {
	return models.CalculationStep{
		Key:            models.StepEquityDirect,
		Label:          "Direct equity value (no bridge)",
		Formula:        "Equity = NPV(flows to equity) + discounted TV",
		Substitution:   fmt.Sprintf("core value %.2f is already an equity value", equityValue),
		Result:         equityValue,
		Interpretation: "Flows were discounted at the cost of equity; no enterprise bridge applies.",
	}
}

// PerShare converts equity value to a per-share figure. Shares resolve
// manual override first; a non-positive resolved count is an
// InvalidShares failure.
func PerShare(equityValue float64, snap *models.CompanySnapshot, g models.GrowthParams) (float64, models.CalculationStep, error) {
	shares, src := snap.SharesOutstanding, models.SourceProvider
	if g.ManualShares != nil {
		shares, src = *g.ManualShares, models.SourceManual
	}
	if shares <= 0 {
		return 0, models.CalculationStep{}, models.NewInvalidShares(shares)
	}

	value := equityValue / shares
	step := models.CalculationStep{
		Key:     models.StepValuePerShare,
		Label:   "Intrinsic value per share",
		Formula: "V = Equity / Shares",
		Hypotheses: []models.Variable{
			{Name: "equity_value", Value: equityValue, Source: models.SourceSystem},
			{Name: "shares_outstanding", Value: shares, Source: src},
		},
		Substitution:   fmt.Sprintf("%.2f / %.2f = %.4f", equityValue, shares, value),
		Result:         value,
		Interpretation: "Equity value spread across the resolved share count.",
	}
	return value, step, nil
}
