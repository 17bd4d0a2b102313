package strategy

import (
	"fmt"

	"glassbox_valuation/pkg/core/pipeline"
	"glassbox_valuation/pkg/models"
)

// fcfeStrategy reconstructs the shareholder flow and discounts it at
// the cost of equity. No enterprise bridge: the NPV is already an
// equity value.
//
// FCFE = FCFF - Interest x (1 - t) + Net Borrowing
type fcfeStrategy struct{}

func (fcfeStrategy) Name() string { return FCFE }

func (s fcfeStrategy) Execute(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	tax, taxSrc := models.Float(params.Rates.TaxRate, models.DefaultTaxRate)

	var reconstructed *float64
	if snap.FCFTTM != nil {
		v := *snap.FCFTTM - snap.InterestExpense*(1-tax) + snap.NetBorrowing
		reconstructed = &v
	}

	base, src, err := resolveAnchor("free cash flow to equity", params.Growth.ManualFCF, reconstructed)
	if err != nil {
		return models.ValuationResult{}, err
	}

	baseStep := models.CalculationStep{
		Key:     models.StepFCFEBaseSelection,
		Label:   "FCFE reconstruction",
		Formula: "FCFE = FCFF - Interest x (1-t) + Net Borrowing",
		Hypotheses: []models.Variable{
			{Name: "fcfe_base", Value: base, Source: src},
			{Name: "interest_expense", Value: snap.InterestExpense, Source: models.SourceProvider},
			{Name: "tax_rate", Value: tax, Source: taxSrc},
			{Name: "net_borrowing", Value: snap.NetBorrowing, Source: models.SourceProvider},
		},
		Substitution:   fmt.Sprintf("FCFE = %.2f (%s)", base, src),
		Result:         base,
		Interpretation: "Flow available to shareholders after debt service and refinancing.",
	}

	return pipeline.Execute(pipeline.Run{
		Snapshot:     snap,
		Params:       params,
		StrategyName: s.Name(),
		DirectEquity: true,
		Base:         base,
		BaseSteps:    []models.CalculationStep{baseStep},
		Projector:    fadeDownFor(params, src),
	})
}

// ddmStrategy anchors on the dividend mass (DPS x shares) and
// discounts at the cost of equity, without a bridge.
type ddmStrategy struct{}

func (ddmStrategy) Name() string { return DDM }

func (s ddmStrategy) Execute(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	var mass *float64
	if snap.DividendPerShare > 0 && snap.SharesOutstanding > 0 {
		v := snap.DividendPerShare * snap.SharesOutstanding
		mass = &v
	}

	base, src, err := resolveAnchor("dividend mass", params.Growth.ManualDPS, mass)
	if err != nil {
		return models.ValuationResult{}, err
	}
	// A manual override is a per-share dividend; scale it to the mass.
	if src == models.SourceManual {
		base = base * snap.SharesOutstanding
	}

	baseStep := models.CalculationStep{
		Key:     models.StepDDMBaseSelection,
		Label:   "Dividend mass anchor",
		Formula: "D_0 = DPS x Shares",
		Hypotheses: []models.Variable{
			{Name: "dividend_mass", Value: base, Source: src},
			{Name: "dividend_per_share", Value: snap.DividendPerShare, Source: models.SourceProvider},
			{Name: "shares_outstanding", Value: snap.SharesOutstanding, Source: models.SourceProvider},
		},
		Substitution:   fmt.Sprintf("D_0 = %.2f (%s)", base, src),
		Result:         base,
		Interpretation: "Total cash distributed to shareholders, projected as the valuation flow.",
	}

	return pipeline.Execute(pipeline.Run{
		Snapshot:     snap,
		Params:       params,
		StrategyName: s.Name(),
		DirectEquity: true,
		Base:         base,
		BaseSteps:    []models.CalculationStep{baseStep},
		Projector:    fadeDownFor(params, src),
	})
}
