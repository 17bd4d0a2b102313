package strategy

import (
	"fmt"
	"math"

	"glassbox_valuation/pkg/models"
)

// grahamStrategy is the static Graham Number: the price a defensive
// investor would pay at a P/E of 15 and a P/B of 1.5.
//
//	IV = sqrt(22.5 x EPS x BVPS)
//
// Undiscounted and projection-free; it needs only positive EPS and
// book value.
type grahamStrategy struct{}

func (grahamStrategy) Name() string { return Graham }

func (s grahamStrategy) Execute(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	var eps *float64
	if snap.EPSTTM > 0 {
		eps = &snap.EPSTTM
	}
	epsBase, epsSrc, err := resolveAnchor("earnings per share", params.Growth.ManualEPS, eps)
	if err != nil {
		return models.ValuationResult{}, err
	}

	var bvps *float64
	if snap.BookValuePerShare > 0 {
		bvps = &snap.BookValuePerShare
	}
	bvBase, bvSrc, err := resolveAnchor("book value per share", params.Growth.ManualBVPS, bvps)
	if err != nil {
		return models.ValuationResult{}, err
	}

	product := 22.5 * epsBase * bvBase
	if product < 0 {
		return models.ValuationResult{}, models.NewNegativeFlow("graham product", product)
	}
	iv := math.Sqrt(product)

	trace := models.NewTrace()
	trace.Add(models.CalculationStep{
		Key:     models.StepGrahamFormula,
		Label:   "Graham Number",
		Formula: "IV = sqrt(22.5 x EPS x BVPS)",
		Hypotheses: []models.Variable{
			{Name: "eps", Value: epsBase, Source: epsSrc},
			{Name: "book_value_per_share", Value: bvBase, Source: bvSrc},
		},
		Substitution:   fmt.Sprintf("sqrt(22.5 x %.2f x %.2f) = %.2f", epsBase, bvBase, iv),
		Result:         iv,
		Interpretation: "Upper bound for a defensive purchase: P/E 15 x P/B 1.5 = 22.5.",
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
