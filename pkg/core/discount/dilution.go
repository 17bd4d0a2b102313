package discount

import (
	"fmt"
	"math"

	"glassbox_valuation/pkg/models"
)

// EstimateDilutionRate derives an annual dilution rate from the
// historical share-count series (oldest first) as a CAGR, clamped to
// [0, MaxDilutionCAGR]. Buybacks (shrinking count) report zero; the
// adjustment only ever reduces value.
func EstimateDilutionRate(sharesHistory []float64) float64 {
	if len(sharesHistory) < 2 {
		return 0
	}
	first, last := sharesHistory[0], sharesHistory[len(sharesHistory)-1]
	if first <= 0 || last <= 0 {
		return 0
	}
	years := float64(len(sharesHistory) - 1)
	cagr := math.Pow(last/first, 1/years) - 1
	if cagr < 0 {
		return 0
	}
	return math.Min(cagr, models.MaxDilutionCAGR)
}

// DilutionFactor is (1 + rate)^years.
func DilutionFactor(rate float64, years int) float64 {
	return math.Pow(1+rate, float64(years))
}

// ApplyDilution divides the per-share value by the dilution factor.
// The trace step is emitted only when the adjustment is non-trivial
// (factor > 1), so a zero-dilution run does not clutter the trace.
func ApplyDilution(perShareValue, rate float64, years int, src models.Provenance) (float64, *models.CalculationStep) {
	factor := DilutionFactor(rate, years)
	if factor <= 1.0 {
		return perShareValue, nil
	}

	adjusted := perShareValue / factor
	step := models.CalculationStep{
		Key:     models.StepSBCDilution,
		Label:   "SBC dilution adjustment",
		Formula: "V_adj = V / (1 + d)^N",
		Hypotheses: []models.Variable{
			{Name: "dilution_rate", Value: rate, Source: src},
			{Name: "years", Value: float64(years), Source: models.SourceManual},
		},
		Substitution:   fmt.Sprintf("%.4f / %.4f = %.4f", perShareValue, factor, adjusted),
		Result:         adjusted,
		Interpretation: "Expected share issuance spreads the equity over a larger future share count.",
	}
	return adjusted, &step
}
