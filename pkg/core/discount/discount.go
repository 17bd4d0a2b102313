// Package discount holds the time-value math: discount factors, NPV,
// terminal values with the divergence guard, the enterprise-to-equity
// bridge and the per-share conversion with optional dilution.
package discount

import (
	"fmt"
	"math"

	"glassbox_valuation/pkg/models"
)

// Factors returns DF_t = 1/(1+rate)^t for t = 1..n.
func Factors(rate float64, n int) []float64 {
	out := make([]float64, n)
	for t := 1; t <= n; t++ {
		out[t-1] = 1.0 / math.Pow(1+rate, float64(t))
	}
	return out
}

// NPV discounts each flow by its matching factor and sums.
func NPV(flows, factors []float64) (float64, error) {
	if len(flows) != len(factors) {
		return 0, fmt.Errorf("%w: %d flows vs %d discount factors",
			models.ErrInvalidInput, len(flows), len(factors))
	}
	sum := 0.0
	for i, f := range flows {
		sum += f * factors[i]
	}
	return sum, nil
}

// NPVStep builds the trace entry for a discounting pass.
func NPVStep(rate float64, flows []float64, sum float64, rateKind models.RateKind) models.CalculationStep {
	return models.CalculationStep{
		Key:     models.StepNPVCalc,
		Label:   "Present value of explicit flows",
		Formula: "NPV = sum(flow_t / (1+r)^t)",
		Hypotheses: []models.Variable{
			{Name: "discount_rate", Value: rate, Source: models.SourceSystem},
			{Name: "horizon_years", Value: float64(len(flows)), Source: models.SourceManual},
		},
		Substitution:   fmt.Sprintf("%d flows discounted at %.2f%% (%s) -> %.2f", len(flows), rate*100, rateKind, sum),
		Result:         sum,
		Interpretation: "Sum of the explicit-horizon flows in today's money.",
	}
}
