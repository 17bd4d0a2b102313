package discount

import (
	"fmt"

	"glassbox_valuation/pkg/models"
)

// GordonTerminalValue computes TV = final_flow x (1+g) / (rate - g).
// The model is undefined when g >= rate; that is a hard failure, never
// a clamp, and it fires before any downstream computation.
func GordonTerminalValue(finalFlow, rate, perpetualGrowth float64) (float64, models.CalculationStep, error) {
	if perpetualGrowth >= rate {
		return 0, models.CalculationStep{}, models.NewModelDivergence(rate, perpetualGrowth)
	}

	numerator := finalFlow * (1 + perpetualGrowth)
	denominator := rate - perpetualGrowth
	tv := numerator / denominator

	step := models.CalculationStep{
		Key:     models.StepTVGordon,
		Label:   "Terminal value (Gordon Growth)",
		Formula: "TV = flow_N x (1+g) / (r - g)",
		Hypotheses: []models.Variable{
			{Name: "final_flow", Value: finalFlow, Source: models.SourceSystem},
			{Name: "rate", Value: rate, Source: models.SourceSystem},
			{Name: "g_perpetual", Value: perpetualGrowth, Source: models.SourceSystem},
		},
		Substitution:   fmt.Sprintf("%.2f / %.4f = %.2f", numerator, denominator, tv),
		Result:         tv,
		Interpretation: "Value of all flows beyond the explicit horizon, capitalized in perpetuity.",
	}
	return tv, step, nil
}

// ExitMultipleTerminalValue computes TV = final_flow x multiple.
func ExitMultipleTerminalValue(finalFlow, multiple float64) (float64, models.CalculationStep) {
	tv := finalFlow * multiple
	step := models.CalculationStep{
		Key:     models.StepTVMultiple,
		Label:   "Terminal value (exit multiple)",
		Formula: "TV = flow_N x multiple",
		Hypotheses: []models.Variable{
			{Name: "final_flow", Value: finalFlow, Source: models.SourceSystem},
			{Name: "exit_multiple", Value: multiple, Source: models.SourceSystem},
		},
		Substitution:   fmt.Sprintf("%.2f x %.1f = %.2f", finalFlow, multiple, tv),
		Result:         tv,
		Interpretation: "Exit valuation pinned to a transaction multiple instead of a perpetuity.",
	}
	return tv, step
}
