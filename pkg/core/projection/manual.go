package projection

import (
	"fmt"

	"glassbox_valuation/pkg/models"
)

// ManualVector bypasses growth logic entirely: the analyst supplies
// the per-year flow sequence (scenario overrides).
type ManualVector struct {
	Flows []float64
}

func (m ManualVector) Name() string { return "manual_vector" }

func (m ManualVector) Validate(base float64) error {
	if len(m.Flows) == 0 {
		return fmt.Errorf("%w: manual flow vector is empty", models.ErrInvalidInput)
	}
	return validYears(len(m.Flows))
}

func (m ManualVector) Project(base float64) (Result, error) {
	if err := m.Validate(base); err != nil {
		return Result{}, err
	}

	flows := append([]float64(nil), m.Flows...)

	step := models.CalculationStep{
		Key:     models.StepFCFProjection,
		Label:   "Explicit flow projection (manual vector)",
		Formula: "flow_t supplied directly by the analyst",
		Hypotheses: []models.Variable{
			{Name: "years", Value: float64(len(flows)), Source: models.SourceManual},
			{Name: "final_flow", Value: flows[len(flows)-1], Source: models.SourceManual},
		},
		Substitution:   fmt.Sprintf("%d analyst-supplied flows, final %.2f", len(flows), flows[len(flows)-1]),
		Result:         flows[len(flows)-1],
		Interpretation: "Growth-rate logic bypassed; the analyst accepts responsibility for the vector.",
	}
	return Result{Flows: flows, Step: step}, nil
}
