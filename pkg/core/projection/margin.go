package projection

import (
	"fmt"

	"glassbox_valuation/pkg/models"
)

// MarginConvergence drives the flow from revenue instead of a cash
// flow base: revenue compounds at the phase-1 growth rate while the
// implied FCF margin converges linearly from the observed margin to
// the target margin over the horizon.
//
//	revenue_t = revenue_{t-1} x (1 + g)
//	margin_t  = margin_0 + t/N x (margin_target - margin_0)
//	flow_t    = revenue_t x margin_t
type MarginConvergence struct {
	RevenueGrowth    float64
	RevenueGrowthSrc models.Provenance
	MarginStart      float64
	MarginTarget     float64
	MarginTargetSrc  models.Provenance

	Years int

	BaseSrc models.Provenance
}

func (m MarginConvergence) Name() string { return "margin_convergence" }

func (m MarginConvergence) Validate(base float64) error {
	if err := validYears(m.Years); err != nil {
		return err
	}
	if base <= 0 {
		return fmt.Errorf("%w: margin convergence needs positive base revenue, got %.2f",
			models.ErrInvalidInput, base)
	}
	return nil
}

// Project treats base as revenue, not cash flow.
func (m MarginConvergence) Project(base float64) (Result, error) {
	if err := m.Validate(base); err != nil {
		return Result{}, err
	}

	flows := make([]float64, m.Years)
	revenue := base
	for t := 1; t <= m.Years; t++ {
		revenue = revenue * (1 + m.RevenueGrowth)
		margin := m.MarginStart + float64(t)/float64(m.Years)*(m.MarginTarget-m.MarginStart)
		flows[t-1] = revenue * margin
	}

	baseSrc := m.BaseSrc
	if baseSrc == "" {
		baseSrc = models.SourceProvider
	}

	step := models.CalculationStep{
		Key:     models.StepFCFProjection,
		Label:   "Explicit flow projection (margin convergence)",
		Formula: "flow_t = revenue_t x margin_t, margin converging to target",
		Hypotheses: []models.Variable{
			{Name: "base_revenue", Value: base, Source: baseSrc},
			{Name: "revenue_growth", Value: m.RevenueGrowth, Source: m.RevenueGrowthSrc},
			{Name: "margin_start", Value: m.MarginStart, Source: models.SourceProvider},
			{Name: "margin_target", Value: m.MarginTarget, Source: m.MarginTargetSrc},
			{Name: "years", Value: float64(m.Years), Source: models.SourceManual},
		},
		Substitution: fmt.Sprintf("revenue %.2f growing %.2f%%/y, margin %.2f%% -> %.2f%% over %d years; final flow %.2f",
			base, m.RevenueGrowth*100, m.MarginStart*100, m.MarginTarget*100, m.Years, flows[m.Years-1]),
		Result:         flows[m.Years-1],
		Interpretation: "Cash generation is modeled through revenue scale and profitability convergence.",
	}
	return Result{Flows: flows, Step: step}, nil
}
