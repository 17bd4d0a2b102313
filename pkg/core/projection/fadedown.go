package projection

import (
	"fmt"

	"glassbox_valuation/pkg/models"
)

// FadeDown grows the flow at GrowthStart for the plateau years, then
// linearly interpolates the growth rate down to GrowthTerminal over
// the remaining horizon:
//
//	g_t = g_start                                    t <= plateau
//	g_t = g_start + (t-plateau)/(N-plateau) * (g_term - g_start)
//	flow_t = flow_{t-1} * (1 + g_t)
type FadeDown struct {
	GrowthStart    float64
	GrowthStartSrc models.Provenance
	GrowthTerminal float64
	GrowthTermSrc  models.Provenance

	Years           int
	HighGrowthYears int

	// BaseSrc tags where the base flow came from; defaults to PROVIDER.
	BaseSrc models.Provenance
}

func (f FadeDown) baseSrc() models.Provenance {
	if f.BaseSrc == "" {
		return models.SourceProvider
	}
	return f.BaseSrc
}

func (f FadeDown) Name() string { return "fade_down" }

func (f FadeDown) Validate(base float64) error {
	if err := validYears(f.Years); err != nil {
		return err
	}
	if base == 0 {
		return fmt.Errorf("%w: fade-down projection needs a non-zero base flow", models.ErrInvalidInput)
	}
	return nil
}

func (f FadeDown) Project(base float64) (Result, error) {
	if err := f.Validate(base); err != nil {
		return Result{}, err
	}

	plateau := ClampPlateau(f.HighGrowthYears, f.Years)
	fade := f.Years - plateau

	flows := make([]float64, f.Years)
	prev := base
	for t := 1; t <= f.Years; t++ {
		g := f.GrowthStart
		if t > plateau {
			alpha := float64(t-plateau) / float64(fade)
			g = f.GrowthStart + alpha*(f.GrowthTerminal-f.GrowthStart)
		}
		prev = prev * (1 + g)
		flows[t-1] = prev
	}

	step := models.CalculationStep{
		Key:     models.StepFCFProjection,
		Label:   "Explicit flow projection (fade-down)",
		Formula: "flow_t = flow_{t-1} x (1 + g_t), g fading to g_terminal",
		Hypotheses: []models.Variable{
			{Name: "base_flow", Value: base, Source: f.baseSrc()},
			{Name: "g_start", Value: f.GrowthStart, Source: f.GrowthStartSrc},
			{Name: "g_terminal", Value: f.GrowthTerminal, Source: f.GrowthTermSrc},
			{Name: "years", Value: float64(f.Years), Source: models.SourceManual},
			{Name: "high_growth_years", Value: float64(plateau), Source: models.SourceManual},
		},
		Substitution: fmt.Sprintf("%.2f -> %.2f over %d years (plateau %dy at %.2f%%, fading to %.2f%%)",
			base, flows[f.Years-1], f.Years, plateau, f.GrowthStart*100, f.GrowthTerminal*100),
		Result:         flows[f.Years-1],
		Interpretation: "Growth converges linearly toward the terminal rate after the high-growth plateau.",
	}
	return Result{Flows: flows, Step: step}, nil
}
