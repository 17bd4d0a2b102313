// Package projection produces the explicit-horizon flow vector under
// one of several growth trajectories. Projectors are pure: they never
// mutate the base value and report their full numeric substitution as
// a single trace step.
package projection

import (
	"fmt"

	"glassbox_valuation/pkg/models"
)

// Result is the projector output: the flow vector plus the ready-made
// trace step describing how it was produced.
type Result struct {
	Flows []float64
	Step  models.CalculationStep
}

// Projector is a pluggable growth trajectory.
type Projector interface {
	// Name returns the trajectory identifier.
	Name() string

	// Validate checks the configuration before projecting.
	Validate(base float64) error

	// Project computes the flow vector from the base value.
	Project(base float64) (Result, error)
}

// ClampPlateau bounds the high-growth plateau so at least one fade
// year remains.
func ClampPlateau(highGrowthYears, years int) int {
	if highGrowthYears < 0 {
		return 0
	}
	if highGrowthYears > years-1 {
		return years - 1
	}
	return highGrowthYears
}

func validYears(years int) error {
	if years < models.MinYears || years > models.MaxYears {
		return fmt.Errorf("%w: projection horizon %d outside [%d,%d]",
			models.ErrInvalidInput, years, models.MinYears, models.MaxYears)
	}
	return nil
}
