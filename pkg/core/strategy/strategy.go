// Package strategy maps each valuation mode to its concrete component
// wiring: anchor selection, projector, discount rate and bridge. The
// strategy set is closed; dispatch goes through a static registry.
package strategy

import (
	"fmt"

	"glassbox_valuation/pkg/models"
)

// Strategy executes one complete valuation for a snapshot/parameter
// pair. Implementations are stateless and safe for concurrent use.
type Strategy interface {
	Name() string
	Execute(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error)
}

// Registered strategy names.
const (
	FCFFStandard      = "fcff_standard"
	FCFFNormalized    = "fcff_normalized"
	FCFFRevenueDriven = "fcff_revenue_driven"
	FCFE              = "fcfe"
	DDM               = "ddm"
	ResidualIncome    = "residual_income"
	Graham            = "graham"
	Multiples         = "multiples"
)

var registry = map[string]Strategy{
	FCFFStandard:      fcffStandard{},
	FCFFNormalized:    fcffNormalized{},
	FCFFRevenueDriven: fcffRevenueDriven{},
	FCFE:              fcfeStrategy{},
	DDM:               ddmStrategy{},
	ResidualIncome:    rimStrategy{},
	Graham:            grahamStrategy{},
	Multiples:         multiplesStrategy{},
}

// Get resolves a strategy by name.
func Get(name string) (Strategy, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", models.ErrInvalidInput, name)
	}
	return s, nil
}

// Names lists the registered strategies in a stable order.
func Names() []string {
	return []string{
		FCFFStandard, FCFFNormalized, FCFFRevenueDriven,
		FCFE, DDM, ResidualIncome, Graham, Multiples,
	}
}

// resolveAnchor applies the manual-override-first cascade to a
// valuation anchor. A manual override bypasses the positivity check:
// the analyst has accepted responsibility for the input. An automatic
// anchor must be strictly positive.
func resolveAnchor(name string, manual *float64, provider *float64) (float64, models.Provenance, error) {
	if manual != nil {
		return *manual, models.SourceManual, nil
	}
	if provider == nil {
		return 0, "", models.NewMissingAnchor(name)
	}
	if *provider <= 0 {
		return 0, "", models.NewNegativeFlow(name, *provider)
	}
	return *provider, models.SourceProvider, nil
}
