// Package scenario runs the deterministic pipeline once per configured
// case, applying the case's growth overrides, and aggregates the
// outcomes into a probability-weighted expected intrinsic value.
// Failed cases are skipped, not fatal: a scenario set remains useful
// when one aggressive case diverges.
package scenario

import (
	"fmt"

	"glassbox_valuation/pkg/models"
)

// Runner executes one deterministic valuation, same contract the Monte
// Carlo engine uses.
type Runner func(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error)

// Run evaluates every configured scenario case. Returns nil when no
// cases are configured or none produced a value; skipped cases are
// reported through the warnings slice.
func Run(snap *models.CompanySnapshot, params *models.Parameters, run Runner) (*models.ScenarioResults, []string) {
	cases := params.Scenarios
	if len(cases) == 0 {
		return nil, nil
	}

	var outcomes []models.ScenarioOutcome
	var warnings []string
	var weightedSum, totalProb float64

	for _, c := range cases {
		res, err := run(snap.Clone(), applyCase(params, c))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("scenario %q skipped: %v", c.Name, err))
			continue
		}

		outcomes = append(outcomes, models.ScenarioOutcome{
			Name:           c.Name,
			IntrinsicValue: res.IntrinsicValue,
			UpsidePct:      models.Upside(res.IntrinsicValue, snap.CurrentPrice),
			Probability:    c.Probability,
		})
		weightedSum += res.IntrinsicValue * c.Probability
		totalProb += c.Probability
	}

	if len(outcomes) == 0 {
		return nil, warnings
	}

	// Probabilities are normalized so a partial or unnormalized weight
	// set still yields a valid expectation.
	expected := 0.0
	if totalProb > 0 {
		expected = weightedSum / totalProb
	}

	return &models.ScenarioResults{
		ExpectedIntrinsicValue: expected,
		Outcomes:               outcomes,
	}, warnings
}

// applyCase copies the parameter bundle with the case overrides. The
// stochastic layer and nested scenarios are disabled on the copy.
func applyCase(params *models.Parameters, c models.Scenario) *models.Parameters {
	p := *params
	p.MonteCarlo.Enabled = false
	p.Scenarios = nil
	if c.FCFGrowthRate != nil {
		v := *c.FCFGrowthRate
		p.Growth.FCFGrowthRate = &v
	}
	if c.PerpetualGrowth != nil {
		v := *c.PerpetualGrowth
		p.Growth.PerpetualGrowth = &v
	}
	return &p
}
