// Package sensitivity stress-tests a deterministic valuation over a 2D
// grid of discount rate and terminal growth, re-running the strategy
// once per cell on an isolated parameter copy. The grid is centered on
// the rate the base run actually used, so the middle cell reproduces
// the base value. Cells that fail to compute (divergence, invalid
// input) hold zero instead of aborting the matrix.
package sensitivity

import (
	"github.com/samber/lo"

	"glassbox_valuation/pkg/models"
)

// Runner executes one deterministic valuation, same contract the Monte
// Carlo engine uses.
type Runner func(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error)

// Run builds the stress matrix around the base run. Returns nil when
// the extension is disabled or the strategy is undiscounted (Graham,
// Multiples): there is no rate axis to vary.
func Run(base models.ValuationResult, snap *models.CompanySnapshot, params *models.Parameters, run Runner) *models.SensitivityResults {
	if !params.Sensitivity.Enabled || base.RateKind == models.RateNone {
		return nil
	}

	steps := params.SensitivityStepsOrDefault()
	rateSpan, _ := models.Float(params.Sensitivity.WACCSpan, models.DefaultWACCSpan)
	growthSpan, _ := models.Float(params.Sensitivity.GrowthSpan, models.DefaultGrowthSpan)

	rateCenter := base.DiscountRate
	growthCenter, _ := models.Float(params.Growth.PerpetualGrowth, models.DefaultPerpetualGrowth)

	rateAxis := linspace(rateCenter-rateSpan, rateCenter+rateSpan, steps)
	growthAxis := linspace(growthCenter-growthSpan, growthCenter+growthSpan, steps)

	// Rows run top-down: highest growth first.
	values := make([][]float64, steps)
	for i := range values {
		g := growthAxis[steps-1-i]
		row := make([]float64, steps)
		for j, rate := range rateAxis {
			res, err := run(snap.Clone(), applyCell(params, rate, g))
			if err != nil {
				continue
			}
			row[j] = res.IntrinsicValue
		}
		values[i] = row
	}

	center := steps / 2
	return &models.SensitivityResults{
		XValues:          rateAxis,
		YValues:          lo.Reverse(append([]float64(nil), growthAxis...)),
		Values:           values,
		CenterValue:      values[center][center],
		SensitivityScore: spreadScore(values),
	}
}

// applyCell copies the bundle with the cell's hypotheses forced. The
// rate pins both the WACC and the Ke override so entity and
// direct-equity strategies read the same axis value; the other
// extensions are disabled on the copy.
func applyCell(params *models.Parameters, rate, growth float64) *models.Parameters {
	p := *params
	p.MonteCarlo.Enabled = false
	p.Scenarios = nil
	p.Sensitivity.Enabled = false
	r, g := rate, growth
	p.Rates.WACC = &r
	p.Rates.CostOfEquity = &r
	p.Growth.PerpetualGrowth = &g
	return &p
}

// linspace returns n equidistant points over [from, to] inclusive.
func linspace(from, to float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = from
		return out
	}
	step := (to - from) / float64(n-1)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

// spreadScore is (max - min) / mean over the computable cells.
func spreadScore(values [][]float64) float64 {
	flat := lo.Filter(lo.Flatten(values), func(v float64, _ int) bool { return v > 0 })
	if len(flat) == 0 {
		return 0
	}
	return (lo.Max(flat) - lo.Min(flat)) / (lo.Sum(flat) / float64(len(flat)))
}
