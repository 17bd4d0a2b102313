package strategy

import (
	"fmt"
	"math"

	"glassbox_valuation/pkg/core/pipeline"
	"glassbox_valuation/pkg/core/projection"
	"glassbox_valuation/pkg/models"
)

// fcffStandard anchors on the TTM free cash flow, discounts at WACC
// and runs the full equity bridge.
type fcffStandard struct{}

func (fcffStandard) Name() string { return FCFFStandard }

func (s fcffStandard) Execute(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	base, src, err := resolveAnchor("free cash flow", params.Growth.ManualFCF, snap.FCFTTM)
	if err != nil {
		return models.ValuationResult{}, err
	}

	baseStep := models.CalculationStep{
		Key:          models.StepFCFBase,
		Label:        "FCF anchor selection",
		Formula:      "FCF_0 = TTM free cash flow",
		Hypotheses:   []models.Variable{{Name: "fcf_base", Value: base, Source: src}},
		Substitution: fmt.Sprintf("FCF_0 = %.2f (%s)", base, src),
		Result:       base,
	}

	return pipeline.Execute(pipeline.Run{
		Snapshot:     snap,
		Params:       params,
		StrategyName: s.Name(),
		Base:         base,
		BaseSteps:    []models.CalculationStep{baseStep},
		Projector:    fadeDownFor(params, src),
	})
}

// fcffNormalized anchors on a cycle-smoothed FCF: a weighted average
// of the historical series with recent years weighted heavier, to
// neutralize cyclical noise. A stability check on the series is
// recorded alongside.
type fcffNormalized struct{}

func (fcffNormalized) Name() string { return FCFFNormalized }

func (s fcffNormalized) Execute(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	var smoothed *float64
	var cov float64
	if len(snap.FCFHistory) >= 2 {
		v := weightedAverage(snap.FCFHistory)
		smoothed = &v
		cov = coefficientOfVariation(snap.FCFHistory)
	}

	base, src, err := resolveAnchor("normalized free cash flow", params.Growth.ManualFCF, smoothed)
	if err != nil {
		return models.ValuationResult{}, err
	}

	steps := []models.CalculationStep{
		{
			Key:     models.StepFCFNormSelection,
			Label:   "Normalized FCF anchor",
			Formula: "FCF_norm = sum(w_t x FCF_t) / sum(w_t), recent years weighted heavier",
			Hypotheses: []models.Variable{
				{Name: "fcf_norm", Value: base, Source: src},
				{Name: "history_years", Value: float64(len(snap.FCFHistory)), Source: models.SourceProvider},
			},
			Substitution:   fmt.Sprintf("FCF_norm = %.2f over %d years (%s)", base, len(snap.FCFHistory), src),
			Result:         base,
			Interpretation: "Cycle-smoothed flow replaces the TTM figure for cyclical earnings.",
		},
	}
	if src == models.SourceProvider {
		steps = append(steps, models.CalculationStep{
			Key:     models.StepFCFStabilityCheck,
			Label:   "FCF series stability",
			Formula: "CoV = sigma(FCF) / |mean(FCF)|",
			Substitution: fmt.Sprintf("coefficient of variation %.3f over %d years",
				cov, len(snap.FCFHistory)),
			Result:         cov,
			Interpretation: "High dispersion weakens the normalized anchor; the audit scores it.",
		})
	}

	return pipeline.Execute(pipeline.Run{
		Snapshot:     snap,
		Params:       params,
		StrategyName: s.Name(),
		Base:         base,
		BaseSteps:    steps,
		Projector:    fadeDownFor(params, src),
	})
}

// fcffRevenueDriven anchors on revenue and converges the FCF margin
// toward a target over the horizon.
type fcffRevenueDriven struct{}

func (fcffRevenueDriven) Name() string { return FCFFRevenueDriven }

func (s fcffRevenueDriven) Execute(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	revenue := &snap.RevenueTTM
	if snap.RevenueTTM == 0 {
		revenue = nil
	}
	base, src, err := resolveAnchor("revenue", params.Growth.ManualRevenue, revenue)
	if err != nil {
		return models.ValuationResult{}, err
	}

	// Observed margin from current FCF; zero when unknown.
	marginStart := 0.0
	if snap.FCFTTM != nil && base != 0 {
		marginStart = *snap.FCFTTM / base
	}
	marginTarget, marginSrc := models.Float(params.Growth.TargetFCFMargin, models.DefaultTargetFCFMargin)
	growth, growthSrc := models.Float(params.Growth.FCFGrowthRate, models.DefaultRevenueGrowth)

	baseStep := models.CalculationStep{
		Key:     models.StepFCFBase,
		Label:   "Revenue anchor selection",
		Formula: "Revenue_0 = TTM revenue",
		Hypotheses: []models.Variable{
			{Name: "revenue_base", Value: base, Source: src},
			{Name: "margin_observed", Value: marginStart, Source: models.SourceProvider},
			{Name: "margin_target", Value: marginTarget, Source: marginSrc},
		},
		Substitution: fmt.Sprintf("Revenue_0 = %.2f (%s), margin %.2f%% -> %.2f%%",
			base, src, marginStart*100, marginTarget*100),
		Result: base,
	}

	return pipeline.Execute(pipeline.Run{
		Snapshot:     snap,
		Params:       params,
		StrategyName: s.Name(),
		Base:         base,
		BaseSteps:    []models.CalculationStep{baseStep},
		Projector: projection.MarginConvergence{
			RevenueGrowth:    growth,
			RevenueGrowthSrc: growthSrc,
			MarginStart:      marginStart,
			MarginTarget:     marginTarget,
			MarginTargetSrc:  marginSrc,
			Years:            params.YearsOrDefault(),
			BaseSrc:          src,
		},
	})
}

// fadeDownFor builds the default fade-down projector from the growth
// segment, honoring the manual flow vector when supplied.
func fadeDownFor(params *models.Parameters, baseSrc models.Provenance) projection.Projector {
	if len(params.Growth.ManualFlows) > 0 {
		return projection.ManualVector{Flows: params.Growth.ManualFlows}
	}
	gStart, gStartSrc := models.Float(params.Growth.FCFGrowthRate, models.DefaultFCFGrowth)
	gTerm, gTermSrc := models.Float(params.Growth.PerpetualGrowth, models.DefaultPerpetualGrowth)
	return projection.FadeDown{
		GrowthStart:     gStart,
		GrowthStartSrc:  gStartSrc,
		GrowthTerminal:  gTerm,
		GrowthTermSrc:   gTermSrc,
		Years:           params.YearsOrDefault(),
		HighGrowthYears: params.Growth.HighGrowthYears,
		BaseSrc:         baseSrc,
	}
}

// weightedAverage weights the series linearly, oldest 1 .. newest n.
func weightedAverage(series []float64) float64 {
	var sum, weights float64
	for i, v := range series {
		w := float64(i + 1)
		sum += w * v
		weights += w
	}
	return sum / weights
}

func coefficientOfVariation(series []float64) float64 {
	var mean float64
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))
	if mean == 0 {
		return 0
	}
	var ss float64
	for _, v := range series {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss/float64(len(series))) / math.Abs(mean)
}
