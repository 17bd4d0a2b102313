// Package audit scores the reliability of a finished valuation on four
// uncertainty pillars: data confidence, assumption risk, model risk and
// method fit. Every check is a pure function of values the pipeline
// already computed; the auditor does no new financial math. It also
// never fails: thin or contradictory inputs lower the score, they do
// not abort the run.
package audit

import (
	"fmt"
	"math"

	"glassbox_valuation/pkg/models"
)

// Pillar weights by input mode. In expert (MANUAL) mode the analyst
// vouches for the data, so the weight shifts from data confidence to
// assumption and model risk.
var modeWeights = map[models.InputSource]map[models.AuditPillar]float64{
	models.InputAuto: {
		models.PillarDataConfidence: 0.30,
		models.PillarAssumptionRisk: 0.30,
		models.PillarModelRisk:      0.25,
		models.PillarMethodFit:      0.15,
	},
	models.InputManual: {
		models.PillarDataConfidence: 0.10,
		models.PillarAssumptionRisk: 0.40,
		models.PillarModelRisk:      0.30,
		models.PillarMethodFit:      0.20,
	},
}

// Score audits one valuation result against its inputs. It always
// returns a usable report; an internal failure degrades to the
// zero-score fallback instead of propagating.
func Score(snap *models.CompanySnapshot, params *models.Parameters, result models.ValuationResult) (report models.AuditReport) {
	defer func() {
		if r := recover(); r != nil {
			report = fallbackReport(fmt.Sprintf("%v", r))
		}
	}()

	mode := params.Source
	weights, ok := modeWeights[mode]
	if !ok {
		mode = models.InputAuto
		weights = modeWeights[mode]
	}

	expert := mode == models.InputManual

	pillarResults := []pillarResult{
		auditDataConfidence(snap, expert),
		auditAssumptionRisk(params, result),
		auditModelRisk(result),
		auditMethodFit(result),
	}

	var total float64
	var pillars []models.PillarScore
	var checks []models.AuditCheck
	critical := false

	for _, pr := range pillarResults {
		w := weights[pr.pillar]
		contribution := pr.score * w
		total += contribution

		pillars = append(pillars, models.PillarScore{
			Pillar:       pr.pillar,
			Score:        pr.score,
			Weight:       w,
			Contribution: contribution,
			Diagnostics:  pr.diagnostics(),
		})
		checks = append(checks, pr.checks...)
		if pr.score < 40 {
			critical = true
		}
	}

	return models.AuditReport{
		GlobalScore:     clamp(total),
		Rating:          rating(clamp(total)),
		Mode:            mode,
		Pillars:         pillars,
		Checks:          checks,
		CriticalWarning: critical,
	}
}

type pillarResult struct {
	pillar models.AuditPillar
	score  float64
	checks []models.AuditCheck
}

func (p pillarResult) diagnostics() []string {
	out := make([]string, 0, len(p.checks))
	for _, c := range p.checks {
		out = append(out, c.Message)
	}
	return out
}

// add records a check and applies its penalty unless suppressed
// (expert mode presumes the data is exact and keeps data-quality
// findings informative).
func (p *pillarResult) add(severity models.AuditSeverity, penalty float64, suppressed bool, format string, args ...any) {
	applied := penalty
	if suppressed {
		applied = 0
	}
	p.checks = append(p.checks, models.AuditCheck{
		Pillar:   p.pillar,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
		Penalty:  applied,
	})
	p.score = clamp(p.score + applied)
}

func auditDataConfidence(snap *models.CompanySnapshot, expert bool) pillarResult {
	p := pillarResult{pillar: models.PillarDataConfidence, score: 100}

	if expert {
		p.add(models.SeverityInfo, 0, false,
			"expert mode: inputs presumed exact, data findings are informative only")
	}

	if snap.TotalDebt == 0 && snap.InterestExpense > 0 {
		p.add(models.SeverityWarning, -10, expert,
			"zero reported debt but %.0f of interest expense", snap.InterestExpense)
	}

	if beta, src := snap.ResolvedBeta(); src == models.SourceSystem {
		p.add(models.SeverityWarning, -10, expert,
			"no observed beta; system default %.2f in use", beta)
	} else if beta < 0.4 || beta > 3.0 {
		p.add(models.SeverityWarning, -10, expert,
			"atypical beta (%.2f) outside [0.4, 3.0]", beta)
	}

	if len(snap.FCFHistory) < 2 {
		p.add(models.SeverityWarning, -10, expert,
			"fewer than two years of flow history; cycle smoothing unavailable")
	}

	return p
}

func auditAssumptionRisk(params *models.Parameters, result models.ValuationResult) pillarResult {
	p := pillarResult{pillar: models.PillarAssumptionRisk, score: 100}

	growth, _ := models.Float(params.Growth.FCFGrowthRate, models.DefaultFCFGrowth)
	if growth > 0.20 {
		p.add(models.SeverityWarning, -20, false,
			"explicit growth of %.1f%% is aggressive", growth*100)
	}

	// The Gordon guard makes spread <= 0 structurally impossible; it is
	// re-checked here defensively and scored instead of raised.
	if result.RateKind != models.RateNone && result.DiscountRate > 0 {
		gPerp, _ := models.Float(params.Growth.PerpetualGrowth, models.DefaultPerpetualGrowth)
		spread := result.DiscountRate - gPerp
		switch {
		case spread <= 0:
			p.add(models.SeverityCritical, -100, false,
				"perpetual growth %.2f%% meets or exceeds the discount rate %.2f%%", gPerp*100, result.DiscountRate*100)
		case spread < 0.015:
			p.add(models.SeverityWarning, -25, false,
				"terminal spread of %.2f%% leaves the Gordon value hypersensitive", spread*100)
		}
	}

	if params.Growth.DilutionRate != nil && *params.Growth.DilutionRate > models.MaxDilutionCAGR {
		p.add(models.SeverityWarning, -10, false,
			"configured dilution of %.1f%%/yr exceeds the historical clamp", *params.Growth.DilutionRate*100)
	}

	return p
}

func auditModelRisk(result models.ValuationResult) pillarResult {
	p := pillarResult{pillar: models.PillarModelRisk, score: 100}

	if w := result.TerminalValueWeight; len(result.ProjectedFlows) > 0 {
		switch {
		case w > 0.85:
			p.add(models.SeverityWarning, -30, false,
				"terminal value carries %.1f%% of the core value", w*100)
		case w > 0.70:
			p.add(models.SeverityWarning, -15, false,
				"elevated terminal value weight (%.1f%%)", w*100)
		}
	}

	if result.RateKind == models.RateNone {
		p.add(models.SeverityInfo, -20, false,
			"undiscounted heuristic method; no explicit risk pricing")
	}

	if mc := result.MonteCarlo; mc != nil && mc.Unstable {
		p.add(models.SeverityWarning, -20, false,
			"only %.0f%% of stochastic draws were valid", mc.ValidRatio*100)
	}

	return p
}

func auditMethodFit(result models.ValuationResult) pillarResult {
	p := pillarResult{pillar: models.PillarMethodFit, score: 100}

	// A discounted result with no flow vector means the strategy wiring
	// is broken upstream; scored critically rather than raised.
	if result.RateKind != models.RateNone && len(result.ProjectedFlows) == 0 {
		p.add(models.SeverityCritical, -40, false,
			"discounted-flow method produced no projected flows")
	}

	if result.RateKind == models.RateKe && result.LeverageObserved > 1.5 {
		p.add(models.SeverityWarning, -15, false,
			"equity-flow method under heavy leverage (debt/mcap %.2f); an entity method isolates financing better", result.LeverageObserved)
	}

	if result.CapexToDA > 0 && result.CapexToDA < 0.5 {
		p.add(models.SeverityWarning, -10, false,
			"capex at %.0f%% of D&A suggests underinvestment inflating the flow anchor", result.CapexToDA*100)
	}

	return p
}

func rating(score float64) string {
	switch {
	case score >= 90:
		return "AAA (High Confidence)"
	case score >= 75:
		return "AA (Good)"
	case score >= 60:
		return "BBB (Moderate)"
	case score >= 40:
		return "BB (Speculative)"
	default:
		return "C (Low Confidence)"
	}
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func fallbackReport(cause string) models.AuditReport {
	return models.AuditReport{
		GlobalScore: 0,
		Rating:      "C (Low Confidence)",
		Mode:        models.InputAuto,
		Checks: []models.AuditCheck{{
			Pillar:   models.PillarModelRisk,
			Severity: models.SeverityCritical,
			Message:  "audit engine failure: " + cause,
			Penalty:  -100,
		}},
		CriticalWarning: true,
	}
}
