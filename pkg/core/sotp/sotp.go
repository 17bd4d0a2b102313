// Package sotp values a conglomerate as the sum of its parts: segment
// enterprise values are consolidated, a conglomerate discount is
// applied, and a single equity bridge converts the total to a per-share
// figure. Segment EVs come from upstream runs or analyst input; this
// package never re-values a segment.
package sotp

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"glassbox_valuation/pkg/core/discount"
	"glassbox_valuation/pkg/models"
)

// Valuate consolidates the configured segments into one equity value.
// At least one segment is required; every segment EV must be positive
// (validated at parameter construction).
func Valuate(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	segments := params.SOTP.Segments
	if len(segments) == 0 {
		return models.ValuationResult{}, models.NewMissingAnchor("sum-of-the-parts segments")
	}

	trace := models.NewTrace()

	gross := lo.SumBy(segments, func(s models.SOTPSegment) float64 { return s.EnterpriseValue })
	disc, discSrc := models.Float(params.SOTP.ConglomerateDiscount, 0.0)
	enterprise := gross * (1 - disc)

	names := lo.Map(segments, func(s models.SOTPSegment, _ int) string { return s.Name })
	trace.Add(models.CalculationStep{
		Key:     models.StepSOTPEVConsolidation,
		Label:   "Segment EV consolidation",
		Formula: "EV = sum(EV_segment) x (1 - discount)",
		Hypotheses: append(
			lo.Map(segments, func(s models.SOTPSegment, _ int) models.Variable {
				return models.Variable{Name: "ev_" + s.Name, Value: s.EnterpriseValue, Source: models.SourceManual}
			}),
			models.Variable{Name: "conglomerate_discount", Value: disc, Source: discSrc},
		),
		Substitution: fmt.Sprintf("(%s) x (1 - %.2f) = %.2f",
			joinSegments(segments), disc, enterprise),
		Result: enterprise,
		Interpretation: fmt.Sprintf(
			"%d segments (%s) consolidated; the discount prices holding-level frictions.",
			len(segments), strings.Join(names, ", ")),
	})

	// One bridge over the consolidated EV. Segment-level debt and cash
	// are assumed to be held at group level.
	items := discount.ResolveBridgeItems(snap, params.Growth)
	equity, bridgeStep := discount.EquityBridge(enterprise, items)
	trace.Add(bridgeStep)

	perShare, shareStep, err := discount.PerShare(equity, snap, params.Growth)
	if err != nil {
		return models.ValuationResult{}, err
	}
	trace.Add(shareStep)

	return models.ValuationResult{
		Ticker:         snap.Ticker,
		Currency:       snap.Currency,
		Strategy:       "sotp",
		Source:         params.Source,
		IntrinsicValue: perShare,
		MarketPrice:    snap.CurrentPrice,
		UpsidePct:      models.Upside(perShare, snap.CurrentPrice),

		RateKind: models.RateNone,

		EnterpriseValue: enterprise,
		EquityValue:     equity,
		Steps:           trace.Steps(),
	}, nil
}

func joinSegments(segments []models.SOTPSegment) string {
	parts := lo.Map(segments, func(s models.SOTPSegment, _ int) string {
		return fmt.Sprintf("%.2f", s.EnterpriseValue)
	})
	return strings.Join(parts, " + ")
}
