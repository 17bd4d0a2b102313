package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Provenance records where a resolved input value came from. The
// resolution order is always MANUAL > PROVIDER > SYSTEM.
type Provenance string

const (
	SourceSystem   Provenance = "SYSTEM"   // documented default
	SourceProvider Provenance = "PROVIDER" // company snapshot
	SourceManual   Provenance = "MANUAL"   // analyst override
)

// InputSource distinguishes fully automatic runs from expert runs with
// manual overrides. It drives the audit pillar weighting.
type InputSource string

const (
	InputAuto   InputSource = "AUTO"
	InputManual InputSource = "MANUAL"
)

// TerminalValueMethod selects the terminal-value formula.
type TerminalValueMethod string

const (
	TVGordon       TerminalValueMethod = "gordon_growth"
	TVExitMultiple TerminalValueMethod = "exit_multiple"
)

// System defaults. Every fallback the engine uses is named here so the
// trace can cite it.
const (
	DefaultRiskFreeRate      = 0.04
	DefaultMarketRiskPremium = 0.05
	DefaultTaxRate           = 0.25
	DefaultPerpetualGrowth   = 0.02
	MaxPerpetualGrowth       = 0.04
	DefaultFCFGrowth         = 0.03
	DefaultRevenueGrowth     = 0.05
	DefaultBeta              = 1.0
	DefaultYears             = 5
	MinYears                 = 1
	MaxYears                 = 15
	DefaultExitMultiple      = 12.0
	DefaultRIMPersistence    = 0.60
	MaxPayoutRatio           = 0.90
	DefaultTargetFCFMargin   = 0.20
	MaxDilutionCAGR          = 0.10

	// Synthetic cost of debt when no interest expense is observable.
	NoInterestDebtSpread = 0.0107

	// Hamada re-levering only fires past this D/E gap.
	HamadaThreshold = 0.05
)

// Monte Carlo defaults.
const (
	DefaultMCIterations       = 2000
	MinMCIterations           = 100
	MaxMCIterations           = 20000
	DefaultBetaVolatility     = 0.10
	DefaultGrowthVolatility   = 0.015
	DefaultTerminalVolatility = 0.005
	DefaultMCCorrelation      = -0.30
	DefaultMCSeed             = 42
	MCValueCeiling            = 50000.0
	MCStabilityFloor          = 0.50
)

// Sensitivity matrix defaults.
const (
	DefaultSensitivitySteps = 5
	MinSensitivitySteps     = 3
	MaxSensitivitySteps     = 9
	DefaultWACCSpan         = 0.01
	DefaultGrowthSpan       = 0.005
)

// RatesParams is the discount-rate hypothesis segment. Nil pointer
// fields delegate to the resolver cascade.
type RatesParams struct {
	RiskFreeRate      *float64 `json:"risk_free_rate,omitempty" validate:"omitempty,gte=0,lte=0.25"`
	MarketRiskPremium *float64 `json:"market_risk_premium,omitempty" validate:"omitempty,gte=0,lte=0.25"`
	TaxRate           *float64 `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=0.60"`
	Beta              *float64 `json:"beta,omitempty" validate:"omitempty,gte=-1,lte=5"`
	CostOfDebt        *float64 `json:"cost_of_debt,omitempty" validate:"omitempty,gte=0,lte=0.50"`
	CostOfEquity      *float64 `json:"cost_of_equity,omitempty" validate:"omitempty,gt=0,lte=0.60"`
	WACC              *float64 `json:"wacc,omitempty" validate:"omitempty,gt=0,lte=0.60"`
}

// GrowthParams is the projection/bridge hypothesis segment.
type GrowthParams struct {
	FCFGrowthRate   *float64            `json:"fcf_growth_rate,omitempty" validate:"omitempty,gte=-0.50,lte=1"`
	PerpetualGrowth *float64            `json:"perpetual_growth,omitempty" validate:"omitempty,gte=-0.02,lte=0.04"`
	Years           int                 `json:"years,omitempty" validate:"omitempty,min=1,max=15"`
	HighGrowthYears int                 `json:"high_growth_years,omitempty" validate:"omitempty,min=0,max=15"`
	TVMethod        TerminalValueMethod `json:"tv_method,omitempty" validate:"omitempty,oneof=gordon_growth exit_multiple"`
	ExitMultiple    *float64            `json:"exit_multiple,omitempty" validate:"omitempty,gt=0,lte=60"`

	// Target capital structure. When either weight is supplied the
	// resolver uses target weights instead of observed market weights.
	TargetEquityWeight *float64 `json:"target_equity_weight,omitempty" validate:"omitempty,gte=0,lte=1.5"`
	TargetDebtWeight   *float64 `json:"target_debt_weight,omitempty" validate:"omitempty,gte=0,lte=1.5"`

	// Revenue-driven strategy
	TargetFCFMargin *float64 `json:"target_fcf_margin,omitempty" validate:"omitempty,gte=0,lte=0.80"`

	// Residual income
	RIMPersistence *float64 `json:"rim_persistence,omitempty" validate:"omitempty,gte=0,lt=1"`
	PayoutRatio    *float64 `json:"payout_ratio,omitempty" validate:"omitempty,gte=0,lte=1"`

	// Anchor / bridge manual overrides (analyst-supplied, bypass the
	// positivity checks the automatic path enforces)
	ManualFCF        *float64  `json:"manual_fcf,omitempty"`
	ManualRevenue    *float64  `json:"manual_revenue,omitempty"`
	ManualEPS        *float64  `json:"manual_eps,omitempty"`
	ManualBVPS       *float64  `json:"manual_bvps,omitempty"`
	ManualDPS        *float64  `json:"manual_dps,omitempty"`
	ManualNetIncome  *float64  `json:"manual_net_income,omitempty"`
	ManualShares     *float64  `json:"manual_shares,omitempty"`
	ManualDebt       *float64  `json:"manual_debt,omitempty"`
	ManualCash       *float64  `json:"manual_cash,omitempty"`
	ManualMinorities *float64  `json:"manual_minorities,omitempty"`
	ManualPensions   *float64  `json:"manual_pensions,omitempty"`
	ManualFlows      []float64 `json:"manual_flows,omitempty"`

	// Annual SBC dilution rate; nil means estimate from share history.
	DilutionRate *float64 `json:"dilution_rate,omitempty" validate:"omitempty,gte=0,lte=0.25"`
}

// MonteCarloParams configures the stochastic extension.
type MonteCarloParams struct {
	Enabled            bool     `json:"enabled"`
	Iterations         int      `json:"iterations,omitempty" validate:"omitempty,min=100,max=20000"`
	BetaVolatility     *float64 `json:"beta_volatility,omitempty" validate:"omitempty,gte=0,lte=1"`
	GrowthVolatility   *float64 `json:"growth_volatility,omitempty" validate:"omitempty,gte=0,lte=0.20"`
	TerminalVolatility *float64 `json:"terminal_volatility,omitempty" validate:"omitempty,gte=0,lte=0.05"`
	Correlation        *float64 `json:"correlation,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Seed               *uint64  `json:"seed,omitempty"`
}

// Scenario is one probability-weighted hypothesis variant.
type Scenario struct {
	Name            string   `json:"name" validate:"required"`
	Probability     float64  `json:"probability" validate:"gte=0,lte=1"`
	FCFGrowthRate   *float64 `json:"fcf_growth_rate,omitempty"`
	PerpetualGrowth *float64 `json:"perpetual_growth,omitempty"`
}

// SensitivityParams configures the deterministic rate/growth stress
// matrix.
type SensitivityParams struct {
	Enabled    bool     `json:"enabled"`
	Steps      int      `json:"steps,omitempty" validate:"omitempty,min=3,max=9"`
	WACCSpan   *float64 `json:"wacc_span,omitempty" validate:"omitempty,gt=0,lte=0.05"`
	GrowthSpan *float64 `json:"growth_span,omitempty" validate:"omitempty,gt=0,lte=0.02"`
}

// SOTPSegment is one business segment for sum-of-the-parts.
type SOTPSegment struct {
	Name            string  `json:"name" validate:"required"`
	EnterpriseValue float64 `json:"enterprise_value" validate:"gt=0"`
}

// SOTPParams configures the sum-of-the-parts extension.
type SOTPParams struct {
	Segments             []SOTPSegment `json:"segments,omitempty" validate:"dive"`
	ConglomerateDiscount *float64      `json:"conglomerate_discount,omitempty" validate:"omitempty,gte=0,lte=0.50"`
}

// Parameters is the complete hypothesis bundle for one valuation run,
// organized into independent segments. Immutable once built; construct
// through NewParameters so the decimal guard and validation run.
type Parameters struct {
	Source      InputSource       `json:"input_source,omitempty" validate:"omitempty,oneof=AUTO MANUAL"`
	Rates       RatesParams       `json:"rates"`
	Growth      GrowthParams      `json:"growth"`
	MonteCarlo  MonteCarloParams  `json:"monte_carlo"`
	Scenarios   []Scenario        `json:"scenarios,omitempty" validate:"dive"`
	Sensitivity SensitivityParams `json:"sensitivity"`
	SOTP        SOTPParams        `json:"sotp"`
}

var paramValidator = validator.New(validator.WithRequiredStructEnabled())

// NewParameters normalizes and validates a raw bundle. Rate-like
// fields in (1,100] are interpreted as percentages and divided by 100
// (the analyst typed "5" meaning 5%); 0.0 is preserved as a deliberate
// input; nil stays nil and delegates to the resolver.
func NewParameters(raw Parameters) (*Parameters, error) {
	p := raw
	if p.Source == "" {
		p.Source = InputAuto
	}
	if p.Growth.TVMethod == "" {
		p.Growth.TVMethod = TVGordon
	}

	normalizeRate(&p.Rates.RiskFreeRate)
	normalizeRate(&p.Rates.MarketRiskPremium)
	normalizeRate(&p.Rates.TaxRate)
	normalizeRate(&p.Rates.CostOfDebt)
	normalizeRate(&p.Rates.CostOfEquity)
	normalizeRate(&p.Rates.WACC)
	normalizeRate(&p.Growth.FCFGrowthRate)
	normalizeRate(&p.Growth.PerpetualGrowth)
	normalizeRate(&p.Growth.TargetEquityWeight)
	normalizeRate(&p.Growth.TargetDebtWeight)
	normalizeRate(&p.Growth.TargetFCFMargin)
	normalizeRate(&p.Growth.PayoutRatio)
	normalizeRate(&p.Growth.DilutionRate)
	normalizeRate(&p.MonteCarlo.BetaVolatility)
	normalizeRate(&p.MonteCarlo.GrowthVolatility)
	normalizeRate(&p.MonteCarlo.TerminalVolatility)
	normalizeRate(&p.Sensitivity.WACCSpan)
	normalizeRate(&p.Sensitivity.GrowthSpan)
	normalizeRate(&p.SOTP.ConglomerateDiscount)

	if err := paramValidator.Struct(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &p, nil
}

// normalizeRate applies the decimal guard: values in (1,100] are
// divided by 100. Beta is excluded by its own validation range, and
// values > 100 fail validation outright.
func normalizeRate(f **float64) {
	if *f == nil {
		return
	}
	v := **f
	if v > 1 && v <= 100 {
		v = v / 100
		*f = &v
	}
}

// --- segment accessors with system defaults ---

func (p *Parameters) YearsOrDefault() int {
	if p.Growth.Years >= MinYears && p.Growth.Years <= MaxYears {
		return p.Growth.Years
	}
	return DefaultYears
}

func (p *Parameters) SensitivityStepsOrDefault() int {
	if p.Sensitivity.Steps >= MinSensitivitySteps && p.Sensitivity.Steps <= MaxSensitivitySteps {
		return p.Sensitivity.Steps
	}
	return DefaultSensitivitySteps
}

func (p *Parameters) IterationsOrDefault() int {
	if p.MonteCarlo.Iterations >= MinMCIterations && p.MonteCarlo.Iterations <= MaxMCIterations {
		return p.MonteCarlo.Iterations
	}
	return DefaultMCIterations
}

// Float returns the override value or the given default, tagging the
// provenance accordingly.
func Float(override *float64, def float64) (float64, Provenance) {
	if override != nil {
		return *override, SourceManual
	}
	return def, SourceSystem
}
