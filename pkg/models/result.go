package models

// RateKind names the discount rate a strategy used.
type RateKind string

const (
	RateWACC RateKind = "WACC"
	RateKe   RateKind = "KE"
	RateNone RateKind = "NONE" // undiscounted models (Graham, Multiples)
)

// MonteCarloStats summarizes the valid draws of a stochastic run.
type MonteCarloStats struct {
	Iterations int     `json:"iterations"`
	Valid      int     `json:"valid"`
	ValidRatio float64 `json:"valid_ratio"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	P5         float64 `json:"p5"`
	P10        float64 `json:"p10"`
	P50        float64 `json:"p50"`
	P90        float64 `json:"p90"`
	P95        float64 `json:"p95"`
	// Unstable flags a run where fewer than half the draws produced a
	// valid value. The result is still usable; the flag travels with it.
	Unstable bool `json:"unstable"`
}

// ScenarioOutcome is one probability-weighted valuation case.
type ScenarioOutcome struct {
	Name           string  `json:"name"`
	IntrinsicValue float64 `json:"intrinsic_value"`
	UpsidePct      float64 `json:"upside_pct"`
	Probability    float64 `json:"probability"`
}

// ScenarioResults aggregates the scenario cases into an expected value.
type ScenarioResults struct {
	ExpectedIntrinsicValue float64           `json:"expected_intrinsic_value"`
	Outcomes               []ScenarioOutcome `json:"outcomes"`
}

// SensitivityResults is the deterministic rate x growth stress matrix.
// Rows follow YValues top-down (highest growth first); cells that
// failed to compute (divergence, invalid input) hold zero.
type SensitivityResults struct {
	XValues     []float64   `json:"x_values"` // discount rate, ascending
	YValues     []float64   `json:"y_values"` // terminal growth, descending
	Values      [][]float64 `json:"values"`
	CenterValue float64     `json:"center_value"`
	// SensitivityScore is (max - min) / mean over the computable cells,
	// a single dispersion figure for the whole matrix.
	SensitivityScore float64 `json:"sensitivity_score"`
}

// ValuationResult is the final output of one pipeline run. Built once
// at the end of the run and never mutated; enrichment (Monte Carlo
// stats, audit report) happens through the With* copy constructors.
type ValuationResult struct {
	Ticker       string      `json:"ticker"`
	Currency     string      `json:"currency,omitempty"`
	Strategy     string      `json:"strategy"`
	Source       InputSource `json:"input_source"`

	IntrinsicValue float64 `json:"intrinsic_value"` // per share
	MarketPrice    float64 `json:"market_price"`
	UpsidePct      float64 `json:"upside_pct"`

	// Rate actually used for discounting
	RateKind     RateKind `json:"rate_kind"`
	DiscountRate float64  `json:"discount_rate,omitempty"`

	// DCF internals (empty for static models)
	ProjectedFlows          []float64 `json:"projected_flows,omitempty"`
	DiscountFactors         []float64 `json:"discount_factors,omitempty"`
	SumDiscountedFlows      float64   `json:"sum_discounted_flows,omitempty"`
	TerminalValue           float64   `json:"terminal_value,omitempty"`
	DiscountedTerminalValue float64   `json:"discounted_terminal_value,omitempty"`
	EnterpriseValue         float64   `json:"enterprise_value,omitempty"`
	EquityValue             float64   `json:"equity_value,omitempty"`

	// Observed metrics the audit engine consumes; no new math there.
	TerminalValueWeight float64 `json:"terminal_value_weight,omitempty"`
	ICRObserved         float64 `json:"icr_observed,omitempty"`
	LeverageObserved    float64 `json:"leverage_observed,omitempty"`
	PayoutObserved      float64 `json:"payout_observed,omitempty"`
	CapexToDA           float64 `json:"capex_to_da,omitempty"`

	Steps    []CalculationStep `json:"steps"`
	Warnings []string          `json:"warnings,omitempty"`

	MonteCarlo  *MonteCarloStats    `json:"monte_carlo,omitempty"`
	Scenarios   *ScenarioResults    `json:"scenarios,omitempty"`
	Sensitivity *SensitivityResults `json:"sensitivity,omitempty"`
	Audit       *AuditReport        `json:"audit,omitempty"`
}

// Upside computes the percentage gap between intrinsic value and
// market price. Zero price yields zero rather than Inf.
func Upside(intrinsic, price float64) float64 {
	if price == 0 {
		return 0
	}
	return (intrinsic - price) / price * 100
}

// WithMonteCarlo returns a copy carrying the simulation stats, with
// the intrinsic value recentered on the median draw.
func (r ValuationResult) WithMonteCarlo(stats MonteCarloStats) ValuationResult {
	out := r
	out.MonteCarlo = &stats
	out.IntrinsicValue = stats.P50
	out.UpsidePct = Upside(stats.P50, r.MarketPrice)
	if stats.Unstable {
		out.Warnings = append(append([]string(nil), r.Warnings...),
			"monte carlo: fewer than 50% of draws produced a valid value; parameterization is unstable")
	}
	return out
}

// WithScenarios returns a copy carrying the scenario analysis. The
// central intrinsic value is not recentered; the expected value is a
// companion figure.
func (r ValuationResult) WithScenarios(sc ScenarioResults) ValuationResult {
	out := r
	out.Scenarios = &sc
	return out
}

// WithSensitivity returns a copy carrying the stress matrix.
func (r ValuationResult) WithSensitivity(sens SensitivityResults) ValuationResult {
	out := r
	out.Sensitivity = &sens
	return out
}

// WithAudit returns a copy carrying the audit report.
func (r ValuationResult) WithAudit(report AuditReport) ValuationResult {
	out := r
	out.Audit = &report
	return out
}
