// Package montecarlo adds a stochastic layer on top of a deterministic
// valuation run. Hypotheses (beta, explicit growth, terminal growth)
// are drawn from seeded normal distributions, the full pipeline is
// re-executed per draw, and the distribution of outcomes replaces the
// single point estimate.
//
// Sampling is split from evaluation: all draws are generated first from
// one seeded source, so results are reproducible regardless of how many
// workers evaluate them.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"glassbox_valuation/pkg/models"
)

// Runner executes one deterministic valuation. The engine calls it once
// per draw with perturbed parameters.
type Runner func(snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error)

// draw is one sampled hypothesis triple.
type draw struct {
	beta     float64
	growth   float64
	terminal float64
}

// config is the resolved sampling configuration for one simulation.
type config struct {
	iterations int
	seed       uint64

	beta0, betaSigma float64
	g0, gSigma       float64
	gt0, gtSigma     float64
	rho              float64
}

// Enrich runs the simulation for a result already produced by the
// deterministic pipeline and returns a copy carrying the distribution
// stats, with the intrinsic value recentered on the median draw and the
// simulation steps appended to the trace.
func Enrich(base models.ValuationResult, snap *models.CompanySnapshot, params *models.Parameters, run Runner) (models.ValuationResult, error) {
	cfg := resolveConfig(snap, params)
	draws := sample(cfg)

	values, err := evaluate(draws, snap, params, run)
	if err != nil {
		return models.ValuationResult{}, err
	}

	valid := filter(values)
	if len(valid) == 0 {
		return models.ValuationResult{}, fmt.Errorf(
			"%w: no monte carlo draw produced a valid value over %d iterations", models.ErrInvalidInput, cfg.iterations)
	}
	stats := summarize(cfg.iterations, valid)

	out := base.WithMonteCarlo(stats)
	out.Steps = appendSteps(out.Steps, cfg, stats)
	return out, nil
}

func resolveConfig(snap *models.CompanySnapshot, params *models.Parameters) config {
	mc := params.MonteCarlo

	// Same cascade the rate resolver applies: manual override first,
	// then whatever the snapshot resolves to.
	var beta0 float64
	if params.Rates.Beta != nil {
		beta0 = *params.Rates.Beta
	} else {
		beta0, _ = snap.ResolvedBeta()
	}

	betaVol, _ := models.Float(mc.BetaVolatility, models.DefaultBetaVolatility)
	gSigma, _ := models.Float(mc.GrowthVolatility, models.DefaultGrowthVolatility)
	gtSigma, _ := models.Float(mc.TerminalVolatility, models.DefaultTerminalVolatility)
	rho, _ := models.Float(mc.Correlation, models.DefaultMCCorrelation)

	g0, _ := models.Float(params.Growth.FCFGrowthRate, models.DefaultFCFGrowth)
	gt0, _ := models.Float(params.Growth.PerpetualGrowth, models.DefaultPerpetualGrowth)

	seed := uint64(models.DefaultMCSeed)
	if mc.Seed != nil {
		seed = *mc.Seed
	}

	return config{
		iterations: params.IterationsOrDefault(),
		seed:       seed,
		beta0:      beta0,
		betaSigma:  betaVol * math.Abs(beta0),
		g0:         g0,
		gSigma:     gSigma,
		gt0:        gt0,
		gtSigma:    gtSigma,
		rho:        rho,
	}
}

// sample generates all hypothesis draws from one seeded source. Beta
// and explicit growth are correlated through a Cholesky mix; terminal
// growth is drawn independently and clipped to the Gordon-safe band.
func sample(cfg config) []draw {
	src := rand.NewSource(cfg.seed)
	std := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	mix := math.Sqrt(1 - cfg.rho*cfg.rho)
	draws := make([]draw, cfg.iterations)
	for i := range draws {
		zb := std.Rand()
		zg := std.Rand()
		zt := std.Rand()

		gt := cfg.gt0 + cfg.gtSigma*zt
		gt = math.Max(0, math.Min(models.MaxPerpetualGrowth, gt))

		draws[i] = draw{
			beta:     cfg.beta0 + cfg.betaSigma*zb,
			growth:   cfg.g0 + cfg.gSigma*(cfg.rho*zb+mix*zg),
			terminal: gt,
		}
	}
	return draws
}

// evaluate re-runs the pipeline for every draw on a bounded worker
// pool. Draws that violate a model invariant are recorded as NaN and
// filtered out later; any other failure aborts the simulation.
func evaluate(draws []draw, snap *models.CompanySnapshot, params *models.Parameters, run Runner) ([]float64, error) {
	values := make([]float64, len(draws))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range draws {
		i := i
		g.Go(func() error {
			res, err := run(snap.Clone(), perturb(params, draws[i]))
			if err != nil {
				if discardable(err) {
					values[i] = math.NaN()
					return nil
				}
				return err
			}
			values[i] = res.IntrinsicValue
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

// perturb copies the parameter bundle with the drawn hypotheses. The
// stochastic layer is disabled on the copy so draws stay deterministic.
func perturb(params *models.Parameters, d draw) *models.Parameters {
	p := *params
	p.MonteCarlo.Enabled = false
	beta, growth, terminal := d.beta, d.growth, d.terminal
	p.Rates.Beta = &beta
	p.Growth.FCFGrowthRate = &growth
	p.Growth.PerpetualGrowth = &terminal
	return &p
}

func discardable(err error) bool {
	return errors.Is(err, models.ErrModelDivergence) ||
		errors.Is(err, models.ErrMissingData) ||
		errors.Is(err, models.ErrInvalidInput)
}

// filter keeps finite values inside the plausibility band (0, ceiling).
func filter(values []float64) []float64 {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v <= 0 || v >= models.MCValueCeiling {
			continue
		}
		valid = append(valid, v)
	}
	return valid
}

func summarize(iterations int, valid []float64) models.MonteCarloStats {
	sorted := append([]float64(nil), valid...)
	sort.Float64s(sorted)

	ratio := float64(len(valid)) / float64(iterations)
	return models.MonteCarloStats{
		Iterations: iterations,
		Valid:      len(valid),
		ValidRatio: ratio,
		Mean:       stat.Mean(sorted, nil),
		StdDev:     stat.StdDev(sorted, nil),
		P5:         stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P10:        stat.Quantile(0.10, stat.Empirical, sorted, nil),
		P50:        stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P90:        stat.Quantile(0.90, stat.Empirical, sorted, nil),
		P95:        stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Unstable:   ratio < models.MCStabilityFloor,
	}
}

// appendSteps extends the deterministic trace with the simulation
// steps, continuing the step numbering.
func appendSteps(steps []models.CalculationStep, cfg config, stats models.MonteCarloStats) []models.CalculationStep {
	next := len(steps) + 1
	mcSteps := []models.CalculationStep{
		{
			Key:     models.StepMCConfig,
			Label:   "Simulation configuration",
			Formula: "N draws, seeded",
			Hypotheses: []models.Variable{
				{Name: "iterations", Value: float64(cfg.iterations), Source: models.SourceSystem},
				{Name: "seed", Value: float64(cfg.seed), Source: models.SourceSystem},
				{Name: "correlation", Value: cfg.rho, Source: models.SourceSystem},
			},
			Substitution:   fmt.Sprintf("%d draws, seed %d", cfg.iterations, cfg.seed),
			Result:         float64(cfg.iterations),
			Interpretation: "Fixed seed keeps the distribution reproducible across runs.",
		},
		{
			Key:     models.StepMCSampling,
			Label:   "Hypothesis sampling",
			Formula: "beta ~ N(b0, s_b), g ~ N(g0, s_g) corr rho, g_inf ~ N clipped [0, max]",
			Hypotheses: []models.Variable{
				{Name: "beta_center", Value: cfg.beta0, Source: models.SourceSystem},
				{Name: "beta_sigma", Value: cfg.betaSigma, Source: models.SourceSystem},
				{Name: "growth_center", Value: cfg.g0, Source: models.SourceSystem},
				{Name: "growth_sigma", Value: cfg.gSigma, Source: models.SourceSystem},
				{Name: "terminal_sigma", Value: cfg.gtSigma, Source: models.SourceSystem},
			},
			Substitution:   fmt.Sprintf("beta N(%.3f, %.3f), g N(%.4f, %.4f), rho %.2f", cfg.beta0, cfg.betaSigma, cfg.g0, cfg.gSigma, cfg.rho),
			Result:         cfg.beta0,
			Interpretation: "Negative correlation couples high-risk draws with low-growth draws.",
		},
		{
			Key:     models.StepMCFiltering,
			Label:   "Draw filtering",
			Formula: "keep 0 < IV < ceiling, drop diverged draws",
			Hypotheses: []models.Variable{
				{Name: "valid_draws", Value: float64(stats.Valid), Source: models.SourceSystem},
				{Name: "valid_ratio", Value: stats.ValidRatio, Source: models.SourceSystem},
			},
			Substitution:   fmt.Sprintf("%d / %d draws valid (%.1f%%)", stats.Valid, stats.Iterations, stats.ValidRatio*100),
			Result:         float64(stats.Valid),
			Interpretation: "Diverged or implausible draws carry no information and are discarded.",
		},
		{
			Key:     models.StepMCMedian,
			Label:   "Median recentering",
			Formula: "IV = P50(valid draws)",
			Hypotheses: []models.Variable{
				{Name: "p5", Value: stats.P5, Source: models.SourceSystem},
				{Name: "p95", Value: stats.P95, Source: models.SourceSystem},
			},
			Substitution:   fmt.Sprintf("P50 = %.2f, band [%.2f, %.2f]", stats.P50, stats.P5, stats.P95),
			Result:         stats.P50,
			Interpretation: "The median resists the right skew a mean would inherit from Gordon.",
		},
	}
	out := append(append([]models.CalculationStep(nil), steps...), mcSteps...)
	for i := range mcSteps {
		out[len(steps)+i].StepID = next + i
	}
	return out
}
