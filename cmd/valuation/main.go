// Command valuation runs one valuation from a JSON request on stdin
// (or a file) and prints the full traced result as JSON on stdout.
//
//	valuation -strategy fcff_standard -audit < request.json
package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"glassbox_valuation/pkg/core/audit"
	"glassbox_valuation/pkg/core/montecarlo"
	"glassbox_valuation/pkg/core/scenario"
	"glassbox_valuation/pkg/core/sensitivity"
	"glassbox_valuation/pkg/core/sotp"
	"glassbox_valuation/pkg/core/strategy"
	"glassbox_valuation/pkg/models"
)

// request is the CLI input: a snapshot plus a parameter bundle, same
// shape the HTTP API accepts.
type request struct {
	Snapshot   models.CompanySnapshot `json:"snapshot"`
	Parameters models.Parameters      `json:"parameters"`
}

func main() {
	var (
		strategyName = flag.String("strategy", strategy.FCFFStandard, "valuation strategy (or 'sotp')")
		inputPath    = flag.String("input", "-", "request file, '-' for stdin")
		withAudit    = flag.Bool("audit", false, "attach the reliability audit report")
		list         = flag.Bool("list", false, "list registered strategies and exit")
	)
	flag.Parse()
	godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if *list {
		json.NewEncoder(os.Stdout).Encode(strategy.Names())
		return
	}

	req, err := readRequest(*inputPath)
	if err != nil {
		logger.Fatal("cannot read request", zap.Error(err))
	}
	params, err := models.NewParameters(req.Parameters)
	if err != nil {
		logger.Fatal("invalid parameters", zap.Error(err))
	}

	result, err := run(*strategyName, &req.Snapshot, params)
	if err != nil {
		logger.Fatal("valuation failed",
			zap.String("strategy", *strategyName),
			zap.String("ticker", req.Snapshot.Ticker),
			zap.Error(err))
	}

	if *withAudit {
		result = result.WithAudit(audit.Score(&req.Snapshot, params, result))
	}

	logger.Info("valuation complete",
		zap.String("ticker", req.Snapshot.Ticker),
		zap.Float64("intrinsic_value", result.IntrinsicValue),
		zap.Float64("upside_pct", result.UpsidePct),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(result)
}

func run(name string, snap *models.CompanySnapshot, params *models.Parameters) (models.ValuationResult, error) {
	if name == "sotp" {
		return sotp.Valuate(snap, params)
	}

	strat, err := strategy.Get(name)
	if err != nil {
		return models.ValuationResult{}, err
	}
	result, err := strat.Execute(snap, params)
	if err != nil {
		return models.ValuationResult{}, err
	}
	if params.MonteCarlo.Enabled {
		result, err = montecarlo.Enrich(result, snap, params, strat.Execute)
		if err != nil {
			return models.ValuationResult{}, err
		}
	}
	if sc, warnings := scenario.Run(snap, params, strat.Execute); sc != nil {
		result = result.WithScenarios(*sc)
		result.Warnings = append(result.Warnings, warnings...)
	}
	if sens := sensitivity.Run(result, snap, params, strat.Execute); sens != nil {
		result = result.WithSensitivity(*sens)
	}
	return result, nil
}

func readRequest(path string) (request, error) {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return request{}, err
		}
		defer f.Close()
		in = f
	}
	var req request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return request{}, err
	}
	return req, nil
}
