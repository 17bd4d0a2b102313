package models

// Step keys are the stable identifiers the presentation layer uses to
// look up localized labels and formula markup. The set is closed and
// versioned: emitting a key outside this registry is a defect.
const (
	StepKeCalc              = "KE_CALC"
	StepWACCCalc            = "WACC_CALC"
	StepBetaHamada          = "BETA_HAMADA_ADJUSTMENT"
	StepFCFBase             = "FCF_BASE"
	StepFCFNormSelection    = "FCF_NORM_SELECTION"
	StepFCFStabilityCheck   = "FCF_STABILITY_CHECK"
	StepFCFEBaseSelection   = "FCFE_BASE_SELECTION"
	StepDDMBaseSelection    = "DDM_BASE_SELECTION"
	StepFCFProjection       = "FCF_PROJ"
	StepTVGordon            = "TV_GORDON"
	StepTVMultiple          = "TV_MULTIPLE"
	StepNPVCalc             = "NPV_CALC"
	StepEquityBridge        = "EQUITY_BRIDGE"
	StepEquityDirect        = "EQUITY_DIRECT"
	StepValuePerShare       = "VALUE_PER_SHARE"
	StepSBCDilution         = "SBC_DILUTION_ADJUSTMENT"
	StepRIMBase             = "RIM_BASE"
	StepRIMProjection       = "RIM_PROJECTION"
	StepRIMTerminal         = "RIM_TERMINAL"
	StepGrahamFormula       = "GRAHAM_FORMULA"
	StepRelativePE          = "RELATIVE_PE"
	StepRelativeEBITDA      = "RELATIVE_EBITDA"
	StepRelativeRevenue     = "RELATIVE_REVENUE"
	StepTriangulation       = "TRIANGULATION"
	StepMCConfig            = "MC_CONFIG"
	StepMCSampling          = "MC_SAMPLING"
	StepMCFiltering         = "MC_FILTERING"
	StepMCMedian            = "MC_MEDIAN"
	StepSOTPEVConsolidation = "SOTP_EV_CONSOLIDATION"
)

var registeredStepKeys = map[string]struct{}{
	StepKeCalc:              {},
	StepWACCCalc:            {},
	StepBetaHamada:          {},
	StepFCFBase:             {},
	StepFCFNormSelection:    {},
	StepFCFStabilityCheck:   {},
	StepFCFEBaseSelection:   {},
	StepDDMBaseSelection:    {},
	StepFCFProjection:       {},
	StepTVGordon:            {},
	StepTVMultiple:          {},
	StepNPVCalc:             {},
	StepEquityBridge:        {},
	StepEquityDirect:        {},
	StepValuePerShare:       {},
	StepSBCDilution:         {},
	StepRIMBase:             {},
	StepRIMProjection:       {},
	StepRIMTerminal:         {},
	StepGrahamFormula:       {},
	StepRelativePE:          {},
	StepRelativeEBITDA:      {},
	StepRelativeRevenue:     {},
	StepTriangulation:       {},
	StepMCConfig:            {},
	StepMCSampling:          {},
	StepMCFiltering:         {},
	StepMCMedian:            {},
	StepSOTPEVConsolidation: {},
}

// IsRegisteredStepKey reports whether key belongs to the fixed trace
// registry.
func IsRegisteredStepKey(key string) bool {
	_, ok := registeredStepKeys[key]
	return ok
}
