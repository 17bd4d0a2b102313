package models

// AuditPillar names one of the four uncertainty dimensions.
type AuditPillar string

const (
	PillarDataConfidence AuditPillar = "DATA_CONFIDENCE"
	PillarAssumptionRisk AuditPillar = "ASSUMPTION_RISK"
	PillarModelRisk      AuditPillar = "MODEL_RISK"
	PillarMethodFit      AuditPillar = "METHOD_FIT"
)

// AuditSeverity grades a single check outcome.
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "INFO"
	SeverityWarning  AuditSeverity = "WARNING"
	SeverityCritical AuditSeverity = "CRITICAL"
)

// AuditCheck is one pass/fail invariant evaluation with its evidence.
type AuditCheck struct {
	Pillar   AuditPillar   `json:"pillar"`
	Severity AuditSeverity `json:"severity"`
	Message  string        `json:"message"`
	Penalty  float64       `json:"penalty"` // signed delta applied to the pillar score
}

// PillarScore is one pillar's contribution to the global score.
type PillarScore struct {
	Pillar       AuditPillar `json:"pillar"`
	Score        float64     `json:"score"`  // 0..100 before weighting
	Weight       float64     `json:"weight"` // mode-dependent
	Contribution float64     `json:"contribution"`
	Diagnostics  []string    `json:"diagnostics,omitempty"`
}

// AuditReport is the deterministic reliability assessment of one
// valuation result. The audit engine never raises; thin inputs show
// up as a lower score, not an error.
type AuditReport struct {
	GlobalScore     float64       `json:"global_score"` // clamped [0,100]
	Rating          string        `json:"rating"`
	Mode            InputSource   `json:"mode"`
	Pillars         []PillarScore `json:"pillars"`
	Checks          []AuditCheck  `json:"checks"`
	CriticalWarning bool          `json:"critical_warning"`
}
