package models

import "fmt"

// Variable is one named hypothesis feeding a calculation step, tagged
// with where its value came from so the trace is self-explanatory.
type Variable struct {
	Name   string     `json:"name"`
	Value  float64    `json:"value"`
	Unit   string     `json:"unit,omitempty"`
	Source Provenance `json:"source"`
}

// CalculationStep is one ordered glass-box trace entry. Steps are
// append-only; once recorded they are never edited.
type CalculationStep struct {
	StepID         int        `json:"step_id"`
	Key            string     `json:"step_key"`
	Label          string     `json:"label"`
	Formula        string     `json:"theoretical_formula,omitempty"`
	Hypotheses     []Variable `json:"hypotheses,omitempty"`
	Substitution   string     `json:"numerical_substitution"`
	Result         float64    `json:"result"`
	Unit           string     `json:"unit,omitempty"`
	Interpretation string     `json:"interpretation,omitempty"`
}

// Trace accumulates calculation steps across the pipeline. It is
// passed by pointer through the stages and is append-only.
type Trace struct {
	steps  []CalculationStep
	nextID int
}

// NewTrace returns an empty trace.
func NewTrace() *Trace {
	return &Trace{nextID: 1}
}

// Add appends a step, assigning the next ordinal ID. The key must be
// a member of the fixed step registry; an unregistered key is a
// programming defect, not a runtime condition, so it panics.
func (t *Trace) Add(step CalculationStep) {
	if !IsRegisteredStepKey(step.Key) {
		panic(fmt.Sprintf("trace: unregistered step key %q", step.Key))
	}
	step.StepID = t.nextID
	t.nextID++
	t.steps = append(t.steps, step)
}

// Steps returns a copy of the recorded steps in order.
func (t *Trace) Steps() []CalculationStep {
	out := make([]CalculationStep, len(t.steps))
	copy(out, t.steps)
	return out
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int { return len(t.steps) }

// Last returns the most recent step, or false when the trace is empty.
func (t *Trace) Last() (CalculationStep, bool) {
	if len(t.steps) == 0 {
		return CalculationStep{}, false
	}
	return t.steps[len(t.steps)-1], true
}
