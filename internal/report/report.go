// Package report writes solve, scenario and sensitivity results as CSV, JSON,
// XLSX and terminal text.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/tomorrownow/PyFCM/internal/sensitivity"
)

// Kinds of envelope.
const (
	KindSteady      = "steady"
	KindScenario    = "scenario"
	KindSensitivity = "sensitivity"
)

// ConceptValue is one named activation.
type ConceptValue struct {
	Concept string  `json:"concept"`
	Value   float64 `json:"value"`
}

// Envelope is the JSON document written for every run.
type Envelope struct {
	RunID     string                `json:"run_id"`
	CreatedAt time.Time             `json:"created_at"`
	Kind      string                `json:"kind"`
	Source    string                `json:"source,omitempty"`
	Scenario  string                `json:"scenario,omitempty"`
	Rule      fcm.InferenceRule     `json:"rule"`
	Squash    fcm.SquashingFunction `json:"squash"`
	Lambda    float64               `json:"lambda"`
	Noise     float64               `json:"noise_threshold"`

	Clamp            map[string]float64  `json:"clamp,omitempty"`
	Activation       []ConceptValue      `json:"activation,omitempty"`
	Iterations       int                 `json:"iterations,omitempty"`
	Changes          []fcm.ConceptChange `json:"changes,omitempty"`
	PrincipleChanges map[string]float64  `json:"principle_changes,omitempty"`
	Sensitivity      *sensitivity.Report `json:"sensitivity,omitempty"`
}

// NewEnvelope stamps a fresh run ID and creation time.
func NewEnvelope(kind string, cfg fcm.Config) Envelope {
	return Envelope{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Kind:      kind,
		Rule:      cfg.Rule,
		Squash:    cfg.Squash,
		Lambda:    cfg.Lambda,
	}
}

// WithSteady fills the envelope from a steady-state solution.
func (e Envelope) WithSteady(concepts []string, sol fcm.Solution) Envelope {
	e.Activation = Named(concepts, sol.Activation)
	e.Iterations = sol.Iterations
	return e
}

// WithScenario fills the envelope from a scenario result.
func (e Envelope) WithScenario(clamp map[string]float64, res *fcm.ScenarioResult) Envelope {
	e.Scenario = res.Name
	e.Clamp = clamp
	e.Changes = res.OrderedChanges()
	e.PrincipleChanges = res.PrincipleChanges
	e.Activation = Named(res.Concepts, res.Scenario)
	return e
}

// Named pairs concept names with values by position.
func Named(concepts []string, values []float64) []ConceptValue {
	out := make([]ConceptValue, len(values))
	for i, v := range values {
		name := ""
		if i < len(concepts) {
			name = concepts[i]
		}
		out[i] = ConceptValue{Concept: name, Value: v}
	}
	return out
}

// WriteJSON writes env as indented JSON.
func WriteJSON(w io.Writer, env Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}
