// Package mcp provides an MCP (Model Context Protocol) server for fcm.
package mcp

// SteadyStateInput defines the input for the fcm_steady_state tool.
type SteadyStateInput struct {
	Matrix        string   `json:"matrix" jsonschema:"Path to the weight matrix (.csv or .xlsx), relative to the project root"`
	ConceptMap    string   `json:"concept_map,omitempty" jsonschema:"Optional YAML file renaming matrix labels to display names"`
	Rule          string   `json:"rule,omitempty" jsonschema:"Inference rule: k, mk or r (default from config)"`
	Squash        string   `json:"squash,omitempty" jsonschema:"Squashing function: sig, tanh, biv or triv (default from config)"`
	Lambda        *float64 `json:"lambda,omitempty" jsonschema:"Squashing steepness in [0, 10]"`
	Noise         *float64 `json:"noise,omitempty" jsonschema:"Zero every weight with |w| at or below this threshold before solving"`
	MaxIterations int      `json:"max_iterations,omitempty" jsonschema:"Iteration cap for each solve"`
}

// SteadyStateOutput defines the output for the fcm_steady_state tool.
type SteadyStateOutput struct {
	RunID      string         `json:"run_id" jsonschema:"Identifier of this run in the run log"`
	Rule       string         `json:"rule" jsonschema:"Inference rule used"`
	Squash     string         `json:"squash" jsonschema:"Squashing function used"`
	Activation []ConceptValue `json:"activation" jsonschema:"Steady-state activation per concept, in matrix order"`
	Iterations int            `json:"iterations" jsonschema:"Iterations until convergence"`
}

// ScenarioInput defines the input for the fcm_scenario tool.
type ScenarioInput struct {
	Matrix        string             `json:"matrix" jsonschema:"Path to the weight matrix (.csv or .xlsx), relative to the project root"`
	ConceptMap    string             `json:"concept_map,omitempty" jsonschema:"Optional YAML file renaming matrix labels to display names"`
	Name          string             `json:"name,omitempty" jsonschema:"Scenario label used in reports"`
	Clamp         map[string]float64 `json:"clamp" jsonschema:"Concepts to hold fixed, mapped to their clamp values"`
	Principles    []string           `json:"principles,omitempty" jsonschema:"Concepts whose changes are reported separately"`
	Rule          string             `json:"rule,omitempty" jsonschema:"Inference rule: k, mk or r (default from config)"`
	Squash        string             `json:"squash,omitempty" jsonschema:"Squashing function: sig, tanh, biv or triv (default from config)"`
	Lambda        *float64           `json:"lambda,omitempty" jsonschema:"Squashing steepness in [0, 10]"`
	Noise         *float64           `json:"noise,omitempty" jsonschema:"Zero every weight with |w| at or below this threshold before solving"`
	MaxIterations int                `json:"max_iterations,omitempty" jsonschema:"Iteration cap for each solve"`
}

// ScenarioOutput defines the output for the fcm_scenario tool.
type ScenarioOutput struct {
	RunID              string             `json:"run_id" jsonschema:"Identifier of this run in the run log"`
	Name               string             `json:"name,omitempty" jsonschema:"Scenario label"`
	Changes            []ConceptChange    `json:"changes" jsonschema:"Scenario minus baseline activation per concept"`
	PrincipleChanges   map[string]float64 `json:"principle_changes,omitempty" jsonschema:"Changes restricted to the requested principles"`
	BaselineIterations int                `json:"baseline_iterations" jsonschema:"Iterations of the free-running solve"`
	ScenarioIterations int                `json:"scenario_iterations" jsonschema:"Iterations of the clamped solve"`
}

// SensitivityInput defines the input for the fcm_sensitivity tool.
type SensitivityInput struct {
	Matrix        string    `json:"matrix" jsonschema:"Path to the weight matrix (.csv or .xlsx), relative to the project root"`
	ConceptMap    string    `json:"concept_map,omitempty" jsonschema:"Optional YAML file renaming matrix labels to display names"`
	Concepts      []string  `json:"concepts" jsonschema:"Concepts to sweep, one at a time"`
	Principles    []string  `json:"principles,omitempty" jsonschema:"Concepts whose response is recorded (default: all)"`
	Levels        []float64 `json:"levels,omitempty" jsonschema:"Clamp levels to sweep (default: 21 evenly spaced values in [0, 1])"`
	Rule          string    `json:"rule,omitempty" jsonschema:"Inference rule: k, mk or r (default from config)"`
	Squash        string    `json:"squash,omitempty" jsonschema:"Squashing function: sig, tanh, biv or triv (default from config)"`
	Lambda        *float64  `json:"lambda,omitempty" jsonschema:"Squashing steepness in [0, 10]"`
	Noise         *float64  `json:"noise,omitempty" jsonschema:"Zero every weight with |w| at or below this threshold before solving"`
	MaxIterations int       `json:"max_iterations,omitempty" jsonschema:"Iteration cap for each solve"`
}

// SensitivityOutput defines the output for the fcm_sensitivity tool.
type SensitivityOutput struct {
	RunID    string          `json:"run_id" jsonschema:"Identifier of this run in the run log"`
	Levels   []float64       `json:"levels" jsonschema:"Clamp levels swept"`
	Baseline []ConceptValue  `json:"baseline" jsonschema:"Free-running steady state shared by every level"`
	Series   []SeriesSummary `json:"series" jsonschema:"One delta curve per swept concept and principle"`
}

// SeriesSummary is one response curve of a sweep.
type SeriesSummary struct {
	Concept   string    `json:"concept"`
	Principle string    `json:"principle"`
	Deltas    []float64 `json:"deltas"`
}

// GraphInput defines the input for the fcm_graph tool.
type GraphInput struct {
	Matrix     string             `json:"matrix" jsonschema:"Path to the weight matrix (.csv or .xlsx), relative to the project root"`
	ConceptMap string             `json:"concept_map,omitempty" jsonschema:"Optional YAML file renaming matrix labels to display names"`
	Format     string             `json:"format,omitempty" jsonschema:"Output format: dot or json (default: json)"`
	Clamp      map[string]float64 `json:"clamp,omitempty" jsonschema:"Optional scenario clamp used to color nodes by their change"`
}

// GraphOutput defines the output for the fcm_graph tool.
type GraphOutput struct {
	Format    string      `json:"format" jsonschema:"Output format used"`
	Graph     interface{} `json:"graph" jsonschema:"DOT source or JSON graph"`
	NodeCount int         `json:"node_count" jsonschema:"Number of concepts"`
	EdgeCount int         `json:"edge_count" jsonschema:"Number of non-zero weights"`
}

// ConceptValue is an activation keyed by concept.
type ConceptValue struct {
	Concept string  `json:"concept"`
	Value   float64 `json:"value"`
}

// ConceptChange is a delta keyed by concept.
type ConceptChange struct {
	Concept string  `json:"concept"`
	Delta   float64 `json:"delta"`
}
