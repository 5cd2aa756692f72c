package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/tomorrownow/PyFCM/internal/loader"
	"github.com/tomorrownow/PyFCM/internal/pathutil"
	"github.com/tomorrownow/PyFCM/internal/ratelimit"
	"github.com/tomorrownow/PyFCM/internal/sensitivity"
	"github.com/tomorrownow/PyFCM/internal/visualization"
)

const defaultsURI = "fcm://engine/defaults"

// registerTools registers all fcm MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "fcm_steady_state",
		Description: "Solve a fuzzy cognitive map from the all-ones vector to its free-running fixed point",
	}, s.handleSteadyState)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "fcm_scenario",
		Description: "Clamp concepts to fixed values and report how every other concept's steady state changes",
	}, s.handleScenario)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "fcm_sensitivity",
		Description: "Sweep each named concept across clamp levels and record the response curves of the principles",
	}, s.handleSensitivity)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "fcm_graph",
		Description: "Render a map as Graphviz DOT or JSON, optionally colored by a scenario's changes",
	}, s.handleGraph)

	return nil
}

// registerResources registers MCP resources.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         defaultsURI,
		Name:        "fcm-engine-defaults",
		Description: "Engine settings applied when a tool call leaves them unset.",
		MIMEType:    "application/json",
	}, s.handleDefaultsResource)

	return nil
}

// handleDefaultsResource returns the server's default settings as JSON.
func (s *Server) handleDefaultsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	data, err := json.MarshalIndent(map[string]interface{}{
		"inference": s.defaults.Inference,
		"noise":     s.defaults.Noise,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      defaultsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

// engineOverrides are the per-call settings shared by the solving tools.
type engineOverrides struct {
	rule          string
	squash        string
	lambda        *float64
	noise         *float64
	maxIterations int
}

// engine builds an engine from the server defaults with o applied, and
// returns the noise threshold to use.
func (s *Server) engine(o engineOverrides) (*fcm.Engine, float64, error) {
	cfg, err := s.defaults.EngineConfig()
	if err != nil {
		return nil, 0, err
	}
	if o.rule != "" {
		if cfg.Rule, err = fcm.ParseInferenceRule(o.rule); err != nil {
			return nil, 0, err
		}
	}
	if o.squash != "" {
		if cfg.Squash, err = fcm.ParseSquashingFunction(o.squash); err != nil {
			return nil, 0, err
		}
	}
	if o.lambda != nil {
		cfg.Lambda = *o.lambda
	}
	if o.maxIterations != 0 {
		cfg.MaxIterations = o.maxIterations
	}

	noise := s.defaults.Noise.Threshold
	if o.noise != nil {
		noise = *o.noise
	}
	if noise < 0 {
		return nil, 0, fmt.Errorf("noise threshold must be >= 0, got %v: %w", noise, fcm.ErrInvalidArgument)
	}

	e, err := fcm.NewEngine(cfg, fcm.WithObserver(s.observer))
	if err != nil {
		return nil, 0, err
	}
	return e, noise, nil
}

// loadMap resolves matrix and conceptMap inside the allowed data
// directories and loads the map.
func (s *Server) loadMap(matrix, conceptMap string) (*fcm.Map, error) {
	if matrix == "" {
		return nil, fmt.Errorf("'matrix' parameter is required")
	}
	path, err := pathutil.Resolve(matrix, s.root, s.dataDirs)
	if err != nil {
		return nil, fmt.Errorf("invalid matrix path: %w", err)
	}

	var opts []loader.Option
	if conceptMap != "" {
		cmPath, err := pathutil.Resolve(conceptMap, s.root, s.dataDirs)
		if err != nil {
			return nil, fmt.Errorf("invalid concept map path: %w", err)
		}
		names, err := loader.LoadConceptMap(cmPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, loader.WithConceptMap(names))
	}

	return loader.Load(path, opts...)
}

// logCall appends one mcp_call event to the run log.
func (s *Server) logCall(tool, runID string, start time.Time, err error, params map[string]interface{}) {
	event := map[string]any{
		"event":       "mcp_call",
		"tool":        tool,
		"run_id":      runID,
		"duration_ms": time.Since(start).Milliseconds(),
		"status":      "success",
		"params":      params,
	}
	if err != nil {
		event["status"] = "error"
		event["error"] = err.Error()
	}
	s.runs.Log(event)
}

func (s *Server) handleSteadyState(ctx context.Context, req *sdk.CallToolRequest, args SteadyStateInput) (_ *sdk.CallToolResult, _ SteadyStateOutput, retErr error) {
	start := time.Now()
	runID := uuid.NewString()
	defer func() {
		s.logCall("fcm_steady_state", runID, start, retErr, map[string]interface{}{
			"matrix": pathutil.RedactPath(args.Matrix),
			"rule":   args.Rule,
			"squash": args.Squash,
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "fcm_steady_state"); err != nil {
		return nil, SteadyStateOutput{}, err
	}

	e, noise, err := s.engine(engineOverrides{args.Rule, args.Squash, args.Lambda, args.Noise, args.MaxIterations})
	if err != nil {
		return nil, SteadyStateOutput{}, err
	}
	m, err := s.loadMap(args.Matrix, args.ConceptMap)
	if err != nil {
		return nil, SteadyStateOutput{}, err
	}
	if noise != 0 {
		m = m.WithNoiseReduced(noise)
	}

	sol, err := e.SteadyState(m)
	if err != nil {
		return nil, SteadyStateOutput{}, fmt.Errorf("steady state: %w", err)
	}

	return nil, SteadyStateOutput{
		RunID:      runID,
		Rule:       e.Config().Rule.String(),
		Squash:     e.Config().Squash.String(),
		Activation: conceptValues(m.Concepts(), sol.Activation),
		Iterations: sol.Iterations,
	}, nil
}

func (s *Server) handleScenario(ctx context.Context, req *sdk.CallToolRequest, args ScenarioInput) (_ *sdk.CallToolResult, _ ScenarioOutput, retErr error) {
	start := time.Now()
	runID := uuid.NewString()
	defer func() {
		s.logCall("fcm_scenario", runID, start, retErr, map[string]interface{}{
			"matrix":     pathutil.RedactPath(args.Matrix),
			"name":       args.Name,
			"clamp":      args.Clamp,
			"principles": args.Principles,
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "fcm_scenario"); err != nil {
		return nil, ScenarioOutput{}, err
	}

	e, noise, err := s.engine(engineOverrides{args.Rule, args.Squash, args.Lambda, args.Noise, args.MaxIterations})
	if err != nil {
		return nil, ScenarioOutput{}, err
	}
	m, err := s.loadMap(args.Matrix, args.ConceptMap)
	if err != nil {
		return nil, ScenarioOutput{}, err
	}

	res, err := e.RunScenario(m, fcm.Scenario{
		Name:           args.Name,
		Clamp:          args.Clamp,
		Principles:     args.Principles,
		NoiseThreshold: noise,
	})
	if err != nil {
		return nil, ScenarioOutput{}, err
	}

	ordered := res.OrderedChanges()
	changes := make([]ConceptChange, len(ordered))
	for i, c := range ordered {
		changes[i] = ConceptChange{Concept: c.Concept, Delta: c.Delta}
	}

	return nil, ScenarioOutput{
		RunID:              runID,
		Name:               res.Name,
		Changes:            changes,
		PrincipleChanges:   res.PrincipleChanges,
		BaselineIterations: res.BaselineIterations,
		ScenarioIterations: res.ScenarioIterations,
	}, nil
}

func (s *Server) handleSensitivity(ctx context.Context, req *sdk.CallToolRequest, args SensitivityInput) (_ *sdk.CallToolResult, _ SensitivityOutput, retErr error) {
	start := time.Now()
	runID := uuid.NewString()
	defer func() {
		s.logCall("fcm_sensitivity", runID, start, retErr, map[string]interface{}{
			"matrix":     pathutil.RedactPath(args.Matrix),
			"concepts":   args.Concepts,
			"principles": args.Principles,
			"levels":     len(args.Levels),
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "fcm_sensitivity"); err != nil {
		return nil, SensitivityOutput{}, err
	}

	e, noise, err := s.engine(engineOverrides{args.Rule, args.Squash, args.Lambda, args.Noise, args.MaxIterations})
	if err != nil {
		return nil, SensitivityOutput{}, err
	}
	m, err := s.loadMap(args.Matrix, args.ConceptMap)
	if err != nil {
		return nil, SensitivityOutput{}, err
	}

	rep, err := sensitivity.Sweep(e, m, sensitivity.Request{
		Concepts:       args.Concepts,
		Principles:     args.Principles,
		Levels:         args.Levels,
		NoiseThreshold: noise,
	})
	if err != nil {
		return nil, SensitivityOutput{}, err
	}

	series := make([]SeriesSummary, len(rep.Series))
	for i, sr := range rep.Series {
		series[i] = SeriesSummary{Concept: sr.Concept, Principle: sr.Principle, Deltas: sr.Deltas}
	}

	return nil, SensitivityOutput{
		RunID:    runID,
		Levels:   rep.Levels,
		Baseline: conceptValues(m.Concepts(), rep.Baseline),
		Series:   series,
	}, nil
}

func (s *Server) handleGraph(ctx context.Context, req *sdk.CallToolRequest, args GraphInput) (_ *sdk.CallToolResult, _ GraphOutput, retErr error) {
	start := time.Now()
	runID := uuid.NewString()
	defer func() {
		s.logCall("fcm_graph", runID, start, retErr, map[string]interface{}{
			"matrix": pathutil.RedactPath(args.Matrix),
			"format": args.Format,
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "fcm_graph"); err != nil {
		return nil, GraphOutput{}, err
	}

	format := visualization.FormatJSON
	if args.Format != "" {
		f, err := visualization.ParseFormat(args.Format)
		if err != nil {
			return nil, GraphOutput{}, err
		}
		format = f
	}

	m, err := s.loadMap(args.Matrix, args.ConceptMap)
	if err != nil {
		return nil, GraphOutput{}, err
	}

	var overlay *visualization.Overlay
	if len(args.Clamp) > 0 {
		e, noise, err := s.engine(engineOverrides{})
		if err != nil {
			return nil, GraphOutput{}, err
		}
		res, err := e.RunScenario(m, fcm.Scenario{Clamp: args.Clamp, NoiseThreshold: noise})
		if err != nil {
			return nil, GraphOutput{}, err
		}
		overlay = &visualization.Overlay{Changes: res.Changes, Clamped: args.Clamp}
	}

	edgeCount := len(visualization.Edges(m))
	switch format {
	case visualization.FormatDOT:
		return nil, GraphOutput{
			Format:    string(format),
			Graph:     visualization.RenderDOT(m, overlay),
			NodeCount: m.Len(),
			EdgeCount: edgeCount,
		}, nil
	default:
		return nil, GraphOutput{
			Format:    string(format),
			Graph:     visualization.RenderJSON(m, overlay),
			NodeCount: m.Len(),
			EdgeCount: edgeCount,
		}, nil
	}
}

func conceptValues(concepts []string, values []float64) []ConceptValue {
	out := make([]ConceptValue, len(concepts))
	for i, name := range concepts {
		out[i] = ConceptValue{Concept: name, Value: values[i]}
	}
	return out
}
