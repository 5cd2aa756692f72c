package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tomorrownow/PyFCM/internal/config"
	"github.com/tomorrownow/PyFCM/internal/constants"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/tomorrownow/PyFCM/internal/loader"
	"github.com/tomorrownow/PyFCM/internal/logging"
	"github.com/tomorrownow/PyFCM/internal/metrics"
	"github.com/tomorrownow/PyFCM/internal/report"
)

// addModelFlags registers the flags shared by every solving command.
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("matrix", "", "Weight matrix (.csv or .xlsx); row i, column j is the influence of i on j")
	cmd.Flags().String("concept-map", "", "YAML file renaming matrix labels to display names")
	cmd.Flags().String("sheet", "", "XLSX sheet to read (default: first sheet)")
	cmd.Flags().String("rule", "", "Inference rule: k, mk or r (default from config)")
	cmd.Flags().String("squash", "", "Squashing function: sig, tanh, biv or triv (default from config)")
	cmd.Flags().Float64("lambda", constants.DefaultLambda, "Squashing steepness")
	cmd.Flags().Float64("epsilon", constants.DefaultEpsilon, "Convergence tolerance on the L-infinity residual")
	cmd.Flags().Int("max-iterations", constants.DefaultMaxIterations, "Iteration cap per solve")
	cmd.Flags().Float64("noise", constants.DefaultNoiseThreshold, "Zero every weight with |w| at or below this threshold")
	cmd.MarkFlagRequired("matrix")
}

// loadConfig merges defaults, the config file, environment variables and
// any flags set on cmd, in that order, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.FCMConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("rule") {
		v, _ := flags.GetString("rule")
		cfg.Inference.Rule = strings.ToLower(v)
	}
	if flags.Changed("squash") {
		v, _ := flags.GetString("squash")
		cfg.Inference.Squash = strings.ToLower(v)
	}
	if flags.Changed("lambda") {
		cfg.Inference.Lambda, _ = flags.GetFloat64("lambda")
	}
	if flags.Changed("epsilon") {
		cfg.Inference.Epsilon, _ = flags.GetFloat64("epsilon")
	}
	if flags.Changed("max-iterations") {
		cfg.Inference.MaxIterations, _ = flags.GetInt("max-iterations")
	}
	if flags.Changed("noise") {
		cfg.Noise.Threshold, _ = flags.GetFloat64("noise")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session bundles the configured engine and its observers for one command.
type session struct {
	cfg         *config.FCMConfig
	engine      *fcm.Engine
	logger      *slog.Logger
	runs        *logging.RunLogger
	metrics     *metrics.Recorder
	metricsFile string
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid inference settings: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	runs := logging.NewRunLogger(cfg.RunLogDir(), cfg.Logging.Level)
	recorder := metrics.NewRecorder()

	engine, err := fcm.NewEngine(engineCfg, fcm.WithObserver(fcm.JoinObservers(
		&logging.SolveObserver{Logger: logger, Runs: runs},
		recorder,
	)))
	if err != nil {
		runs.Close()
		return nil, err
	}

	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	return &session{
		cfg:         cfg,
		engine:      engine,
		logger:      logger,
		runs:        runs,
		metrics:     recorder,
		metricsFile: metricsFile,
	}, nil
}

// close flushes metrics to --metrics-file and closes the run log.
func (s *session) close() error {
	defer s.runs.Close()
	if s.metricsFile == "" {
		return nil
	}
	if err := s.metrics.WriteTextfile(s.metricsFile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// loadMap reads --matrix, applying --concept-map and --sheet.
func (s *session) loadMap(cmd *cobra.Command) (*fcm.Map, error) {
	matrix, _ := cmd.Flags().GetString("matrix")
	conceptMap, _ := cmd.Flags().GetString("concept-map")
	sheet, _ := cmd.Flags().GetString("sheet")

	var opts []loader.Option
	if conceptMap != "" {
		names, err := loader.LoadConceptMap(conceptMap)
		if err != nil {
			return nil, err
		}
		opts = append(opts, loader.WithConceptMap(names))
	}
	if sheet != "" {
		opts = append(opts, loader.WithSheet(sheet))
	}

	m, err := loader.Load(matrix, opts...)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("loaded map", "path", matrix, "concepts", m.Len())
	return m, nil
}

// envelope starts a report envelope for this session's engine and matrix.
func (s *session) envelope(cmd *cobra.Command, kind string) report.Envelope {
	env := report.NewEnvelope(kind, s.engine.Config())
	env.Source, _ = cmd.Flags().GetString("matrix")
	env.Noise = s.cfg.Noise.Threshold
	return env
}

// logRun appends a command summary to the run log.
func (s *session) logRun(env report.Envelope) {
	s.runs.Log(map[string]any{
		"event":    "run",
		"run_id":   env.RunID,
		"kind":     env.Kind,
		"source":   env.Source,
		"scenario": env.Scenario,
		"clamp":    env.Clamp,
	})
}

// outputFormat picks the format for cmd: --json wins, then --format, then
// the configured default when cmd supports it, then allowed[0].
func (s *session) outputFormat(cmd *cobra.Command, allowed ...string) (string, error) {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut && slices.Contains(allowed, "json") {
		return "json", nil
	}
	if cmd.Flags().Changed("format") {
		format, _ := cmd.Flags().GetString("format")
		format = strings.ToLower(format)
		if !slices.Contains(allowed, format) {
			return "", fmt.Errorf("unsupported format %q (use %s)", format, strings.Join(allowed, ", "))
		}
		return format, nil
	}
	if slices.Contains(allowed, s.cfg.Output.Format) {
		return s.cfg.Output.Format, nil
	}
	return allowed[0], nil
}

// openOutput returns the --output file, or stdout when it is unset. The
// returned close func is never nil.
func openOutput(cmd *cobra.Command) (io.Writer, func() error, error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// keepCloseErr runs closeFn and reports its error through retErr unless the
// command already failed.
func keepCloseErr(retErr *error, closeFn func() error) {
	if err := closeFn(); err != nil && *retErr == nil {
		*retErr = fmt.Errorf("failed to close output: %w", err)
	}
}

// useColor reports whether text output should carry ANSI styles.
func (s *session) useColor(cmd *cobra.Command) bool {
	path, _ := cmd.Flags().GetString("output")
	return s.cfg.Output.Color && path == ""
}

// parseClamps parses concept=value pairs. The last '=' separates name from
// value so concept names may contain '='.
func parseClamps(specs []string) (map[string]float64, error) {
	clamp := make(map[string]float64, len(specs))
	for _, spec := range specs {
		i := strings.LastIndex(spec, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid clamp %q (want concept=value): %w", spec, fcm.ErrInvalidArgument)
		}
		name := strings.TrimSpace(spec[:i])
		value, err := strconv.ParseFloat(strings.TrimSpace(spec[i+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid clamp value in %q: %w", spec, fcm.ErrInvalidArgument)
		}
		if _, dup := clamp[name]; dup {
			return nil, fmt.Errorf("concept %q clamped twice: %w", name, fcm.ErrInvalidArgument)
		}
		clamp[name] = value
	}
	return clamp, nil
}
