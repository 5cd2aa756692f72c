// Package config provides unified configuration loading for fcm.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tomorrownow/PyFCM/internal/constants"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// DirName is the per-user directory holding config.yaml and runs.jsonl.
const DirName = ".fcm"

// FCMConfig contains all fcm configuration settings.
type FCMConfig struct {
	// Inference holds the default engine parameters.
	Inference InferenceConfig `json:"inference" yaml:"inference"`

	// Noise controls weight pruning before solving.
	Noise NoiseConfig `json:"noise" yaml:"noise"`

	// Logging contains settings for operational and run logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Output controls how results are printed.
	Output OutputConfig `json:"output" yaml:"output"`
}

// InferenceConfig configures the fixed-point engine.
type InferenceConfig struct {
	// Rule is "k", "mk" or "r" (or the long names).
	Rule string `json:"rule" yaml:"rule" validate:"oneof=k kosko mk modified-kosko r rescaled-kosko"`

	// Squash is "sig", "tanh", "biv" or "triv" (or the long names).
	Squash string `json:"squash" yaml:"squash" validate:"oneof=sig sigmoid tanh biv bivalent triv trivalent"`

	// Lambda is the steepness of sigmoid and tanh. Range: 0 to 10.
	Lambda float64 `json:"lambda" yaml:"lambda" validate:"gte=0,lte=10"`

	// Epsilon is the convergence residual.
	Epsilon float64 `json:"epsilon" yaml:"epsilon" validate:"gt=0"`

	// MaxIterations caps each solve.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" validate:"gte=1"`
}

// NoiseConfig configures noise reduction.
type NoiseConfig struct {
	// Threshold zeroes every weight with |w| <= Threshold. Range: 0 to 1.
	Threshold float64 `json:"threshold" yaml:"threshold" validate:"gte=0,lte=1"`
}

// LoggingConfig configures fcm's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables run logging to runs.jsonl.
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=info debug trace"`

	// Dir is where runs.jsonl is written. Empty means ~/.fcm.
	// Supports ${VAR} expansion.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// OutputConfig configures result printing.
type OutputConfig struct {
	// Format is "text", "json" or "csv".
	Format string `json:"format" yaml:"format" validate:"oneof=text json csv"`

	// Color enables ANSI colors in text output.
	Color bool `json:"color" yaml:"color"`
}

// Default returns an FCMConfig with sensible defaults.
func Default() *FCMConfig {
	return &FCMConfig{
		Inference: InferenceConfig{
			Rule:          constants.DefaultInferenceRule,
			Squash:        constants.DefaultSquashingFunction,
			Lambda:        constants.DefaultLambda,
			Epsilon:       constants.DefaultEpsilon,
			MaxIterations: constants.DefaultMaxIterations,
		},
		Noise: NoiseConfig{
			Threshold: constants.DefaultNoiseThreshold,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// DefaultPath returns ~/.fcm/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

// Load loads configuration from path, or from ~/.fcm/config.yaml when path
// is empty, then applies environment variables.
// Order: defaults -> config file -> environment variables
// An explicit path must exist; the default location is optional.
func Load(path string) (*FCMConfig, error) {
	config := Default()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	} else if defaultPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(defaultPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(defaultPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*FCMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Logging.Dir = expandEnvVars(config.Logging.Dir)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *FCMConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid %s: %v (constraint %s)", configKey(fe), fe.Value(), constraint(fe))
	}
	return fmt.Errorf("validating config: %w", err)
}

// EngineConfig converts the inference settings to an fcm.Config.
func (c *FCMConfig) EngineConfig() (fcm.Config, error) {
	rule, err := fcm.ParseInferenceRule(c.Inference.Rule)
	if err != nil {
		return fcm.Config{}, err
	}
	squash, err := fcm.ParseSquashingFunction(c.Inference.Squash)
	if err != nil {
		return fcm.Config{}, err
	}
	return fcm.Config{
		Rule:          rule,
		Squash:        squash,
		Lambda:        c.Inference.Lambda,
		Epsilon:       c.Inference.Epsilon,
		MaxIterations: c.Inference.MaxIterations,
	}, nil
}

// RunLogDir returns the directory for runs.jsonl.
func (c *FCMConfig) RunLogDir() string {
	if c.Logging.Dir != "" {
		return c.Logging.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// configKey turns a validator namespace like "FCMConfig.Inference.Lambda"
// into the YAML key path "inference.lambda".
func configKey(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = yamlName(p)
	}
	return strings.Join(parts, ".")
}

var yamlNames = map[string]string{
	"MaxIterations": "max_iterations",
}

func yamlName(field string) string {
	if n, ok := yamlNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numbers are an error rather than silently ignored.
func applyEnvOverrides(config *FCMConfig) error {
	if v := os.Getenv("FCM_RULE"); v != "" {
		config.Inference.Rule = strings.ToLower(v)
	}
	if v := os.Getenv("FCM_SQUASH"); v != "" {
		config.Inference.Squash = strings.ToLower(v)
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"FCM_LAMBDA", &config.Inference.Lambda},
		{"FCM_EPSILON", &config.Inference.Epsilon},
		{"FCM_NOISE_THRESHOLD", &config.Noise.Threshold},
	}
	for _, f := range floats {
		if v := os.Getenv(f.name); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			*f.dst = parsed
		}
	}

	if v := os.Getenv("FCM_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FCM_MAX_ITERATIONS: %w", err)
		}
		config.Inference.MaxIterations = n
	}

	if v := os.Getenv("FCM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("FCM_OUTPUT_FORMAT"); v != "" {
		config.Output.Format = v
	}
	if v := os.Getenv("NO_COLOR"); v != "" {
		config.Output.Color = false
	}

	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
