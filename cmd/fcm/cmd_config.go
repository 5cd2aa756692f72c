package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tomorrownow/PyFCM/internal/config"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change fcm configuration",
		Long: `Show the effective configuration after the config file and FCM_*
environment variables are applied, or change a setting in the config file.

Configuration is stored in ~/.fcm/config.yaml unless --config is given.

Examples:
  fcm config                          # Show effective settings as YAML
  fcm config --json                   # ... as JSON
  fcm config get inference.rule       # Get a specific setting
  fcm config set inference.squash tanh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			path, err := configFilePath(cmd)
			if err != nil {
				return err
			}

			// Edit the file's own settings, without environment overrides.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				if cfg, err = config.LoadFromFile(path); err != nil {
					return err
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := saveConfig(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			}
			return nil
		},
	}
}

// configFilePath returns --config, or the default config location.
func configFilePath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.FCMConfig, key string) (interface{}, bool) {
	switch key {
	case "inference.rule":
		return cfg.Inference.Rule, true
	case "inference.squash":
		return cfg.Inference.Squash, true
	case "inference.lambda":
		return cfg.Inference.Lambda, true
	case "inference.epsilon":
		return cfg.Inference.Epsilon, true
	case "inference.max_iterations":
		return cfg.Inference.MaxIterations, true
	case "noise.threshold":
		return cfg.Noise.Threshold, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "logging.dir":
		return cfg.Logging.Dir, true
	case "output.format":
		return cfg.Output.Format, true
	case "output.color":
		return cfg.Output.Color, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range
// checks are left to FCMConfig.Validate.
func setConfigValue(cfg *config.FCMConfig, key, value string) error {
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %q is not a number", key, value)
		}
		return f, nil
	}

	var err error
	switch key {
	case "inference.rule":
		cfg.Inference.Rule = strings.ToLower(value)
	case "inference.squash":
		cfg.Inference.Squash = strings.ToLower(value)
	case "inference.lambda":
		cfg.Inference.Lambda, err = parseFloat()
	case "inference.epsilon":
		cfg.Inference.Epsilon, err = parseFloat()
	case "inference.max_iterations":
		n, convErr := strconv.Atoi(value)
		if convErr != nil {
			return fmt.Errorf("invalid %s: %q is not an integer", key, value)
		}
		cfg.Inference.MaxIterations = n
	case "noise.threshold":
		cfg.Noise.Threshold, err = parseFloat()
	case "logging.level":
		cfg.Logging.Level = strings.ToLower(value)
	case "logging.dir":
		cfg.Logging.Dir = value
	case "output.format":
		cfg.Output.Format = strings.ToLower(value)
	case "output.color":
		cfg.Output.Color = value == "true" || value == "1"
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return err
}

// saveConfig writes cfg as YAML to path, creating its directory.
func saveConfig(cfg *config.FCMConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
