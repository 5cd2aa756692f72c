package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomorrownow/PyFCM/internal/config"
)

func TestConfigCmd_Show(t *testing.T) {
	setup(t)

	out, err := run(t, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{"inference:", "rule: mk", "squash: sig", "max_iterations: 1000"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}

	t.Setenv("FCM_SQUASH", "TANH")
	out, err = run(t, "config", "--json")
	if err != nil {
		t.Fatalf("config --json: %v", err)
	}
	var cfg config.FCMConfig
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if cfg.Inference.Squash != "tanh" {
		t.Errorf("squash = %q, want env override tanh", cfg.Inference.Squash)
	}
}

func TestConfigCmd_SetGet(t *testing.T) {
	dir, _ := setup(t)
	path := filepath.Join(dir, "fcm", "config.yaml")

	out, err := run(t, "--config", path, "config", "set", "inference.squash", "TANH")
	if err != nil {
		t.Fatalf("config set: %v", err)
	}
	if out != "Set inference.squash = TANH\n" {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "--config", path, "config", "set", "inference.max_iterations", "50"); err != nil {
		t.Fatalf("config set: %v", err)
	}

	out, err = run(t, "--config", path, "config", "get", "inference.squash")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if out != "inference.squash = tanh\n" {
		t.Errorf("output = %q", out)
	}

	saved, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	if saved.Inference.MaxIterations != 50 || saved.Inference.Squash != "tanh" {
		t.Errorf("saved = %+v", saved.Inference)
	}
}

func TestConfigCmd_SetRejectsInvalid(t *testing.T) {
	dir, _ := setup(t)
	path := filepath.Join(dir, "config.yaml")

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "llm.provider", "x"},
		{"lambda out of range", "inference.lambda", "20"},
		{"lambda not a number", "inference.lambda", "steep"},
		{"bad rule", "inference.rule", "fuzzy"},
		{"zero iterations", "inference.max_iterations", "0"},
		{"iterations not an integer", "inference.max_iterations", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, "--config", path, "config", "set", tt.key, tt.value); err == nil {
				t.Errorf("set %s=%s: expected error", tt.key, tt.value)
			}
		})
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("rejected values should not create the config file")
	}
}

func TestConfigCmd_GetUnknownKey(t *testing.T) {
	setup(t)
	if _, err := run(t, "config", "get", "nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}
