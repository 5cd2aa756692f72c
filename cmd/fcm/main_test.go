package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/tomorrownow/PyFCM/internal/fcm"
)

const fixtureCSV = `,c1,c2,c3,c4,c5
c1,0,1,1,0,0
c2,0,0,0,0,0
c3,0,0,0,0,-0.5
c4,0,0,0,0,1
c5,1,-1,0,0,0
`

// isolateHome sets HOME to a temp directory to avoid touching real ~/.fcm/
// and clears FCM_* overrides from the environment.
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{"FCM_RULE", "FCM_SQUASH", "FCM_LAMBDA", "FCM_EPSILON",
		"FCM_MAX_ITERATIONS", "FCM_NOISE_THRESHOLD", "FCM_LOG_LEVEL", "FCM_OUTPUT_FORMAT"} {
		t.Setenv(key, "")
	}
}

// setup writes the fixture matrix into an isolated temp dir.
func setup(t *testing.T) (dir, matrix string) {
	t.Helper()
	dir = t.TempDir()
	isolateHome(t, dir)
	matrix = filepath.Join(dir, "matrix.csv")
	if err := os.WriteFile(matrix, []byte(fixtureCSV), 0644); err != nil {
		t.Fatalf("Failed to write matrix: %v", err)
	}
	return dir, matrix
}

// run executes a fresh root command and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	rootCmd := newRootCmd()
	want := []string{"version", "steady", "scenario", "sensitivity", "graph", "mcp", "config"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
	for _, flag := range []string{"config", "log-level", "json", "metrics-file"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	setup(t)

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "fcm version "+version) {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if v["version"] != version {
		t.Errorf("version = %q, want %q", v["version"], version)
	}
}

func TestSteadyCmd_JSON(t *testing.T) {
	_, matrix := setup(t)

	out, err := run(t, "steady", "--matrix", matrix, "--rule", "k", "--squash", "sig", "--json")
	if err != nil {
		t.Fatalf("steady: %v", err)
	}

	var env struct {
		RunID      string `json:"run_id"`
		Kind       string `json:"kind"`
		Source     string `json:"source"`
		Rule       string `json:"rule"`
		Squash     string `json:"squash"`
		Iterations int    `json:"iterations"`
		Activation []struct {
			Concept string  `json:"concept"`
			Value   float64 `json:"value"`
		} `json:"activation"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if env.Kind != "steady" || env.Rule != "kosko" || env.Squash != "sigmoid" {
		t.Errorf("kind/rule/squash = %s/%s/%s", env.Kind, env.Rule, env.Squash)
	}
	if env.Iterations != 8 {
		t.Errorf("iterations = %d, want 8", env.Iterations)
	}
	if len(env.Activation) != 5 || env.Activation[0].Concept != "c1" {
		t.Errorf("activation = %+v", env.Activation)
	}
	if env.RunID == "" || env.Source != matrix {
		t.Errorf("run_id = %q, source = %q", env.RunID, env.Source)
	}
}

func TestSteadyCmd_Text(t *testing.T) {
	_, matrix := setup(t)

	out, err := run(t, "steady", "--matrix", matrix)
	if err != nil {
		t.Fatalf("steady: %v", err)
	}
	for _, want := range []string{"concept", "activation", "c5", "converged after", "modified-kosko"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSteadyCmd_NonConvergence(t *testing.T) {
	dir, _ := setup(t)
	matrix := filepath.Join(dir, "osc.csv")
	if err := os.WriteFile(matrix, []byte(",a\na,-1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, "steady", "--matrix", matrix, "--rule", "k", "--squash", "triv", "--max-iterations", "10")
	if !errors.Is(err, fcm.ErrNonConvergence) {
		t.Errorf("error = %v, want ErrNonConvergence", err)
	}
}

func TestSteadyCmd_MissingMatrix(t *testing.T) {
	setup(t)
	if _, err := run(t, "steady"); err == nil {
		t.Error("expected error without --matrix")
	}
}

func TestScenarioCmd_CSV(t *testing.T) {
	_, matrix := setup(t)

	out, err := run(t, "scenario", "--matrix", matrix, "--rule", "k", "--squash", "tanh",
		"--clamp", "c1=1", "--format", "csv")
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}

	want := map[string]float64{
		"c1": 0,
		"c2": 0.8771805720335079,
		"c3": 0.7615984906926053,
		"c4": 0,
		"c5": -0.36340194800116987,
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5 (no header):\n%s", len(lines), out)
	}
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ",")
		if !ok {
			t.Fatalf("malformed line %q", line)
		}
		got, err := strconv.ParseFloat(value, 64)
		if err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
		if math.Abs(got-want[name]) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, want[name])
		}
	}
}

func TestScenarioCmd_TextPrinciples(t *testing.T) {
	_, matrix := setup(t)

	out, err := run(t, "scenario", "--matrix", matrix, "--rule", "k", "--squash", "tanh",
		"--clamp", "c1=1", "--principle", "c5", "--principle", "c2")
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("want header and two principles:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "c5") || !strings.Contains(lines[1], "-0.363402") {
		t.Errorf("line 1 = %q, want c5 first", lines[1])
	}
	if !strings.HasPrefix(lines[2], "c2") || !strings.Contains(lines[2], "+0.877181") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestScenarioCmd_OutputFile(t *testing.T) {
	dir, matrix := setup(t)
	outPath := filepath.Join(dir, "scenario.json")

	out, err := run(t, "scenario", "--matrix", matrix, "--clamp", "c1=1", "--name", "rain",
		"--format", "json", "-o", outPath)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	if out != "" {
		t.Errorf("stdout should be empty with --output, got %q", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var env map[string]interface{}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if env["kind"] != "scenario" || env["scenario"] != "rain" {
		t.Errorf("envelope = %v", env)
	}
}

func TestScenarioCmd_Errors(t *testing.T) {
	_, matrix := setup(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown concept", []string{"--clamp", "zz=1"}, fcm.ErrUnknownConcept},
		{"malformed clamp", []string{"--clamp", "c1"}, fcm.ErrInvalidArgument},
		{"non-numeric clamp", []string{"--clamp", "c1=high"}, fcm.ErrInvalidArgument},
		{"unknown principle", []string{"--clamp", "c1=1", "--principle", "zz"}, fcm.ErrUnknownConcept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"scenario", "--matrix", matrix}, tt.args...)
			_, err := run(t, args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := run(t, "scenario", "--matrix", matrix); err == nil {
		t.Error("expected error without --clamp")
	}
	if _, err := run(t, "scenario", "--matrix", matrix, "--clamp", "c1=1", "--format", "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestSensitivityCmd_CSV(t *testing.T) {
	_, matrix := setup(t)

	out, err := run(t, "sensitivity", "--matrix", matrix, "--rule", "k", "--squash", "tanh",
		"--concept", "c1", "--principle", "c2", "--levels", "3")
	if err != nil {
		t.Fatalf("sensitivity: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("want header and 3 levels:\n%s", out)
	}
	if lines[0] != "level,c1/c2" {
		t.Errorf("header = %q", lines[0])
	}
	want := []float64{1.3895870764538427e-06, 0.6212479627636261, 0.8771805720335079}
	for i, line := range lines[1:] {
		_, value, _ := strings.Cut(line, ",")
		got, err := strconv.ParseFloat(value, 64)
		if err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
		if math.Abs(got-want[i]) > 1e-9 {
			t.Errorf("level %d delta = %v, want %v", i, got, want[i])
		}
	}
}

func TestSensitivityCmd_XLSX(t *testing.T) {
	dir, matrix := setup(t)

	if _, err := run(t, "sensitivity", "--matrix", matrix, "--concept", "c1", "--format", "xlsx"); err == nil {
		t.Error("expected error for xlsx without --output")
	}

	outPath := filepath.Join(dir, "sweep.xlsx")
	if _, err := run(t, "sensitivity", "--matrix", matrix, "--concept", "c1", "--format", "xlsx", "-o", outPath); err != nil {
		t.Fatalf("sensitivity: %v", err)
	}
	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		t.Errorf("xlsx not written: %v", err)
	}
}

func TestSensitivityCmd_InvalidLevels(t *testing.T) {
	_, matrix := setup(t)
	_, err := run(t, "sensitivity", "--matrix", matrix, "--concept", "c1", "--levels", "1")
	if !errors.Is(err, fcm.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestGraphCmd(t *testing.T) {
	_, matrix := setup(t)

	out, err := run(t, "graph", "--matrix", matrix)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if !strings.HasPrefix(out, "digraph fcm {") {
		t.Errorf("not DOT output:\n%s", out)
	}
	if !strings.Contains(out, `"c5" -> "c2"`) || !strings.Contains(out, "dashed") {
		t.Errorf("missing negative edge c5 -> c2:\n%s", out)
	}

	out, err = run(t, "graph", "--matrix", matrix, "--clamp", "c1=1", "--json")
	if err != nil {
		t.Fatalf("graph --json: %v", err)
	}
	var g map[string]interface{}
	if err := json.Unmarshal([]byte(out), &g); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if g["node_count"] != float64(5) || g["edge_count"] != float64(6) {
		t.Errorf("counts = %v nodes, %v edges", g["node_count"], g["edge_count"])
	}
}

func TestMetricsFile(t *testing.T) {
	dir, matrix := setup(t)
	metricsPath := filepath.Join(dir, "fcm.prom")

	if _, err := run(t, "scenario", "--matrix", matrix, "--clamp", "c1=1", "--metrics-file", metricsPath); err != nil {
		t.Fatalf("scenario: %v", err)
	}
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	for _, want := range []string{
		`fcm_solves_total{kind="steady",outcome="converged"} 1`,
		`fcm_solves_total{kind="scenario",outcome="converged"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestRunLog(t *testing.T) {
	dir, matrix := setup(t)
	logDir := filepath.Join(dir, "logs")
	t.Setenv("FCM_LOG_LEVEL", "debug")

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  dir: "+logDir+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "--config", configPath, "scenario", "--matrix", matrix, "--clamp", "c1=1"); err != nil {
		t.Fatalf("scenario: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(logDir, "runs.jsonl"))
	if err != nil {
		t.Fatalf("reading run log: %v", err)
	}
	log := string(data)
	if strings.Count(log, `"event":"solve"`) != 2 {
		t.Errorf("want baseline and scenario solve events:\n%s", log)
	}
	if !strings.Contains(log, `"event":"run"`) {
		t.Errorf("missing run event:\n%s", log)
	}
}

func TestParseClamps(t *testing.T) {
	tests := []struct {
		name    string
		specs   []string
		want    map[string]float64
		wantErr bool
	}{
		{"single", []string{"c1=1"}, map[string]float64{"c1": 1}, false},
		{"spaces", []string{" Crop yield = 0.5 "}, map[string]float64{"Crop yield": 0.5}, false},
		{"name with equals", []string{"a=b=0.25"}, map[string]float64{"a=b": 0.25}, false},
		{"negative", []string{"c5=-1"}, map[string]float64{"c5": -1}, false},
		{"empty", nil, map[string]float64{}, false},
		{"no value", []string{"c1"}, nil, true},
		{"no name", []string{"=1"}, nil, true},
		{"bad value", []string{"c1=x"}, nil, true},
		{"duplicate", []string{"c1=1", "c1=0"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClamps(tt.specs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseClamps(%v) error = %v, wantErr %v", tt.specs, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestKeepCloseErr(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("output", filepath.Join(t.TempDir(), "out.csv"), "")

	w, closeOut, err := openOutput(cmd)
	if err != nil {
		t.Fatalf("openOutput: %v", err)
	}
	// Closing twice makes the deferred close fail.
	if err := w.(*os.File).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var retErr error
	keepCloseErr(&retErr, closeOut)
	if !errors.Is(retErr, os.ErrClosed) {
		t.Errorf("retErr = %v, want os.ErrClosed", retErr)
	}

	earlier := errors.New("render failed")
	retErr = earlier
	keepCloseErr(&retErr, func() error { return os.ErrClosed })
	if retErr != earlier {
		t.Errorf("retErr = %v, want the earlier error kept", retErr)
	}

	retErr = nil
	keepCloseErr(&retErr, func() error { return nil })
	if retErr != nil {
		t.Errorf("retErr = %v, want nil", retErr)
	}
}
