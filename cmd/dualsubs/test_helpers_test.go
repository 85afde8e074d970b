package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dualsubs/internal/config"
	"dualsubs/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("OPENSUBTITLES_API_KEY", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	flags = append(flags, "--log-level", "error")
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writePair writes an English and a Hungarian track named <name>.en.srt and
// <name>.hu.srt under dir.
func writePair(t *testing.T, dir, name string) (string, string) {
	t.Helper()
	primary := testsupport.WriteFile(t, filepath.Join(dir, name+".en.srt"), testsupport.SRT(
		testsupport.Cue{Start: "00:00:01,000", End: "00:00:02,000", Text: "Hello"},
		testsupport.Cue{Start: "00:00:03,000", End: "00:00:04,000", Text: "Bye"},
	))
	secondary := testsupport.WriteFile(t, filepath.Join(dir, name+".hu.srt"), testsupport.SRT(
		testsupport.Cue{Start: "00:00:01,100", End: "00:00:02,000", Text: "Szia"},
		testsupport.Cue{Start: "00:00:09,000", End: "00:00:10,000", Text: "Extra"},
	))
	return primary, secondary
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
