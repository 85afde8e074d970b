package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"dualsubs/internal/subtitles"
)

//go:embed sample_config.toml
var sampleConfig string

// Merge contains the alignment and rendering settings.
type Merge struct {
	ToleranceMs      int64  `toml:"tolerance_ms"`
	Strategy         string `toml:"strategy"`
	Leftovers        string `toml:"leftovers"`
	ZeroWidthPrefix  bool   `toml:"zero_width_prefix"`
	Format           string `toml:"format"`
	FallbackEncoding string `toml:"fallback_encoding"`
}

// Languages selects the two tracks of a bilingual subtitle.
type Languages struct {
	Primary   string `toml:"primary"`
	Secondary string `toml:"secondary"`
}

// OpenSubtitles contains configuration for the OpenSubtitles REST API.
type OpenSubtitles struct {
	APIKey         string `toml:"api_key"`
	UserAgent      string `toml:"user_agent"`
	UserToken      string `toml:"user_token"`
	BaseURL        string `toml:"base_url"`
	MaxPairs       int    `toml:"max_pairs"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Paths contains directory configuration.
type Paths struct {
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
	HistoryDB string `toml:"history_db"`
	OutputDir string `toml:"output_dir"`
}

// Watch contains configuration for the directory watcher.
type Watch struct {
	MaxConcurrent int `toml:"max_concurrent"`
	SettleMillis  int `toml:"settle_millis"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for dualsubs.
//
// Configuration sections by subsystem:
//   - Merge: tolerance, strategy, leftovers and output format
//   - Languages: primary and secondary language codes
//   - OpenSubtitles: API credentials and pairing limits
//   - Paths: log, cache, history and output locations
//   - Watch: directory watcher concurrency
//   - Logging: log format, level, and retention
type Config struct {
	Merge         Merge         `toml:"merge"`
	Languages     Languages     `toml:"languages"`
	OpenSubtitles OpenSubtitles `toml:"opensubtitles"`
	Paths         Paths         `toml:"paths"`
	Watch         Watch         `toml:"watch"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log, cache and history directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.CacheDir, filepath.Dir(c.Paths.HistoryDB)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MergeOptions converts the [merge] section into engine options.
func (c *Config) MergeOptions() (subtitles.Options, error) {
	strategy, err := subtitles.ParseStrategy(c.Merge.Strategy)
	if err != nil {
		return subtitles.Options{}, fmt.Errorf("merge.strategy: %w", err)
	}
	leftovers, err := subtitles.ParseLeftoverMode(c.Merge.Leftovers)
	if err != nil {
		return subtitles.Options{}, fmt.Errorf("merge.leftovers: %w", err)
	}
	format, err := subtitles.ParseFormat(c.Merge.Format)
	if err != nil {
		return subtitles.Options{}, fmt.Errorf("merge.format: %w", err)
	}
	return subtitles.Options{
		ToleranceMs:     c.Merge.ToleranceMs,
		Strategy:        strategy,
		Leftovers:       leftovers,
		ZeroWidthPrefix: c.Merge.ZeroWidthPrefix,
		Format:          format,
	}, nil
}

// OpenSubtitlesTimeout returns the per-request HTTP timeout.
func (c *Config) OpenSubtitlesTimeout() time.Duration {
	return time.Duration(c.OpenSubtitles.TimeoutSeconds) * time.Second
}

// WatchSettle returns how long a file must stay unchanged before the watcher
// treats it as complete.
func (c *Config) WatchSettle() time.Duration {
	return time.Duration(c.Watch.SettleMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
