package config

import (
	"errors"
	"fmt"

	"dualsubs/internal/textutil"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateOpenSubtitles(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMerge() error {
	if c.Merge.ToleranceMs <= 0 {
		return errors.New("merge.tolerance_ms must be positive")
	}
	if _, err := c.MergeOptions(); err != nil {
		return err
	}
	if c.Merge.FallbackEncoding != "" && !textutil.ValidEncoding(c.Merge.FallbackEncoding) {
		return fmt.Errorf("merge.fallback_encoding %q is not a known charset", c.Merge.FallbackEncoding)
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if c.Languages.Primary == c.Languages.Secondary {
		return fmt.Errorf("languages.primary and languages.secondary must differ (both %q)", c.Languages.Primary)
	}
	return nil
}

func (c *Config) validateOpenSubtitles() error {
	if c.OpenSubtitles.MaxPairs < 0 {
		return errors.New("opensubtitles.max_pairs must be positive")
	}
	if c.OpenSubtitles.TimeoutSeconds < 0 {
		return errors.New("opensubtitles.timeout_seconds must be positive")
	}
	return nil
}

// RequireOpenSubtitles reports whether the credentials needed to talk to
// OpenSubtitles are present. Commands that only merge local files never call it.
func (c *Config) RequireOpenSubtitles() error {
	if c.OpenSubtitles.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("opensubtitles.api_key is required. Set OPENSUBTITLES_API_KEY env var or edit %s (create with 'dualsubs config init')", defaultPath)
	}
	if c.OpenSubtitles.UserAgent == "" {
		return errors.New("opensubtitles.user_agent must be set")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.MaxConcurrent < 0 {
		return errors.New("watch.max_concurrent must be positive")
	}
	if c.Watch.SettleMillis < 0 {
		return errors.New("watch.settle_millis must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}
