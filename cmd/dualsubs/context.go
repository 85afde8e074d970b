package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dualsubs/internal/config"
	"dualsubs/internal/dualsub"
	"dualsubs/internal/history"
	"dualsubs/internal/logging"
	"dualsubs/internal/services"
	"dualsubs/internal/textutil"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", "Configuration could not be loaded", err)
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "ensure directories", "Configured directories are not usable", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = services.Wrap(services.ErrConfiguration, "cli", "init logging", "Logger could not be created", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// newService builds the merge service. The history store is optional: when it
// cannot be opened the run continues unrecorded.
func (c *commandContext) newService(noHistory bool) (*dualsub.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var opts []dualsub.Option
	if !noHistory {
		store, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "merge history unavailable", "history_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.history_db or pass --no-history"),
				logging.String(logging.FieldImpact, "this run is not recorded"),
			)
		} else {
			opts = append(opts, dualsub.WithHistory(store))
			cleanup = func() { _ = store.Close() }
		}
	}
	return dualsub.New(cfg, logger, opts...), cleanup, nil
}

func (c *commandContext) withStore(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// inputPath expands ~ and checks the file exists so a typo fails before any
// service work starts.
func inputPath(value string) (string, error) {
	path, err := config.ExpandPath(strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "cli", "read input", fmt.Sprintf("%s does not exist", path), nil)
		}
		return "", fmt.Errorf("inspect %q: %w", path, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "cli", "read input", fmt.Sprintf("%s is a directory", path), nil)
	}
	return path, nil
}

// readSubtitle loads and decodes one subtitle file using the configured
// fallback charset.
func (c *commandContext) readSubtitle(value string) (string, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", "", err
	}
	path, err := inputPath(value)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %q: %w", path, err)
	}
	text, err := textutil.DecodeSubtitle(data, cfg.Merge.FallbackEncoding)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "cli", "decode input", fmt.Sprintf("%s is not readable text", path), err)
	}
	return path, text, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
