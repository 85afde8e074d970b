package config

const (
	defaultConfigPath             = "~/.config/dualsubs/config.toml"
	projectConfigName             = "dualsubs.toml"
	defaultToleranceMs            = 500
	defaultStrategy               = "nearest"
	defaultLeftovers              = "append"
	defaultFormat                 = "srt"
	defaultFallbackEncoding       = "windows-1252"
	defaultPrimaryLanguage        = "en"
	defaultSecondaryLanguage      = "hu"
	defaultOpenSubtitlesBaseURL   = "https://api.opensubtitles.com/api/v1"
	defaultOpenSubtitlesUserAgent = "dualsubs v1.0"
	defaultOpenSubtitlesMaxPairs  = 5
	defaultOpenSubtitlesTimeout   = 30
	defaultLogDir                 = "~/.local/share/dualsubs/logs"
	defaultCacheDir               = "~/.cache/dualsubs/opensubtitles"
	defaultHistoryDB              = "~/.local/share/dualsubs/history.db"
	defaultWatchMaxConcurrent     = 2
	defaultWatchSettleMillis      = 750
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Merge: Merge{
			ToleranceMs:      defaultToleranceMs,
			Strategy:         defaultStrategy,
			Leftovers:        defaultLeftovers,
			Format:           defaultFormat,
			FallbackEncoding: defaultFallbackEncoding,
		},
		Languages: Languages{
			Primary:   defaultPrimaryLanguage,
			Secondary: defaultSecondaryLanguage,
		},
		OpenSubtitles: OpenSubtitles{
			BaseURL:        defaultOpenSubtitlesBaseURL,
			UserAgent:      defaultOpenSubtitlesUserAgent,
			MaxPairs:       defaultOpenSubtitlesMaxPairs,
			TimeoutSeconds: defaultOpenSubtitlesTimeout,
		},
		Paths: Paths{
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir,
			HistoryDB: defaultHistoryDB,
		},
		Watch: Watch{
			MaxConcurrent: defaultWatchMaxConcurrent,
			SettleMillis:  defaultWatchSettleMillis,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
