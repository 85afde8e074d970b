// Package config loads, normalizes, and validates dualsubs configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENSUBTITLES_API_KEY. Language codes are normalized to ISO 639-1 and the
// [merge] section converts directly into engine options via MergeOptions.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
