// Package opensubtitles is a small client for the OpenSubtitles REST API.
//
// It searches subtitles by imdb id (optionally season and episode),
// negotiates download links, caches payloads on disk by file id and pairs
// results of two languages for dual-language merging.
package opensubtitles
