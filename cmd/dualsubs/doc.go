// Package main hosts the dualsubs CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into calls on the
// dualsub service: merging local files, fetching and pairing tracks from
// OpenSubtitles, running batch manifests, watching a directory, and browsing
// merge history. It centralizes configuration resolution and logger setup so
// subcommands can focus on presenting results.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
