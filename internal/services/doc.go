// Package services defines shared utilities consumed by the merge service,
// the OpenSubtitles fetcher and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, pair labels and batch job names
//     for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into history statuses and process exit codes.
package services
