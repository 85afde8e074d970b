// Package dualsub ties the merge engine to the outside world: it reads and
// decodes subtitle files, runs subtitles.Merge, writes the bilingual output,
// records each run in the history store and fetches track pairs from
// OpenSubtitles.
//
// The CLI, batch manifests and the directory watcher all call into Service,
// so every entry point shares the same logging, error classification and
// history behaviour.
package dualsub
