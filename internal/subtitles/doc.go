// Package subtitles merges two caption tracks into one bilingual track.
//
// Parse reads SRT style cue blocks, Align pairs each primary cue with at most
// one secondary cue (nearest start time within a tolerance, or exact start
// token), SerializeMerged writes the result back out and ToVTT converts it to
// WebVTT when needed. Merge runs the whole pipeline. Everything here is pure
// and safe for concurrent use.
package subtitles
