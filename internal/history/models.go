package history

import (
	"errors"
	"time"
)

// Status is the outcome of a recorded merge.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	// StatusRejected marks merges refused before any work ran: bad options,
	// missing inputs.
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSucceeded, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}

// ParseStatus maps a user supplied value onto a Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(value)
	return status, status.Valid()
}

// Source identifies which entry point produced a record.
type Source string

const (
	SourceManual Source = "manual"
	SourceFetch  Source = "fetch"
	SourceBatch  Source = "batch"
	SourceWatch  Source = "watch"
)

// ErrNotFound is returned by Get when no record has the requested id.
var ErrNotFound = errors.New("history record not found")

// Record is one row of merge history.
type Record struct {
	ID        string
	CreatedAt time.Time
	Source    Source
	Status    Status

	PrimaryPath          string
	SecondaryPath        string
	PrimaryFingerprint   string
	SecondaryFingerprint string
	PrimaryLanguage      string
	SecondaryLanguage    string
	ReleaseLabel         string

	Strategy    string
	ToleranceMs int64
	Leftovers   string
	Format      string

	PrimaryCues   int
	SecondaryCues int
	Matched       int
	LeftoverCues  int
	DroppedCues   int
	SkippedBlocks int

	OutputPath  string
	OutputBytes int64
	Duration    time.Duration
	Error       string
}

// Summary aggregates record counts per status.
type Summary struct {
	Total     int
	Succeeded int
	Rejected  int
	Failed    int
}
