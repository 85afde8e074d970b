package subtitles

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Strategy selects how primary cues find their secondary partner.
type Strategy int

const (
	// StrategyNearestTime pairs each primary cue with the closest unused
	// secondary cue whose start lies within the tolerance window.
	StrategyNearestTime Strategy = iota
	// StrategyExactTimeKey pairs cues whose start tokens are textually equal.
	// Only correct when both tracks share one timing grid.
	StrategyExactTimeKey
)

func (s Strategy) String() string {
	switch s {
	case StrategyNearestTime:
		return "nearest"
	case StrategyExactTimeKey:
		return "exact"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// LeftoverMode controls what happens to secondary cues nobody claimed.
type LeftoverMode int

const (
	// LeftoversDrop discards unmatched secondary cues.
	LeftoversDrop LeftoverMode = iota
	// LeftoversAppend emits unmatched secondary cues as standalone cues.
	LeftoversAppend
)

func (m LeftoverMode) String() string {
	switch m {
	case LeftoversDrop:
		return "drop"
	case LeftoversAppend:
		return "append"
	default:
		return fmt.Sprintf("leftovers(%d)", int(m))
	}
}

var (
	// ErrInvalidOptions marks every alignment configuration error.
	ErrInvalidOptions = errors.New("invalid merge options")
	// ErrInvalidTolerance is returned for a non-positive tolerance window.
	ErrInvalidTolerance = fmt.Errorf("%w: tolerance must be positive", ErrInvalidOptions)
	// ErrUnknownStrategy is returned for an unrecognized strategy value.
	ErrUnknownStrategy = fmt.Errorf("%w: unknown strategy", ErrInvalidOptions)
	// ErrUnknownLeftoverMode is returned for an unrecognized leftover mode.
	ErrUnknownLeftoverMode = fmt.Errorf("%w: unknown leftover mode", ErrInvalidOptions)
)

// AlignOptions configures a single Align call.
type AlignOptions struct {
	ToleranceMs int64
	Strategy    Strategy
	Leftovers   LeftoverMode
}

// Validate reports configuration errors before any cue is examined.
func (o AlignOptions) Validate() error {
	switch o.Strategy {
	case StrategyNearestTime:
		if o.ToleranceMs <= 0 {
			return fmt.Errorf("%w (got %d ms)", ErrInvalidTolerance, o.ToleranceMs)
		}
	case StrategyExactTimeKey:
	default:
		return fmt.Errorf("%w %d", ErrUnknownStrategy, int(o.Strategy))
	}
	switch o.Leftovers {
	case LeftoversDrop, LeftoversAppend:
	default:
		return fmt.Errorf("%w %d", ErrUnknownLeftoverMode, int(o.Leftovers))
	}
	return nil
}

// MergedCue is one bilingual output cue. A standalone leftover has an empty
// Primary side and Leftover set.
type MergedCue struct {
	Index     int
	StartMs   int64
	EndMs     int64
	Primary   []string
	Secondary []string
	// Leftover marks an unmatched secondary cue emitted on its own.
	Leftover bool
}

// zeroWidthSpace keeps some players from reflowing the two language blocks
// into one paragraph.
const zeroWidthSpace = "\u200b"

// Text renders the primary block, a line break, then the secondary block.
// Standalone leftovers render only their secondary block so the cue never
// starts with a blank line.
func (m MergedCue) Text(zeroWidth bool) string {
	secondary := strings.Join(m.Secondary, "\n")
	if zeroWidth {
		secondary = zeroWidthSpace + secondary
	}
	if m.Standalone() {
		return secondary
	}
	return strings.Join(m.Primary, "\n") + "\n" + secondary
}

// Standalone reports whether the cue came from an unmatched secondary cue.
// A matched primary cue with no text lines is not standalone.
func (m MergedCue) Standalone() bool {
	return m.Leftover
}

// Report summarizes what Align did.
type Report struct {
	Strategy      Strategy
	ToleranceMs   int64
	PrimaryCues   int
	SecondaryCues int
	Matched       int
	// Unmatched lists the parse-order positions of primary cues that found
	// no partner.
	Unmatched []int
	// Leftovers counts unmatched secondary cues appended as standalone cues.
	Leftovers int
	// Dropped counts unmatched secondary cues discarded.
	Dropped int
}

// Alignment is the ordered merge output plus its report.
type Alignment struct {
	Cues   []MergedCue
	Report Report
}

// Align merges two cue sequences into one time-ordered bilingual sequence.
// Every secondary cue is used at most once.
func Align(primary, secondary []Cue, opts AlignOptions) (Alignment, error) {
	if err := opts.Validate(); err != nil {
		return Alignment{}, err
	}

	report := Report{
		Strategy:      opts.Strategy,
		ToleranceMs:   opts.ToleranceMs,
		PrimaryCues:   len(primary),
		SecondaryCues: len(secondary),
		Unmatched:     []int{},
	}
	leftovers := opts.Leftovers
	if len(primary) == 0 {
		leftovers = LeftoversAppend
	}

	var matches []int
	switch opts.Strategy {
	case StrategyExactTimeKey:
		matches = matchExactKey(primary, secondary)
	default:
		matches = matchNearest(primary, secondary, opts.ToleranceMs)
	}

	used := make([]bool, len(secondary))
	merged := make([]MergedCue, 0, len(primary)+len(secondary))
	for i, p := range primary {
		cue := MergedCue{
			StartMs:   p.StartMs,
			EndMs:     p.EndMs,
			Primary:   p.Lines,
			Secondary: []string{},
		}
		if j := matches[i]; j >= 0 {
			cue.Secondary = secondary[j].Lines
			used[j] = true
			report.Matched++
		} else {
			report.Unmatched = append(report.Unmatched, i)
		}
		merged = append(merged, cue)
	}

	for j, s := range secondary {
		if used[j] {
			continue
		}
		if leftovers == LeftoversDrop {
			report.Dropped++
			continue
		}
		merged = append(merged, MergedCue{
			StartMs:   s.StartMs,
			EndMs:     s.EndMs,
			Primary:   []string{},
			Secondary: s.Lines,
			Leftover:  true,
		})
		report.Leftovers++
	}

	slices.SortStableFunc(merged, func(a, b MergedCue) int {
		switch {
		case a.StartMs < b.StartMs:
			return -1
		case a.StartMs > b.StartMs:
			return 1
		default:
			return 0
		}
	})
	for i := range merged {
		merged[i].Index = i + 1
	}

	return Alignment{Cues: merged, Report: report}, nil
}

// matchNearest returns, per primary cue, the position of its secondary
// partner or -1. Ties keep the earliest secondary position because only a
// strictly smaller difference replaces the current best.
func matchNearest(primary, secondary []Cue, toleranceMs int64) []int {
	matches := make([]int, len(primary))
	used := make([]bool, len(secondary))
	for i, p := range primary {
		best := -1
		var bestDiff int64
		for j, s := range secondary {
			if used[j] {
				continue
			}
			diff := p.StartMs - s.StartMs
			if diff < 0 {
				diff = -diff
			}
			if diff > toleranceMs {
				continue
			}
			if best == -1 || diff < bestDiff {
				best = j
				bestDiff = diff
			}
		}
		if best >= 0 {
			used[best] = true
		}
		matches[i] = best
	}
	return matches
}

// matchExactKey pairs cues by exact start token equality. Duplicate tokens
// in the secondary track are consumed in their original order.
func matchExactKey(primary, secondary []Cue) []int {
	byToken := make(map[string][]int, len(secondary))
	for j, s := range secondary {
		byToken[s.StartToken] = append(byToken[s.StartToken], j)
	}
	matches := make([]int, len(primary))
	for i, p := range primary {
		queue := byToken[p.StartToken]
		if len(queue) == 0 {
			matches[i] = -1
			continue
		}
		matches[i] = queue[0]
		if len(queue) == 1 {
			delete(byToken, p.StartToken)
		} else {
			byToken[p.StartToken] = queue[1:]
		}
	}
	return matches
}
