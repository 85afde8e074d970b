package subtitles

import (
	"reflect"
	"testing"
)

func TestSerializeFormat(t *testing.T) {
	cues := []Cue{
		{Index: 9, StartMs: 1000, EndMs: 2000, Lines: []string{"Hi"}},
		{Index: 3, StartMs: 3000, EndMs: 4500, Lines: []string{"Two", "lines"}},
	}
	want := "1\n00:00:01,000 --> 00:00:02,000\nHi\n\n2\n00:00:03,000 --> 00:00:04,500\nTwo\nlines\n\n"
	if got := Serialize(cues); got != want {
		t.Fatalf("Serialize = %q, want %q", got, want)
	}
}

func TestSerializeEmpty(t *testing.T) {
	if got := Serialize(nil); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
	if got := SerializeMerged(nil, RenderOptions{}); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	cues := []Cue{
		{StartMs: 0, EndMs: 999, Lines: []string{"zero"}},
		{StartMs: 1000, EndMs: 2000, Lines: []string{"<i>styled</i>", "second line"}},
		{StartMs: 3723456, EndMs: 3725000, Lines: []string{"later"}},
	}
	parsed := Parse(Serialize(cues))
	if parsed.Skipped != 0 {
		t.Fatalf("round trip skipped %d blocks", parsed.Skipped)
	}
	if len(parsed.Cues) != len(cues) {
		t.Fatalf("expected %d cues, got %d", len(cues), len(parsed.Cues))
	}
	for i := range cues {
		got := parsed.Cues[i]
		if got.StartMs != cues[i].StartMs || got.EndMs != cues[i].EndMs {
			t.Errorf("cue %d timing = %d-%d, want %d-%d", i, got.StartMs, got.EndMs, cues[i].StartMs, cues[i].EndMs)
		}
		if !reflect.DeepEqual(got.Lines, cues[i].Lines) {
			t.Errorf("cue %d lines = %v, want %v", i, got.Lines, cues[i].Lines)
		}
	}
}

func TestSerializeMergedRoundTrip(t *testing.T) {
	merged := []MergedCue{
		{StartMs: 1000, EndMs: 3000, Primary: []string{"Hello"}, Secondary: []string{"Szia"}},
		{StartMs: 4000, EndMs: 5000, Primary: []string{}, Secondary: []string{"Csak magyar"}, Leftover: true},
	}
	parsed := Parse(SerializeMerged(merged, RenderOptions{}))
	if len(parsed.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(parsed.Cues))
	}
	if !reflect.DeepEqual(parsed.Cues[0].Lines, []string{"Hello", "Szia"}) {
		t.Fatalf("cue 0 lines = %v", parsed.Cues[0].Lines)
	}
	if !reflect.DeepEqual(parsed.Cues[1].Lines, []string{"Csak magyar"}) {
		t.Fatalf("cue 1 lines = %v", parsed.Cues[1].Lines)
	}
}
