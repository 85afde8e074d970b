package logging

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	label string
	value string
}

// infoHighlightKeys are printed first, in this order, when present.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"primary_file",
	"secondary_file",
	"output_file",
	"strategy",
	"tolerance_ms",
	"matched",
	"unmatched",
	"leftovers",
	"dropped",
	"skipped_blocks",
	"output_bytes",
	"duration",
	"error",
	FieldErrorHint,
	FieldImpact,
}

var infoLabels = map[string]string{
	FieldAlert:       "Alert",
	FieldEventType:   "Event",
	FieldErrorHint:   "Hint",
	FieldImpact:      "Impact",
	"primary_file":   "Primary",
	"secondary_file": "Secondary",
	"output_file":    "Output",
	"tolerance_ms":   "Tolerance (ms)",
	"skipped_blocks": "Skipped Blocks",
	"output_bytes":   "Output Size",
}

const maxInfoValueLen = 120

// selectInfoFields returns formatted info-level fields and a count of hidden
// entries. Identifiers and context keys stay in debug output only.
func selectInfoFields(attrs []kv) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, len(attrs))
	hidden := 0

	add := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if skipInfoKey(attr.key) {
			return
		}
		if isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		value := formatValueForKey(attr.key, attr.value)
		if attr.key != "error" && len(value) > maxInfoValueLen {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: value})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				add(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			add(idx)
		}
	}
	return result, hidden
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindInt64:
		return humanize.IBytes(uint64(max(v.Int64(), 0)))
	case v.Kind() == slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	case v.Kind() == slog.KindInt64 && v.Int64() >= 10000:
		return humanize.Comma(v.Int64())
	}
	return formatValue(v)
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldJob, FieldPair:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldRequestID, "history_id", "file_id":
		return true
	}
	return strings.HasSuffix(key, "_fingerprint") || strings.HasSuffix(key, "_url")
}

func displayLabel(key string) string {
	if label, ok := infoLabels[key]; ok {
		return label
	}
	parts := strings.Split(strings.ReplaceAll(key, ".", "_"), "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
