package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// bibliographic ISO 639-2/B codes that the tag parser does not accept.
var bibliographic = map[string]string{
	"alb": "sq",
	"arm": "hy",
	"baq": "eu",
	"chi": "zh",
	"cze": "cs",
	"dut": "nl",
	"fre": "fr",
	"geo": "ka",
	"ger": "de",
	"gre": "el",
	"ice": "is",
	"mac": "mk",
	"may": "ms",
	"per": "fa",
	"rum": "ro",
	"slo": "sk",
	"wel": "cy",
}

// subtitleLanguages seeds the English-name lookup with the languages
// subtitle providers commonly serve.
var subtitleLanguages = []string{
	"ar", "bg", "cs", "da", "de", "el", "en", "es", "et", "fa", "fi", "fr",
	"he", "hi", "hr", "hu", "id", "is", "it", "ja", "ko", "lt", "lv", "ms",
	"nl", "no", "pl", "pt", "ro", "ru", "sk", "sl", "sr", "sv", "th", "tr",
	"uk", "vi", "zh",
}

var byName map[string]string

func init() {
	names := display.English.Languages()
	byName = make(map[string]string, len(subtitleLanguages))
	for _, code := range subtitleLanguages {
		name := strings.ToLower(names.Name(xlang.Make(code)))
		if name != "" {
			byName[name] = code
		}
	}
}

// Normalize converts a language tag, ISO 639 code or English language name
// into its ISO 639-1 code. Regions and scripts are discarded.
func Normalize(code string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(code))
	if value == "" {
		return "", fmt.Errorf("empty language code")
	}
	if mapped, ok := bibliographic[value]; ok {
		return mapped, nil
	}
	if mapped, ok := byName[value]; ok {
		return mapped, nil
	}
	tag, err := xlang.Parse(value)
	if err != nil {
		return "", fmt.Errorf("unknown language %q: %w", code, err)
	}
	base, confidence := tag.Base()
	if confidence == xlang.No {
		return "", fmt.Errorf("unknown language %q", code)
	}
	return base.String(), nil
}

// ToISO2 is Normalize without the error. Unrecognized input returns "".
func ToISO2(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		return ""
	}
	return normalized
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		return "und"
	}
	base, err := xlang.ParseBase(normalized)
	if err != nil {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns the English name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	normalized, err := Normalize(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	name := display.English.Languages().Name(xlang.Make(normalized))
	if name == "" {
		return strings.ToUpper(normalized)
	}
	return name
}

// PairLabel renders the short "EN+HU" tag for a bilingual track.
func PairLabel(primary, secondary string) string {
	upper := cases.Upper(xlang.Und)
	return upper.String(labelCode(primary)) + "+" + upper.String(labelCode(secondary))
}

func labelCode(code string) string {
	if normalized := ToISO2(code); normalized != "" {
		return normalized
	}
	return strings.TrimSpace(code)
}

// NormalizeList deduplicates and normalizes a list of language codes to ISO 639-1.
// Unrecognized entries are kept lowercased.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		trimmed := strings.ToLower(strings.TrimSpace(lang))
		if trimmed == "" {
			continue
		}
		if mapped := ToISO2(trimmed); mapped != "" {
			trimmed = mapped
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
