package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// Delimiter selects the separator between seconds and milliseconds in a
// timestamp token.
type Delimiter byte

const (
	// DelimiterComma produces SRT style tokens (00:00:01,000).
	DelimiterComma Delimiter = ','
	// DelimiterDot produces WebVTT style tokens (00:00:01.000).
	DelimiterDot Delimiter = '.'
)

const (
	msPerHour   = 3_600_000
	msPerMinute = 60_000
	msPerSecond = 1_000
)

// ParseTimestamp converts an HH:MM:SS,mmm (or HH:MM:SS.mmm) token into
// milliseconds using integer arithmetic only.
func ParseTimestamp(token string) (int64, error) {
	value := strings.TrimSpace(token)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	sep := strings.LastIndexAny(value, ",.")
	if sep == -1 {
		return 0, fmt.Errorf("invalid timestamp %q: missing milliseconds", token)
	}
	hms := strings.Split(value[:sep], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q: want HH:MM:SS", token)
	}
	millisText := value[sep+1:]
	if len(hms[0]) < 2 || len(hms[1]) != 2 || len(hms[2]) != 2 || len(millisText) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q: bad field width", token)
	}

	hours, errH := parseDigits(hms[0])
	minutes, errM := parseDigits(hms[1])
	seconds, errS := parseDigits(hms[2])
	millis, errMS := parseDigits(millisText)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q: non-numeric field", token)
	}
	if minutes >= 60 || seconds >= 60 {
		return 0, fmt.Errorf("invalid timestamp %q: minutes and seconds must be below 60", token)
	}
	if len(hms[0]) > 2 && hms[0][0] == '0' {
		return 0, fmt.Errorf("invalid timestamp %q: hours padded beyond two digits", token)
	}
	return hours*msPerHour + minutes*msPerMinute + seconds*msPerSecond + millis, nil
}

// FormatTimestamp renders ms as a zero-padded token using the given
// delimiter. Negative values clamp to zero.
func FormatTimestamp(ms int64, delim Delimiter) string {
	if ms < 0 {
		ms = 0
	}
	if delim != DelimiterDot {
		delim = DelimiterComma
	}
	hours := ms / msPerHour
	ms -= hours * msPerHour
	minutes := ms / msPerMinute
	ms -= minutes * msPerMinute
	seconds := ms / msPerSecond
	ms -= seconds * msPerSecond
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, byte(delim), ms)
}

// DelimiterOf reports the millisecond delimiter used by token. Tokens without
// a dot are treated as comma tokens.
func DelimiterOf(token string) Delimiter {
	if strings.LastIndexByte(token, '.') > strings.LastIndexByte(token, ',') {
		return DelimiterDot
	}
	return DelimiterComma
}

func parseDigits(value string) (int64, error) {
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.ParseInt(value, 10, 64)
}
