package transcript

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimestamp converts a display timestamp "M:SS" to whole seconds.
// Minutes are one or more digits; seconds are exactly two digits below 60.
// Signs, fractions and hours are not part of the format.
func ParseTimestamp(s string) (int, error) {
	mins, secs, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("timestamp %q: missing colon", s)
	}
	if !allDigits(mins) {
		return 0, fmt.Errorf("timestamp %q: minutes must be digits", s)
	}
	if len(secs) != 2 || !allDigits(secs) {
		return 0, fmt.Errorf("timestamp %q: seconds must be two digits", s)
	}
	m, err := strconv.Atoi(mins)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: minutes: %w", s, err)
	}
	sec, _ := strconv.Atoi(secs)
	if sec > 59 {
		return 0, fmt.Errorf("timestamp %q: seconds out of range", s)
	}
	return m*60 + sec, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatTimestamp renders seconds as M:SS. Fractions are floored; minutes
// are not padded, seconds are padded to two digits.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if math.IsInf(seconds, 1) {
		return "--:--"
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// ParsePosition accepts either a display timestamp ("1:05") or a plain
// number of seconds ("65", "12.5"). Used by command arguments.
func ParsePosition(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		sec, err := ParseTimestamp(s)
		return float64(sec), err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("position %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("position %q: not finite", s)
	}
	return v, nil
}
