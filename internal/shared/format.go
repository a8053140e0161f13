package shared

import (
	"fmt"
	"time"
)

// FormatClock renders a duration as H:MM:SS, or M:SS when it is under an hour.
//
// Negative durations render as 0:00.
func FormatClock(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}

	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h == 0 {
		return fmt.Sprintf("%d:%02d", m, s)
	}
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// FormatSeconds is [FormatClock] for a whole number of seconds.
func FormatSeconds(seconds int) string {
	return FormatClock(time.Duration(seconds) * time.Second)
}

// OnOff renders a flag the way the CLI prints preferences.
func OnOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
