// Package quiet implements the quiet-hours gate: deciding whether a
// notification's external delivery is held back because the recipient's
// configured quiet window covers the current time of day.
package quiet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lettera-hq/notifier/internal/prefs"
)

// IsSuppressed reports whether external-channel delivery is suppressed at
// now for the given quiet-hours window and resolved priority.
//
// The window [start, end) is interpreted cyclically on a 24-hour clock, so
// 22:00–07:00 covers the night. Critical priority always passes; in
// importantOnly mode, high priority passes as well. Suppression only skips
// external channels; the caller still persists the notification.
func IsSuppressed(now time.Time, q prefs.QuietHours, priority prefs.Priority) bool {
	if !q.Enabled {
		return false
	}
	if priority == prefs.PriorityCritical {
		return false
	}
	if q.Mode == prefs.QuietModeImportantOnly && priority.AtLeast(prefs.PriorityHigh) {
		return false
	}

	start, err := parseClock(q.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(q.End)
	if err != nil {
		return false
	}
	if start == end {
		// Zero-length window suppresses nothing.
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	if start < end {
		return minute >= start && minute < end
	}
	// Wrapping window, e.g. 22:00–07:00.
	return minute >= start || minute < end
}

// ValidClock reports whether s is a well-formed "HH:MM" value. The
// preference service uses it to reject malformed windows before they are
// stored; IsSuppressed itself tolerates bad values by failing open.
func ValidClock(s string) bool {
	_, err := parseClock(s)
	return err == nil
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}
