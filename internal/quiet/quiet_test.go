package quiet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/quiet"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestIsSuppressed(t *testing.T) {
	night := prefs.QuietHours{Enabled: true, Start: "22:00", End: "07:00", Mode: prefs.QuietModeAll}

	cases := []struct {
		name     string
		now      time.Time
		window   prefs.QuietHours
		priority prefs.Priority
		want     bool
	}{
		{"normal inside wrapping window", at(23, 30), night, prefs.PriorityNormal, true},
		{"normal after midnight still inside", at(3, 0), night, prefs.PriorityNormal, true},
		{"low at window start", at(22, 0), night, prefs.PriorityLow, true},
		{"end minute is exclusive", at(7, 0), night, prefs.PriorityNormal, false},
		{"daytime outside window", at(12, 0), night, prefs.PriorityNormal, false},
		{"critical always bypasses", at(23, 30), night, prefs.PriorityCritical, false},
		{"high is held in all mode", at(23, 30), night, prefs.PriorityHigh, true},
		{
			"high passes in importantOnly mode",
			at(23, 30),
			prefs.QuietHours{Enabled: true, Start: "22:00", End: "07:00", Mode: prefs.QuietModeImportantOnly},
			prefs.PriorityHigh,
			false,
		},
		{
			"normal is held in importantOnly mode",
			at(23, 30),
			prefs.QuietHours{Enabled: true, Start: "22:00", End: "07:00", Mode: prefs.QuietModeImportantOnly},
			prefs.PriorityNormal,
			true,
		},
		{
			"non-wrapping window",
			at(13, 15),
			prefs.QuietHours{Enabled: true, Start: "12:00", End: "14:00", Mode: prefs.QuietModeAll},
			prefs.PriorityNormal,
			true,
		},
		{"disabled window suppresses nothing", at(23, 30), prefs.QuietHours{Start: "22:00", End: "07:00"}, prefs.PriorityLow, false},
		{
			"zero-length window suppresses nothing",
			at(22, 0),
			prefs.QuietHours{Enabled: true, Start: "22:00", End: "22:00", Mode: prefs.QuietModeAll},
			prefs.PriorityLow,
			false,
		},
		{
			"malformed start fails open",
			at(23, 30),
			prefs.QuietHours{Enabled: true, Start: "late", End: "07:00", Mode: prefs.QuietModeAll},
			prefs.PriorityNormal,
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, quiet.IsSuppressed(tc.now, tc.window, tc.priority))
		})
	}
}
