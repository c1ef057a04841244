package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/prefs"
)

// Duration wraps time.Duration with YAML unmarshalling from strings like
// "5m" or "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if parsed < 0 {
		return fmt.Errorf("duration %q must be >= 0", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DigestSchedule holds the cron expressions driving digest flushes.
type DigestSchedule struct {
	DailyCron  string `yaml:"daily_cron"`
	WeeklyCron string `yaml:"weekly_cron"`
}

// Retention holds the retention sweep configuration.
type Retention struct {
	NotificationDays int    `yaml:"notification_days"`
	SweepCron        string `yaml:"sweep_cron"`
}

// Policy collects the product tunables that are configuration, not code:
// per-type dedupe windows, digest flush schedules, retention, and optional
// overrides of the system default routing matrix. Values a deployment does
// not set fall back to the built-in defaults.
type Policy struct {
	DedupeWindows map[event.Type]Duration    `yaml:"dedupe_windows"`
	Digest        DigestSchedule             `yaml:"digest"`
	Retention     Retention                  `yaml:"retention"`
	Routes        map[event.Type]prefs.Route `yaml:"routes"`
}

// DefaultPolicy returns the built-in tunables.
func DefaultPolicy() Policy {
	return Policy{
		DedupeWindows: map[event.Type]Duration{
			event.TypeNewLetter:       Duration(2 * time.Minute),
			event.TypeComment:         Duration(5 * time.Minute),
			event.TypeStatus:          Duration(time.Minute),
			event.TypeAssignment:      Duration(time.Minute),
			event.TypeDeadlineUrgent:  Duration(time.Hour),
			event.TypeDeadlineOverdue: Duration(time.Hour),
			event.TypeSystem:          Duration(10 * time.Minute),
		},
		Digest: DigestSchedule{
			DailyCron:  "0 8 * * *",
			WeeklyCron: "0 8 * * 1",
		},
		Retention: Retention{
			NotificationDays: 90,
			SweepCron:        "30 3 * * *",
		},
	}
}

// LoadPolicy reads the policy file at path and merges it over the built-in
// defaults. An empty path returns the defaults unchanged.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file %q: %w", path, err)
	}

	var loaded Policy
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return Policy{}, fmt.Errorf("parsing policy file %q: %w", path, err)
	}

	for typ, window := range loaded.DedupeWindows {
		policy.DedupeWindows[typ] = window
	}
	if loaded.Digest.DailyCron != "" {
		policy.Digest.DailyCron = loaded.Digest.DailyCron
	}
	if loaded.Digest.WeeklyCron != "" {
		policy.Digest.WeeklyCron = loaded.Digest.WeeklyCron
	}
	if loaded.Retention.NotificationDays > 0 {
		policy.Retention.NotificationDays = loaded.Retention.NotificationDays
	}
	if loaded.Retention.SweepCron != "" {
		policy.Retention.SweepCron = loaded.Retention.SweepCron
	}
	if len(loaded.Routes) > 0 {
		policy.Routes = loaded.Routes
	}
	return policy, nil
}

// DedupeWindow returns the suppression window for an event type. Unknown
// types use the SYSTEM window so unexpected producers still collapse rapid
// repeats.
func (p Policy) DedupeWindow(t event.Type) time.Duration {
	if w, ok := p.DedupeWindows[t]; ok {
		return w.Std()
	}
	return p.DedupeWindows[event.TypeSystem].Std()
}

// RoutingMatrix returns the effective system default matrix: built-in
// defaults with any per-type policy overrides applied.
func (p Policy) RoutingMatrix() prefs.RoutingMatrix {
	matrix := prefs.DefaultMatrix()
	for typ, route := range p.Routes {
		matrix[typ] = route
	}
	return matrix
}
