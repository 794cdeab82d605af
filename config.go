package waylens

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/waylens/waylens/internal/rules"
	"github.com/waylens/waylens/internal/sched"
)

// OutputSpec is one `[[output]]` table: a physical display's mode and
// frame-pacing policy.
type OutputSpec struct {
	Name          string  `toml:"name"`
	Width         int     `toml:"width"`
	Height        int     `toml:"height"`
	RefreshMillihz int    `toml:"refresh_millihz"`
	Tearing       string  `toml:"tearing"` // "never" | "always" | "variant"
	VRR           string  `toml:"vrr"`     // "never" | "always" | "variant"
}

// SeatSpec is one `[[seat]]` table.
type SeatSpec struct {
	Name              string `toml:"name"`
	IdleTimeoutSeconds int   `toml:"idle_timeout_seconds"`
}

// BindSpec is one `[[bind]]` table: a chord bound to a named shortcut
// action, resolved against the compositor's registered shortcut
// handlers the same way RuleSpec.OnMatch resolves against actions.
type BindSpec struct {
	Chord  string `toml:"chord"`
	Action string `toml:"action"`
}

// FileSpec is the top-level shape of the bundled TOML configuration:
// seats, outputs, key bindings, and criteria rules, sufficient to
// exercise every typed call named in the external configuration API
// (SetSeat, SetOutputMode, BindShortcut, SetRule) without requiring a
// richer, versioned schema — this is glue for a concrete on-disk
// format, not a policy surface of its own.
type FileSpec struct {
	Seat   []SeatSpec         `toml:"seat"`
	Output []OutputSpec       `toml:"output"`
	Bind   []BindSpec         `toml:"bind"`
	Rule   []rules.RuleSpec   `toml:"rule"`
}

// ParseConfigFile decodes a TOML document into a FileSpec. The caller
// drives the typed API (AddSeat, AddOutput, BindShortcut, Rules)
// from the result; this package never opens files itself.
func ParseConfigFile(data []byte) (*FileSpec, error) {
	var file FileSpec
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, errors.Wrap(err, "waylens: decode config")
	}
	return &file, nil
}

// ToOutputConfig converts a parsed OutputSpec into the typed
// OutputConfig Compositor.AddOutput expects. An unset refresh_millihz
// leaves RefreshPeriod zero so AddOutput applies its 60Hz default; an
// empty or unrecognized tearing/vrr string maps to "never".
func (s OutputSpec) ToOutputConfig() OutputConfig {
	cfg := OutputConfig{
		Name:   s.Name,
		Width:  s.Width,
		Height: s.Height,
	}
	if s.RefreshMillihz > 0 {
		cfg.RefreshPeriod = time.Second * 1000 / time.Duration(s.RefreshMillihz)
	}
	switch s.Tearing {
	case "always":
		cfg.Tearing = sched.TearingAlways
	case "variant":
		cfg.Tearing = sched.TearingVariant
	default:
		cfg.Tearing = sched.TearingNever
	}
	switch s.VRR {
	case "always":
		cfg.VRR = sched.VRRAlways
	case "variant":
		cfg.VRR = sched.VRRVariant
	default:
		cfg.VRR = sched.VRRNever
	}
	return cfg
}

// IdleTimeout returns the seat's configured idle timeout, defaulting
// to 5 minutes if unset (a bare 0 would disable idle detection
// entirely, which a config file would have to opt into explicitly via
// a negative value — see LoadInto).
func (s SeatSpec) IdleTimeout() time.Duration {
	if s.IdleTimeoutSeconds < 0 {
		return 0
	}
	if s.IdleTimeoutSeconds == 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

// LoadInto applies a parsed config file to c: adds every seat and
// output, registers shortcut bindings against handlers, and installs
// every rule against actions. Returns the first error encountered,
// wrapped with the offending table's name.
func (c *Compositor) LoadInto(file *FileSpec, handlers map[string]func(), actions map[string]rules.Action) error {
	for _, s := range file.Seat {
		c.AddSeat(s.Name, s.IdleTimeout())
	}
	for _, o := range file.Output {
		if _, err := c.AddOutput(o.ToOutputConfig()); err != nil {
			return errors.Wrapf(err, "waylens: output %q", o.Name)
		}
	}
	for _, b := range file.Bind {
		fn, ok := handlers[b.Action]
		if !ok {
			return errors.Errorf("waylens: bind %q: unknown action %q", b.Chord, b.Action)
		}
		if err := c.BindShortcut(b.Chord, fn); err != nil {
			return errors.Wrapf(err, "waylens: bind %q", b.Chord)
		}
	}

	parsed, err := rules.BuildRules(file.Rule, actions)
	if err != nil {
		return errors.Wrap(err, "waylens: rules")
	}
	for _, r := range parsed {
		c.Rules().AddRule(r)
	}
	return nil
}
