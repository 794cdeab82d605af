package waylens

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Shortcut modifier bits. Seat.HandleKeyEvent collapses its xkb
// Modifiers triple (depressed|latched|locked) to a single mask before
// consulting the ShortcutTable, so these bits only need to be
// consistent with whatever a real xkb keymap compiler assigns to
// them at startup, not with a fixed standard layout.
const (
	ModShift uint32 = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

var modNames = map[string]uint32{
	"shift": ModShift,
	"ctrl":  ModCtrl,
	"control": ModCtrl,
	"alt":   ModAlt,
	"super": ModSuper,
	"mod4":  ModSuper,
	"logo":  ModSuper,
}

// parseChord reads a "+"-separated chord such as "super+shift+36" into
// a modifier mask and a keycode. The final segment must be a decimal
// keycode; every segment before it must name a recognized modifier.
func parseChord(chord string) (mods uint32, keycode uint32, err error) {
	parts := strings.Split(chord, "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return 0, 0, errors.Errorf("waylens: invalid chord %q", chord)
	}

	kc, err := strconv.ParseUint(strings.TrimSpace(parts[len(parts)-1]), 10, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "waylens: chord %q: keycode", chord)
	}

	for _, p := range parts[:len(parts)-1] {
		name := strings.ToLower(strings.TrimSpace(p))
		bit, ok := modNames[name]
		if !ok {
			return 0, 0, errors.Errorf("waylens: chord %q: unknown modifier %q", chord, name)
		}
		mods |= bit
	}

	return mods, uint32(kc), nil
}
