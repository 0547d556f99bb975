package hotkey

import (
	"fmt"
	"strings"
)

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// Modifier is a set of modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModSuper
)

// Accel is a parsed accelerator such as "Alt+M".
type Accel struct {
	Mods Modifier
	// Key is an upper-case letter or digit, or "Space".
	Key string
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
}

// Parse reads an accelerator of the form "Mod+Mod+Key". At least one
// modifier is required so a bare key is never grabbed globally.
func Parse(accel string) (Accel, error) {
	parts := strings.Split(accel, "+")
	if len(parts) < 2 {
		return Accel{}, fmt.Errorf("hotkey %q needs a modifier and a key", accel)
	}

	var a Accel
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Accel{}, fmt.Errorf("hotkey %q: unknown modifier %q", accel, p)
		}
		a.Mods |= mod
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	switch {
	case strings.EqualFold(key, "space"):
		a.Key = "Space"
	case len(key) == 1 && isAlnum(key[0]):
		a.Key = strings.ToUpper(key)
	default:
		return Accel{}, fmt.Errorf("hotkey %q: unsupported key %q", accel, key)
	}
	return a, nil
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
