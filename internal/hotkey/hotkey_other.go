//go:build !linux && !darwin

package hotkey

import "errors"

// New reports that global hotkeys are unavailable on this platform.
func New() (Manager, error) {
	return nil, errors.New("global hotkeys are not supported on this platform")
}
