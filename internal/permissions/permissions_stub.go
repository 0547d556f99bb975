//go:build !darwin

package permissions

import "github.com/petems/interview-preflight/internal/media"

// Check reports Authorized on platforms without a capture permission model.
func Check(kind media.DeviceKind) Status {
	return Authorized
}

// Request is a no-op on non-macOS platforms.
func Request(kind media.DeviceKind) {}

// Authorize is a no-op on non-macOS platforms.
func Authorize(kind media.DeviceKind) error {
	return nil
}

// CheckAccessibility always succeeds on non-macOS platforms.
func CheckAccessibility() (bool, error) {
	return true, nil
}
