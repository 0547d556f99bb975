//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int checkCapturePermission(int video) {
    AVMediaType type = video ? AVMediaTypeVideo : AVMediaTypeAudio;
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:type];
    return (int)status;
}

void requestCapturePermission(int video) {
    AVMediaType type = video ? AVMediaTypeVideo : AVMediaTypeAudio;
    [AVCaptureDevice requestAccessForMediaType:type completionHandler:^(BOOL granted) {}];
}

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

import (
	"fmt"

	"github.com/petems/interview-preflight/internal/media"
)

// Check returns the current capture permission status for kind
func Check(kind media.DeviceKind) Status {
	return Status(C.checkCapturePermission(videoFlag(kind)))
}

// Request triggers the system permission dialog for kind
func Request(kind media.DeviceKind) {
	C.requestCapturePermission(videoFlag(kind))
}

func videoFlag(kind media.DeviceKind) C.int {
	if kind == media.KindVideo {
		return 1
	}
	return 0
}

// Authorize fails with media.ErrPermissionDenied when the user has denied
// or restricted capture for kind. An undetermined status triggers the
// system prompt and lets the capture attempt proceed; the OS blocks it
// until the user answers.
func Authorize(kind media.DeviceKind) error {
	switch status := Check(kind); status {
	case Authorized:
		return nil
	case NotDetermined:
		Request(kind)
		return nil
	default:
		return fmt.Errorf("%s capture is %s in System Settings: %w", kind, status, media.ErrPermissionDenied)
	}
}

// CheckAccessibility checks if the app has accessibility permissions (needed for hotkeys)
func CheckAccessibility() (bool, error) {
	status := int(C.checkAccessibilityPermission())
	return status == 1, nil
}
