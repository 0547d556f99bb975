package app

import "fmt"

// GateRule combines audio and video readiness into MediaReady.
type GateRule string

const (
	// GateAudio opens on a live microphone alone.
	GateAudio GateRule = "audio"
	// GateAudioAndVideo requires both devices live.
	GateAudioAndVideo GateRule = "audio+video"
	// GateAudioAndRequestedVideo requires the camera only while its toggle is on.
	GateAudioAndRequestedVideo GateRule = "audio+requested-video"
)

// ParseGateRule validates a configured rule name. Empty selects GateAudio.
func ParseGateRule(s string) (GateRule, error) {
	switch r := GateRule(s); r {
	case "":
		return GateAudio, nil
	case GateAudio, GateAudioAndVideo, GateAudioAndRequestedVideo:
		return r, nil
	}
	return "", fmt.Errorf("unknown gate rule %q", s)
}

// Evaluate returns MediaReady for the given device states.
func (r GateRule) Evaluate(audioReady, videoReady, videoRequested bool) bool {
	switch r {
	case GateAudioAndVideo:
		return audioReady && videoReady
	case GateAudioAndRequestedVideo:
		return audioReady && (!videoRequested || videoReady)
	default:
		return audioReady
	}
}

// Describe explains what the rule is waiting for.
func (r GateRule) Describe() string {
	switch r {
	case GateAudioAndVideo:
		return "microphone and camera must be live"
	case GateAudioAndRequestedVideo:
		return "microphone must be live, and the camera too when it is switched on"
	default:
		return "microphone must be live"
	}
}
