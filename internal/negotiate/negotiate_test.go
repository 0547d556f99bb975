package negotiate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/petems/interview-preflight/internal/devices"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/petems/interview-preflight/internal/media/mediatest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNegotiator(p *mediatest.Platform, ladder []Profile) *Negotiator {
	return New(p, devices.New(p, zerolog.Nop()), ladder, zerolog.Nop())
}

func TestFirstValidatedProfileWins(t *testing.T) {
	for k := 0; k < 3; k++ {
		t.Run(fmt.Sprintf("success at %d", k), func(t *testing.T) {
			p := mediatest.NewPlatform()
			var rejected []*mediatest.Track
			for i := 0; i < k; i++ {
				tr := mediatest.NewEndedTrack(fmt.Sprintf("bad-%d", i), media.KindVideo)
				rejected = append(rejected, tr)
				p.VideoScript = append(p.VideoScript, mediatest.Response{Stream: mediatest.NewStream(tr)})
			}
			winner := mediatest.NewTrack("good", media.KindVideo)
			p.VideoScript = append(p.VideoScript, mediatest.Response{Stream: mediatest.NewStream(winner)})

			s, err := newNegotiator(p, nil).AcquireVideo(context.Background(), "")
			require.NoError(t, err)
			require.NotNil(t, s)

			assert.Equal(t, k+1, p.RequestCount(), "no profile after the winner may be attempted")
			assert.False(t, winner.Stopped(), "the winning stream is handed over un-released")
			assert.Equal(t, media.KindVideo, s.Kind)
			for _, tr := range rejected {
				assert.Equal(t, 1, tr.Stops(), "rejected attempts are stopped by the negotiator")
			}
		})
	}
}

func TestEmptyEnumerationShortCircuits(t *testing.T) {
	p := mediatest.NewPlatform()
	p.Devices = []media.Device{{ID: "mic-0", Kind: media.KindAudio}}

	s, err := newNegotiator(p, nil).AcquireVideo(context.Background(), "")
	assert.Nil(t, s)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, media.DeviceNotFound, f.Err.Kind)
	assert.True(t, f.ContinueAudioOnly)
	assert.Zero(t, p.RequestCount())
	assert.ErrorIs(t, err, media.ErrDeviceNotFound)
}

func TestLastErrorIsReported(t *testing.T) {
	p := mediatest.NewPlatform()
	p.VideoScript = []mediatest.Response{
		{Err: fmt.Errorf("OverconstrainedError: %w", media.ErrConstraintsNotSatisfiable)},
		{Err: errors.New("NotAllowedError: Permission denied")},
	}
	ladder := []Profile{
		{Name: "basic", Width: 640, Height: 480},
		{Name: "pinned", Width: 640, Height: 480, PinDevice: true},
	}

	_, err := newNegotiator(p, ladder).AcquireVideo(context.Background(), "")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, media.PermissionDenied, f.Err.Kind)
	assert.Equal(t, 2, f.Attempts)
	assert.True(t, f.ContinueAudioOnly)
}

func TestZeroTrackStreamIsRejected(t *testing.T) {
	p := mediatest.NewPlatform()
	p.VideoScript = []mediatest.Response{
		{Stream: mediatest.NewStream()},
		{Stream: mediatest.NewStream(mediatest.NewTrack("ok", media.KindVideo))},
	}

	s, err := newNegotiator(p, nil).AcquireVideo(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, s.Tracks(), 1)
	assert.Equal(t, 2, p.RequestCount())
}

func TestPartiallyLiveStreamIsStopped(t *testing.T) {
	live := mediatest.NewTrack("live", media.KindVideo)
	dead := mediatest.NewEndedTrack("dead", media.KindVideo)

	p := mediatest.NewPlatform()
	p.VideoScript = []mediatest.Response{{Stream: mediatest.NewStream(live, dead)}}

	_, err := newNegotiator(p, []Profile{{Name: "only"}}).AcquireVideo(context.Background(), "")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, media.ConstraintsNotSatisfiable, f.Err.Kind)
	assert.True(t, live.Stopped())
	assert.True(t, dead.Stopped())
}

func TestPinnedProfilesUsePreferredDevice(t *testing.T) {
	p := mediatest.NewPlatform()
	p.Devices = append(p.Devices, media.Device{ID: "cam-1", Kind: media.KindVideo})

	_, err := newNegotiator(p, nil).AcquireVideo(context.Background(), "cam-1")
	require.Error(t, err)

	reqs := p.Requests()
	require.Len(t, reqs, 3)
	assert.Empty(t, reqs[0].Video.DeviceID)
	assert.Equal(t, "cam-1", reqs[1].Video.DeviceID)
	assert.Equal(t, "cam-1", reqs[2].Video.DeviceID)
	assert.Equal(t, 1280, reqs[2].Video.Width)
}

func TestPinnedProfilesFallBackToFirstDevice(t *testing.T) {
	p := mediatest.NewPlatform()

	_, err := newNegotiator(p, nil).AcquireVideo(context.Background(), "unplugged")
	require.Error(t, err)

	reqs := p.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "cam-0", reqs[1].Video.DeviceID)
}

func TestCanceledContextStopsLadder(t *testing.T) {
	p := mediatest.NewPlatform()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newNegotiator(p, nil).AcquireVideo(ctx, "")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Zero(t, p.RequestCount())
	assert.ErrorIs(t, err, context.Canceled)
}
