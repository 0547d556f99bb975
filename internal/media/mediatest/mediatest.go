// Package mediatest provides a scripted media.Platform, fake tracks and a
// manual scheduler for tests.
package mediatest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petems/interview-preflight/internal/media"
)

// Track is a fake media.Track that counts Stop calls.
type Track struct {
	id    string
	kind  media.DeviceKind
	label string
	ended atomic.Bool
	stops atomic.Int32
}

// NewTrack returns a live track.
func NewTrack(id string, kind media.DeviceKind) *Track {
	return &Track{id: id, kind: kind, label: id}
}

// NewEndedTrack returns a track that is already ended.
func NewEndedTrack(id string, kind media.DeviceKind) *Track {
	t := NewTrack(id, kind)
	t.ended.Store(true)
	return t
}

func (t *Track) ID() string             { return t.id }
func (t *Track) Kind() media.DeviceKind { return t.kind }
func (t *Track) Label() string          { return t.label }

func (t *Track) ReadyState() media.ReadyState {
	if t.ended.Load() {
		return media.ReadyStateEnded
	}
	return media.ReadyStateLive
}

func (t *Track) Stop() {
	t.stops.Add(1)
	t.ended.Store(true)
}

// End simulates the device going away.
func (t *Track) End() { t.ended.Store(true) }

// Stops returns how many times Stop was called.
func (t *Track) Stops() int { return int(t.stops.Load()) }

// Stopped reports whether Stop was called at least once.
func (t *Track) Stopped() bool { return t.Stops() > 0 }

// Stream is a fake media.Stream.
type Stream struct {
	tracks []media.Track
}

// NewStream bundles tracks into a stream.
func NewStream(tracks ...*Track) *Stream {
	s := &Stream{}
	for _, t := range tracks {
		s.tracks = append(s.tracks, t)
	}
	return s
}

func (s *Stream) Tracks() []media.Track { return s.tracks }

// Response is a scripted result of one RequestCapture call.
type Response struct {
	Stream *Stream
	Err    error
}

// Platform is a scripted media.Platform.
//
// Video requests consume VideoScript in order; once it is exhausted every
// further request fails with ErrConstraintsNotSatisfiable. Audio requests
// return AudioErr if set, otherwise a fresh live stream with one track.
type Platform struct {
	Devices      []media.Device
	EnumerateErr error
	VideoScript  []Response
	AudioErr     error
	ContextErr   error

	// Hold, when non-nil, blocks RequestCapture until it is closed. The
	// wait ignores the request context, like a permission prompt would.
	Hold chan struct{}
	// Entered receives once per RequestCapture that reached Hold.
	Entered chan struct{}

	Graph *Graph

	mu          sync.Mutex
	requests    []media.Constraints
	enumerates  int
	videoCalls  int
	audioTracks []*Track
}

// NewPlatform returns a platform with one microphone and one camera.
func NewPlatform() *Platform {
	return &Platform{
		Devices: []media.Device{
			{ID: "mic-0", Kind: media.KindAudio, Label: "Built-in Microphone"},
			{ID: "cam-0", Kind: media.KindVideo, Label: "FaceTime HD Camera"},
		},
		Graph: NewGraph(),
	}
}

func (p *Platform) EnumerateDevices(ctx context.Context) ([]media.Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enumerates++
	if p.EnumerateErr != nil {
		return nil, p.EnumerateErr
	}
	out := make([]media.Device, len(p.Devices))
	copy(out, p.Devices)
	return out, nil
}

func (p *Platform) RequestCapture(ctx context.Context, c media.Constraints) (media.Stream, error) {
	p.mu.Lock()
	p.requests = append(p.requests, c)
	hold, entered := p.Hold, p.Entered
	p.mu.Unlock()

	if hold != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-hold
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c.Video != nil {
		i := p.videoCalls
		p.videoCalls++
		if i >= len(p.VideoScript) {
			return nil, fmt.Errorf("video request %d: %w", i, media.ErrConstraintsNotSatisfiable)
		}
		r := p.VideoScript[i]
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Stream, nil
	}

	if p.AudioErr != nil {
		return nil, p.AudioErr
	}
	t := NewTrack(fmt.Sprintf("mic-track-%d", len(p.audioTracks)), media.KindAudio)
	p.audioTracks = append(p.audioTracks, t)
	return NewStream(t), nil
}

func (p *Platform) NewAudioContext(sampleRate int) (media.AudioContext, error) {
	if p.ContextErr != nil {
		return nil, p.ContextErr
	}
	return p.Graph.newContext(sampleRate), nil
}

// Requests returns every constraint set passed to RequestCapture.
func (p *Platform) Requests() []media.Constraints {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]media.Constraints, len(p.requests))
	copy(out, p.requests)
	return out
}

// RequestCount returns the number of RequestCapture calls.
func (p *Platform) RequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// EnumerateCount returns the number of EnumerateDevices calls.
func (p *Platform) EnumerateCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enumerates
}

// AudioTracks returns every microphone track handed out so far.
func (p *Platform) AudioTracks() []*Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Track, len(p.audioTracks))
	copy(out, p.audioTracks)
	return out
}

// Graph records audio graph activity across every context it creates.
type Graph struct {
	mu         sync.Mutex
	energy     byte
	contexts   int
	closes     int
	analysers  int
	sources    int
	disconnect int
	live       int
	maxLive    int
	SourceErr  error
}

// NewGraph returns an empty graph recorder.
func NewGraph() *Graph {
	return &Graph{}
}

// SetEnergy sets the value every analyser bin reports.
func (g *Graph) SetEnergy(v byte) {
	g.mu.Lock()
	g.energy = v
	g.mu.Unlock()
}

// GraphStats is a snapshot of graph activity.
type GraphStats struct {
	Contexts      int
	Closes        int
	Analysers     int
	Sources       int
	Disconnects   int
	LiveAnalysers int
	MaxLive       int
}

// Stats returns a snapshot of graph activity.
func (g *Graph) Stats() GraphStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GraphStats{
		Contexts:      g.contexts,
		Closes:        g.closes,
		Analysers:     g.analysers,
		Sources:       g.sources,
		Disconnects:   g.disconnect,
		LiveAnalysers: g.live,
		MaxLive:       g.maxLive,
	}
}

func (g *Graph) newContext(sampleRate int) *audioContext {
	g.mu.Lock()
	g.contexts++
	g.mu.Unlock()
	return &audioContext{graph: g}
}

type audioContext struct {
	graph  *Graph
	closed atomic.Bool
}

func (c *audioContext) CreateSource(s media.Stream) (media.Node, error) {
	g := c.graph
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SourceErr != nil {
		return nil, g.SourceErr
	}
	g.sources++
	return &node{graph: g}, nil
}

func (c *audioContext) CreateAnalyser() (media.Analyser, error) {
	g := c.graph
	g.mu.Lock()
	defer g.mu.Unlock()
	g.analysers++
	g.live++
	if g.live > g.maxLive {
		g.maxLive = g.live
	}
	return &analyser{node: node{graph: g}}, nil
}

func (c *audioContext) Close() <-chan error {
	done := make(chan error, 1)
	if c.closed.CompareAndSwap(false, true) {
		c.graph.mu.Lock()
		c.graph.closes++
		c.graph.mu.Unlock()
	}
	done <- nil
	close(done)
	return done
}

type node struct {
	graph        *Graph
	disconnected atomic.Bool
	connected    atomic.Bool
}

func (n *node) Connect(dst media.Node) error {
	n.connected.Store(true)
	return nil
}

func (n *node) Disconnect() {
	n.disconnected.Store(true)
}

type analyser struct {
	node
}

func (a *analyser) Disconnect() {
	if !a.disconnected.CompareAndSwap(false, true) {
		return
	}
	g := a.graph
	g.mu.Lock()
	g.disconnect++
	g.live--
	g.mu.Unlock()
}

func (a *analyser) FrequencyBinCount() int { return 32 }

func (a *analyser) ByteFrequencyData(dst []byte) {
	if a.disconnected.Load() {
		panic("mediatest: analyser read after disconnect")
	}
	a.graph.mu.Lock()
	v := a.graph.energy
	a.graph.mu.Unlock()
	for i := range dst {
		dst[i] = v
	}
}

// Scheduler is a manual media.Scheduler. Callbacks only run from Tick.
type Scheduler struct {
	mu      sync.Mutex
	pending []*timer
	delays  []time.Duration
}

type timer struct {
	fn      func()
	stopped atomic.Bool
}

func (t *timer) Stop() bool {
	return t.stopped.CompareAndSwap(false, true)
}

func (s *Scheduler) AfterFunc(d time.Duration, fn func()) media.Timer {
	t := &timer{fn: fn}
	s.mu.Lock()
	s.pending = append(s.pending, t)
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return t
}

// Tick runs every callback scheduled before the call and returns how many
// ran. Callbacks scheduled while ticking wait for the next Tick.
func (s *Scheduler) Tick() int {
	s.mu.Lock()
	due := s.pending
	s.pending = nil
	s.mu.Unlock()

	ran := 0
	for _, t := range due {
		if t.stopped.Load() {
			continue
		}
		t.fn()
		ran++
	}
	return ran
}

// Pending returns the number of scheduled callbacks that have not been stopped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.stopped.Load() {
			n++
		}
	}
	return n
}

// Delays returns the delay of every AfterFunc call.
func (s *Scheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}
