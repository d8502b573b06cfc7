package narration

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DaanHessen/basis-tower/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrack struct {
	kind    string
	stopped bool
	live    *int
}

func (t *fakeTrack) Stop() {
	if !t.stopped {
		t.stopped = true
		*t.live--
	}
}

// backend fakes every mechanism and counts live tracks across all of them.
type backend struct {
	live     int
	tracks   []*fakeTrack
	clips    map[int]Audio
	synthErr error
	ends     []func(error)
	spoken   []string
	starts   []func()
	// endEarly makes Play report the end before it returns the track.
	endEarly bool
}

func (b *backend) newTrack(kind string) *fakeTrack {
	b.live++
	t := &fakeTrack{kind: kind, live: &b.live}
	b.tracks = append(b.tracks, t)
	return t
}

func (b *backend) Load(id int) (Audio, error) {
	a, ok := b.clips[id]
	if !ok {
		return Audio{}, ErrNoClip
	}
	return a, nil
}

func (b *backend) Synthesize(_ context.Context, text string) (Audio, error) {
	if b.synthErr != nil {
		return Audio{}, b.synthErr
	}
	return Audio{Data: []byte(text), ContentType: "audio/mpeg"}, nil
}

func (b *backend) Play(_ context.Context, a Audio, onEnd func(error)) (Track, error) {
	b.ends = append(b.ends, onEnd)
	tr := b.newTrack("player:" + string(a.Data))
	if b.endEarly {
		onEnd(nil)
	}
	return tr, nil
}

func (b *backend) Speak(_ context.Context, text string, onStart func(), onEnd func(error)) (Track, error) {
	b.spoken = append(b.spoken, text)
	b.starts = append(b.starts, onStart)
	b.ends = append(b.ends, onEnd)
	return b.newTrack("speech"), nil
}

func newChannel(t *testing.T) (*clock.Scheduler, *Channel, *backend) {
	t.Helper()
	s := clock.New()
	b := &backend{clips: map[int]Audio{1: {Data: []byte("clip1"), ContentType: "audio/mpeg"}}}
	c := NewChannel(s, Config{
		Clips:   b,
		Synth:   b,
		Player:  b,
		Speaker: b,
		Run:     func(fn func()) { fn() },
	})
	return s, c, b
}

func TestPlayStepSpeaksUntilEnd(t *testing.T) {
	s, c, b := newChannel(t)
	c.PlayStep(1)
	s.Drain()

	assert.Equal(t, State{Source: SourceClip, Speaking: true}, c.State())
	assert.Equal(t, 1, c.Active())

	b.ends[0](nil)
	s.Drain()
	assert.Equal(t, State{}, c.State())
	assert.Equal(t, 0, c.Active())
	assert.Equal(t, 0, b.live)
}

func TestMissingClipIsSilentSkip(t *testing.T) {
	s, c, b := newChannel(t)
	c.PlayStep(42)
	s.Drain()
	assert.False(t, c.State().Speaking)
	assert.Equal(t, SourceNone, c.State().Source)
	assert.Empty(t, b.tracks)
}

func TestMuteGating(t *testing.T) {
	s, c, b := newChannel(t)
	var speaking bool
	c.cfg.OnChange = func(st State) { speaking = speaking || st.Speaking }

	c.SetMuted(true)
	c.PlayStep(1)
	c.PlayDynamic("hello")
	s.Drain()

	assert.False(t, speaking)
	assert.Empty(t, b.tracks)
}

func TestMutingStopsPlayback(t *testing.T) {
	s, c, b := newChannel(t)
	c.PlayStep(1)
	s.Drain()
	require.True(t, c.State().Speaking)

	c.SetMuted(true)
	assert.False(t, c.State().Speaking)
	assert.Equal(t, 0, b.live)
}

func TestDynamicUsesSynthesizedAudio(t *testing.T) {
	s, c, b := newChannel(t)
	c.PlayDynamic("nice")
	s.Drain()
	assert.Equal(t, State{Source: SourceSynthesized, Speaking: true}, c.State())
	require.Len(t, b.tracks, 1)
	assert.Equal(t, "player:nice", b.tracks[0].kind)

	// synthesized tracks are released when they end
	b.ends[0](nil)
	s.Drain()
	assert.True(t, b.tracks[0].stopped)
}

func TestSynthesisFailureFallsBackToLocalSpeech(t *testing.T) {
	s, c, b := newChannel(t)
	b.synthErr = errors.New("upstream 503")
	c.PlayDynamic("fallback please")
	s.Drain()

	assert.Equal(t, []string{"fallback please"}, b.spoken)
	assert.Equal(t, SourceLocalSpeech, c.State().Source)
	assert.False(t, c.State().Speaking, "speaking waits for the speech start event")

	b.starts[0]()
	s.Drain()
	assert.True(t, c.State().Speaking)

	b.ends[0](nil)
	s.Drain()
	assert.Equal(t, State{}, c.State())
}

func TestAtMostOneMechanism(t *testing.T) {
	s, c, b := newChannel(t)
	steps := []func(){
		func() { c.PlayStep(1) },
		func() { c.PlayDynamic("a") },
		func() { b.synthErr = errors.New("down"); c.PlayDynamic("b") },
		func() { c.PlayStep(1) },
		func() { c.Stop() },
		func() { c.Stop() },
		func() { b.synthErr = nil; c.PlayDynamic("c") },
		func() { c.PlayStep(42) },
	}
	for i, step := range steps {
		step()
		s.Drain()
		assert.LessOrEqual(t, b.live, 1, "step %d", i)
		assert.LessOrEqual(t, c.Active(), 1, "step %d", i)
	}
}

func TestStaleEndEventIsDropped(t *testing.T) {
	s, c, b := newChannel(t)
	c.PlayStep(1)
	s.Drain()
	c.PlayDynamic("second")
	s.Drain()
	require.True(t, c.State().Speaking)

	// the first clip reports its end after it was superseded
	b.ends[0](nil)
	s.Drain()
	assert.Equal(t, State{Source: SourceSynthesized, Speaking: true}, c.State())
}

func TestTrackArrivingAfterStopIsHalted(t *testing.T) {
	s, c, b := newChannel(t)
	var pending func()
	c.cfg.Run = func(fn func()) { pending = fn }

	c.PlayStep(1)
	c.Stop()
	pending()
	s.Drain()

	require.Len(t, b.tracks, 1)
	assert.True(t, b.tracks[0].stopped)
	assert.Equal(t, State{}, c.State())
}

func TestTrackEndingBeforeAttachIsReleased(t *testing.T) {
	s, c, b := newChannel(t)
	b.endEarly = true

	c.PlayDynamic("hi")
	s.Drain()

	require.Len(t, b.tracks, 1)
	assert.True(t, b.tracks[0].stopped)
	assert.Equal(t, 0, b.live)
	assert.Equal(t, 0, c.Active())
	assert.Equal(t, State{}, c.State())

	c.PlayStep(1)
	s.Drain()
	require.Len(t, b.tracks, 2)
	assert.True(t, b.tracks[1].stopped)
	assert.Equal(t, 0, b.live)
}

func TestStopWhenIdle(t *testing.T) {
	_, c, _ := newChannel(t)
	assert.NotPanics(t, func() {
		c.Stop()
		c.Stop()
	})
	assert.Equal(t, State{}, c.State())
}

func TestFSClips(t *testing.T) {
	clips := FSClips{FS: fstest.MapFS{
		"step-1.mp3": {Data: []byte("m")},
		"step-2.wav": {Data: []byte("w")},
	}}
	a, err := clips.Load(1)
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", a.ContentType)

	a, err = clips.Load(2)
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", a.ContentType)

	_, err = clips.Load(3)
	assert.ErrorIs(t, err, ErrNoClip)

	_, err = FSClips{}.Load(1)
	assert.ErrorIs(t, err, ErrNoClip)
}

func TestClipExtFollowsContentType(t *testing.T) {
	cases := map[string]string{
		"":                           ".mp3",
		"audio/mpeg":                 ".mp3",
		"Audio/MPEG; charset=binary": ".mp3",
		"audio/wav":                  ".wav",
		"audio/x-wav":                ".wav",
		"audio/ogg; codecs=vorbis":   ".ogg",
	}
	for ct, want := range cases {
		got, err := ClipExt(ct)
		require.NoError(t, err, ct)
		assert.Equal(t, want, got, ct)
	}
	_, err := ClipExt("text/html")
	assert.Error(t, err)
}

func TestClipWrittenByTypeLoadsWithThatType(t *testing.T) {
	ext, err := ClipExt("audio/x-wav")
	require.NoError(t, err)
	clips := FSClips{FS: fstest.MapFS{ClipName(4) + ext: {Data: []byte("w")}}}
	a, err := clips.Load(4)
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", a.ContentType)
}
