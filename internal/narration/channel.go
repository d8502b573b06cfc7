// Package narration plays spoken narration: pre-recorded step clips, remotely synthesized
// speech, and a local speech fallback. At most one of them is active at any time.
package narration

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DaanHessen/basis-tower/internal/clock"
)

// ErrNoClip reports that no recording exists for a step. Playback skips silently.
var ErrNoClip = errors.New("no narration clip")

// Audio is encoded audio with its MIME type.
type Audio struct {
	Data        []byte
	ContentType string
}

type ClipSource interface {
	Load(stepID int) (Audio, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Track is a running playback. Stop must be safe to call more than once.
type Track interface {
	Stop()
}

// Player outputs encoded audio. onEnd is called once when playback finishes on its own.
// Cancelling ctx halts the track.
type Player interface {
	Play(ctx context.Context, a Audio, onEnd func(error)) (Track, error)
}

// Speaker is the on-device speech synthesizer used when remote synthesis fails.
type Speaker interface {
	Speak(ctx context.Context, text string, onStart func(), onEnd func(error)) (Track, error)
}

// Source names the mechanism behind the current playback.
type Source int

const (
	SourceNone Source = iota
	SourceClip
	SourceSynthesized
	SourceLocalSpeech
)

func (s Source) String() string {
	switch s {
	case SourceClip:
		return "step-clip"
	case SourceSynthesized:
		return "synthesized"
	case SourceLocalSpeech:
		return "local-speech"
	}
	return "none"
}

type State struct {
	Source   Source
	Speaking bool
}

type Config struct {
	Clips    ClipSource
	Synth    Synthesizer
	Player   Player
	Speaker  Speaker
	Logger   *zap.Logger
	OnChange func(State)
	// Run executes blocking backend work. Defaults to a new goroutine.
	Run func(func())
}

type playback struct {
	id     string
	group  *clock.Group
	ctx    context.Context
	cancel context.CancelFunc

	// track is handed over from backend goroutines, so it is guarded separately from
	// the scheduler-owned fields.
	mu       sync.Mutex
	track    Track
	released bool
}

// hold records tr as pb's live track. A playback that was already released stops tr
// instead and reports false.
func (pb *playback) hold(tr Track) bool {
	pb.mu.Lock()
	if pb.released {
		pb.mu.Unlock()
		tr.Stop()
		return false
	}
	pb.track = tr
	pb.mu.Unlock()
	return true
}

func (pb *playback) live() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.track != nil
}

// release marks pb finished and stops whatever track it holds.
func (pb *playback) release() {
	pb.mu.Lock()
	tr := pb.track
	pb.track = nil
	pb.released = true
	pb.mu.Unlock()
	if tr != nil {
		tr.Stop()
	}
}

// Channel owns the single playback resource. All methods must be called from the
// scheduler's goroutine; backend results are posted back onto it.
type Channel struct {
	sched *clock.Scheduler
	cfg   Config
	log   *zap.Logger

	muted bool
	state State
	cur   *playback
}

func NewChannel(sched *clock.Scheduler, cfg Config) *Channel {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Run == nil {
		cfg.Run = func(fn func()) { go fn() }
	}
	return &Channel{sched: sched, cfg: cfg, log: cfg.Logger}
}

func (c *Channel) State() State { return c.state }

func (c *Channel) Muted() bool { return c.muted }

// SetMuted gates future playback. Muting stops whatever is playing.
func (c *Channel) SetMuted(m bool) {
	c.muted = m
	if m {
		c.Stop()
	}
}

// Active reports how many audio mechanisms hold a live track. Never more than one.
func (c *Channel) Active() int {
	if c.cur != nil && c.cur.live() {
		return 1
	}
	return 0
}

// Stop halts the current playback, if any, and clears the speaking flag.
func (c *Channel) Stop() {
	if pb := c.cur; pb != nil {
		c.cur = nil
		c.teardown(pb)
	}
	c.set(State{})
}

// PlayStep plays the recorded clip for stepID. A missing clip is not an error.
func (c *Channel) PlayStep(stepID int) {
	c.Stop()
	if c.muted || c.cfg.Clips == nil || c.cfg.Player == nil {
		return
	}
	pb := c.begin(SourceClip)
	c.log.Debug("narration clip", zap.String("playback", pb.id), zap.Int("step", stepID))
	c.cfg.Run(func() {
		a, err := c.cfg.Clips.Load(stepID)
		if err != nil {
			pb.group.Post(func() { c.finish(pb, err) })
			return
		}
		if err := c.play(pb, a); err != nil {
			pb.group.Post(func() { c.finish(pb, err) })
		}
	})
}

// PlayDynamic speaks arbitrary text through the synthesizer, falling back to local speech
// on any synthesis failure.
func (c *Channel) PlayDynamic(text string) {
	c.Stop()
	if c.muted {
		return
	}
	pb := c.begin(SourceSynthesized)
	c.log.Debug("narration dynamic", zap.String("playback", pb.id), zap.Int("chars", len(text)))
	c.cfg.Run(func() {
		var err error
		if c.cfg.Synth == nil || c.cfg.Player == nil {
			err = errors.New("synthesis unavailable")
		} else {
			var a Audio
			if a, err = c.cfg.Synth.Synthesize(pb.ctx, text); err == nil {
				err = c.play(pb, a)
			}
		}
		if err != nil {
			pb.group.Post(func() { c.fallback(pb, text, err) })
		}
	})
}

func (c *Channel) begin(src Source) *playback {
	ctx, cancel := context.WithCancel(context.Background())
	pb := &playback{id: uuid.NewString(), group: c.sched.NewGroup(), ctx: ctx, cancel: cancel}
	c.cur = pb
	c.set(State{Source: src})
	return pb
}

// play starts a track off the loop. The track is held by pb before anything is posted,
// so it is stopped even if pb ends before the attach callback runs.
func (c *Channel) play(pb *playback, a Audio) error {
	tr, err := c.cfg.Player.Play(pb.ctx, a, func(err error) {
		pb.group.Post(func() { c.finish(pb, err) })
	})
	if err != nil {
		return err
	}
	if pb.hold(tr) {
		pb.group.Post(func() { c.attach(pb, true) })
	}
	return nil
}

func (c *Channel) fallback(pb *playback, text string, cause error) {
	if c.cur != pb {
		return
	}
	c.log.Info("synthesis failed, using local speech", zap.String("playback", pb.id), zap.Error(cause))
	if c.cfg.Speaker == nil {
		c.finish(pb, nil)
		return
	}
	c.set(State{Source: SourceLocalSpeech})
	c.cfg.Run(func() {
		tr, err := c.cfg.Speaker.Speak(pb.ctx, text,
			func() { pb.group.Post(func() { c.started(pb) }) },
			func(err error) { pb.group.Post(func() { c.finish(pb, err) }) },
		)
		if err != nil {
			pb.group.Post(func() { c.finish(pb, err) })
			return
		}
		if pb.hold(tr) {
			pb.group.Post(func() { c.attach(pb, false) })
		}
	})
}

func (c *Channel) attach(pb *playback, speaking bool) {
	if c.cur != pb {
		pb.release()
		return
	}
	if speaking {
		c.started(pb)
	}
}

func (c *Channel) started(pb *playback) {
	if c.cur != pb {
		return
	}
	s := c.state
	s.Speaking = true
	c.set(s)
}

// finish ends pb on natural completion or error and releases its track.
func (c *Channel) finish(pb *playback, err error) {
	if c.cur != pb {
		return
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrNoClip):
		c.log.Debug("no clip, skipping narration", zap.String("playback", pb.id))
	default:
		c.log.Warn("narration playback failed", zap.String("playback", pb.id), zap.Error(err))
	}
	c.cur = nil
	c.teardown(pb)
	c.set(State{})
}

func (c *Channel) teardown(pb *playback) {
	pb.group.Cancel()
	pb.cancel()
	pb.release()
}

func (c *Channel) set(s State) {
	if s == c.state {
		return
	}
	c.state = s
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(s)
	}
}
