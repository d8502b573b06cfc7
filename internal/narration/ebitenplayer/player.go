// Package ebitenplayer outputs narration audio through an Ebitengine audio context. It is
// kept apart from narration so headless binaries do not link the audio stack.
package ebitenplayer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"

	"github.com/DaanHessen/basis-tower/internal/narration"
)

const DefaultSampleRate = 48000

var _ narration.Player = (*Player)(nil)

// Player plays decoded audio through an Ebitengine audio context.
type Player struct {
	ctx  *audio.Context
	poll time.Duration
}

// New creates the process-wide audio context. Call it once.
func New(sampleRate int) *Player {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Player{ctx: audio.NewContext(sampleRate), poll: 50 * time.Millisecond}
}

func (p *Player) decode(a narration.Audio) (io.Reader, error) {
	r := bytes.NewReader(a.Data)
	sr := p.ctx.SampleRate()
	ct := strings.ToLower(a.ContentType)
	switch {
	case strings.Contains(ct, "wav"):
		return wav.DecodeWithSampleRate(sr, r)
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "vorbis"):
		return vorbis.DecodeWithSampleRate(sr, r)
	case ct == "", strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return mp3.DecodeWithSampleRate(sr, r)
	}
	return nil, fmt.Errorf("unsupported audio type %q", a.ContentType)
}

func (p *Player) Play(ctx context.Context, a narration.Audio, onEnd func(error)) (narration.Track, error) {
	stream, err := p.decode(a)
	if err != nil {
		return nil, fmt.Errorf("decode narration audio: %w", err)
	}
	pl, err := p.ctx.NewPlayer(stream)
	if err != nil {
		return nil, fmt.Errorf("create audio player: %w", err)
	}
	pl.Play()
	t := &audioTrack{player: pl, done: make(chan struct{})}
	release := context.AfterFunc(ctx, t.Stop)
	go t.watch(p.poll, onEnd, release)
	return t, nil
}

type audioTrack struct {
	player *audio.Player
	once   sync.Once
	done   chan struct{}
}

// Stop closes the player, releasing its buffers.
func (t *audioTrack) Stop() {
	t.once.Do(func() {
		close(t.done)
		_ = t.player.Close()
	})
}

func (t *audioTrack) watch(every time.Duration, onEnd func(error), release func() bool) {
	defer release()
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-tick.C:
			if !t.player.IsPlaying() {
				t.Stop()
				onEnd(nil)
				return
			}
		}
	}
}
