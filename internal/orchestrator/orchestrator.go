// Package orchestrator ties step selection, narration text, tower animation and audio together.
package orchestrator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DaanHessen/basis-tower/internal/clock"
	"github.com/DaanHessen/basis-tower/internal/lesson"
	"github.com/DaanHessen/basis-tower/internal/narration"
	"github.com/DaanHessen/basis-tower/internal/prefs"
	"github.com/DaanHessen/basis-tower/internal/tower"
	"github.com/DaanHessen/basis-tower/internal/typewriter"
)

const DefaultPlayDelay = 300 * time.Millisecond

// Narrator is the audio capability. *narration.Channel implements it.
type Narrator interface {
	PlayStep(stepID int)
	PlayDynamic(text string)
	Stop()
	SetMuted(muted bool)
	State() narration.State
}

type Config struct {
	Steps      *lesson.Store
	Sched      *clock.Scheduler
	Audio      Narrator
	Prefs      prefs.MuteStore
	Typewriter typewriter.Options
	Timing     tower.Timing
	PlayDelay  time.Duration
	Logger     *zap.Logger
	// OnChange is called after any state change so a renderer can redraw.
	OnChange func()
}

// Orchestrator owns the current step and the generation counter. Every method must be
// called from the scheduler's goroutine.
type Orchestrator struct {
	cfg   Config
	sched *clock.Scheduler
	log   *zap.Logger

	index      int
	generation int
	muted      bool
	stockDelta float64
	debtDelta  float64
	reaction   string
	phase      int

	text  *typewriter.Engine
	tower *tower.Controller
	play  *clock.Group
}

// New reads the mute preference once. A failed read falls back to unmuted.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PlayDelay <= 0 {
		cfg.PlayDelay = DefaultPlayDelay
	}
	if cfg.Timing == (tower.Timing{}) {
		cfg.Timing = tower.DefaultTiming()
	}
	o := &Orchestrator{cfg: cfg, sched: cfg.Sched, log: cfg.Logger}
	o.text = typewriter.New(cfg.Sched, cfg.Typewriter, o.onText)
	o.tower = tower.NewController(cfg.Sched, cfg.Timing, cfg.Logger.Named("tower"), o.changed)

	if cfg.Prefs != nil {
		muted, err := cfg.Prefs.LoadMuted()
		if err != nil {
			o.log.Warn("load mute preference", zap.Error(err))
		}
		o.muted = muted && err == nil
	}
	cfg.Audio.SetMuted(o.muted)
	return o
}

// Start shows the first step.
func (o *Orchestrator) Start() { o.show(0) }

// Next advances, wrapping past the last step to the first.
func (o *Orchestrator) Next() { o.show((o.index + 1) % o.cfg.Steps.Count()) }

// Prev goes back one step. On the first step it does nothing.
func (o *Orchestrator) Prev() {
	if o.index == 0 {
		return
	}
	o.show(o.index - 1)
}

// GoTo jumps to a step by index.
func (o *Orchestrator) GoTo(index int) error {
	if _, err := o.cfg.Steps.Get(index); err != nil {
		return err
	}
	o.show(index)
	return nil
}

// Skip reveals the rest of the narration at once.
func (o *Orchestrator) Skip() { o.text.Skip() }

// ToggleMute flips and persists the preference. Save failures are only logged.
func (o *Orchestrator) ToggleMute() {
	o.muted = !o.muted
	o.cfg.Audio.SetMuted(o.muted)
	if o.cfg.Prefs != nil {
		if err := o.cfg.Prefs.SaveMuted(o.muted); err != nil {
			o.log.Warn("save mute preference", zap.Bool("muted", o.muted), zap.Error(err))
		}
	}
	o.log.Info("mute toggled", zap.Bool("muted", o.muted))
	o.changed()
}

// Interact presses the step's i-th button: its delta is added to its stack and the
// reaction is spoken.
func (o *Orchestrator) Interact(i int) error {
	st := o.step()
	if i < 0 || i >= len(st.Buttons) {
		return fmt.Errorf("step %d has no button %d", st.ID, i)
	}
	b := st.Buttons[i]
	switch b.Stack {
	case lesson.StackDebt:
		o.debtDelta += b.Delta
	default:
		o.stockDelta += b.Delta
	}
	o.reaction = b.Reaction
	o.log.Debug("interact", zap.Int("step", st.ID), zap.String("button", b.Label))
	if b.Reaction != "" {
		o.cfg.Audio.PlayDynamic(b.Reaction)
	}
	o.changed()
	return nil
}

// ResetInteractive clears button adjustments on the current step.
func (o *Orchestrator) ResetInteractive() {
	o.stockDelta, o.debtDelta = 0, 0
	o.reaction = ""
	o.cfg.Audio.Stop()
	o.changed()
}

// Stop halts narration, typing and any pending step clip. Used on shutdown.
func (o *Orchestrator) Stop() {
	if o.play != nil {
		o.play.Cancel()
	}
	o.text.Stop()
	o.cfg.Audio.Stop()
}

// show performs a step change. It is the only place generation moves.
func (o *Orchestrator) show(index int) {
	st, err := o.cfg.Steps.Get(index)
	if err != nil {
		o.log.Error("show step", zap.Int("index", index), zap.Error(err))
		return
	}
	o.cfg.Audio.Stop()
	if o.play != nil {
		o.play.Cancel()
	}
	o.index = index
	o.generation++
	o.stockDelta, o.debtDelta = 0, 0
	o.reaction = ""
	o.phase = 0
	o.log.Info("step", zap.Int("index", index), zap.Int("id", st.ID), zap.Int("generation", o.generation))

	o.tower.Reset(st, o.generation)
	o.text.Start(st.Narration, o.generation)

	o.play = o.sched.NewGroup()
	o.play.After(o.cfg.PlayDelay, func() { o.cfg.Audio.PlayStep(st.ID) })
}

func (o *Orchestrator) onText(snap typewriter.Snapshot) {
	o.phase = tower.Resolve(o.step().Phases, snap.LineIndex)
	o.tower.SetTarget(o.phase)
	o.changed()
}

func (o *Orchestrator) step() lesson.Step {
	st, _ := o.cfg.Steps.Get(o.index)
	return st
}

func (o *Orchestrator) changed() {
	if o.cfg.OnChange != nil {
		o.cfg.OnChange()
	}
}

// View is a read-only snapshot for rendering.
type View struct {
	Index      int
	Count      int
	Generation int
	Step       lesson.Step
	Text       typewriter.Snapshot
	Target     int
	Tower      tower.Frame
	Muted      bool
	Audio      narration.State
	Reaction   string
	StockDelta float64
	DebtDelta  float64
	Now        time.Duration
}

func (o *Orchestrator) View() View {
	return View{
		Index:      o.index,
		Count:      o.cfg.Steps.Count(),
		Generation: o.generation,
		Step:       o.step(),
		Text:       o.text.Snapshot(),
		Target:     o.phase,
		Tower:      o.tower.Frame(tower.Adjust{Stock: o.stockDelta, Debt: o.debtDelta}),
		Muted:      o.muted,
		Audio:      o.cfg.Audio.State(),
		Reaction:   o.reaction,
		StockDelta: o.stockDelta,
		DebtDelta:  o.debtDelta,
		Now:        o.sched.Now(),
	}
}

// ReferenceMax exposes the content's height scale reference.
func (o *Orchestrator) ReferenceMax() float64 { return o.cfg.Steps.ReferenceMax() }
