package tower

import (
	"time"

	"go.uber.org/zap"

	"github.com/DaanHessen/basis-tower/internal/clock"
	"github.com/DaanHessen/basis-tower/internal/lesson"
)

type State int

const (
	Idle State = iota
	Entering
	Departing
	Queued
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Entering:
		return "entering"
	case Departing:
		return "departing"
	case Queued:
		return "queued"
	}
	return "unknown"
}

// Stage is the part of the departure overlay currently playing.
type Stage int

const (
	StageNone Stage = iota
	StageArriving
	StageHolding
	StageLeaving
)

type Timing struct {
	Arrive             time.Duration
	Hold               time.Duration
	Leave              time.Duration
	Settle             time.Duration
	EntranceBase       time.Duration
	EntrancePerSection time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Arrive:             400 * time.Millisecond,
		Hold:               1200 * time.Millisecond,
		Leave:              400 * time.Millisecond,
		Settle:             800 * time.Millisecond,
		EntranceBase:       500 * time.Millisecond,
		EntrancePerSection: 150 * time.Millisecond,
	}
}

func (t Timing) departure() time.Duration { return t.Arrive + t.Hold + t.Leave }

func (t Timing) entrance(sections int) time.Duration {
	if sections < 1 {
		sections = 1
	}
	return t.EntranceBase + time.Duration(sections-1)*t.EntrancePerSection
}

type departure struct {
	target int
	blocks []lesson.Block
	start  time.Duration
}

// Controller owns the displayed tower for one step render. The displayed phase only
// changes on Reset, on an immediate commit from Idle, or when a departure finishes.
type Controller struct {
	sched    *clock.Scheduler
	timing   Timing
	log      *zap.Logger
	onChange func()

	group      *clock.Group
	step       lesson.Step
	generation int

	displayed int
	requested int

	entering    *clock.Timer
	enterStart  time.Duration
	enterLength time.Duration

	departing *departure
	queued    int
	hasQueued bool
	settle    *clock.Timer
}

func NewController(sched *clock.Scheduler, timing Timing, log *zap.Logger, onChange func()) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{sched: sched, timing: timing, log: log, onChange: onChange}
}

// Reset is the only hard reset: it drops any departure, queue and entrance of the previous
// render and starts the entrance of the step's first phase.
func (c *Controller) Reset(step lesson.Step, generation int) {
	if c.group != nil {
		c.group.Cancel()
	}
	c.group = c.sched.NewGroup()
	c.step = step
	c.generation = generation
	c.displayed = 0
	c.requested = 0
	c.departing = nil
	c.hasQueued = false
	c.settle = nil

	n := 0
	if len(step.Phases) > 0 {
		n = len(step.Phases[0].Sections)
	}
	c.enterStart = c.sched.Now()
	c.enterLength = c.timing.entrance(n)
	c.entering = c.group.After(c.enterLength, func() {
		c.entering = nil
		c.notify()
	})
	c.log.Debug("tower reset", zap.Int("step", step.ID), zap.Int("generation", generation))
	c.notify()
}

// SetTarget hands the controller the resolver's latest output. Repeating the last
// requested target does nothing.
func (c *Controller) SetTarget(index int) {
	if len(c.step.Phases) == 0 {
		return
	}
	index = min(max(index, 0), len(c.step.Phases)-1)
	if index == c.requested {
		return
	}
	c.requested = index

	switch c.State() {
	case Entering:
		c.entering.Cancel()
		c.entering = nil
		c.process(index)
	case Idle:
		c.process(index)
	default:
		c.queued = index
		c.hasQueued = true
		c.log.Debug("tower target queued", zap.Int("phase", index))
		c.notify()
	}
}

func (c *Controller) process(index int) {
	if index == c.displayed {
		c.notify()
		return
	}
	target := c.step.Phases[index]
	if len(target.Departing) == 0 {
		c.displayed = index
		c.log.Debug("tower commit", zap.Int("phase", index))
		c.notify()
		return
	}
	d := &departure{target: index, blocks: target.Departing, start: c.sched.Now()}
	c.departing = d
	c.group.After(c.timing.departure(), func() { c.finishDeparture(d) })
	c.log.Debug("tower departure", zap.Int("phase", index), zap.Int("blocks", len(d.blocks)))
	c.notify()
}

func (c *Controller) finishDeparture(d *departure) {
	c.displayed = d.target
	c.departing = nil
	c.log.Debug("tower commit", zap.Int("phase", d.target))
	if c.hasQueued {
		c.settle = c.group.After(c.timing.Settle, func() {
			c.settle = nil
			next := c.queued
			c.hasQueued = false
			c.process(next)
		})
	}
	c.notify()
}

// State derives the machine state from the pending work.
func (c *Controller) State() State {
	switch {
	case c.hasQueued:
		return Queued
	case c.departing != nil:
		return Departing
	case c.entering != nil:
		return Entering
	}
	return Idle
}

// Displayed is the index of the committed phase.
func (c *Controller) Displayed() int { return c.displayed }

func (c *Controller) Generation() int { return c.generation }

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Adjust carries additive deltas applied on top of the displayed totals.
type Adjust struct {
	Stock float64
	Debt  float64
}

// Frame is everything a renderer needs at one instant.
type Frame struct {
	State      State
	Generation int
	StepID     int
	Phase      int

	Stock []lesson.Section
	Debt  []lesson.Section

	StockTotal     float64
	DebtTotal      float64
	SuspendedLoss  float64
	CapitalGain    float64
	OrdinaryIncome float64
	ShowDebt       bool
	FlashZero      bool
	BelowGround    *lesson.Block

	Departing      []lesson.Block
	DepartStage    Stage
	DepartProgress float64

	Entrance float64
}

// Frame snapshots the displayed state with adj applied. Totals never go below zero.
func (c *Controller) Frame(adj Adjust) Frame {
	f := Frame{State: c.State(), Generation: c.generation, StepID: c.step.ID, Phase: c.displayed, Entrance: 1}
	if len(c.step.Phases) == 0 {
		return f
	}
	p := c.step.Phases[c.displayed]
	f.Stock = p.SectionsIn(lesson.StackStock)
	f.Debt = p.SectionsIn(lesson.StackDebt)
	f.StockTotal = Clamp(p.StockTotal + adj.Stock)
	f.DebtTotal = Clamp(p.DebtTotal + adj.Debt)
	f.SuspendedLoss = Clamp(lesson.Value(p.SuspendedLoss))
	f.CapitalGain = Clamp(lesson.Value(p.CapitalGain))
	f.OrdinaryIncome = Clamp(lesson.Value(p.OrdinaryIncome))
	f.ShowDebt = p.ShowDebtStack || adj.Debt != 0
	f.FlashZero = p.FlashZero && f.StockTotal == 0
	f.BelowGround = p.BelowGround

	now := c.sched.Now()
	if c.entering != nil && c.enterLength > 0 {
		f.Entrance = min(float64(now-c.enterStart)/float64(c.enterLength), 1)
	}
	if d := c.departing; d != nil {
		f.Departing = d.blocks
		f.DepartStage, f.DepartProgress = c.stage(now - d.start)
	}
	return f
}

func (c *Controller) stage(elapsed time.Duration) (Stage, float64) {
	t := c.timing
	frac := func(v, total time.Duration) float64 {
		if total <= 0 {
			return 1
		}
		return min(float64(v)/float64(total), 1)
	}
	switch {
	case elapsed < t.Arrive:
		return StageArriving, frac(elapsed, t.Arrive)
	case elapsed < t.Arrive+t.Hold:
		return StageHolding, frac(elapsed-t.Arrive, t.Hold)
	default:
		return StageLeaving, frac(elapsed-t.Arrive-t.Hold, t.Leave)
	}
}
