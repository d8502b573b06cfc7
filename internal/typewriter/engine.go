// Package typewriter reveals narration one character at a time on the shared scheduler.
package typewriter

import (
	"time"

	"github.com/DaanHessen/basis-tower/internal/clock"
)

const (
	DefaultCharDelay = 25 * time.Millisecond
	DefaultLineDelay = 400 * time.Millisecond
)

type Options struct {
	CharDelay time.Duration
	LineDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.CharDelay <= 0 {
		o.CharDelay = DefaultCharDelay
	}
	if o.LineDelay <= 0 {
		o.LineDelay = DefaultLineDelay
	}
	return o
}

// Snapshot is an immutable view of a run. The last entry of Lines may be partial.
type Snapshot struct {
	Lines     []string
	LineIndex int
	Complete  bool
}

// Engine owns a single reveal run at a time. Every transition cancels the run's timer
// group first so a timer from an older run can never touch a newer one.
type Engine struct {
	sched    *clock.Scheduler
	opts     Options
	onChange func(Snapshot)

	group   *clock.Group
	token   int
	started bool

	lines     [][]rune
	source    []string
	revealed  []string
	lineIndex int
	charIndex int
	complete  bool
}

// New creates an idle engine. onChange may be nil.
func New(sched *clock.Scheduler, opts Options, onChange func(Snapshot)) *Engine {
	return &Engine{sched: sched, opts: opts.withDefaults(), onChange: onChange}
}

// Start begins revealing lines. A token equal to the previous one leaves the running
// reveal alone.
func (e *Engine) Start(lines []string, token int) {
	if e.started && e.token == token {
		return
	}
	e.cancel()
	e.group = e.sched.NewGroup()
	e.token = token
	e.started = true

	e.source = append([]string(nil), lines...)
	e.lines = make([][]rune, len(lines))
	for i, l := range lines {
		e.lines[i] = []rune(l)
	}
	e.revealed = nil
	e.lineIndex = 0
	e.charIndex = 0
	e.complete = false

	if len(e.lines) == 0 {
		e.complete = true
		e.emit()
		return
	}
	e.revealed = append(e.revealed, "")
	e.schedule()
	e.emit()
}

// Skip reveals everything at once. Calling it on a complete run changes nothing.
func (e *Engine) Skip() {
	if !e.started {
		return
	}
	if !e.complete {
		e.cancel()
		e.revealed = append([]string(nil), e.source...)
		e.lineIndex = max(len(e.source)-1, 0)
		e.charIndex = 0
		if n := len(e.lines); n > 0 {
			e.charIndex = len(e.lines[n-1])
		}
		e.complete = true
	}
	e.emit()
}

// Stop cancels the pending timer and forgets the token so the next Start always restarts.
func (e *Engine) Stop() {
	e.cancel()
	e.started = false
	e.token = 0
}

// Snapshot returns a copy of the run state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Lines:     append([]string(nil), e.revealed...),
		LineIndex: e.lineIndex,
		Complete:  e.complete,
	}
}

func (e *Engine) cancel() {
	if e.group != nil {
		e.group.Cancel()
	}
}

// schedule arms the single next timer for the current position, or marks the run complete.
func (e *Engine) schedule() {
	line := e.lines[e.lineIndex]
	switch {
	case e.charIndex < len(line):
		e.group.After(e.opts.CharDelay, e.tick)
	case e.lineIndex < len(e.lines)-1:
		e.group.After(e.opts.LineDelay, e.nextLine)
	default:
		e.complete = true
	}
}

func (e *Engine) tick() {
	line := e.lines[e.lineIndex]
	e.charIndex++
	e.revealed[len(e.revealed)-1] = string(line[:e.charIndex])
	e.schedule()
	e.emit()
}

func (e *Engine) nextLine() {
	e.lineIndex++
	e.charIndex = 0
	e.revealed = append(e.revealed, "")
	e.schedule()
	e.emit()
}

func (e *Engine) emit() {
	if e.onChange != nil {
		e.onChange(e.Snapshot())
	}
}
