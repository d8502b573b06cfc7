package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DaanHessen/basis-tower/internal/clock"
	"github.com/DaanHessen/basis-tower/internal/lesson"
	"github.com/DaanHessen/basis-tower/internal/narration"
	"github.com/DaanHessen/basis-tower/internal/orchestrator"
)

type silent struct{ muted bool }

func (s *silent) PlayStep(int)           {}
func (s *silent) PlayDynamic(string)     {}
func (s *silent) Stop()                  {}
func (s *silent) SetMuted(m bool)        { s.muted = m }
func (s *silent) State() narration.State { return narration.State{} }

func testModel(t *testing.T) model {
	t.Helper()
	steps, err := lesson.Default()
	if err != nil {
		t.Fatalf("default steps: %v", err)
	}
	sched := clock.New()
	orch := orchestrator.New(orchestrator.Config{Steps: steps, Sched: sched, Audio: &silent{}})
	orch.Start()
	return newModel(sched, orch, nil, "", "test")
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m model, keys ...string) model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(model)
	}
	return m
}

func TestArrowKeysChangeStep(t *testing.T) {
	m := testModel(t)
	m = press(m, "right", "right")
	if got := m.orch.View().Index; got != 2 {
		t.Fatalf("index after two rights = %d, want 2", got)
	}
	m = press(m, "left")
	if got := m.orch.View().Index; got != 1 {
		t.Fatalf("index after left = %d, want 1", got)
	}
	m = press(m, "g")
	if got := m.orch.View().Index; got != 0 {
		t.Fatalf("index after home = %d, want 0", got)
	}
}

func TestSkipRevealsNarration(t *testing.T) {
	m := testModel(t)
	m = press(m, " ")
	v := m.orch.View()
	if !v.Text.Complete {
		t.Fatal("space should complete the typewriter")
	}
	if len(v.Text.Lines) != len(v.Step.Narration) {
		t.Fatalf("revealed %d lines, want %d", len(v.Text.Lines), len(v.Step.Narration))
	}
}

func TestFrameAdvancesScheduler(t *testing.T) {
	m := testModel(t)
	start := time.Unix(0, 0)
	next, _ := m.Update(frameMsg(start))
	m = next.(model)
	next, _ = m.Update(frameMsg(start.Add(100 * time.Millisecond)))
	m = next.(model)
	if got := m.sched.Now(); got != 100*time.Millisecond {
		t.Fatalf("virtual time = %v, want 100ms", got)
	}
}

func TestViewShowsTitleAndTotals(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(model)
	m.sched.Advance(5 * time.Second)
	out := m.View()
	title := m.orch.View().Step.Title
	if !strings.Contains(out, title) {
		t.Fatalf("view missing step title %q", title)
	}
	if !strings.Contains(out, "STOCK BASIS") {
		t.Fatal("view missing stock tower")
	}
}

func TestThemeCycles(t *testing.T) {
	m := testModel(t)
	if m.theme != defaultTheme {
		t.Fatalf("theme = %q, want %q", m.theme, defaultTheme)
	}
	seen := map[string]bool{}
	for range themeNames() {
		m = press(m, "t")
		seen[m.theme] = true
	}
	if len(seen) != len(palettes) {
		t.Fatalf("cycled through %d themes, want %d", len(seen), len(palettes))
	}
}

func TestInteractKeyAppliesButton(t *testing.T) {
	m := testModel(t)
	m = press(m, "1")
	v := m.orch.View()
	if len(v.Step.Buttons) == 0 {
		t.Skip("first step has no buttons")
	}
	if v.StockDelta == 0 && v.DebtDelta == 0 {
		t.Fatal("pressing 1 should apply the first button")
	}
	m = press(m, "r")
	if d := m.orch.View().StockDelta; d != 0 {
		t.Fatalf("reset left stock delta %v", d)
	}
}
