package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/DaanHessen/basis-tower/internal/clock"
	"github.com/DaanHessen/basis-tower/internal/lesson"
	"github.com/DaanHessen/basis-tower/internal/orchestrator"
	"github.com/DaanHessen/basis-tower/internal/tower"
)

const (
	frameInterval = 33 * time.Millisecond
	towerWidth    = 22
	maxTowerRows  = 18
	minTowerRows  = 6
)

type frameMsg time.Time

type wakeMsg struct{}

type model struct {
	sched *clock.Scheduler
	orch  *orchestrator.Orchestrator
	log   *zap.Logger

	version string
	theme   string
	width   int
	height  int
	last    time.Time
	help    bool

	stock *tower.Counter
	debt  *tower.Counter
	// rendered highlight markdown per step id and width
	highlights map[string]string
}

func newModel(sched *clock.Scheduler, orch *orchestrator.Orchestrator, log *zap.Logger, theme, version string) model {
	if log == nil {
		log = zap.NewNop()
	}
	if _, ok := palettes[theme]; !ok {
		theme = defaultTheme
	}
	return model{
		sched:      sched,
		orch:       orch,
		log:        log,
		version:    version,
		theme:      theme,
		stock:      &tower.Counter{},
		debt:       &tower.Counter{},
		highlights: map[string]string{},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(frame(), waitWake(m.sched))
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// waitWake turns scheduler posts from backend goroutines into messages.
func waitWake(s *clock.Scheduler) tea.Cmd {
	return func() tea.Msg {
		<-s.Wake()
		return wakeMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case frameMsg:
		t := time.Time(msg)
		if !m.last.IsZero() {
			m.sched.Advance(t.Sub(m.last))
		}
		m.last = t
		return m, frame()
	case wakeMsg:
		m.sched.Drain()
		return m, waitWake(m.sched)
	case tea.KeyMsg:
		k := msg.String()
		switch k {
		case "q", "ctrl+c", "esc":
			m.orch.Stop()
			return m, tea.Quit
		case "right", "l", "n", "enter":
			m.orch.Next()
		case "left", "h", "p":
			m.orch.Prev()
		case "home", "g":
			_ = m.orch.GoTo(0)
		case " ", "s":
			m.orch.Skip()
		case "m":
			m.orch.ToggleMute()
		case "r":
			m.orch.ResetInteractive()
		case "t":
			m.theme = nextThemeName(m.theme, 1)
		case "?":
			m.help = !m.help
		default:
			if len(k) == 1 && k[0] >= '1' && k[0] <= '9' {
				if err := m.orch.Interact(int(k[0] - '1')); err != nil {
					m.log.Debug("interact", zap.Error(err))
				}
			}
		}
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	v := m.orch.View()
	p := paletteFor(m.theme)
	w := m.width
	if w <= 0 {
		w = 100
	}
	if m.help {
		return m.renderHelp(p)
	}

	top := m.renderTopBar(v, p, w)
	left := m.renderNarration(v, p, w/2-2)
	right := m.renderTowers(v, p)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(w/2).Render(left),
		lipgloss.NewStyle().Width(w-w/2).Render(right),
	)
	bottom := m.renderBottomBar(v, p, w)
	return lipgloss.JoinVertical(lipgloss.Left, top, body, bottom)
}

func (m model) renderTopBar(v orchestrator.View, p palette, w int) string {
	left := fmt.Sprintf("S-CORP BASIS • Step %d/%d • %s", v.Index+1, v.Count, v.Step.Title)
	right := "♪ on"
	switch {
	case v.Muted:
		right = "muted"
	case v.Audio.Speaking:
		right = "♪ speaking"
	}
	gap := w - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().Bold(true).Foreground(p.Accent).Render(left + strings.Repeat(" ", gap) + right)
}

func (m model) renderNarration(v orchestrator.View, p palette, width int) string {
	var b strings.Builder
	face := v.Step.Pose.Glyph()
	if v.Audio.Speaking && (v.Now/(200*time.Millisecond))%2 == 0 {
		face += " ♪"
	}
	b.WriteString(lipgloss.NewStyle().Foreground(p.Accent).Bold(true).Render(face))
	b.WriteString(lipgloss.NewStyle().Foreground(p.Muted).Render("  " + v.Step.Pose.Caption()))
	b.WriteString("\n\n")

	text := lipgloss.NewStyle().Foreground(p.Text).Width(width)
	for i, line := range v.Text.Lines {
		if i == len(v.Text.Lines)-1 && !v.Text.Complete {
			line += "▌"
		}
		b.WriteString(text.Render(line))
		b.WriteString("\n")
	}
	if v.Text.Complete && v.Step.Highlight != "" {
		b.WriteString("\n")
		b.WriteString(m.highlight(v.Step, width))
	}
	if len(v.Step.Buttons) > 0 {
		b.WriteString("\n")
		for i, btn := range v.Step.Buttons {
			style := lipgloss.NewStyle().Foreground(p.color(btn.Color)).Bold(true)
			b.WriteString(style.Render(fmt.Sprintf("[%d] %s", i+1, btn.Label)))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	if v.Reaction != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(p.Muted).Italic(true).Width(width).Render("“" + v.Reaction + "”"))
		b.WriteString("\n")
	}
	return b.String()
}

// highlight renders the step's markdown once per width.
func (m model) highlight(st lesson.Step, width int) string {
	key := fmt.Sprintf("%d/%d", st.ID, width)
	if out, ok := m.highlights[key]; ok {
		return out
	}
	out := st.Highlight
	renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(max(width, 20)))
	if err == nil {
		if rendered, err := renderer.Render(st.Highlight); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	m.highlights[key] = out
	return out
}

func (m model) scale() tower.Scale {
	rows := maxTowerRows
	if m.height > 0 {
		rows = min(max(m.height-16, minTowerRows), maxTowerRows)
	}
	return tower.Scale{ReferenceMax: m.orch.ReferenceMax(), MaxHeight: rows, MinHeight: 1}
}

func (m model) renderTowers(v orchestrator.View, p palette) string {
	f := v.Tower
	sc := m.scale()
	m.stock.Retarget(f.StockTotal, v.Now)
	m.debt.Retarget(f.DebtTotal, v.Now)

	cols := []string{m.renderStack("STOCK BASIS", f.Stock, v.StockDelta, m.stock.Value(v.Now), f, sc, p, true)}
	if f.ShowDebt {
		cols = append(cols, m.renderStack("DEBT BASIS", f.Debt, v.DebtDelta, m.debt.Value(v.Now), f, sc, p, false))
	}
	if len(f.Departing) > 0 {
		cols = append(cols, renderDeparting(f, sc, p))
	}
	out := lipgloss.JoinHorizontal(lipgloss.Bottom, joinWithGap(cols, "  ")...)

	var badges []string
	if f.SuspendedLoss > 0 {
		badges = append(badges, badge("Suspended loss "+tower.FormatDollars(f.SuspendedLoss), p.Warning))
	}
	if f.CapitalGain > 0 {
		badges = append(badges, badge("Capital gain "+tower.FormatDollars(f.CapitalGain), p.Red))
	}
	if f.OrdinaryIncome > 0 {
		badges = append(badges, badge("Ordinary income "+tower.FormatDollars(f.OrdinaryIncome), p.Green))
	}
	if len(badges) > 0 {
		out += "\n" + strings.Join(badges, " ")
	}
	return out
}

func joinWithGap(cols []string, gap string) []string {
	out := make([]string, 0, len(cols)*2)
	for i, c := range cols {
		if i > 0 {
			out = append(out, gap)
		}
		out = append(out, c)
	}
	return out
}

func badge(text string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Border(lipgloss.RoundedBorder()).BorderForeground(c).Padding(0, 1).Render(text)
}

type block struct {
	label string
	rows  int
	color lipgloss.Color
}

// renderStack draws one tower bottom-up from its sections.
func (m model) renderStack(title string, sections []lesson.Section, delta, shown float64, f tower.Frame, sc tower.Scale, p palette, stock bool) string {
	var blocks []block
	for _, s := range sections {
		if h := sc.Height(s.Amount); h > 0 {
			blocks = append(blocks, block{label: s.Label + " " + tower.FormatDollars(s.Amount), rows: h, color: p.color(s.Color)})
		}
	}
	if delta > 0 {
		blocks = append(blocks, block{label: "Your change +" + tower.FormatDollars(delta), rows: sc.Height(delta), color: p.Amber})
	}

	total := 0
	for _, b := range blocks {
		total += b.rows
	}
	visible := int(float64(total)*f.Entrance + 0.5)

	var rows []string
	drawn := 0
	for _, b := range blocks {
		cell := lipgloss.NewStyle().Background(b.color).Foreground(p.Background).Width(towerWidth)
		for r := 0; r < b.rows && drawn < visible; r++ {
			label := ""
			if r == b.rows-1 || b.rows == 1 {
				label = truncate(b.label, towerWidth)
			}
			rows = append(rows, cell.Render(label))
			drawn++
		}
	}
	// bottom-up to top-down
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	pad := sc.MaxHeight - len(rows)
	for i := 0; i < pad; i++ {
		rows = append([]string{strings.Repeat(" ", towerWidth)}, rows...)
	}

	ground := lipgloss.NewStyle().Foreground(p.Ground).Render(strings.Repeat("━", towerWidth))
	totalStyle := lipgloss.NewStyle().Bold(true).Foreground(p.Text)
	zero := shown < 0.5
	if stock && f.FlashZero && zero {
		totalStyle = totalStyle.Foreground(p.Red)
		if (m.sched.Now()/(400*time.Millisecond))%2 == 1 {
			totalStyle = totalStyle.Foreground(p.Background)
		}
	}
	lines := append(rows, ground, totalStyle.Render(tower.FormatDollars(shown)), lipgloss.NewStyle().Foreground(p.Muted).Render(title))
	if stock && f.BelowGround != nil {
		under := lipgloss.NewStyle().Foreground(p.Red).Width(towerWidth)
		lines = append(lines,
			under.Render(strings.Repeat("▒", towerWidth)),
			under.Render(truncate(f.BelowGround.Label+" "+tower.FormatDollars(f.BelowGround.Amount), towerWidth)),
		)
	}
	return strings.Join(lines, "\n")
}

// renderDeparting draws blocks sliding out of the tower. They drift right while leaving.
func renderDeparting(f tower.Frame, sc tower.Scale, p palette) string {
	shift := 0
	switch f.DepartStage {
	case tower.StageArriving:
		shift = int((1 - f.DepartProgress) * 4)
	case tower.StageLeaving:
		shift = int(f.DepartProgress * 8)
	}
	var lines []string
	for _, b := range f.Departing {
		style := lipgloss.NewStyle().Foreground(p.Red).Bold(true).MarginLeft(shift)
		if f.DepartStage == tower.StageLeaving && f.DepartProgress > 0.6 {
			style = style.Faint(true)
		}
		lines = append(lines, style.Render(fmt.Sprintf("−%s  %s", tower.FormatDollars(b.Amount), b.Label)))
	}
	return lipgloss.NewStyle().Height(sc.MaxHeight/2).Render(strings.Join(lines, "\n"))
}

func (m model) renderBottomBar(v orchestrator.View, p palette, w int) string {
	var dots strings.Builder
	for i := 0; i < v.Count; i++ {
		if i == v.Index {
			dots.WriteString("●")
		} else {
			dots.WriteString("○")
		}
	}
	keys := "[←/→] step  [space] skip  [1-9] try it  [r] reset  [m] mute  [t] theme  [?] help  [q] quit"
	line := dots.String() + "   " + keys
	if lipgloss.Width(line) > w && w > 10 {
		line = truncate(line, w)
	}
	return lipgloss.NewStyle().Foreground(p.Muted).Render(line)
}

func (m model) renderHelp(p palette) string {
	body := fmt.Sprintf("ABOUT\n\nA narrated walk through S-corporation shareholder basis (%s).\n"+
		"Each step types out its narration; the tower follows along as lines are revealed.\n"+
		"Blocks leaving the tower show what reduced basis. Stock basis can never go below zero.\n\n"+
		"Controls: ←/→ or h/l change step | space skip typing | 1-9 press a step's buttons | r reset them\n"+
		"m mute narration | t cycle theme (%s) | ? close help | q quit", m.version, m.theme)
	return lipgloss.NewStyle().Foreground(p.Text).Border(lipgloss.RoundedBorder()).BorderForeground(p.Border).Padding(1, 2).Render(body)
}

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}
