package tower

import (
	"testing"
	"time"

	"github.com/DaanHessen/basis-tower/internal/clock"
	"github.com/DaanHessen/basis-tower/internal/lesson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phasesAt(triggers ...int) []lesson.Phase {
	out := make([]lesson.Phase, len(triggers))
	for i, tl := range triggers {
		out[i] = lesson.Phase{TriggerLine: tl}
	}
	return out
}

func TestResolve(t *testing.T) {
	p := phasesAt(0, 1, 3, 5)
	cases := map[int]int{-1: 0, 0: 0, 1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 99: 3}
	for line, want := range cases {
		assert.Equal(t, want, Resolve(p, line), "line %d", line)
		assert.Equal(t, Resolve(p, line), Resolve(p, line))
	}
	assert.Equal(t, 0, Resolve(nil, 3))
	assert.Equal(t, 0, Resolve(phasesAt(2, 4), 1))
}

func TestScaleHeight(t *testing.T) {
	s := Scale{ReferenceMax: 87000, MaxHeight: 18, MinHeight: 1}
	assert.Equal(t, 18, s.Height(87000))
	assert.Equal(t, 10, s.Height(50000))
	assert.Equal(t, 1, s.Height(100))
	assert.Equal(t, 0, s.Height(0))
	assert.Equal(t, 0, s.Height(-5000))
}

func TestClampAndFormat(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-10))
	assert.Equal(t, 5.0, Clamp(5))
	assert.Equal(t, "$50,000", FormatDollars(50000))
	assert.Equal(t, "$0", FormatDollars(0))
	assert.Equal(t, "-$5,000", FormatDollars(-5000))
}

func block(label string, amount float64) []lesson.Block {
	return []lesson.Block{{Label: label, Amount: amount}}
}

// fixture: 0 initial, 1 A (no departing), 2 B (departing), 3 C (departing), 4 D (departing)
func abcStep() lesson.Step {
	return lesson.Step{
		ID:        9,
		Narration: []string{"0", "1", "2", "3", "4"},
		Phases: []lesson.Phase{
			{TriggerLine: 0, StockTotal: 100, Sections: []lesson.Section{{ID: "s", Amount: 100}}},
			{TriggerLine: 1, StockTotal: 120},
			{TriggerLine: 2, StockTotal: 90, Departing: block("B out", 30)},
			{TriggerLine: 3, StockTotal: 60, Departing: block("C out", 30)},
			{TriggerLine: 4, StockTotal: 40, Departing: block("D out", 20)},
		},
	}
}

type recorder struct {
	c     *Controller
	shown []int
}

func (r *recorder) record() {
	if n := len(r.shown); n == 0 || r.shown[n-1] != r.c.Displayed() {
		r.shown = append(r.shown, r.c.Displayed())
	}
}

func newController(t *testing.T) (*clock.Scheduler, *Controller, *recorder) {
	t.Helper()
	s := clock.New()
	r := &recorder{}
	r.c = NewController(s, DefaultTiming(), nil, r.record)
	return s, r.c, r
}

func TestResetEntersThenIdles(t *testing.T) {
	s, c, _ := newController(t)
	c.Reset(abcStep(), 1)
	assert.Equal(t, Entering, c.State())
	assert.Equal(t, 0.0, c.Frame(Adjust{}).Entrance)

	s.Advance(250 * time.Millisecond)
	assert.InDelta(t, 0.5, c.Frame(Adjust{}).Entrance, 0.001)
	s.Advance(250 * time.Millisecond)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 1.0, c.Frame(Adjust{}).Entrance)
}

func TestImmediateCommitWithoutDeparting(t *testing.T) {
	s, c, _ := newController(t)
	c.Reset(abcStep(), 1)
	s.Advance(time.Second)
	c.SetTarget(1)
	assert.Equal(t, 1, c.Displayed())
	assert.Equal(t, Idle, c.State())
}

func TestTargetDuringEntranceEndsIt(t *testing.T) {
	s, c, _ := newController(t)
	c.Reset(abcStep(), 1)
	s.Advance(100 * time.Millisecond)
	c.SetTarget(1)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 1, c.Displayed())
}

func TestDepartureFreezesThenCommits(t *testing.T) {
	s, c, _ := newController(t)
	c.Reset(abcStep(), 1)
	s.Advance(time.Second)
	c.SetTarget(2)

	assert.Equal(t, Departing, c.State())
	f := c.Frame(Adjust{})
	assert.Equal(t, 0, f.Phase, "displayed phase frozen during departure")
	assert.Equal(t, 100.0, f.StockTotal)
	require.Len(t, f.Departing, 1)
	assert.Equal(t, StageArriving, f.DepartStage)

	s.Advance(400 * time.Millisecond)
	assert.Equal(t, StageHolding, c.Frame(Adjust{}).DepartStage)
	s.Advance(1200 * time.Millisecond)
	assert.Equal(t, StageLeaving, c.Frame(Adjust{}).DepartStage)
	s.Advance(399 * time.Millisecond)
	assert.Equal(t, 0, c.Displayed())
	s.Advance(1 * time.Millisecond)

	assert.Equal(t, 2, c.Displayed())
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, c.Frame(Adjust{}).Departing)
}

func TestSingleSlotQueueABC(t *testing.T) {
	s, c, r := newController(t)
	c.Reset(abcStep(), 1)
	s.Advance(time.Second)

	c.SetTarget(1) // A
	c.SetTarget(2) // B departs
	s.Advance(500 * time.Millisecond)
	c.SetTarget(3) // C queued while B in flight
	assert.Equal(t, Queued, c.State())

	s.Advance(10 * time.Second)
	assert.Equal(t, []int{0, 1, 2, 3}, r.shown)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 60.0, c.Frame(Adjust{}).StockTotal)
}

func TestQueuedTargetOverwritten(t *testing.T) {
	s, c, r := newController(t)
	c.Reset(abcStep(), 1)
	s.Advance(time.Second)

	c.SetTarget(2)
	s.Advance(100 * time.Millisecond)
	c.SetTarget(3)
	c.SetTarget(4)

	s.Advance(10 * time.Second)
	assert.Equal(t, []int{0, 2, 4}, r.shown, "intermediate target never committed")
}

func TestCommitUsesTargetCapturedAtDepartureStart(t *testing.T) {
	s, c, _ := newController(t)
	c.Reset(abcStep(), 1)
	s.Advance(time.Second)

	c.SetTarget(2)
	s.Advance(1000 * time.Millisecond)
	c.SetTarget(4)
	s.Advance(1000 * time.Millisecond)

	assert.Equal(t, 2, c.Displayed())
	assert.Equal(t, Queued, c.State(), "settle delay keeps the queued target pending")

	s.Advance(800 * time.Millisecond)
	assert.Equal(t, Departing, c.State())
	assert.Equal(t, "D out", c.Frame(Adjust{}).Departing[0].Label)
}

func TestTargetDuringSettleOverwritesQueue(t *testing.T) {
	s, c, r := newController(t)
	c.Reset(abcStep(), 1)
	s.Advance(time.Second)

	c.SetTarget(2)
	c.SetTarget(3)
	s.Advance(2 * time.Second)
	require.Equal(t, Queued, c.State())
	c.SetTarget(4)

	s.Advance(10 * time.Second)
	assert.Equal(t, []int{0, 2, 4}, r.shown)
}

func TestResetPreemptsDeparture(t *testing.T) {
	s, c, _ := newController(t)
	c.Reset(abcStep(), 1)
	s.Advance(time.Second)
	c.SetTarget(2)
	c.SetTarget(3)

	other := lesson.Step{ID: 10, Narration: []string{"x"}, Phases: []lesson.Phase{{StockTotal: 5}}}
	c.Reset(other, 2)
	assert.Equal(t, Entering, c.State())
	assert.Equal(t, 2, c.Generation())

	s.Advance(10 * time.Second)
	assert.Equal(t, 0, c.Displayed())
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 5.0, c.Frame(Adjust{}).StockTotal)
	assert.Equal(t, 0, s.Pending())
}

func TestRepeatedTargetIsNoop(t *testing.T) {
	s, c, r := newController(t)
	c.Reset(abcStep(), 1)
	s.Advance(time.Second)
	c.SetTarget(2)
	before := s.Pending()
	c.SetTarget(2)
	assert.Equal(t, before, s.Pending())
	assert.Equal(t, Departing, c.State())
	s.Advance(10 * time.Second)
	assert.Equal(t, []int{0, 2}, r.shown)
}

func TestFrameClampsNegativeTotals(t *testing.T) {
	s, c, _ := newController(t)
	st := lesson.Step{ID: 1, Narration: []string{"x"}, Phases: []lesson.Phase{{StockTotal: -500, DebtTotal: 10, FlashZero: true}}}
	c.Reset(st, 1)
	s.Advance(time.Second)

	f := c.Frame(Adjust{})
	assert.Equal(t, 0.0, f.StockTotal)
	assert.True(t, f.FlashZero)

	f = c.Frame(Adjust{Stock: 200, Debt: -50})
	assert.Equal(t, 0.0, f.StockTotal)
	assert.Equal(t, 0.0, f.DebtTotal)

	f = c.Frame(Adjust{Stock: 1000})
	assert.Equal(t, 500.0, f.StockTotal)
	assert.False(t, f.FlashZero)
}

func TestCounterEasesToTarget(t *testing.T) {
	var c Counter
	c.Retarget(100, 0)
	assert.Equal(t, 100.0, c.Value(0))

	c.Retarget(200, 0)
	mid := c.Value(400 * time.Millisecond)
	assert.Greater(t, mid, 150.0, "ease-out front-loads the change")
	assert.Less(t, mid, 200.0)
	assert.Equal(t, 200.0, c.Value(800*time.Millisecond))

	c.Retarget(0, 800*time.Millisecond)
	assert.Equal(t, 200.0, c.Value(800*time.Millisecond))
	assert.Equal(t, 0.0, c.Value(2*time.Second))
}
