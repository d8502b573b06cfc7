package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceFiresInDeadlineOrder(t *testing.T) {
	s := New()
	g := s.NewGroup()
	var got []string
	g.After(30*time.Millisecond, func() { got = append(got, "c") })
	g.After(10*time.Millisecond, func() { got = append(got, "a") })
	g.After(10*time.Millisecond, func() { got = append(got, "b") })

	s.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 20*time.Millisecond, s.Now())

	s.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestChainedTimersFireWithinOneAdvance(t *testing.T) {
	s := New()
	g := s.NewGroup()
	var at []time.Duration
	var tick func()
	tick = func() {
		at = append(at, s.Now())
		if len(at) < 3 {
			g.After(25*time.Millisecond, tick)
		}
	}
	g.After(25*time.Millisecond, tick)

	s.Advance(time.Second)
	assert.Equal(t, []time.Duration{25 * time.Millisecond, 50 * time.Millisecond, 75 * time.Millisecond}, at)
	assert.Equal(t, 0, s.Pending())
}

func TestTimerCancel(t *testing.T) {
	s := New()
	g := s.NewGroup()
	fired := false
	tm := g.After(time.Millisecond, func() { fired = true })
	require.True(t, tm.Active())
	tm.Cancel()
	tm.Cancel()
	assert.False(t, tm.Active())
	s.Advance(time.Second)
	assert.False(t, fired)
}

func TestGroupCancelDropsTimersAndPosts(t *testing.T) {
	s := New()
	old := s.NewGroup()
	fresh := s.NewGroup()
	var got []string
	old.After(time.Millisecond, func() { got = append(got, "old-timer") })
	old.Post(func() { got = append(got, "old-post") })
	fresh.After(time.Millisecond, func() { got = append(got, "fresh") })

	old.Cancel()
	assert.True(t, old.Cancelled())
	assert.False(t, old.Post(func() { got = append(got, "late") }))
	assert.False(t, old.After(0, func() { got = append(got, "late-timer") }).Active())

	s.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"fresh"}, got)
}

func TestPostFromGoroutines(t *testing.T) {
	s := New()
	g := s.NewGroup()
	var wg sync.WaitGroup
	count := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Post(func() { count++ })
		}()
	}
	wg.Wait()
	select {
	case <-s.Wake():
	default:
		t.Fatal("expected wake signal")
	}
	s.Drain()
	assert.Equal(t, 20, count)
}

func TestZeroTimerIsSafe(t *testing.T) {
	var tm *Timer
	tm.Cancel()
	assert.False(t, tm.Active())
	(&Timer{}).Cancel()
}
