package tower

import "time"

const DefaultCounterDuration = 800 * time.Millisecond

// Counter eases a displayed number toward its latest target.
type Counter struct {
	Duration time.Duration

	from, to float64
	start    time.Duration
	set      bool
}

// Retarget starts easing from the current value toward v. The first call jumps straight there.
func (c *Counter) Retarget(v float64, now time.Duration) {
	if !c.set {
		c.from, c.to, c.start, c.set = v, v, now, true
		return
	}
	if v == c.to {
		return
	}
	c.from = c.Value(now)
	c.to = v
	c.start = now
}

// Value is the eased value at now (cubic ease-out).
func (c *Counter) Value(now time.Duration) float64 {
	d := c.Duration
	if d <= 0 {
		d = DefaultCounterDuration
	}
	t := float64(now-c.start) / float64(d)
	if t >= 1 {
		return c.to
	}
	if t <= 0 {
		return c.from
	}
	inv := 1 - t
	eased := 1 - inv*inv*inv
	return c.from + (c.to-c.from)*eased
}
