package core

import "time"

// Clock measures the wall-clock time of the game loop. Elapsed values
// are in seconds.
type Clock struct {
	startTime time.Time
	lastTime  time.Time
	elapsed   float64
	delta     float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Start resets the clock and begins measuring.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.lastTime = c.startTime
	c.elapsed = 0
	c.delta = 0
}

// Update samples the clock. Should be called once at the top of every
// loop iteration. Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime.IsZero() {
		return
	}
	now := time.Now()
	c.elapsed = now.Sub(c.startTime).Seconds()
	c.delta = now.Sub(c.lastTime).Seconds()
	c.lastTime = now
}

// Stop halts the clock without resetting elapsed time.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Delta returns the seconds between the two most recent Update calls.
func (c *Clock) Delta() float64 {
	return c.delta
}
