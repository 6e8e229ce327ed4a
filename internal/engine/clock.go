package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Clock drives a game forward on a wall-clock interval for unattended play.
// Each tick calls OnTick; every SaveEvery ticks it also calls OnSave.
type Clock struct {
	Tick      uint64        // monotonic, never resets
	Speed     float64       // 1.0 = one tick per Interval, 0 = paused
	Interval  time.Duration // base tick interval
	SaveEvery uint64        // 0 disables periodic saves

	// OnTick advances the game one step and reports whether play continues.
	OnTick func(tick uint64) bool
	OnSave func(tick uint64)

	running atomic.Bool
}

// NewClock creates a clock with default settings.
func NewClock() *Clock {
	return &Clock{
		Speed:     1.0,
		Interval:  time.Second,
		SaveEvery: 4,
	}
}

// Run blocks until Stop is called, ctx is done or OnTick returns false.
func (c *Clock) Run(ctx context.Context) {
	c.running.Store(true)
	defer c.running.Store(false)
	slog.Info("clock started", "tick", c.Tick, "speed", c.Speed)

	for c.running.Load() {
		wait := 100 * time.Millisecond // paused
		if c.Speed > 0 {
			start := time.Now()
			if !c.step() {
				break
			}
			wait = time.Duration(float64(c.Interval)/c.Speed) - time.Since(start)
		}
		if wait <= 0 {
			if ctx.Err() != nil {
				break
			}
			continue
		}
		select {
		case <-ctx.Done():
			c.running.Store(false)
		case <-time.After(wait):
		}
	}

	slog.Info("clock stopped", "tick", c.Tick)
}

// Stop halts the loop after the current tick.
func (c *Clock) Stop() {
	c.running.Store(false)
}

// Running reports whether Run is active.
func (c *Clock) Running() bool {
	return c.running.Load()
}

func (c *Clock) step() bool {
	c.Tick++
	more := c.OnTick == nil || c.OnTick(c.Tick)
	if c.OnSave != nil && (!more || (c.SaveEvery > 0 && c.Tick%c.SaveEvery == 0)) {
		c.OnSave(c.Tick)
	}
	return more
}
