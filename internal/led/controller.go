package led

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/castle/internal/guard"
	"github.com/sweeney/castle/internal/hinge"
	"github.com/sweeney/castle/internal/lock"
	"github.com/sweeney/castle/internal/logic"
)

// DefaultInterval is the loop cadence. One blink phase is
// logic.BlinkRedTicks iterations, i.e. 250ms.
const DefaultInterval = 50 * time.Millisecond

// errLogEvery limits logging of a repeated identical failure to one line per N.
const errLogEvery = 100

// Result is the outcome of one successful loop iteration.
type Result struct {
	Observation logic.Observation
	Color       logic.Color
	Tick        uint // blink tick for the next iteration
}

// Hooks are called from the loop goroutine after each iteration, with no
// guard held. They must not block.
type Hooks struct {
	OnResult func(Result)
	OnError  func(error)
}

// Controller samples the lock and hinge and drives the LEDs.
type Controller struct {
	lock  *guard.Guard[*lock.Actuator]
	hinge *guard.Guard[*hinge.Sensor]
	led   *Indicator
	hooks Hooks
	now   func() time.Time

	tick     uint
	failures int
	lastErr  string // message of the last failure in the current run
}

// NewController creates a Controller. The lock and hinge guards are shared
// with the HTTP API; the indicator is owned by the controller.
func NewController(l *guard.Guard[*lock.Actuator], h *guard.Guard[*hinge.Sensor], led *Indicator, hooks Hooks) *Controller {
	return &Controller{
		lock:  l,
		hinge: h,
		led:   led,
		hooks: hooks,
		now:   time.Now,
	}
}

// Tick returns the current blink tick.
func (c *Controller) Tick() uint {
	return c.tick
}

// Step runs one iteration. On error the tick is left unchanged.
func (c *Controller) Step() (Result, error) {
	obs, err := c.observe()
	if err != nil {
		return Result{}, err
	}

	color, next := logic.Decide(obs.Lock, obs.Hinge, c.tick)
	if err := c.led.Show(color); err != nil {
		return Result{}, err
	}
	c.tick = next

	return Result{Observation: obs, Color: color, Tick: next}, nil
}

// observe reads both states, taking the lock guard before the hinge guard.
// Both guards are released before the LEDs are driven.
func (c *Controller) observe() (logic.Observation, error) {
	var obs logic.Observation
	err := c.lock.Do(func(a *lock.Actuator) error {
		return c.hinge.Do(func(s *hinge.Sensor) error {
			ls, err := a.ReadState()
			if err != nil {
				return err
			}
			hs, err := s.ReadState()
			if err != nil {
				return err
			}
			obs = logic.Observation{Lock: ls, Hinge: hs}
			return nil
		})
	})
	obs.Time = c.now()
	return obs, err
}

// Run steps once, then once per value received from tick, until ctx is
// cancelled. An iteration in progress always completes. Errors are logged
// and never stop the loop.
func (c *Controller) Run(ctx context.Context, tick <-chan time.Time) {
	for {
		c.runOnce()

		select {
		case <-ctx.Done():
			return
		case <-tick:
		}
	}
}

func (c *Controller) runOnce() {
	res, err := c.Step()
	if err != nil {
		c.failures++
		msg := err.Error()
		if c.failures == 1 || msg != c.lastErr || c.failures%errLogEvery == 0 {
			log.Printf("controller: iteration failed (%d consecutive): %v", c.failures, err)
		}
		c.lastErr = msg
		if c.hooks.OnError != nil {
			c.hooks.OnError(err)
		}
		return
	}

	if c.failures > 0 {
		log.Printf("controller: recovered after %d failed iterations", c.failures)
		c.failures = 0
		c.lastErr = ""
	}
	if c.hooks.OnResult != nil {
		c.hooks.OnResult(res)
	}
}
