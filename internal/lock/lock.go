// Package lock drives the door-lock actuator.
package lock

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/castle/internal/gpio"
	"github.com/sweeney/castle/internal/logic"
)

// MinInterval is the minimum time between two accepted state changes.
const MinInterval = 250 * time.Millisecond

// ErrBusy is returned by SetState when the previous change was less than
// MinInterval ago. Nothing is written to the pin.
var ErrBusy = errors.New("lock is busy")

// Actuator owns the lock output pin. It is not safe for concurrent use;
// share it through a guard.Guard.
type Actuator struct {
	out        gpio.Output
	now        func() time.Time
	lastChange time.Time
}

// New creates an Actuator and immediately drives it to Locked.
func New(out gpio.Output) (*Actuator, error) {
	return NewWithClock(out, time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(out gpio.Output, now func() time.Time) (*Actuator, error) {
	a := &Actuator{
		out:        out,
		now:        now,
		lastChange: time.Unix(0, 0),
	}
	if err := a.SetState(logic.Locked); err != nil {
		return nil, fmt.Errorf("initial lock: %w", err)
	}
	return a, nil
}

// ReadState reads the driven level: Low is Locked, High is Unlocked.
func (a *Actuator) ReadState() (logic.LockState, error) {
	l, err := a.out.Read()
	if err != nil {
		return "", err
	}
	if l == gpio.Low {
		return logic.Locked, nil
	}
	return logic.Unlocked, nil
}

// SetState drives the lock to state. It fails with ErrBusy if the last
// successful change was less than MinInterval ago. LastChange only advances
// when the write succeeds.
func (a *Actuator) SetState(state logic.LockState) error {
	now := a.now()
	if now.Before(a.lastChange.Add(MinInterval)) {
		return ErrBusy
	}

	level := gpio.High
	if state == logic.Locked {
		level = gpio.Low
	}
	if err := a.out.Write(level); err != nil {
		return err
	}
	a.lastChange = now
	return nil
}

// Toggle flips the current state and returns the new one.
func (a *Actuator) Toggle() (logic.LockState, error) {
	cur, err := a.ReadState()
	if err != nil {
		return "", err
	}
	next := cur.Toggle()
	if err := a.SetState(next); err != nil {
		return cur, err
	}
	return next, nil
}

// LastChange returns the time of the last successful state change.
func (a *Actuator) LastChange() time.Time {
	return a.lastChange
}
