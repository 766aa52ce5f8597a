// Package led drives the two-colour status LEDs and runs the control loop
// that derives their colour from the lock and hinge.
package led

import (
	"fmt"

	"github.com/sweeney/castle/internal/gpio"
	"github.com/sweeney/castle/internal/logic"
)

// Indicator owns the green and red LED groups.
type Indicator struct {
	green []gpio.Output
	red   []gpio.Output
	on    gpio.Level
}

// NewIndicator creates an Indicator. With activeLow an LED is lit by
// driving its pin Low.
func NewIndicator(green, red []gpio.Output, activeLow bool) *Indicator {
	on := gpio.High
	if activeLow {
		on = gpio.Low
	}
	return &Indicator{green: green, red: red, on: on}
}

// ShowRed turns every green LED off, then every red LED on.
// The first failing write aborts the rest.
func (i *Indicator) ShowRed() error {
	if err := setAll(i.green, i.on.Invert()); err != nil {
		return err
	}
	return setAll(i.red, i.on)
}

// ShowGreen turns every green LED on, then every red LED off.
func (i *Indicator) ShowGreen() error {
	if err := setAll(i.green, i.on); err != nil {
		return err
	}
	return setAll(i.red, i.on.Invert())
}

// Show displays c.
func (i *Indicator) Show(c logic.Color) error {
	switch c {
	case logic.Red:
		return i.ShowRed()
	case logic.Green:
		return i.ShowGreen()
	}
	return fmt.Errorf("unknown colour %q", c)
}

func setAll(leds []gpio.Output, l gpio.Level) error {
	for _, led := range leds {
		if err := led.Write(l); err != nil {
			return err
		}
	}
	return nil
}
