package gpio

import (
	"errors"
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphChip drives SoC header pins through periph.io host drivers.
// Pins are addressed by their BCM numbers.
type PeriphChip struct {
	outputs []pgpio.PinIO
}

// NewPeriphChip initialises the periph host drivers.
func NewPeriphChip() (*PeriphChip, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	return &PeriphChip{}, nil
}

func lookupPin(pin int) (pgpio.PinIO, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, &PinError{Op: "request", Pin: pin, Err: errors.New("no such pin")}
	}
	return p, nil
}

// Input configures pin as an input.
func (c *PeriphChip) Input(pin int, bias Bias) (Input, error) {
	p, err := lookupPin(pin)
	if err != nil {
		return nil, err
	}

	pull := pgpio.PullNoChange
	switch bias {
	case BiasPullUp:
		pull = pgpio.PullUp
	case BiasPullDown:
		pull = pgpio.PullDown
	case BiasDisabled:
		pull = pgpio.Float
	}
	if err := p.In(pull, pgpio.NoEdge); err != nil {
		return nil, &PinError{Op: "request", Pin: pin, Err: err}
	}
	return &periphPin{p: p, pin: pin}, nil
}

// Output configures pin as an output driven to initial.
func (c *PeriphChip) Output(pin int, initial Level) (Output, error) {
	p, err := lookupPin(pin)
	if err != nil {
		return nil, err
	}
	if err := p.Out(toPeriph(initial)); err != nil {
		return nil, &PinError{Op: "request", Pin: pin, Err: err}
	}
	c.outputs = append(c.outputs, p)
	return &periphPin{p: p, pin: pin}, nil
}

// Close returns every output pin to a floating input.
func (c *PeriphChip) Close() error {
	var errs []error
	for _, p := range c.outputs {
		if err := p.In(pgpio.Float, pgpio.NoEdge); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", p.Name(), err))
		}
	}
	c.outputs = nil

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type periphPin struct {
	p   pgpio.PinIO
	pin int
}

// Read never fails at this layer; periph reports levels without an error.
func (p *periphPin) Read() (Level, error) {
	if p.p.Read() == pgpio.High {
		return High, nil
	}
	return Low, nil
}

func (p *periphPin) Write(l Level) error {
	if err := p.p.Out(toPeriph(l)); err != nil {
		return &PinError{Op: "write", Pin: p.pin, Err: err}
	}
	return nil
}

func toPeriph(l Level) pgpio.Level {
	if l == High {
		return pgpio.High
	}
	return pgpio.Low
}
