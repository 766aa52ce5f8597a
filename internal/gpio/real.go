//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealChip drives lines of a Linux GPIO character device.
type RealChip struct {
	chip    *gpiocdev.Chip
	inputs  []*gpiocdev.Line
	outputs []*gpiocdev.Line
}

// NewRealChip opens the named chip, e.g. "gpiochip2" or "/dev/gpiochip2".
func NewRealChip(name string) (*RealChip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &RealChip{chip: chip}, nil
}

// Input requests pin as an input line.
func (c *RealChip) Input(pin int, bias Bias) (Input, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch bias {
	case BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	case BiasDisabled:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	}

	line, err := c.chip.RequestLine(pin, opts...)
	if err != nil {
		return nil, &PinError{Op: "request", Pin: pin, Err: err}
	}
	c.inputs = append(c.inputs, line)
	return &realPin{line: line, pin: pin}, nil
}

// Output requests pin as an output line driven to initial.
func (c *RealChip) Output(pin int, initial Level) (Output, error) {
	line, err := c.chip.RequestLine(pin, gpiocdev.AsOutput(int(initial)))
	if err != nil {
		return nil, &PinError{Op: "request", Pin: pin, Err: err}
	}
	c.outputs = append(c.outputs, line)
	return &realPin{line: line, pin: pin}, nil
}

// Close releases all lines and the chip.
// Outputs are reconfigured as inputs before release so the lock and LEDs
// are not left driven once the process is gone.
func (c *RealChip) Close() error {
	var errs []error

	for _, l := range c.outputs {
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	for _, l := range c.inputs {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	c.inputs, c.outputs = nil, nil

	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type realPin struct {
	line *gpiocdev.Line
	pin  int
}

func (p *realPin) Read() (Level, error) {
	v, err := p.line.Value()
	if err != nil {
		return Low, &PinError{Op: "read", Pin: p.pin, Err: err}
	}
	if v != 0 {
		return High, nil
	}
	return Low, nil
}

func (p *realPin) Write(l Level) error {
	if err := p.line.SetValue(int(l)); err != nil {
		return &PinError{Op: "write", Pin: p.pin, Err: err}
	}
	return nil
}
