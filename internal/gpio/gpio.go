// Package gpio provides digital I/O on numbered pins with hardware abstraction.
// The real implementation drives a Linux GPIO character device; the I/O
// expander shows up as its own gpiochip once the kernel driver is bound.
// The periph implementation drives SoC header pins through periph.io.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// Level is the electrical level of a pin.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Invert returns the opposite level.
func (l Level) Invert() Level {
	if l == High {
		return Low
	}
	return High
}

// Input reads the level of a single pin.
type Input interface {
	Read() (Level, error)
}

// Output drives a single pin. Read returns the level currently driven.
type Output interface {
	Input
	Write(Level) error
}

// Bias selects the input line bias.
type Bias string

const (
	BiasAsIs     Bias = ""
	BiasPullUp   Bias = "pull-up"
	BiasPullDown Bias = "pull-down"
	BiasDisabled Bias = "disabled"
)

// Valid reports whether b is a known bias setting.
func (b Bias) Valid() bool {
	switch b {
	case BiasAsIs, BiasPullUp, BiasPullDown, BiasDisabled:
		return true
	}
	return false
}

// Chip hands out pins of one GPIO controller.
type Chip interface {
	// Input requests pin as an input with the given bias.
	Input(pin int, bias Bias) (Input, error)

	// Output requests pin as an output, initially driven to initial.
	Output(pin int, initial Level) (Output, error)

	// Close releases every requested pin.
	Close() error
}

// PinError wraps every failed hardware access.
type PinError struct {
	Op  string // "request", "read" or "write"
	Pin int
	Err error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("gpio %s pin %d: %v", e.Op, e.Pin, e.Err)
}

func (e *PinError) Unwrap() error {
	return e.Err
}
