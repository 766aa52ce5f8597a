package gpio

import (
	"fmt"
	"sync"
)

// FakePin is a test double for a single input or output pin.
// It is safe for concurrent use so tests can flip levels while a
// control loop is polling.
type FakePin struct {
	mu sync.Mutex

	level Level

	// writes records every successful Write in order.
	writes []Level

	// readError, if set, is returned by Read.
	readError error

	// writeError, if set, is returned by Write and the level is unchanged.
	writeError error
}

// NewFakePin creates a FakePin at the given level.
func NewFakePin(level Level) *FakePin {
	return &FakePin{level: level}
}

// Read returns the current level.
func (f *FakePin) Read() (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readError != nil {
		return Low, f.readError
	}
	return f.level, nil
}

// Write sets the level and records it.
func (f *FakePin) Write(l Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeError != nil {
		return f.writeError
	}
	f.level = l
	f.writes = append(f.writes, l)
	return nil
}

// Set changes the level without recording a write, like an external
// signal on an input.
func (f *FakePin) Set(l Level) {
	f.mu.Lock()
	f.level = l
	f.mu.Unlock()
}

// Level returns the current level.
func (f *FakePin) Level() Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Writes returns a copy of all recorded writes.
func (f *FakePin) Writes() []Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Level(nil), f.writes...)
}

// SetReadError makes subsequent reads fail with err (nil clears it).
func (f *FakePin) SetReadError(err error) {
	f.mu.Lock()
	f.readError = err
	f.mu.Unlock()
}

// SetWriteError makes subsequent writes fail with err (nil clears it).
func (f *FakePin) SetWriteError(err error) {
	f.mu.Lock()
	f.writeError = err
	f.mu.Unlock()
}

// FakeChip hands out FakePins keyed by pin number.
type FakeChip struct {
	mu sync.Mutex

	// Pins contains every pin requested so far.
	Pins map[int]*FakePin

	// Biases records the bias each input was requested with.
	Biases map[int]Bias

	// RequestErrors makes Input/Output fail for the listed pins.
	RequestErrors map[int]error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeChip creates an empty FakeChip.
func NewFakeChip() *FakeChip {
	return &FakeChip{
		Pins:          make(map[int]*FakePin),
		Biases:        make(map[int]Bias),
		RequestErrors: make(map[int]error),
	}
}

// Input returns the FakePin for pin, creating it at Low.
func (c *FakeChip) Input(pin int, bias Bias) (Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.RequestErrors[pin]; err != nil {
		return nil, &PinError{Op: "request", Pin: pin, Err: err}
	}
	c.Biases[pin] = bias
	return c.pinLocked(pin, Low), nil
}

// Output returns the FakePin for pin driven to initial.
func (c *FakeChip) Output(pin int, initial Level) (Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.RequestErrors[pin]; err != nil {
		return nil, &PinError{Op: "request", Pin: pin, Err: err}
	}
	p := c.pinLocked(pin, initial)
	p.Set(initial)
	return p, nil
}

// Pin returns the FakePin for pin, or panics if it was never requested.
func (c *FakeChip) Pin(pin int) *FakePin {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.Pins[pin]
	if !ok {
		panic(fmt.Sprintf("fake chip: pin %d not requested", pin))
	}
	return p
}

// Close marks the chip as closed.
func (c *FakeChip) Close() error {
	c.mu.Lock()
	c.Closed = true
	c.mu.Unlock()
	return nil
}

func (c *FakeChip) pinLocked(pin int, initial Level) *FakePin {
	p, ok := c.Pins[pin]
	if !ok {
		p = NewFakePin(initial)
		c.Pins[pin] = p
	}
	return p
}
