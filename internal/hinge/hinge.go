// Package hinge reads the door-hinge sensor.
package hinge

import (
	"github.com/sweeney/castle/internal/gpio"
	"github.com/sweeney/castle/internal/logic"
)

// Sensor owns the hinge input pin. Every read is a fresh sample.
type Sensor struct {
	in gpio.Input
}

// New creates a Sensor on the given input.
func New(in gpio.Input) *Sensor {
	return &Sensor{in: in}
}

// ReadState samples the pin. Low is Open, High is Closed; this is the
// opposite polarity to the lock output and matches the wiring.
func (s *Sensor) ReadState() (logic.HingeState, error) {
	l, err := s.in.Read()
	if err != nil {
		return "", err
	}
	if l == gpio.Low {
		return logic.Open, nil
	}
	return logic.Closed, nil
}
