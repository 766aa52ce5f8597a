// Package logic contains pure door-state logic: the lock/hinge/LED types,
// the LED decision table and change detection for published events.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"encoding/json"
	"fmt"
	"time"
)

// LockState is the commanded state of the lock actuator.
type LockState string

const (
	Locked   LockState = "Locked"
	Unlocked LockState = "Unlocked"
)

// Toggle returns the opposite lock state.
func (s LockState) Toggle() LockState {
	if s == Locked {
		return Unlocked
	}
	return Locked
}

// ParseLockState accepts exactly "Locked" or "Unlocked".
func ParseLockState(s string) (LockState, error) {
	switch LockState(s) {
	case Locked, Unlocked:
		return LockState(s), nil
	}
	return "", fmt.Errorf("unknown lock state %q", s)
}

// UnmarshalJSON rejects anything but a known lock state.
func (s *LockState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseLockState(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// HingeState is the sensed state of the door hinge.
type HingeState string

const (
	Open   HingeState = "Open"
	Closed HingeState = "Closed"
)

// Color is the colour shown by the LED indicator.
type Color string

const (
	Red   Color = "red"
	Green Color = "green"
)

// EventType represents a door state transition.
type EventType string

const (
	EventLocked   EventType = "LOCKED"
	EventUnlocked EventType = "UNLOCKED"
	EventOpened   EventType = "OPENED"
	EventClosed   EventType = "CLOSED"
	// EventForced is emitted when the door is open while the lock is engaged.
	EventForced EventType = "FORCED"
)

// Event represents a state transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Lock      LockState
	Hinge     HingeState
}

// Observation is one sample of the lock and hinge taken by the control loop.
type Observation struct {
	Lock  LockState
	Hinge HingeState
	Time  time.Time
}

// HingeChannel tracks debounce state for the hinge.
type HingeChannel struct {
	// Current stable (debounced) state
	Stable HingeState
	// Pending state during debounce
	Pending HingeState
	// Time when pending state was first observed
	PendingSince time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Locked   int
	Unlocked int
	Opened   int
	Closed   int
	Forced   int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
