package logic

import "time"

// Detector tracks observed door state and detects transitions.
type Detector struct {
	debounceDuration time.Duration
	lock             LockState
	hinge            HingeChannel
	baselined        bool
	startTime        time.Time
	eventCounts      EventCounts
	lastHeartbeat    time.Time
}

// NewDetector creates a new transition detector. Hinge changes must persist
// for debounceDuration before they are reported; lock changes are reported
// on the first observation since the lock is our own output.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(debounceDuration time.Duration, startTime time.Time) *Detector {
	return &Detector{
		debounceDuration: debounceDuration,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Process takes a new observation and returns any events that should be emitted.
// The first observation establishes the baseline and emits nothing.
func (d *Detector) Process(obs Observation) []Event {
	if !d.baselined {
		d.lock = obs.Lock
		d.hinge.Stable = obs.Hinge
		d.baselined = true
		return nil
	}

	var events []Event
	emit := func(t EventType) {
		events = append(events, Event{
			Timestamp: obs.Time,
			Type:      t,
			Lock:      d.lock,
			Hinge:     d.hinge.Stable,
		})
	}

	// Order: lock first, then hinge, then FORCED if both changed at once.
	lockChanged := obs.Lock != d.lock
	if lockChanged {
		d.lock = obs.Lock
		if obs.Lock == Locked {
			emit(EventLocked)
		} else {
			emit(EventUnlocked)
		}
	}

	hingeChanged := d.processHinge(obs.Hinge, obs.Time)
	if hingeChanged {
		if d.hinge.Stable == Open {
			emit(EventOpened)
		} else {
			emit(EventClosed)
		}
	}

	if (lockChanged || hingeChanged) && d.lock == Locked && d.hinge.Stable == Open {
		emit(EventForced)
	}

	for _, e := range events {
		switch e.Type {
		case EventLocked:
			d.eventCounts.Locked++
		case EventUnlocked:
			d.eventCounts.Unlocked++
		case EventOpened:
			d.eventCounts.Opened++
		case EventClosed:
			d.eventCounts.Closed++
		case EventForced:
			d.eventCounts.Forced++
		}
	}

	return events
}

// processHinge applies debounce to the hinge and reports whether the
// stable state changed.
func (d *Detector) processHinge(newState HingeState, now time.Time) bool {
	h := &d.hinge
	if newState == h.Stable {
		h.Pending = ""
		return false
	}

	if h.Pending != newState {
		h.Pending = newState
		h.PendingSince = now
	}

	if now.Sub(h.PendingSince) >= d.debounceDuration {
		h.Stable = newState
		h.Pending = ""
		return true
	}
	return false
}

// IsBaselined returns whether the detector has seen its first observation.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the current stable states.
func (d *Detector) CurrentState() (LockState, HingeState) {
	return d.lock, d.hinge.Stable
}

// EventCountsSnapshot returns a copy of the event counters.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
