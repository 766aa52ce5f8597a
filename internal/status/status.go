// Package status provides a thread-safe status tracker for the castle daemon.
// It is written by the control loop and read by HTTP handlers and MQTT
// system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/castle/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs        int64
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
	MountPoint    string
	Driver        string
	Device        string
	LEDsActiveLow bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Lock          logic.LockState
	Hinge         logic.HingeState
	Color         logic.Color
	Tick          uint
	Observed      bool
	LastObserved  time.Time
	Counts        logic.EventCounts
	LoopErrors    int
	LastError     string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records a successful control loop iteration.
func (t *Tracker) Update(obs logic.Observation, color logic.Color, tick uint, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Lock = obs.Lock
	t.snap.Hinge = obs.Hinge
	t.snap.Color = color
	t.snap.Tick = tick
	t.snap.Observed = true
	t.snap.LastObserved = obs.Time
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordError records a failed control loop iteration.
func (t *Tracker) RecordError(err error) {
	t.mu.Lock()
	t.snap.LoopErrors++
	t.snap.LastError = err.Error()
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
