package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Lock          string     `json:"lock"`
	Hinge         string     `json:"hinge"`
	LED           string     `json:"led"`
	Ready         bool       `json:"ready"`
	LoopErrors    int        `json:"loop_errors"`
	LastError     string     `json:"last_error,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Locked   int `json:"locked"`
	Unlocked int `json:"unlocked"`
	Opened   int `json:"opened"`
	Closed   int `json:"closed"`
	Forced   int `json:"forced"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	MountPoint    string `json:"mount_point"`
	Driver        string `json:"driver"`
	Device        string `json:"device,omitempty"`
	LEDsActiveLow bool   `json:"leds_active_low"`
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Lock:          orUnknown(string(snap.Lock)),
		Hinge:         orUnknown(string(snap.Hinge)),
		LED:           orUnknown(string(snap.Color)),
		Ready:         snap.Observed,
		LoopErrors:    snap.LoopErrors,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Locked:   snap.Counts.Locked,
			Unlocked: snap.Counts.Unlocked,
			Opened:   snap.Counts.Opened,
			Closed:   snap.Counts.Closed,
			Forced:   snap.Counts.Forced,
		},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			MountPoint:    snap.Config.MountPoint,
			Driver:        snap.Config.Driver,
			Device:        snap.Config.Device,
			LEDsActiveLow: snap.Config.LEDsActiveLow,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
