// Package config loads the castle.yaml configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/castle/internal/gpio"
)

// ErrInvalid is wrapped by every configuration error.
var ErrInvalid = errors.New("invalid config")

// Drivers.
const (
	DriverCdev   = "gpiocdev"
	DriverPeriph = "periph"
)

// Defaults.
const (
	DefaultPoll            = 50 * time.Millisecond
	DefaultHingeDebounce   = 100 * time.Millisecond
	DefaultClientID        = "castle"
	DefaultHeartbeat       = 15 * time.Minute
	DefaultShutdownTimeout = 5 * time.Second
)

type Config struct {
	ExpanderDevice string        `yaml:"expander_device"`
	Driver         string        `yaml:"driver"`
	OutputPins     OutputPins    `yaml:"output_pins"`
	InputPins      InputPins     `yaml:"input_pins"`
	Server         ServerConfig  `yaml:"server"`
	Control        ControlConfig `yaml:"control"`
	MQTT           MQTTConfig    `yaml:"mqtt"`
}

type OutputPins struct {
	GreenLEDs []int `yaml:"green_leds"`
	RedLEDs   []int `yaml:"red_leds"`
	Lock      *int  `yaml:"lock"`
	// LEDsActiveLow defaults to true.
	LEDsActiveLow *bool `yaml:"leds_active_low"`
}

type InputPins struct {
	Hinge     *int      `yaml:"hinge"`
	HingeBias gpio.Bias `yaml:"hinge_bias"`
}

type ServerConfig struct {
	Address    string `yaml:"address"`
	Port       int    `yaml:"port"`
	MountPoint string `yaml:"mount_point"`
}

type ControlConfig struct {
	Poll          time.Duration `yaml:"poll"`
	HingeDebounce time.Duration `yaml:"hinge_debounce"`
}

type MQTTConfig struct {
	Broker    string         `yaml:"broker"`
	ClientID  string         `yaml:"client_id"`
	Heartbeat *time.Duration `yaml:"heartbeat"`
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalid, path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalid, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverCdev
	}
	if c.OutputPins.LEDsActiveLow == nil {
		t := true
		c.OutputPins.LEDsActiveLow = &t
	}
	if c.Control.Poll == 0 {
		c.Control.Poll = DefaultPoll
	}
	if c.Control.HingeDebounce == 0 {
		c.Control.HingeDebounce = DefaultHingeDebounce
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientID
	}
	if c.MQTT.Heartbeat == nil {
		d := DefaultHeartbeat
		c.MQTT.Heartbeat = &d
	}
	if c.Server.MountPoint != "/" {
		c.Server.MountPoint = strings.TrimSuffix(c.Server.MountPoint, "/")
	}
}

// Validate reports the first problem found, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	switch c.Driver {
	case DriverCdev:
		if strings.TrimSpace(c.ExpanderDevice) == "" {
			return invalid("expander_device is required for driver %q", DriverCdev)
		}
	case DriverPeriph:
	default:
		return invalid("unknown driver %q", c.Driver)
	}

	if c.OutputPins.Lock == nil {
		return invalid("output_pins.lock is required")
	}
	if c.InputPins.Hinge == nil {
		return invalid("input_pins.hinge is required")
	}
	if !c.InputPins.HingeBias.Valid() {
		return invalid("input_pins.hinge_bias %q is not one of pull-up, pull-down, disabled", c.InputPins.HingeBias)
	}

	seen := make(map[int]string)
	check := func(name string, pin int) error {
		if pin < 0 {
			return invalid("%s: pin %d is negative", name, pin)
		}
		if other, ok := seen[pin]; ok {
			return invalid("%s: pin %d already used by %s", name, pin, other)
		}
		seen[pin] = name
		return nil
	}
	if err := check("output_pins.lock", *c.OutputPins.Lock); err != nil {
		return err
	}
	if err := check("input_pins.hinge", *c.InputPins.Hinge); err != nil {
		return err
	}
	for _, p := range c.OutputPins.GreenLEDs {
		if err := check("output_pins.green_leds", p); err != nil {
			return err
		}
	}
	for _, p := range c.OutputPins.RedLEDs {
		if err := check("output_pins.red_leds", p); err != nil {
			return err
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d out of range", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.MountPoint, "/") {
		return invalid("server.mount_point %q must start with /", c.Server.MountPoint)
	}
	if err := checkMountPoint(c.Server.MountPoint); err != nil {
		return invalid("server.mount_point %q: %v", c.Server.MountPoint, err)
	}

	if c.Control.Poll < 0 {
		return invalid("control.poll must be positive")
	}
	if c.Control.HingeDebounce < 0 {
		return invalid("control.hinge_debounce must not be negative")
	}
	if c.MQTT.Heartbeat != nil && *c.MQTT.Heartbeat < 0 {
		return invalid("mqtt.heartbeat must not be negative")
	}
	return nil
}

// checkMountPoint accepts plain path segments only, so the mount point can be
// joined into ServeMux patterns without introducing wildcards.
func checkMountPoint(mp string) error {
	if strings.Contains(mp, "//") {
		return errors.New("empty path segment")
	}
	for _, r := range mp {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("/-._~", r):
		default:
			return fmt.Errorf("character %q not allowed", r)
		}
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// ActiveLow reports whether LEDs are lit by driving Low.
func (c *Config) ActiveLow() bool {
	return c.OutputPins.LEDsActiveLow == nil || *c.OutputPins.LEDsActiveLow
}

// HeartbeatInterval returns the MQTT heartbeat interval; 0 disables it.
func (c *Config) HeartbeatInterval() time.Duration {
	if c.MQTT.Heartbeat == nil {
		return DefaultHeartbeat
	}
	return *c.MQTT.Heartbeat
}
