// Command castle drives a door lock and two-colour status LEDs from a GPIO
// expander and serves the lock and hinge state over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/castle/internal/config"
	"github.com/sweeney/castle/internal/gpio"
	"github.com/sweeney/castle/internal/guard"
	"github.com/sweeney/castle/internal/hinge"
	"github.com/sweeney/castle/internal/led"
	"github.com/sweeney/castle/internal/lock"
	"github.com/sweeney/castle/internal/logic"
	"github.com/sweeney/castle/internal/mqtt"
	"github.com/sweeney/castle/internal/status"
	"github.com/sweeney/castle/internal/web"
)

func main() {
	configPath := flag.String("config", "castle.yaml", "Path to the YAML configuration file")
	checkConfig := flag.Bool("check-config", false, "Validate the configuration and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *checkConfig {
		fmt.Printf("%s: ok\n", *configPath)
		return
	}

	chip, err := openChip(cfg)
	if err != nil {
		log.Fatalf("fatal: open gpio: %v", err)
	}

	var pub mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		pub = mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	}

	ticker := time.NewTicker(cfg.Control.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(cfg, chip, pub, ticker.C, sigCh); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func openChip(cfg *config.Config) (gpio.Chip, error) {
	if cfg.Driver == config.DriverPeriph {
		c, err := gpio.NewPeriphChip()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := gpio.NewRealChip(cfg.ExpanderDevice)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// hardware is the shared state built from the configured pins.
type hardware struct {
	lock  *guard.Guard[*lock.Actuator]
	hinge *guard.Guard[*hinge.Sensor]
	led   *led.Indicator
}

// setupHardware requests every configured line from chip. LEDs start off
// and the lock starts Locked.
func setupHardware(cfg *config.Config, chip gpio.Chip) (*hardware, error) {
	activeLow := cfg.ActiveLow()
	off := gpio.Low
	if activeLow {
		off = gpio.High
	}

	outputs := func(pins []int) ([]gpio.Output, error) {
		outs := make([]gpio.Output, 0, len(pins))
		for _, p := range pins {
			o, err := chip.Output(p, off)
			if err != nil {
				return nil, err
			}
			outs = append(outs, o)
		}
		return outs, nil
	}
	green, err := outputs(cfg.OutputPins.GreenLEDs)
	if err != nil {
		return nil, fmt.Errorf("green leds: %w", err)
	}
	red, err := outputs(cfg.OutputPins.RedLEDs)
	if err != nil {
		return nil, fmt.Errorf("red leds: %w", err)
	}

	lockOut, err := chip.Output(*cfg.OutputPins.Lock, gpio.Low)
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}
	act, err := lock.New(lockOut)
	if err != nil {
		return nil, err
	}

	hingeIn, err := chip.Input(*cfg.InputPins.Hinge, cfg.InputPins.HingeBias)
	if err != nil {
		return nil, fmt.Errorf("hinge: %w", err)
	}

	return &hardware{
		lock:  guard.New(act),
		hinge: guard.New(hinge.New(hingeIn)),
		led:   led.NewIndicator(green, red, activeLow),
	}, nil
}

// run wires the daemon together and blocks until a signal arrives. It owns
// chip and pub and releases both before returning. pub may be nil when MQTT
// is disabled.
func run(cfg *config.Config, chip gpio.Chip, pub mqtt.Publisher, tick <-chan time.Time, sig <-chan os.Signal) error {
	defer func() {
		if err := chip.Close(); err != nil {
			log.Printf("release gpio: %v", err)
		}
	}()

	hw, err := setupHardware(cfg, chip)
	if err != nil {
		if pub != nil {
			pub.Close()
		}
		return fmt.Errorf("init hardware: %w", err)
	}

	conn, _ := pub.(mqtt.ConnectionStatus)
	heartbeat := cfg.HeartbeatInterval()
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:        cfg.Control.Poll.Milliseconds(),
		HeartbeatMs:   heartbeat.Milliseconds(),
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.Addr(),
		MountPoint:    cfg.Server.MountPoint,
		Driver:        cfg.Driver,
		Device:        cfg.ExpanderDevice,
		LEDsActiveLow: cfg.ActiveLow(),
	})

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		if pub != nil {
			pub.Close()
		}
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}

	publishSystem(pub, conn, tracker, "STARTUP", "", true)

	srv := web.New(cfg.Addr(), cfg.Server.MountPoint, hw.lock, hw.hinge, tracker)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	log.Printf("http api listening on %s (mount %s)", ln.Addr(), cfg.Server.MountPoint)

	pumpCtx, stopPump := context.WithCancel(context.Background())
	pumpDone := make(chan struct{})
	queue := mqtt.NewQueue(mqtt.DefaultQueueSize)
	if pub != nil {
		go func() {
			queue.Run(pumpCtx, pub)
			close(pumpDone)
		}()
	} else {
		close(pumpDone)
	}

	var heartbeats sync.WaitGroup
	detector := logic.NewDetector(cfg.Control.HingeDebounce, time.Now())
	ctrl := led.NewController(hw.lock, hw.hinge, hw.led, led.Hooks{
		OnResult: func(res led.Result) {
			wasBaselined := detector.IsBaselined()
			events := detector.Process(res.Observation)
			if !wasBaselined && detector.IsBaselined() {
				l, h := detector.CurrentState()
				log.Printf("baseline: lock=%s hinge=%s", l, h)
			}
			if pub != nil {
				for _, e := range events {
					queue.Offer(e)
				}
			} else {
				for _, e := range events {
					log.Printf("event: %s (lock=%s hinge=%s)", e.Type, e.Lock, e.Hinge)
				}
			}
			tracker.Update(res.Observation, res.Color, res.Tick, detector.EventCountsSnapshot())
			if conn != nil {
				tracker.SetMQTTConnected(conn.IsConnected())
			}

			if hb := detector.CheckHeartbeat(res.Observation.Time, heartbeat); hb != nil {
				c := hb.Counts
				log.Printf("heartbeat: uptime=%v locked=%d unlocked=%d opened=%d closed=%d forced=%d",
					hb.Uptime.Truncate(time.Second), c.Locked, c.Unlocked, c.Opened, c.Closed, c.Forced)
				// Off the loop goroutine; a connected publish may wait on the broker.
				heartbeats.Add(1)
				go func() {
					defer heartbeats.Done()
					publishSystem(pub, conn, tracker, "HEARTBEAT", "", false)
				}()
			}
		},
		OnError: tracker.RecordError,
	})

	log.Printf("started: driver=%s poll=%v broker=%q heartbeat=%v", cfg.Driver, cfg.Control.Poll, cfg.MQTT.Broker, heartbeat)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		ctrl.Run(loopCtx, tick)
		close(loopDone)
	}()

	s := <-sig
	log.Printf("received %v, shutting down", s)

	stopLoop()
	<-loopDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	cancel()

	stopPump()
	<-pumpDone
	heartbeats.Wait()

	publishSystem(pub, conn, tracker, "SHUTDOWN", signalName(s), true)
	if pub != nil {
		pub.Close()
	}
	return nil
}

// publishSystem publishes a system event carrying a full status snapshot.
func publishSystem(pub mqtt.Publisher, conn mqtt.ConnectionStatus, tracker *status.Tracker, event, reason string, retained bool) {
	if pub == nil {
		return
	}
	if conn != nil {
		tracker.SetMQTTConnected(conn.IsConnected())
	}
	snap := tracker.Snapshot()
	err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
