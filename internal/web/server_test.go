package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/castle/internal/gpio"
	"github.com/sweeney/castle/internal/guard"
	"github.com/sweeney/castle/internal/hinge"
	"github.com/sweeney/castle/internal/lock"
	"github.com/sweeney/castle/internal/logic"
	"github.com/sweeney/castle/internal/status"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	ts      *httptest.Server
	tracker *status.Tracker
	lockPin *gpio.FakePin
	hinge   *gpio.FakePin
	clock   *fakeClock
}

func newTestEnv(t *testing.T, mountPoint string) *testEnv {
	t.Helper()
	chip := gpio.NewFakeChip()
	out, err := chip.Output(0, gpio.Low)
	require.NoError(t, err)
	in, err := chip.Input(1, gpio.BiasPullUp)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	act, err := lock.NewWithClock(out, clock.Now)
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := status.NewTracker(start, status.Config{
		PollMs:     50,
		Broker:     "tcp://192.168.1.200:1883",
		HTTPAddr:   ":8080",
		MountPoint: mountPoint,
		Driver:     "gpiocdev",
	})

	srv := New(":0", mountPoint, guard.New(act), guard.New(hinge.New(in)), tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, tracker: tr, lockPin: chip.Pin(0), hinge: chip.Pin(1), clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLockBusyThenAcceptedAfterInterval(t *testing.T) {
	env := newTestEnv(t, "/")

	resp := env.do(t, http.MethodGet, "/lock", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[LockResponse](t, resp)
	assert.Equal(t, logic.Locked, got.State)

	resp = env.do(t, http.MethodPut, "/lock", `{"state":"Unlocked"}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	e := decode[ErrorResponse](t, resp)
	assert.Equal(t, "lock_busy", e.Error)

	env.clock.Advance(lock.MinInterval)

	resp = env.do(t, http.MethodPut, "/lock", `{"state":"Unlocked"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/lock", "")
	got = decode[LockResponse](t, resp)
	assert.Equal(t, logic.Unlocked, got.State)
	assert.Equal(t, env.clock.Now().Unix(), got.LastChange)
	assert.Equal(t, gpio.High, env.lockPin.Level())
}

func TestPutLockWithoutStateIsNoop(t *testing.T) {
	env := newTestEnv(t, "/")
	before := env.lockPin.Writes()

	resp := env.do(t, http.MethodPut, "/lock", `{}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/lock", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, before, env.lockPin.Writes())
}

func TestPutLockBadJSON(t *testing.T) {
	env := newTestEnv(t, "/")

	for _, body := range []string{
		`{"state":"Open"}`,
		`{"state":"locked"}`,
		`{"state":`,
		`{"colour":"red"}`,
	} {
		resp := env.do(t, http.MethodPut, "/lock", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		e := decode[ErrorResponse](t, resp)
		assert.Equal(t, "bad_json", e.Error, body)
	}
}

func TestPutLockRejectsTrailingData(t *testing.T) {
	env := newTestEnv(t, "/")
	env.clock.Advance(lock.MinInterval)
	before := env.lockPin.Writes()

	for _, body := range []string{
		`{"state":"Unlocked"} garbage`,
		`{"state":"Unlocked"}{"state":"Locked"}`,
		`{"state":"Unlocked"} 1`,
	} {
		resp := env.do(t, http.MethodPut, "/lock", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		e := decode[ErrorResponse](t, resp)
		assert.Equal(t, "bad_json", e.Error, body)
	}
	assert.Equal(t, before, env.lockPin.Writes(), "rejected bodies must not drive the lock")

	resp := env.do(t, http.MethodPut, "/lock", "{\"state\":\"Unlocked\"}\n")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "trailing whitespace is allowed")
}

func TestNewAcceptsPlainMountPoints(t *testing.T) {
	for _, mp := range []string{"/", "/api", "/castle/v1", "/front-door_2.x~"} {
		assert.NotPanics(t, func() {
			New(":0", mp, nil, nil, nil)
		}, mp)
	}
}

func TestToggleLock(t *testing.T) {
	env := newTestEnv(t, "/")
	env.clock.Advance(lock.MinInterval)

	resp := env.do(t, http.MethodPost, "/lock?toggle", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, gpio.High, env.lockPin.Level())

	resp = env.do(t, http.MethodPost, "/lock?toggle", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, gpio.High, env.lockPin.Level())

	env.clock.Advance(lock.MinInterval)
	resp = env.do(t, http.MethodPost, "/lock?toggle", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, gpio.Low, env.lockPin.Level())
}

func TestToggleRequiresQueryParam(t *testing.T) {
	env := newTestEnv(t, "/")
	env.clock.Advance(lock.MinInterval)

	resp := env.do(t, http.MethodPost, "/lock", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decode[ErrorResponse](t, resp)
	assert.Equal(t, "missing_toggle", e.Error)
	assert.Equal(t, gpio.Low, env.lockPin.Level())
}

func TestGetHinge(t *testing.T) {
	env := newTestEnv(t, "/")

	env.hinge.Set(gpio.High)
	resp := env.do(t, http.MethodGet, "/hinge", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, logic.Closed, decode[HingeResponse](t, resp).State)

	env.hinge.Set(gpio.Low)
	resp = env.do(t, http.MethodGet, "/hinge", "")
	assert.Equal(t, logic.Open, decode[HingeResponse](t, resp).State)
}

func TestHardwareFailureIsServiceUnavailable(t *testing.T) {
	env := newTestEnv(t, "/")
	env.hinge.SetReadError(&gpio.PinError{Op: "read", Pin: 1, Err: errors.New("spi timeout")})

	resp := env.do(t, http.MethodGet, "/hinge", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	e := decode[ErrorResponse](t, resp)
	assert.Equal(t, "io_error", e.Error)
	assert.Contains(t, e.Message, "spi timeout")
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	env := newTestEnv(t, "/")
	env.lockPin.SetReadError(errors.New("boom"))

	resp := env.do(t, http.MethodGet, "/lock", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	e := decode[ErrorResponse](t, resp)
	assert.Equal(t, "internal_error", e.Error)
}

func TestFailedWriteKeepsLastChange(t *testing.T) {
	env := newTestEnv(t, "/")
	env.clock.Advance(time.Second)
	env.lockPin.SetWriteError(&gpio.PinError{Op: "write", Pin: 0, Err: errors.New("bus error")})

	resp := env.do(t, http.MethodPut, "/lock", `{"state":"Unlocked"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	env.lockPin.SetWriteError(nil)
	resp = env.do(t, http.MethodPut, "/lock", `{"state":"Unlocked"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "a failed write must not start the busy window")
}

func TestMountPointPrefix(t *testing.T) {
	env := newTestEnv(t, "/castle")

	resp := env.do(t, http.MethodGet, "/castle/lock", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/castle/hinge", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/lock", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, "/")

	resp := env.do(t, http.MethodDelete, "/lock", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/hinge", `{"state":"Open"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t, "/")
	obs := logic.Observation{Lock: logic.Unlocked, Hinge: logic.Open, Time: time.Now()}
	env.tracker.Update(obs, logic.Green, 3, logic.EventCounts{Unlocked: 1, Opened: 2})
	env.tracker.SetMQTTConnected(true)

	resp := env.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	sj := decode[status.StatusJSON](t, resp)
	assert.Equal(t, "Unlocked", sj.Status.Lock)
	assert.Equal(t, "Open", sj.Status.Hinge)
	assert.Equal(t, "green", sj.Status.LED)
	assert.True(t, sj.Status.Ready)
	assert.True(t, sj.Status.MQTT.Connected)
	assert.Equal(t, 2, sj.Status.Counts.Opened)
	assert.Equal(t, "gpiocdev", sj.Status.Config.Driver)
}

func TestStatusUnknownBeforeFirstObservation(t *testing.T) {
	env := newTestEnv(t, "/")

	resp := env.do(t, http.MethodGet, "/status", "")
	sj := decode[status.StatusJSON](t, resp)
	assert.Equal(t, "UNKNOWN", sj.Status.Lock)
	assert.Equal(t, "UNKNOWN", sj.Status.Hinge)
	assert.False(t, sj.Status.Ready)
}

func TestHTMLEndpointRoot(t *testing.T) {
	env := newTestEnv(t, "/castle")
	obs := logic.Observation{Lock: logic.Locked, Hinge: logic.Open, Time: time.Now()}
	env.tracker.Update(obs, logic.Red, 2, logic.EventCounts{Forced: 1})

	resp := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	html := string(body)
	assert.Contains(t, html, "<title>Castle</title>")
	assert.Contains(t, html, `id="lock-state">Locked<`)
	assert.Contains(t, html, `class="red"`)
	assert.Contains(t, html, `href="/castle/status"`)
	assert.Contains(t, html, "tcp://192.168.1.200:1883")
}

func TestNotFoundForUnknownPath(t *testing.T) {
	env := newTestEnv(t, "/")

	resp := env.do(t, http.MethodGet, "/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
