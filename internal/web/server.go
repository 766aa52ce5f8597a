// Package web provides the HTTP API for the lock and hinge, plus a status
// page for the castle daemon.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/castle/internal/gpio"
	"github.com/sweeney/castle/internal/guard"
	"github.com/sweeney/castle/internal/hinge"
	"github.com/sweeney/castle/internal/lock"
	"github.com/sweeney/castle/internal/logic"
	"github.com/sweeney/castle/internal/status"
)

// maxRequestBody caps request bodies; a lock request is a few dozen bytes.
const maxRequestBody = 4096

// Server serves the lock/hinge API and the status page over HTTP.
type Server struct {
	httpServer *http.Server
	lock       *guard.Guard[*lock.Actuator]
	hinge      *guard.Guard[*hinge.Sensor]
	tracker    *status.Tracker
	mountPoint string
}

// New creates a Server. API routes are mounted under mountPoint ("/" or a
// path without trailing slash); the HTML status page is always at "/".
// The lock and hinge guards are the same ones the control loop uses.
func New(addr, mountPoint string, l *guard.Guard[*lock.Actuator], h *guard.Guard[*hinge.Sensor], tracker *status.Tracker) *Server {
	s := &Server{
		lock:       l,
		hinge:      h,
		tracker:    tracker,
		mountPoint: mountPoint,
	}

	prefix := mountPoint
	if prefix == "/" {
		prefix = ""
	}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT "+prefix+"/lock", s.handlePutLock)
	mux.HandleFunc("POST "+prefix+"/lock", s.handleToggleLock)
	mux.HandleFunc("GET "+prefix+"/lock", s.handleGetLock)
	mux.HandleFunc("GET "+prefix+"/hinge", s.handleGetHinge)
	mux.HandleFunc("GET "+prefix+"/status", s.handleStatus)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handlePutLock(w http.ResponseWriter, r *http.Request) {
	var req PutLockRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body: "+err.Error())
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body: trailing data after object")
		return
	}

	if req.State == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	err := s.lock.Do(func(a *lock.Actuator) error {
		return a.SetState(*req.State)
	})
	if err != nil {
		s.writeFailure(w, "set lock", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleLock(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("toggle") {
		writeError(w, http.StatusBadRequest, "missing_toggle", "POST requires the toggle query parameter")
		return
	}

	err := s.lock.Do(func(a *lock.Actuator) error {
		_, err := a.Toggle()
		return err
	})
	if err != nil {
		s.writeFailure(w, "toggle lock", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetLock(w http.ResponseWriter, r *http.Request) {
	var resp LockResponse
	err := s.lock.Do(func(a *lock.Actuator) error {
		state, err := a.ReadState()
		if err != nil {
			return err
		}
		resp = LockResponse{State: state, LastChange: a.LastChange().Unix()}
		return nil
	})
	if err != nil {
		s.writeFailure(w, "read lock", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetHinge(w http.ResponseWriter, r *http.Request) {
	var state logic.HingeState
	err := s.hinge.Do(func(h *hinge.Sensor) error {
		var err error
		state, err = h.ReadState()
		return err
	})
	if err != nil {
		s.writeFailure(w, "read hinge", err)
		return
	}
	writeJSON(w, http.StatusOK, HingeResponse{State: state})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot(), s.mountPoint)
}

// writeFailure maps lock/hardware errors to a response.
func (s *Server) writeFailure(w http.ResponseWriter, op string, err error) {
	var pe *gpio.PinError
	switch {
	case errors.Is(err, lock.ErrBusy):
		writeError(w, http.StatusTooManyRequests, "lock_busy", err.Error())
	case errors.As(err, &pe):
		log.Printf("%s: %v", op, err)
		writeError(w, http.StatusServiceUnavailable, "io_error", err.Error())
	default:
		log.Printf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
