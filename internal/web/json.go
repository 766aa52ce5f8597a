package web

import (
	"encoding/json"
	"net/http"

	"github.com/sweeney/castle/internal/logic"
)

// PutLockRequest is the body of PUT /lock. A missing state is a no-op.
type PutLockRequest struct {
	State *logic.LockState `json:"state"`
}

// LockResponse is the body of GET /lock.
type LockResponse struct {
	State      logic.LockState `json:"state"`
	LastChange int64           `json:"last_change"` // unix seconds
}

// HingeResponse is the body of GET /hinge.
type HingeResponse struct {
	State logic.HingeState `json:"state"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
