// Package handlers exposes the audio policy manager over a JSON HTTP API.
//
// Every handler takes the Handlers lock before touching the manager, so
// requests are applied one at a time in arrival order. Engine errors are
// mapped to status codes by their type:
//
//	invalid_argument  -> 400
//	not_found         -> 404
//	invalid_operation -> 409
//	hardware          -> 502
//	no_init           -> 503
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/logging"
	"audio-policy/internal/policy"

	"github.com/gorilla/mux"
)

// APIPrefix is the path prefix of every policy endpoint
const APIPrefix = "/api/v1"

// Handlers serves the policy API on top of one Manager
type Handlers struct {
	mu      sync.Mutex
	manager *policy.Manager
	logger  logging.Logger
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// New creates the handlers for manager
func New(manager *policy.Manager, logger logging.Logger) *Handlers {
	return &Handlers{
		manager: manager,
		logger:  logger,
	}
}

// RegisterRoutes mounts the policy endpoints on router under APIPrefix
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix(APIPrefix).Subrouter()

	api.HandleFunc("/ports", h.ListPorts).Methods("GET")
	api.HandleFunc("/ports/{id}", h.GetPort).Methods("GET")

	api.HandleFunc("/patches", h.ListPatches).Methods("GET")
	api.HandleFunc("/patches", h.CreatePatch).Methods("POST")
	api.HandleFunc("/patches/{handle}", h.ReleasePatch).Methods("DELETE")

	api.HandleFunc("/outputs", h.GetOutput).Methods("POST")
	api.HandleFunc("/outputs/{id}/start", h.StartOutput).Methods("POST")
	api.HandleFunc("/outputs/{id}/stop", h.StopOutput).Methods("POST")
	api.HandleFunc("/outputs/{id}", h.ReleaseOutput).Methods("DELETE")

	api.HandleFunc("/inputs", h.GetInput).Methods("POST")
	api.HandleFunc("/inputs/{id}/start", h.StartInput).Methods("POST")
	api.HandleFunc("/inputs/{id}/stop", h.StopInput).Methods("POST")
	api.HandleFunc("/inputs/{id}", h.ReleaseInput).Methods("DELETE")

	api.HandleFunc("/mixes", h.ListMixes).Methods("GET")
	api.HandleFunc("/mixes", h.RegisterMixes).Methods("POST")
	api.HandleFunc("/mixes", h.UnregisterMixes).Methods("DELETE")

	api.HandleFunc("/force-use/{usage}", h.GetForceUse).Methods("GET")
	api.HandleFunc("/force-use/{usage}", h.SetForceUse).Methods("PUT")

	api.HandleFunc("/devices", h.GetDeviceConnection).Methods("GET")
	api.HandleFunc("/devices", h.SetDeviceConnection).Methods("PUT")
}

// HealthCheck reports whether the manager finished initialization
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	err := h.manager.InitCheck()
	h.mu.Unlock()

	status := "healthy"
	code := http.StatusOK
	if err != nil {
		status = "uninitialized"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]string{"status": status})
}

// statusFor maps an engine error to the HTTP status reported for it
func statusFor(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeInvalidOperation:
		return http.StatusConflict
	case errors.ErrTypeHardware:
		return http.StatusBadGateway
	case errors.ErrTypeNoInit:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("Request failed", err)
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error(), Type: string(errors.GetType(err))})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.InvalidArgumentError(fmt.Sprintf("invalid JSON: %v", err), err)
	}
	return nil
}

// pathInt32 parses the path variable name as a handle
func pathInt32(r *http.Request, name string) (int32, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 32)
	if err != nil {
		return 0, errors.InvalidArgumentError(fmt.Sprintf("invalid %s %q", name, mux.Vars(r)[name]), err)
	}
	return int32(v), nil
}

// queryUID parses the optional uid query parameter; absent means uid 0
func queryUID(r *http.Request) (audio.UID, error) {
	v := r.URL.Query().Get("uid")
	if v == "" {
		return 0, nil
	}
	uid, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, errors.InvalidArgumentError(fmt.Sprintf("invalid uid %q", v), err)
	}
	return audio.UID(uid), nil
}
