package handlers

import (
	"net/http"

	"audio-policy/internal/audio"
	"audio-policy/internal/policymix"
	"audio-policy/internal/routing"

	"github.com/gorilla/mux"
)

// ForceUseBody is the body of a force use request and response
type ForceUseBody struct {
	Usage  routing.ForceUse     `json:"usage"`
	Config routing.ForcedConfig `json:"config"`
}

// DeviceConnection is the connection state of one device
type DeviceConnection struct {
	Type      audio.DeviceType `json:"type"`
	Address   string           `json:"address"`
	Name      string           `json:"name,omitempty"`
	Connected bool             `json:"connected"`
}

// ListMixes returns the registered policy mixes in registration order
func (h *Handlers) ListMixes(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	entries, err := h.manager.PolicyMixes()
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// RegisterMixes registers a set of policy mixes; either all are registered or none
func (h *Handlers) RegisterMixes(w http.ResponseWriter, r *http.Request) {
	var mixes []policymix.Mix
	if err := decode(r, &mixes); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	entries, err := h.manager.RegisterPolicyMixes(mixes)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entries)
}

// UnregisterMixes unregisters a set of policy mixes; either all are removed or none
func (h *Handlers) UnregisterMixes(w http.ResponseWriter, r *http.Request) {
	var mixes []policymix.Mix
	if err := decode(r, &mixes); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	err := h.manager.UnregisterPolicyMixes(mixes)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetForceUse returns the config forced on the usage in the path
func (h *Handlers) GetForceUse(w http.ResponseWriter, r *http.Request) {
	var usage routing.ForceUse
	if err := usage.UnmarshalText([]byte(mux.Vars(r)["usage"])); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	config, err := h.manager.GetForceUse(usage)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ForceUseBody{Usage: usage, Config: config})
}

// SetForceUse forces the config in the body on the usage in the path
func (h *Handlers) SetForceUse(w http.ResponseWriter, r *http.Request) {
	var usage routing.ForceUse
	if err := usage.UnmarshalText([]byte(mux.Vars(r)["usage"])); err != nil {
		h.writeError(w, err)
		return
	}
	var body struct {
		Config routing.ForcedConfig `json:"config"`
	}
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	err := h.manager.SetForceUse(usage, body.Config)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ForceUseBody{Usage: usage, Config: body.Config})
}

// GetDeviceConnection reports the state of the device named by the type and
// address query parameters
func (h *Handlers) GetDeviceConnection(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	dev := DeviceConnection{Address: query.Get("address")}
	if err := dev.Type.UnmarshalText([]byte(query.Get("type"))); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	connected, err := h.manager.GetDeviceConnectionState(dev.Type, dev.Address)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	dev.Connected = connected
	writeJSON(w, http.StatusOK, dev)
}

// SetDeviceConnection connects or disconnects a device
func (h *Handlers) SetDeviceConnection(w http.ResponseWriter, r *http.Request) {
	var dev DeviceConnection
	if err := decode(r, &dev); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	err := h.manager.SetDeviceConnectionState(dev.Type, dev.Address, dev.Name, dev.Connected)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dev)
}
