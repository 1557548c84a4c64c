package handlers

import (
	"net/http"

	"audio-policy/internal/audio"
	"audio-policy/internal/patch"
)

// PortsResponse is a port listing and the topology generation it was taken at
type PortsResponse struct {
	Ports      []audio.PortInfo `json:"ports"`
	Generation uint32           `json:"generation"`
}

// PatchesResponse is a patch listing and the patch generation it was taken at
type PatchesResponse struct {
	Patches    []patch.Record `json:"patches"`
	Generation uint32         `json:"generation"`
}

// CreatePatchRequest creates a patch, or replaces the patch named by Handle
type CreatePatchRequest struct {
	Patch  *audio.Patch      `json:"patch"`
	Handle audio.PatchHandle `json:"handle,omitempty"`
	UID    audio.UID         `json:"uid"`
}

// PatchResponse carries the handle of a created patch
type PatchResponse struct {
	Handle audio.PatchHandle `json:"handle"`
}

// ListPorts returns the ports matching the optional role and type query
// parameters ("source"/"sink", "device"/"mix")
func (h *Handlers) ListPorts(w http.ResponseWriter, r *http.Request) {
	var role audio.PortRole
	var typ audio.PortType

	query := r.URL.Query()
	if v := query.Get("role"); v != "" {
		if err := role.UnmarshalText([]byte(v)); err != nil {
			h.writeError(w, err)
			return
		}
	}
	if v := query.Get("type"); v != "" {
		if err := typ.UnmarshalText([]byte(v)); err != nil {
			h.writeError(w, err)
			return
		}
	}

	h.mu.Lock()
	ports, generation, err := h.manager.ListAudioPorts(role, typ)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PortsResponse{Ports: ports, Generation: generation})
}

// GetPort returns one port
func (h *Handlers) GetPort(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt32(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	info, err := h.manager.GetAudioPort(audio.PortHandle(id))
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// ListPatches returns the active patches
func (h *Handlers) ListPatches(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	records, generation, err := h.manager.ListAudioPatches()
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PatchesResponse{Patches: records, Generation: generation})
}

// CreatePatch creates or replaces a client patch
func (h *Handlers) CreatePatch(w http.ResponseWriter, r *http.Request) {
	var req CreatePatchRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	handle := req.Handle
	h.mu.Lock()
	err := h.manager.CreateAudioPatch(req.Patch, &handle, req.UID)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, PatchResponse{Handle: handle})
}

// ReleasePatch releases a patch. The uid query parameter names the caller.
func (h *Handlers) ReleasePatch(w http.ResponseWriter, r *http.Request) {
	handle, err := pathInt32(r, "handle")
	if err != nil {
		h.writeError(w, err)
		return
	}
	uid, err := queryUID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	err = h.manager.ReleaseAudioPatch(audio.PatchHandle(handle), uid)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
