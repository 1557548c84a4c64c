package handlers

import (
	"net/http"

	"audio-policy/internal/audio"
	"audio-policy/internal/policy"
)

// GetOutput routes a playback stream and allocates it
func (h *Handlers) GetOutput(w http.ResponseWriter, r *http.Request) {
	var req policy.OutputRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	result, err := h.manager.GetOutputForAttr(req)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// StartOutput starts the output stream named by the id path variable
func (h *Handlers) StartOutput(w http.ResponseWriter, r *http.Request) {
	h.streamOp(w, r, h.manager.StartOutput)
}

// StopOutput stops a started output stream
func (h *Handlers) StopOutput(w http.ResponseWriter, r *http.Request) {
	h.streamOp(w, r, h.manager.StopOutput)
}

// ReleaseOutput frees an output stream
func (h *Handlers) ReleaseOutput(w http.ResponseWriter, r *http.Request) {
	h.streamOp(w, r, h.manager.ReleaseOutput)
}

// GetInput routes a capture stream and opens its input
func (h *Handlers) GetInput(w http.ResponseWriter, r *http.Request) {
	var req policy.InputRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	result, err := h.manager.GetInputForAttr(req)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// StartInput starts the input stream named by the id path variable
func (h *Handlers) StartInput(w http.ResponseWriter, r *http.Request) {
	h.streamOp(w, r, h.manager.StartInput)
}

// StopInput stops a started input stream
func (h *Handlers) StopInput(w http.ResponseWriter, r *http.Request) {
	h.streamOp(w, r, h.manager.StopInput)
}

// ReleaseInput frees an input stream and closes its input
func (h *Handlers) ReleaseInput(w http.ResponseWriter, r *http.Request) {
	h.streamOp(w, r, h.manager.ReleaseInput)
}

// streamOp applies op to the stream named by the id path variable
func (h *Handlers) streamOp(w http.ResponseWriter, r *http.Request, op func(audio.PortHandle) error) {
	id, err := pathInt32(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.mu.Lock()
	err = op(audio.PortHandle(id))
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
