package hal

import (
	"fmt"
	"sort"
	"sync"

	"audio-policy/internal/audio"

	"github.com/samber/lo"
)

// SimClient is an in-memory hardware client. Modules, ios and patches get
// sequential handles starting at 1 and the active patch table can be inspected.
type SimClient struct {
	mu       sync.RWMutex
	modules  map[string]audio.ModuleHandle
	outputs  map[audio.IOHandle]OutputRequest
	inputs   map[audio.IOHandle]InputRequest
	patches  map[audio.PatchHandle]*audio.Patch
	modSeq   *audio.Sequence[audio.ModuleHandle]
	ioSeq    *audio.Sequence[audio.IOHandle]
	patchSeq *audio.Sequence[audio.PatchHandle]

	// ErrorOnMethod injects a failure into the named method
	ErrorOnMethod map[string]error
	// RejectModules lists module names LoadHwModule refuses
	RejectModules []string
}

// NewSimClient creates an empty simulated client
func NewSimClient() *SimClient {
	return &SimClient{
		modules:       make(map[string]audio.ModuleHandle),
		outputs:       make(map[audio.IOHandle]OutputRequest),
		inputs:        make(map[audio.IOHandle]InputRequest),
		patches:       make(map[audio.PatchHandle]*audio.Patch),
		modSeq:        audio.NewSequence[audio.ModuleHandle](),
		ioSeq:         audio.NewSequence[audio.IOHandle](),
		patchSeq:      audio.NewSequence[audio.PatchHandle](),
		ErrorOnMethod: make(map[string]error),
	}
}

// LoadHwModule returns the handle of a loaded module, loading it on first use
func (s *SimClient) LoadHwModule(name string) (audio.ModuleHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ErrorOnMethod["LoadHwModule"]; err != nil {
		return audio.ModuleHandleNone, err
	}
	if lo.Contains(s.RejectModules, name) {
		return audio.ModuleHandleNone, fmt.Errorf("load %q: %w", name, ErrUnknownModule)
	}
	if h, ok := s.modules[name]; ok {
		return h, nil
	}
	h, err := s.modSeq.Next()
	if err != nil {
		return audio.ModuleHandleNone, err
	}
	s.modules[name] = h
	return h, nil
}

// OpenOutput opens an output on a loaded module and accepts the requested config
func (s *SimClient) OpenOutput(req OutputRequest) (audio.IOHandle, audio.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ErrorOnMethod["OpenOutput"]; err != nil {
		return audio.IOHandleNone, audio.Config{}, err
	}
	if !s.modSeq.Issued(req.Module) {
		return audio.IOHandleNone, audio.Config{}, fmt.Errorf("open output on module %d: %w", req.Module, ErrUnknownModule)
	}
	io, err := s.ioSeq.Next()
	if err != nil {
		return audio.IOHandleNone, audio.Config{}, err
	}
	s.outputs[io] = req
	return io, req.Config, nil
}

// OpenInput opens an input on a loaded module and accepts the requested config
func (s *SimClient) OpenInput(req InputRequest) (audio.IOHandle, audio.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ErrorOnMethod["OpenInput"]; err != nil {
		return audio.IOHandleNone, audio.Config{}, err
	}
	if !s.modSeq.Issued(req.Module) {
		return audio.IOHandleNone, audio.Config{}, fmt.Errorf("open input on module %d: %w", req.Module, ErrUnknownModule)
	}
	io, err := s.ioSeq.Next()
	if err != nil {
		return audio.IOHandleNone, audio.Config{}, err
	}
	s.inputs[io] = req
	return io, req.Config, nil
}

// CloseOutput closes an open output
func (s *SimClient) CloseOutput(io audio.IOHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ErrorOnMethod["CloseOutput"]; err != nil {
		return err
	}
	if _, ok := s.outputs[io]; !ok {
		return fmt.Errorf("close output %d: %w", io, ErrUnknownIO)
	}
	delete(s.outputs, io)
	return nil
}

// CloseInput closes an open input
func (s *SimClient) CloseInput(io audio.IOHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ErrorOnMethod["CloseInput"]; err != nil {
		return err
	}
	if _, ok := s.inputs[io]; !ok {
		return fmt.Errorf("close input %d: %w", io, ErrUnknownIO)
	}
	delete(s.inputs, io)
	return nil
}

// CreateAudioPatch stores a copy of patch under a fresh handle
func (s *SimClient) CreateAudioPatch(patch *audio.Patch) (audio.PatchHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ErrorOnMethod["CreateAudioPatch"]; err != nil {
		return audio.PatchHandleNone, err
	}
	h, err := s.patchSeq.Next()
	if err != nil {
		return audio.PatchHandleNone, err
	}
	s.patches[h] = patch.Clone()
	return h, nil
}

// ReleaseAudioPatch drops an active patch
func (s *SimClient) ReleaseAudioPatch(handle audio.PatchHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ErrorOnMethod["ReleaseAudioPatch"]; err != nil {
		return err
	}
	if _, ok := s.patches[handle]; !ok {
		return fmt.Errorf("release patch %d: %w", handle, ErrUnknownPatch)
	}
	delete(s.patches, handle)
	return nil
}

// ActivePatchCount returns the number of committed patches
func (s *SimClient) ActivePatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patches)
}

// LastAddedPatch returns the most recently committed patch still active
func (s *SimClient) LastAddedPatch() (*audio.Patch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.patches) == 0 {
		return nil, false
	}
	handles := lo.Keys(s.patches)
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return s.patches[handles[len(handles)-1]].Clone(), true
}

// OpenOutputs returns the number of open outputs
func (s *SimClient) OpenOutputs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outputs)
}

// OpenInputs returns the number of open inputs
func (s *SimClient) OpenInputs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inputs)
}
