package policy

import (
	"fmt"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/logging"
	"audio-policy/internal/hal"
	"audio-policy/internal/metrics"
	"audio-policy/internal/patch"
	"audio-policy/internal/policymix"
	"audio-policy/internal/topology"

	"github.com/samber/lo"
)

// InputRequest describes a capture stream asking to be routed
type InputRequest struct {
	Attributes audio.Attributes `json:"attributes"`
	Config     audio.Config     `json:"config"`
	Flags      audio.InputFlags `json:"flags"`
	UID        audio.UID        `json:"uid"`
}

// InputResult is where a capture stream was routed
type InputResult struct {
	Stream  audio.PortHandle `json:"stream"`
	Device  audio.PortHandle `json:"device"`
	IO      audio.IOHandle   `json:"io"`
	MixPort audio.PortHandle `json:"mixPort"`
	Routed  audio.PortHandle `json:"routed"`
}

// inputStream owns the input opened for it
type inputStream struct {
	id      audio.PortHandle
	mix     *topology.MixPort
	module  *topology.Module
	device  audio.PortHandle
	patch   audio.PatchHandle
	request InputRequest
	claim   *policymix.Entry
	active  bool
	// counterpart is set while starting the stream made a loop-back playback device available
	counterpart bool
}

// GetInputForAttr selects a device for a capture stream and opens an input
// reading from it
func (m *Manager) GetInputForAttr(req InputRequest) (InputResult, error) {
	if err := m.InitCheck(); err != nil {
		return InputResult{}, m.observe("get_input_for_attr", err)
	}
	if req.Config.Format == audio.FormatDefault {
		return InputResult{}, m.observe("get_input_for_attr",
			errors.InvalidArgumentError("get input without format", ErrInvalidConfig))
	}

	dev, claim, path, err := m.selectInputDevice(req)
	if err != nil {
		return InputResult{}, m.observe("get_input_for_attr", err)
	}

	p, err := m.inputProfile(dev, req.Config)
	if err != nil {
		return InputResult{}, m.observe("get_input_for_attr", err)
	}
	mod, _ := m.topo.Module(p.Module)

	id, err := m.topo.AllocatePortID()
	if err != nil {
		return InputResult{}, m.observe("get_input_for_attr", err)
	}

	io, negotiated, err := m.hw.OpenInput(hal.InputRequest{
		Module:  mod.Handle,
		Device:  dev.Type,
		Address: dev.Address,
		Config:  req.Config,
		Source:  req.Attributes.Source,
		Flags:   p.InputFlags | req.Flags,
	})
	if err != nil {
		return InputResult{}, m.observe("get_input_for_attr",
			errors.HardwareError(fmt.Sprintf("open input %q", p.Name), err))
	}
	if negotiated.IsZero() {
		negotiated = req.Config
	}

	mix, err := m.topo.OpenMixPort(p, io, negotiated)
	if err != nil {
		m.closeHardwareInput(io)
		return InputResult{}, m.observe("get_input_for_attr", err)
	}

	s := &inputStream{
		id:      id,
		mix:     mix,
		module:  mod,
		device:  dev.ID,
		request: req,
		claim:   claim,
	}
	m.inputStreams[s.id] = s

	m.metrics.RoutingDecision(directionInput, path)
	m.logger.Debug("Input selected",
		logging.Int("stream", int(s.id)),
		logging.String("source", req.Attributes.Source.String()),
		logging.String("device", dev.String()),
		logging.String("profile", p.Name),
		logging.String("path", path),
	)

	return InputResult{
		Stream:  s.id,
		Device:  dev.ID,
		IO:      io,
		MixPort: mix.ID,
		Routed:  dev.ID,
	}, m.observe("get_input_for_attr", nil)
}

func (m *Manager) selectInputDevice(req InputRequest) (*topology.DevicePort, *policymix.Entry, string, error) {
	var claimed *topology.DevicePort
	if e, ok := m.mixes.MatchInput(req.Attributes, req.UID, func(e policymix.Entry) bool {
		t, address := e.CaptureDevice()
		claimed = m.mixDevice(e, audio.PortRoleSource, t, address)
		return claimed != nil
	}); ok {
		return claimed, &e, metrics.PathMix, nil
	}

	dev, err := m.engine.InputDevice(req.Attributes, m.topo)
	if err != nil {
		return nil, nil, "", err
	}
	return dev, nil, metrics.PathStrategy, nil
}

// inputProfile prefers an input profile exactly supporting cfg, then any
// profile the request can be converted from
func (m *Manager) inputProfile(dev *topology.DevicePort, cfg audio.Config) (*topology.MixProfile, error) {
	profiles := lo.Filter(m.topo.RoutableProfiles(dev), func(p *topology.MixProfile, _ int) bool {
		return m.loaded(p.Module) && p.CanOpen()
	})

	if p, ok := lo.Find(profiles, func(p *topology.MixProfile) bool { return p.Profiles.Supports(cfg) }); ok {
		return p, nil
	}
	if p, ok := lo.Find(profiles, func(p *topology.MixProfile) bool { return p.Profiles.Compatible(cfg) }); ok {
		return p, nil
	}
	return nil, errors.NotFoundErrorWithCause(fmt.Sprintf("input for %s on %s", cfg, dev), ErrNoProfile)
}

func (m *Manager) inputStream(id audio.PortHandle) (*inputStream, error) {
	s, ok := m.inputStreams[id]
	if !ok {
		return nil, errors.NotFoundErrorWithCause(fmt.Sprintf("input stream %d", id), ErrStreamNotFound)
	}
	return s, nil
}

// StartInput starts a capture stream. On modules routed by patches the device
// is connected to the input; a capture of a players loop-back mix makes the
// mix's playback device available.
func (m *Manager) StartInput(id audio.PortHandle) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("start_input", err)
	}
	s, err := m.inputStream(id)
	if err != nil {
		return m.observe("start_input", err)
	}
	if s.active {
		return m.observe("start_input",
			errors.InvalidOperationError(fmt.Sprintf("start input stream %d", id), ErrStreamActive))
	}

	if s.module.SupportsPatches() {
		dev, ok := m.topo.Device(s.device)
		if !ok {
			return m.observe("start_input",
				errors.NotFoundErrorWithCause(fmt.Sprintf("device %d", s.device), ErrPortNotFound))
		}
		if err := m.patches.Create(deviceToMix(dev, s.mix), &s.patch, patch.EngineUID); err != nil {
			return m.observe("start_input", err)
		}
	}

	if s.claim != nil && s.claim.Type == policymix.MixTypePlayers && s.claim.IsLoopBack() &&
		!m.topo.IsConnected(audio.DeviceOutRemoteSubmix, s.claim.Address) {
		if _, err := m.connectDevice(audio.DeviceOutRemoteSubmix, s.claim.Address, ""); err != nil {
			m.releaseInputPatch(s)
			return m.observe("start_input", err)
		}
		s.counterpart = true
	}

	s.active = true
	m.logger.Debug("Input started", logging.Int("stream", int(id)))
	return m.observe("start_input", nil)
}

// StopInput stops a started capture stream
func (m *Manager) StopInput(id audio.PortHandle) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("stop_input", err)
	}
	s, err := m.inputStream(id)
	if err != nil {
		return m.observe("stop_input", err)
	}
	if !s.active {
		return m.observe("stop_input",
			errors.InvalidOperationError(fmt.Sprintf("stop input stream %d", id), ErrStreamNotActive))
	}
	return m.observe("stop_input", m.stopInput(s))
}

func (m *Manager) stopInput(s *inputStream) error {
	s.active = false
	m.releaseInputPatch(s)

	if s.counterpart {
		s.counterpart = false
		if m.topo.IsConnected(audio.DeviceOutRemoteSubmix, s.claim.Address) {
			if err := m.disconnectDevice(audio.DeviceOutRemoteSubmix, s.claim.Address); err != nil {
				return err
			}
		}
	}
	m.logger.Debug("Input stopped", logging.Int("stream", int(s.id)))
	return nil
}

// ReleaseInput stops the stream if needed and closes its input
func (m *Manager) ReleaseInput(id audio.PortHandle) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("release_input", err)
	}
	s, err := m.inputStream(id)
	if err != nil {
		return m.observe("release_input", err)
	}

	var stopErr error
	if s.active {
		stopErr = m.stopInput(s)
	}
	m.closeInput(s)
	return m.observe("release_input", stopErr)
}

func (m *Manager) releaseInputPatch(s *inputStream) {
	if _, ok := m.patches.Get(s.patch); !ok {
		return
	}
	if err := m.patches.Release(s.patch, patch.EngineUID); err != nil {
		m.logger.Error("Failed to release input patch", err, logging.Int("patch", int(s.patch)))
	}
}

// closeInput releases the stream's patch, then closes its input on the HAL
func (m *Manager) closeInput(s *inputStream) {
	m.releaseInputPatch(s)
	m.closeHardwareInput(s.mix.IO)
	if err := m.topo.CloseMixPort(s.mix.ID); err != nil {
		m.logger.Error("Failed to forget input mix port", err, logging.Int("port", int(s.mix.ID)))
	}
	delete(m.inputStreams, s.id)
}

func (m *Manager) closeHardwareInput(io audio.IOHandle) {
	if err := m.hw.CloseInput(io); err != nil {
		m.logger.Error("Failed to close input", errors.HardwareError("close input", err), logging.Int("io", int(io)))
	}
}

func deviceToMix(dev *topology.DevicePort, mix *topology.MixPort) *audio.Patch {
	return &audio.Patch{
		Sources: []audio.PortConfig{{ID: dev.ID, Role: audio.PortRoleSource, Type: audio.PortTypeDevice}},
		Sinks:   []audio.PortConfig{{ID: mix.ID, Role: audio.PortRoleSink, Type: audio.PortTypeMix}},
	}
}
