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

const (
	directionOutput = "output"
	directionInput  = "input"
)

// OutputRequest describes a playback stream asking to be routed
type OutputRequest struct {
	Attributes audio.Attributes  `json:"attributes"`
	Config     audio.Config      `json:"config"`
	Flags      audio.OutputFlags `json:"flags"`
	UID        audio.UID         `json:"uid"`
}

// OutputResult is where a playback stream was routed
type OutputResult struct {
	// Stream identifies the client stream in StartOutput, StopOutput and ReleaseOutput
	Stream audio.PortHandle `json:"stream"`
	// Device is the selected device
	Device audio.PortHandle `json:"device"`
	IO     audio.IOHandle   `json:"io"`
	// MixPort is the opened output carrying the stream
	MixPort audio.PortHandle `json:"mixPort"`
	// Routed is the endpoint the output's patch routes to
	Routed audio.PortHandle `json:"routed"`
}

// output is an opened hardware output
type output struct {
	mix        *topology.MixPort
	module     *topology.Module
	device     audio.PortHandle
	patch      audio.PatchHandle
	persistent bool
	streams    int
}

func (o *output) direct() bool {
	return o.mix.Profile.IsDirect()
}

type outputStream struct {
	id      audio.PortHandle
	output  *output
	device  audio.PortHandle
	request OutputRequest
	claim   *policymix.Entry
	active  bool
	// counterpart is set while starting the stream made a loop-back capture device available
	counterpart bool
}

type selection struct {
	device *topology.DevicePort
	path   string
	claim  *policymix.Entry
	// physical is the device behind the decoder on the msd path
	physical *topology.DevicePort
}

// GetOutputForAttr selects a device for a playback stream, opens or reuses an
// output reaching it and allocates a stream.
func (m *Manager) GetOutputForAttr(req OutputRequest) (OutputResult, error) {
	if err := m.InitCheck(); err != nil {
		return OutputResult{}, m.observe("get_output_for_attr", err)
	}
	if req.Config.Format == audio.FormatDefault {
		return OutputResult{}, m.observe("get_output_for_attr",
			errors.InvalidArgumentError("get output without format", ErrInvalidConfig))
	}

	sel, err := m.selectOutputDevice(req)
	if err != nil {
		return OutputResult{}, m.observe("get_output_for_attr", err)
	}

	p, err := m.outputProfile(sel.device, req.Config, req.Flags)
	if err != nil && sel.path == metrics.PathMSD {
		m.logger.Debug("Decoder cannot carry request, using physical device",
			logging.String("config", req.Config.String()),
		)
		sel = selection{device: sel.physical, path: metrics.PathStrategy}
		p, err = m.outputProfile(sel.device, req.Config, req.Flags)
	}
	if err != nil {
		return OutputResult{}, m.observe("get_output_for_attr", err)
	}

	id, err := m.topo.AllocatePortID()
	if err != nil {
		return OutputResult{}, m.observe("get_output_for_attr", err)
	}

	out, opened, err := m.acquireOutput(p, sel.device, req.Config, req.Flags)
	if err != nil {
		return OutputResult{}, m.observe("get_output_for_attr", err)
	}

	if sel.path == metrics.PathMSD {
		if err := m.ensureMsdPatch(sel.physical); err != nil {
			if opened {
				m.closeOutput(out)
			}
			return OutputResult{}, m.observe("get_output_for_attr", err)
		}
	}

	s := &outputStream{
		id:      id,
		output:  out,
		device:  sel.device.ID,
		request: req,
		claim:   sel.claim,
	}
	out.streams++
	m.outputStreams[s.id] = s

	m.metrics.RoutingDecision(directionOutput, sel.path)
	m.logger.Debug("Output selected",
		logging.Int("stream", int(s.id)),
		logging.String("usage", req.Attributes.Usage.String()),
		logging.String("device", sel.device.String()),
		logging.String("profile", p.Name),
		logging.String("path", sel.path),
	)

	return OutputResult{
		Stream:  s.id,
		Device:  sel.device.ID,
		IO:      out.mix.IO,
		MixPort: out.mix.ID,
		Routed:  m.routedPort(out),
	}, m.observe("get_output_for_attr", nil)
}

func (m *Manager) selectOutputDevice(req OutputRequest) (selection, error) {
	attr := req.Attributes

	var claimed *topology.DevicePort
	if e, ok := m.mixes.MatchOutput(attr, req.UID, func(e policymix.Entry) bool {
		t, address := e.PlaybackDevice()
		claimed = m.mixDevice(e, audio.PortRoleSink, t, address)
		return claimed != nil
	}); ok {
		return selection{device: claimed, path: metrics.PathMix, claim: &e}, nil
	}

	// an addressed stream injects into a recorders loop-back mix
	if address := attr.Address(); address != "" {
		if e, ok := m.mixes.ForAddress(policymix.MixTypeRecorders, address); ok && e.IsLoopBack() {
			dev, err := m.topo.FindPort(audio.PortRoleSink, audio.DeviceOutRemoteSubmix, address)
			if err == nil {
				return selection{device: dev, path: metrics.PathMix, claim: &e}, nil
			}
		}
	}

	dev, err := m.engine.OutputDevice(attr, m.topo)
	if err != nil {
		return selection{}, err
	}
	if sink, ok := m.msdSinkFor(dev, req.Config); ok {
		return selection{device: sink, path: metrics.PathMSD, physical: dev}, nil
	}
	return selection{device: dev, path: metrics.PathStrategy}, nil
}

// outputProfile picks the mix profile carrying cfg to dev. Direct requests and
// encoded formats need an exact match on a direct profile; linear PCM falls
// back to a mixer profile.
func (m *Manager) outputProfile(dev *topology.DevicePort, cfg audio.Config, flags audio.OutputFlags) (*topology.MixProfile, error) {
	profiles := lo.Filter(m.topo.RoutableProfiles(dev), func(p *topology.MixProfile, _ int) bool {
		return m.loaded(p.Module)
	})

	if flags.Has(audio.OutputFlagDirect) || !cfg.Format.IsLinearPCM() {
		p, ok := lo.Find(profiles, func(p *topology.MixProfile) bool {
			return p.IsDirect() && p.Profiles.Supports(cfg) && p.CanOpen() &&
				(len(dev.Profiles) == 0 || dev.Profiles.Supports(cfg))
		})
		if ok {
			return p, nil
		}
	}

	if cfg.Format.IsLinearPCM() {
		p, ok := lo.Find(profiles, func(p *topology.MixProfile) bool {
			return !p.IsDirect() && p.Profiles.Compatible(cfg)
		})
		if ok {
			return p, nil
		}
	}

	return nil, errors.NotFoundErrorWithCause(fmt.Sprintf("output for %s on %s", cfg, dev), ErrNoProfile)
}

// acquireOutput reuses the mixer output of p already reaching dev, or opens a
// new one. Direct outputs are never shared.
func (m *Manager) acquireOutput(p *topology.MixProfile, dev *topology.DevicePort, cfg audio.Config, flags audio.OutputFlags) (*output, bool, error) {
	if !p.IsDirect() {
		if out := m.findOutput(p, dev.ID); out != nil {
			return out, false, nil
		}
		cfg = profileConfig(p.Profiles)
	}

	out, err := m.openOutput(p, dev, cfg, flags, false)
	if err != nil {
		return nil, false, err
	}
	if out.direct() && m.msd.device == dev.ID {
		m.suspendMsd()
	}
	return out, true, nil
}

// mixDevice resolves the device a policy mix routes to, or nil when it is not
// connected and the mix cannot claim the stream
func (m *Manager) mixDevice(e policymix.Entry, role audio.PortRole, t audio.DeviceType, address string) *topology.DevicePort {
	dev, err := m.topo.FindPort(role, t, address)
	if err != nil {
		m.logger.Debug("Policy mix device not connected",
			logging.String("id", e.ID.String()),
			logging.String("device", t.String()),
			logging.String("address", address),
		)
		return nil
	}
	return dev
}

func (m *Manager) findOutput(p *topology.MixProfile, device audio.PortHandle) *output {
	out, _ := lo.Find(m.sortedOutputs(), func(o *output) bool {
		return o.mix.Profile == p && o.device == device
	})
	return out
}

// openOutput opens an output on the HAL, records its mix port and, on
// modules routed by patches, connects it to dev. Nothing is left open when
// a step fails.
func (m *Manager) openOutput(p *topology.MixProfile, dev *topology.DevicePort, cfg audio.Config, flags audio.OutputFlags, persistent bool) (*output, error) {
	mod, _ := m.topo.Module(p.Module)

	io, negotiated, err := m.hw.OpenOutput(hal.OutputRequest{
		Module:  mod.Handle,
		Device:  dev.Type,
		Address: dev.Address,
		Config:  cfg,
		Flags:   p.OutputFlags | flags,
	})
	if err != nil {
		return nil, errors.HardwareError(fmt.Sprintf("open output %q", p.Name), err)
	}
	if negotiated.IsZero() {
		negotiated = cfg
	}

	mix, err := m.topo.OpenMixPort(p, io, negotiated)
	if err != nil {
		m.closeHardwareOutput(io)
		return nil, err
	}

	out := &output{mix: mix, module: mod, device: dev.ID, persistent: persistent}
	if mod.SupportsPatches() {
		if err := m.patches.Create(mixToDevice(mix, dev), &out.patch, patch.EngineUID); err != nil {
			_ = m.topo.CloseMixPort(mix.ID)
			m.closeHardwareOutput(io)
			return nil, err
		}
	}

	m.outputs[mix.ID] = out
	m.logger.Debug("Output opened",
		logging.String("profile", p.Name),
		logging.String("device", dev.String()),
		logging.Int("io", int(io)),
		logging.Bool("persistent", persistent),
	)
	return out, nil
}

// closeOutput releases the output's patch, then closes it on the HAL
func (m *Manager) closeOutput(out *output) {
	if _, ok := m.patches.Get(out.patch); ok {
		if err := m.patches.Release(out.patch, patch.EngineUID); err != nil {
			m.logger.Error("Failed to release output patch", err, logging.Int("patch", int(out.patch)))
		}
	}
	m.closeHardwareOutput(out.mix.IO)
	if err := m.topo.CloseMixPort(out.mix.ID); err != nil {
		m.logger.Error("Failed to forget output mix port", err, logging.Int("port", int(out.mix.ID)))
	}
	delete(m.outputs, out.mix.ID)

	m.logger.Debug("Output closed",
		logging.String("profile", out.mix.Profile.Name),
		logging.Int("io", int(out.mix.IO)),
	)
}

func (m *Manager) closeHardwareOutput(io audio.IOHandle) {
	if err := m.hw.CloseOutput(io); err != nil {
		m.logger.Error("Failed to close output", errors.HardwareError("close output", err), logging.Int("io", int(io)))
	}
}

// routedPort is the endpoint the output's patch routes to, or its device when
// the output is not routed through a patch
func (m *Manager) routedPort(out *output) audio.PortHandle {
	if rec, ok := m.patches.Get(out.patch); ok {
		return rec.Patch.RoutedPortID()
	}
	return out.device
}

func (m *Manager) sortedOutputs() []*output {
	return lo.Map(sortedKeys(m.outputs), func(id audio.PortHandle, _ int) *output { return m.outputs[id] })
}

func mixToDevice(mix *topology.MixPort, dev *topology.DevicePort) *audio.Patch {
	return &audio.Patch{
		Sources: []audio.PortConfig{{ID: mix.ID, Role: audio.PortRoleSource, Type: audio.PortTypeMix}},
		Sinks:   []audio.PortConfig{{ID: dev.ID, Role: audio.PortRoleSink, Type: audio.PortTypeDevice}},
	}
}

func (m *Manager) outputStream(id audio.PortHandle) (*outputStream, error) {
	s, ok := m.outputStreams[id]
	if !ok {
		return nil, errors.NotFoundErrorWithCause(fmt.Sprintf("output stream %d", id), ErrStreamNotFound)
	}
	return s, nil
}

// StartOutput starts a stream. The output's patch is recreated if it was
// released, and a stream injecting into a recorders loop-back mix makes the
// mix's capture device available.
func (m *Manager) StartOutput(id audio.PortHandle) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("start_output", err)
	}
	s, err := m.outputStream(id)
	if err != nil {
		return m.observe("start_output", err)
	}
	if s.active {
		return m.observe("start_output",
			errors.InvalidOperationError(fmt.Sprintf("start output stream %d", id), ErrStreamActive))
	}

	out := s.output
	if _, ok := m.patches.Get(out.patch); !ok && out.module.SupportsPatches() {
		dev, found := m.topo.Device(out.device)
		if !found {
			return m.observe("start_output",
				errors.NotFoundErrorWithCause(fmt.Sprintf("device %d", out.device), ErrPortNotFound))
		}
		if err := m.patches.Create(mixToDevice(out.mix, dev), &out.patch, patch.EngineUID); err != nil {
			return m.observe("start_output", err)
		}
	}

	if s.claim != nil && s.claim.Type == policymix.MixTypeRecorders && s.claim.IsLoopBack() &&
		!m.topo.IsConnected(audio.DeviceInRemoteSubmix, s.claim.Address) {
		if _, err := m.connectDevice(audio.DeviceInRemoteSubmix, s.claim.Address, ""); err != nil {
			return m.observe("start_output", err)
		}
		s.counterpart = true
	}

	s.active = true
	m.logger.Debug("Output started", logging.Int("stream", int(id)))
	return m.observe("start_output", nil)
}

// StopOutput stops a started stream
func (m *Manager) StopOutput(id audio.PortHandle) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("stop_output", err)
	}
	s, err := m.outputStream(id)
	if err != nil {
		return m.observe("stop_output", err)
	}
	if !s.active {
		return m.observe("stop_output",
			errors.InvalidOperationError(fmt.Sprintf("stop output stream %d", id), ErrStreamNotActive))
	}
	return m.observe("stop_output", m.stopOutput(s))
}

func (m *Manager) stopOutput(s *outputStream) error {
	s.active = false
	if s.counterpart {
		s.counterpart = false
		if m.topo.IsConnected(audio.DeviceInRemoteSubmix, s.claim.Address) {
			if err := m.disconnectDevice(audio.DeviceInRemoteSubmix, s.claim.Address); err != nil {
				return err
			}
		}
	}
	m.logger.Debug("Output stopped", logging.Int("stream", int(s.id)))
	return nil
}

// ReleaseOutput stops the stream if needed and frees it. An output opened for
// the stream closes with its last stream; closing the last direct output on
// the decoder's physical device restores the decoder patch.
func (m *Manager) ReleaseOutput(id audio.PortHandle) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("release_output", err)
	}
	s, err := m.outputStream(id)
	if err != nil {
		return m.observe("release_output", err)
	}

	var stopErr error
	if s.active {
		stopErr = m.stopOutput(s)
	}
	delete(m.outputStreams, id)

	out := s.output
	out.streams--
	if out.streams > 0 || out.persistent {
		return m.observe("release_output", stopErr)
	}
	if _, open := m.outputs[out.mix.ID]; !open {
		return m.observe("release_output", stopErr)
	}

	m.closeOutput(out)
	if out.direct() && out.device == m.msd.device {
		if err := m.restoreMsd(); err != nil && stopErr == nil {
			stopErr = err
		}
	}
	return m.observe("release_output", stopErr)
}
