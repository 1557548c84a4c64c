// Package policy is the device selection engine and the public surface of the
// audio policy manager.
//
// A Manager owns the topology, the patch table and the policy mix registry,
// and drives a hal.Client to open outputs and inputs and commit patches.
// Routing a playback stream tries, in order: a policy mix claiming it, the
// multi-stream decoder when it accepts the format, then the device the
// routing engine prefers.
//
// The Manager does no locking. Callers serialize access to it.
package policy

import (
	"fmt"
	"sort"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/logging"
	"audio-policy/internal/common/registry"
	"audio-policy/internal/hal"
	"audio-policy/internal/metrics"
	"audio-policy/internal/patch"
	"audio-policy/internal/policymix"
	"audio-policy/internal/routing"
	"audio-policy/internal/topology"

	"github.com/samber/lo"
)

// Config is what a Manager is initialized from
type Config struct {
	Topology topology.Spec
	// Engine names the routing engine; empty selects the default engine
	Engine string
}

// Manager is the audio policy manager
type Manager struct {
	hw      hal.Client
	engines *registry.Registry[routing.Factory]
	metrics *metrics.Metrics
	logger  logging.Logger

	initialized bool
	topo        *topology.Registry
	patches     *patch.Manager
	mixes       *policymix.Registry
	engine      routing.Engine

	outputs       map[audio.PortHandle]*output
	outputStreams map[audio.PortHandle]*outputStream
	inputStreams  map[audio.PortHandle]*inputStream
	msd           msdState
}

// NewManager creates an uninitialized manager. A nil engines registry uses the
// built-in engines; a nil metrics records nothing.
func NewManager(hw hal.Client, engines *registry.Registry[routing.Factory], m *metrics.Metrics, logger logging.Logger) *Manager {
	if engines == nil {
		engines = routing.NewFactoryRegistry()
	}
	return &Manager{
		hw:            hw,
		engines:       engines,
		metrics:       m,
		logger:        logger,
		outputs:       make(map[audio.PortHandle]*output),
		outputStreams: make(map[audio.PortHandle]*outputStream),
		inputStreams:  make(map[audio.PortHandle]*inputStream),
	}
}

// Initialize builds the topology, loads every module and opens the outputs
// that stay open for the lifetime of their device. Any failure leaves the
// manager uninitialized.
func (m *Manager) Initialize(cfg Config) error {
	if m.initialized {
		return errors.InvalidOperationError("initialize", ErrAlreadyInitialized)
	}

	name := lo.Ternary(cfg.Engine != "", cfg.Engine, routing.DefaultEngineName)
	factory, err := m.engines.Get(name)
	if err != nil {
		return m.initFailed(fmt.Sprintf("routing engine %q", name), err)
	}

	topo, err := topology.Build(cfg.Topology, m.logger)
	if err != nil {
		return m.initFailed("build topology", err)
	}

	m.topo = topo
	m.engine = factory.New(m.logger.WithFields(logging.String("engine", name)))
	m.patches = patch.NewManager(topo, m.hw, m.logger.WithFields(logging.String("component", "patch")))
	m.mixes = policymix.NewRegistry(topo, m.logger.WithFields(logging.String("component", "policymix")))

	for _, mod := range topo.Modules() {
		handle, err := m.hw.LoadHwModule(mod.Name)
		if err != nil {
			m.logger.Warn("Hardware module not loaded, skipping",
				logging.String("module", mod.Name),
				logging.Err(err),
			)
			continue
		}
		mod.Handle = handle
	}

	if len(topo.ConnectedDevices(audio.PortRoleSink)) == 0 {
		return m.initFailed("initialize", ErrNoOutputDevice)
	}

	for _, p := range topo.Profiles(audio.PortRoleSource) {
		if p.IsDirect() || !m.loaded(p.Module) {
			continue
		}
		dev := m.initialDevice(p)
		if dev == nil {
			continue
		}
		if _, err := m.openOutput(p, dev, profileConfig(p.Profiles), audio.OutputFlagNone, true); err != nil {
			m.logger.Warn("Failed to open output",
				logging.String("profile", p.Name),
				logging.String("device", dev.String()),
				logging.Err(err),
			)
		}
	}
	if len(m.outputs) == 0 {
		return m.initFailed("initialize", ErrNoOutput)
	}

	m.initialized = true
	m.syncGauges()
	m.logger.Info("Audio policy manager initialized",
		logging.String("engine", name),
		logging.Int("modules", len(topo.Modules())),
		logging.Int("outputs", len(m.outputs)),
	)
	return nil
}

func (m *Manager) initFailed(msg string, cause error) error {
	for _, out := range m.sortedOutputs() {
		m.closeOutput(out)
	}
	m.topo, m.patches, m.mixes, m.engine = nil, nil, nil, nil

	err := errors.NoInitError(msg, cause)
	m.logger.Error("Audio policy manager initialization failed", err)
	return err
}

// initialDevice routes an output opened at initialization to the default
// output device, or to the first connected device the profile reaches.
func (m *Manager) initialDevice(p *topology.MixProfile) *topology.DevicePort {
	if dev := m.topo.DefaultOutput(); dev != nil && m.topo.CanRoute(p, dev) {
		return dev
	}
	return lo.FirstOrEmpty(m.topo.RoutableDevices(p))
}

// InitCheck reports whether Initialize succeeded
func (m *Manager) InitCheck() error {
	if !m.initialized {
		return errors.NoInitError("init check", ErrNotInitialized)
	}
	return nil
}

func (m *Manager) loaded(module string) bool {
	mod, ok := m.topo.Module(module)
	return ok && mod.Handle != audio.ModuleHandleNone
}

// observe records the outcome of an operation and returns err unchanged
func (m *Manager) observe(op string, err error) error {
	if err != nil {
		m.metrics.Rejected(op, err)
		if !errors.IsType(err, errors.ErrTypeNoInit) {
			m.logger.Warn("Request rejected", logging.String("operation", op), logging.Err(err))
		}
	}
	m.syncGauges()
	return err
}

func (m *Manager) syncGauges() {
	if !m.initialized {
		return
	}
	m.metrics.SetActivePatches(m.patches.Count())
	m.metrics.SetRegisteredMixes(m.mixes.Count())
	m.metrics.SetTopologyGeneration(m.topo.Generation())
	m.metrics.SetOpenStreams(directionOutput, len(m.outputStreams))
	m.metrics.SetOpenStreams(directionInput, len(m.inputStreams))
}

// SetForceUse forces config on usage, then moves the decoder patch to the
// device media now routes to.
func (m *Manager) SetForceUse(usage routing.ForceUse, config routing.ForcedConfig) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("set_force_use", err)
	}
	if err := m.engine.SetForceUse(usage, config); err != nil {
		return m.observe("set_force_use", err)
	}
	return m.observe("set_force_use", m.refreshMsd())
}

// GetForceUse returns the config forced on usage
func (m *Manager) GetForceUse(usage routing.ForceUse) (routing.ForcedConfig, error) {
	if err := m.InitCheck(); err != nil {
		return routing.ForceNone, m.observe("get_force_use", err)
	}
	return m.engine.ForceUse(usage), nil
}

// SetDeviceConnectionState connects or disconnects the device of type t at
// address. Connecting an output device opens the outputs that can reach it;
// disconnecting closes every output, input and patch using it.
func (m *Manager) SetDeviceConnectionState(t audio.DeviceType, address, name string, connected bool) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("set_device_connection_state", err)
	}

	var err error
	if connected {
		_, err = m.connectDevice(t, address, name)
	} else {
		err = m.disconnectDevice(t, address)
	}
	if err != nil {
		return m.observe("set_device_connection_state", err)
	}
	return m.observe("set_device_connection_state", m.refreshMsd())
}

// GetDeviceConnectionState reports whether the device of type t at address is connected
func (m *Manager) GetDeviceConnectionState(t audio.DeviceType, address string) (bool, error) {
	if err := m.InitCheck(); err != nil {
		return false, m.observe("get_device_connection_state", err)
	}
	return m.topo.IsConnected(t, address), nil
}

func (m *Manager) connectDevice(t audio.DeviceType, address, name string) (*topology.DevicePort, error) {
	dev, err := m.topo.Connect(t, address, name)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Device connected", logging.String("device", dev.String()))

	if t.IsInput() {
		return dev, nil
	}
	for _, p := range m.topo.RoutableProfiles(dev) {
		if p.IsDirect() || !m.loaded(p.Module) || m.findOutput(p, dev.ID) != nil {
			continue
		}
		if _, err := m.openOutput(p, dev, profileConfig(p.Profiles), audio.OutputFlagNone, true); err != nil {
			m.logger.Warn("Failed to open output for connected device",
				logging.String("profile", p.Name),
				logging.String("device", dev.String()),
				logging.Err(err),
			)
		}
	}
	return dev, nil
}

func (m *Manager) disconnectDevice(t audio.DeviceType, address string) error {
	dev, err := m.topo.FindPort(t.Role(), t, address)
	if err != nil {
		return err
	}

	for _, out := range m.sortedOutputs() {
		if out.device != dev.ID {
			continue
		}
		for _, s := range m.outputStreams {
			if s.output == out {
				delete(m.outputStreams, s.id)
			}
		}
		m.closeOutput(out)
	}
	for _, id := range sortedKeys(m.inputStreams) {
		if s := m.inputStreams[id]; s.device == dev.ID {
			m.closeInput(s)
		}
	}

	if released := m.patches.ReleaseReferencing(dev.ID); len(released) > 0 {
		m.logger.Debug("Released patches of disconnected device",
			logging.String("device", dev.String()),
			logging.Int("count", len(released)),
		)
	}

	if _, err := m.topo.Disconnect(t, address); err != nil {
		return err
	}
	m.logger.Info("Device disconnected", logging.String("device", dev.String()))
	return nil
}

// ListAudioPorts returns snapshots of the ports of role and type together
// with the topology generation they were taken at
func (m *Manager) ListAudioPorts(role audio.PortRole, typ audio.PortType) ([]audio.PortInfo, uint32, error) {
	if err := m.InitCheck(); err != nil {
		return nil, 0, m.observe("list_audio_ports", err)
	}
	ports, generation := m.topo.ListPorts(role, typ)
	return ports, generation, nil
}

// GetAudioPort returns the port with id
func (m *Manager) GetAudioPort(id audio.PortHandle) (audio.PortInfo, error) {
	if err := m.InitCheck(); err != nil {
		return audio.PortInfo{}, m.observe("get_audio_port", err)
	}
	info, ok := m.topo.Port(id)
	if !ok {
		return audio.PortInfo{}, m.observe("get_audio_port",
			errors.NotFoundErrorWithCause(fmt.Sprintf("port %d", id), ErrPortNotFound))
	}
	return info, nil
}

// CreateAudioPatch creates, or replaces when *handle names one, a client patch
func (m *Manager) CreateAudioPatch(p *audio.Patch, handle *audio.PatchHandle, uid audio.UID) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("create_audio_patch", err)
	}
	return m.observe("create_audio_patch", m.patches.Create(p, handle, uid))
}

// ReleaseAudioPatch releases a patch on behalf of uid
func (m *Manager) ReleaseAudioPatch(handle audio.PatchHandle, uid audio.UID) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("release_audio_patch", err)
	}
	return m.observe("release_audio_patch", m.patches.Release(handle, uid))
}

// ListAudioPatches returns the active patches and the patch generation
func (m *Manager) ListAudioPatches() ([]patch.Record, uint32, error) {
	if err := m.InitCheck(); err != nil {
		return nil, 0, m.observe("list_audio_patches", err)
	}
	return m.patches.List(), m.patches.Generation(), nil
}

// RegisterPolicyMixes registers a set of mixes atomically. Loop-back mixes
// make their remote submix counterpart device available at the mix address.
func (m *Manager) RegisterPolicyMixes(mixes []policymix.Mix) ([]policymix.Entry, error) {
	if err := m.InitCheck(); err != nil {
		return nil, m.observe("register_policy_mixes", err)
	}

	entries, err := m.mixes.Register(mixes)
	if err != nil {
		return nil, m.observe("register_policy_mixes", err)
	}

	for _, e := range entries {
		t, ok := e.Counterpart()
		if !ok || m.topo.IsConnected(t, e.Address) {
			continue
		}
		if _, err := m.connectDevice(t, e.Address, ""); err != nil {
			m.logger.Error("Failed to connect policy mix device", err,
				logging.String("id", e.ID.String()),
				logging.String("device", t.String()),
				logging.String("address", e.Address),
			)
		}
	}
	return entries, m.observe("register_policy_mixes", m.refreshMsd())
}

// UnregisterPolicyMixes unregisters a set of mixes atomically and disconnects
// the remote submix devices made available for them.
func (m *Manager) UnregisterPolicyMixes(mixes []policymix.Mix) error {
	if err := m.InitCheck(); err != nil {
		return m.observe("unregister_policy_mixes", err)
	}

	removed, err := m.mixes.Unregister(mixes)
	if err != nil {
		return m.observe("unregister_policy_mixes", err)
	}

	for _, e := range removed {
		counterpart, ok := e.Counterpart()
		if !ok {
			continue
		}
		for _, t := range []audio.DeviceType{audio.DeviceOutRemoteSubmix, audio.DeviceInRemoteSubmix} {
			dev, err := m.topo.FindPort(t.Role(), t, e.Address)
			if err != nil || (t != counterpart && dev.Class != topology.ClassDynamic) {
				continue
			}
			if err := m.disconnectDevice(t, e.Address); err != nil {
				m.logger.Error("Failed to disconnect policy mix device", err,
					logging.String("device", t.String()),
					logging.String("address", e.Address),
				)
			}
		}
	}
	return m.observe("unregister_policy_mixes", m.refreshMsd())
}

// PolicyMixes returns the registered mixes in registration order
func (m *Manager) PolicyMixes() ([]policymix.Entry, error) {
	if err := m.InitCheck(); err != nil {
		return nil, m.observe("policy_mixes", err)
	}
	return m.mixes.Entries(), nil
}

// profileConfig is the first configuration a profile list declares
func profileConfig(ps audio.Profiles) audio.Config {
	p := lo.FirstOrEmpty(ps)
	return audio.Config{
		Format:      p.Format,
		ChannelMask: lo.FirstOrEmpty(p.ChannelMasks),
		SampleRate:  lo.FirstOrEmpty(p.SampleRates),
	}
}

func sortedKeys[V any](m map[audio.PortHandle]V) []audio.PortHandle {
	keys := lo.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
