package policy

import (
	"audio-policy/internal/audio"
	"audio-policy/internal/common/logging"
	"audio-policy/internal/patch"
	"audio-policy/internal/routing"
	"audio-policy/internal/topology"

	"github.com/samber/lo"
)

// MSDModuleName is the module holding the multi-stream decoder
const MSDModuleName = "msd"

// msdState tracks the patch carrying the decoder output to a physical device.
// Once established the patch follows media routing and is only suspended
// while a direct output occupies its physical device.
type msdState struct {
	established bool
	device      audio.PortHandle
	patch       audio.PatchHandle
}

// msdDevices returns the decoder's input bus and output bus when its module is
// loaded and both are connected
func (m *Manager) msdDevices() (sink, source *topology.DevicePort, ok bool) {
	if !m.loaded(MSDModuleName) {
		return nil, nil, false
	}
	onMsd := func(t audio.DeviceType) *topology.DevicePort {
		dev, _ := lo.Find(m.topo.ConnectedDevices(t.Role()), func(d *topology.DevicePort) bool {
			return d.Module == MSDModuleName && d.Type == t
		})
		return dev
	}
	sink, source = onMsd(audio.DeviceOutBus), onMsd(audio.DeviceInBus)
	return sink, source, sink != nil && source != nil
}

// msdSinkFor returns the decoder sink when a stream of cfg headed for dev
// should go through the decoder
func (m *Manager) msdSinkFor(dev *topology.DevicePort, cfg audio.Config) (*topology.DevicePort, bool) {
	if dev.Module == MSDModuleName {
		return nil, false
	}
	sink, _, ok := m.msdDevices()
	if !ok || !sink.Profiles.SupportsFormat(cfg.Format) {
		return nil, false
	}
	if !cfg.Format.IsLinearPCM() &&
		m.engine.ForceUse(routing.ForEncodedSurround) == routing.ForceEncodedSurroundNever {
		return nil, false
	}
	return sink, true
}

// ensureMsdPatch routes the decoder output to physical, replacing a patch to
// another device
func (m *Manager) ensureMsdPatch(physical *topology.DevicePort) error {
	_, source, ok := m.msdDevices()
	if !ok {
		return nil
	}

	m.msd.established = true
	m.msd.device = physical.ID

	rec, active := m.patches.Get(m.msd.patch)
	if m.directOutputOn(physical.ID) {
		if active {
			m.suspendMsd()
		}
		return nil
	}
	if active && rec.Patch.Sinks[0].ID == physical.ID {
		return nil
	}

	p := &audio.Patch{
		Sources: []audio.PortConfig{{ID: source.ID, Role: audio.PortRoleSource, Type: audio.PortTypeDevice}},
		Sinks:   []audio.PortConfig{{ID: physical.ID, Role: audio.PortRoleSink, Type: audio.PortTypeDevice}},
	}
	if err := m.patches.Create(p, &m.msd.patch, patch.EngineUID); err != nil {
		return err
	}
	m.logger.Debug("Decoder patch created",
		logging.Int("patch", int(m.msd.patch)),
		logging.String("device", physical.String()),
	)
	return nil
}

func (m *Manager) suspendMsd() {
	if _, active := m.patches.Get(m.msd.patch); !active {
		return
	}
	if err := m.patches.Release(m.msd.patch, patch.EngineUID); err != nil {
		m.logger.Error("Failed to suspend decoder patch", err, logging.Int("patch", int(m.msd.patch)))
		return
	}
	m.logger.Debug("Decoder patch suspended", logging.Int("patch", int(m.msd.patch)))
}

// restoreMsd recreates a suspended decoder patch once its device is free
func (m *Manager) restoreMsd() error {
	if !m.msd.established || m.directOutputOn(m.msd.device) {
		return nil
	}
	dev, ok := m.topo.Device(m.msd.device)
	if !ok || !dev.Connected {
		return nil
	}
	return m.ensureMsdPatch(dev)
}

// refreshMsd points the decoder patch at the device media is routed to, or
// drops it when the decoder is gone
func (m *Manager) refreshMsd() error {
	if _, _, ok := m.msdDevices(); !ok {
		m.suspendMsd()
		m.msd = msdState{patch: m.msd.patch}
		return nil
	}

	dev, err := m.engine.OutputDevice(audio.Attributes{Usage: audio.UsageMedia}, m.topo)
	if err != nil || dev.Module == MSDModuleName {
		return nil
	}
	return m.ensureMsdPatch(dev)
}

func (m *Manager) directOutputOn(device audio.PortHandle) bool {
	return lo.SomeBy(lo.Values(m.outputs), func(o *output) bool {
		return o.device == device && o.direct()
	})
}
