// Package topology owns the hardware modules, device ports and mix ports the
// policy engine routes between.
//
// Objects live in an arena indexed by port handle. Patches and streams keep
// handles, never pointers, and must tolerate a handle that no longer resolves.
// Which mix profile can reach which device is kept in a route graph whose
// edges point in the direction audio flows.
package topology

import (
	"fmt"
	"sort"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/logging"

	"github.com/heimdalr/dag"
	"github.com/samber/lo"
)

// DeviceClass tags where a device record comes from
type DeviceClass int

const (
	// ClassDeclared devices come from the topology description
	ClassDeclared DeviceClass = iota
	// ClassDynamic devices are created when a device connects at a new address
	ClassDynamic
)

// Module is a loaded hardware module
type Module struct {
	Handle     audio.ModuleHandle
	Name       string
	HALVersion uint32
}

// SupportsPatches reports whether the module routes its mix ports through patches
func (m *Module) SupportsPatches() bool {
	return m.HALVersion >= 3
}

// DevicePort is one physical or virtual endpoint
type DevicePort struct {
	ID            audio.PortHandle
	Class         DeviceClass
	Name          string
	Type          audio.DeviceType
	Address       string
	Profiles      audio.Profiles
	Module        string
	Connected     bool
	DefaultOutput bool

	vertex string
}

// Role is derived from the direction of the device type
func (d *DevicePort) Role() audio.PortRole {
	return d.Type.Role()
}

// Info returns a value snapshot of the device
func (d *DevicePort) Info() audio.PortInfo {
	return audio.PortInfo{
		ID:         d.ID,
		Role:       d.Role(),
		Type:       audio.PortTypeDevice,
		Name:       d.Name,
		Module:     d.Module,
		DeviceType: d.Type,
		Address:    d.Address,
		Profiles:   d.Profiles.Clone(),
	}
}

func (d *DevicePort) String() string {
	return fmt.Sprintf("%s@%q", d.Type, d.Address)
}

// MixProfile is a declared capability of a module to open an output or input
type MixProfile struct {
	Name         string
	Module       string
	Role         audio.PortRole
	OutputFlags  audio.OutputFlags
	InputFlags   audio.InputFlags
	Profiles     audio.Profiles
	MaxOpenCount uint32
	OpenCount    uint32

	vertex string
}

// IsOutput reports whether the profile renders audio
func (p *MixProfile) IsOutput() bool {
	return p.Role == audio.PortRoleSource
}

// IsDirect reports whether the profile bypasses the software mixer
func (p *MixProfile) IsDirect() bool {
	return p.OutputFlags.Has(audio.OutputFlagDirect)
}

// CanOpen reports whether another instance of the profile may be opened
func (p *MixProfile) CanOpen() bool {
	return p.MaxOpenCount == 0 || p.OpenCount < p.MaxOpenCount
}

// MixPort is an opened instance of a mix profile
type MixPort struct {
	ID      audio.PortHandle
	Profile *MixProfile
	IO      audio.IOHandle
	Config  audio.Config
}

// Info returns a value snapshot of the mix port
func (m *MixPort) Info() audio.PortInfo {
	return audio.PortInfo{
		ID:       m.ID,
		Role:     m.Profile.Role,
		Type:     audio.PortTypeMix,
		Name:     m.Profile.Name,
		Module:   m.Profile.Module,
		IO:       m.IO,
		Profiles: m.Profile.Profiles.Clone(),
	}
}

// Registry is the arena of topology objects
type Registry struct {
	modules    []*Module
	devices    map[audio.PortHandle]*DevicePort
	profiles   []*MixProfile
	mixPorts   map[audio.PortHandle]*MixPort
	ids        *audio.Sequence[audio.PortHandle]
	generation uint32
	graph      *dag.DAG
	logger     logging.Logger
}

// Build validates spec and creates the registry it describes
func Build(spec Spec, logger logging.Logger) (*Registry, error) {
	if len(spec.Modules) == 0 {
		return nil, errors.New(errors.ErrTypeConfig, "build topology", ErrNoModules)
	}

	r := &Registry{
		devices:  make(map[audio.PortHandle]*DevicePort),
		mixPorts: make(map[audio.PortHandle]*MixPort),
		ids:      audio.NewSequence[audio.PortHandle](),
		graph:    dag.NewDAG(),
		logger:   logger,
	}

	for _, ms := range spec.Modules {
		if ms.Name == "" {
			return nil, errors.New(errors.ErrTypeConfig, "build topology", ErrUnnamedModule)
		}
		if _, exists := r.Module(ms.Name); exists {
			return nil, errors.New(errors.ErrTypeConfig, fmt.Sprintf("module %q", ms.Name), ErrDuplicateModule)
		}
		if err := r.addModule(ms); err != nil {
			return nil, err
		}
	}

	logger.Info("Topology built",
		logging.Int("modules", len(r.modules)),
		logging.Int("devices", len(r.devices)),
		logging.Int("mix_profiles", len(r.profiles)),
	)

	return r, nil
}

type endpoint struct {
	vertex  string
	device  *DevicePort
	profile *MixProfile
}

func (r *Registry) addModule(ms ModuleSpec) error {
	moduleErr := func(what string, cause error) error {
		return errors.New(errors.ErrTypeConfig, fmt.Sprintf("module %q: %s", ms.Name, what), cause)
	}

	endpoints := make(map[string]endpoint)
	addVertex := func(kind, name string) (string, error) {
		if name == "" {
			return "", moduleErr(fmt.Sprintf("unnamed %s", kind), ErrDuplicatePort)
		}
		if _, exists := endpoints[name]; exists {
			return "", moduleErr(fmt.Sprintf("%s %q", kind, name), ErrDuplicatePort)
		}
		return r.graph.AddVertex(ms.Name + "/" + kind + "/" + name)
	}

	for _, ds := range ms.Devices {
		if ds.Type == audio.DeviceNone || !ds.Type.Known() {
			return moduleErr(fmt.Sprintf("device %q", ds.Name), ErrInvalidDevice)
		}
		vertex, err := addVertex("device", ds.Name)
		if err != nil {
			return err
		}
		id, err := r.ids.Next()
		if err != nil {
			return err
		}
		dev := &DevicePort{
			ID:            id,
			Class:         ClassDeclared,
			Name:          ds.Name,
			Type:          ds.Type,
			Address:       ds.Address,
			Profiles:      ds.Profiles.Clone(),
			Module:        ms.Name,
			Connected:     ds.Attached,
			DefaultOutput: ds.DefaultOutput && !ds.Type.IsInput(),
			vertex:        vertex,
		}
		r.devices[dev.ID] = dev
		endpoints[ds.Name] = endpoint{vertex: vertex, device: dev}
	}

	addProfiles := func(specs []MixSpec, role audio.PortRole) error {
		for _, mix := range specs {
			if len(mix.Profiles) == 0 {
				return moduleErr(fmt.Sprintf("mix port %q", mix.Name), ErrEmptyProfiles)
			}
			vertex, err := addVertex("mix", mix.Name)
			if err != nil {
				return err
			}
			profile := &MixProfile{
				Name:         mix.Name,
				Module:       ms.Name,
				Role:         role,
				OutputFlags:  mix.OutputFlags,
				InputFlags:   mix.InputFlags,
				Profiles:     mix.Profiles.Clone(),
				MaxOpenCount: mix.MaxOpenCount,
				vertex:       vertex,
			}
			r.profiles = append(r.profiles, profile)
			endpoints[mix.Name] = endpoint{vertex: vertex, profile: profile}
		}
		return nil
	}
	if err := addProfiles(ms.Outputs, audio.PortRoleSource); err != nil {
		return err
	}
	if err := addProfiles(ms.Inputs, audio.PortRoleSink); err != nil {
		return err
	}

	edges := make(map[[2]string]bool)
	for _, route := range ms.Routes {
		sink, ok := endpoints[route.Sink]
		if !ok {
			return moduleErr(fmt.Sprintf("route sink %q", route.Sink), ErrInvalidRoute)
		}
		for _, name := range route.Sources {
			source, ok := endpoints[name]
			if !ok {
				return moduleErr(fmt.Sprintf("route source %q", name), ErrInvalidRoute)
			}
			if !routable(source, sink) {
				return moduleErr(fmt.Sprintf("route %q -> %q", name, route.Sink), ErrInvalidRoute)
			}
			key := [2]string{source.vertex, sink.vertex}
			if edges[key] {
				continue
			}
			if err := r.graph.AddEdge(source.vertex, sink.vertex); err != nil {
				return moduleErr(fmt.Sprintf("route %q -> %q", name, route.Sink), err)
			}
			edges[key] = true
		}
	}

	r.modules = append(r.modules, &Module{Name: ms.Name, HALVersion: ms.HALVersion})
	return nil
}

// routable accepts output profile -> output device and input device -> input profile
func routable(source, sink endpoint) bool {
	switch {
	case source.profile != nil && sink.device != nil:
		return source.profile.IsOutput() && sink.device.Role() == audio.PortRoleSink
	case source.device != nil && sink.profile != nil:
		return source.device.Role() == audio.PortRoleSource && !sink.profile.IsOutput()
	default:
		return false
	}
}

// Generation is bumped on every device connection change and mix port open or close
func (r *Registry) Generation() uint32 {
	return r.generation
}

// Modules returns the modules in declaration order
func (r *Registry) Modules() []*Module {
	return r.modules
}

// Module returns the module named name
func (r *Registry) Module(name string) (*Module, bool) {
	return lo.Find(r.modules, func(m *Module) bool { return m.Name == name })
}

// ModuleForDevice resolves the module declaring a device of type t
func (r *Registry) ModuleForDevice(t audio.DeviceType) (*Module, error) {
	dev := r.findDevice(func(d *DevicePort) bool {
		return d.Class == ClassDeclared && d.Type == t
	})
	if dev == nil {
		return nil, errors.NotFoundErrorWithCause(fmt.Sprintf("module for %s", t), ErrUnknownDeviceType)
	}
	m, _ := r.Module(dev.Module)
	return m, nil
}

// FindPort returns the connected device with the given role, type and address
func (r *Registry) FindPort(role audio.PortRole, t audio.DeviceType, address string) (*DevicePort, error) {
	dev := r.findDevice(func(d *DevicePort) bool {
		return d.Connected && d.Role() == role && d.Type == t && d.Address == address
	})
	if dev == nil {
		return nil, errors.NotFoundErrorWithCause(fmt.Sprintf("%s device %s@%q", role, t, address), ErrNotConnected)
	}
	return dev, nil
}

// IsConnected reports whether a device of type t is connected at address
func (r *Registry) IsConnected(t audio.DeviceType, address string) bool {
	_, err := r.FindPort(t.Role(), t, address)
	return err == nil
}

// PortSupports reports whether the port id exactly supports cfg
func (r *Registry) PortSupports(id audio.PortHandle, cfg audio.Config) bool {
	if dev, ok := r.devices[id]; ok {
		return dev.Profiles.Supports(cfg)
	}
	if mix, ok := r.mixPorts[id]; ok {
		return mix.Profile.Profiles.Supports(cfg)
	}
	return false
}

// Connect makes a device available. A declared device at the same address is
// reused; otherwise a dynamic device is created from the first declared device
// of the same type, inheriting its module, profiles and routes.
func (r *Registry) Connect(t audio.DeviceType, address, name string) (*DevicePort, error) {
	if r.IsConnected(t, address) {
		return nil, errors.InvalidOperationError(fmt.Sprintf("connect %s@%q", t, address), ErrAlreadyConnected)
	}

	if dev := r.findDevice(func(d *DevicePort) bool {
		return d.Class == ClassDeclared && d.Type == t && d.Address == address
	}); dev != nil {
		dev.Connected = true
		r.generation++
		r.logger.Debug("Device connected", logging.String("device", dev.String()), logging.Int("id", int(dev.ID)))
		return dev, nil
	}

	template := r.findDevice(func(d *DevicePort) bool {
		return d.Class == ClassDeclared && d.Type == t
	})
	if template == nil {
		return nil, errors.NotFoundErrorWithCause(fmt.Sprintf("device type %s", t), ErrUnknownDeviceType)
	}

	id, err := r.ids.Next()
	if err != nil {
		return nil, err
	}
	dev := &DevicePort{
		ID:        id,
		Class:     ClassDynamic,
		Name:      lo.Ternary(name != "", name, template.Name),
		Type:      t,
		Address:   address,
		Profiles:  template.Profiles.Clone(),
		Module:    template.Module,
		Connected: true,
		vertex:    template.vertex,
	}
	r.devices[dev.ID] = dev
	r.generation++
	r.logger.Debug("Dynamic device connected", logging.String("device", dev.String()), logging.Int("id", int(dev.ID)))
	return dev, nil
}

// Disconnect removes a connected device. Dynamic devices are dropped from the
// arena, declared devices are only marked disconnected.
func (r *Registry) Disconnect(t audio.DeviceType, address string) (*DevicePort, error) {
	dev, err := r.FindPort(t.Role(), t, address)
	if err != nil {
		return nil, err
	}

	if dev.Class == ClassDynamic {
		delete(r.devices, dev.ID)
	}
	dev.Connected = false
	r.generation++
	r.logger.Debug("Device disconnected", logging.String("device", dev.String()), logging.Int("id", int(dev.ID)))
	return dev, nil
}

// Device returns the device with the given id, connected or not
func (r *Registry) Device(id audio.PortHandle) (*DevicePort, bool) {
	dev, ok := r.devices[id]
	return dev, ok
}

// ConnectedDevices returns the connected devices of role, ordered by id.
// PortRoleNone selects both roles.
func (r *Registry) ConnectedDevices(role audio.PortRole) []*DevicePort {
	return lo.Filter(r.sortedDevices(), func(d *DevicePort, _ int) bool {
		return d.Connected && (role == audio.PortRoleNone || d.Role() == role)
	})
}

// DefaultOutput returns the connected default output device, or nil
func (r *Registry) DefaultOutput() *DevicePort {
	return r.findDevice(func(d *DevicePort) bool { return d.Connected && d.DefaultOutput })
}

// Profiles returns the mix profiles of role in declaration order
func (r *Registry) Profiles(role audio.PortRole) []*MixProfile {
	return lo.Filter(r.profiles, func(p *MixProfile, _ int) bool { return p.Role == role })
}

// profile returns the mix profile of module named name
func (r *Registry) profile(module, name string) (*MixProfile, bool) {
	return lo.Find(r.profiles, func(p *MixProfile) bool { return p.Module == module && p.Name == name })
}

// CanRoute reports whether profile p and device d are connected by a route
func (r *Registry) CanRoute(p *MixProfile, d *DevicePort) bool {
	if p.Module != d.Module {
		return false
	}
	_, ok := r.neighbours(p)[d.vertex]
	return ok
}

// RoutableDevices returns the connected devices p has a route to or from
func (r *Registry) RoutableDevices(p *MixProfile) []*DevicePort {
	neighbours := r.neighbours(p)
	return lo.Filter(r.sortedDevices(), func(d *DevicePort, _ int) bool {
		_, ok := neighbours[d.vertex]
		return d.Connected && d.Module == p.Module && ok
	})
}

// RoutableProfiles returns the mix profiles that can reach d, in declaration order
func (r *Registry) RoutableProfiles(d *DevicePort) []*MixProfile {
	return lo.Filter(r.profiles, func(p *MixProfile, _ int) bool {
		return p.IsOutput() == !d.Type.IsInput() && r.CanRoute(p, d)
	})
}

func (r *Registry) neighbours(p *MixProfile) map[string]interface{} {
	var (
		vertices map[string]interface{}
		err      error
	)
	if p.IsOutput() {
		vertices, err = r.graph.GetChildren(p.vertex)
	} else {
		vertices, err = r.graph.GetParents(p.vertex)
	}
	if err != nil {
		r.logger.Warn("Route graph lookup failed",
			logging.String("profile", p.Name),
			logging.Err(err),
		)
		return nil
	}
	return vertices
}

// AllocatePortID hands out an id from the port handle space
func (r *Registry) AllocatePortID() (audio.PortHandle, error) {
	return r.ids.Next()
}

// OpenMixPort records an opened output or input of profile p
func (r *Registry) OpenMixPort(p *MixProfile, io audio.IOHandle, cfg audio.Config) (*MixPort, error) {
	if !p.CanOpen() {
		return nil, errors.InvalidOperationError(fmt.Sprintf("open mix port %q", p.Name), ErrMaxOpenCount)
	}

	id, err := r.ids.Next()
	if err != nil {
		return nil, err
	}
	mix := &MixPort{
		ID:      id,
		Profile: p,
		IO:      io,
		Config:  cfg,
	}
	p.OpenCount++
	r.mixPorts[mix.ID] = mix
	r.generation++
	return mix, nil
}

// CloseMixPort forgets an opened mix port
func (r *Registry) CloseMixPort(id audio.PortHandle) error {
	mix, ok := r.mixPorts[id]
	if !ok {
		return errors.NotFoundErrorWithCause(fmt.Sprintf("mix port %d", id), ErrMixPortNotFound)
	}
	mix.Profile.OpenCount--
	delete(r.mixPorts, id)
	r.generation++
	return nil
}

// Port resolves a connected device or an opened mix port by id
func (r *Registry) Port(id audio.PortHandle) (audio.PortInfo, bool) {
	if dev, ok := r.devices[id]; ok && dev.Connected {
		return dev.Info(), true
	}
	if mix, ok := r.mixPorts[id]; ok {
		return mix.Info(), true
	}
	return audio.PortInfo{}, false
}

// ListPorts returns snapshots of the connected devices and opened mix ports
// filtered by role and type, together with the generation they were taken at.
// PortRoleNone and PortTypeNone match everything.
func (r *Registry) ListPorts(role audio.PortRole, typ audio.PortType) ([]audio.PortInfo, uint32) {
	ports := make([]audio.PortInfo, 0, len(r.devices)+len(r.mixPorts))
	if typ == audio.PortTypeNone || typ == audio.PortTypeDevice {
		for _, dev := range r.ConnectedDevices(role) {
			ports = append(ports, dev.Info())
		}
	}
	if typ == audio.PortTypeNone || typ == audio.PortTypeMix {
		for _, mix := range r.mixPorts {
			if role == audio.PortRoleNone || mix.Profile.Role == role {
				ports = append(ports, mix.Info())
			}
		}
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i].ID < ports[j].ID })
	return ports, r.generation
}

func (r *Registry) sortedDevices() []*DevicePort {
	devices := lo.Values(r.devices)
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

func (r *Registry) findDevice(match func(*DevicePort) bool) *DevicePort {
	dev, _ := lo.Find(r.sortedDevices(), match)
	return dev
}
