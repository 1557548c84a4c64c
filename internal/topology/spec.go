package topology

import "audio-policy/internal/audio"

// Spec is the declarative description a Registry is built from
type Spec struct {
	Modules []ModuleSpec
}

// ModuleSpec declares one hardware module with its devices, mix profiles and routes
type ModuleSpec struct {
	Name       string
	HALVersion uint32
	Devices    []DeviceSpec
	Outputs    []MixSpec
	Inputs     []MixSpec
	Routes     []RouteSpec
}

// DeviceSpec declares a device port
type DeviceSpec struct {
	Name          string
	Type          audio.DeviceType
	Address       string
	Profiles      audio.Profiles
	Attached      bool
	DefaultOutput bool
}

// MixSpec declares an output or input mix profile
type MixSpec struct {
	Name         string
	OutputFlags  audio.OutputFlags
	InputFlags   audio.InputFlags
	Profiles     audio.Profiles
	MaxOpenCount uint32
}

// RouteSpec connects Sources to Sink. For playback the sink is a device and the
// sources are output mix profiles; for capture the sink is an input mix profile
// and the sources are devices.
type RouteSpec struct {
	Sink    string
	Sources []string
}

// Module returns the module spec named name
func (s Spec) Module(name string) (ModuleSpec, bool) {
	for _, m := range s.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return ModuleSpec{}, false
}
