// Package routing maps stream attributes to device preferences.
//
// An Engine groups playback usages into strategies, each with an ordered
// list of preferred device types, and picks the first preferred device that
// is connected. Force use settings reorder or pin those lists. Engines are
// created through factories registered by name:
//
//	engines := routing.NewFactoryRegistry()
//	factory, err := engines.Get(cfg.RoutingEngine)
//	engine := factory.New(logger)
package routing

import (
	"audio-policy/internal/audio"
	"audio-policy/internal/common/logging"
	"audio-policy/internal/common/registry"
	"audio-policy/internal/topology"
)

// Devices is the view of the connected devices an engine picks from
type Devices interface {
	ConnectedDevices(role audio.PortRole) []*topology.DevicePort
	DefaultOutput() *topology.DevicePort
}

// Engine selects devices for streams that no policy mix claims
type Engine interface {
	// Name returns the name the engine was registered under
	Name() string

	// SetForceUse forces config on usage. Invalid pairs are rejected with an
	// invalid-argument error and leave the previous setting in place.
	SetForceUse(usage ForceUse, config ForcedConfig) error

	// ForceUse returns the config currently forced on usage
	ForceUse(usage ForceUse) ForcedConfig

	// OutputDevice selects the sink for a playback stream
	OutputDevice(attr audio.Attributes, devices Devices) (*topology.DevicePort, error)

	// InputDevice selects the source for a capture stream
	InputDevice(attr audio.Attributes, devices Devices) (*topology.DevicePort, error)
}

// Factory creates engines
type Factory interface {
	Name() string
	New(logger logging.Logger) Engine
}

// NewFactoryRegistry returns a registry holding the built-in engines
func NewFactoryRegistry() *registry.Registry[Factory] {
	engines := registry.New[Factory]()
	engines.Register(NewDefaultFactory())
	return engines
}
