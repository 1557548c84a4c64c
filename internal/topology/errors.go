package topology

import "errors"

var (
	// ErrNoModules is returned when a spec declares no module
	ErrNoModules = errors.New("topology declares no module")

	// ErrUnnamedModule is returned for a module declared without a name
	ErrUnnamedModule = errors.New("module has no name")

	// ErrDuplicateModule is returned when two modules share a name
	ErrDuplicateModule = errors.New("duplicate module name")

	// ErrDuplicatePort is returned when two ports of a module share a name
	ErrDuplicatePort = errors.New("duplicate port name")

	// ErrInvalidDevice is returned for a device declared with an unknown or empty type
	ErrInvalidDevice = errors.New("invalid device declaration")

	// ErrEmptyProfiles is returned for a mix profile without any audio profile
	ErrEmptyProfiles = errors.New("mix profile declares no audio profile")

	// ErrInvalidRoute is returned for a route whose endpoints cannot be connected
	ErrInvalidRoute = errors.New("invalid route")

	// ErrUnknownDeviceType is returned when no module declares a device type
	ErrUnknownDeviceType = errors.New("device type not declared by any module")

	// ErrAlreadyConnected is returned when connecting a connected device
	ErrAlreadyConnected = errors.New("device already connected")

	// ErrNotConnected is returned when no connected device matches a lookup
	ErrNotConnected = errors.New("device not connected")

	// ErrMixPortNotFound is returned for an unknown mix port id
	ErrMixPortNotFound = errors.New("mix port not found")

	// ErrMaxOpenCount is returned when a mix profile has no instance left to open
	ErrMaxOpenCount = errors.New("mix profile max open count reached")
)
