package policymix

import "errors"

var (
	// ErrInvalidMixType is returned for a mix type other than players or recorders
	ErrInvalidMixType = errors.New("invalid mix type")

	// ErrInvalidRouteFlags is returned when a mix neither renders nor loops back
	ErrInvalidRouteFlags = errors.New("invalid route flags")

	// ErrLoopBackAndRender is returned for a mix that both loops back and renders
	ErrLoopBackAndRender = errors.New("loop back and render is not supported")

	// ErrRecorderRender is returned for a recorders mix that renders
	ErrRecorderRender = errors.New("recorders mix cannot render")

	// ErrInvalidCriterion is returned for a criterion the mix type cannot evaluate
	ErrInvalidCriterion = errors.New("invalid mix criterion")

	// ErrDuplicateMix is returned when an equivalent mix is already registered
	ErrDuplicateMix = errors.New("mix already registered")

	// ErrModuleNotFound is returned when no module serves the mix device
	ErrModuleNotFound = errors.New("no module for mix device")

	// ErrDeviceInUse is returned when the loop-back counterpart device is already connected
	ErrDeviceInUse = errors.New("mix device already connected")

	// ErrDeviceNotFound is returned when a render target is not available
	ErrDeviceNotFound = errors.New("mix device not available")

	// ErrOutputNotFound is returned when no output profile can reach a render target
	ErrOutputNotFound = errors.New("no output for mix device")

	// ErrMixNotRegistered is returned when unregistering an unknown mix
	ErrMixNotRegistered = errors.New("mix not registered")
)
