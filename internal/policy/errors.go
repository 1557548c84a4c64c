package policy

import "errors"

var (
	// ErrNotInitialized is returned by every operation before a successful Initialize
	ErrNotInitialized = errors.New("policy manager not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called twice
	ErrAlreadyInitialized = errors.New("policy manager already initialized")

	// ErrNoOutputDevice is returned when no output device is connected at initialization
	ErrNoOutputDevice = errors.New("no output device connected")

	// ErrNoOutput is returned when no output could be opened at initialization
	ErrNoOutput = errors.New("no output opened")

	// ErrInvalidConfig is returned for a stream request without a format
	ErrInvalidConfig = errors.New("invalid stream config")

	// ErrNoProfile is returned when no mix profile can carry a request to the selected device
	ErrNoProfile = errors.New("no mix profile supports the request")

	// ErrStreamNotFound is returned for an unknown stream id
	ErrStreamNotFound = errors.New("stream not found")

	// ErrStreamActive is returned when starting a started stream
	ErrStreamActive = errors.New("stream already started")

	// ErrStreamNotActive is returned when stopping a stream that is not started
	ErrStreamNotActive = errors.New("stream not started")

	// ErrPortNotFound is returned for a port id that does not resolve
	ErrPortNotFound = errors.New("port not found")
)
