package routing

import "errors"

var (
	// ErrInvalidForceUse is returned for an unknown force use category
	ErrInvalidForceUse = errors.New("invalid force use")

	// ErrInvalidForcedConfig is returned for a config the category does not accept
	ErrInvalidForcedConfig = errors.New("invalid forced config")

	// ErrNoDevice is returned when no connected device can serve a stream
	ErrNoDevice = errors.New("no device available")
)
