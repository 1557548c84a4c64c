package patch

import "errors"

var (
	// ErrNilPatch is returned when no patch is supplied
	ErrNilPatch = errors.New("patch is nil")

	// ErrNilHandle is returned when no handle destination is supplied
	ErrNilHandle = errors.New("patch handle is nil")

	// ErrPortCount is returned when a side of a patch has no port or too many
	ErrPortCount = errors.New("patch port count out of range")

	// ErrRoleMismatch is returned when a source is not a source or a sink is not a sink
	ErrRoleMismatch = errors.New("patch endpoint role mismatch")

	// ErrFanShape is returned for a patch with several sources and several sinks
	ErrFanShape = errors.New("patch cannot have multiple sources and multiple sinks")

	// ErrUnknownPort is returned when an endpoint does not resolve to a port
	ErrUnknownPort = errors.New("patch endpoint does not resolve")

	// ErrPortMismatch is returned when an endpoint disagrees with the port it names
	ErrPortMismatch = errors.New("patch endpoint does not match port")

	// ErrPatchNotFound is returned for a handle that was never allocated
	ErrPatchNotFound = errors.New("patch not found")

	// ErrPatchReleased is returned for a handle that was already released
	ErrPatchReleased = errors.New("patch already released")

	// ErrNotOwner is returned when a client touches a patch it does not own
	ErrNotOwner = errors.New("patch owned by another client")
)
