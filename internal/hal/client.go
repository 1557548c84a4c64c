// Package hal defines the hardware abstraction collaborator the policy engine
// drives, together with a null client and an in-memory simulated client.
package hal

import (
	"errors"

	"audio-policy/internal/audio"
)

var (
	// ErrNotAvailable is returned by a client with no hardware behind it
	ErrNotAvailable = errors.New("hardware client not available")

	// ErrUnknownModule is returned for a module name or handle the client does not know
	ErrUnknownModule = errors.New("unknown hardware module")

	// ErrUnknownIO is returned when closing an io handle that is not open
	ErrUnknownIO = errors.New("unknown io handle")

	// ErrUnknownPatch is returned when releasing a patch handle that is not active
	ErrUnknownPatch = errors.New("unknown hardware patch")
)

// OutputRequest describes an output to open on a module
type OutputRequest struct {
	Module  audio.ModuleHandle
	Device  audio.DeviceType
	Address string
	Config  audio.Config
	Flags   audio.OutputFlags
}

// InputRequest describes an input to open on a module
type InputRequest struct {
	Module  audio.ModuleHandle
	Device  audio.DeviceType
	Address string
	Config  audio.Config
	Source  audio.Source
	Flags   audio.InputFlags
}

// Client is the hardware abstraction the engine calls synchronously. The
// engine updates its own state only after a call returns without error.
type Client interface {
	LoadHwModule(name string) (audio.ModuleHandle, error)
	OpenOutput(req OutputRequest) (audio.IOHandle, audio.Config, error)
	OpenInput(req InputRequest) (audio.IOHandle, audio.Config, error)
	CloseOutput(io audio.IOHandle) error
	CloseInput(io audio.IOHandle) error
	CreateAudioPatch(patch *audio.Patch) (audio.PatchHandle, error)
	ReleaseAudioPatch(handle audio.PatchHandle) error
}
