package hal

import "audio-policy/internal/audio"

// NullClient has no hardware behind it; every call fails with ErrNotAvailable
type NullClient struct{}

// NewNullClient creates a NullClient
func NewNullClient() *NullClient {
	return &NullClient{}
}

func (NullClient) LoadHwModule(string) (audio.ModuleHandle, error) {
	return audio.ModuleHandleNone, ErrNotAvailable
}

func (NullClient) OpenOutput(OutputRequest) (audio.IOHandle, audio.Config, error) {
	return audio.IOHandleNone, audio.Config{}, ErrNotAvailable
}

func (NullClient) OpenInput(InputRequest) (audio.IOHandle, audio.Config, error) {
	return audio.IOHandleNone, audio.Config{}, ErrNotAvailable
}

func (NullClient) CloseOutput(audio.IOHandle) error { return ErrNotAvailable }

func (NullClient) CloseInput(audio.IOHandle) error { return ErrNotAvailable }

func (NullClient) CreateAudioPatch(*audio.Patch) (audio.PatchHandle, error) {
	return audio.PatchHandleNone, ErrNotAvailable
}

func (NullClient) ReleaseAudioPatch(audio.PatchHandle) error { return ErrNotAvailable }
