package hal

import (
	stderrors "errors"
	"testing"

	"audio-policy/internal/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPatch(source, sink audio.PortHandle) *audio.Patch {
	return &audio.Patch{
		Sources: []audio.PortConfig{{ID: source, Role: audio.PortRoleSource, Type: audio.PortTypeMix}},
		Sinks:   []audio.PortConfig{{ID: sink, Role: audio.PortRoleSink, Type: audio.PortTypeDevice}},
	}
}

func TestSimClient_Modules(t *testing.T) {
	sim := NewSimClient()
	sim.RejectModules = []string{"a2dp"}

	primary, err := sim.LoadHwModule("primary")
	require.NoError(t, err)
	assert.Equal(t, audio.ModuleHandle(1), primary)

	again, err := sim.LoadHwModule("primary")
	require.NoError(t, err)
	assert.Equal(t, primary, again)

	_, err = sim.LoadHwModule("a2dp")
	assert.True(t, stderrors.Is(err, ErrUnknownModule))
}

func TestSimClient_OutputsAndInputs(t *testing.T) {
	sim := NewSimClient()
	module, err := sim.LoadHwModule("primary")
	require.NoError(t, err)

	cfg := audio.Config{Format: audio.FormatPCM16, ChannelMask: audio.ChannelOutStereo, SampleRate: 48000}
	io, negotiated, err := sim.OpenOutput(OutputRequest{Module: module, Device: audio.DeviceOutSpeaker, Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, cfg, negotiated)
	assert.Equal(t, 1, sim.OpenOutputs())

	_, _, err = sim.OpenOutput(OutputRequest{Module: 42})
	assert.True(t, stderrors.Is(err, ErrUnknownModule))

	in, _, err := sim.OpenInput(InputRequest{Module: module, Device: audio.DeviceInBuiltinMic})
	require.NoError(t, err)
	assert.NotEqual(t, io, in)

	require.NoError(t, sim.CloseOutput(io))
	assert.True(t, stderrors.Is(sim.CloseOutput(io), ErrUnknownIO))
	require.NoError(t, sim.CloseInput(in))
	assert.Equal(t, 0, sim.OpenInputs())
}

func TestSimClient_Patches(t *testing.T) {
	sim := NewSimClient()

	_, ok := sim.LastAddedPatch()
	assert.False(t, ok)

	first, err := sim.CreateAudioPatch(testPatch(10, 1))
	require.NoError(t, err)
	second, err := sim.CreateAudioPatch(testPatch(11, 2))
	require.NoError(t, err)
	assert.Greater(t, second, first)
	assert.Equal(t, 2, sim.ActivePatchCount())

	last, ok := sim.LastAddedPatch()
	require.True(t, ok)
	assert.Equal(t, audio.PortHandle(2), last.RoutedPortID())

	require.NoError(t, sim.ReleaseAudioPatch(second))
	last, _ = sim.LastAddedPatch()
	assert.Equal(t, audio.PortHandle(1), last.RoutedPortID())

	assert.True(t, stderrors.Is(sim.ReleaseAudioPatch(second), ErrUnknownPatch))
	assert.True(t, stderrors.Is(sim.ReleaseAudioPatch(99), ErrUnknownPatch))
}

func TestSimClient_ErrorInjection(t *testing.T) {
	sim := NewSimClient()
	injected := stderrors.New("boom")
	sim.ErrorOnMethod["CreateAudioPatch"] = injected

	_, err := sim.CreateAudioPatch(testPatch(1, 2))
	assert.Equal(t, injected, err)
	assert.Equal(t, 0, sim.ActivePatchCount())
}

func TestNullClient(t *testing.T) {
	var client Client = NewNullClient()

	_, err := client.LoadHwModule("primary")
	assert.Equal(t, ErrNotAvailable, err)
	_, err = client.CreateAudioPatch(testPatch(1, 2))
	assert.Equal(t, ErrNotAvailable, err)
	assert.Equal(t, ErrNotAvailable, client.ReleaseAudioPatch(1))
}
