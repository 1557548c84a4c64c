package audio

import (
	"encoding/json"
	stderrors "errors"
	"math"
	"testing"

	"audio-policy/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_IsLinearPCM(t *testing.T) {
	tests := []struct {
		format Format
		want   bool
	}{
		{FormatDefault, false},
		{FormatPCM16, true},
		{FormatPCMFloat, true},
		{FormatPCM24Packed, true},
		{FormatAC3, false},
		{FormatDTS, false},
		{FormatIEC61937, false},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format.IsLinearPCM())
		})
	}
}

func TestParseNames(t *testing.T) {
	f, err := ParseFormat("AUDIO_FORMAT_AC3")
	require.NoError(t, err)
	assert.Equal(t, FormatAC3, f)

	m, err := ParseChannelMask(" AUDIO_CHANNEL_OUT_5POINT1 ")
	require.NoError(t, err)
	assert.Equal(t, ChannelOut5Point1, m)

	d, err := ParseDeviceType("AUDIO_DEVICE_IN_REMOTE_SUBMIX")
	require.NoError(t, err)
	assert.Equal(t, DeviceInRemoteSubmix, d)

	_, err = ParseFormat("AUDIO_FORMAT_OPUS_LOSSY")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidArgument))

	assert.Equal(t, "format(0x77)", Format(0x77).String())
}

func TestOutputFlags(t *testing.T) {
	flags, err := ParseOutputFlags("AUDIO_OUTPUT_FLAG_DIRECT|AUDIO_OUTPUT_FLAG_COMPRESS_OFFLOAD | AUDIO_OUTPUT_FLAG_NON_BLOCKING")
	require.NoError(t, err)
	assert.Equal(t, OutputFlagDirect|OutputFlagCompressOffload|OutputFlagNonBlocking, flags)
	assert.True(t, flags.Has(OutputFlagDirect))
	assert.False(t, flags.Has(OutputFlagPrimary))
	assert.Equal(t, "AUDIO_OUTPUT_FLAG_DIRECT|AUDIO_OUTPUT_FLAG_COMPRESS_OFFLOAD|AUDIO_OUTPUT_FLAG_NON_BLOCKING", flags.String())
	assert.Equal(t, "AUDIO_OUTPUT_FLAG_NONE", OutputFlagNone.String())

	empty, err := ParseOutputFlags("")
	require.NoError(t, err)
	assert.Equal(t, OutputFlagNone, empty)

	_, err = ParseInputFlags("AUDIO_INPUT_FLAG_FAST|AUDIO_INPUT_FLAG_BOGUS")
	assert.Error(t, err)
}

func TestDeviceType_Role(t *testing.T) {
	assert.Equal(t, PortRoleSink, DeviceOutSpeaker.Role())
	assert.Equal(t, PortRoleSource, DeviceInBuiltinMic.Role())
	assert.Equal(t, PortRoleNone, DeviceNone.Role())
	assert.True(t, DeviceInBus.IsInput())
	assert.False(t, DeviceOutBus.IsInput())
	assert.True(t, DeviceOutRemoteSubmix.IsRemoteSubmix())
	assert.True(t, DeviceInRemoteSubmix.IsRemoteSubmix())
	assert.False(t, DeviceOutSpeaker.IsRemoteSubmix())
}

func TestAttributes_Address(t *testing.T) {
	tests := []struct {
		name string
		tags string
		want string
	}{
		{"empty", "", ""},
		{"address only", "addr=remote_submix_media", "remote_submix_media"},
		{"address among tags", "oem=1;addr=car;x=y", "car"},
		{"first address wins", "addr=a;addr=b", "a"},
		{"no address", "oem=1", ""},
		{"empty address", "addr=", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Attributes{Tags: tt.tags}.Address())
		})
	}
}

func TestProfiles(t *testing.T) {
	profiles := Profiles{
		NewProfile(FormatPCM16, ChannelOutStereo, 48000),
		NewProfile(FormatAC3, ChannelOut5Point1, 48000),
		{Format: FormatPCM16},
	}

	ac3 := Config{Format: FormatAC3, ChannelMask: ChannelOut5Point1, SampleRate: 48000}
	assert.True(t, profiles.Supports(ac3))
	assert.False(t, profiles.Supports(Config{Format: FormatAC3, ChannelMask: ChannelOutStereo, SampleRate: 48000}))
	assert.True(t, profiles.Supports(Config{Format: FormatPCM16, ChannelMask: ChannelOut7Point1, SampleRate: 8000}))
	assert.False(t, profiles.Supports(Config{Format: FormatDTS, ChannelMask: ChannelOut5Point1, SampleRate: 48000}))

	assert.True(t, profiles.SupportsFormat(FormatAC3))

	pcmOnly := Profiles{NewProfile(FormatPCM16, ChannelInMono, 8000)}
	assert.True(t, pcmOnly.Compatible(Config{Format: FormatPCMFloat, ChannelMask: ChannelInStereo, SampleRate: 48000}))
	assert.False(t, pcmOnly.Compatible(ac3))

	clone := profiles.Clone()
	clone[0].SampleRates[0] = 44100
	assert.Equal(t, uint32(48000), profiles[0].SampleRates[0])
}

func TestSequence(t *testing.T) {
	seq := NewSequence[PatchHandle]()
	assert.False(t, seq.Issued(PatchHandleNone))

	first, err := seq.Next()
	require.NoError(t, err)
	second, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, PatchHandle(1), first)
	assert.Equal(t, PatchHandle(2), second)
	assert.True(t, seq.Issued(first))
	assert.False(t, seq.Issued(second+1))
}

func TestSequence_Exhausted(t *testing.T) {
	seq := &Sequence[PortHandle]{next: math.MaxInt32 - 1}

	for _, want := range []PortHandle{math.MaxInt32 - 1, math.MaxInt32} {
		h, err := seq.Next()
		require.NoError(t, err)
		assert.Equal(t, want, h)
	}

	h, err := seq.Next()
	assert.Equal(t, PortHandleNone, h)
	assert.True(t, errors.IsType(err, errors.ErrTypeInternal))
	assert.True(t, stderrors.Is(err, ErrHandlesExhausted))
	assert.True(t, seq.Issued(math.MaxInt32))
	assert.False(t, seq.Issued(PortHandleNone))

	_, err = seq.Next()
	assert.Error(t, err)
}

func TestPatch_RoutedPortID(t *testing.T) {
	mixToDevice := &Patch{
		Sources: []PortConfig{{ID: 10, Role: PortRoleSource, Type: PortTypeMix}},
		Sinks:   []PortConfig{{ID: 3, Role: PortRoleSink, Type: PortTypeDevice}},
	}
	deviceToMix := &Patch{
		Sources: []PortConfig{{ID: 4, Role: PortRoleSource, Type: PortTypeDevice}},
		Sinks:   []PortConfig{{ID: 11, Role: PortRoleSink, Type: PortTypeMix}},
	}

	assert.Equal(t, PortHandle(3), mixToDevice.RoutedPortID())
	assert.Equal(t, PortHandle(4), deviceToMix.RoutedPortID())
	assert.Equal(t, PortHandleNone, (&Patch{}).RoutedPortID())
	assert.True(t, mixToDevice.References(10))
	assert.False(t, mixToDevice.References(4))
}

func TestJSONNames(t *testing.T) {
	in := struct {
		Device DeviceType  `json:"device"`
		Flags  OutputFlags `json:"flags"`
		Role   PortRole    `json:"role"`
	}{DeviceOutSpeaker, OutputFlagDirect | OutputFlagPrimary, PortRoleSink}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"device":"AUDIO_DEVICE_OUT_SPEAKER","flags":"AUDIO_OUTPUT_FLAG_DIRECT|AUDIO_OUTPUT_FLAG_PRIMARY","role":"sink"}`, string(data))

	out := in
	out.Device = DeviceNone
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
