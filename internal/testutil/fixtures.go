package testutil

import (
	"audio-policy/internal/audio"
	"audio-policy/internal/topology"
)

// MixAddress is the remote submix address used by the dynamic policy fixtures
const MixAddress = "remote_submix_media"

// Common audio configurations
var (
	PCMStereo48k   = audio.Config{Format: audio.FormatPCM16, ChannelMask: audio.ChannelOutStereo, SampleRate: 48000}
	PCMInStereo48k = audio.Config{Format: audio.FormatPCM16, ChannelMask: audio.ChannelInStereo, SampleRate: 48000}
	AC3Surround48k = audio.Config{Format: audio.FormatAC3, ChannelMask: audio.ChannelOut5Point1, SampleRate: 48000}
	DTSSurround48k = audio.Config{Format: audio.FormatDTS, ChannelMask: audio.ChannelOut5Point1, SampleRate: 48000}
)

// DefaultSpec is a single primary module with a speaker and a built-in mic
func DefaultSpec() topology.Spec {
	return topology.Spec{Modules: []topology.ModuleSpec{primaryModule(2, 44100, 8000)}}
}

// MSDSpec extends DefaultSpec with a multi-stream decoder module and a direct
// DTS path on the speaker that the decoder cannot take.
func MSDSpec() topology.Spec {
	spec := DefaultSpec()
	primary := &spec.Modules[0]

	dts := audio.NewProfile(audio.FormatDTS, audio.ChannelOut5Point1, 48000)
	primary.Devices[0].Profiles = append(primary.Devices[0].Profiles, dts)
	primary.Outputs = append(primary.Outputs, topology.MixSpec{
		Name:        "encoded",
		OutputFlags: audio.OutputFlagDirect,
		Profiles:    audio.Profiles{dts},
	})
	primary.Routes[0].Sources = append(primary.Routes[0].Sources, "encoded")

	pcmOut := audio.NewProfile(audio.FormatPCM16, audio.ChannelOutStereo, 48000)
	ac3Out := audio.NewProfile(audio.FormatAC3, audio.ChannelOut5Point1, 48000)
	pcmIn := audio.NewProfile(audio.FormatPCM16, audio.ChannelInStereo, 44100)

	spec.Modules = append(spec.Modules, topology.ModuleSpec{
		Name:       "msd",
		HALVersion: 2,
		Devices: []topology.DeviceSpec{
			{Name: "MSD Out", Type: audio.DeviceOutBus, Profiles: audio.Profiles{pcmOut, ac3Out}, Attached: true},
			{Name: "MSD In", Type: audio.DeviceInBus, Profiles: audio.Profiles{pcmIn}, Attached: true},
		},
		Outputs: []topology.MixSpec{
			{Name: "msd input", Profiles: audio.Profiles{pcmOut}},
			{
				Name:        "msd compressed input",
				OutputFlags: audio.OutputFlagDirect | audio.OutputFlagCompressOffload | audio.OutputFlagNonBlocking,
				Profiles:    audio.Profiles{ac3Out},
			},
		},
		Inputs: []topology.MixSpec{
			{Name: "msd output", Profiles: audio.Profiles{pcmIn}},
		},
		Routes: []topology.RouteSpec{
			{Sink: "MSD Out", Sources: []string{"msd input", "msd compressed input"}},
			{Sink: "msd output", Sources: []string{"MSD In"}},
		},
	})
	return spec
}

// DynamicPolicySpec is a patch capable primary module plus a remote submix module
func DynamicPolicySpec() topology.Spec {
	spec := PrimaryOnlySpec()

	pcmOut := audio.NewProfile(audio.FormatPCM16, audio.ChannelOutStereo, 48000)
	pcmIn := audio.NewProfile(audio.FormatPCM16, audio.ChannelInStereo, 48000)

	spec.Modules = append(spec.Modules, topology.ModuleSpec{
		Name:       "r_submix",
		HALVersion: 3,
		Devices: []topology.DeviceSpec{
			{Name: "Remote Submix Out", Type: audio.DeviceOutRemoteSubmix, Profiles: audio.Profiles{pcmOut}},
			{Name: "Remote Submix In", Type: audio.DeviceInRemoteSubmix, Profiles: audio.Profiles{pcmIn}, Attached: true},
		},
		Outputs: []topology.MixSpec{{Name: "r_submix output", Profiles: audio.Profiles{pcmOut}}},
		Inputs:  []topology.MixSpec{{Name: "r_submix input", Profiles: audio.Profiles{pcmIn}}},
		Routes: []topology.RouteSpec{
			{Sink: "Remote Submix Out", Sources: []string{"r_submix output"}},
			{Sink: "r_submix input", Sources: []string{"Remote Submix In"}},
		},
	})
	return spec
}

// PrimaryOnlySpec is the dynamic policy configuration without the remote submix module
func PrimaryOnlySpec() topology.Spec {
	return topology.Spec{Modules: []topology.ModuleSpec{primaryModule(3, 48000, 48000)}}
}

func primaryModule(halVersion, outRate, inRate uint32) topology.ModuleSpec {
	out := audio.NewProfile(audio.FormatPCM16, audio.ChannelOutStereo, outRate)
	in := audio.NewProfile(audio.FormatPCM16, audio.ChannelInMono, inRate)

	return topology.ModuleSpec{
		Name:       "primary",
		HALVersion: halVersion,
		Devices: []topology.DeviceSpec{
			{Name: "Speaker", Type: audio.DeviceOutSpeaker, Profiles: audio.Profiles{out}, Attached: true, DefaultOutput: true},
			{Name: "Built-In Mic", Type: audio.DeviceInBuiltinMic, Profiles: audio.Profiles{in}, Attached: true},
		},
		Outputs: []topology.MixSpec{
			{Name: "primary output", OutputFlags: audio.OutputFlagPrimary, Profiles: audio.Profiles{out}},
		},
		Inputs: []topology.MixSpec{
			{Name: "primary input", Profiles: audio.Profiles{in}},
		},
		Routes: []topology.RouteSpec{
			{Sink: "Speaker", Sources: []string{"primary output"}},
			{Sink: "primary input", Sources: []string{"Built-In Mic"}},
		},
	}
}
