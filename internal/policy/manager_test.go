package policy

import (
	stderrors "errors"
	"testing"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/logging"
	"audio-policy/internal/hal"
	"audio-policy/internal/metrics"
	"audio-policy/internal/patch"
	"audio-policy/internal/policymix"
	"audio-policy/internal/routing"
	"audio-policy/internal/testutil"
	"audio-policy/internal/topology"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, spec topology.Spec) (*Manager, *hal.SimClient) {
	t.Helper()
	sim := hal.NewSimClient()
	m := NewManager(sim, nil, nil, logging.NewNopLogger())
	require.NoError(t, m.Initialize(Config{Topology: spec}))
	require.NoError(t, m.InitCheck())
	return m, sim
}

// findDevicePort lists the device ports twice, checks the generation did not
// move, and returns the port of type t at address
func findDevicePort(t *testing.T, m *Manager, role audio.PortRole, typ audio.DeviceType, address string) audio.PortInfo {
	t.Helper()
	_, gen1, err := m.ListAudioPorts(role, audio.PortTypeDevice)
	require.NoError(t, err)
	ports, gen2, err := m.ListAudioPorts(role, audio.PortTypeDevice)
	require.NoError(t, err)
	require.Equal(t, gen1, gen2)

	for _, p := range ports {
		if p.Role == role && p.DeviceType == typ && p.Address == address {
			return p
		}
	}
	require.FailNowf(t, "device port not found", "%s@%q", typ, address)
	return audio.PortInfo{}
}

func outputRequest(cfg audio.Config, flags audio.OutputFlags) OutputRequest {
	return OutputRequest{Config: cfg, Flags: flags}
}

func playersMix(flags policymix.RouteFlags, device audio.DeviceType, address string, criteria ...policymix.Criterion) policymix.Mix {
	return policymix.Mix{
		Criteria:   criteria,
		Type:       policymix.MixTypePlayers,
		Config:     testutil.PCMStereo48k,
		RouteFlags: flags,
		DeviceType: device,
		Address:    address,
	}
}

func recordersMix(flags policymix.RouteFlags, device audio.DeviceType, address string, criteria ...policymix.Criterion) policymix.Mix {
	return policymix.Mix{
		Criteria:   criteria,
		Type:       policymix.MixTypeRecorders,
		Config:     testutil.PCMInStereo48k,
		RouteFlags: flags,
		DeviceType: device,
		Address:    address,
	}
}

func TestManager_InitSuccess(t *testing.T) {
	m, sim := newTestManager(t, testutil.DefaultSpec())

	assert.Equal(t, 1, sim.OpenOutputs())
	assert.Equal(t, 0, sim.ActivePatchCount())

	ports, _, err := m.ListAudioPorts(audio.PortRoleSource, audio.PortTypeMix)
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "primary output", ports[0].Name)

	assert.True(t, errors.IsType(m.Initialize(Config{Topology: testutil.DefaultSpec()}), errors.ErrTypeInvalidOperation))
}

func TestManager_InitPatchesOutputsOnPatchCapableModules(t *testing.T) {
	m, sim := newTestManager(t, testutil.PrimaryOnlySpec())

	assert.Equal(t, 1, sim.OpenOutputs())
	assert.Equal(t, 1, sim.ActivePatchCount())

	speaker := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutSpeaker, "")
	last, ok := sim.LastAddedPatch()
	require.True(t, ok)
	assert.Equal(t, speaker.ID, last.RoutedPortID())
}

func TestManager_InitializeFailures(t *testing.T) {
	noSpeaker := testutil.DefaultSpec()
	noSpeaker.Modules[0].Devices[0].Attached = false

	tests := []struct {
		name  string
		cfg   Config
		setup func(*hal.SimClient)
		cause error
	}{
		{
			name:  "unknown engine",
			cfg:   Config{Topology: testutil.DefaultSpec(), Engine: "automotive"},
			cause: nil,
		},
		{
			name:  "empty topology",
			cfg:   Config{},
			cause: topology.ErrNoModules,
		},
		{
			name:  "no output device",
			cfg:   Config{Topology: noSpeaker},
			cause: ErrNoOutputDevice,
		},
		{
			name:  "every module refused",
			cfg:   Config{Topology: testutil.DefaultSpec()},
			setup: func(s *hal.SimClient) { s.RejectModules = []string{"primary"} },
			cause: ErrNoOutput,
		},
		{
			name: "output open fails",
			cfg:  Config{Topology: testutil.DefaultSpec()},
			setup: func(s *hal.SimClient) {
				s.ErrorOnMethod["OpenOutput"] = testutil.ErrHardwareFailure
			},
			cause: ErrNoOutput,
		},
		{
			name: "output patch fails",
			cfg:  Config{Topology: testutil.PrimaryOnlySpec()},
			setup: func(s *hal.SimClient) {
				s.ErrorOnMethod["CreateAudioPatch"] = testutil.ErrHardwareFailure
			},
			cause: ErrNoOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := hal.NewSimClient()
			if tt.setup != nil {
				tt.setup(sim)
			}
			m := NewManager(sim, nil, nil, logging.NewNopLogger())

			err := m.Initialize(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeNoInit))
			if tt.cause != nil {
				assert.True(t, stderrors.Is(err, tt.cause))
			}
			assert.True(t, errors.IsType(m.InitCheck(), errors.ErrTypeNoInit))
			assert.Equal(t, 0, sim.OpenOutputs())
			assert.Equal(t, 0, sim.ActivePatchCount())
		})
	}
}

func TestManager_NotInitialized(t *testing.T) {
	m := NewManager(hal.NewSimClient(), nil, nil, logging.NewNopLogger())
	handle := audio.PatchHandleNone

	calls := map[string]func() error{
		"GetOutputForAttr": func() error {
			_, err := m.GetOutputForAttr(outputRequest(testutil.PCMStereo48k, audio.OutputFlagNone))
			return err
		},
		"GetInputForAttr": func() error {
			_, err := m.GetInputForAttr(InputRequest{Config: testutil.PCMInStereo48k})
			return err
		},
		"StartOutput":   func() error { return m.StartOutput(1) },
		"StopOutput":    func() error { return m.StopOutput(1) },
		"ReleaseOutput": func() error { return m.ReleaseOutput(1) },
		"StartInput":    func() error { return m.StartInput(1) },
		"StopInput":     func() error { return m.StopInput(1) },
		"ReleaseInput":  func() error { return m.ReleaseInput(1) },
		"CreateAudioPatch": func() error {
			return m.CreateAudioPatch(&audio.Patch{}, &handle, 0)
		},
		"ReleaseAudioPatch": func() error { return m.ReleaseAudioPatch(1, 0) },
		"ListAudioPatches": func() error {
			_, _, err := m.ListAudioPatches()
			return err
		},
		"RegisterPolicyMixes": func() error {
			_, err := m.RegisterPolicyMixes(nil)
			return err
		},
		"UnregisterPolicyMixes": func() error { return m.UnregisterPolicyMixes(nil) },
		"PolicyMixes": func() error {
			_, err := m.PolicyMixes()
			return err
		},
		"SetForceUse": func() error { return m.SetForceUse(routing.ForMedia, routing.ForceSpeaker) },
		"GetForceUse": func() error {
			_, err := m.GetForceUse(routing.ForMedia)
			return err
		},
		"SetDeviceConnectionState": func() error {
			return m.SetDeviceConnectionState(audio.DeviceOutWiredHeadset, "", "", true)
		},
		"GetDeviceConnectionState": func() error {
			_, err := m.GetDeviceConnectionState(audio.DeviceOutSpeaker, "")
			return err
		},
		"ListAudioPorts": func() error {
			_, _, err := m.ListAudioPorts(audio.PortRoleNone, audio.PortTypeNone)
			return err
		},
		"GetAudioPort": func() error {
			_, err := m.GetAudioPort(1)
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			assert.True(t, errors.IsType(err, errors.ErrTypeNoInit))
			assert.True(t, stderrors.Is(err, ErrNotInitialized))
		})
	}
}

func TestManager_CreateAudioPatchFailure(t *testing.T) {
	m, sim := newTestManager(t, testutil.DefaultSpec())
	handle := audio.PatchHandleNone
	before := sim.ActivePatchCount()

	tests := []struct {
		name    string
		patch   *audio.Patch
		handle  *audio.PatchHandle
		errType errors.ErrorType
	}{
		{"nil patch", nil, &handle, errors.ErrTypeInvalidArgument},
		{"nil handle", &audio.Patch{}, nil, errors.ErrTypeInvalidArgument},
		{"empty patch", &audio.Patch{}, &handle, errors.ErrTypeInvalidArgument},
		{
			"too many sources",
			testutil.NewPatchBuilder().
				WithRawSources(audio.MaxPatchPorts+1, audio.PortRoleSource).
				WithRawSinks(1, audio.PortRoleSink).Patch(),
			&handle, errors.ErrTypeInvalidArgument,
		},
		{
			"too many sinks",
			testutil.NewPatchBuilder().
				WithRawSources(1, audio.PortRoleSource).
				WithRawSinks(audio.MaxPatchPorts+1, audio.PortRoleSink).Patch(),
			&handle, errors.ErrTypeInvalidArgument,
		},
		{
			"roles unset",
			testutil.NewPatchBuilder().
				WithRawSources(2, audio.PortRoleNone).
				WithRawSinks(1, audio.PortRoleNone).Patch(),
			&handle, errors.ErrTypeInvalidOperation,
		},
		{
			"source with sink role",
			testutil.NewPatchBuilder().
				WithRawSources(1, audio.PortRoleSink).
				WithRawSinks(1, audio.PortRoleSink).Patch(),
			&handle, errors.ErrTypeInvalidOperation,
		},
		{
			"sink with source role",
			testutil.NewPatchBuilder().
				WithRawSources(1, audio.PortRoleSource).
				WithRawSinks(1, audio.PortRoleSource).Patch(),
			&handle, errors.ErrTypeInvalidOperation,
		},
		{
			"unknown ports",
			testutil.NewPatchBuilder().
				WithRawSources(1, audio.PortRoleSource).
				WithRawSinks(1, audio.PortRoleSink).Patch(),
			&handle, errors.ErrTypeInvalidOperation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.CreateAudioPatch(tt.patch, tt.handle, 0)
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
		})
	}

	assert.Equal(t, audio.PatchHandleNone, handle)
	assert.Equal(t, before, sim.ActivePatchCount())
}

func TestManager_CreateAudioPatchFromMix(t *testing.T) {
	m, sim := newTestManager(t, testutil.DefaultSpec())
	before := sim.ActivePatchCount()

	mixes, _, err := m.ListAudioPorts(audio.PortRoleSource, audio.PortTypeMix)
	require.NoError(t, err)
	require.NotEmpty(t, mixes)
	speaker := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutSpeaker, "")

	const uid audio.UID = 42
	p := testutil.NewPatchBuilder().AddSource(mixes[0]).AddSink(speaker).Patch()
	handle := audio.PatchHandleNone
	require.NoError(t, m.CreateAudioPatch(p, &handle, uid))
	assert.NotEqual(t, audio.PatchHandleNone, handle)
	assert.Equal(t, before+1, sim.ActivePatchCount())

	records, _, err := m.ListAudioPatches()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uid, records[0].UID)

	err = m.ReleaseAudioPatch(handle, 7)
	assert.True(t, stderrors.Is(err, patch.ErrNotOwner))

	first := handle
	require.NoError(t, m.ReleaseAudioPatch(handle, uid))
	assert.Equal(t, before, sim.ActivePatchCount())

	err = m.ReleaseAudioPatch(handle, uid)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidOperation))
	assert.True(t, stderrors.Is(err, patch.ErrPatchReleased))

	handle = audio.PatchHandleNone
	require.NoError(t, m.CreateAudioPatch(p, &handle, uid))
	assert.NotEqual(t, first, handle)
}

func TestManager_Ports(t *testing.T) {
	m, _ := newTestManager(t, testutil.DefaultSpec())

	all, gen, err := m.ListAudioPorts(audio.PortRoleNone, audio.PortTypeNone)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	speaker := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutSpeaker, "")
	info, err := m.GetAudioPort(speaker.ID)
	require.NoError(t, err)
	assert.Equal(t, "Speaker", info.Name)

	_, err = m.GetAudioPort(999)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.True(t, stderrors.Is(err, ErrPortNotFound))

	require.NoError(t, m.SetDeviceConnectionState(audio.DeviceOutSpeaker, "", "", false))
	_, after, err := m.ListAudioPorts(audio.PortRoleNone, audio.PortTypeNone)
	require.NoError(t, err)
	assert.NotEqual(t, gen, after)
}

func TestManager_ForceUse(t *testing.T) {
	m, _ := newTestManager(t, testutil.DefaultSpec())

	require.NoError(t, m.SetForceUse(routing.ForMedia, routing.ForceSpeaker))
	config, err := m.GetForceUse(routing.ForMedia)
	require.NoError(t, err)
	assert.Equal(t, routing.ForceSpeaker, config)

	err = m.SetForceUse(routing.ForRecord, routing.ForceSpeaker)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidArgument))
	assert.True(t, stderrors.Is(err, routing.ErrInvalidForcedConfig))
}

func TestManager_Msd(t *testing.T) {
	ac3 := outputRequest(testutil.AC3Surround48k, audio.OutputFlagDirect)
	dts := outputRequest(testutil.DTSSurround48k, audio.OutputFlagDirect)
	pcm := outputRequest(testutil.PCMStereo48k, audio.OutputFlagNone)

	setup := func(t *testing.T) (*Manager, *hal.SimClient, audio.PortInfo) {
		m, sim := newTestManager(t, testutil.MSDSpec())
		require.Equal(t, 0, sim.ActivePatchCount())
		return m, sim, findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutBus, "")
	}

	t.Run("patch creation on set force use", func(t *testing.T) {
		m, sim, _ := setup(t)
		require.NoError(t, m.SetForceUse(routing.ForEncodedSurround, routing.ForceEncodedSurroundAlways))
		assert.Equal(t, 1, sim.ActivePatchCount())
	})

	t.Run("encoded routes to msd", func(t *testing.T) {
		m, sim, msd := setup(t)
		res, err := m.GetOutputForAttr(ac3)
		require.NoError(t, err)
		assert.Equal(t, msd.ID, res.Device)
		assert.Equal(t, 1, sim.ActivePatchCount())
	})

	t.Run("pcm routes to msd", func(t *testing.T) {
		m, sim, msd := setup(t)
		res, err := m.GetOutputForAttr(pcm)
		require.NoError(t, err)
		assert.Equal(t, msd.ID, res.Device)
		assert.Equal(t, 1, sim.ActivePatchCount())
	})

	t.Run("encoded plus pcm routes to msd", func(t *testing.T) {
		m, sim, msd := setup(t)
		res, err := m.GetOutputForAttr(ac3)
		require.NoError(t, err)
		assert.Equal(t, msd.ID, res.Device)
		assert.Equal(t, 1, sim.ActivePatchCount())

		res, err = m.GetOutputForAttr(pcm)
		require.NoError(t, err)
		assert.Equal(t, msd.ID, res.Device)
		assert.Equal(t, 1, sim.ActivePatchCount())
	})

	t.Run("unsupported format bypasses msd", func(t *testing.T) {
		m, sim, msd := setup(t)
		res, err := m.GetOutputForAttr(dts)
		require.NoError(t, err)
		assert.NotEqual(t, msd.ID, res.Device)
		assert.Equal(t, 0, sim.ActivePatchCount())
	})

	t.Run("format switching", func(t *testing.T) {
		m, sim, msd := setup(t)
		speaker := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutSpeaker, "")

		res, err := m.GetOutputForAttr(ac3)
		require.NoError(t, err)
		assert.Equal(t, msd.ID, res.Device)
		assert.Equal(t, 1, sim.ActivePatchCount())
		require.NoError(t, m.ReleaseOutput(res.Stream))
		assert.Equal(t, 1, sim.ActivePatchCount())

		res, err = m.GetOutputForAttr(dts)
		require.NoError(t, err)
		assert.Equal(t, speaker.ID, res.Device)
		assert.Equal(t, 0, sim.ActivePatchCount())
		require.NoError(t, m.ReleaseOutput(res.Stream))
		assert.Equal(t, 1, sim.ActivePatchCount())

		res, err = m.GetOutputForAttr(ac3)
		require.NoError(t, err)
		assert.Equal(t, msd.ID, res.Device)
		assert.Equal(t, 1, sim.ActivePatchCount())
	})

	t.Run("encoded surround never keeps encoded off msd", func(t *testing.T) {
		m, sim, msd := setup(t)
		require.NoError(t, m.SetForceUse(routing.ForEncodedSurround, routing.ForceEncodedSurroundNever))
		assert.Equal(t, 1, sim.ActivePatchCount())

		_, err := m.GetOutputForAttr(ac3)
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
		assert.True(t, stderrors.Is(err, ErrNoProfile))

		res, err := m.GetOutputForAttr(pcm)
		require.NoError(t, err)
		assert.Equal(t, msd.ID, res.Device)
	})

	t.Run("refused msd module", func(t *testing.T) {
		sim := hal.NewSimClient()
		sim.RejectModules = []string{MSDModuleName}
		m := NewManager(sim, nil, nil, logging.NewNopLogger())
		require.NoError(t, m.Initialize(Config{Topology: testutil.MSDSpec()}))
		speaker := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutSpeaker, "")

		res, err := m.GetOutputForAttr(pcm)
		require.NoError(t, err)
		assert.Equal(t, speaker.ID, res.Device)
		assert.Equal(t, 0, sim.ActivePatchCount())
	})

	t.Run("decoder bus disconnected", func(t *testing.T) {
		m, sim, _ := setup(t)
		require.NoError(t, m.SetForceUse(routing.ForEncodedSurround, routing.ForceEncodedSurroundAlways))
		require.Equal(t, 1, sim.ActivePatchCount())

		require.NoError(t, m.SetDeviceConnectionState(audio.DeviceInBus, "", "", false))
		assert.Equal(t, 0, sim.ActivePatchCount())

		speaker := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutSpeaker, "")
		res, err := m.GetOutputForAttr(pcm)
		require.NoError(t, err)
		assert.Equal(t, speaker.ID, res.Device)
	})
}

func TestManager_RegisterPolicyMixes(t *testing.T) {
	tests := []struct {
		name  string
		spec  topology.Spec
		mix   policymix.Mix
		cause error
	}{
		{
			name:  "recorders loop back and render",
			spec:  testutil.DynamicPolicySpec(),
			mix:   recordersMix(policymix.RouteLoopBackAndRender, audio.DeviceOutRemoteSubmix, ""),
			cause: policymix.ErrLoopBackAndRender,
		},
		{
			name:  "capture device already connected",
			spec:  testutil.DynamicPolicySpec(),
			mix:   playersMix(policymix.RouteLoopBack, audio.DeviceOutRemoteSubmix, ""),
			cause: policymix.ErrDeviceInUse,
		},
		{
			name:  "no remote submix module",
			spec:  testutil.PrimaryOnlySpec(),
			mix:   playersMix(policymix.RouteLoopBack, audio.DeviceOutRemoteSubmix, ""),
			cause: policymix.ErrModuleNotFound,
		},
		{
			name:  "render device not declared",
			spec:  testutil.DynamicPolicySpec(),
			mix:   playersMix(policymix.RouteRender, audio.DeviceOutEarpiece, ""),
			cause: policymix.ErrDeviceNotFound,
		},
		{
			name:  "render device not connected",
			spec:  testutil.DynamicPolicySpec(),
			mix:   playersMix(policymix.RouteRender, audio.DeviceOutRemoteSubmix, ""),
			cause: policymix.ErrDeviceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, tt.spec)
			_, err := m.RegisterPolicyMixes([]policymix.Mix{tt.mix})
			assert.True(t, errors.IsType(err, errors.ErrTypeInvalidOperation), "got %v", err)
			assert.True(t, stderrors.Is(err, tt.cause))

			entries, err := m.PolicyMixes()
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}

	valid := []struct {
		name string
		mix  policymix.Mix
	}{
		{"players loop back", playersMix(policymix.RouteLoopBack, audio.DeviceOutRemoteSubmix, testutil.MixAddress)},
		{"players render to speaker", playersMix(policymix.RouteRender, audio.DeviceOutSpeaker, "")},
	}

	for _, tt := range valid {
		t.Run(tt.name+" twice", func(t *testing.T) {
			m, _ := newTestManager(t, testutil.DynamicPolicySpec())
			mixes := []policymix.Mix{tt.mix}

			entries, err := m.RegisterPolicyMixes(mixes)
			require.NoError(t, err)
			require.Len(t, entries, 1)

			_, err = m.RegisterPolicyMixes(mixes)
			assert.True(t, errors.IsType(err, errors.ErrTypeInvalidOperation))
			assert.True(t, stderrors.Is(err, policymix.ErrDuplicateMix))
		})
	}
}

func TestManager_UnregisterPolicyMixes(t *testing.T) {
	m, _ := newTestManager(t, testutil.DynamicPolicySpec())
	mixes := []policymix.Mix{playersMix(policymix.RouteLoopBack, audio.DeviceOutRemoteSubmix, testutil.MixAddress)}

	_, err := m.RegisterPolicyMixes(mixes)
	require.NoError(t, err)
	connected, err := m.GetDeviceConnectionState(audio.DeviceInRemoteSubmix, testutil.MixAddress)
	require.NoError(t, err)
	assert.True(t, connected)

	require.NoError(t, m.UnregisterPolicyMixes(mixes))
	connected, err = m.GetDeviceConnectionState(audio.DeviceInRemoteSubmix, testutil.MixAddress)
	require.NoError(t, err)
	assert.False(t, connected)

	err = m.UnregisterPolicyMixes(mixes)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidOperation))
	assert.True(t, stderrors.Is(err, policymix.ErrMixNotRegistered))

	primaryOnly, _ := newTestManager(t, testutil.PrimaryOnlySpec())
	err = primaryOnly.UnregisterPolicyMixes(mixes)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidOperation))
	assert.True(t, stderrors.Is(err, policymix.ErrModuleNotFound))
}

// newPlaybackReRouting registers a players loop-back mix for media and alarm
// and starts the capture reading it back
func newPlaybackReRouting(t *testing.T) (*Manager, audio.PortInfo) {
	t.Helper()
	m, _ := newTestManager(t, testutil.DynamicPolicySpec())

	mix := playersMix(policymix.RouteLoopBack, audio.DeviceOutRemoteSubmix, testutil.MixAddress,
		policymix.Criterion{Rule: policymix.RuleMatchUsage, Usage: audio.UsageMedia},
		policymix.Criterion{Rule: policymix.RuleMatchUsage, Usage: audio.UsageAlarm},
	)
	_, err := m.RegisterPolicyMixes([]policymix.Mix{mix})
	require.NoError(t, err)

	extraction := findDevicePort(t, m, audio.PortRoleSource, audio.DeviceInRemoteSubmix, testutil.MixAddress)
	res, err := m.GetInputForAttr(InputRequest{
		Attributes: audio.Attributes{Source: audio.SourceRemoteSubmix, Tags: "addr=" + testutil.MixAddress},
		Config:     testutil.PCMInStereo48k,
	})
	require.NoError(t, err)
	require.NoError(t, m.StartInput(res.Stream))
	require.Equal(t, extraction.ID, res.Device)

	return m, findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutRemoteSubmix, testutil.MixAddress)
}

func TestManager_PlaybackReRouting(t *testing.T) {
	addressed := "addr=" + testutil.MixAddress

	tests := []struct {
		name     string
		usage    audio.Usage
		tags     string
		rerouted bool
	}{
		{"media", audio.UsageMedia, "", true},
		{"alarm", audio.UsageAlarm, "", true},
		{"addressed media", audio.UsageMedia, addressed, true},
		{"addressed voice communication", audio.UsageVoiceCommunication, addressed, true},
		{"addressed signalling", audio.UsageVoiceCommunicationSignalling, addressed, true},
		{"addressed notification", audio.UsageNotification, addressed, true},
		{"addressed ringtone", audio.UsageNotificationTelephonyRingtone, addressed, true},
		{"addressed accessibility", audio.UsageAssistanceAccessibility, addressed, true},
		{"addressed navigation", audio.UsageAssistanceNavigationGuidance, addressed, true},
		{"addressed game", audio.UsageGame, addressed, true},
		{"addressed virtual source", audio.UsageVirtualSource, addressed, true},
		{"addressed assistant", audio.UsageAssistant, addressed, true},
		{"voice communication", audio.UsageVoiceCommunication, "", false},
		{"signalling", audio.UsageVoiceCommunicationSignalling, "", false},
		{"notification", audio.UsageNotification, "", false},
		{"ringtone", audio.UsageNotificationTelephonyRingtone, "", false},
		{"notification event", audio.UsageNotificationEvent, "", false},
		{"accessibility", audio.UsageAssistanceAccessibility, "", false},
		{"navigation", audio.UsageAssistanceNavigationGuidance, "", false},
		{"sonification", audio.UsageAssistanceSonification, "", false},
		{"game", audio.UsageGame, "", false},
		{"assistant", audio.UsageAssistant, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, injection := newPlaybackReRouting(t)

			res, err := m.GetOutputForAttr(OutputRequest{
				Attributes: audio.Attributes{ContentType: audio.ContentTypeMusic, Usage: tt.usage, Tags: tt.tags},
				Config:     testutil.PCMStereo48k,
			})
			require.NoError(t, err)
			if tt.rerouted {
				assert.Equal(t, injection.ID, res.Device)
				assert.Equal(t, injection.ID, res.Routed)
			} else {
				assert.NotEqual(t, injection.ID, res.Device)
			}
		})
	}
}

func TestManager_PlaybackSkipsMixWithoutDevice(t *testing.T) {
	media := policymix.Criterion{Rule: policymix.RuleMatchUsage, Usage: audio.UsageMedia}

	tests := []struct {
		name string
		tags string
	}{
		{"usage", ""},
		{"address of unusable mix", "addr=a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, testutil.DynamicPolicySpec())
			require.NoError(t, m.SetDeviceConnectionState(audio.DeviceOutRemoteSubmix, "b", "", true))
			target := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutRemoteSubmix, "b")

			entries, err := m.RegisterPolicyMixes([]policymix.Mix{
				playersMix(policymix.RouteLoopBack, audio.DeviceOutRemoteSubmix, "a", media),
				playersMix(policymix.RouteRender, audio.DeviceOutRemoteSubmix, "b", media),
			})
			require.NoError(t, err)
			require.Len(t, entries, 2)

			res, err := m.GetOutputForAttr(OutputRequest{
				Attributes: audio.Attributes{Usage: audio.UsageMedia, Tags: tt.tags},
				Config:     testutil.PCMStereo48k,
			})
			require.NoError(t, err)
			assert.Equal(t, target.ID, res.Device)
		})
	}
}

func TestManager_PlaybackReRoutingStopDisconnects(t *testing.T) {
	m, _ := newTestManager(t, testutil.DynamicPolicySpec())
	mix := playersMix(policymix.RouteLoopBack, audio.DeviceOutRemoteSubmix, testutil.MixAddress)
	_, err := m.RegisterPolicyMixes([]policymix.Mix{mix})
	require.NoError(t, err)

	res, err := m.GetInputForAttr(InputRequest{
		Attributes: audio.Attributes{Source: audio.SourceRemoteSubmix, Tags: "addr=" + testutil.MixAddress},
		Config:     testutil.PCMInStereo48k,
	})
	require.NoError(t, err)
	require.NoError(t, m.StartInput(res.Stream))

	connected, err := m.GetDeviceConnectionState(audio.DeviceOutRemoteSubmix, testutil.MixAddress)
	require.NoError(t, err)
	assert.True(t, connected)

	require.NoError(t, m.StopInput(res.Stream))
	connected, err = m.GetDeviceConnectionState(audio.DeviceOutRemoteSubmix, testutil.MixAddress)
	require.NoError(t, err)
	assert.False(t, connected)
}

// newRecordInjection registers a recorders loop-back mix for camcorder, mic and
// voice communication and starts the playback injecting into it
func newRecordInjection(t *testing.T) (*Manager, audio.PortInfo) {
	t.Helper()
	m, sim := newTestManager(t, testutil.DynamicPolicySpec())

	mix := recordersMix(policymix.RouteLoopBack, audio.DeviceInRemoteSubmix, testutil.MixAddress,
		policymix.Criterion{Rule: policymix.RuleMatchCapturePreset, Source: audio.SourceCamcorder},
		policymix.Criterion{Rule: policymix.RuleMatchCapturePreset, Source: audio.SourceMic},
		policymix.Criterion{Rule: policymix.RuleMatchCapturePreset, Source: audio.SourceVoiceCommunication},
	)
	_, err := m.RegisterPolicyMixes([]policymix.Mix{mix})
	require.NoError(t, err)

	injection := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutRemoteSubmix, testutil.MixAddress)
	res, err := m.GetOutputForAttr(OutputRequest{
		Attributes: audio.Attributes{Usage: audio.UsageVirtualSource, Tags: "addr=" + testutil.MixAddress},
		Config:     testutil.PCMStereo48k,
	})
	require.NoError(t, err)
	require.NoError(t, m.StartOutput(res.Stream))

	last, ok := sim.LastAddedPatch()
	require.True(t, ok)
	require.Equal(t, injection.ID, last.RoutedPortID())

	return m, findDevicePort(t, m, audio.PortRoleSource, audio.DeviceInRemoteSubmix, testutil.MixAddress)
}

func TestManager_ReleaseActiveInjection(t *testing.T) {
	m, _ := newTestManager(t, testutil.DynamicPolicySpec())
	mix := recordersMix(policymix.RouteLoopBack, audio.DeviceInRemoteSubmix, testutil.MixAddress,
		policymix.Criterion{Rule: policymix.RuleMatchCapturePreset, Source: audio.SourceMic},
	)
	_, err := m.RegisterPolicyMixes([]policymix.Mix{mix})
	require.NoError(t, err)

	res, err := m.GetOutputForAttr(OutputRequest{
		Attributes: audio.Attributes{Usage: audio.UsageVirtualSource, Tags: "addr=" + testutil.MixAddress},
		Config:     testutil.PCMStereo48k,
	})
	require.NoError(t, err)
	require.NoError(t, m.StartOutput(res.Stream))

	connected, err := m.GetDeviceConnectionState(audio.DeviceInRemoteSubmix, testutil.MixAddress)
	require.NoError(t, err)
	require.True(t, connected)

	require.NoError(t, m.ReleaseOutput(res.Stream))
	connected, err = m.GetDeviceConnectionState(audio.DeviceInRemoteSubmix, testutil.MixAddress)
	require.NoError(t, err)
	assert.False(t, connected)

	err = m.ReleaseOutput(res.Stream)
	assert.True(t, stderrors.Is(err, ErrStreamNotFound))
}

func TestManager_RecordInjection(t *testing.T) {
	addressed := "addr=" + testutil.MixAddress

	tests := []struct {
		name     string
		source   audio.Source
		tags     string
		injected bool
	}{
		{"camcorder", audio.SourceCamcorder, "", true},
		{"addressed camcorder", audio.SourceCamcorder, addressed, true},
		{"addressed mic", audio.SourceMic, addressed, true},
		{"mic", audio.SourceMic, "", true},
		{"voice communication", audio.SourceVoiceCommunication, "", true},
		{"addressed voice communication", audio.SourceVoiceCommunication, addressed, true},
		{"voice recognition", audio.SourceVoiceRecognition, "", false},
		{"hotword", audio.SourceHotword, "", false},
		{"addressed voice recognition", audio.SourceVoiceRecognition, addressed, false},
		{"addressed hotword", audio.SourceHotword, addressed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, extraction := newRecordInjection(t)

			res, err := m.GetInputForAttr(InputRequest{
				Attributes: audio.Attributes{Source: tt.source, Tags: tt.tags},
				Config:     testutil.PCMInStereo48k,
			})
			require.NoError(t, err)
			if tt.injected {
				assert.Equal(t, extraction.ID, res.Device)
			} else {
				assert.NotEqual(t, extraction.ID, res.Device)
			}
		})
	}
}

func TestManager_OutputStreamLifecycle(t *testing.T) {
	m, sim := newTestManager(t, testutil.PrimaryOnlySpec())
	speaker := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutSpeaker, "")
	outputs, patches := sim.OpenOutputs(), sim.ActivePatchCount()

	res, err := m.GetOutputForAttr(outputRequest(testutil.PCMStereo48k, audio.OutputFlagNone))
	require.NoError(t, err)
	assert.Equal(t, speaker.ID, res.Device)
	assert.Equal(t, speaker.ID, res.Routed)
	assert.NotEqual(t, audio.PortHandleNone, res.Stream)
	assert.Equal(t, outputs, sim.OpenOutputs())

	err = m.StopOutput(res.Stream)
	assert.True(t, stderrors.Is(err, ErrStreamNotActive))

	require.NoError(t, m.StartOutput(res.Stream))
	err = m.StartOutput(res.Stream)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidOperation))
	assert.True(t, stderrors.Is(err, ErrStreamActive))

	require.NoError(t, m.StopOutput(res.Stream))
	require.NoError(t, m.ReleaseOutput(res.Stream))
	assert.Equal(t, outputs, sim.OpenOutputs())
	assert.Equal(t, patches, sim.ActivePatchCount())

	err = m.ReleaseOutput(res.Stream)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.True(t, stderrors.Is(err, ErrStreamNotFound))

	_, err = m.GetOutputForAttr(outputRequest(audio.Config{}, audio.OutputFlagNone))
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidArgument))
	assert.True(t, stderrors.Is(err, ErrInvalidConfig))
}

func TestManager_DirectOutputClosesWithLastStream(t *testing.T) {
	sim := hal.NewSimClient()
	sim.RejectModules = []string{MSDModuleName}
	m := NewManager(sim, nil, nil, logging.NewNopLogger())
	require.NoError(t, m.Initialize(Config{Topology: testutil.MSDSpec()}))
	outputs := sim.OpenOutputs()

	first, err := m.GetOutputForAttr(outputRequest(testutil.DTSSurround48k, audio.OutputFlagDirect))
	require.NoError(t, err)
	second, err := m.GetOutputForAttr(outputRequest(testutil.DTSSurround48k, audio.OutputFlagDirect))
	require.NoError(t, err)
	assert.NotEqual(t, first.IO, second.IO)
	assert.Equal(t, outputs+2, sim.OpenOutputs())

	require.NoError(t, m.ReleaseOutput(first.Stream))
	require.NoError(t, m.ReleaseOutput(second.Stream))
	assert.Equal(t, outputs, sim.OpenOutputs())
}

func TestManager_InputStreamLifecycle(t *testing.T) {
	m, sim := newTestManager(t, testutil.PrimaryOnlySpec())
	mic := findDevicePort(t, m, audio.PortRoleSource, audio.DeviceInBuiltinMic, "")
	patches := sim.ActivePatchCount()

	res, err := m.GetInputForAttr(InputRequest{
		Attributes: audio.Attributes{Source: audio.SourceMic},
		Config:     testutil.PCMInStereo48k,
	})
	require.NoError(t, err)
	assert.Equal(t, mic.ID, res.Device)
	assert.Equal(t, 1, sim.OpenInputs())

	require.NoError(t, m.StartInput(res.Stream))
	assert.Equal(t, patches+1, sim.ActivePatchCount())
	last, ok := sim.LastAddedPatch()
	require.True(t, ok)
	assert.Equal(t, mic.ID, last.RoutedPortID())

	err = m.StartInput(res.Stream)
	assert.True(t, stderrors.Is(err, ErrStreamActive))

	require.NoError(t, m.StopInput(res.Stream))
	assert.Equal(t, patches, sim.ActivePatchCount())

	require.NoError(t, m.StartInput(res.Stream))
	require.NoError(t, m.ReleaseInput(res.Stream))
	assert.Equal(t, patches, sim.ActivePatchCount())
	assert.Equal(t, 0, sim.OpenInputs())

	err = m.StopInput(res.Stream)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestManager_DeviceConnection(t *testing.T) {
	m, sim := newTestManager(t, testutil.DynamicPolicySpec())
	outputs, patches := sim.OpenOutputs(), sim.ActivePatchCount()

	require.NoError(t, m.SetDeviceConnectionState(audio.DeviceOutRemoteSubmix, "cast", "Cast", true))
	assert.Equal(t, outputs+1, sim.OpenOutputs())
	assert.Equal(t, patches+1, sim.ActivePatchCount())

	dev := findDevicePort(t, m, audio.PortRoleSink, audio.DeviceOutRemoteSubmix, "cast")
	assert.Equal(t, "Cast", dev.Name)

	err := m.SetDeviceConnectionState(audio.DeviceOutRemoteSubmix, "cast", "", true)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidOperation))
	assert.True(t, stderrors.Is(err, topology.ErrAlreadyConnected))

	res, err := m.GetOutputForAttr(OutputRequest{
		Attributes: audio.Attributes{Usage: audio.UsageVirtualSource},
		Config:     testutil.PCMStereo48k,
	})
	require.NoError(t, err)
	assert.Equal(t, dev.ID, res.Device)

	require.NoError(t, m.SetDeviceConnectionState(audio.DeviceOutRemoteSubmix, "cast", "", false))
	assert.Equal(t, outputs, sim.OpenOutputs())
	assert.Equal(t, patches, sim.ActivePatchCount())

	err = m.StartOutput(res.Stream)
	assert.True(t, stderrors.Is(err, ErrStreamNotFound))

	err = m.SetDeviceConnectionState(audio.DeviceOutRemoteSubmix, "cast", "", false)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	err = m.SetDeviceConnectionState(audio.DeviceOutHDMI, "", "", true)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.True(t, stderrors.Is(err, topology.ErrUnknownDeviceType))
}

func TestManager_HardwareFailures(t *testing.T) {
	t.Run("direct output open", func(t *testing.T) {
		m, sim := newTestManager(t, testutil.MSDSpec())
		outputs := sim.OpenOutputs()
		sim.ErrorOnMethod["OpenOutput"] = testutil.ErrHardwareFailure

		_, err := m.GetOutputForAttr(outputRequest(testutil.AC3Surround48k, audio.OutputFlagDirect))
		assert.True(t, errors.IsType(err, errors.ErrTypeHardware))
		assert.True(t, stderrors.Is(err, testutil.ErrHardwareFailure))
		assert.Equal(t, outputs, sim.OpenOutputs())
		assert.Equal(t, 0, sim.ActivePatchCount())

		ports, _, err := m.ListAudioPorts(audio.PortRoleSource, audio.PortTypeMix)
		require.NoError(t, err)
		assert.Len(t, ports, outputs)
	})

	t.Run("input open", func(t *testing.T) {
		m, sim := newTestManager(t, testutil.DefaultSpec())
		sim.ErrorOnMethod["OpenInput"] = testutil.ErrHardwareFailure

		_, err := m.GetInputForAttr(InputRequest{
			Attributes: audio.Attributes{Source: audio.SourceMic},
			Config:     testutil.PCMInStereo48k,
		})
		assert.True(t, errors.IsType(err, errors.ErrTypeHardware))
		assert.Equal(t, 0, sim.OpenInputs())
	})

	t.Run("input patch", func(t *testing.T) {
		m, sim := newTestManager(t, testutil.PrimaryOnlySpec())
		patches := sim.ActivePatchCount()

		res, err := m.GetInputForAttr(InputRequest{
			Attributes: audio.Attributes{Source: audio.SourceMic},
			Config:     testutil.PCMInStereo48k,
		})
		require.NoError(t, err)

		sim.ErrorOnMethod["CreateAudioPatch"] = testutil.ErrHardwareFailure
		err = m.StartInput(res.Stream)
		assert.True(t, errors.IsType(err, errors.ErrTypeHardware))
		assert.Equal(t, patches, sim.ActivePatchCount())

		err = m.StopInput(res.Stream)
		assert.True(t, stderrors.Is(err, ErrStreamNotActive))
	})
}

func TestManager_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(hal.NewSimClient(), routing.NewFactoryRegistry(), metrics.New(reg), logging.NewNopLogger())
	require.NoError(t, m.Initialize(Config{Topology: testutil.DefaultSpec(), Engine: routing.DefaultEngineName}))

	_, err := m.GetOutputForAttr(outputRequest(testutil.PCMStereo48k, audio.OutputFlagNone))
	require.NoError(t, err)
	_, err = m.GetAudioPort(999)
	require.Error(t, err)

	count, err := promtest.GatherAndCount(reg, "audiopolicy_routing_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = promtest.GatherAndCount(reg, "audiopolicy_rejected_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = promtest.GatherAndCount(reg, "audiopolicy_topology_generation")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
