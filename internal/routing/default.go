package routing

import (
	"fmt"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/logging"
	"audio-policy/internal/topology"

	"github.com/samber/lo"
)

// DefaultEngineName is the name the built-in engine is registered under
const DefaultEngineName = "default"

type strategy int

const (
	strategyMedia strategy = iota
	strategyPhone
	strategySonification
	strategyRerouting
)

var strategyNames = map[strategy]string{
	strategyMedia:        "media",
	strategyPhone:        "phone",
	strategySonification: "sonification",
	strategyRerouting:    "rerouting",
}

func (s strategy) String() string { return strategyNames[s] }

func strategyFor(usage audio.Usage) strategy {
	switch usage {
	case audio.UsageVoiceCommunication, audio.UsageVoiceCommunicationSignalling:
		return strategyPhone
	case audio.UsageAlarm,
		audio.UsageNotification,
		audio.UsageNotificationTelephonyRingtone,
		audio.UsageNotificationCommunicationRequest,
		audio.UsageNotificationCommunicationInstant,
		audio.UsageNotificationCommunicationDelayed,
		audio.UsageNotificationEvent,
		audio.UsageAssistanceSonification:
		return strategySonification
	case audio.UsageVirtualSource:
		return strategyRerouting
	default:
		return strategyMedia
	}
}

var mediaDevices = []audio.DeviceType{
	audio.DeviceOutBluetoothA2DP,
	audio.DeviceOutWiredHeadphone,
	audio.DeviceOutWiredHeadset,
	audio.DeviceOutUSBDevice,
	audio.DeviceOutHDMI,
	audio.DeviceOutSpeaker,
}

var phoneDevices = []audio.DeviceType{
	audio.DeviceOutWiredHeadphone,
	audio.DeviceOutWiredHeadset,
	audio.DeviceOutUSBDevice,
	audio.DeviceOutEarpiece,
	audio.DeviceOutSpeaker,
}

var captureDevices = []audio.DeviceType{
	audio.DeviceInWiredHeadset,
	audio.DeviceInUSBDevice,
	audio.DeviceInBuiltinMic,
}

// DefaultEngine is the handset routing strategy
type DefaultEngine struct {
	forced map[ForceUse]ForcedConfig
	logger logging.Logger
}

// NewDefaultEngine creates a DefaultEngine with nothing forced
func NewDefaultEngine(logger logging.Logger) *DefaultEngine {
	return &DefaultEngine{
		forced: make(map[ForceUse]ForcedConfig),
		logger: logger,
	}
}

// Name implements Engine
func (e *DefaultEngine) Name() string { return DefaultEngineName }

// SetForceUse implements Engine
func (e *DefaultEngine) SetForceUse(usage ForceUse, config ForcedConfig) error {
	if err := validateForceUse(usage, config); err != nil {
		return err
	}
	e.forced[usage] = config
	e.logger.Debug("Force use set",
		logging.String("usage", usage.String()),
		logging.String("config", config.String()),
	)
	return nil
}

// ForceUse implements Engine
func (e *DefaultEngine) ForceUse(usage ForceUse) ForcedConfig {
	return e.forced[usage]
}

// OutputDevice implements Engine
func (e *DefaultEngine) OutputDevice(attr audio.Attributes, devices Devices) (*topology.DevicePort, error) {
	s := strategyFor(attr.Usage)
	connected := devices.ConnectedDevices(audio.PortRoleSink)

	if dev := pick(connected, "", e.outputPreference(s)...); dev != nil {
		return dev, nil
	}
	if dev := devices.DefaultOutput(); dev != nil {
		return dev, nil
	}
	return nil, errors.NotFoundErrorWithCause(fmt.Sprintf("output device for %s (%s)", attr.Usage, s), ErrNoDevice)
}

func (e *DefaultEngine) outputPreference(s strategy) []audio.DeviceType {
	switch s {
	case strategyPhone:
		switch e.forced[ForCommunication] {
		case ForceSpeaker:
			return []audio.DeviceType{audio.DeviceOutSpeaker}
		case ForceBTSCO:
			return append([]audio.DeviceType{audio.DeviceOutBluetoothSCO}, phoneDevices...)
		}
		return phoneDevices
	case strategySonification:
		return append([]audio.DeviceType{audio.DeviceOutSpeaker}, e.mediaPreference()...)
	case strategyRerouting:
		return []audio.DeviceType{audio.DeviceOutRemoteSubmix}
	default:
		return e.mediaPreference()
	}
}

func (e *DefaultEngine) mediaPreference() []audio.DeviceType {
	switch e.forced[ForMedia] {
	case ForceSpeaker:
		return []audio.DeviceType{audio.DeviceOutSpeaker}
	case ForceNoBTA2DP:
		return lo.Without(mediaDevices, audio.DeviceOutBluetoothA2DP)
	case ForceHeadphones:
		return append([]audio.DeviceType{audio.DeviceOutWiredHeadphone}, mediaDevices...)
	}
	return mediaDevices
}

// InputDevice implements Engine
func (e *DefaultEngine) InputDevice(attr audio.Attributes, devices Devices) (*topology.DevicePort, error) {
	connected := devices.ConnectedDevices(audio.PortRoleSource)

	if attr.Source == audio.SourceRemoteSubmix {
		if dev := pick(connected, attr.Address(), audio.DeviceInRemoteSubmix); dev != nil {
			return dev, nil
		}
		if dev := pick(connected, "", audio.DeviceInRemoteSubmix); dev != nil {
			return dev, nil
		}
	}

	if dev := pick(connected, "", e.inputPreference(attr.Source)...); dev != nil {
		return dev, nil
	}
	return nil, errors.NotFoundErrorWithCause(fmt.Sprintf("input device for %s", attr.Source), ErrNoDevice)
}

func (e *DefaultEngine) inputPreference(source audio.Source) []audio.DeviceType {
	preference := captureDevices
	if source == audio.SourceVoiceCommunication {
		preference = append([]audio.DeviceType{audio.DeviceInBluetoothSCOHeadset}, captureDevices...)
	}

	switch e.forced[ForRecord] {
	case ForceBTSCO:
		return append([]audio.DeviceType{audio.DeviceInBluetoothSCOHeadset}, preference...)
	case ForceWiredAccessory:
		return append([]audio.DeviceType{audio.DeviceInWiredHeadset}, preference...)
	}
	return preference
}

// pick returns the first connected device whose type appears earliest in
// preference. An empty address matches any device of the type.
func pick(connected []*topology.DevicePort, address string, preference ...audio.DeviceType) *topology.DevicePort {
	for _, t := range preference {
		dev, ok := lo.Find(connected, func(d *topology.DevicePort) bool {
			return d.Type == t && (address == "" || d.Address == address)
		})
		if ok {
			return dev
		}
	}
	return nil
}

type defaultFactory struct{}

// NewDefaultFactory returns the factory of the built-in engine
func NewDefaultFactory() Factory { return defaultFactory{} }

func (defaultFactory) Name() string { return DefaultEngineName }

func (defaultFactory) New(logger logging.Logger) Engine { return NewDefaultEngine(logger) }
