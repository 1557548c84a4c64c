package audio

// DeviceType identifies a class of physical or virtual endpoint.
// Input device types carry the DeviceBitIn bit.
type DeviceType uint32

// DeviceBitIn marks input (capture) device types
const DeviceBitIn DeviceType = 0x80000000

const (
	DeviceNone DeviceType = 0x0

	DeviceOutEarpiece       DeviceType = 0x1
	DeviceOutSpeaker        DeviceType = 0x2
	DeviceOutWiredHeadset   DeviceType = 0x4
	DeviceOutWiredHeadphone DeviceType = 0x8
	DeviceOutBluetoothSCO   DeviceType = 0x10
	DeviceOutBluetoothA2DP  DeviceType = 0x80
	DeviceOutHDMI           DeviceType = 0x400
	DeviceOutUSBDevice      DeviceType = 0x4000
	DeviceOutRemoteSubmix   DeviceType = 0x8000
	DeviceOutBus            DeviceType = 0x1000000

	DeviceInBuiltinMic          DeviceType = DeviceBitIn | 0x4
	DeviceInBluetoothSCOHeadset DeviceType = DeviceBitIn | 0x8
	DeviceInWiredHeadset        DeviceType = DeviceBitIn | 0x10
	DeviceInRemoteSubmix        DeviceType = DeviceBitIn | 0x100
	DeviceInUSBDevice           DeviceType = DeviceBitIn | 0x1000
	DeviceInBus                 DeviceType = DeviceBitIn | 0x100000
)

var deviceTypes = newEnumTable("device type", map[DeviceType]string{
	DeviceNone:                  "AUDIO_DEVICE_NONE",
	DeviceOutEarpiece:           "AUDIO_DEVICE_OUT_EARPIECE",
	DeviceOutSpeaker:            "AUDIO_DEVICE_OUT_SPEAKER",
	DeviceOutWiredHeadset:       "AUDIO_DEVICE_OUT_WIRED_HEADSET",
	DeviceOutWiredHeadphone:     "AUDIO_DEVICE_OUT_WIRED_HEADPHONE",
	DeviceOutBluetoothSCO:       "AUDIO_DEVICE_OUT_BLUETOOTH_SCO",
	DeviceOutBluetoothA2DP:      "AUDIO_DEVICE_OUT_BLUETOOTH_A2DP",
	DeviceOutHDMI:               "AUDIO_DEVICE_OUT_HDMI",
	DeviceOutUSBDevice:          "AUDIO_DEVICE_OUT_USB_DEVICE",
	DeviceOutRemoteSubmix:       "AUDIO_DEVICE_OUT_REMOTE_SUBMIX",
	DeviceOutBus:                "AUDIO_DEVICE_OUT_BUS",
	DeviceInBuiltinMic:          "AUDIO_DEVICE_IN_BUILTIN_MIC",
	DeviceInBluetoothSCOHeadset: "AUDIO_DEVICE_IN_BLUETOOTH_SCO_HEADSET",
	DeviceInWiredHeadset:        "AUDIO_DEVICE_IN_WIRED_HEADSET",
	DeviceInRemoteSubmix:        "AUDIO_DEVICE_IN_REMOTE_SUBMIX",
	DeviceInUSBDevice:           "AUDIO_DEVICE_IN_USB_DEVICE",
	DeviceInBus:                 "AUDIO_DEVICE_IN_BUS",
})

// IsInput reports whether t is a capture device type
func (t DeviceType) IsInput() bool {
	return t&DeviceBitIn != 0
}

// Role is the port role a device of this type plays in a patch:
// capture devices are sources, playback devices are sinks.
func (t DeviceType) Role() PortRole {
	switch {
	case t == DeviceNone:
		return PortRoleNone
	case t.IsInput():
		return PortRoleSource
	default:
		return PortRoleSink
	}
}

// IsRemoteSubmix reports whether t is either side of the remote submix pair
func (t DeviceType) IsRemoteSubmix() bool {
	return t == DeviceOutRemoteSubmix || t == DeviceInRemoteSubmix
}

// Known reports whether t is a device type this engine models
func (t DeviceType) Known() bool { return deviceTypes.known(t) }

func (t DeviceType) String() string { return deviceTypes.format(t) }

// MarshalText implements encoding.TextMarshaler
func (t DeviceType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (t *DeviceType) UnmarshalText(text []byte) error {
	v, err := deviceTypes.parse(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseDeviceType resolves a symbolic device type name
func ParseDeviceType(name string) (DeviceType, error) { return deviceTypes.parse(name) }
