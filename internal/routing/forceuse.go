package routing

import (
	"fmt"
	"strings"

	"audio-policy/internal/common/errors"

	"github.com/samber/lo"
)

// ForceUse is a category a forced routing preference applies to
type ForceUse int32

const (
	ForCommunication ForceUse = iota
	ForMedia
	ForRecord
	ForDock
	ForSystem
	ForHDMISystemAudio
	ForEncodedSurround
	ForVibrateRinging
)

// ForcedConfig is the preference forced on a category
type ForcedConfig int32

const (
	ForceNone ForcedConfig = iota
	ForceSpeaker
	ForceHeadphones
	ForceBTSCO
	ForceBTA2DP
	ForceWiredAccessory
	ForceBTCarDock
	ForceBTDeskDock
	ForceAnalogDock
	ForceDigitalDock
	ForceNoBTA2DP
	ForceSystemEnforced
	ForceHDMISystemAudioEnforced
	ForceEncodedSurroundNever
	ForceEncodedSurroundAlways
	ForceEncodedSurroundManual
)

var (
	forceUseNames = map[ForceUse]string{
		ForCommunication:   "AUDIO_POLICY_FORCE_FOR_COMMUNICATION",
		ForMedia:           "AUDIO_POLICY_FORCE_FOR_MEDIA",
		ForRecord:          "AUDIO_POLICY_FORCE_FOR_RECORD",
		ForDock:            "AUDIO_POLICY_FORCE_FOR_DOCK",
		ForSystem:          "AUDIO_POLICY_FORCE_FOR_SYSTEM",
		ForHDMISystemAudio: "AUDIO_POLICY_FORCE_FOR_HDMI_SYSTEM_AUDIO",
		ForEncodedSurround: "AUDIO_POLICY_FORCE_FOR_ENCODED_SURROUND",
		ForVibrateRinging:  "AUDIO_POLICY_FORCE_FOR_VIBRATE_RINGING",
	}
	forcedConfigNames = map[ForcedConfig]string{
		ForceNone:                    "AUDIO_POLICY_FORCE_NONE",
		ForceSpeaker:                 "AUDIO_POLICY_FORCE_SPEAKER",
		ForceHeadphones:              "AUDIO_POLICY_FORCE_HEADPHONES",
		ForceBTSCO:                   "AUDIO_POLICY_FORCE_BT_SCO",
		ForceBTA2DP:                  "AUDIO_POLICY_FORCE_BT_A2DP",
		ForceWiredAccessory:          "AUDIO_POLICY_FORCE_WIRED_ACCESSORY",
		ForceBTCarDock:               "AUDIO_POLICY_FORCE_BT_CAR_DOCK",
		ForceBTDeskDock:              "AUDIO_POLICY_FORCE_BT_DESK_DOCK",
		ForceAnalogDock:              "AUDIO_POLICY_FORCE_ANALOG_DOCK",
		ForceDigitalDock:             "AUDIO_POLICY_FORCE_DIGITAL_DOCK",
		ForceNoBTA2DP:                "AUDIO_POLICY_FORCE_NO_BT_A2DP",
		ForceSystemEnforced:          "AUDIO_POLICY_FORCE_SYSTEM_ENFORCED",
		ForceHDMISystemAudioEnforced: "AUDIO_POLICY_FORCE_HDMI_SYSTEM_AUDIO_ENFORCED",
		ForceEncodedSurroundNever:    "AUDIO_POLICY_FORCE_ENCODED_SURROUND_NEVER",
		ForceEncodedSurroundAlways:   "AUDIO_POLICY_FORCE_ENCODED_SURROUND_ALWAYS",
		ForceEncodedSurroundManual:   "AUDIO_POLICY_FORCE_ENCODED_SURROUND_MANUAL",
	}
)

// allowedConfigs lists the configs each category accepts besides ForceNone
var allowedConfigs = map[ForceUse][]ForcedConfig{
	ForCommunication: {ForceSpeaker, ForceBTSCO},
	ForMedia: {
		ForceHeadphones, ForceBTA2DP, ForceWiredAccessory, ForceAnalogDock,
		ForceDigitalDock, ForceNoBTA2DP, ForceSpeaker,
	},
	ForRecord: {ForceBTSCO, ForceWiredAccessory},
	ForDock: {
		ForceBTCarDock, ForceBTDeskDock, ForceWiredAccessory, ForceAnalogDock, ForceDigitalDock,
	},
	ForSystem:          {ForceSystemEnforced},
	ForHDMISystemAudio: {ForceHDMISystemAudioEnforced},
	ForEncodedSurround: {ForceEncodedSurroundNever, ForceEncodedSurroundAlways, ForceEncodedSurroundManual},
	ForVibrateRinging:  {ForceBTSCO},
}

// validateForceUse checks that config is meaningful for usage
func validateForceUse(usage ForceUse, config ForcedConfig) error {
	allowed, ok := allowedConfigs[usage]
	if !ok {
		return errors.InvalidArgumentError(fmt.Sprintf("force use %s", usage), ErrInvalidForceUse)
	}
	if config != ForceNone && !lo.Contains(allowed, config) {
		return errors.InvalidArgumentError(fmt.Sprintf("%s for %s", config, usage), ErrInvalidForcedConfig)
	}
	return nil
}

func (u ForceUse) String() string {
	if name, ok := forceUseNames[u]; ok {
		return name
	}
	return fmt.Sprintf("force use(%d)", int32(u))
}

// MarshalText implements encoding.TextMarshaler
func (u ForceUse) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (u *ForceUse) UnmarshalText(text []byte) error {
	v, ok := lo.Invert(forceUseNames)[strings.TrimSpace(string(text))]
	if !ok {
		return errors.InvalidArgumentError(fmt.Sprintf("unknown force use %q", text), ErrInvalidForceUse)
	}
	*u = v
	return nil
}

func (c ForcedConfig) String() string {
	if name, ok := forcedConfigNames[c]; ok {
		return name
	}
	return fmt.Sprintf("forced config(%d)", int32(c))
}

// MarshalText implements encoding.TextMarshaler
func (c ForcedConfig) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ForcedConfig) UnmarshalText(text []byte) error {
	v, ok := lo.Invert(forcedConfigNames)[strings.TrimSpace(string(text))]
	if !ok {
		return errors.InvalidArgumentError(fmt.Sprintf("unknown forced config %q", text), ErrInvalidForcedConfig)
	}
	*c = v
	return nil
}
