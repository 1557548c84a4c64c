package audio

import "fmt"

// Format is an audio sample or bitstream encoding
type Format uint32

const (
	FormatDefault     Format = 0x0
	FormatPCM16       Format = 0x1
	FormatPCM8        Format = 0x2
	FormatPCM32       Format = 0x3
	FormatPCM8_24     Format = 0x4
	FormatPCMFloat    Format = 0x5
	FormatPCM24Packed Format = 0x6
	FormatMP3         Format = 0x01000000
	FormatAAC         Format = 0x04000000
	FormatAC3         Format = 0x09000000
	FormatEAC3        Format = 0x0A000000
	FormatDTS         Format = 0x0B000000
	FormatDTSHD       Format = 0x0C000000
	FormatIEC61937    Format = 0x0D000000
)

const formatMainMask Format = 0xFF000000

var formats = newEnumTable("format", map[Format]string{
	FormatDefault:     "AUDIO_FORMAT_DEFAULT",
	FormatPCM16:       "AUDIO_FORMAT_PCM_16_BIT",
	FormatPCM8:        "AUDIO_FORMAT_PCM_8_BIT",
	FormatPCM32:       "AUDIO_FORMAT_PCM_32_BIT",
	FormatPCM8_24:     "AUDIO_FORMAT_PCM_8_24_BIT",
	FormatPCMFloat:    "AUDIO_FORMAT_PCM_FLOAT",
	FormatPCM24Packed: "AUDIO_FORMAT_PCM_24_BIT_PACKED",
	FormatMP3:         "AUDIO_FORMAT_MP3",
	FormatAAC:         "AUDIO_FORMAT_AAC",
	FormatAC3:         "AUDIO_FORMAT_AC3",
	FormatEAC3:        "AUDIO_FORMAT_E_AC3",
	FormatDTS:         "AUDIO_FORMAT_DTS",
	FormatDTSHD:       "AUDIO_FORMAT_DTS_HD",
	FormatIEC61937:    "AUDIO_FORMAT_IEC61937",
})

// IsLinearPCM reports whether f is an uncompressed PCM encoding
func (f Format) IsLinearPCM() bool {
	return f != FormatDefault && f&formatMainMask == 0
}

func (f Format) String() string { return formats.format(f) }

// MarshalText implements encoding.TextMarshaler
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (f *Format) UnmarshalText(text []byte) error {
	v, err := formats.parse(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFormat resolves a symbolic format name
func ParseFormat(name string) (Format, error) { return formats.parse(name) }

// ChannelMask is a channel layout bitmask
type ChannelMask uint32

const (
	ChannelNone          ChannelMask = 0x0
	ChannelOutMono       ChannelMask = 0x1
	ChannelOutStereo     ChannelMask = 0x3
	ChannelOutQuad       ChannelMask = 0x33
	ChannelOut5Point1    ChannelMask = 0x3F
	ChannelOut7Point1    ChannelMask = 0x63F
	ChannelInMono        ChannelMask = 0x10
	ChannelInStereo      ChannelMask = 0xC
	ChannelInFrontBack   ChannelMask = 0x30
	ChannelInVoiceUplink ChannelMask = 0x4010
)

var channelMasks = newEnumTable("channel mask", map[ChannelMask]string{
	ChannelNone:          "AUDIO_CHANNEL_NONE",
	ChannelOutMono:       "AUDIO_CHANNEL_OUT_MONO",
	ChannelOutStereo:     "AUDIO_CHANNEL_OUT_STEREO",
	ChannelOutQuad:       "AUDIO_CHANNEL_OUT_QUAD",
	ChannelOut5Point1:    "AUDIO_CHANNEL_OUT_5POINT1",
	ChannelOut7Point1:    "AUDIO_CHANNEL_OUT_7POINT1",
	ChannelInMono:        "AUDIO_CHANNEL_IN_MONO",
	ChannelInStereo:      "AUDIO_CHANNEL_IN_STEREO",
	ChannelInFrontBack:   "AUDIO_CHANNEL_IN_FRONT_BACK",
	ChannelInVoiceUplink: "AUDIO_CHANNEL_IN_VOICE_UPLINK_MONO",
})

func (m ChannelMask) String() string { return channelMasks.format(m) }

// MarshalText implements encoding.TextMarshaler
func (m ChannelMask) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (m *ChannelMask) UnmarshalText(text []byte) error {
	v, err := channelMasks.parse(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseChannelMask resolves a symbolic channel mask name
func ParseChannelMask(name string) (ChannelMask, error) { return channelMasks.parse(name) }

// Config is the negotiated or requested stream configuration
type Config struct {
	SampleRate  uint32      `json:"sampleRate" yaml:"sampleRate"`
	ChannelMask ChannelMask `json:"channelMask" yaml:"channelMask"`
	Format      Format      `json:"format" yaml:"format"`
}

// IsZero reports whether no field of c is set
func (c Config) IsZero() bool {
	return c == Config{}
}

func (c Config) String() string {
	return fmt.Sprintf("%s/%s/%d", c.Format, c.ChannelMask, c.SampleRate)
}
