package audio

// OutputFlags qualify an output profile or a playback request
type OutputFlags uint32

const (
	OutputFlagNone            OutputFlags = 0x0
	OutputFlagDirect          OutputFlags = 0x1
	OutputFlagPrimary         OutputFlags = 0x2
	OutputFlagFast            OutputFlags = 0x4
	OutputFlagDeepBuffer      OutputFlags = 0x8
	OutputFlagCompressOffload OutputFlags = 0x10
	OutputFlagNonBlocking     OutputFlags = 0x20
	OutputFlagHwAvSync        OutputFlags = 0x40
	OutputFlagTTS             OutputFlags = 0x80
	OutputFlagRaw             OutputFlags = 0x100
	OutputFlagSync            OutputFlags = 0x200
	OutputFlagIEC958NonAudio  OutputFlags = 0x400
	OutputFlagDirectPCM       OutputFlags = 0x2000
	OutputFlagMmapNoIRQ       OutputFlags = 0x4000
	OutputFlagVoIPRx          OutputFlags = 0x8000
)

var outputFlags = newFlagTable("output flag", map[OutputFlags]string{
	OutputFlagNone:            "AUDIO_OUTPUT_FLAG_NONE",
	OutputFlagDirect:          "AUDIO_OUTPUT_FLAG_DIRECT",
	OutputFlagPrimary:         "AUDIO_OUTPUT_FLAG_PRIMARY",
	OutputFlagFast:            "AUDIO_OUTPUT_FLAG_FAST",
	OutputFlagDeepBuffer:      "AUDIO_OUTPUT_FLAG_DEEP_BUFFER",
	OutputFlagCompressOffload: "AUDIO_OUTPUT_FLAG_COMPRESS_OFFLOAD",
	OutputFlagNonBlocking:     "AUDIO_OUTPUT_FLAG_NON_BLOCKING",
	OutputFlagHwAvSync:        "AUDIO_OUTPUT_FLAG_HW_AV_SYNC",
	OutputFlagTTS:             "AUDIO_OUTPUT_FLAG_TTS",
	OutputFlagRaw:             "AUDIO_OUTPUT_FLAG_RAW",
	OutputFlagSync:            "AUDIO_OUTPUT_FLAG_SYNC",
	OutputFlagIEC958NonAudio:  "AUDIO_OUTPUT_FLAG_IEC958_NONAUDIO",
	OutputFlagDirectPCM:       "AUDIO_OUTPUT_FLAG_DIRECT_PCM",
	OutputFlagMmapNoIRQ:       "AUDIO_OUTPUT_FLAG_MMAP_NOIRQ",
	OutputFlagVoIPRx:          "AUDIO_OUTPUT_FLAG_VOIP_RX",
})

// Has reports whether every bit of flag is set in f
func (f OutputFlags) Has(flag OutputFlags) bool {
	return f&flag == flag
}

func (f OutputFlags) String() string { return outputFlags.format(f) }

// MarshalText implements encoding.TextMarshaler
func (f OutputFlags) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (f *OutputFlags) UnmarshalText(text []byte) error {
	v, err := outputFlags.parse(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseOutputFlags resolves a NAME|NAME output flag list
func ParseOutputFlags(text string) (OutputFlags, error) { return outputFlags.parse(text) }

// InputFlags qualify an input profile or a capture request
type InputFlags uint32

const (
	InputFlagNone      InputFlags = 0x0
	InputFlagFast      InputFlags = 0x1
	InputFlagHwHotword InputFlags = 0x2
	InputFlagRaw       InputFlags = 0x4
	InputFlagSync      InputFlags = 0x8
	InputFlagMmapNoIRQ InputFlags = 0x10
	InputFlagVoIPTx    InputFlags = 0x20
	InputFlagHwAvSync  InputFlags = 0x40
	InputFlagDirect    InputFlags = 0x80
)

var inputFlags = newFlagTable("input flag", map[InputFlags]string{
	InputFlagNone:      "AUDIO_INPUT_FLAG_NONE",
	InputFlagFast:      "AUDIO_INPUT_FLAG_FAST",
	InputFlagHwHotword: "AUDIO_INPUT_FLAG_HW_HOTWORD",
	InputFlagRaw:       "AUDIO_INPUT_FLAG_RAW",
	InputFlagSync:      "AUDIO_INPUT_FLAG_SYNC",
	InputFlagMmapNoIRQ: "AUDIO_INPUT_FLAG_MMAP_NOIRQ",
	InputFlagVoIPTx:    "AUDIO_INPUT_FLAG_VOIP_TX",
	InputFlagHwAvSync:  "AUDIO_INPUT_FLAG_HW_AV_SYNC",
	InputFlagDirect:    "AUDIO_INPUT_FLAG_DIRECT",
})

// Has reports whether every bit of flag is set in f
func (f InputFlags) Has(flag InputFlags) bool {
	return f&flag == flag
}

func (f InputFlags) String() string { return inputFlags.format(f) }

// MarshalText implements encoding.TextMarshaler
func (f InputFlags) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (f *InputFlags) UnmarshalText(text []byte) error {
	v, err := inputFlags.parse(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseInputFlags resolves a NAME|NAME input flag list
func ParseInputFlags(text string) (InputFlags, error) { return inputFlags.parse(text) }
