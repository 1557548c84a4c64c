package audio

// Usage declares why a playback stream is being played
type Usage uint32

const (
	UsageUnknown                          Usage = 0
	UsageMedia                            Usage = 1
	UsageVoiceCommunication               Usage = 2
	UsageVoiceCommunicationSignalling     Usage = 3
	UsageAlarm                            Usage = 4
	UsageNotification                     Usage = 5
	UsageNotificationTelephonyRingtone    Usage = 6
	UsageNotificationCommunicationRequest Usage = 7
	UsageNotificationCommunicationInstant Usage = 8
	UsageNotificationCommunicationDelayed Usage = 9
	UsageNotificationEvent                Usage = 10
	UsageAssistanceAccessibility          Usage = 11
	UsageAssistanceNavigationGuidance     Usage = 12
	UsageAssistanceSonification           Usage = 13
	UsageGame                             Usage = 14
	UsageVirtualSource                    Usage = 15
	UsageAssistant                        Usage = 16
)

var usages = newEnumTable("usage", map[Usage]string{
	UsageUnknown:                          "AUDIO_USAGE_UNKNOWN",
	UsageMedia:                            "AUDIO_USAGE_MEDIA",
	UsageVoiceCommunication:               "AUDIO_USAGE_VOICE_COMMUNICATION",
	UsageVoiceCommunicationSignalling:     "AUDIO_USAGE_VOICE_COMMUNICATION_SIGNALLING",
	UsageAlarm:                            "AUDIO_USAGE_ALARM",
	UsageNotification:                     "AUDIO_USAGE_NOTIFICATION",
	UsageNotificationTelephonyRingtone:    "AUDIO_USAGE_NOTIFICATION_TELEPHONY_RINGTONE",
	UsageNotificationCommunicationRequest: "AUDIO_USAGE_NOTIFICATION_COMMUNICATION_REQUEST",
	UsageNotificationCommunicationInstant: "AUDIO_USAGE_NOTIFICATION_COMMUNICATION_INSTANT",
	UsageNotificationCommunicationDelayed: "AUDIO_USAGE_NOTIFICATION_COMMUNICATION_DELAYED",
	UsageNotificationEvent:                "AUDIO_USAGE_NOTIFICATION_EVENT",
	UsageAssistanceAccessibility:          "AUDIO_USAGE_ASSISTANCE_ACCESSIBILITY",
	UsageAssistanceNavigationGuidance:     "AUDIO_USAGE_ASSISTANCE_NAVIGATION_GUIDANCE",
	UsageAssistanceSonification:           "AUDIO_USAGE_ASSISTANCE_SONIFICATION",
	UsageGame:                             "AUDIO_USAGE_GAME",
	UsageVirtualSource:                    "AUDIO_USAGE_VIRTUAL_SOURCE",
	UsageAssistant:                        "AUDIO_USAGE_ASSISTANT",
})

// Known reports whether u is a defined usage
func (u Usage) Known() bool { return usages.known(u) }

func (u Usage) String() string { return usages.format(u) }

// MarshalText implements encoding.TextMarshaler
func (u Usage) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (u *Usage) UnmarshalText(text []byte) error {
	v, err := usages.parse(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Source is the capture preset of a recording stream
type Source uint32

const (
	SourceDefault            Source = 0
	SourceMic                Source = 1
	SourceVoiceUplink        Source = 2
	SourceVoiceDownlink      Source = 3
	SourceVoiceCall          Source = 4
	SourceCamcorder          Source = 5
	SourceVoiceRecognition   Source = 6
	SourceVoiceCommunication Source = 7
	SourceRemoteSubmix       Source = 8
	SourceUnprocessed        Source = 9
	SourceVoicePerformance   Source = 10
	SourceEchoReference      Source = 1997
	SourceFMTuner            Source = 1998
	SourceHotword            Source = 1999
)

var sources = newEnumTable("source", map[Source]string{
	SourceDefault:            "AUDIO_SOURCE_DEFAULT",
	SourceMic:                "AUDIO_SOURCE_MIC",
	SourceVoiceUplink:        "AUDIO_SOURCE_VOICE_UPLINK",
	SourceVoiceDownlink:      "AUDIO_SOURCE_VOICE_DOWNLINK",
	SourceVoiceCall:          "AUDIO_SOURCE_VOICE_CALL",
	SourceCamcorder:          "AUDIO_SOURCE_CAMCORDER",
	SourceVoiceRecognition:   "AUDIO_SOURCE_VOICE_RECOGNITION",
	SourceVoiceCommunication: "AUDIO_SOURCE_VOICE_COMMUNICATION",
	SourceRemoteSubmix:       "AUDIO_SOURCE_REMOTE_SUBMIX",
	SourceUnprocessed:        "AUDIO_SOURCE_UNPROCESSED",
	SourceVoicePerformance:   "AUDIO_SOURCE_VOICE_PERFORMANCE",
	SourceEchoReference:      "AUDIO_SOURCE_ECHO_REFERENCE",
	SourceFMTuner:            "AUDIO_SOURCE_FM_TUNER",
	SourceHotword:            "AUDIO_SOURCE_HOTWORD",
})

// Known reports whether s is a defined source
func (s Source) Known() bool { return sources.known(s) }

func (s Source) String() string { return sources.format(s) }

// MarshalText implements encoding.TextMarshaler
func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Source) UnmarshalText(text []byte) error {
	v, err := sources.parse(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ContentType describes what a playback stream contains
type ContentType uint32

const (
	ContentTypeUnknown      ContentType = 0
	ContentTypeSpeech       ContentType = 1
	ContentTypeMusic        ContentType = 2
	ContentTypeMovie        ContentType = 3
	ContentTypeSonification ContentType = 4
)

var contentTypes = newEnumTable("content type", map[ContentType]string{
	ContentTypeUnknown:      "AUDIO_CONTENT_TYPE_UNKNOWN",
	ContentTypeSpeech:       "AUDIO_CONTENT_TYPE_SPEECH",
	ContentTypeMusic:        "AUDIO_CONTENT_TYPE_MUSIC",
	ContentTypeMovie:        "AUDIO_CONTENT_TYPE_MOVIE",
	ContentTypeSonification: "AUDIO_CONTENT_TYPE_SONIFICATION",
})

func (c ContentType) String() string { return contentTypes.format(c) }

// MarshalText implements encoding.TextMarshaler
func (c ContentType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ContentType) UnmarshalText(text []byte) error {
	v, err := contentTypes.parse(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
