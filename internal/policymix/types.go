package policymix

import (
	"fmt"
	"strings"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MixType selects whether a mix intercepts playback or capture
type MixType int32

const (
	MixTypePlayers MixType = iota
	MixTypeRecorders
)

// RouteFlags declares how a mix delivers the audio it claims
type RouteFlags uint32

const (
	RouteRender            RouteFlags = 0x1
	RouteLoopBack          RouteFlags = 0x2
	RouteLoopBackAndRender            = RouteRender | RouteLoopBack
)

// Has reports whether all bits of flag are set
func (f RouteFlags) Has(flag RouteFlags) bool {
	return f&flag == flag
}

// RuleKind is the attribute dimension a criterion tests and whether it
// matches or excludes
type RuleKind uint32

const (
	RuleMatchUsage         RuleKind = 0x1
	RuleMatchCapturePreset RuleKind = 0x2
	RuleMatchUID           RuleKind = 0x4

	RuleExclusionMask RuleKind = 0x8000

	RuleExcludeUsage         = RuleExclusionMask | RuleMatchUsage
	RuleExcludeCapturePreset = RuleExclusionMask | RuleMatchCapturePreset
	RuleExcludeUID           = RuleExclusionMask | RuleMatchUID
)

// IsExclusion reports whether the criterion vetoes the mix when it matches
func (k RuleKind) IsExclusion() bool {
	return k&RuleExclusionMask != 0
}

var (
	mixTypeNames = map[MixType]string{
		MixTypePlayers:   "players",
		MixTypeRecorders: "recorders",
	}
	routeFlagNames = map[RouteFlags]string{
		RouteRender:            "render",
		RouteLoopBack:          "loop_back",
		RouteLoopBackAndRender: "loop_back_and_render",
	}
	ruleKindNames = map[RuleKind]string{
		RuleMatchUsage:           "match_usage",
		RuleMatchCapturePreset:   "match_capture_preset",
		RuleMatchUID:             "match_uid",
		RuleExcludeUsage:         "exclude_usage",
		RuleExcludeCapturePreset: "exclude_capture_preset",
		RuleExcludeUID:           "exclude_uid",
	}
)

func formatName[T ~int32 | ~uint32](names map[T]string, v T, kind string) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("%s(%d)", kind, v)
}

func parseName[T ~int32 | ~uint32](names map[T]string, text []byte, kind string) (T, error) {
	if v, ok := lo.Invert(names)[strings.TrimSpace(string(text))]; ok {
		return v, nil
	}
	var zero T
	return zero, errors.InvalidArgumentError(fmt.Sprintf("unknown %s %q", kind, text), nil)
}

func (t MixType) String() string { return formatName(mixTypeNames, t, "mix type") }

// MarshalText implements encoding.TextMarshaler
func (t MixType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (t *MixType) UnmarshalText(text []byte) (err error) {
	*t, err = parseName(mixTypeNames, text, "mix type")
	return err
}

func (f RouteFlags) String() string { return formatName(routeFlagNames, f, "route flags") }

// MarshalText implements encoding.TextMarshaler
func (f RouteFlags) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (f *RouteFlags) UnmarshalText(text []byte) (err error) {
	*f, err = parseName(routeFlagNames, text, "route flags")
	return err
}

func (k RuleKind) String() string { return formatName(ruleKindNames, k, "rule") }

// MarshalText implements encoding.TextMarshaler
func (k RuleKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (k *RuleKind) UnmarshalText(text []byte) (err error) {
	*k, err = parseName(ruleKindNames, text, "rule")
	return err
}

// Criterion binds one attribute value to a rule kind. Only the field selected
// by the rule kind is read.
type Criterion struct {
	Rule   RuleKind     `json:"rule"`
	Usage  audio.Usage  `json:"usage,omitempty"`
	Source audio.Source `json:"source,omitempty"`
	UID    audio.UID    `json:"uid,omitempty"`
}

// Mix is a client declared rule set
type Mix struct {
	Criteria   []Criterion      `json:"criteria,omitempty"`
	Type       MixType          `json:"mixType"`
	Config     audio.Config     `json:"config"`
	RouteFlags RouteFlags       `json:"routeFlags"`
	DeviceType audio.DeviceType `json:"deviceType"`
	Address    string           `json:"address"`
}

// IsLoopBack reports whether the mix loops audio back through a remote submix
func (m Mix) IsLoopBack() bool {
	return m.RouteFlags.Has(RouteLoopBack)
}

// SameAs compares the identity of two mixes, ignoring criteria
func (m Mix) SameAs(o Mix) bool {
	return m.Type == o.Type &&
		m.RouteFlags == o.RouteFlags &&
		m.DeviceType == o.DeviceType &&
		m.Address == o.Address &&
		m.Config == o.Config
}

// Counterpart is the remote submix device a loop-back mix makes available to
// its client: the capture side for players, the playback side for recorders.
func (m Mix) Counterpart() (audio.DeviceType, bool) {
	if !m.IsLoopBack() {
		return audio.DeviceNone, false
	}
	if m.Type == MixTypePlayers {
		return audio.DeviceInRemoteSubmix, true
	}
	return audio.DeviceOutRemoteSubmix, true
}

// PlaybackDevice is the sink a claimed playback stream is routed to
func (m Mix) PlaybackDevice() (audio.DeviceType, string) {
	if m.IsLoopBack() {
		return audio.DeviceOutRemoteSubmix, m.Address
	}
	return m.DeviceType, m.Address
}

// CaptureDevice is the source a claimed capture stream is read from
func (m Mix) CaptureDevice() (audio.DeviceType, string) {
	return audio.DeviceInRemoteSubmix, m.Address
}

func (m Mix) clone() Mix {
	m.Criteria = append([]Criterion(nil), m.Criteria...)
	return m
}

// Entry is a registered mix
type Entry struct {
	ID uuid.UUID `json:"id"`
	Mix

	rules compiledRules
}
