package audio

import "github.com/samber/lo"

// Profile is one format together with the channel masks and sample rates
// it is available in. Empty mask or rate lists accept any value.
type Profile struct {
	Format       Format        `json:"format" yaml:"format" validate:"required"`
	ChannelMasks []ChannelMask `json:"channelMasks,omitempty" yaml:"channelMasks"`
	SampleRates  []uint32      `json:"sampleRates,omitempty" yaml:"samplingRates"`
}

// NewProfile builds a single-mask single-rate profile
func NewProfile(format Format, mask ChannelMask, rate uint32) Profile {
	return Profile{
		Format:       format,
		ChannelMasks: []ChannelMask{mask},
		SampleRates:  []uint32{rate},
	}
}

// Supports reports an exact match of every field of c
func (p Profile) Supports(c Config) bool {
	if p.Format != c.Format {
		return false
	}
	if len(p.ChannelMasks) > 0 && !lo.Contains(p.ChannelMasks, c.ChannelMask) {
		return false
	}
	if len(p.SampleRates) > 0 && !lo.Contains(p.SampleRates, c.SampleRate) {
		return false
	}
	return true
}

// Profiles is the capability set of a port or mix profile
type Profiles []Profile

// Supports reports whether any profile exactly supports c
func (ps Profiles) Supports(c Config) bool {
	return lo.SomeBy(ps, func(p Profile) bool { return p.Supports(c) })
}

// SupportsFormat reports whether any profile carries format f
func (ps Profiles) SupportsFormat(f Format) bool {
	return lo.SomeBy(ps, func(p Profile) bool { return p.Format == f })
}

// Compatible is the relaxed match used for mixed paths: an exact match, or a
// linear PCM request against a port that carries any linear PCM profile.
func (ps Profiles) Compatible(c Config) bool {
	if ps.Supports(c) {
		return true
	}
	if !c.Format.IsLinearPCM() {
		return false
	}
	return lo.SomeBy(ps, func(p Profile) bool { return p.Format.IsLinearPCM() })
}

// Clone returns a deep copy of ps
func (ps Profiles) Clone() Profiles {
	return lo.Map(ps, func(p Profile, _ int) Profile {
		return Profile{
			Format:       p.Format,
			ChannelMasks: append([]ChannelMask(nil), p.ChannelMasks...),
			SampleRates:  append([]uint32(nil), p.SampleRates...),
		}
	})
}
