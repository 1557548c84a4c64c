package testutil

import "audio-policy/internal/audio"

// PatchBuilder helps build test patches
type PatchBuilder struct {
	patch *audio.Patch
}

// NewPatchBuilder creates an empty patch builder
func NewPatchBuilder() *PatchBuilder {
	return &PatchBuilder{patch: &audio.Patch{}}
}

// AddSource appends port as a source endpoint
func (b *PatchBuilder) AddSource(port audio.PortInfo) *PatchBuilder {
	b.patch.Sources = append(b.patch.Sources, audio.PortConfig{ID: port.ID, Role: audio.PortRoleSource, Type: port.Type})
	return b
}

// AddSink appends port as a sink endpoint
func (b *PatchBuilder) AddSink(port audio.PortInfo) *PatchBuilder {
	b.patch.Sinks = append(b.patch.Sinks, audio.PortConfig{ID: port.ID, Role: audio.PortRoleSink, Type: port.Type})
	return b
}

// WithRawSources sets n source endpoints carrying role
func (b *PatchBuilder) WithRawSources(n int, role audio.PortRole) *PatchBuilder {
	b.patch.Sources = make([]audio.PortConfig, n)
	for i := range b.patch.Sources {
		b.patch.Sources[i].Role = role
	}
	return b
}

// WithRawSinks sets n sink endpoints carrying role
func (b *PatchBuilder) WithRawSinks(n int, role audio.PortRole) *PatchBuilder {
	b.patch.Sinks = make([]audio.PortConfig, n)
	for i := range b.patch.Sinks {
		b.patch.Sinks[i].Role = role
	}
	return b
}

// Patch returns the built patch
func (b *PatchBuilder) Patch() *audio.Patch {
	return b.patch
}
