// Package policymix holds the dynamic policy mixes clients register to claim
// playback or capture streams, and decides which mix claims a stream.
//
// Mixes are evaluated in registration order and the first match wins. An
// explicit addr=<address> tag on a playback stream is resolved before any
// attribute rule.
package policymix

import (
	"fmt"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/logging"
	"audio-policy/internal/topology"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Devices is the topology view registration is validated against
type Devices interface {
	ModuleForDevice(t audio.DeviceType) (*topology.Module, error)
	IsConnected(t audio.DeviceType, address string) bool
	FindPort(role audio.PortRole, t audio.DeviceType, address string) (*topology.DevicePort, error)
	RoutableProfiles(d *topology.DevicePort) []*topology.MixProfile
}

// Registry holds the registered mixes in registration order
type Registry struct {
	devices Devices
	logger  logging.Logger
	entries []*Entry
}

// NewRegistry creates an empty registry
func NewRegistry(devices Devices, logger logging.Logger) *Registry {
	return &Registry{
		devices: devices,
		logger:  logger,
	}
}

// Register validates every mix of the set, against the registry and the
// mixes before it in the set, then registers them all. Nothing is registered
// when any mix is rejected.
func (r *Registry) Register(mixes []Mix) ([]Entry, error) {
	pending := make([]*Entry, 0, len(mixes))
	for i, mix := range mixes {
		rules, err := r.validate(mix, pending)
		if err != nil {
			r.logger.Warn("Policy mix rejected",
				logging.Int("index", i),
				logging.String("mix_type", mix.Type.String()),
				logging.String("route", mix.RouteFlags.String()),
				logging.String("device", mix.DeviceType.String()),
				logging.String("address", mix.Address),
				logging.Err(err),
			)
			return nil, err
		}
		pending = append(pending, &Entry{ID: uuid.New(), Mix: mix.clone(), rules: rules})
	}

	r.entries = append(r.entries, pending...)
	for _, e := range pending {
		r.logger.Info("Policy mix registered",
			logging.String("id", e.ID.String()),
			logging.String("mix_type", e.Type.String()),
			logging.String("address", e.Address),
		)
	}
	return lo.Map(pending, func(e *Entry, _ int) Entry { return *e }), nil
}

func (r *Registry) validate(mix Mix, pending []*Entry) (compiledRules, error) {
	switch mix.Type {
	case MixTypePlayers, MixTypeRecorders:
	default:
		return compiledRules{}, errors.InvalidOperationError(fmt.Sprintf("register %s", mix.Type), ErrInvalidMixType)
	}

	switch {
	case mix.RouteFlags == RouteLoopBackAndRender:
		return compiledRules{}, errors.InvalidOperationError("register mix", ErrLoopBackAndRender)
	case mix.RouteFlags != RouteRender && mix.RouteFlags != RouteLoopBack:
		return compiledRules{}, errors.InvalidOperationError("register mix", ErrInvalidRouteFlags)
	case mix.Type == MixTypeRecorders && mix.RouteFlags == RouteRender:
		return compiledRules{}, errors.InvalidOperationError("register mix", ErrRecorderRender)
	}

	rules, err := compileRules(mix)
	if err != nil {
		return compiledRules{}, err
	}

	registered := func(e *Entry) bool { return e.SameAs(mix) }
	if lo.ContainsBy(r.entries, registered) || lo.ContainsBy(pending, registered) {
		return compiledRules{}, errors.InvalidOperationError(
			fmt.Sprintf("register mix %s@%q", mix.DeviceType, mix.Address), ErrDuplicateMix)
	}

	if mix.IsLoopBack() {
		return rules, r.validateLoopBack(mix)
	}
	return rules, r.validateRender(mix)
}

func (r *Registry) validateLoopBack(mix Mix) error {
	counterpart, _ := mix.Counterpart()
	if _, err := r.devices.ModuleForDevice(counterpart); err != nil {
		return errors.InvalidOperationError(fmt.Sprintf("register loop-back mix %q", mix.Address), ErrModuleNotFound)
	}
	if r.devices.IsConnected(counterpart, mix.Address) {
		return errors.InvalidOperationError(
			fmt.Sprintf("register loop-back mix: %s@%q", counterpart, mix.Address), ErrDeviceInUse)
	}
	return nil
}

func (r *Registry) validateRender(mix Mix) error {
	if _, err := r.devices.ModuleForDevice(mix.DeviceType); err != nil {
		return errors.InvalidOperationError(fmt.Sprintf("register render mix to %s", mix.DeviceType), ErrDeviceNotFound)
	}
	dev, err := r.devices.FindPort(audio.PortRoleSink, mix.DeviceType, mix.Address)
	if err != nil {
		return errors.InvalidOperationError(
			fmt.Sprintf("register render mix to %s@%q", mix.DeviceType, mix.Address), ErrDeviceNotFound)
	}
	if len(r.devices.RoutableProfiles(dev)) == 0 {
		return errors.InvalidOperationError(fmt.Sprintf("register render mix to %s", dev), ErrOutputNotFound)
	}
	return nil
}

// Unregister removes every mix of the set. Nothing is removed when any mix is
// not registered or its module can no longer be resolved.
func (r *Registry) Unregister(mixes []Mix) ([]Entry, error) {
	picked := make(map[int]bool, len(mixes))
	for _, mix := range mixes {
		device := mix.DeviceType
		if counterpart, ok := mix.Counterpart(); ok {
			device = counterpart
		}
		if _, err := r.devices.ModuleForDevice(device); err != nil {
			return nil, errors.InvalidOperationError(fmt.Sprintf("unregister mix %q", mix.Address), ErrModuleNotFound)
		}

		idx := -1
		for i, e := range r.entries {
			if !picked[i] && e.SameAs(mix) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, errors.InvalidOperationError(
				fmt.Sprintf("unregister mix %s@%q", mix.DeviceType, mix.Address), ErrMixNotRegistered)
		}
		picked[idx] = true
	}

	var removed []Entry
	kept := r.entries[:0]
	for i, e := range r.entries {
		if picked[i] {
			removed = append(removed, *e)
			r.logger.Info("Policy mix unregistered", logging.String("id", e.ID.String()))
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

// MatchOutput returns the players mix claiming a playback stream. Mixes whose
// address equals the stream's address tag are tried before attribute rules.
// A mix usable rejects steps aside for the next match; a nil usable accepts
// every mix.
func (r *Registry) MatchOutput(attr audio.Attributes, uid audio.UID, usable func(Entry) bool) (Entry, bool) {
	if addr := attr.Address(); addr != "" {
		if e, ok := r.find(usable, func(e *Entry) bool {
			return e.Type == MixTypePlayers && e.Address == addr
		}); ok {
			return e, true
		}
	}
	return r.find(usable, func(e *Entry) bool {
		return e.Type == MixTypePlayers && e.rules.matchesPlayback(attr.Usage, uid)
	})
}

// MatchInput returns the mix claiming a capture stream. A remote submix
// capture addressed to a loop-back players mix reads that mix; other streams
// are matched against recorders mixes, whose addresses play no part. usable
// filters candidates as in MatchOutput.
func (r *Registry) MatchInput(attr audio.Attributes, uid audio.UID, usable func(Entry) bool) (Entry, bool) {
	if attr.Source == audio.SourceRemoteSubmix {
		if addr := attr.Address(); addr != "" {
			if e, ok := r.find(usable, func(e *Entry) bool {
				return e.Type == MixTypePlayers && e.Address == addr && e.IsLoopBack()
			}); ok {
				return e, true
			}
		}
	}
	return r.find(usable, func(e *Entry) bool {
		return e.Type == MixTypeRecorders && e.rules.matchesCapture(attr.Source, uid)
	})
}

// find returns the first entry in registration order that matches and is usable
func (r *Registry) find(usable func(Entry) bool, match func(*Entry) bool) (Entry, bool) {
	e, ok := lo.Find(r.entries, func(e *Entry) bool {
		return match(e) && (usable == nil || usable(*e))
	})
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// ForAddress returns the first registered mix of type t at address
func (r *Registry) ForAddress(t MixType, address string) (Entry, bool) {
	e, ok := lo.Find(r.entries, func(e *Entry) bool { return e.Type == t && e.Address == address })
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns the registered mixes in registration order
func (r *Registry) Entries() []Entry {
	return lo.Map(r.entries, func(e *Entry, _ int) Entry { return *e })
}

// Count returns the number of registered mixes
func (r *Registry) Count() int {
	return len(r.entries)
}
