// Package patch owns the table of active patches.
package patch

import (
	"fmt"
	"sort"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/logging"

	"github.com/samber/lo"
)

// EngineUID is the uid the policy engine creates its own patches with. It may
// release or replace any patch.
const EngineUID audio.UID = 1041

// Resolver resolves port ids against the topology
type Resolver interface {
	Port(id audio.PortHandle) (audio.PortInfo, bool)
}

// Committer commits patches to hardware
type Committer interface {
	CreateAudioPatch(patch *audio.Patch) (audio.PatchHandle, error)
	ReleaseAudioPatch(handle audio.PatchHandle) error
}

// Record is an active patch
type Record struct {
	Handle   audio.PatchHandle `json:"handle"`
	HWHandle audio.PatchHandle `json:"hwHandle"`
	UID      audio.UID         `json:"uid"`
	Patch    *audio.Patch      `json:"patch"`
}

// Manager validates, creates and releases patches. Hardware is called first
// and the table is updated only when the call succeeds.
type Manager struct {
	resolver   Resolver
	hw         Committer
	logger     logging.Logger
	handles    *audio.Sequence[audio.PatchHandle]
	active     map[audio.PatchHandle]*Record
	generation uint32
}

// NewManager creates an empty patch table
func NewManager(resolver Resolver, hw Committer, logger logging.Logger) *Manager {
	return &Manager{
		resolver: resolver,
		hw:       hw,
		logger:   logger,
		handles:  audio.NewSequence[audio.PatchHandle](),
		active:   make(map[audio.PatchHandle]*Record),
	}
}

// Create validates p and commits it. When *handle names an active patch the
// caller may modify, that patch is replaced. The new handle is written to
// *handle; on failure *handle is left untouched.
func (m *Manager) Create(p *audio.Patch, handle *audio.PatchHandle, uid audio.UID) error {
	if err := m.validate(p, handle); err != nil {
		m.logger.Warn("Patch rejected", logging.Err(err), logging.Uint32("uid", uint32(uid)))
		return err
	}

	var replaced *Record
	if rec, ok := m.active[*handle]; ok {
		if !mayModify(rec, uid) {
			return errors.InvalidOperationError(fmt.Sprintf("replace patch %d", rec.Handle), ErrNotOwner)
		}
		replaced = rec
	}

	hwHandle, err := m.hw.CreateAudioPatch(p)
	if err != nil {
		return errors.HardwareError("create audio patch", err)
	}
	id, err := m.handles.Next()
	if err != nil {
		if relErr := m.hw.ReleaseAudioPatch(hwHandle); relErr != nil {
			m.logger.Warn("Failed to release unrecorded patch", logging.Err(relErr))
		}
		return err
	}

	if replaced != nil {
		if err := m.hw.ReleaseAudioPatch(replaced.HWHandle); err != nil {
			m.logger.Warn("Failed to release replaced patch",
				logging.Int("handle", int(replaced.Handle)),
				logging.Err(err),
			)
		}
		delete(m.active, replaced.Handle)
	}

	rec := &Record{
		Handle:   id,
		HWHandle: hwHandle,
		UID:      uid,
		Patch:    p.Clone(),
	}
	m.active[rec.Handle] = rec
	m.generation++
	*handle = rec.Handle

	m.logger.Debug("Patch created",
		logging.Int("handle", int(rec.Handle)),
		logging.Int("routed_port", int(p.RoutedPortID())),
		logging.Uint32("uid", uint32(uid)),
	)
	return nil
}

func (m *Manager) validate(p *audio.Patch, handle *audio.PatchHandle) error {
	if p == nil {
		return errors.InvalidArgumentError("create audio patch", ErrNilPatch)
	}
	if handle == nil {
		return errors.InvalidArgumentError("create audio patch", ErrNilHandle)
	}
	if !inRange(len(p.Sources)) || !inRange(len(p.Sinks)) {
		return errors.InvalidArgumentError(
			fmt.Sprintf("create audio patch with %d sources and %d sinks", len(p.Sources), len(p.Sinks)),
			ErrPortCount,
		)
	}

	for _, c := range p.Sources {
		if c.Role != audio.PortRoleSource {
			return errors.InvalidOperationError(fmt.Sprintf("patch source %s", c), ErrRoleMismatch)
		}
	}
	for _, c := range p.Sinks {
		if c.Role != audio.PortRoleSink {
			return errors.InvalidOperationError(fmt.Sprintf("patch sink %s", c), ErrRoleMismatch)
		}
	}

	if len(p.Sources) > 1 && len(p.Sinks) > 1 {
		return errors.InvalidOperationError("create audio patch", ErrFanShape)
	}

	for _, c := range append(append([]audio.PortConfig(nil), p.Sources...), p.Sinks...) {
		info, ok := m.resolver.Port(c.ID)
		if !ok {
			return errors.InvalidOperationError(fmt.Sprintf("patch endpoint %s", c), ErrUnknownPort)
		}
		if info.Role != c.Role || info.Type != c.Type {
			return errors.InvalidOperationError(fmt.Sprintf("patch endpoint %s", c), ErrPortMismatch)
		}
	}
	return nil
}

func inRange(n int) bool {
	return n >= 1 && n <= audio.MaxPatchPorts
}

func mayModify(rec *Record, uid audio.UID) bool {
	return uid == EngineUID || rec.UID == uid
}

// Release tears down an active patch. A handle never allocated is not found,
// a handle already released is an invalid operation.
func (m *Manager) Release(handle audio.PatchHandle, uid audio.UID) error {
	rec, ok := m.active[handle]
	if !ok {
		if m.handles.Issued(handle) {
			return errors.InvalidOperationError(fmt.Sprintf("release patch %d", handle), ErrPatchReleased)
		}
		return errors.NotFoundErrorWithCause(fmt.Sprintf("patch %d", handle), ErrPatchNotFound)
	}
	if !mayModify(rec, uid) {
		return errors.InvalidOperationError(fmt.Sprintf("release patch %d", handle), ErrNotOwner)
	}

	if err := m.hw.ReleaseAudioPatch(rec.HWHandle); err != nil {
		return errors.HardwareError("release audio patch", err)
	}

	delete(m.active, handle)
	m.generation++
	m.logger.Debug("Patch released", logging.Int("handle", int(handle)))
	return nil
}

// ReleaseReferencing drops every patch with an endpoint on port. Hardware
// failures are logged; the patches are stale either way.
func (m *Manager) ReleaseReferencing(port audio.PortHandle) []audio.PatchHandle {
	var released []audio.PatchHandle
	for _, rec := range m.List() {
		if !rec.Patch.References(port) {
			continue
		}
		if err := m.hw.ReleaseAudioPatch(rec.HWHandle); err != nil {
			m.logger.Warn("Failed to release stale patch",
				logging.Int("handle", int(rec.Handle)),
				logging.Err(err),
			)
		}
		delete(m.active, rec.Handle)
		released = append(released, rec.Handle)
	}
	if len(released) > 0 {
		m.generation++
	}
	return released
}

// Get returns the active patch with handle
func (m *Manager) Get(handle audio.PatchHandle) (Record, bool) {
	rec, ok := m.active[handle]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// List returns the active patches ordered by handle
func (m *Manager) List() []Record {
	records := lo.Map(lo.Values(m.active), func(rec *Record, _ int) Record { return *rec })
	sort.Slice(records, func(i, j int) bool { return records[i].Handle < records[j].Handle })
	return records
}

// Count returns the number of active patches
func (m *Manager) Count() int {
	return len(m.active)
}

// Generation is bumped whenever the active set changes
func (m *Manager) Generation() uint32 {
	return m.generation
}
