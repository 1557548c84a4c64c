package audio

import (
	"math"

	"audio-policy/internal/common/errors"
)

// PortHandle identifies a device port, a mix port or a client stream.
type PortHandle int32

// PatchHandle identifies an active patch.
type PatchHandle int32

// IOHandle identifies an opened hardware output or input.
type IOHandle int32

// ModuleHandle identifies a loaded hardware module.
type ModuleHandle int32

// UID identifies the client on whose behalf a request is made.
type UID uint32

// The zero value of every handle type is the reserved "none" sentinel.
const (
	PortHandleNone   PortHandle   = 0
	PatchHandleNone  PatchHandle  = 0
	IOHandleNone     IOHandle     = 0
	ModuleHandleNone ModuleHandle = 0
)

// Handle is the set of handle types a Sequence can allocate
type Handle interface {
	~int32
}

// Sequence allocates strictly increasing handles starting after the
// none sentinel. Allocated values are never handed out again; once the
// largest handle is out, Next fails.
type Sequence[T Handle] struct {
	next      T
	exhausted bool
}

// NewSequence returns a sequence whose first handle is 1
func NewSequence[T Handle]() *Sequence[T] {
	return &Sequence[T]{next: 1}
}

// Next allocates a fresh handle
func (s *Sequence[T]) Next() (T, error) {
	if s.exhausted {
		return 0, errors.InternalError("allocate handle", ErrHandlesExhausted)
	}
	h := s.next
	if h == math.MaxInt32 {
		s.exhausted = true
	} else {
		s.next++
	}
	return h, nil
}

// Issued reports whether h has already been allocated by this sequence
func (s *Sequence[T]) Issued(h T) bool {
	return h > 0 && (h < s.next || s.exhausted)
}
