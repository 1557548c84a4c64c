package audio

import "errors"

// ErrHandlesExhausted is returned once a Sequence has allocated its last handle
var ErrHandlesExhausted = errors.New("handle space exhausted")
