package testutil

import "errors"

// ErrHardwareFailure is injected into hardware clients by tests
var ErrHardwareFailure = errors.New("hardware failure")
