package pipeline

import "errors"

// ErrUnknownChain is returned when a chain identifier is not registered.
var ErrUnknownChain = errors.New("unknown chain")
