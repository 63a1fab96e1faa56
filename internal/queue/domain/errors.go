package domain

import "errors"

// ErrUnknownQueue indicates no handler is registered for the queue name.
var ErrUnknownQueue = errors.New("unknown queue")
