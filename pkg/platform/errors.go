package platform

import "errors"

// Sentinel errors for platform operations.
var (
	// ErrDisposed is returned by MapController methods after Dispose, or
	// when its native view could not be created.
	ErrDisposed = errors.New("platform: map view disposed")

	// ErrChannelNotRegistered is returned when an event arrives for an
	// unknown event channel.
	ErrChannelNotRegistered = errors.New("platform: event channel not registered")
)
