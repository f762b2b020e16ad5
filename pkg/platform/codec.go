// Package platform connects the map binding to native code. It carries
// method calls and event streams over a NativeBridge, hosts native map views
// in a PlatformViewRegistry, follows the host app lifecycle, and exposes
// MapController, which ties a native map view to a maps.CameraController.
package platform

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageCodec encodes and decodes platform channel messages.
type MessageCodec interface {
	// Encode converts a Go value to bytes for native code.
	Encode(value any) ([]byte, error)

	// Decode converts bytes received from native code to a Go value.
	Decode(data []byte) (any, error)
}

// JsonCodec implements MessageCodec with JSON. Numbers decode as float64.
type JsonCodec struct{}

// Encode serializes value to JSON. Values JSON cannot carry, such as a NaN
// or infinite camera coordinate, fail with ErrInvalidArguments.
func (JsonCodec) Encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		var unsupported *json.UnsupportedValueError
		if errors.As(err, &unsupported) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
		}
		return nil, err
	}
	return data, nil
}

// Decode deserializes JSON. Empty input decodes to nil.
func (JsonCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DefaultCodec is the codec used by platform channels.
var DefaultCodec MessageCodec = JsonCodec{}

// Standard errors for platform channel operations.
var (
	// ErrChannelNotFound indicates the requested platform channel does not exist.
	ErrChannelNotFound = errors.New("platform channel not found")

	// ErrMethodNotFound indicates the method is not implemented on the receiving side.
	ErrMethodNotFound = errors.New("method not implemented")

	// ErrInvalidArguments indicates the arguments passed to the method were invalid.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrPlatformUnavailable indicates no native bridge is installed.
	ErrPlatformUnavailable = errors.New("platform feature unavailable")

	// ErrViewTypeNotFound indicates the platform view type is not registered.
	ErrViewTypeNotFound = errors.New("platform view type not registered")
)

// ChannelError is an error returned by native code.
type ChannelError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *ChannelError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// NewChannelError creates a ChannelError with the given code and message.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}
