// Package errors provides structured error reporting for the maps binding.
//
// Recoverable failures (a native call that failed, an event that could not be
// parsed) are wrapped in a [MapError] and either returned to the caller or,
// when no caller is waiting, sent to the global [ErrorHandler] via [Report].
// Violations of a calling contract, such as binding a second map to a camera
// controller, panic with a [ContractError] instead.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindPlatform indicates a platform channel or native bridge error.
	KindPlatform
	// KindParsing indicates an event parsing failure.
	KindParsing
	// KindLifecycle indicates a failed lifecycle hook on a map resource.
	KindLifecycle
	// KindCamera indicates a failed camera command.
	KindCamera
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindLifecycle:
		return "lifecycle"
	case KindCamera:
		return "camera"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// MapError is a structured error raised while driving a map resource.
type MapError struct {
	// Op is the operation that failed (e.g., "maps.LifecycleController.HandleEvent").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Channel is the platform channel name, if applicable.
	Channel string
	// ViewID is the platform view the error belongs to, or 0.
	ViewID int64
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *MapError) Error() string {
	msg := fmt.Sprintf("%s [%s]", e.Op, e.Kind)
	if e.Channel != "" {
		msg += " channel=" + e.Channel
	}
	if e.ViewID != 0 {
		msg += fmt.Sprintf(" view=%d", e.ViewID)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *MapError) Unwrap() error {
	return e.Err
}

// ContractError is the panic value used when a caller breaks an API contract.
// It is not meant to be recovered in production code.
type ContractError struct {
	// Op is the operation whose contract was violated.
	Op string
	// Reason describes the violation.
	Reason string
	// Err is an optional sentinel for errors.Is matching.
	Err error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: contract violation: %s", e.Op, e.Reason)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "platform.HandleEvent").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to parse event data.
type ParseError struct {
	// Channel is the platform channel that received the event.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// ErrorHandler receives errors reported by the maps binding.
type ErrorHandler interface {
	// HandleError is called when an error occurs with no caller to return it to.
	HandleError(err *MapError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
