package errors

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogHandler is an ErrorHandler that writes structured records through zerolog.
type LogHandler struct {
	logger zerolog.Logger

	// Verbose adds stack traces to panic records.
	Verbose bool
}

// NewLogHandler wraps logger. A nil logger selects a console writer on stderr.
func NewLogHandler(logger *zerolog.Logger) *LogHandler {
	if logger != nil {
		return &LogHandler{logger: *logger}
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return &LogHandler{logger: zerolog.New(output).With().Timestamp().Logger()}
}

// HandleError logs a MapError at error level.
func (h *LogHandler) HandleError(err *MapError) {
	if err == nil {
		return
	}
	event := h.logger.Error().
		Str("op", err.Op).
		Stringer("kind", err.Kind).
		Time("at", err.Timestamp)
	if err.Channel != "" {
		event = event.Str("channel", err.Channel)
	}
	if err.ViewID != 0 {
		event = event.Int64("view", err.ViewID)
	}
	event.Err(err.Err).Msg("maps error")
}

// HandlePanic logs a PanicError at error level.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	event := h.logger.Error().Interface("value", err.Value)
	if err.Op != "" {
		event = event.Str("op", err.Op)
	}
	if h.Verbose && err.StackTrace != "" {
		event = event.Str("stack", err.StackTrace)
	}
	event.Msg("maps panic")
}
