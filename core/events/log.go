package events

import "log/slog"

// LogEmitter mirrors every emitted event into structured logs.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter builds an emitter that writes events through the given
// logger. A nil logger falls back to the process default.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit implements the Emitter interface.
func (l *LogEmitter) Emit(evt Event) {
	if l == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	attrs := make([]any, 0, len(payload.Attributes)*2)
	for key, value := range payload.Attributes {
		attrs = append(attrs, slog.String(key, value))
	}
	l.logger.Info(payload.Type, attrs...)
}
