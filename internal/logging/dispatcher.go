package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DispatcherLogger lets a dispatcher log through zerolog. Keys that are not
// strings are rendered with %v; a trailing key without a value is logged
// under "!BADKEY", matching slog.
type DispatcherLogger struct {
	zl zerolog.Logger
}

func NewDispatcherLogger(zl zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{zl: zl.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.emit(l.zl.Debug(), msg, keysAndValues)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.emit(l.zl.Info(), msg, keysAndValues)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.emit(l.zl.Error(), msg, keysAndValues)
}

func (l *DispatcherLogger) emit(ev *zerolog.Event, msg string, kv []any) {
	if ev == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			ev = ev.Interface("!BADKEY", kv[i])
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if err, isErr := kv[i+1].(error); isErr {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
