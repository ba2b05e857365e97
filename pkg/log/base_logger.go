package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// clone returns a copy of the logger with an independent fields map.
func (l *BaseLogger) clone() *BaseLogger {
	nl := *l
	nl.fields = make(Fields, len(l.fields))
	for k, v := range l.fields {
		nl.fields[k] = v
	}
	return &nl
}

// emit builds a slog record at the given level and hands it to the bridge
// handler. Fatal entries terminate the process after being written.
func (l *BaseLogger) emit(level Level, msg string, attrs []slog.Attr) {
	if level < l.level {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), toSlogLevel(level), msg, pcs[0])
	r.AddAttrs(attrs...)
	_ = l.slogLogger.Handler().Handle(context.Background(), r)
	if level == FatalLevel {
		os.Exit(1)
	}
}

// Debug logs a message at debug level.
func (l *BaseLogger) Debug(msg string, fields ...Field) {
	l.emit(DebugLevel, msg, attrsFromFieldSlice(fields))
}

// Info logs a message at info level.
func (l *BaseLogger) Info(msg string, fields ...Field) {
	l.emit(InfoLevel, msg, attrsFromFieldSlice(fields))
}

// Warn logs a message at warn level.
func (l *BaseLogger) Warn(msg string, fields ...Field) {
	l.emit(WarnLevel, msg, attrsFromFieldSlice(fields))
}

// Error logs a message at error level.
func (l *BaseLogger) Error(msg string, fields ...Field) {
	l.emit(ErrorLevel, msg, attrsFromFieldSlice(fields))
}

// Fatal logs a message at fatal level and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.emit(FatalLevel, msg, attrsFromFieldSlice(fields))
}

// Debugf logs a printf-formatted message at debug level.
func (l *BaseLogger) Debugf(msg string, args ...interface{}) {
	l.emit(DebugLevel, fmt.Sprintf(msg, args...), nil)
}

// Infof logs a printf-formatted message at info level.
func (l *BaseLogger) Infof(msg string, args ...interface{}) {
	l.emit(InfoLevel, fmt.Sprintf(msg, args...), nil)
}

// Warnf logs a printf-formatted message at warn level.
func (l *BaseLogger) Warnf(msg string, args ...interface{}) {
	l.emit(WarnLevel, fmt.Sprintf(msg, args...), nil)
}

// Errorf logs a printf-formatted message at error level.
func (l *BaseLogger) Errorf(msg string, args ...interface{}) {
	l.emit(ErrorLevel, fmt.Sprintf(msg, args...), nil)
}

// Fatalf logs a printf-formatted message at fatal level and exits.
func (l *BaseLogger) Fatalf(msg string, args ...interface{}) {
	l.emit(FatalLevel, fmt.Sprintf(msg, args...), nil)
}

// WithField returns a logger with one additional field.
func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	return l.With(F(key, value))
}

// WithFields returns a logger with all map entries attached as fields.
func (l *BaseLogger) WithFields(fields Fields) Logger {
	if len(fields) == 0 {
		return l
	}
	nl := l.clone()
	for k, v := range fields {
		nl.fields[k] = v
	}
	nl.slogLogger = l.slogLogger.With(attrsToAny(attrsFromMap(fields))...)
	return nl
}

// WithError returns a logger with the error attached as a field.
func (l *BaseLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.With(Err(err))
}

// With returns a logger with the given fields attached.
func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	nl := l.clone()
	for _, f := range fields {
		nl.fields[f.Key] = f.Value
	}
	nl.slogLogger = l.slogLogger.With(attrsToAny(attrsFromFieldSlice(fields))...)
	return nl
}

// WithContext pulls request-scoped values out of ctx into logger fields.
func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	fields := ContextExtractor(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.WithFields(fields)
}

// WithComponent tags the logger with a component name.
func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

// SetLevel sets the minimum level the logger emits.
func (l *BaseLogger) SetLevel(level Level) { l.level = level }

// GetLevel returns the minimum level the logger emits.
func (l *BaseLogger) GetLevel() Level { return l.level }
