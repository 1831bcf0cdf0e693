// Package logging implements a nil-safe leveled logger. cmd/fsentry
// constructs one with NewRoot from its verbosity setting; the core
// packages under pkg/fsentry do not log.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"
)

// Logger is the main logger type. A nil *Logger is valid and logs
// nothing, so components can accept a possibly-absent logger without a
// separate "enabled" check at every call site.
type Logger struct {
	prefix string
	level  Level
}

// RootLogger is the root logger from which all other loggers derive. Its
// level defaults to LevelWarn, matching the CLI's default "normal"
// verbosity (spec §6).
var RootLogger = &Logger{level: LevelWarn}

// NewRoot constructs a root logger at the given level.
func NewRoot(level Level) *Logger {
	return &Logger{level: level}
}

// Sublogger creates a new sublogger with the specified name, inheriting
// the parent's level.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix, level: l.level}
}

func (l *Logger) output(level Level, line string) {
	if l == nil || level > l.level || l.level == LevelDisabled {
		return
	}
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	log.Output(3, line)
}

// Error logs at LevelError.
func (l *Logger) Error(v ...interface{}) { l.output(LevelError, fmt.Sprint(v...)) }

// Errorf logs at LevelError with formatting.
func (l *Logger) Errorf(format string, v ...interface{}) { l.output(LevelError, fmt.Sprintf(format, v...)) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(v ...interface{}) { l.output(LevelWarn, fmt.Sprint(v...)) }

// Warnf logs at LevelWarn with formatting.
func (l *Logger) Warnf(format string, v ...interface{}) { l.output(LevelWarn, fmt.Sprintf(format, v...)) }

// Info logs at LevelInfo.
func (l *Logger) Info(v ...interface{}) { l.output(LevelInfo, fmt.Sprint(v...)) }

// Infof logs at LevelInfo with formatting.
func (l *Logger) Infof(format string, v ...interface{}) { l.output(LevelInfo, fmt.Sprintf(format, v...)) }

// Verbose logs at LevelVerbose, used for the per-path context the CLI's
// verbose mode adds (spec §7).
func (l *Logger) Verbose(v ...interface{}) { l.output(LevelVerbose, fmt.Sprint(v...)) }

// Verbosef logs at LevelVerbose with formatting.
func (l *Logger) Verbosef(format string, v ...interface{}) {
	l.output(LevelVerbose, fmt.Sprintf(format, v...))
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(v ...interface{}) { l.output(LevelDebug, fmt.Sprint(v...)) }

// Debugf logs at LevelDebug with formatting.
func (l *Logger) Debugf(format string, v ...interface{}) { l.output(LevelDebug, fmt.Sprintf(format, v...)) }

// writer is an io.Writer that splits its input stream into lines and
// writes those lines to the logger at LevelInfo.
type writer struct {
	logger *Logger
	buffer []byte
}

func trimCarriageReturn(buffer []byte) []byte {
	if len(buffer) > 0 && buffer[len(buffer)-1] == '\r' {
		return buffer[:len(buffer)-1]
	}
	return buffer
}

// Write implements io.Writer.
func (w *writer) Write(buffer []byte) (int, error) {
	w.buffer = append(w.buffer, buffer...)
	var processed int
	remaining := w.buffer
	for {
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}
		w.logger.Info(string(trimCarriageReturn(remaining[:index])))
		processed += index + 1
		remaining = remaining[index+1:]
	}
	if processed > 0 {
		leftover := len(w.buffer) - processed
		if leftover > 0 {
			copy(w.buffer[:leftover], w.buffer[processed:])
		}
		w.buffer = w.buffer[:leftover]
	}
	return len(buffer), nil
}

// Writer returns an io.Writer that logs each line written to it at
// LevelInfo. If the logger is nil, the writer discards input.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	return &writer{logger: l}
}
