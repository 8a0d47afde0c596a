// jsonlog.go - Structured logging: JSON lines in production, key=value
// text in development. Selected via FD_LOG_FORMAT / FD_ENV.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

// Logger writes structured log entries.
type Logger struct {
	output   io.Writer
	minLevel LogLevel
	asJSON   bool
}

type logEntry struct {
	Level   LogLevel       `json:"level"`
	Time    string         `json:"time"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// DefaultLogger is the process-wide logger instance.
var DefaultLogger = newLoggerFromEnv(os.Stdout)

func newLoggerFromEnv(out io.Writer) *Logger {
	asJSON := os.Getenv("FD_LOG_FORMAT") == "json" || os.Getenv("FD_ENV") == "production"

	min := LogLevelInfo
	if lvl := LogLevel(os.Getenv("FD_LOG_LEVEL")); levelRank[lvl] > 0 || lvl == LogLevelDebug {
		min = lvl
	}

	return &Logger{output: out, minLevel: min, asJSON: asJSON}
}

func (l *Logger) log(level LogLevel, msg string, fields map[string]any, err error) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := logEntry{
		Level:   level,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Message: msg,
		Fields:  fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if l.asJSON {
		data, _ := json.Marshal(entry)
		fmt.Fprintln(l.output, string(data))
		return
	}

	fmt.Fprintf(l.output, "[%s] %s %s", entry.Level, entry.Time, entry.Message)
	for k, v := range entry.Fields {
		fmt.Fprintf(l.output, " %s=%v", k, v)
	}
	if entry.Error != "" {
		fmt.Fprintf(l.output, " error=%s", entry.Error)
	}
	fmt.Fprintln(l.output)
}

func (l *Logger) Debug(msg string, fields map[string]any) { l.log(LogLevelDebug, msg, fields, nil) }
func (l *Logger) Info(msg string, fields map[string]any)  { l.log(LogLevelInfo, msg, fields, nil) }
func (l *Logger) Warn(msg string, fields map[string]any)  { l.log(LogLevelWarn, msg, fields, nil) }
func (l *Logger) Error(msg string, fields map[string]any, err error) {
	l.log(LogLevelError, msg, fields, err)
}

// Package-level helpers writing to DefaultLogger.

func Debug(msg string, fields map[string]any) { DefaultLogger.Debug(msg, fields) }
func Info(msg string, fields map[string]any)  { DefaultLogger.Info(msg, fields) }
func Warn(msg string, fields map[string]any)  { DefaultLogger.Warn(msg, fields) }
func Error(msg string, fields map[string]any, err error) {
	DefaultLogger.Error(msg, fields, err)
}
