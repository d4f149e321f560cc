// Leveled logging for the switch driver
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package log provides the driver's leveled logger: per-component
// prefixes, text or JSON output, ANSI colors on terminals, and structured
// fields for the identifiers that recur throughout the driver (switch
// ports, configuration tables, chip device IDs). File rotation lives in
// rotation.go.
package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel classifies the severity of a message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string onto a level. Unknown strings
// fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// OutputFormat selects the line layout.
type OutputFormat int

const (
	// FormatText writes human-readable lines for terminals and log files.
	FormatText OutputFormat = iota
	// FormatJSON writes one JSON object per line for log shippers.
	FormatJSON
)

// Fields holds the structured key-value pairs of one entry.
type Fields map[string]any

const textTimeFormat = "2006-01-02 15:04:05.000"

var ansiColors = map[LogLevel]string{
	DEBUG: "\x1b[36m",
	INFO:  "\x1b[32m",
	WARN:  "\x1b[33m",
	ERROR: "\x1b[31m",
}

const ansiReset = "\x1b[0m"

// Logger writes leveled, optionally structured messages for one driver
// component. All methods are safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	prefix   string
	writer   io.Writer
	level    LogLevel
	format   OutputFormat
	colorize bool
}

// New creates a logger writing text to stderr at INFO level.
func New(prefix string) *Logger {
	return &Logger{
		prefix:   prefix,
		writer:   os.Stderr,
		level:    INFO,
		colorize: os.Getenv("NO_COLOR") == "",
	}
}

// SetLevel sets the minimum level that gets written.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetFormat selects between text and JSON lines.
func (l *Logger) SetFormat(format OutputFormat) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = format
}

// SetWriter redirects the output, e.g. to a rotating file.
func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// SetColorize enables or disables ANSI colors in text output.
func (l *Logger) SetColorize(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colorize = enable
}

// WithPrefix returns a logger for a sub-component that shares this
// logger's sink and settings.
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		prefix:   prefix,
		writer:   l.writer,
		level:    l.level,
		format:   l.format,
		colorize: l.colorize,
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.emit(DEBUG, nil, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(INFO, nil, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.emit(WARN, nil, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.emit(ERROR, nil, msg, args...) }

// Entry accumulates structured fields ahead of one log call.
type Entry struct {
	logger *Logger
	fields Fields
}

// WithField starts an entry carrying one field.
func (l *Logger) WithField(key string, value any) *Entry {
	return &Entry{logger: l, fields: Fields{key: value}}
}

// WithFields starts an entry carrying several fields.
func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{logger: l, fields: fields}
}

// WithError starts an entry carrying the error under the "error" key.
func (l *Logger) WithError(err error) *Entry {
	return l.WithField("error", err.Error())
}

// Port tags an entry with the switch port a message concerns.
func (l *Logger) Port(port int) *Entry {
	return l.WithField("port", port)
}

// Table tags an entry with a configuration table name.
func (l *Logger) Table(name string) *Entry {
	return l.WithField("table", name)
}

// Chip tags an entry with a chip device ID.
func (l *Logger) Chip(deviceID uint64) *Entry {
	return l.WithField("device_id", fmt.Sprintf("%#x", deviceID))
}

// WithField returns a copy of the entry with one more field.
func (e *Entry) WithField(key string, value any) *Entry {
	fields := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Entry{logger: e.logger, fields: fields}
}

// WithError returns a copy of the entry carrying the error.
func (e *Entry) WithError(err error) *Entry {
	return e.WithField("error", err.Error())
}

func (e *Entry) Debug(msg string, args ...any) { e.logger.emit(DEBUG, e.fields, msg, args...) }
func (e *Entry) Info(msg string, args ...any)  { e.logger.emit(INFO, e.fields, msg, args...) }
func (e *Entry) Warn(msg string, args ...any)  { e.logger.emit(WARN, e.fields, msg, args...) }
func (e *Entry) Error(msg string, args ...any) { e.logger.emit(ERROR, e.fields, msg, args...) }

func (l *Logger) emit(level LogLevel, fields Fields, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	if l.format == FormatJSON {
		l.writeJSON(level, msg, fields)
	} else {
		l.writeText(level, msg, fields)
	}
}

func (l *Logger) writeText(level LogLevel, msg string, fields Fields) {
	var sb strings.Builder
	sb.WriteString(time.Now().Format(textTimeFormat))
	fmt.Fprintf(&sb, " [%-5s] ", level)

	if l.colorize {
		sb.WriteString(ansiColors[level])
	}
	sb.WriteString(l.prefix)
	if l.colorize {
		sb.WriteString(ansiReset)
	}
	sb.WriteString(": ")
	sb.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, fields[k])
		}
		sb.WriteString("}")
	}
	sb.WriteString("\n")
	io.WriteString(l.writer, sb.String())
}

// JSONLogEntry is the wire layout of one JSON-formatted line.
type JSONLogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
}

func (l *Logger) writeJSON(level LogLevel, msg string, fields Fields) {
	entry := JSONLogEntry{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     level.String(),
		Component: l.prefix,
		Message:   msg,
		Fields:    fields,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.writer, `{"error":"cannot marshal log entry: %v"}`+"\n", err)
		return
	}
	l.writer.Write(append(data, '\n'))
}

var defaultLogger = New("sja1105")

// SetDefaultLogger replaces the logger GetLogger derives components from.
func SetDefaultLogger(logger *Logger) {
	defaultLogger = logger
}

// GetLogger returns a component logger derived from the default logger.
func GetLogger(prefix string) *Logger {
	return defaultLogger.WithPrefix(prefix)
}

// ConfigureFromEnv applies environment overrides to the logger:
//   - SJA1105_LOG_LEVEL: DEBUG, INFO, WARN, ERROR
//   - SJA1105_LOG_FORMAT: text, json
//   - NO_COLOR: any non-empty value disables colors
func ConfigureFromEnv(l *Logger) {
	if levelStr := os.Getenv("SJA1105_LOG_LEVEL"); levelStr != "" {
		l.SetLevel(ParseLevel(levelStr))
	}
	switch strings.ToLower(os.Getenv("SJA1105_LOG_FORMAT")) {
	case "json":
		l.SetFormat(FormatJSON)
	case "text":
		l.SetFormat(FormatText)
	}
	if os.Getenv("NO_COLOR") != "" {
		l.SetColorize(false)
	}
}

func init() {
	ConfigureFromEnv(defaultLogger)
}
