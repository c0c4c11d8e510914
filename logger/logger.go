package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// LogLevel defines the severity of the log
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	default:
		return "SILENT"
	}
}

// LogFormat defines the output format of the log
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Logger is the interface for logging SQL and connection events
type Logger interface {
	SetLevel(level LogLevel)
	SetFormat(format LogFormat)
	SetOutput(w io.Writer)
	// SetLevelOutput copies entries of exactly the given level to w as well
	SetLevelOutput(level LogLevel, w io.Writer)
	WithFields(fields map[string]any) Logger
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SQL(sql string, duration time.Duration, args ...any)
}

// baseLogger contains common logging functionality
type baseLogger struct {
	level        LogLevel
	format       LogFormat
	writer       io.Writer
	levelWriters map[LogLevel]io.Writer
	fields       map[string]any
}

func (l *baseLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *baseLogger) SetFormat(format LogFormat) {
	l.format = format
}

// SetOutput sets the main destination. A nil writer disables it, leaving
// only the per-level outputs.
func (l *baseLogger) SetOutput(w io.Writer) {
	l.writer = w
}

func (l *baseLogger) SetLevelOutput(level LogLevel, w io.Writer) {
	if w == nil {
		delete(l.levelWriters, level)
		return
	}
	l.levelWriters[level] = w
}

func (l *baseLogger) clone() *baseLogger {
	fields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	writers := make(map[LogLevel]io.Writer, len(l.levelWriters))
	for k, v := range l.levelWriters {
		writers[k] = v
	}
	return &baseLogger{
		level:        l.level,
		format:       l.format,
		writer:       l.writer,
		levelWriters: writers,
		fields:       fields,
	}
}

// stdLogger is the default implementation of Logger
type stdLogger struct {
	baseLogger
}

// NewStdLogger creates a new standard logger writing text to stdout
func NewStdLogger() Logger {
	return &stdLogger{
		baseLogger: baseLogger{
			level:        LogLevelInfo,
			format:       LogFormatText,
			writer:       os.Stdout,
			levelWriters: make(map[LogLevel]io.Writer),
			fields:       make(map[string]any),
		},
	}
}

// NewSilentLogger returns a logger that discards everything.
func NewSilentLogger() Logger {
	l := NewStdLogger()
	l.SetLevel(LogLevelSilent)
	l.SetOutput(io.Discard)
	return l
}

func (l *stdLogger) WithFields(fields map[string]any) Logger {
	newLogger := &stdLogger{
		baseLogger: *l.clone(),
	}
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

func (l *stdLogger) Info(format string, args ...any) {
	l.log(LogLevelInfo, "INFO", fmt.Sprintf(format, args...), nil)
}

func (l *stdLogger) Warn(format string, args ...any) {
	l.log(LogLevelWarn, "WARN", fmt.Sprintf(format, args...), nil)
}

func (l *stdLogger) Error(format string, args ...any) {
	l.log(LogLevelError, "ERROR", fmt.Sprintf(format, args...), nil)
}

// SQL logs an executed statement at info level.
func (l *stdLogger) SQL(sql string, duration time.Duration, args ...any) {
	if args == nil {
		args = []any{}
	}
	if l.format == LogFormatJSON {
		l.log(LogLevelInfo, "SQL", "", map[string]any{
			"sql":      sql,
			"duration": duration.String(),
			"args":     args,
		})
		return
	}
	msg := fmt.Sprintf("%s[%v] %s | args: %v%s", sqlColor(sql), duration, sql, args, ansiReset)
	l.log(LogLevelInfo, "SQL", msg, nil)
}

func (l *stdLogger) log(level LogLevel, label, msg string, extra map[string]any) {
	if l.level < level {
		return
	}
	extraOut := l.levelWriters[level]
	if l.writer == nil && extraOut == nil {
		return
	}

	line := l.render(label, msg, extra)
	if l.writer != nil {
		_, _ = io.WriteString(l.writer, line)
	}
	if extraOut != nil {
		_, _ = io.WriteString(extraOut, line)
	}
}

func (l *stdLogger) render(label, msg string, extra map[string]any) string {
	now := time.Now()
	if l.format == LogFormatJSON {
		data := make(map[string]any, len(l.fields)+len(extra)+3)
		for k, v := range l.fields {
			data[k] = v
		}
		for k, v := range extra {
			data[k] = v
		}
		data["time"] = now.Format(time.RFC3339)
		data["level"] = label
		if msg != "" {
			data["msg"] = msg
		}
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprintf(`{"level":"ERROR","msg":%q}`+"\n", err.Error())
		}
		return string(b) + "\n"
	}

	fieldStr := ""
	if len(l.fields) > 0 {
		fieldStr = fmt.Sprintf(" fields: %v", l.fields)
	}
	return fmt.Sprintf("[GPDB] %s %s: %s%s\n", now.Format("2006-01-02 15:04:05"), label, msg, fieldStr)
}

func sqlColor(sqlStr string) string {
	s := strings.TrimSpace(strings.ToUpper(sqlStr))
	switch {
	case strings.HasPrefix(s, "SELECT"):
		return ansiYellow
	case strings.HasPrefix(s, "INSERT"), strings.HasPrefix(s, "UPDATE"):
		return ansiGreen
	case strings.HasPrefix(s, "DELETE"):
		return ansiRed
	default:
		return ansiCyan
	}
}
