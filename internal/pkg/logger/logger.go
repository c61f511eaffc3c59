package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger emits structured JSON log lines with optional PII redaction.
// Every entry carries a component tag so that gateway subsystems
// (limiter, warmup, bounce processor) can be filtered in aggregate logs.
type Logger struct {
	level     Level
	component string
	redactPII bool

	mu  *sync.Mutex
	out io.Writer
}

var defaultLogger = &Logger{
	level:     INFO,
	redactPII: true,
	mu:        &sync.Mutex{},
	out:       os.Stderr,
}

// New returns a logger tagged with the given component name. The returned
// logger shares the default logger's output, level, and redaction policy.
func New(component string) *Logger {
	return &Logger{
		level:     defaultLogger.level,
		component: component,
		redactPII: defaultLogger.redactPII,
		mu:        defaultLogger.mu,
		out:       defaultLogger.out,
	}
}

// SetLevel sets the minimum level for the default logger and any logger
// created by New afterwards.
func SetLevel(l Level) { defaultLogger.level = l }

// SetRedactPII toggles email redaction for the default logger and any
// logger created by New afterwards.
func SetRedactPII(r bool) { defaultLogger.redactPII = r }

// SetOutput redirects the default logger. Used by tests.
func SetOutput(w io.Writer) { defaultLogger.out = w }

// Debug emits a DEBUG-level entry.
func (l *Logger) Debug(msg string, fields ...any) { l.log(DEBUG, msg, fields...) }

// Info emits an INFO-level entry.
func (l *Logger) Info(msg string, fields ...any) { l.log(INFO, msg, fields...) }

// Warn emits a WARN-level entry.
func (l *Logger) Warn(msg string, fields ...any) { l.log(WARN, msg, fields...) }

// Error emits an ERROR-level entry.
func (l *Logger) Error(msg string, fields ...any) { l.log(ERROR, msg, fields...) }

// Package-level helpers writing through the default logger.
func Debug(msg string, fields ...any) { defaultLogger.log(DEBUG, msg, fields...) }
func Info(msg string, fields ...any)  { defaultLogger.log(INFO, msg, fields...) }
func Warn(msg string, fields ...any)  { defaultLogger.log(WARN, msg, fields...) }
func Error(msg string, fields ...any) { defaultLogger.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...any) {
	if level < l.level {
		return
	}

	entry := map[string]any{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": level.String(),
		"msg":   msg,
	}
	if l.component != "" {
		entry["component"] = l.component
	}

	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		if l.redactPII {
			val = redactValue(key, val)
		}
		entry[key] = val
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}
