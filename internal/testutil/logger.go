// Package testutil holds shared test doubles and assertions.
package testutil

import (
	"strings"
	"sync"

	"github.com/homewiseai/hwprobe/internal/logging"
)

// LogMessage represents a recorded log message.
type LogMessage struct {
	Level   logging.Level
	Message string
	Fields  []interface{}
}

type logStore struct {
	mu       sync.Mutex
	messages []LogMessage
	level    logging.Level
}

// RecordingLogger implements logging.Logger and records every message.
// Loggers derived with WithPrefix or WithFields share the parent's records.
type RecordingLogger struct {
	store  *logStore
	prefix string
	fields []interface{}
}

// NewRecordingLogger creates a logger that records from debug level up.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{store: &logStore{level: logging.LevelDebug}}
}

func (r *RecordingLogger) Debug(msg string, keyvals ...interface{}) {
	r.record(logging.LevelDebug, msg, keyvals)
}

func (r *RecordingLogger) Info(msg string, keyvals ...interface{}) {
	r.record(logging.LevelInfo, msg, keyvals)
}

func (r *RecordingLogger) Warn(msg string, keyvals ...interface{}) {
	r.record(logging.LevelWarn, msg, keyvals)
}

func (r *RecordingLogger) Error(msg string, keyvals ...interface{}) {
	r.record(logging.LevelError, msg, keyvals)
}

// WithPrefix returns a child logger whose messages read "prefix: msg".
func (r *RecordingLogger) WithPrefix(prefix string) logging.Logger {
	return &RecordingLogger{store: r.store, prefix: prefix, fields: r.fields}
}

// WithFields returns a child logger carrying keyvals on every message.
func (r *RecordingLogger) WithFields(keyvals ...interface{}) logging.Logger {
	fields := make([]interface{}, 0, len(r.fields)+len(keyvals))
	fields = append(fields, r.fields...)
	fields = append(fields, keyvals...)
	return &RecordingLogger{store: r.store, prefix: r.prefix, fields: fields}
}

func (r *RecordingLogger) SetLevel(level logging.Level) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.level = level
}

func (r *RecordingLogger) GetLevel() logging.Level {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.level
}

func (r *RecordingLogger) record(level logging.Level, msg string, keyvals []interface{}) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if level < r.store.level {
		return
	}
	if r.prefix != "" {
		msg = r.prefix + ": " + msg
	}
	fields := append(append([]interface{}{}, r.fields...), keyvals...)
	r.store.messages = append(r.store.messages, LogMessage{Level: level, Message: msg, Fields: fields})
}

// Messages returns all recorded log messages.
func (r *RecordingLogger) Messages() []LogMessage {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]LogMessage{}, r.store.messages...)
}

// ContainsMessage checks if any recorded message contains the given substring.
func (r *RecordingLogger) ContainsMessage(substring string) bool {
	for _, msg := range r.Messages() {
		if strings.Contains(msg.Message, substring) {
			return true
		}
	}
	return false
}

// ContainsMessageAtLevel checks if any message at the given level contains the substring.
func (r *RecordingLogger) ContainsMessageAtLevel(level logging.Level, substring string) bool {
	for _, msg := range r.Messages() {
		if msg.Level == level && strings.Contains(msg.Message, substring) {
			return true
		}
	}
	return false
}

// Field returns the value logged under key by the first message containing
// substring, and whether it was found.
func (r *RecordingLogger) Field(substring, key string) (interface{}, bool) {
	for _, msg := range r.Messages() {
		if !strings.Contains(msg.Message, substring) {
			continue
		}
		for i := 0; i+1 < len(msg.Fields); i += 2 {
			if k, ok := msg.Fields[i].(string); ok && k == key {
				return msg.Fields[i+1], true
			}
		}
	}
	return nil, false
}

// Clear removes all recorded messages.
func (r *RecordingLogger) Clear() {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.messages = nil
}

var _ logging.Logger = (*RecordingLogger)(nil)
