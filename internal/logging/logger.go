package logging

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Logger is the structured logger threaded through every component.
// Key-value pairs follow the message, as in charmbracelet/log.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	// Error is emitted regardless of the configured level.
	Error(msg string, keyvals ...interface{})
	// WithPrefix returns a child logger whose lines carry prefix.
	WithPrefix(prefix string) Logger
	// WithFields returns a child logger that appends keyvals to every line.
	WithFields(keyvals ...interface{}) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// Options configures a console or file logger.
type Options struct {
	Level           Level
	Format          Format
	Output          io.Writer
	TimeFormat      string
	Prefix          string
	NoColor         bool
	ReportTimestamp bool
}

// DefaultOptions returns console defaults. hwprobe speaks its protocol on
// stdout, so logs always go to stderr.
func DefaultOptions() Options {
	return Options{
		Level:           LevelInfo,
		Format:          FormatText,
		Output:          os.Stderr,
		TimeFormat:      "15:04:05",
		ReportTimestamp: true,
	}
}

// FileOptions returns options for a log file: debug level, logfmt lines,
// full timestamps and no color.
func FileOptions(w io.Writer) Options {
	return Options{
		Level:           LevelDebug,
		Format:          FormatLogfmt,
		Output:          w,
		TimeFormat:      "2006-01-02 15:04:05",
		NoColor:         true,
		ReportTimestamp: true,
	}
}

// lockedWriter serializes writes from every logger derived from one root.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// charmLogger adapts *log.Logger. Children share the underlying writer
// but own their level and fields.
type charmLogger struct {
	mu     sync.RWMutex
	impl   *log.Logger
	level  Level
	fields []interface{}
}

// New creates a logger from opts. A nil Output selects stderr.
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	// Children from WithPrefix each hold their own lock, so the root
	// writer serializes them.
	impl := log.NewWithOptions(&lockedWriter{w: out}, log.Options{
		Level:           charmLevel(opts.Level),
		Prefix:          opts.Prefix,
		TimeFormat:      opts.TimeFormat,
		ReportTimestamp: opts.ReportTimestamp,
		Formatter:       charmFormatter(opts.Format),
	})
	if opts.NoColor {
		impl.SetColorProfile(termenv.Ascii)
	}

	return &charmLogger{impl: impl, level: opts.Level}
}

func (c *charmLogger) Debug(msg string, keyvals ...interface{}) {
	c.emit(LevelDebug, msg, keyvals)
}

func (c *charmLogger) Info(msg string, keyvals ...interface{}) {
	c.emit(LevelInfo, msg, keyvals)
}

func (c *charmLogger) Warn(msg string, keyvals ...interface{}) {
	c.emit(LevelWarn, msg, keyvals)
}

func (c *charmLogger) Error(msg string, keyvals ...interface{}) {
	c.emit(LevelError, msg, keyvals)
}

func (c *charmLogger) emit(level Level, msg string, keyvals []interface{}) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if level < c.level && level != LevelError {
		return
	}
	kv := c.withFields(keyvals)
	switch level {
	case LevelDebug:
		c.impl.Debug(msg, kv...)
	case LevelInfo:
		c.impl.Info(msg, kv...)
	case LevelWarn:
		c.impl.Warn(msg, kv...)
	default:
		c.impl.Error(msg, kv...)
	}
}

// withFields always copies so concurrent children never share a backing
// array.
func (c *charmLogger) withFields(keyvals []interface{}) []interface{} {
	if len(c.fields) == 0 {
		return keyvals
	}
	merged := make([]interface{}, 0, len(c.fields)+len(keyvals))
	merged = append(merged, c.fields...)
	return append(merged, keyvals...)
}

func (c *charmLogger) WithPrefix(prefix string) Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &charmLogger{impl: c.impl.WithPrefix(prefix), level: c.level, fields: c.fields}
}

func (c *charmLogger) WithFields(keyvals ...interface{}) Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &charmLogger{impl: c.impl, level: c.level, fields: c.withFields(keyvals)}
}

func (c *charmLogger) SetLevel(level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
	c.impl.SetLevel(charmLevel(level))
}

func (c *charmLogger) GetLevel() Level {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

func charmLevel(l Level) log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func charmFormatter(f Format) log.Formatter {
	switch f {
	case FormatJSON:
		return log.JSONFormatter
	case FormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
