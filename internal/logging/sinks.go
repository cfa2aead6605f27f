package logging

import (
	"io"
	"os"
)

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})       {}
func (nopLogger) Info(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})       {}
func (n nopLogger) WithPrefix(string) Logger         { return n }
func (n nopLogger) WithFields(...interface{}) Logger { return n }
func (nopLogger) SetLevel(Level)                     {}
func (nopLogger) GetLevel() Level                    { return LevelInfo }

// NewFileLogger appends to the file at path, creating it if needed. The
// returned closer releases the file handle.
func NewFileLogger(path string, level Level) (Logger, io.Closer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	opts := FileOptions(file)
	opts.Level = level
	return New(opts), file, nil
}

// NewMultiLogger fans every line out to loggers, each filtering at its own
// level. The first logger is treated as the console.
func NewMultiLogger(loggers ...Logger) Logger {
	return multiLogger(loggers)
}

type multiLogger []Logger

func (m multiLogger) Debug(msg string, keyvals ...interface{}) {
	for _, l := range m {
		l.Debug(msg, keyvals...)
	}
}

func (m multiLogger) Info(msg string, keyvals ...interface{}) {
	for _, l := range m {
		l.Info(msg, keyvals...)
	}
}

func (m multiLogger) Warn(msg string, keyvals ...interface{}) {
	for _, l := range m {
		l.Warn(msg, keyvals...)
	}
}

func (m multiLogger) Error(msg string, keyvals ...interface{}) {
	for _, l := range m {
		l.Error(msg, keyvals...)
	}
}

func (m multiLogger) WithPrefix(prefix string) Logger {
	return m.derive(func(l Logger) Logger { return l.WithPrefix(prefix) })
}

func (m multiLogger) WithFields(keyvals ...interface{}) Logger {
	return m.derive(func(l Logger) Logger { return l.WithFields(keyvals...) })
}

func (m multiLogger) derive(fn func(Logger) Logger) Logger {
	out := make(multiLogger, len(m))
	for i, l := range m {
		out[i] = fn(l)
	}
	return out
}

// SetLevel adjusts the console only; file sinks keep their own level.
func (m multiLogger) SetLevel(level Level) {
	if len(m) > 0 {
		m[0].SetLevel(level)
	}
}

func (m multiLogger) GetLevel() Level {
	if len(m) > 0 {
		return m[0].GetLevel()
	}
	return LevelInfo
}
