package logging

import (
	"fmt"
	"sync"
	"testing"
)

// TestLogger is a Logger for tests. It records every entry and optionally
// echoes to testing.T.
type TestLogger struct {
	module  string
	t       *testing.T
	entries *entries
}

type entries struct {
	mu    sync.Mutex
	lines []string
}

// NewTestLogger creates a silent test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{module: "test", entries: &entries{}}
}

// NewTestLoggerVerbose creates a test logger that also writes through t.Logf.
func NewTestLoggerVerbose(t *testing.T) *TestLogger {
	return &TestLogger{module: "test", t: t, entries: &entries{}}
}

func (l *TestLogger) record(level, msg string, args []interface{}) string {
	line := fmt.Sprintf("[%s] %s: %s %v", l.module, level, msg, args)
	l.entries.mu.Lock()
	l.entries.lines = append(l.entries.lines, line)
	l.entries.mu.Unlock()
	return line
}

// Lines returns a copy of everything logged so far, across all sub-modules.
func (l *TestLogger) Lines() []string {
	l.entries.mu.Lock()
	defer l.entries.mu.Unlock()
	out := make([]string, len(l.entries.lines))
	copy(out, l.entries.lines)
	return out
}

func (l *TestLogger) Debug(msg string, args ...interface{}) {
	if line := l.record("DEBUG", msg, args); l.t != nil {
		l.t.Log(line)
	}
}

func (l *TestLogger) Info(msg string, args ...interface{}) {
	if line := l.record("INFO", msg, args); l.t != nil {
		l.t.Log(line)
	}
}

func (l *TestLogger) Warn(msg string, args ...interface{}) {
	if line := l.record("WARN", msg, args); l.t != nil {
		l.t.Log(line)
	}
}

func (l *TestLogger) Error(msg string, args ...interface{}) {
	if line := l.record("ERROR", msg, args); l.t != nil {
		l.t.Log(line)
	}
}

// Fatal records the entry and fails the test instead of exiting.
func (l *TestLogger) Fatal(msg string, args ...interface{}) {
	if line := l.record("FATAL", msg, args); l.t != nil {
		l.t.Fatal(line)
	}
}

// WithModule appends module to the hierarchy ("test/portal").
func (l *TestLogger) WithModule(module string) Logger {
	name := module
	if l.module != "" {
		name = l.module + "/" + module
	}
	return &TestLogger{module: name, t: l.t, entries: l.entries}
}
