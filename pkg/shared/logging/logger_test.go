package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{" warn ", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSimpleLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSimpleLoggerWithWriter("portal", LevelDebug, false, &buf)

	logger.WithModule("verify").Warn("resend throttled", "remaining", 42, "dangling")

	line := buf.String()
	assert.Contains(t, line, "[portal/verify] WARN: resend throttled remaining=42 EXTRA=dangling")
}

func TestSimpleLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSimpleLoggerWithWriter("portal", LevelWarn, false, &buf)

	logger.Info("skipped")
	logger.Error("kept")

	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), "kept")
}

func TestSimpleLogger_FatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSimpleLoggerWithWriter("portal", LevelInfo, false, &buf)

	code := -1
	logger.exit = func(c int) { code = c }
	logger.Fatal("boom")

	assert.Equal(t, 1, code)
	assert.True(t, strings.Contains(buf.String(), "FATAL: boom"))
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"jane2400123@akgec.ac.in", "ja*********@akgec.ac.in"},
		{"ab@akgec.ac.in", "a*@akgec.ac.in"},
		{"noatsign", "***"},
		{"@akgec.ac.in", "***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskEmail(tt.in), tt.in)
	}
}

func TestTestLogger_SharesEntriesAcrossModules(t *testing.T) {
	logger := NewTestLogger()
	logger.WithModule("register").Info("ok")
	logger.Error("bad")

	lines := logger.Lines()
	if assert.Len(t, lines, 2) {
		assert.Contains(t, lines[0], "[test/register] INFO: ok")
		assert.Contains(t, lines[1], "[test] ERROR: bad")
	}
}
