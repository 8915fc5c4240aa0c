package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"msg=observed", "checksum=0f3a", "remaining=2"}},
		{"TEXT", []string{"msg=observed", "checksum=0f3a"}},
		{"json", []string{`"msg":"observed"`, `"checksum":"0f3a"`, `"remaining":2`}},
		{"", []string{"msg=observed"}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		NewLoggerWithWriter(slog.LevelInfo, tt.format, &buf).Info("observed", "checksum", "0f3a", "remaining", 2)
		for _, w := range tt.want {
			if !strings.Contains(buf.String(), w) {
				t.Errorf("format %q: output %q missing %q", tt.format, buf.String(), w)
			}
		}
	}
}

func TestNewLoggerWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf).With("component", "msb")

	logger.Debug("iterator tree", "obsnum", 0)
	logger.Info("program loaded")
	logger.Warn("cannot summarize backup MSB", "file", "a.xml")

	out := buf.String()
	if strings.Contains(out, "iterator tree") || strings.Contains(out, "program loaded") {
		t.Errorf("records below WARN were written: %s", out)
	}
	if !strings.Contains(out, "component=msb") || !strings.Contains(out, "file=a.xml") {
		t.Errorf("WARN record missing attributes: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseLevelStrict(t *testing.T) {
	if lvl, err := ParseLevelStrict(" Warn "); err != nil || lvl != slog.LevelWarn {
		t.Errorf("ParseLevelStrict(Warn) = %v, %v", lvl, err)
	}
	if lvl, err := ParseLevelStrict(""); err != nil || lvl != slog.LevelInfo {
		t.Errorf("ParseLevelStrict(\"\") = %v, %v", lvl, err)
	}
	if _, err := ParseLevelStrict("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
