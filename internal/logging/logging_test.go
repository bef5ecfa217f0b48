package logging

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func TestInitLogging_StripsFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "no flag", args: []string{"-listen", ":8000"}, want: []string{"-listen", ":8000"}},
		{name: "equals form", args: []string{"--log-level=debug", "-db", "x.db"}, want: []string{"-db", "x.db"}},
		{name: "single dash equals", args: []string{"-log-level=warn"}, want: nil},
		{name: "separate value", args: []string{"-log-level", "error", "-listen", ":1"}, want: []string{"-listen", ":1"}},
		{name: "dangling flag", args: []string{"--log-level"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitLogging(tt.args)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InitLogging(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, "json", slog.LevelInfo)).Info("hello", "k", "v")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("json format produced %q", buf.String())
	}

	buf.Reset()
	slog.New(newHandler(&buf, "", slog.LevelInfo)).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("text format produced %q", buf.String())
	}

	buf.Reset()
	slog.New(newHandler(&buf, "", slog.LevelWarn)).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at warn level, got %q", buf.String())
	}
}
