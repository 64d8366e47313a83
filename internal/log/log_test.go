package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentLoggers(t *testing.T) {
	prev := Logger
	defer SetLogger(prev)

	var buf bytes.Buffer
	SetLogger(NewJSONLogger(&buf, "debug"))

	Scanner.Info().Int("matches", 2).Msg("scan complete")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["component"] != "scanner" {
		t.Errorf("component = %v, want scanner", entry["component"])
	}
	if entry["matches"] != float64(2) {
		t.Errorf("matches = %v, want 2", entry["matches"])
	}
}

func TestWithChain(t *testing.T) {
	var buf bytes.Buffer
	l := WithChain(NewJSONLogger(&buf, "info"), "thanos")
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"chain":"thanos"`) {
		t.Errorf("log line missing chain field: %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, "warn")
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info event written at warn level: %s", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Error("warn event not written at warn level")
	}
}
