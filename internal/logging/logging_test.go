package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Level: LevelWarn, Out: &buf}

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("shown warn")
	l.Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("messages below threshold were written: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn") || !strings.Contains(out, "[ERROR] shown error") {
		t.Fatalf("missing messages: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}
