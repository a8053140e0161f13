package shared

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	tc := []struct {
		name string
		in   time.Duration
		want string
	}{
		{name: "zero", in: 0, want: "0:00"},
		{name: "seconds only", in: 7 * time.Second, want: "0:07"},
		{name: "minutes without hours drop the hour part", in: 5*time.Minute + 3*time.Second, want: "5:03"},
		{name: "just under an hour", in: 59*time.Minute + 59*time.Second, want: "59:59"},
		{name: "exactly an hour", in: time.Hour, want: "1:00:00"},
		{name: "hours pad minutes and seconds", in: 2*time.Hour + 4*time.Minute + 9*time.Second, want: "2:04:09"},
		{name: "over a day", in: 26*time.Hour + 30*time.Second, want: "26:00:30"},
		{name: "negative clamps", in: -time.Minute, want: "0:00"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatClock(tt.in); got != tt.want {
				t.Errorf("FormatClock(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	t.Run("FormatSeconds", func(t *testing.T) {
		if got := FormatSeconds(3725); got != "1:02:05" {
			t.Errorf("FormatSeconds(3725) = %v, want 1:02:05", got)
		}
	})

	t.Run("Truncate", func(t *testing.T) {
		if got := Truncate("Café au lait", 5); got != "Café…" {
			t.Errorf("Truncate() = %q, want %q", got, "Café…")
		}
		if got := Truncate("short", 10); got != "short" {
			t.Errorf("Truncate() = %q, want short", got)
		}
	})
}

func TestLoggers(t *testing.T) {
	t.Run("NewLogger writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("hello", "key", "value")

		if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "key=value") {
			t.Errorf("expected structured output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "ytloop.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger() error = %v", err)
		}
		logger.Warn("written")
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected distinct ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string length 36, got %d", len(a))
	}
}

func TestBrowserCommand(t *testing.T) {
	for _, goos := range []string{"darwin", "linux", "windows"} {
		t.Run(goos, func(t *testing.T) {
			cmd, err := browserCommand(goos, "https://example.com")
			if err != nil {
				t.Fatalf("browserCommand() error = %v", err)
			}
			if got := cmd.Args[len(cmd.Args)-1]; got != "https://example.com" {
				t.Errorf("expected url as last argument, got %s", got)
			}
		})
	}

	t.Run("unsupported platform", func(t *testing.T) {
		if _, err := browserCommand("plan9", "https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
