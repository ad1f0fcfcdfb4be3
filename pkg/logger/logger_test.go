package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_BasicLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.Debug("dbg", String("k", "v"))
	log.Info("info", Int("n", 42))
	log.Warn("warn", Bool("ok", true))
	log.Error("err", Error(nil))

	out := buf.String()
	for _, s := range []string{
		`"level":"DEBUG"`, `"msg":"dbg"`, `"k":"v"`,
		`"level":"INFO"`, `"n":42`,
		`"level":"WARN"`, `"ok":true`,
		`"level":"ERROR"`, `"error":"nil"`,
	} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected output to contain %q, got: %s", s, out)
		}
	}
}

func TestLogger_WithComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: "info", Format: "json", Output: &buf})
	comp := base.WithComponent("radio.session")

	comp.Info("started")

	out := buf.String()
	if !strings.Contains(out, `"component":"radio.session"`) {
		t.Fatalf("expected component in output, got: %s", out)
	}
	if !strings.Contains(out, `"msg":"started"`) {
		t.Fatalf("expected info message in output, got: %s", out)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Debug("hidden-debug")
	log.Info("hidden-info")
	log.Warn("shown-warn")

	out := buf.String()
	if strings.Contains(out, "hidden-debug") || strings.Contains(out, "hidden-info") {
		t.Fatalf("expected debug/info to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "shown-warn") {
		t.Fatalf("expected warn message, got: %s", out)
	}
	if log.Enabled(InfoLevel) {
		t.Errorf("expected info level to be disabled")
	}
	if !log.Enabled(ErrorLevel) {
		t.Errorf("expected error level to be enabled")
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "text", Output: &buf})

	log.WithComponent("transport").Info("frame received", Hex("raw", []byte{0xA5, 0x01}))

	out := buf.String()
	for _, s := range []string{"INFO", "transport", "frame received", "a501"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected output to contain %q, got: %s", s, out)
		}
	}
}

func TestLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmr171.log")
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf, File: path, MaxSize: 1})

	log.Error("write failed", Error(errors.New("boom")))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"error":"boom"`) {
		t.Fatalf("expected error in log file, got: %s", data)
	}
	if !strings.Contains(buf.String(), "write failed") {
		t.Fatalf("expected message on primary output, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("nothing")
	if log.WithComponent("x") == nil {
		t.Fatal("expected child logger")
	}
}
