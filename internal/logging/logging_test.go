package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestTimestampWriterBuffersPartialLines(t *testing.T) {
	var out bytes.Buffer
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tw := &timestampWriter{w: &out, now: func() time.Time { return fixed }}

	if _, err := tw.Write([]byte("first li")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("partial line flushed early: %q", out.String())
	}
	if _, err := tw.Write([]byte("ne\nsecond\nthi")); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "2024-01-02T03:04:05Z first line\n2024-01-02T03:04:05Z second\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]log.Level{
		"debug":   log.DebugLevel,
		"WARN":    log.WarnLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
		"":        log.InfoLevel,
		"chatty":  log.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in, false); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if got := ParseLevel("error", true); got != log.DebugLevel {
		t.Fatalf("verbose should force debug, got %v", got)
	}
}

func TestNewTeesToFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := os.Create(filepath.Join(dir, "stderr"))
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()
	logPath := filepath.Join(dir, "run.log")

	logger, closeLog, err := New(Options{Level: "info", File: logPath, Out: sink})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("loaded fasta", "records", 3)
	logger.Debug("hidden")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "loaded fasta") || !strings.Contains(got, "records=3") {
		t.Fatalf("log file missing entry: %q", got)
	}
	if strings.Contains(got, "hidden") {
		t.Fatalf("debug line written at info level: %q", got)
	}
}
