package logbook

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestRecorder_LogAndFlush(t *testing.T) {
	r := NewRecorder()
	r.Log(Info, "first")
	Logf(r, Warning, "second %d", 2)

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Text != "second 2" || entries[1].Level != Warning {
		t.Errorf("entry = %+v", entries[1])
	}

	r.Flush()
	if n := len(r.Entries()); n != 0 {
		t.Errorf("after flush got %d entries, want 0", n)
	}
}

func TestRecorder_AtLeast(t *testing.T) {
	r := NewRecorder()
	r.Log(Debug, "d")
	r.Log(Info, "i")
	r.Log(Warning, "w")
	r.Log(Error, "e")

	got := r.AtLeast(Warning)
	if len(got) != 2 || got[0].Text != "w" || got[1].Text != "e" {
		t.Errorf("AtLeast(Warning) = %+v", got)
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Log(Debug, "x")
		}()
	}
	wg.Wait()
	if n := len(r.Entries()); n != 50 {
		t.Errorf("got %d entries, want 50", n)
	}
}

func TestSlog_ForwardsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l := NewSlog(logger)
	l.Log(Warning, "image too heavy")
	l.Flush()

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("expected WARN level, got %q", out)
	}
	if !strings.Contains(out, "image too heavy") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestTee(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	tee := Tee{a, nil, b}
	tee.Log(Error, "boom")
	if len(a.Entries()) != 1 || len(b.Entries()) != 1 {
		t.Fatal("tee should write to every recorder")
	}
	tee.Flush()
	if len(a.Entries()) != 0 || len(b.Entries()) != 0 {
		t.Error("tee flush should flush every recorder")
	}
}

func TestLogf_NilLog(t *testing.T) {
	// Must not panic.
	Logf(nil, Error, "ignored %s", "value")
	Discard.Log(Error, "ignored")
	Discard.Flush()
}

func TestLevelString(t *testing.T) {
	if Warning.String() != "warning" || Debug.String() != "debug" {
		t.Error("unexpected level names")
	}
}

func TestLevelText(t *testing.T) {
	for _, l := range []Level{Debug, Info, Warning, Error} {
		text, err := l.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Level
		if err := got.UnmarshalText(text); err != nil || got != l {
			t.Errorf("UnmarshalText(%q) = %v, %v", text, got, err)
		}
	}
	var l Level
	if err := l.UnmarshalText([]byte("loud")); err == nil {
		t.Error("expected error for unknown level")
	}
}
