// Package logbook is the one-way diagnostic sink card builds write to.
// Entries never affect control flow; a Log must not block or fail.
package logbook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Level is the severity of a diagnostic entry.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	for _, v := range []Level{Debug, Info, Warning, Error} {
		if v.String() == string(text) {
			*l = v
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", text)
}

// Slog maps l onto the equivalent slog level.
func (l Level) Slog() slog.Level {
	switch l {
	case Info:
		return slog.LevelInfo
	case Warning:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	}
	return slog.LevelDebug
}

// Log receives leveled diagnostics. Flush clears accumulated entries
// before a new build.
type Log interface {
	Log(level Level, text string)
	Flush()
}

// Logf formats and writes an entry to log. A nil log discards it.
func Logf(log Log, level Level, format string, args ...any) {
	if log == nil {
		return
	}
	log.Log(level, fmt.Sprintf(format, args...))
}

// Entry is one recorded diagnostic.
type Entry struct {
	Time  time.Time `json:"time"`
	Level Level     `json:"level"`
	Text  string    `json:"text"`
}

// Recorder keeps entries in memory for later presentation.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

func (r *Recorder) Log(level Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	r.entries = append(r.entries, Entry{Time: now(), Level: level, Text: text})
}

func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// Entries returns a copy of the recorded entries in order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// AtLeast returns the entries whose level is min or higher.
func (r *Recorder) AtLeast(min Level) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level >= min {
			out = append(out, e)
		}
	}
	return out
}

// Slog forwards entries to a structured logger. Flush is a no-op.
type Slog struct {
	logger *slog.Logger
}

// NewSlog wraps logger; a nil logger uses slog.Default().
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

func (s *Slog) Log(level Level, text string) {
	s.logger.Log(context.Background(), level.Slog(), text)
}

func (s *Slog) Flush() {}

// Tee writes every entry to each of its logs.
type Tee []Log

func (t Tee) Log(level Level, text string) {
	for _, l := range t {
		if l != nil {
			l.Log(level, text)
		}
	}
}

func (t Tee) Flush() {
	for _, l := range t {
		if l != nil {
			l.Flush()
		}
	}
}

// Discard drops every entry.
var Discard Log = discard{}

type discard struct{}

func (discard) Log(Level, string) {}
func (discard) Flush()            {}
