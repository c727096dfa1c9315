// Package audit keeps an append-only record of every operation the
// registration engine completes. Records are observational only: nothing in
// the engine reads them back.
package audit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of access an entry records.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpSelect Operation = "SELECT"
	OpDelete Operation = "DELETE"
)

// Entry is a single audit record.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	At        time.Time `json:"at"`
	Operation Operation `json:"operation"`
	Table     string    `json:"table"`
	Payload   any       `json:"payload"`
}

// Recorder accepts audit records from the engine.
type Recorder interface {
	Record(op Operation, table string, payload any)
}

// Sink receives every entry after it has been appended to a Log.
// Write must not block.
type Sink interface {
	Write(e Entry)
}

// Discard is a Recorder that drops everything.
type Discard struct{}

func (Discard) Record(Operation, string, any) {}

// Log is an in-memory, append-only Recorder that fans entries out to sinks.
// It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	sinks   []Sink
	now     func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithSink attaches a sink.
func WithSink(s Sink) Option {
	return func(l *Log) { l.sinks = append(l.sinks, s) }
}

// NewLog constructs an empty Log.
func NewLog(opts ...Option) *Log {
	l := &Log{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends a new entry and forwards it to every sink.
func (l *Log) Record(op Operation, table string, payload any) {
	l.mu.Lock()
	e := Entry{
		ID:        uuid.New(),
		At:        l.now(),
		Operation: op,
		Table:     table,
		Payload:   payload,
	}
	l.entries = append(l.entries, e)
	sinks := l.sinks
	l.mu.Unlock()

	for _, s := range sinks {
		s.Write(e)
	}
}

// Entries returns a copy of all entries in append order.
// An empty table matches every entry.
func (l *Log) Entries(table string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if table == "" || e.Table == table {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries recorded so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// SlogSink writes entries to a structured logger at debug level.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink constructs a SlogSink.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Write(e Entry) {
	s.logger.Debug("audit",
		"id", e.ID.String(),
		"operation", string(e.Operation),
		"table", e.Table,
	)
}
