package eventlog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/trustledger/internal/ir"
)

// Journal is an append-only event log.
// Implemented by Log (in-process slice) and store.Store (in-memory SQLite).
type Journal interface {
	// Append records a new event and returns a copy of it.
	Append(ctx context.Context, aggregateID, eventType string, payload ir.IRObject) (ir.Event, error)

	// Events returns a consistent snapshot of the whole log in append order.
	Events(ctx context.Context) ([]ir.Event, error)
}

// Log is the in-process append-only event log.
//
// The zero value is not usable; construct with New. A Log is owned by the
// application that creates it and lives until that application drops it.
type Log struct {
	mu     sync.RWMutex
	events []ir.Event
	seq    *Sequence
	now    func() time.Time
	logger *slog.Logger
}

var _ Journal = (*Log)(nil)

// Option configures a Log.
type Option func(*Log)

// WithClock sets the wall clock used for event timestamps.
// Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// WithLogger sets the structured logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// New creates an empty log whose first event id is 1.
func New(opts ...Option) *Log {
	l := &Log{
		seq:    NewSequence(),
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records an event for aggregateID.
//
// Empty aggregateID or eventType is rejected with INVALID_ARGUMENT before any
// state changes; the id sequence is not advanced. A nil payload is stored as
// an empty object. The payload is deep-copied, so later changes to the
// caller's map never reach the log. The context is unused: Append never blocks
// on I/O.
func (l *Log) Append(_ context.Context, aggregateID, eventType string, payload ir.IRObject) (ir.Event, error) {
	if err := ValidateAppend(aggregateID, eventType); err != nil {
		return ir.Event{}, err
	}

	// Copy outside the lock; the caller's map is not ours to hold.
	stored := ir.CloneObject(payload)

	l.mu.Lock()
	e := ir.Event{
		ID:          l.seq.Next(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   l.now().UnixMilli(),
		Payload:     stored,
	}
	l.events = append(l.events, e)
	l.mu.Unlock()

	l.logger.Debug("event appended",
		"event_id", e.ID,
		"aggregate_id", e.AggregateID,
		"event_type", e.EventType,
	)

	return e.Clone(), nil
}

// Events returns a snapshot of every event in append order.
// Each returned event is a deep copy; the slice is owned by the caller.
func (l *Log) Events(_ context.Context) ([]ir.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ir.Event, len(l.events))
	for i, e := range l.events {
		out[i] = e.Clone()
	}
	return out, nil
}

// Len returns the number of events in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// LastID returns the id of the most recently appended event, or 0.
func (l *Log) LastID() int64 {
	return l.seq.Current()
}
