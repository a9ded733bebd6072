package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/trustledger/internal/eventlog"
	"github.com/roach88/trustledger/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// memoryDSN keeps the database private to the single pooled connection.
const memoryDSN = "file::memory:?mode=memory&cache=private&_foreign_keys=on"

var _ eventlog.Journal = (*Store)(nil)

// Store is an append-only event journal backed by in-memory SQLite.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the timestamp source for appended events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for append diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open creates a fresh in-memory journal.
//
// The pool is pinned to one connection: every connection to ":memory:"
// would otherwise get its own empty database.
func Open(opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, now: time.Now, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database. All events are lost.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA synchronous = OFF",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Append validates and inserts one event. The returned event carries the
// assigned id and timestamp.
func (s *Store) Append(ctx context.Context, aggregateID, eventType string, payload ir.IRObject) (ir.Event, error) {
	if err := eventlog.ValidateAppend(aggregateID, eventType); err != nil {
		return ir.Event{}, err
	}

	payloadJSON, err := marshalPayload(payload)
	if err != nil {
		return ir.Event{}, &eventlog.Error{
			Code:        eventlog.ErrCodeInvalidArgument,
			Message:     err.Error(),
			AggregateID: aggregateID,
			EventType:   eventType,
			Field:       "payload",
		}
	}

	ts := s.now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Event{}, fmt.Errorf("append: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO events (aggregate_id, event_type, timestamp_ms, payload)
		VALUES (?, ?, ?, ?)
	`, aggregateID, eventType, ts, payloadJSON)
	if err != nil {
		return ir.Event{}, fmt.Errorf("append: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return ir.Event{}, fmt.Errorf("append: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ir.Event{}, fmt.Errorf("append: commit: %w", err)
	}

	s.logger.Debug("event appended",
		"event_id", id,
		"aggregate_id", aggregateID,
		"event_type", eventType,
		"backend", "sqlite")

	// Decode what was stored so the caller sees exactly the persisted payload.
	stored, err := unmarshalPayload(payloadJSON)
	if err != nil {
		return ir.Event{}, fmt.Errorf("append: %w", err)
	}

	return ir.Event{
		ID:          id,
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   ts,
		Payload:     stored,
	}, nil
}

// Events returns every event in log order.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) Events(ctx context.Context) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, aggregate_id, event_type, timestamp_ms, payload
		FROM events
		ORDER BY event_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Len returns the number of stored events.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func scanEvent(rows *sql.Rows) (ir.Event, error) {
	var (
		ev      ir.Event
		payload string
	)
	if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Timestamp, &payload); err != nil {
		return ir.Event{}, fmt.Errorf("scan event: %w", err)
	}

	obj, err := unmarshalPayload(payload)
	if err != nil {
		return ir.Event{}, fmt.Errorf("event %d: %w", ev.ID, err)
	}
	ev.Payload = obj
	return ev, nil
}
