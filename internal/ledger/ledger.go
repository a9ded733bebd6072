// Package ledger wires a journal backend, a transition registry and a
// projector into one instance configured from config.Config.
package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/trustledger/internal/compiler"
	"github.com/roach88/trustledger/internal/config"
	"github.com/roach88/trustledger/internal/eventlog"
	"github.com/roach88/trustledger/internal/ir"
	"github.com/roach88/trustledger/internal/projector"
	"github.com/roach88/trustledger/internal/store"
)

// Ledger is one independent event log with its projector.
// Two Ledgers never share events.
type Ledger struct {
	id        string
	backend   config.Backend
	journal   eventlog.Journal
	closer    io.Closer
	projector *projector.Projector
	logger    *slog.Logger
}

type options struct {
	now    func() time.Time
	logger *slog.Logger
	ids    IDGenerator
	rules  []ir.RuleSpec
}

// Option configures a Ledger.
type Option func(*options)

// WithClock sets the timestamp source for appended events.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the structured logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithIDGenerator sets the ledger id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithRules registers already compiled declarative rules in addition to
// the built-in account rules and any cfg.RulesFiles.
func WithRules(specs ...ir.RuleSpec) Option {
	return func(o *options) { o.rules = append(o.rules, specs...) }
}

// New builds a ledger from cfg.
//
// Rule files named in cfg.RulesFiles are compiled and validated; a rule for
// an event type that is already registered is an error.
func New(cfg config.Config, opts ...Option) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	o := options{
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	mode, err := projector.ParseMode(cfg.PayloadMode)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	registry, err := buildRegistry(cfg.RulesFiles, o.rules)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	id := o.ids.Generate()
	logger := o.logger.With("ledger_id", id)

	l := &Ledger{id: id, backend: cfg.Backend, logger: logger}

	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := store.Open(store.WithClock(o.now), store.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("ledger: %w", err)
		}
		l.journal, l.closer = s, s
	default:
		l.journal = eventlog.New(eventlog.WithClock(o.now), eventlog.WithLogger(logger))
	}

	l.projector = projector.New(l.journal,
		projector.WithRegistry(registry),
		projector.WithMode(mode),
		projector.WithLogger(logger),
	)

	logger.Info("ledger opened",
		"backend", cfg.Backend,
		"payload_mode", mode,
		"event_types", registry.Types(),
	)
	return l, nil
}

func buildRegistry(files []string, extra []ir.RuleSpec) (*projector.Registry, error) {
	var specs []ir.RuleSpec
	for _, path := range files {
		compiled, err := compiler.CompileRulesFile(path)
		if err != nil {
			return nil, fmt.Errorf("rules %s: %w", path, err)
		}
		specs = append(specs, compiled...)
	}
	specs = append(specs, extra...)

	if errs := compiler.ValidateAll(specs); len(errs) > 0 {
		return nil, fmt.Errorf("invalid rules: %w", errs[0])
	}

	registry := projector.NewAccountRegistry()
	for _, spec := range specs {
		if err := registry.RegisterSpec(spec); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// ID returns the ledger instance id.
func (l *Ledger) ID() string {
	return l.id
}

// Backend returns the journal backend in use.
func (l *Ledger) Backend() config.Backend {
	return l.backend
}

// Registry returns the transition registry. New event types may be
// registered at any time.
func (l *Ledger) Registry() *projector.Registry {
	return l.projector.Registry()
}

// Append records an event.
func (l *Ledger) Append(ctx context.Context, aggregateID, eventType string, payload ir.IRObject) (ir.Event, error) {
	return l.journal.Append(ctx, aggregateID, eventType, payload)
}

// Rebuild reconstructs the state of aggregateID from seed.
func (l *Ledger) Rebuild(ctx context.Context, aggregateID string, seed ir.IRObject) (ir.IRObject, error) {
	return l.projector.Rebuild(ctx, aggregateID, seed)
}

// Events returns a snapshot of the whole log.
func (l *Ledger) Events(ctx context.Context) ([]ir.Event, error) {
	return l.journal.Events(ctx)
}

// Aggregates returns the distinct aggregate ids in order of first appearance.
func (l *Ledger) Aggregates(ctx context.Context) ([]string, error) {
	events, err := l.journal.Events(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, e := range events {
		if !seen[e.AggregateID] {
			seen[e.AggregateID] = true
			ids = append(ids, e.AggregateID)
		}
	}
	return ids, nil
}

// Close releases the backend. The memory backend has nothing to release.
func (l *Ledger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
