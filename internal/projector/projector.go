package projector

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/trustledger/internal/eventlog"
	"github.com/roach88/trustledger/internal/ir"
)

// Source is the read side of an event log.
// Events must return a consistent snapshot in log order, and must not share
// payload maps with the log itself.
type Source interface {
	Events(ctx context.Context) ([]ir.Event, error)
}

// Projector reconstructs aggregate state from a Source.
//
// A Projector holds no state between calls: Rebuild is a pure function of the
// log snapshot, the aggregate id and the seed.
type Projector struct {
	source   Source
	registry *Registry
	mode     Mode
	logger   *slog.Logger
}

// Option configures a Projector.
type Option func(*Projector)

// WithRegistry sets the transition registry. Default: NewAccountRegistry().
func WithRegistry(r *Registry) Option {
	return func(p *Projector) {
		p.registry = r
	}
}

// WithMode sets the payload mode. Default: ModeLenient.
func WithMode(m Mode) Option {
	return func(p *Projector) {
		p.mode = m
	}
}

// WithLogger sets the structured logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Projector) {
		p.logger = logger
	}
}

// New creates a Projector reading from source.
func New(source Source, opts ...Option) *Projector {
	p := &Projector{
		source: source,
		mode:   ModeLenient,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = NewAccountRegistry()
	}
	return p
}

// Registry returns the projector's transition registry.
func (p *Projector) Registry() *Registry {
	return p.registry
}

// Mode returns the payload mode in effect.
func (p *Projector) Mode() Mode {
	return p.mode
}

// Rebuild folds every event of aggregateID, in log order, over a deep copy of
// seed and returns the result.
//
// Events of other aggregates are ignored; events whose type has no registered
// transition are skipped. The seed and the log are never mutated. On error no
// partial state is returned.
//
// Complexity: one linear scan of the full log per call. There is no index by
// aggregate.
func (p *Projector) Rebuild(ctx context.Context, aggregateID string, seed ir.IRObject) (ir.IRObject, error) {
	if aggregateID == "" {
		return nil, eventlog.NewInvalidArgument("aggregate id must be non-empty")
	}

	events, err := p.source.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: read log: %w", aggregateID, err)
	}

	state := ir.CloneObject(seed)
	applied := 0

	for _, e := range events {
		if e.AggregateID != aggregateID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("rebuild %s: %w", aggregateID, err)
		}

		fn, ok := p.registry.Lookup(e.EventType)
		if !ok {
			p.logger.Debug("skipping unknown event type",
				"aggregate_id", aggregateID,
				"event_id", e.ID,
				"event_type", e.EventType,
				"code", eventlog.ErrCodeUnknownEventType,
			)
			continue
		}

		next, err := fn(state, newPayload(e, p.mode, p.logger))
		if err != nil {
			return nil, fmt.Errorf("rebuild %s: %w", aggregateID, err)
		}
		if next == nil {
			next = ir.IRObject{}
		}
		state = next
		applied++
	}

	p.logger.Debug("aggregate rebuilt",
		"aggregate_id", aggregateID,
		"events_applied", applied,
		"log_length", len(events),
	)

	return state, nil
}
