package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/trustledger/internal/config"
	"github.com/roach88/trustledger/internal/eventlog"
	"github.com/roach88/trustledger/internal/ir"
	"github.com/roach88/trustledger/internal/ledger"
	"github.com/roach88/trustledger/internal/testutil"
)

// Harness executes one scenario against one ledger.
type Harness struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

type runOptions struct {
	cfg    config.Config
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*runOptions)

// WithConfig sets the base configuration. Scenario fields (backend,
// payload_mode, rules) override it. Default: config.Default().
func WithConfig(cfg config.Config) Option {
	return func(o *runOptions) { o.cfg = cfg }
}

// WithLogger sets the logger passed to the ledger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(o *runOptions) { o.logger = logger }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh ledger for isolation. A non-nil error means
// the scenario could not be run at all (bad rules, bad configuration);
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	ctx := context.Background()

	h, err := newHarness(scenario, opts...)
	if err != nil {
		return nil, err
	}
	defer h.ledger.Close()

	return h.run(ctx, scenario)
}

func newHarness(scenario *Scenario, opts ...Option) (*Harness, error) {
	o := runOptions{
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if scenario.Backend != "" {
		cfg.Backend = config.Backend(scenario.Backend)
	}
	if scenario.PayloadMode != "" {
		cfg.PayloadMode = scenario.PayloadMode
	}
	cfg.RulesFiles = append(append([]string{}, cfg.RulesFiles...), scenario.Rules...)

	l, err := ledger.New(cfg,
		ledger.WithClock(testutil.NewFixedClock().Now),
		ledger.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.LedgerID)),
		ledger.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	return &Harness{ledger: l, logger: o.logger.With("scenario", scenario.Name)}, nil
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()
	result.LedgerID = h.ledger.ID()

	for i, step := range scenario.Steps {
		var err error
		if step.Append != nil {
			err = h.executeAppend(ctx, i, step, result)
		} else {
			err = h.executeRebuild(ctx, i, step, result)
		}
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	events, err := h.ledger.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if result.LogDigest, err = ir.LogDigest(events); err != nil {
		return nil, fmt.Errorf("digest log: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(ctx, result, scenario.Assertions, h.ledger) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario finished",
		"pass", result.Pass,
		"steps", len(scenario.Steps),
		"events", len(events),
	)
	return result, nil
}

// executeAppend runs one append step. Only conversion failures are returned
// as errors; ledger errors are compared against expect_error.
func (h *Harness) executeAppend(ctx context.Context, i int, step Step, result *Result) error {
	a := step.Append

	payload, err := ir.FromNativeMap(a.Payload)
	if err != nil {
		return fmt.Errorf("convert payload: %w", err)
	}

	ev, err := h.ledger.Append(ctx, a.Aggregate, a.Type, payload)
	if err != nil {
		code := errorCode(err)
		result.AddFailedTrace(i, OpAppend, a.Aggregate, a.Type, code)
		if code != step.ExpectError {
			result.AddError(fmt.Sprintf("step %d: append %s/%s: unexpected error: %v", i, a.Aggregate, a.Type, err))
		}
		return nil
	}

	result.AddAppendTrace(i, ev)
	if step.ExpectError != "" {
		result.AddError(fmt.Sprintf("step %d: append %s/%s: expected error %s, got event %d",
			i, a.Aggregate, a.Type, step.ExpectError, ev.ID))
	}

	h.logger.Debug("append step completed",
		"step", i,
		"event_id", ev.ID,
		"aggregate_id", ev.AggregateID,
		"event_type", ev.EventType,
	)
	return nil
}

func (h *Harness) executeRebuild(ctx context.Context, i int, step Step, result *Result) error {
	r := step.Rebuild

	seed, err := ir.FromNativeMap(r.Seed)
	if err != nil {
		return fmt.Errorf("convert seed: %w", err)
	}

	var expect ir.IRObject
	if r.Expect != nil {
		if expect, err = ir.FromNativeMap(r.Expect); err != nil {
			return fmt.Errorf("convert expect: %w", err)
		}
	}

	state, err := h.ledger.Rebuild(ctx, r.Aggregate, seed)
	if err != nil {
		code := errorCode(err)
		result.AddFailedTrace(i, OpRebuild, r.Aggregate, "", code)
		if code != step.ExpectError {
			result.AddError(fmt.Sprintf("step %d: rebuild %s: unexpected error: %v", i, r.Aggregate, err))
		}
		return nil
	}

	result.AddRebuildTrace(i, r.Aggregate, seed, state)
	result.States[r.Aggregate] = state
	result.Seeds[r.Aggregate] = seed

	if step.ExpectError != "" {
		result.AddError(fmt.Sprintf("step %d: rebuild %s: expected error %s, got state %s",
			i, r.Aggregate, step.ExpectError, formatObject(state)))
	}
	if expect != nil && !ir.Equal(expect, state) {
		result.AddError(fmt.Sprintf("step %d: rebuild %s: expected state %s, got %s",
			i, r.Aggregate, formatObject(expect), formatObject(state)))
	}

	h.logger.Debug("rebuild step completed", "step", i, "aggregate_id", r.Aggregate)
	return nil
}

// errorCode returns the ledger error code of err, or "INTERNAL" for errors
// that carry none.
func errorCode(err error) string {
	if code := eventlog.CodeOf(err); code != "" {
		return string(code)
	}
	return "INTERNAL"
}

func formatObject(obj ir.IRObject) string {
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Sprintf("%v", map[string]ir.IRValue(obj))
	}
	return string(data)
}
