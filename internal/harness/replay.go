package harness

import (
	"context"
	"fmt"

	"github.com/roach88/trustledger/internal/ir"
)

// AggregateReplay is the determinism check for one aggregate.
type AggregateReplay struct {
	Aggregate     string `json:"aggregate"`
	Digest        string `json:"digest,omitempty"`
	Error         string `json:"error,omitempty"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayReport is the outcome of Replay.
type ReplayReport struct {
	Scenario         string            `json:"scenario"`
	Events           int               `json:"events"`
	LogDigest        string            `json:"log_digest"`
	LogDeterministic bool              `json:"log_deterministic"`
	Aggregates       []AggregateReplay `json:"aggregates"`
	Deterministic    bool              `json:"deterministic"`
}

// Replay checks that a scenario is deterministic.
//
// The scenario runs twice on fresh ledgers and the two log digests must
// match. Then every aggregate of the first ledger is rebuilt twice, from the
// seed of the scenario's last rebuild of that aggregate (or an empty object),
// and the state digests must match. Step expectations are not evaluated.
func Replay(scenario *Scenario, opts ...Option) (*ReplayReport, error) {
	ctx := context.Background()

	first, err := newHarness(scenario, opts...)
	if err != nil {
		return nil, err
	}
	defer first.ledger.Close()

	result, err := first.run(ctx, scenario)
	if err != nil {
		return nil, err
	}

	second, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}

	events, err := first.ledger.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	report := &ReplayReport{
		Scenario:         scenario.Name,
		Events:           len(events),
		LogDigest:        result.LogDigest,
		LogDeterministic: result.LogDigest == second.LogDigest,
		Aggregates:       []AggregateReplay{},
	}
	report.Deterministic = report.LogDeterministic

	aggregates, err := first.ledger.Aggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}

	for _, agg := range aggregates {
		seed := result.Seeds[agg]
		entry := replayAggregate(ctx, first, agg, seed)
		if !entry.Deterministic {
			report.Deterministic = false
		}
		report.Aggregates = append(report.Aggregates, entry)
	}

	first.logger.Info("replay finished",
		"deterministic", report.Deterministic,
		"aggregates", len(report.Aggregates),
	)
	return report, nil
}

func replayAggregate(ctx context.Context, h *Harness, aggregateID string, seed ir.IRObject) AggregateReplay {
	entry := AggregateReplay{Aggregate: aggregateID}

	digest := func() (string, string) {
		state, err := h.ledger.Rebuild(ctx, aggregateID, seed)
		if err != nil {
			return "", errorCode(err)
		}
		d, err := ir.StateDigest(state)
		if err != nil {
			return "", errorCode(err)
		}
		return d, ""
	}

	d1, e1 := digest()
	d2, e2 := digest()

	entry.Digest = d1
	entry.Error = e1
	entry.Deterministic = d1 == d2 && e1 == e2
	return entry
}
