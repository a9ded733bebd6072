package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/trustledger/internal/ir"
	"github.com/roach88/trustledger/internal/ledger"
)

// DemoResult is the JSON payload of the demo command.
type DemoResult struct {
	Events []ir.Event             `json:"events"`
	States map[string]ir.IRObject `json:"states"`
}

type demoAppend struct {
	aggregate string
	eventType string
	payload   ir.IRObject
}

var demoEvents = []demoAppend{
	{"User-101", "AccountCreated", ir.IRObject{"initialBalance": ir.IRInt(100)}},
	{"User-101", "BalanceCredited", ir.IRObject{"amount": ir.IRInt(50)}},
	{"User-101", "FundsWithdrawn", ir.IRObject{"amount": ir.IRInt(20)}},
	{"User-102", "AccountCreated", ir.IRObject{"initialBalance": ir.IRInt(500)}},
}

func demoSeed() ir.IRObject {
	return ir.IRObject{"status": ir.IRString("pending"), "balance": ir.IRInt(0)}
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Record sample events and rebuild two accounts",
		Long: `Record four events for two accounts and rebuild both from
{"status":"pending","balance":0}.

User-101 ends with balance 100 + 50 - 20 = 130, User-102 with 500.

Examples:
  trustledger demo
  trustledger demo --backend sqlite --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(rootOpts, cmd)
		},
	}
	return cmd
}

func runDemo(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.Formatter(cmd)

	cfg, err := opts.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	l, err := ledger.New(cfg, ledger.WithLogger(opts.Logger(cfg, cmd.ErrOrStderr())))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer l.Close()

	formatter.VerboseLog("Ledger %s (backend %s)", l.ID(), l.Backend())

	for _, d := range demoEvents {
		if _, err := l.Append(ctx, d.aggregate, d.eventType, d.payload); err != nil {
			_ = formatter.Fail(l.ID(), fmt.Sprintf("append %s/%s failed", d.aggregate, d.eventType), err, ErrCodeGeneric)
			return WrapExitError(ExitFailure, "append failed", err)
		}
	}

	result := DemoResult{States: make(map[string]ir.IRObject)}
	if result.Events, err = l.Events(ctx); err != nil {
		return WrapExitError(ExitFailure, "read log failed", err)
	}

	aggregates, err := l.Aggregates(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "read log failed", err)
	}
	for _, agg := range aggregates {
		state, err := l.Rebuild(ctx, agg, demoSeed())
		if err != nil {
			_ = formatter.Fail(l.ID(), fmt.Sprintf("rebuild %s failed", agg), err, ErrCodeGeneric)
			return WrapExitError(ExitFailure, "rebuild failed", err)
		}
		result.States[agg] = state
	}

	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result, LedgerID: l.ID()})
	}
	return outputDemoText(cmd.OutOrStdout(), aggregates, result)
}

func outputDemoText(w io.Writer, aggregates []string, result DemoResult) error {
	fmt.Fprintln(w, "--- TrustLedger: Event Log ---")
	for _, e := range result.Events {
		fmt.Fprintf(w, "#%d %s %s %s\n", e.ID, e.AggregateID, e.EventType, canonicalString(e.Payload))
	}

	for _, agg := range aggregates {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "--- TrustLedger: Rebuilding State for %s ---\n", agg)
		fmt.Fprintf(w, "Rebuilt Current State: %s\n", canonicalString(result.States[agg]))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Expected Balance: 100 + 50 - 20 = 130")
	return nil
}

func canonicalString(obj ir.IRObject) string {
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Sprintf("%v", map[string]ir.IRValue(obj))
	}
	return string(data)
}
