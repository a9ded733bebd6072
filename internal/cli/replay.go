package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/trustledger/internal/harness"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scenario and verify determinism",
		Long: `Run a scenario twice on fresh ledgers and verify that both logs are
identical, then rebuild every aggregate twice and verify that the states
are identical.

Exit codes:
  0 - Log and every aggregate are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (scenario not found, invalid configuration, etc.)

Examples:
  trustledger replay account.yaml
  trustledger replay account.yaml --backend sqlite --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	report, err := harness.Replay(scenario,
		harness.WithConfig(cfg),
		harness.WithLogger(opts.Logger(cfg, cmd.ErrOrStderr())),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay scenario", err)
	}

	if opts.Format == "json" {
		return outputReplayJSON(opts.Formatter(cmd), report)
	}
	return outputReplayText(cmd.OutOrStdout(), report, opts.Verbose)
}

func outputReplayJSON(f *OutputFormatter, report *harness.ReplayReport) error {
	resp := CLIResponse{Status: "ok", Data: report}
	if !report.Deterministic {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "replay produced different results",
		}
	}

	if err := f.JSON(resp); err != nil {
		return err
	}
	if !report.Deterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(w io.Writer, report *harness.ReplayReport, verbose bool) error {
	fmt.Fprintf(w, "Replaying scenario %s (%d events)\n", report.Scenario, report.Events)

	if report.LogDeterministic {
		fmt.Fprintf(w, "✓ log %s\n", report.LogDigest)
	} else {
		fmt.Fprintln(w, "✗ log differs between runs")
	}

	for _, agg := range report.Aggregates {
		switch {
		case !agg.Deterministic:
			fmt.Fprintf(w, "✗ %s: state differs between rebuilds\n", agg.Aggregate)
		case agg.Error != "":
			fmt.Fprintf(w, "✓ %s (rejected with %s)\n", agg.Aggregate, agg.Error)
		case verbose:
			fmt.Fprintf(w, "✓ %s %s\n", agg.Aggregate, agg.Digest)
		default:
			fmt.Fprintf(w, "✓ %s\n", agg.Aggregate)
		}
	}

	fmt.Fprintln(w)
	if !report.Deterministic {
		fmt.Fprintln(w, "Determinism verification FAILED")
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	fmt.Fprintf(w, "Deterministic: %d aggregate(s) verified\n", len(report.Aggregates))
	return nil
}
