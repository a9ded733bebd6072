package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/trustledger/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string   // "json" | "text"
	Backend     string   // overrides TRUSTLEDGER_BACKEND when set
	PayloadMode string   // overrides TRUSTLEDGER_PAYLOAD_MODE when set
	Rules       []string // appended to TRUSTLEDGER_RULES
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the trustledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "trustledger",
		Short: "TrustLedger - append-only event log with deterministic replay",
		Long: `An append-only, immutable log of domain events plus a projector that
rebuilds the current state of any aggregate by folding its events over a seed.

Configuration is read from TRUSTLEDGER_* environment variables; the global
flags below override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "journal backend (memory|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.PayloadMode, "payload-mode", "", "payload mode (lenient|strict)")
	cmd.PersistentFlags().StringArrayVar(&opts.Rules, "rules", nil, "CUE rules file (repeatable)")

	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))

	return cmd
}

// Config loads the environment configuration and applies flag overrides.
func (o *RootOptions) Config() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if o.Backend != "" {
		cfg.Backend = config.Backend(o.Backend)
	}
	if o.PayloadMode != "" {
		cfg.PayloadMode = o.PayloadMode
	}
	cfg.RulesFiles = append(cfg.RulesFiles, o.Rules...)
	if o.Verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Logger builds the command logger. Logs always go to w (stderr) so JSON
// output on stdout stays parseable.
func (o *RootOptions) Logger(cfg config.Config, w io.Writer) *slog.Logger {
	return config.NewLogger(cfg, w)
}

// Formatter builds the output formatter for cmd.
func (o *RootOptions) Formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
