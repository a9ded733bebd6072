package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/trustledger/internal/compiler"
	"github.com/roach88/trustledger/internal/ir"
	"github.com/roach88/trustledger/internal/ledger"
	"github.com/roach88/trustledger/internal/projector"
)

// RulesFileResult is the validation outcome for one rules file.
type RulesFileResult struct {
	File   string                     `json:"file"`
	Valid  bool                       `json:"valid"`
	Rules  []string                   `json:"rules,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// RulesValidateResult is the JSON payload of rules validate.
type RulesValidateResult struct {
	Files []RulesFileResult `json:"files"`
	Valid bool              `json:"valid"`
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect declarative transition rules",
	}

	cmd.AddCommand(newRulesValidateCommand(rootOpts))
	cmd.AddCommand(newRulesListCommand(rootOpts))
	return cmd
}

func newRulesValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules.cue>...",
		Short: "Compile and validate CUE rules files",
		Long: `Compile CUE rules files and validate every rule. Rules must not
redeclare an event type, either across files or over a built-in event type.

Exit codes:
  0 - All rules are valid
  1 - One or more rules are invalid
  2 - Command error

Examples:
  trustledger rules validate ./rules/account_extras.cue
  trustledger rules validate ./rules/*.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesValidate(opts, args, cmd)
		},
	}
}

func runRulesValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	result := validateRulesFiles(files)

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeRules, Message: "invalid rules"}
		}
		if err := opts.Formatter(cmd).JSON(resp); err != nil {
			return err
		}
	} else {
		outputRulesText(cmd.OutOrStdout(), result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "invalid rules")
	}
	return nil
}

// validateRulesFiles compiles every file and validates the union of their
// rules, including collisions with the built-in event types.
func validateRulesFiles(files []string) RulesValidateResult {
	result := RulesValidateResult{
		Files: make([]RulesFileResult, 0, len(files)),
		Valid: true,
	}

	builtins := projector.NewAccountRegistry()
	seen := make(map[string]string)

	for _, file := range files {
		fr := RulesFileResult{File: file, Valid: true}

		specs, err := compiler.CompileRulesFile(file)
		if err != nil {
			fr.Valid = false
			fr.Errors = []compiler.ValidationError{{Field: file, Message: err.Error(), Code: ErrCodeRules}}
			result.Files = append(result.Files, fr)
			result.Valid = false
			continue
		}

		fr.Errors = append(fr.Errors, compiler.ValidateAll(specs)...)
		for _, spec := range specs {
			fr.Rules = append(fr.Rules, spec.EventType)
			fr.Errors = append(fr.Errors, checkCollision(spec, builtins, seen, file)...)
		}

		if len(fr.Errors) > 0 {
			fr.Valid = false
			result.Valid = false
		}
		result.Files = append(result.Files, fr)
	}

	return result
}

func checkCollision(spec ir.RuleSpec, builtins *projector.Registry, seen map[string]string, file string) []compiler.ValidationError {
	field := "rule." + spec.EventType
	if _, ok := builtins.Lookup(spec.EventType); ok {
		return []compiler.ValidationError{{
			Field:   field,
			Message: "redeclares a built-in event type",
			Code:    compiler.ErrDuplicateRule,
		}}
	}
	if prev, ok := seen[spec.EventType]; ok && prev != file {
		return []compiler.ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("already declared in %s", prev),
			Code:    compiler.ErrDuplicateRule,
		}}
	}
	seen[spec.EventType] = file
	return nil
}

func outputRulesText(w io.Writer, result RulesValidateResult) {
	for _, f := range result.Files {
		if f.Valid {
			fmt.Fprintf(w, "✓ %s (%d rules)\n", f.File, len(f.Rules))
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", f.File)
		for _, e := range f.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}
}

func newRulesListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the event types the projector can apply",
		Long: `List the registered event types: the built-in account events plus
every rule loaded from --rules and TRUSTLEDGER_RULES.

Examples:
  trustledger rules list
  trustledger rules list --rules ./rules/account_extras.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Config()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}

			l, err := ledger.New(cfg, ledger.WithLogger(opts.Logger(cfg, cmd.ErrOrStderr())))
			if err != nil {
				return WrapExitError(ExitFailure, "failed to load rules", err)
			}
			defer l.Close()

			types := l.Registry().Types()
			if opts.Format == "json" {
				return opts.Formatter(cmd).JSON(CLIResponse{Status: "ok", Data: types, LedgerID: l.ID()})
			}
			for _, t := range types {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}
