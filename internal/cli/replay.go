package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-chi-calculator/internal/tape"
)

// ReplayResult is the JSON payload of the replay command.
type ReplayResult struct {
	Tapes  []*tape.Report `json:"tapes"`
	Total  int            `json:"total"`
	Failed int            `json:"failed"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <tape-or-dir...>",
		Short: "Replay key tapes and check their expectations",
		Long: `Replay YAML key tapes against a fresh calculator and check the expected
display after every step. Directories are searched for *.yaml and *.yml.

Exit codes:
  0 - Every tape matched
  1 - At least one expectation failed
  2 - Command error (unreadable or invalid tape)

Examples:
  calc replay tapes/
  calc replay tapes/chain.yaml --verbose
  calc replay tapes/ --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd, args)
		},
	}
}

func runReplay(opts *RootOptions, cmd *cobra.Command, paths []string) error {
	tapes, err := tape.LoadPaths(paths)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load tapes", err)
	}
	if len(tapes) == 0 {
		return NewExitError(ExitCommandError, "no tapes found")
	}

	reports, err := tape.RunAll(tapes)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay tapes", err)
	}

	result := ReplayResult{Tapes: reports, Total: len(reports)}
	for _, r := range reports {
		if !r.Passed() {
			result.Failed++
		}
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_MISMATCH", Message: "tape expectations failed"}
		}
		if err := writeJSON(w, resp); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if opts.Verbose || !r.Passed() {
				fmt.Fprint(w, r.Transcript())
				fmt.Fprintln(w)
				continue
			}
			fmt.Fprintf(w, "✓ %s\n", r.Name)
		}
		fmt.Fprintf(w, "%d tape(s), %d failed\n", result.Total, result.Failed)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d tape(s) failed", result.Failed))
	}
	return nil
}
