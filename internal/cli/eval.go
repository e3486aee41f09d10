package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go-chi-calculator/internal/engine"
)

// EvalResult is the JSON payload of the eval command.
type EvalResult struct {
	Keys    string        `json:"keys"`
	Display string        `json:"display"`
	Phase   engine.Phase  `json:"phase"`
	Steps   []engine.Step `json:"steps"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <keys...>",
		Short: "Press keys on a fresh calculator and print the display",
		Long: `Press keys on a fresh calculator and print the display.

Keys: 0-9 . + - × ÷ (or * /) = C % +/-. Numbers expand to one key per digit.

Examples:
  calc eval 12 + 3 =
  calc eval "2 ÷ 3 =" --verbose
  calc eval 5 / 0 = --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(rootOpts, cmd, args)
		},
	}
}

func runEval(opts *RootOptions, cmd *cobra.Command, args []string) error {
	keys, err := engine.ParseKeys(strings.Join(args, " "))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid keys", err)
	}

	state := engine.NewState()
	steps, err := state.Run(keys)
	if err != nil {
		return WrapExitError(ExitCommandError, "evaluation failed", err)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{
			Status: "ok",
			Data: EvalResult{
				Keys:    engine.FormatKeys(keys),
				Display: state.Display,
				Phase:   state.Phase(),
				Steps:   steps,
			},
		})
	}

	if opts.Verbose {
		for _, st := range steps {
			line := fmt.Sprintf("%-4s %s", st.Key, st.Display)
			if st.Fallback != "" {
				line += " (" + st.Fallback + ")"
			}
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w, state.Display)
	return nil
}
