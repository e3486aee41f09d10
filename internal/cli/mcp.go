package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-chi-calculator/internal/mcpserver"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/session"
)

// NewMCPCommand creates the mcp command.
func NewMCPCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve calculator tools over MCP on stdio",
		Long: `Serve calculator sessions as MCP tools on stdin/stdout. Logs go to stderr.

Tools: calculator_new_session, calculator_press, calculator_state,
calculator_clear, calculator_evaluate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(rootOpts)
		},
	}
}

func runMCP(opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := initLogger(cfg); err != nil {
		return err
	}
	defer observability.SyncLogger()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	observability.Logger.Info("mcp server starting", zap.String("store", cfg.Store.Driver))

	srv := mcpserver.New(session.NewManager(store), Version)
	if err := srv.ServeStdio(); err != nil {
		return WrapExitError(ExitFailure, "mcp server stopped", err)
	}
	return nil
}
