package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/server"
	"go-chi-calculator/internal/session"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calculator HTTP service",
		Long: `Run the calculator HTTP service until SIGINT or SIGTERM.

Examples:
  calc serve
  calc serve --addr :9090
  calc serve --config calc.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}

	if err := initLogger(cfg); err != nil {
		return err
	}
	defer observability.SyncLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	return serve(ctx, cfg, ln)
}

// serve runs the service on ln until ctx is done, then drains in-flight
// requests for at most server.shutdown_timeout.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	telemetryShutdown, err := initTelemetry(ctx, cfg)
	if err != nil {
		ln.Close()
		return WrapExitError(ExitCommandError, "failed to initialise telemetry", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			observability.Logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		ln.Close()
		return err
	}
	defer store.Close()

	calc := calculator.NewHandler(session.NewManager(store))
	restored, err := calc.SyncActiveSessions(ctx)
	if err != nil {
		ln.Close()
		return WrapExitError(ExitCommandError, "failed to read session store", err)
	}
	router := server.NewRouter(calc, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", ln.Addr().String()),
			zap.String("store", cfg.Store.Driver),
			zap.Int("sessions", restored),
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	observability.Logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
