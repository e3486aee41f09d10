package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/session"
)

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) error {
	if err := observability.InitLogger(cfg.Log.Level, cfg.Log.Development); err != nil {
		return WrapExitError(ExitCommandError, "failed to initialise logger", err)
	}
	return nil
}

func openStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		st, err := session.OpenSQLite(cfg.Store.DSN)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open session store", err)
		}
		return st, nil
	default:
		return session.NewMemoryStore(), nil
	}
}

// initTelemetry starts the OTLP exporters switched on in cfg and registers
// the calculator instruments. The returned shutdown flushes every provider
// that was started.
func initTelemetry(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.TelemetryEnabled() {
		observability.Logger.Info("telemetry export disabled",
			zap.String("service", cfg.Telemetry.ServiceName),
		)
		if err := calculator.InitMetrics(); err != nil {
			return nil, err
		}
		return func(context.Context) error { return nil }, nil
	}

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	name := cfg.Telemetry.ServiceName

	if cfg.Telemetry.Traces {
		fn, err := observability.InitTracing(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", errors.Join(err, shutdown(ctx)))
		}
		shutdowns = append(shutdowns, fn)
	}

	if cfg.Telemetry.Metrics {
		fn, err := observability.InitMetrics(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", errors.Join(err, shutdown(ctx)))
		}
		shutdowns = append(shutdowns, fn)
	}

	if cfg.Telemetry.Logs {
		fn, err := observability.InitLogging(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("init log export: %w", errors.Join(err, shutdown(ctx)))
		}
		shutdowns = append(shutdowns, fn)
	}

	// Instruments bind to whichever meter provider is global now.
	if err := calculator.InitMetrics(); err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}

	return shutdown, nil
}
