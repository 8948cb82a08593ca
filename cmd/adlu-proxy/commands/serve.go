// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/adlu-proxy/internal/dispatch"
	"github.com/ManuGH/adlu-proxy/internal/forward"
	"github.com/ManuGH/adlu-proxy/internal/server"
	"github.com/ManuGH/adlu-proxy/internal/telemetry"
	"github.com/ManuGH/adlu-proxy/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serveModeFlag string
	serveSSLFlag  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proxy server",
	Long: `Serve runs the HTTP(S) reverse proxy under the configured (or
flag-overridden) mode: connected, store, isolated, or forward.

Examples:
  adlu-proxy serve
  adlu-proxy serve --mode i
  adlu-proxy serve --config /etc/adlu-proxy/config.toml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveModeFlag, "mode", "", "override the configured mode: c (connected), s (store), i (isolated), p (forward)")
	serveCmd.Flags().BoolVar(&serveSSLFlag, "ssl", true, "serve HTTPS alongside plain HTTP")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg, "serve")
	if err != nil {
		return err
	}

	mode, err := resolveMode(cfg.Proxy.Mode, serveModeFlag)
	if err != nil {
		return err
	}

	c, err := openCache(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Msg("closing cache")
		}
	}()

	fwd, err := buildForward(cfg)
	if err != nil {
		return err
	}

	tp, err := telemetry.NewProvider(cmd.Context(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "adlu-proxy",
		ServiceVersion: version.Version,
		Environment:    cfg.Proxy.Mode,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutting down telemetry provider")
		}
	}()

	proxyID := forward.ProxyID(version.Version)
	srv := server.New(cfg, mode, c, fwd, proxyID, logger)
	srv.SetSSLEnabled(serveSSLFlag)

	ctx, stop := notifyOnce(logger)
	defer stop()

	logger.Info().Stringer("mode", mode).Msg("starting adlu-proxy")
	return srv.Run(ctx)
}

// resolveMode applies the --mode flag (single-letter) over the config
// file's full-word proxy.mode, falling back to the latter when the flag
// is unset.
func resolveMode(configured, flag string) (dispatch.Mode, error) {
	if flag != "" {
		return dispatch.ParseMode(flag)
	}
	return dispatch.ParseModeName(configured)
}

// notifyOnce returns a context canceled on the first SIGINT/SIGTERM;
// every subsequent signal is logged and otherwise ignored, matching the
// original's "first Ctrl-C shuts down gracefully, further presses are
// just noise" behavior.
func notifyOnce(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		first := true
		for range sigCh {
			if first {
				first = false
				logger.Info().Msg("shutdown signal received, stopping gracefully")
				cancel()
				continue
			}
			logger.Info().Msg("shutdown already in progress, ignoring repeated signal")
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
