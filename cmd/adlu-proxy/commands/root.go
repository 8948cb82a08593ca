// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package commands implements the adlu-proxy CLI commands.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/ManuGH/adlu-proxy/internal/cache"
	"github.com/ManuGH/adlu-proxy/internal/config"
	"github.com/ManuGH/adlu-proxy/internal/forward"
	xlog "github.com/ManuGH/adlu-proxy/internal/log"
	"github.com/ManuGH/adlu-proxy/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Global flags.
var (
	cfgFile     string
	debugFlag   bool
	traceFlag   bool
	logDestFlag string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "adlu-proxy",
	Short: "A reverse proxy for Adobe desktop licensing traffic",
	Long: `adlu-proxy sits between Adobe desktop applications and Adobe's licensing
and telemetry endpoints. Depending on the configured mode, it forwards
requests upstream, serves them from a local durable cache, or queues them
for later batch replay.

Use "adlu-proxy [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (TOML, default: compiled-in defaults + environment)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "debug-level logging")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "dd", false, "trace-level logging (implies --debug)")
	rootCmd.PersistentFlags().StringVarP(&logDestFlag, "log-dest", "l", "", "log destination override: c (console/stderr) or f (file, per config)")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(forwardCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// loadConfig loads and validates the configuration from the --config flag
// (or compiled-in defaults + environment when unset).
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// initLogger configures the global structured logger from cfg, applying
// the -d/-dd/-l global flag overrides, and returns a component-scoped
// logger for the calling command.
func initLogger(cfg *config.Config, component string) (zerolog.Logger, error) {
	level := cfg.Logging.Level
	switch {
	case traceFlag:
		level = "trace"
	case debugFlag:
		level = "debug"
	}

	destination := cfg.Logging.Destination
	switch logDestFlag {
	case "c":
		destination = "stderr"
	case "f":
		destination = "file"
	}

	var writer io.Writer = os.Stderr
	if destination == "file" && cfg.Logging.FilePath != "" {
		f, err := os.OpenFile(cfg.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("opening log file: %w", err)
		}
		writer = f
	}

	xlog.Configure(xlog.Config{
		Level:   level,
		Output:  writer,
		Service: "adlu-proxy",
		Version: version.Version,
	})
	return xlog.WithComponent(component), nil
}

// openCache opens the configured cache database.
func openCache(cfg *config.Config, logger zerolog.Logger) (*cache.Cache, error) {
	return cache.OpenCache(cfg.Cache.DBPath, logger)
}

// buildForward builds the outbound forwarder from cfg.
func buildForward(cfg *config.Config) (*forward.Config, error) {
	proxy := forward.ProxyConfig{
		Enabled:      cfg.Network.Outbound.Enabled,
		Protocol:     cfg.Network.Outbound.Protocol,
		Host:         cfg.Network.Outbound.Host,
		Port:         cfg.Network.Outbound.Port,
		UseBasicAuth: cfg.Network.Outbound.UseBasicAuth,
		Username:     cfg.Network.Outbound.Username,
		Password:     cfg.Network.Outbound.Password,
	}
	return forward.NewConfig(cfg.FRL.RemoteHost, cfg.Log.RemoteHost, proxy, version.Version)
}
