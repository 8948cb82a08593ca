// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package commands

import (
	"fmt"
	"os"

	"github.com/ManuGH/adlu-proxy/internal/cache"
	"github.com/spf13/cobra"
)

var (
	reportEmptyFlag   bool
	reportTimezone    bool
	reportRFC3339Flag bool
	reportKindFlag    string
)

var reportCmd = &cobra.Command{
	Use:   "report <to-path>",
	Short: "Write a CSV report over log or NUL sessions",
	Long: `Report writes a CSV file at <to-path> summarizing every session
observed in the cache, one row per session, with a fixed header for the
chosen --kind (log or nul). Timestamps follow --timezone/--rfc3339.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportEmptyFlag, "empty", false, "include sessions that carry no session-level info")
	reportCmd.Flags().BoolVar(&reportTimezone, "timezone", false, "render timestamps in local time instead of UTC")
	reportCmd.Flags().BoolVar(&reportRFC3339Flag, "rfc3339", false, "render timestamps as RFC-3339 (Z/space separator) instead of ISO-8601 (numeric offset)")
	reportCmd.Flags().StringVar(&reportKindFlag, "kind", "log", "session family to report over: log or nul")
}

func runReport(cmd *cobra.Command, args []string) error {
	source, err := cache.ParseDatasource(reportKindFlag)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg, "report")
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

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", args[0], err)
	}
	defer f.Close()

	if err := c.Report(source, f, reportEmptyFlag, reportTimezone, reportRFC3339Flag); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	fmt.Printf("wrote %s report to %s\n", source, args[0])
	return nil
}
