// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package commands

import (
	"fmt"

	"github.com/ManuGH/adlu-proxy/internal/cache"
	"github.com/spf13/cobra"
)

// importExportSource is FRL-only for now (spec: "cache interchange (FRL
// only in current scope)").
const importExportSource = cache.DatasourceFRL

var importCmd = &cobra.Command{
	Use:   "import <from-path>",
	Short: "Import cached FRL activations from another store",
	Long: `Import opens the file-backed store at <from-path> the same way the
cache itself is opened, replays every answered request/response pair
against the current cache in timestamp-ascending order, and reports how
many were imported. The store is not opened read-only: a missing
<from-path> is created as an empty store, and schema version rows are
written to it when absent or older.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <to-path>",
	Short: "Export unanswered FRL requests to a new store",
	Long: `Export creates a new file-backed store at <to-path> and copies every
currently unanswered FRL request into it. Fails if <to-path> already exists.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg, "import")
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

	n, err := c.Import(importExportSource, args[0])
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Printf("imported %d record(s) from %s\n", n, args[0])
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg, "export")
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

	n, err := c.Export(importExportSource, args[0])
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Printf("exported %d record(s) to %s\n", n, args[0])
	return nil
}
