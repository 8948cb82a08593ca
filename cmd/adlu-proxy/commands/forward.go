// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package commands

import (
	"context"
	"fmt"

	"github.com/ManuGH/adlu-proxy/internal/replay"
	"github.com/ManuGH/adlu-proxy/internal/server"
	"github.com/spf13/cobra"
)

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Forward queued requests and print a summary",
	Long: `Forward reads every request left unanswered in the cache, sends each
one to Adobe in stored order, and prints how many succeeded and failed.
Successful sends retire their queued entry; failures are left in place
for a future run.`,
	RunE: runForward,
}

func runForward(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg, "forward")
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

	summary, err := replay.Run(context.Background(), c, fwd, logger)
	if err != nil {
		return fmt.Errorf("forward: %w", err)
	}

	for i := 0; i < summary.Successes; i++ {
		server.ObserveReplay(true)
	}
	for i := 0; i < summary.Failures; i++ {
		server.ObserveReplay(false)
	}

	fmt.Printf("found %d unanswered request(s): %d succeeded, %d failed\n",
		summary.Found, summary.Successes, summary.Failures)
	return nil
}
