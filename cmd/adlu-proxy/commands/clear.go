// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package commands

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var clearYesFlag bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cache",
	Long:  `Clear removes every stored request and response from the cache. This cannot be undone.`,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYesFlag, "yes", "y", false, "skip the confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearYesFlag {
		confirmed, err := confirmDestructive("Really clear the cache? This operation cannot be undone.")
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("aborted, cache left untouched")
			return nil
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg, "clear")
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

	if err := c.Clear(); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	fmt.Println("cache cleared")
	return nil
}

// confirmDestructive prompts with promptui's built-in y/N confirm flow,
// defaulting to no.
func confirmDestructive(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
