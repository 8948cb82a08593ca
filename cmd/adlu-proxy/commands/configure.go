// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package commands

import (
	"fmt"
	"strconv"

	"github.com/ManuGH/adlu-proxy/internal/config"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively update the config file",
	Long: `Configure walks through the proxy's mode, listen addresses, TLS
material, and cache path, then writes the result as a TOML config file at
--config (or ./adlu-proxy.toml when --config is unset).`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = "adlu-proxy.toml"
	}

	cfg, err := config.Defaults()
	if err != nil {
		return err
	}
	_ = config.MergeFile(cfg, path) // seed from any existing file; ignore a missing one

	mode, err := promptSelect("Proxy mode", []string{"connected", "store", "isolated", "forward"}, cfg.Proxy.Mode)
	if err != nil {
		return err
	}
	cfg.Proxy.Mode = mode

	cfg.Proxy.Host, err = promptInput("Listen host", cfg.Proxy.Host)
	if err != nil {
		return err
	}
	cfg.Proxy.Port, err = promptInt("Listen port (HTTP)", cfg.Proxy.Port)
	if err != nil {
		return err
	}
	cfg.Proxy.SSLPort, err = promptInt("Listen port (HTTPS)", cfg.Proxy.SSLPort)
	if err != nil {
		return err
	}

	cfg.Cache.DBPath, err = promptInput("Cache database path", cfg.Cache.DBPath)
	if err != nil {
		return err
	}

	cfg.FRL.RemoteHost, err = promptInput("FRL upstream endpoint", cfg.FRL.RemoteHost)
	if err != nil {
		return err
	}
	cfg.Log.RemoteHost, err = promptInput("Log upload upstream endpoint", cfg.Log.RemoteHost)
	if err != nil {
		return err
	}

	usePFX, err := promptConfirm("Use a PFX (PKCS#12) certificate instead of separate PEM cert+key?", cfg.SSL.UsePFX)
	if err != nil {
		return err
	}
	cfg.SSL.UsePFX = usePFX
	if usePFX {
		cfg.SSL.CertPath, err = promptInput("PFX path", cfg.SSL.CertPath)
		if err != nil {
			return err
		}
		cfg.SSL.CertPassword, err = promptPassword("PFX password")
		if err != nil {
			return err
		}
	} else {
		cfg.SSL.CertPath, err = promptInputOptional("PEM certificate path (leave blank for a self-signed pair)", cfg.SSL.CertPath)
		if err != nil {
			return err
		}
		if cfg.SSL.CertPath != "" {
			cfg.SSL.KeyPath, err = promptInput("PEM key path", cfg.SSL.KeyPath)
			if err != nil {
				return err
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Printf("wrote configuration to %s\n", path)
	return nil
}

func promptInput(label, defaultValue string) (string, error) {
	prompt := promptui.Prompt{Label: label, Default: defaultValue}
	return prompt.Run()
}

func promptInputOptional(label, defaultValue string) (string, error) {
	prompt := promptui.Prompt{Label: label + " (optional)", Default: defaultValue}
	result, err := prompt.Run()
	if err == promptui.ErrAbort {
		return "", nil
	}
	return result, err
}

func promptPassword(label string) (string, error) {
	prompt := promptui.Prompt{Label: label, Mask: '*'}
	return prompt.Run()
}

func promptInt(label string, defaultValue int) (int, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(defaultValue),
		Validate: func(input string) error {
			if _, err := strconv.Atoi(input); err != nil {
				return fmt.Errorf("must be a valid integer")
			}
			return nil
		},
	}
	result, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	value, _ := strconv.Atoi(result)
	return value, nil
}

func promptConfirm(label string, defaultYes bool) (bool, error) {
	defaultStr := "y/N"
	if defaultYes {
		defaultStr = "Y/n"
	}
	prompt := promptui.Prompt{Label: fmt.Sprintf("%s [%s]", label, defaultStr), IsConfirm: true}
	if defaultYes {
		prompt.Default = "y"
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

func promptSelect(label string, items []string, current string) (string, error) {
	cursor := 0
	for i, item := range items {
		if item == current {
			cursor = i
			break
		}
	}
	prompt := promptui.Select{Label: label, Items: items, CursorPos: cursor}
	_, result, err := prompt.Run()
	return result, err
}
