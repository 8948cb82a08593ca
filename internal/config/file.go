// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// MergeFile decodes the TOML file at path onto cfg, overwriting only the
// keys present in the file and leaving everything else (the defaults
// already populated on cfg) untouched.
func MergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parsing %q: %w", path, err)
	}
	return nil
}

// Save renders cfg as TOML and writes it to path, overwriting any existing
// file. Used by the interactive `configure` command to persist the
// operator's answers.
func Save(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing %q: %w", path, err)
	}
	return nil
}

// MergeFileStrict behaves like MergeFile but rejects any key in the file
// that doesn't correspond to a known Config field, wrapping the decode
// error in ErrUnknownConfigField, so a typo'd key surfaces immediately
// rather than silently being ignored.
func MergeFileStrict(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %q: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			return fmt.Errorf("config: %q: %w: %s", path, ErrUnknownConfigField, strictErr.String())
		}
		return fmt.Errorf("config: parsing %q: %w", path, err)
	}
	return nil
}
