// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "fmt"

// Load builds the full, validated Config: compiled-in defaults, merged with
// the file at path (if it exists), then with ADLU_PROXY_-prefixed
// environment variables. CLI flag overrides are applied by the caller on
// the returned Config before any operation that depends on them runs.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		if err := MergeFile(cfg, path); err != nil {
			return nil, err
		}
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
