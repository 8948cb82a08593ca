// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package commands

import (
	"testing"

	"github.com/ManuGH/adlu-proxy/internal/dispatch"
)

func TestResolveMode(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		flag       string
		want       dispatch.Mode
		wantErr    bool
	}{
		{"flag overrides config", "connected", "i", dispatch.Isolated, false},
		{"falls back to config when flag unset", "store", "", dispatch.Store, false},
		{"unset flag, full-word config value", "forward", "", dispatch.Forward, false},
		{"bad flag letter", "connected", "x", 0, true},
		{"bad config word", "sideways", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveMode(tt.configured, tt.flag)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveMode(%q, %q) expected error, got nil", tt.configured, tt.flag)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveMode(%q, %q) unexpected error: %v", tt.configured, tt.flag, err)
			}
			if got != tt.want {
				t.Errorf("resolveMode(%q, %q) = %v, want %v", tt.configured, tt.flag, got, tt.want)
			}
		})
	}
}
