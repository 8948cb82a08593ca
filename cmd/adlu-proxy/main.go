// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command adlu-proxy is the licensing reverse proxy's entrypoint: a cobra
// command tree over configure/serve/forward/clear/import/export/report.
package main

import (
	"os"

	"github.com/ManuGH/adlu-proxy/cmd/adlu-proxy/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("%v", err)
		os.Exit(1)
	}
}
