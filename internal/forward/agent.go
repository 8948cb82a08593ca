package forward

import (
	"bufio"
	"os"
	"runtime"
	"strings"
)

// Agent renders the outbound User-Agent header: "<proxy-id>/<version>
// (<os>/<release>)". proxyID already embeds the version (e.g.
// "adlu-proxy-1.0.0"), matching the original's env!("CARGO_PKG_VERSION")
// composition, and version is appended again after the slash: proxyID
// "adlu-proxy-1.0.0" with version "1.0.0" gives
// "adlu-proxy-1.0.0/1.0.0 (<os>/<release>)".
func Agent(proxyID, version string) string {
	return proxyID + "/" + version + " (" + runtime.GOOS + "/" + osRelease() + ")"
}

// osRelease is a best-effort equivalent of sys_info::os_release(): on
// Linux it reads VERSION_ID out of /etc/os-release; everywhere else (and
// on any read failure) it falls back to "unknown". There is no shared
// library for this in the retrieved corpus, so it's implemented directly
// against the one well-known file format it needs to parse.
func osRelease() string {
	if runtime.GOOS != "linux" {
		return "unknown"
	}
	f, err := os.Open("/etc/os-release")
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VERSION_ID=") {
			continue
		}
		v := strings.TrimPrefix(line, "VERSION_ID=")
		return strings.Trim(v, `"`)
	}
	return "unknown"
}
