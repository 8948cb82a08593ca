// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// Config holds the proxy's full runtime configuration, layered from compiled-in
// defaults, an optional TOML file, environment variables, and finally CLI flags.
type Config struct {
	Proxy     ProxyConfig     `toml:"proxy"`
	SSL       SSLConfig       `toml:"ssl"`
	Logging   LoggingConfig   `toml:"logging"`
	Cache     CacheConfig     `toml:"cache"`
	Network   NetworkConfig   `toml:"network"`
	FRL       RemoteConfig    `toml:"frl"`
	Log       RemoteConfig    `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// ProxyConfig controls how the proxy listens and which mode it serves requests in.
type ProxyConfig struct {
	// Mode is one of "connected", "store", "isolated", "forward".
	Mode    string `toml:"mode"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	SSLPort int    `toml:"ssl_port"`
}

// SSLConfig describes the server certificate the proxy presents over HTTPS.
// At most one of (UsePFX with CertPath) or (CertPath+KeyPath) is expected;
// if neither is set, the proxy falls back to a generated self-signed pair.
type SSLConfig struct {
	UsePFX       bool   `toml:"use_pfx"`
	CertPath     string `toml:"cert_path"`
	KeyPath      string `toml:"key_path"`
	CertPassword string `toml:"cert_password"`
}

// LoggingConfig controls the ambient structured-logging surface.
type LoggingConfig struct {
	Level       string `toml:"level"`
	Destination string `toml:"destination"` // "stderr" or "file"
	FilePath    string `toml:"file_path"`
}

// CacheConfig points at the embedded SQLite store.
type CacheConfig struct {
	DBPath string `toml:"db_path"`
}

// NetworkConfig groups outbound network settings.
type NetworkConfig struct {
	Outbound OutboundProxyConfig `toml:"outbound"`
}

// OutboundProxyConfig describes an optional forward proxy for outbound
// requests to the Adobe endpoints.
type OutboundProxyConfig struct {
	Enabled      bool   `toml:"enabled"`
	Protocol     string `toml:"protocol"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	UseBasicAuth bool   `toml:"use_basic_auth"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
}

// RemoteConfig names an upstream host the proxy forwards requests to.
type RemoteConfig struct {
	RemoteHost string `toml:"remote_host"`
}

// TelemetryConfig controls OpenTelemetry request tracing. Disabled by
// default; the trace/span IDs it produces are folded into the structured
// log line for every request once enabled.
type TelemetryConfig struct {
	Enabled bool `toml:"enabled"`
	// Exporter is "grpc" or "http".
	Exporter string `toml:"exporter"`
	// Endpoint is the OTLP collector address, e.g. "localhost:4317".
	Endpoint string `toml:"endpoint"`
	// SamplingRate is between 0.0 (never) and 1.0 (always).
	SamplingRate float64 `toml:"sampling_rate"`
}
