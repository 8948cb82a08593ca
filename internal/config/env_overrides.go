// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// envPrefix is prepended to every dotted config key this proxy reads from
// the environment, e.g. ADLU_PROXY_PROXY_MODE for proxy.mode.
const envPrefix = "ADLU_PROXY_"

// ApplyEnv overrides cfg's fields from ADLU_PROXY_-prefixed environment
// variables, logging each override's source via the ParseString/ParseInt/
// ParseBool helpers (which themselves redact token/password-like keys).
func ApplyEnv(cfg *Config) {
	cfg.Proxy.Mode = ParseString(envPrefix+"PROXY_MODE", cfg.Proxy.Mode)
	cfg.Proxy.Host = ParseString(envPrefix+"PROXY_HOST", cfg.Proxy.Host)
	cfg.Proxy.Port = ParseInt(envPrefix+"PROXY_PORT", cfg.Proxy.Port)
	cfg.Proxy.SSLPort = ParseInt(envPrefix+"PROXY_SSL_PORT", cfg.Proxy.SSLPort)

	cfg.SSL.UsePFX = ParseBool(envPrefix+"SSL_USE_PFX", cfg.SSL.UsePFX)
	cfg.SSL.CertPath = ParseString(envPrefix+"SSL_CERT_PATH", cfg.SSL.CertPath)
	cfg.SSL.KeyPath = ParseString(envPrefix+"SSL_KEY_PATH", cfg.SSL.KeyPath)
	cfg.SSL.CertPassword = ParseString(envPrefix+"SSL_CERT_PASSWORD", cfg.SSL.CertPassword)

	cfg.Logging.Level = ParseString(envPrefix+"LOGGING_LEVEL", cfg.Logging.Level)
	cfg.Logging.Destination = ParseString(envPrefix+"LOGGING_DESTINATION", cfg.Logging.Destination)
	cfg.Logging.FilePath = ParseString(envPrefix+"LOGGING_FILE_PATH", cfg.Logging.FilePath)

	cfg.Cache.DBPath = ParseString(envPrefix+"CACHE_DB_PATH", cfg.Cache.DBPath)

	cfg.Network.Outbound.Enabled = ParseBool(envPrefix+"NETWORK_OUTBOUND_ENABLED", cfg.Network.Outbound.Enabled)
	cfg.Network.Outbound.Protocol = ParseString(envPrefix+"NETWORK_OUTBOUND_PROTOCOL", cfg.Network.Outbound.Protocol)
	cfg.Network.Outbound.Host = ParseString(envPrefix+"NETWORK_OUTBOUND_HOST", cfg.Network.Outbound.Host)
	cfg.Network.Outbound.Port = ParseInt(envPrefix+"NETWORK_OUTBOUND_PORT", cfg.Network.Outbound.Port)
	cfg.Network.Outbound.UseBasicAuth = ParseBool(envPrefix+"NETWORK_OUTBOUND_USE_BASIC_AUTH", cfg.Network.Outbound.UseBasicAuth)
	cfg.Network.Outbound.Username = ParseString(envPrefix+"NETWORK_OUTBOUND_USERNAME", cfg.Network.Outbound.Username)
	cfg.Network.Outbound.Password = ParseString(envPrefix+"NETWORK_OUTBOUND_PASSWORD", cfg.Network.Outbound.Password)

	cfg.FRL.RemoteHost = ParseString(envPrefix+"FRL_REMOTE_HOST", cfg.FRL.RemoteHost)
	cfg.Log.RemoteHost = ParseString(envPrefix+"LOG_REMOTE_HOST", cfg.Log.RemoteHost)

	cfg.Telemetry.Enabled = ParseBool(envPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(envPrefix+"TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(envPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(envPrefix+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
