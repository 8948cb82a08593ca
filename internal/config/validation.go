// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Validate checks that cfg is internally consistent, mirroring the
// original settings validation: a parseable bind address, an HTTPS Adobe
// endpoint, cert material present when SSL is on, a non-empty cache path,
// and a sane outbound-proxy configuration.
func (c *Config) Validate() error {
	host := strings.TrimSpace(c.Proxy.Host)
	if host == "" {
		return fmt.Errorf("proxy host can't be empty")
	}
	if net.ParseIP(host) == nil && host != "localhost" {
		return fmt.Errorf("proxy host must be a dotted IP address or 'localhost', got %q", host)
	}
	if c.Proxy.Port <= 0 || c.Proxy.Port > 65535 {
		return fmt.Errorf("proxy port must be between 1 and 65535, got %d", c.Proxy.Port)
	}
	if c.Proxy.SSLPort <= 0 || c.Proxy.SSLPort > 65535 {
		return fmt.Errorf("proxy ssl_port must be between 1 and 65535, got %d", c.Proxy.SSLPort)
	}

	switch c.Proxy.Mode {
	case "connected", "store", "isolated", "forward":
	default:
		return fmt.Errorf("proxy mode must be one of connected/store/isolated/forward, got %q", c.Proxy.Mode)
	}

	if c.SSL.UsePFX || c.SSL.CertPath != "" {
		if c.SSL.CertPath == "" {
			return fmt.Errorf("ssl cert_path can't be empty when a certificate is configured")
		}
		if _, err := os.Stat(c.SSL.CertPath); err != nil {
			return fmt.Errorf("ssl cert_path %q: %w", c.SSL.CertPath, err)
		}
	}

	if err := validateHTTPSEndpoint("frl.remote_host", c.FRL.RemoteHost); err != nil {
		return err
	}
	if err := validateHTTPSEndpoint("log.remote_host", c.Log.RemoteHost); err != nil {
		return err
	}

	if c.Cache.DBPath == "" {
		return fmt.Errorf("cache db_path can't be empty")
	}

	if c.Network.Outbound.Enabled {
		if c.Network.Outbound.Host == "" {
			return fmt.Errorf("network.outbound host can't be empty when outbound proxying is enabled")
		}
		if strings.Contains(c.Network.Outbound.Host, ":") {
			return fmt.Errorf("network.outbound host must not contain a port (use the 'port' option)")
		}
		if c.Network.Outbound.Port <= 0 || c.Network.Outbound.Port > 65535 {
			return fmt.Errorf("network.outbound port must be between 1 and 65535, got %d", c.Network.Outbound.Port)
		}
		if c.Network.Outbound.UseBasicAuth && c.Network.Outbound.Username == "" {
			return fmt.Errorf("network.outbound username can't be empty when basic auth is enabled")
		}
	}

	if c.Logging.Destination != "stderr" && c.Logging.Destination != "file" {
		return fmt.Errorf("logging destination must be 'stderr' or 'file', got %q", c.Logging.Destination)
	}
	if c.Logging.Destination == "file" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file_path must be specified when logging to a file")
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry exporter must be 'grpc' or 'http', got %q", c.Telemetry.Exporter)
		}
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry endpoint can't be empty when telemetry is enabled")
		}
		if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
			return fmt.Errorf("telemetry sampling_rate must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRate)
		}
	}

	return nil
}

func validateHTTPSEndpoint(field, endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%s: invalid URL %q: %w", field, endpoint, err)
	}
	if strings.ToLower(u.Scheme) != "https" {
		return fmt.Errorf("%s must use HTTPS, got %q", field, endpoint)
	}
	return nil
}

// bindAddr renders "host:port" and confirms it parses as a socket address,
// used by internal/server when binding its listener.
func bindAddr(host string, port int) (string, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", fmt.Errorf("invalid bind address %q: %w", addr, err)
	}
	return addr, nil
}

// BindAddr returns the plain-HTTP listen address "host:port".
func (c *Config) BindAddr() (string, error) { return bindAddr(c.Proxy.Host, c.Proxy.Port) }

// BindAddrSSL returns the HTTPS listen address "host:ssl_port".
func (c *Config) BindAddrSSL() (string, error) { return bindAddr(c.Proxy.Host, c.Proxy.SSLPort) }
