package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Defaults()
	require.NoError(t, err)
	return cfg
}

func TestValidateRejectsEmptyHost(t *testing.T) {
	cfg := validConfig(t)
	cfg.Proxy.Host = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := validConfig(t)
	cfg.Proxy.Port = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonHTTPSFRLEndpoint(t *testing.T) {
	cfg := validConfig(t)
	cfg.FRL.RemoteHost = "http://lcs-cops.adobe.io"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyCacheDBPath(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cache.DBPath = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresCertWhenSSLConfigured(t *testing.T) {
	cfg := validConfig(t)
	cfg.SSL.UsePFX = true
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsExistingCertPath(t *testing.T) {
	cfg := validConfig(t)
	certPath := filepath.Join(t.TempDir(), "cert.pfx")
	require.NoError(t, os.WriteFile(certPath, []byte("dummy"), 0600))
	cfg.SSL.CertPath = certPath
	require.NoError(t, cfg.Validate())
}

func TestValidateOutboundProxyRequiresHostAndPort(t *testing.T) {
	cfg := validConfig(t)
	cfg.Network.Outbound.Enabled = true
	require.Error(t, cfg.Validate())

	cfg.Network.Outbound.Host = "proxy.internal"
	require.Error(t, cfg.Validate())

	cfg.Network.Outbound.Port = 3128
	require.NoError(t, cfg.Validate())
}

func TestValidateOutboundProxyRejectsHostWithPort(t *testing.T) {
	cfg := validConfig(t)
	cfg.Network.Outbound.Enabled = true
	cfg.Network.Outbound.Host = "proxy.internal:3128"
	cfg.Network.Outbound.Port = 3128
	require.Error(t, cfg.Validate())
}

func TestValidateOutboundProxyRequiresUsernameForBasicAuth(t *testing.T) {
	cfg := validConfig(t)
	cfg.Network.Outbound.Enabled = true
	cfg.Network.Outbound.Host = "proxy.internal"
	cfg.Network.Outbound.Port = 3128
	cfg.Network.Outbound.UseBasicAuth = true
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresFilePathForFileLogging(t *testing.T) {
	cfg := validConfig(t)
	cfg.Logging.Destination = "file"
	require.Error(t, cfg.Validate())

	cfg.Logging.FilePath = "/var/log/adlu-proxy.log"
	require.NoError(t, cfg.Validate())
}

func TestValidateTelemetryRequiresKnownExporter(t *testing.T) {
	cfg := validConfig(t)
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Exporter = "carrier-pigeon"
	require.Error(t, cfg.Validate())

	cfg.Telemetry.Exporter = "grpc"
	require.NoError(t, cfg.Validate())
}

func TestValidateTelemetryRequiresEndpointWhenEnabled(t *testing.T) {
	cfg := validConfig(t)
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Exporter = "grpc"
	cfg.Telemetry.Endpoint = ""
	require.Error(t, cfg.Validate())
}

func TestValidateTelemetryRejectsOutOfRangeSamplingRate(t *testing.T) {
	cfg := validConfig(t)
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Exporter = "http"
	cfg.Telemetry.Endpoint = "localhost:4318"
	cfg.Telemetry.SamplingRate = 1.5
	require.Error(t, cfg.Validate())

	cfg.Telemetry.SamplingRate = 0.5
	require.NoError(t, cfg.Validate())
}

func TestBindAddr(t *testing.T) {
	cfg := validConfig(t)
	addr, err := cfg.BindAddr()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", addr)

	sslAddr, err := cfg.BindAddrSSL()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8443", sslAddr)
}
