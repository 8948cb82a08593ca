package tlsutil

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSignedWithIPs(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "test.crt")
	keyPath := filepath.Join(tmpDir, "test.key")

	require.NoError(t, GenerateSelfSignedWithIPs(certPath, keyPath, 1, nil, nil))
	require.True(t, fileExists(certPath))
	require.True(t, fileExists(keyPath))

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)
	require.NotNil(t, cert.Certificate)
}

func TestEnsureSelfSignedGeneratesWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "auto.crt")
	keyPath := filepath.Join(tmpDir, "auto.key")

	cfg := SelfSignedConfig{CertPath: certPath, KeyPath: keyPath, Logger: zerolog.Nop()}
	gotCert, gotKey, err := EnsureSelfSigned(cfg)
	require.NoError(t, err)
	require.Equal(t, certPath, gotCert)
	require.Equal(t, keyPath, gotKey)
	require.True(t, fileExists(certPath))
	require.True(t, fileExists(keyPath))
}

func TestEnsureSelfSignedLeavesExistingPairAlone(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "existing.crt")
	keyPath := filepath.Join(tmpDir, "existing.key")
	require.NoError(t, GenerateSelfSignedWithIPs(certPath, keyPath, 1, nil, nil))

	certInfo, err := os.Stat(certPath)
	require.NoError(t, err)
	originalModTime := certInfo.ModTime()

	cfg := SelfSignedConfig{CertPath: certPath, KeyPath: keyPath, Logger: zerolog.Nop()}
	_, _, err = EnsureSelfSigned(cfg)
	require.NoError(t, err)

	certInfo, err = os.Stat(certPath)
	require.NoError(t, err)
	require.True(t, certInfo.ModTime().Equal(originalModTime))
}

func TestEnsureSelfSignedRegeneratesIncompletePair(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "incomplete.crt")
	keyPath := filepath.Join(tmpDir, "incomplete.key")
	require.NoError(t, os.WriteFile(certPath, []byte("dummy cert"), 0600))

	cfg := SelfSignedConfig{CertPath: certPath, KeyPath: keyPath, Logger: zerolog.Nop()}
	_, _, err := EnsureSelfSigned(cfg)
	require.NoError(t, err)

	_, err = tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)
}

func TestEnsureSelfSignedDefaultPaths(t *testing.T) {
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	tmpDir := t.TempDir()
	require.NoError(t, os.Chdir(tmpDir))
	defer func() { _ = os.Chdir(originalWd) }()

	cfg := SelfSignedConfig{Logger: zerolog.Nop()}
	gotCert, gotKey, err := EnsureSelfSigned(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultCertPath, gotCert)
	require.Equal(t, DefaultKeyPath, gotKey)
	require.True(t, fileExists(gotCert))
	require.True(t, fileExists(gotKey))
}
