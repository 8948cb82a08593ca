package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"
)

func generateTestCert(t *testing.T) (certDER []byte, key *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	return der, key
}

func TestLoadPFXRoundTrips(t *testing.T) {
	der, key := generateTestCert(t)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pfxData, err := pkcs12.Encode(rand.Reader, key, cert, nil, "changeit")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bundle.pfx")
	require.NoError(t, os.WriteFile(path, pfxData, 0600))

	tlsCert, err := LoadPFX(path, "changeit")
	require.NoError(t, err)
	require.Equal(t, der, tlsCert.Certificate[0])
}

func TestLoadPFXRejectsWrongPassword(t *testing.T) {
	der, key := generateTestCert(t)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pfxData, err := pkcs12.Encode(rand.Reader, key, cert, nil, "changeit")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bundle.pfx")
	require.NoError(t, os.WriteFile(path, pfxData, 0600))

	_, err = LoadPFX(path, "wrong")
	require.Error(t, err)
}

func TestLoadPEMRoundTrips(t *testing.T) {
	der, key := generateTestCert(t)

	certPath := filepath.Join(t.TempDir(), "cert.pem")
	keyPath := filepath.Join(t.TempDir(), "key.pem")

	certPEM := pemEncode(t, "CERTIFICATE", der)
	require.NoError(t, os.WriteFile(certPath, certPEM, 0600))

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	keyPEM := pemEncode(t, "EC PRIVATE KEY", keyDER)
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0600))

	tlsCert, err := LoadPEM(keyPath, certPath, "")
	require.NoError(t, err)
	require.Equal(t, der, tlsCert.Certificate[0])
}

func TestLoadPEMFailsOnMismatchedKeyAndCert(t *testing.T) {
	der, _ := generateTestCert(t)
	_, otherKey := generateTestCert(t)

	certPath := filepath.Join(t.TempDir(), "cert.pem")
	keyPath := filepath.Join(t.TempDir(), "key.pem")

	require.NoError(t, os.WriteFile(certPath, pemEncode(t, "CERTIFICATE", der), 0600))

	otherKeyDER, err := x509.MarshalECPrivateKey(otherKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(keyPath, pemEncode(t, "EC PRIVATE KEY", otherKeyDER), 0600))

	_, err = LoadPEM(keyPath, certPath, "")
	require.Error(t, err)
}

func pemEncode(t *testing.T, blockType string, der []byte) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

// loadCertificate loads and parses a PEM-encoded certificate file.
func loadCertificate(certPath string) (*x509.Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, os.ErrInvalid
	}
	return x509.ParseCertificate(block.Bytes)
}
