// Package tlsutil loads the server certificate the proxy presents over
// HTTPS, either from a PKCS#12 (.pfx) bundle or from separate PEM
// certificate/key files, and falls back to generating a self-signed pair
// when neither is configured.
package tlsutil

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// LoadPFX reads a PKCS#12 bundle and returns a tls.Certificate ready to
// hand to an http.Server's TLSConfig. Grounded on
// adlu-base/src/certificate.rs's load_pfx_file: both reject a key/cert
// pair whose public keys don't match, here by comparing the certificate's
// public key with the one derived from the private key.
func LoadPFX(path, password string) (*tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: can't load PFX file %q: %w", path, err)
	}
	privateKey, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: can't parse PFX file %q: %w", path, err)
	}
	signer, okSigner := privateKey.(crypto.Signer)
	certPub, okPub := cert.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !okSigner || !okPub || !certPub.Equal(signer.Public()) {
		return nil, fmt.Errorf("tlsutil: certificate and key in PFX file %q don't match", path)
	}
	return &tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  privateKey,
		Leaf:        cert,
	}, nil
}

// LoadPEM reads a certificate and (optionally password-protected) private
// key from separate PEM files. Grounded on
// adlu-base/src/certificate.rs's load_pem_files.
func LoadPEM(keyPath, certPath, keyPassword string) (*tls.Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: can't load certificate file %q: %w", certPath, err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: can't load key file %q: %w", keyPath, err)
	}

	if keyPassword != "" {
		keyPEM, err = decryptPEMKey(keyPEM, keyPassword)
		if err != nil {
			return nil, fmt.Errorf("tlsutil: can't decrypt key data using password: %w", err)
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: certificate and key don't match: %w", err)
	}
	return &cert, nil
}

// decryptPEMKey handles the legacy "Proc-Type: 4,ENCRYPTED" PEM key
// format. x509.DecryptPEMBlock is deprecated (it implements a weak,
// long-superseded scheme) but it's still the only thing in the standard
// library that reads this format, and it's exactly what a password-
// protected PEM key in the wild looks like.
func decryptPEMKey(keyPEM []byte, password string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in key data")
	}
	//nolint:staticcheck // SA1019: no replacement exists for legacy encrypted PEM keys.
	decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: decrypted}), nil
}
