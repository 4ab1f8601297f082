package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// File names written by GenerateDevCerts.
const (
	CAFile        = "ca.pem"
	CAKeyFile     = "ca-key.pem"
	ServerFile    = "server.pem"
	ServerKeyFile = "server-key.pem"
)

const caLifetime = 10 * 365 * 24 * time.Hour

type keyPair struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

// GenerateDevCerts writes a throwaway CA and a server certificate for hosts into outDir.
// Hosts that parse as IP addresses become IP SANs; the rest become DNS SANs.
func GenerateDevCerts(hosts []string, outDir string, validFor time.Duration) error {
	if len(hosts) == 0 {
		return errors.New("tlsutil: at least one host is required")
	}
	if validFor <= 0 {
		validFor = 365 * 24 * time.Hour
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("tlsutil: create %s: %w", outDir, err)
	}

	now := time.Now()
	ca, err := issue(&x509.Certificate{
		Subject:               pkix.Name{Organization: []string{"TaxRisk Dev CA"}},
		NotBefore:             now,
		NotAfter:              now.Add(caLifetime),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}, nil)
	if err != nil {
		return err
	}

	leaf := &x509.Certificate{
		Subject:     pkix.Name{Organization: []string{"TaxRisk Dev"}, CommonName: hosts[0]},
		NotBefore:   now,
		NotAfter:    now.Add(validFor),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			leaf.IPAddresses = append(leaf.IPAddresses, ip)
		} else {
			leaf.DNSNames = append(leaf.DNSNames, h)
		}
	}
	server, err := issue(leaf, ca)
	if err != nil {
		return err
	}

	if err := ca.write(filepath.Join(outDir, CAFile), filepath.Join(outDir, CAKeyFile)); err != nil {
		return err
	}
	return server.write(filepath.Join(outDir, ServerFile), filepath.Join(outDir, ServerKeyFile))
}

// issue signs template with parent, or self-signs when parent is nil.
func issue(template *x509.Certificate, parent *keyPair) (*keyPair, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("tlsutil: serial number: %w", err)
	}
	template.SerialNumber = serial

	signer, signerKey := template, key
	if parent != nil {
		signer, signerKey = parent.cert, parent.key
	}
	der, err := x509.CreateCertificate(rand.Reader, template, signer, &key.PublicKey, signerKey)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: sign %q: %w", template.Subject.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: parse certificate: %w", err)
	}
	return &keyPair{cert: cert, key: key}, nil
}

func (p *keyPair) write(certPath, keyPath string) error {
	keyDER, err := x509.MarshalECPrivateKey(p.key)
	if err != nil {
		return fmt.Errorf("tlsutil: marshal key: %w", err)
	}
	if err := writePEM(certPath, "CERTIFICATE", p.cert.Raw); err != nil {
		return err
	}
	return writePEM(keyPath, "EC PRIVATE KEY", keyDER)
}

func writePEM(path, blockType string, der []byte) error {
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("tlsutil: write %s: %w", path, err)
	}
	return nil
}
