// Package tlsutil builds TLS configs for connecting to obs-websocket through a TLS-terminating proxy,
// and generates throwaway certificates for tests.
package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

// Certs contains a CA and a server cert signed by it.
type Certs struct {
	Server Cert
	CA     CACert
}

// ClientTLSConfig returns a config that trusts only the given CA.
// An empty caCertPEM yields a config using the system roots.
func ClientTLSConfig(caCertPEM []byte) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if len(caCertPEM) == 0 {
		return cfg, nil
	}
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCertPEM) {
		return nil, errors.New("no certificates found in CA PEM")
	}
	cfg.RootCAs = caCertPool
	return cfg, nil
}

// ClientTLSConfigFromFile reads a PEM CA bundle from path.
func ClientTLSConfigFromFile(path string) (*tls.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CA cert: %w", err)
	}
	return ClientTLSConfig(b)
}

func ServerTLSConfig(certPEM []byte, keyPEM []byte) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing server key pair: %w", err)
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}, nil
}

type CACert struct {
	CertPEMBytes []byte
	KeyPEMBytes  []byte
	x509Cert     *x509.Certificate
	privKey      *ecdsa.PrivateKey
}

type Cert struct {
	CertPEMBytes []byte
	KeyPEMBytes  []byte
}

func serialNumber() (*big.Int, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	n, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, fmt.Errorf("getting random serial number: %w", err)
	}
	return n, nil
}

func buildCACert() (CACert, error) {
	serial, err := serialNumber()
	if err != nil {
		return CACert{}, err
	}

	caCert := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "obsws test CA"},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().AddDate(0, 0, 1),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return CACert{}, fmt.Errorf("generating CA private key: %w", err)
	}

	caDER, err := x509.CreateCertificate(rand.Reader, caCert, caCert, &caKey.PublicKey, caKey)
	if err != nil {
		return CACert{}, fmt.Errorf("creating x509 cert: %w", err)
	}

	certPEM, keyPEM, err := encodePEM(caDER, caKey)
	if err != nil {
		return CACert{}, fmt.Errorf("encoding CA cert: %w", err)
	}

	return CACert{
		CertPEMBytes: certPEM,
		KeyPEMBytes:  keyPEM,
		x509Cert:     caCert,
		privKey:      caKey,
	}, nil
}

func buildServerCert(ca CACert, hosts []string) (Cert, error) {
	serial, err := serialNumber()
	if err != nil {
		return Cert{}, err
	}
	c := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "obs-websocket"},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().AddDate(0, 0, 1),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			c.IPAddresses = append(c.IPAddresses, ip)
		} else {
			c.DNSNames = append(c.DNSNames, h)
		}
	}

	certKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return Cert{}, fmt.Errorf("generating cert private key: %w", err)
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &c, ca.x509Cert, &certKey.PublicKey, ca.privKey)
	if err != nil {
		return Cert{}, fmt.Errorf("creating cert: %w", err)
	}

	certPEM, keyPEM, err := encodePEM(certDER, certKey)
	if err != nil {
		return Cert{}, err
	}
	return Cert{CertPEMBytes: certPEM, KeyPEMBytes: keyPEM}, nil
}

func encodePEM(der []byte, key *ecdsa.PrivateKey) ([]byte, []byte, error) {
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if certPEM == nil {
		return nil, nil, errors.New("unable to encode certificate to PEM")
	}
	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling pkcs8: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})
	if keyPEM == nil {
		return nil, nil, errors.New("unable to encode private key to PEM")
	}
	return certPEM, keyPEM, nil
}

// GenerateCerts generates a CA and a server cert valid for the given hosts (DNS names or IPs).
// Defaults to localhost and 127.0.0.1.
func GenerateCerts(hosts ...string) (*Certs, error) {
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1"}
	}
	ca, err := buildCACert()
	if err != nil {
		return nil, fmt.Errorf("building CA cert: %w", err)
	}
	server, err := buildServerCert(ca, hosts)
	if err != nil {
		return nil, fmt.Errorf("building server cert: %w", err)
	}
	return &Certs{Server: server, CA: ca}, nil
}
