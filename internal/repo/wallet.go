// Package repo implements data access for the water-consumption reporting
// view. This file turns the PEM wallet bundle (ewallet.pem) into the TLS
// configuration go-ora uses for TCPS connections.
package repo

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/youmark/pkcs8"
)

// WalletPEMFileName is the wallet bundle expected inside the wallet directory.
const WalletPEMFileName = "ewallet.pem"

var (
	// ErrNoCertificates is returned when the bundle holds no certificate.
	ErrNoCertificates = errors.New("wallet: no certificates in bundle")
	// ErrWalletPassword is returned for an encrypted key without a password.
	ErrWalletPassword = errors.New("wallet: private key is encrypted and no wallet password is set")
)

var hostPattern = regexp.MustCompile(`(?i)\(\s*host\s*=\s*([^)\s]+)\s*\)`)

// LoadWalletTLS reads <dir>/ewallet.pem. Every certificate is trusted as a
// root. When the bundle carries a private key, the certificate matching it
// (plus the remaining certificates as its chain) is presented as the client
// certificate. Encrypted PKCS#8 keys are decrypted with password.
func LoadWalletTLS(dir, password, serverName string) (*tls.Config, error) {
	path := filepath.Join(dir, WalletPEMFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	cfg, err := parseWalletPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ServerName = serverName
	return cfg, nil
}

func parseWalletPEM(data []byte, password string) (*tls.Config, error) {
	var (
		certs []*x509.Certificate
		key   crypto.Signer
	)
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse certificate: %w", err)
			}
			certs = append(certs, c)
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY", "ENCRYPTED PRIVATE KEY":
			if key != nil {
				continue
			}
			k, err := parseKey(block, password)
			if err != nil {
				return nil, err
			}
			key = k
		}
	}
	if len(certs) == 0 {
		return nil, ErrNoCertificates
	}

	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    pool,
	}
	if key != nil {
		leaf, err := clientChain(certs, key)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{leaf}
	}
	return cfg, nil
}

func parseKey(block *pem.Block, password string) (crypto.Signer, error) {
	var (
		k   any
		err error
	)
	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		if password == "" {
			return nil, ErrWalletPassword
		}
		k, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(password))
	case "RSA PRIVATE KEY":
		k, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		k, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		k, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	s, ok := k.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T", k)
	}
	return s, nil
}

// clientChain puts the certificate whose public key matches key first.
func clientChain(certs []*x509.Certificate, key crypto.Signer) (tls.Certificate, error) {
	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return tls.Certificate{}, fmt.Errorf("unsupported public key type %T", key.Public())
	}
	for i, c := range certs {
		if !pub.Equal(c.PublicKey) {
			continue
		}
		chain := [][]byte{c.Raw}
		for j, other := range certs {
			if j != i {
				chain = append(chain, other.Raw)
			}
		}
		return tls.Certificate{Certificate: chain, PrivateKey: key, Leaf: c}, nil
	}
	return tls.Certificate{}, errors.New("wallet: no certificate matches the private key")
}

// descriptorHost extracts the first HOST from a connect descriptor, or the
// host part of an EZConnect string.
func descriptorHost(desc string) string {
	if m := hostPattern.FindStringSubmatch(desc); m != nil {
		return m[1]
	}
	if strings.HasPrefix(desc, "(") {
		return ""
	}
	host := strings.TrimPrefix(desc, "//")
	if i := strings.IndexAny(host, ":/"); i >= 0 {
		host = host[:i]
	}
	return host
}
