// Package repo implements data access for the water-consumption reporting
// view. This file resolves TNS aliases from a tnsnames.ora file and builds the
// go-ora connection for wallet-based TLS connections.
package repo

import (
	"bufio"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/tbourn/go-water-backend/internal/config"
)

// TNSFileName is the descriptor file expected inside the config directory.
const TNSFileName = "tnsnames.ora"

// ErrAliasNotFound is returned when a DSN alias is not defined in tnsnames.ora.
var ErrAliasNotFound = errors.New("tns alias not found")

// ParseTNSNames reads alias = (DESCRIPTION=...) entries. Comments start with
// '#'. Several aliases may share one descriptor ("a, b = (...)"). Keys are
// lower-cased; descriptors have whitespace removed outside double quotes.
func ParseTNSNames(r io.Reader) (map[string]string, error) {
	var sb strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	src := sb.String()
	out := make(map[string]string)
	for pos := 0; pos < len(src); {
		eq := strings.IndexByte(src[pos:], '=')
		if eq < 0 {
			if strings.TrimSpace(src[pos:]) != "" {
				return nil, fmt.Errorf("tnsnames: dangling text %q", strings.TrimSpace(src[pos:]))
			}
			break
		}
		names := src[pos : pos+eq]
		pos += eq + 1

		// The descriptor is the next balanced parenthesized block.
		open := strings.IndexByte(src[pos:], '(')
		if open < 0 || strings.TrimSpace(src[pos:pos+open]) != "" {
			return nil, fmt.Errorf("tnsnames: expected '(' after %q", strings.TrimSpace(names))
		}
		start := pos + open
		depth, end := 0, -1
		for i := start; i < len(src); i++ {
			switch src[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				end = i + 1
				break
			}
		}
		if end < 0 {
			return nil, fmt.Errorf("tnsnames: unbalanced parentheses for %q", strings.TrimSpace(names))
		}
		desc := compactDescriptor(src[start:end])
		for _, n := range strings.Split(names, ",") {
			if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
				out[n] = desc
			}
		}
		pos = end
	}
	return out, nil
}

// compactDescriptor drops whitespace outside double-quoted values, so quoted
// values such as SSL_SERVER_CERT_DN keep their spaces.
func compactDescriptor(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	quoted := false
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
		case !quoted && unicode.IsSpace(r):
			continue
		case quoted && (r == '\n' || r == '\r'):
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ResolveDSN maps dsn to a connect descriptor. Literal descriptors and
// EZConnect strings (host:port/service) are returned unchanged; anything else
// is looked up as an alias in <configDir>/tnsnames.ora.
func ResolveDSN(configDir, dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if strings.HasPrefix(dsn, "(") || strings.Contains(dsn, "/") || strings.Contains(dsn, ":") {
		return dsn, nil
	}
	path := filepath.Join(configDir, TNSFileName)
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ParseTNSNames(f)
	if err != nil {
		return "", err
	}
	desc, ok := entries[strings.ToLower(dsn)]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrAliasNotFound, dsn, path)
	}
	return desc, nil
}

// OracleURL builds the go-ora URL for cfg: alias resolution and TLS. The
// wallet itself is not passed to the driver; go-ora only reads
// cwallet.sso/ewallet.p12, so the PEM bundle is loaded by OracleTLSConfig.
func OracleURL(cfg config.DBConfig) (string, error) {
	desc, err := ResolveDSN(cfg.ConfigDir, cfg.DSN)
	if err != nil {
		return "", err
	}
	return oracleURL(cfg, desc), nil
}

func oracleURL(cfg config.DBConfig, desc string) string {
	return go_ora.BuildJDBC(cfg.User, cfg.Password, desc, map[string]string{
		"SSL": "true",
	})
}

// OracleTLSConfig loads the PEM wallet from cfg.WalletDir, with the server
// name taken from the resolved descriptor.
func OracleTLSConfig(cfg config.DBConfig, desc string) (*tls.Config, error) {
	return LoadWalletTLS(cfg.WalletDir, cfg.WalletPassword, descriptorHost(desc))
}

// OpenOracleDB resolves cfg.DSN, loads the wallet, and returns a *sql.DB
// backed by a go-ora connector carrying the wallet's TLS configuration. No
// network traffic happens until the handle is used.
func OpenOracleDB(cfg config.DBConfig) (*sql.DB, error) {
	desc, err := ResolveDSN(cfg.ConfigDir, cfg.DSN)
	if err != nil {
		return nil, err
	}
	tlsCfg, err := OracleTLSConfig(cfg, desc)
	if err != nil {
		return nil, err
	}
	connector, ok := go_ora.NewConnector(oracleURL(cfg, desc)).(*go_ora.OracleConnector)
	if !ok {
		return nil, errors.New("go-ora: unexpected connector type")
	}
	connector.WithTLSConfig(tlsCfg)
	return sql.OpenDB(connector), nil
}
