// Package creds materializes the Oracle wallet bundle (ewallet.pem and
// tnsnames.ora) on local disk before the first database connection.
//
// Two sources are supported:
//
//   - env:  content comes from configuration. Existing files are left alone,
//     so a bundle mounted into the container always wins.
//   - blob: content is downloaded from Azure Blob Storage and always
//     overwrites the local copy.
//
// The bundle is written once per process; rotation requires a restart.
package creds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-water-backend/internal/config"
)

// File names inside the credentials directory.
const (
	DirName     = "creds"
	PEMFileName = "ewallet.pem"
	TNSFileName = "tnsnames.ora"
)

var (
	// ErrMissingContent is returned in env mode when a file is absent and no
	// content was configured for it.
	ErrMissingContent = errors.New("credential content not configured")

	// ErrUnknownSource is returned for a source other than env, blob or none.
	ErrUnknownSource = errors.New("unknown credential source")
)

// Outcome reports what Ensure did with one file.
type Outcome string

const (
	Written    Outcome = "written"
	Skipped    Outcome = "skipped"
	Downloaded Outcome = "downloaded"
)

// Result lists per-file outcomes keyed by absolute path.
type Result map[string]Outcome

// BlobFetcher streams a named blob from a container.
type BlobFetcher interface {
	Fetch(ctx context.Context, container, blob string) (io.ReadCloser, error)
}

// Replaced in tests.
var writeFile = os.WriteFile

// Provisioner writes the wallet bundle according to its configuration.
type Provisioner struct {
	cfg     config.CredsConfig
	fetcher BlobFetcher
}

// New returns a Provisioner for cfg. fetcher is only used in blob mode and
// may be nil otherwise.
func New(cfg config.CredsConfig, fetcher BlobFetcher) *Provisioner {
	return &Provisioner{cfg: cfg, fetcher: fetcher}
}

// Dir is the directory the bundle is written to.
func (p *Provisioner) Dir() string { return filepath.Join(p.cfg.BaseDir, DirName) }

// PEMPath is the wallet certificate path.
func (p *Provisioner) PEMPath() string { return filepath.Join(p.Dir(), PEMFileName) }

// TNSPath is the connect descriptor file path.
func (p *Provisioner) TNSPath() string { return filepath.Join(p.Dir(), TNSFileName) }

// Ensure makes sure both files exist according to the configured source.
func (p *Provisioner) Ensure(ctx context.Context) (Result, error) {
	switch p.cfg.Source {
	case config.CredsSourceNone, "":
		log.Debug().Msg("credential provisioning disabled")
		return Result{}, nil
	case config.CredsSourceEnv:
		return p.ensureFromContent()
	case config.CredsSourceBlob:
		return p.ensureFromBlob(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, p.cfg.Source)
	}
}

func (p *Provisioner) ensureFromContent() (Result, error) {
	res := Result{}
	files := []struct {
		path, content, key string
	}{
		{p.PEMPath(), p.cfg.PEMContent, "PEM_CONTENT"},
		{p.TNSPath(), p.cfg.TNSContent, "TNS_CONTENT"},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			log.Info().Str("path", f.path).Msg("already exists, skipping write")
			res[f.path] = Skipped
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return res, fmt.Errorf("stat %s: %w", f.path, err)
		}
		if f.content == "" {
			return res, fmt.Errorf("%s: %w (%s)", f.path, ErrMissingContent, f.key)
		}
		if err := p.write(f.path, []byte(f.content)); err != nil {
			return res, err
		}
		log.Info().Str("path", f.path).Msg("written successfully")
		res[f.path] = Written
	}
	return res, nil
}

func (p *Provisioner) ensureFromBlob(ctx context.Context) (Result, error) {
	if p.fetcher == nil {
		return nil, errors.New("blob source configured without a blob client")
	}
	if p.cfg.Blob.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Blob.Timeout)
		defer cancel()
	}

	res := Result{}
	files := []struct{ blob, path string }{
		{p.cfg.Blob.PEMBlob, p.PEMPath()},
		{p.cfg.Blob.TNSBlob, p.TNSPath()},
	}
	for _, f := range files {
		if err := p.download(ctx, f.blob, f.path); err != nil {
			return res, err
		}
		log.Info().
			Str("container", p.cfg.Blob.Container).
			Str("blob", f.blob).
			Str("path", f.path).
			Msg("downloaded")
		res[f.path] = Downloaded
	}
	return res, nil
}

func (p *Provisioner) download(ctx context.Context, blob, path string) error {
	body, err := p.fetcher.Fetch(ctx, p.cfg.Blob.Container, blob)
	if err != nil {
		return fmt.Errorf("download %s/%s: %w", p.cfg.Blob.Container, blob, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", p.cfg.Blob.Container, blob, err)
	}
	return p.write(path, data)
}

// write creates the credentials directory when needed and replaces path.
func (p *Provisioner) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := writeFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
