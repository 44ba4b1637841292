package creds

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-water-backend/internal/config"
)

const (
	pemBody = "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"
	tnsBody = "pocdev_high = (description=(address=(protocol=tcps)(host=h)(port=1522)))\n"
)

// countWrites swaps writeFile for a counting wrapper for the test duration.
func countWrites(t *testing.T) *int {
	t.Helper()
	n := 0
	orig := writeFile
	writeFile = func(name string, data []byte, perm os.FileMode) error {
		n++
		return orig(name, data, perm)
	}
	t.Cleanup(func() { writeFile = orig })
	return &n
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func envConfig(base string) config.CredsConfig {
	return config.CredsConfig{
		Source:     config.CredsSourceEnv,
		BaseDir:    base,
		PEMContent: pemBody,
		TNSContent: tnsBody,
	}
}

func TestEnsure_EnvWritesBothFilesThenSkips(t *testing.T) {
	writes := countWrites(t)
	p := New(envConfig(t.TempDir()), nil)

	res, err := p.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{p.PEMPath(): Written, p.TNSPath(): Written}, res)
	assert.Equal(t, 2, *writes)
	assert.Equal(t, pemBody, readFile(t, p.PEMPath()))
	assert.Equal(t, tnsBody, readFile(t, p.TNSPath()))

	info, err := os.Stat(p.PEMPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	res, err = p.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{p.PEMPath(): Skipped, p.TNSPath(): Skipped}, res)
	assert.Equal(t, 2, *writes, "second run must not write")
}

func TestEnsure_EnvKeepsExistingFile(t *testing.T) {
	base := t.TempDir()
	p := New(envConfig(base), nil)
	require.NoError(t, os.MkdirAll(p.Dir(), 0o700))
	require.NoError(t, os.WriteFile(p.PEMPath(), []byte("mounted"), 0o600))

	res, err := p.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Skipped, res[p.PEMPath()])
	assert.Equal(t, Written, res[p.TNSPath()])
	assert.Equal(t, "mounted", readFile(t, p.PEMPath()))
}

func TestEnsure_EnvMissingContent(t *testing.T) {
	cfg := envConfig(t.TempDir())
	cfg.TNSContent = ""
	p := New(cfg, nil)

	_, err := p.Ensure(context.Background())
	require.ErrorIs(t, err, ErrMissingContent)
	assert.Contains(t, err.Error(), "TNS_CONTENT")
	_, statErr := os.Stat(p.TNSPath())
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestEnsure_EnvWriteFailure(t *testing.T) {
	orig := writeFile
	writeFile = func(string, []byte, os.FileMode) error { return errors.New("disk full") }
	t.Cleanup(func() { writeFile = orig })

	_, err := New(envConfig(t.TempDir()), nil).Ensure(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestEnsure_NoneWritesNothing(t *testing.T) {
	writes := countWrites(t)
	base := t.TempDir()
	res, err := New(config.CredsConfig{Source: config.CredsSourceNone, BaseDir: base}, nil).Ensure(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Zero(t, *writes)
	_, statErr := os.Stat(filepath.Join(base, DirName))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestEnsure_UnknownSource(t *testing.T) {
	_, err := New(config.CredsConfig{Source: "ftp"}, nil).Ensure(context.Background())
	assert.ErrorIs(t, err, ErrUnknownSource)
}

type fakeFetcher struct {
	blobs    map[string]string
	err      error
	calls    []string
	deadline bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, container, blob string) (io.ReadCloser, error) {
	f.calls = append(f.calls, container+"/"+blob)
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.blobs[blob]
	if !ok {
		return nil, errors.New("BlobNotFound")
	}
	return io.NopCloser(bytes.NewBufferString(body)), nil
}

func blobConfig(base string) config.CredsConfig {
	return config.CredsConfig{
		Source:  config.CredsSourceBlob,
		BaseDir: base,
		Blob: config.BlobConfig{
			Container: "wallets",
			PEMBlob:   "ewallet.pem",
			TNSBlob:   "tnsnames.ora",
			Timeout:   time.Minute,
		},
	}
}

func TestEnsure_BlobCreatesDirAndDownloads(t *testing.T) {
	f := &fakeFetcher{blobs: map[string]string{"ewallet.pem": pemBody, "tnsnames.ora": tnsBody}}
	p := New(blobConfig(t.TempDir()), f)

	res, err := p.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{p.PEMPath(): Downloaded, p.TNSPath(): Downloaded}, res)
	assert.Equal(t, []string{"wallets/ewallet.pem", "wallets/tnsnames.ora"}, f.calls)
	assert.True(t, f.deadline, "blob timeout applies to downloads")
	assert.Equal(t, pemBody, readFile(t, p.PEMPath()))
	assert.Equal(t, tnsBody, readFile(t, p.TNSPath()))
}

func TestEnsure_BlobAlwaysOverwrites(t *testing.T) {
	base := t.TempDir()
	f := &fakeFetcher{blobs: map[string]string{"ewallet.pem": "old-pem", "tnsnames.ora": "old-tns"}}
	p := New(blobConfig(base), f)
	_, err := p.Ensure(context.Background())
	require.NoError(t, err)

	f.blobs = map[string]string{"ewallet.pem": "new-pem", "tnsnames.ora": "new-tns"}
	_, err = p.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-pem", readFile(t, p.PEMPath()))
	assert.Equal(t, "new-tns", readFile(t, p.TNSPath()))
}

func TestEnsure_BlobErrors(t *testing.T) {
	f := &fakeFetcher{err: errors.New("AuthenticationFailed")}
	_, err := New(blobConfig(t.TempDir()), f).Ensure(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallets/ewallet.pem")
	assert.Contains(t, err.Error(), "AuthenticationFailed")

	f = &fakeFetcher{blobs: map[string]string{"ewallet.pem": pemBody}}
	_, err = New(blobConfig(t.TempDir()), f).Ensure(context.Background())
	assert.ErrorContains(t, err, "BlobNotFound")

	_, err = New(blobConfig(t.TempDir()), nil).Ensure(context.Background())
	assert.Error(t, err)
}

func TestNewAzureFetcher_RequiresLocation(t *testing.T) {
	_, err := NewAzureFetcher(config.BlobConfig{})
	assert.Error(t, err)

	_, err = NewAzureFetcher(config.BlobConfig{ConnectionString: "not a connection string"})
	assert.Error(t, err)

	f, err := NewAzureFetcher(config.BlobConfig{
		ConnectionString: "DefaultEndpointsProtocol=https;AccountName=acct;AccountKey=a2V5;EndpointSuffix=core.windows.net",
	})
	require.NoError(t, err)
	assert.NotNil(t, f)
}
