package creds

import (
	"context"
	"errors"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/tbourn/go-water-backend/internal/config"
)

// AzureFetcher downloads blobs with the Azure SDK.
type AzureFetcher struct {
	client *azblob.Client
}

// NewAzureFetcher builds a client from a connection string or, failing that,
// from an account URL and the default Azure credential chain.
func NewAzureFetcher(cfg config.BlobConfig) (*AzureFetcher, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: 3},
		},
	}
	switch {
	case cfg.ConnectionString != "":
		c, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
		if err != nil {
			return nil, err
		}
		return &AzureFetcher{client: c}, nil
	case cfg.AccountURL != "":
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, err
		}
		c, err := azblob.NewClient(cfg.AccountURL, cred, opts)
		if err != nil {
			return nil, err
		}
		return &AzureFetcher{client: c}, nil
	default:
		return nil, errors.New("blob storage requires a connection string or an account URL")
	}
}

// Fetch opens a download stream for container/blob.
func (f *AzureFetcher) Fetch(ctx context.Context, container, blob string) (io.ReadCloser, error) {
	resp, err := f.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
