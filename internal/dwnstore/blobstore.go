package dwnstore

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	cid "github.com/ipfs/go-cid"
)

// Blob path scheme, adapted from the teacher's massifs/tenantblobpaths.go.
// The teacher derives a versioned, tenant-scoped prefix
// ("v1/mmrs/{tenant}/{instance}/massifs/") and a deterministic, lexically
// sortable blob name from a massif index. Here the same two ideas are
// repurposed: a versioned tenant-scoped prefix, and a deterministic name —
// but keyed by (recordId, dataCid) instead of a massif index, since data
// blobs have no natural sequence number.
const (
	v1DataPrefix = "v1/data"
	pathSep      = "/"
)

// tenantDataPrefix returns the blob path prefix for tenant's data blobs.
// Mirrors TenantMassifPrefix's shape: a fixed version segment, the tenant
// identity, and a trailing separator.
func tenantDataPrefix(tenant string) string {
	return fmt.Sprintf("%s/%s/", v1DataPrefix, tenant)
}

// dataBlobPath returns the blob path for one (tenant, recordId, dataCid)
// blob. Unlike the teacher's numeric massif index, dataCid is already a
// stable, collision-resistant, lexically meaningful name, so it is used
// directly rather than reformatted into a fixed-width numeric string.
func dataBlobPath(tenant, recordID string, dataCID cid.Cid) string {
	return fmt.Sprintf("%s%s/%s", tenantDataPrefix(tenant), recordID, dataCID.String())
}

// BlobDataStore is a DataStore backed by Azure Blob Storage, for
// deployments that need a durable, horizontally-scaled Data Store rather
// than the in-process MemDataStore.
type BlobDataStore struct {
	client    *azblob.Client
	container string
}

// NewBlobDataStore constructs a BlobDataStore against an already-configured
// azblob.Client and container name. It returns ErrOpConfigMissing if either
// is unset, since every Data Store operation needs both to address a blob.
func NewBlobDataStore(client *azblob.Client, container string) (*BlobDataStore, error) {
	if client == nil || container == "" {
		return nil, ErrOpConfigMissing
	}
	return &BlobDataStore{client: client, container: container}, nil
}

// NewBlobDataStoreFromConnectionString is a convenience constructor for the
// common case of a connection-string-configured storage account, matching
// the teacher's preference for narrow constructors over a generic options
// bag at the call site (massifs/rootsigner.go's NewRootSigner takes its
// arguments directly rather than through an Options struct).
func NewBlobDataStoreFromConnectionString(connectionString, container string) (*BlobDataStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("constructing azblob client: %w", err)
	}
	return NewBlobDataStore(client, container)
}

func (b *BlobDataStore) Put(ctx context.Context, tenant, recordID string, dataCID cid.Cid, data []byte) error {
	_, err := b.client.UploadBuffer(ctx, b.container, dataBlobPath(tenant, recordID, dataCID), data, nil)
	if err != nil {
		return fmt.Errorf("uploading data blob: %w", err)
	}
	return nil
}

func (b *BlobDataStore) Get(ctx context.Context, tenant, recordID string, dataCID cid.Cid) (io.ReadCloser, error) {
	resp, err := b.client.DownloadStream(ctx, b.container, dataBlobPath(tenant, recordID, dataCID), nil)
	if err != nil {
		return nil, fmt.Errorf("downloading data blob: %w", err)
	}
	return resp.Body, nil
}

func (b *BlobDataStore) Delete(ctx context.Context, tenant, recordID string, dataCID cid.Cid) error {
	_, err := b.client.DeleteBlob(ctx, b.container, dataBlobPath(tenant, recordID, dataCID), nil)
	if err != nil {
		return fmt.Errorf("deleting data blob: %w", err)
	}
	return nil
}
