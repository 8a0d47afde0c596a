// storage.go - Blob storage capability interface and the tagged reference
// type shared by the local and MinIO backends.
package server

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// StorageKind tags a StorageRef with the backend that produced it.
type StorageKind string

const (
	StorageLocal StorageKind = "local"
	StorageMinio StorageKind = "minio"
)

// StorageRef is the backend-specific handle needed to retrieve or delete a
// stored blob. Local refs carry a filesystem path; MinIO refs carry the
// object key (the deletion identifier) and a retrieval URL hint.
type StorageRef struct {
	Kind StorageKind
	Path string
	Key  string
	URL  string
}

// StoreHint tells a backend where a blob belongs. The MinIO backend folds
// owner and folder into the object key so tenants are isolated by naming
// convention; the local backend only uses the filename.
type StoreHint struct {
	OwnerID     uuid.UUID
	FolderID    *uuid.UUID
	Filename    string
	ContentType string
}

// BlobStore is the capability interface over durable blob storage.
//
// Store writes the full stream and returns a reference usable with Open
// and Remove. Open returns ErrObjectMissing when the referenced blob is
// gone even though a reference exists. Remove is idempotent: removing an
// already-absent blob succeeds.
type BlobStore interface {
	Store(ctx context.Context, r io.Reader, hint StoreHint) (StorageRef, error)
	Open(ctx context.Context, ref StorageRef) (io.ReadCloser, error)
	Remove(ctx context.Context, ref StorageRef) error
}

// NewBlobStore selects a backend implementation by name. Selection is
// configuration-driven; everything past this point is behind BlobStore.
func NewBlobStore(kind string, localDir string) (BlobStore, error) {
	switch StorageKind(kind) {
	case StorageLocal:
		return NewLocalStore(localDir)
	case StorageMinio:
		client, bucket, err := newMinioClient()
		if err != nil {
			return nil, err
		}
		return NewMinioStore(client, bucket), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", kind)
	}
}
