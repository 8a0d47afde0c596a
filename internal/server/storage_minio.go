// storage_minio.go - Blob storage on a MinIO (S3-compatible) bucket.
//
// Object keys are namespaced by owning user and optional folder. That
// isolates tenants by naming convention only; the bucket itself enforces
// nothing, which is why downloads always stream through the service.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements BlobStore over a single bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http(s)://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	return raw, false, nil
}

func newMinioClient() (*minio.Client, string, error) {
	rawEndpoint := os.Getenv("FD_S3_ENDPOINT")
	accessKey := os.Getenv("FD_S3_ACCESS_KEY")
	secretKey := os.Getenv("FD_S3_SECRET_KEY")
	bucket := os.Getenv("FD_BUCKET")

	if rawEndpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, "", fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(rawEndpoint)
	if err != nil {
		return nil, "", err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, "", err
	}

	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return nil, "", fmt.Errorf("minio bucket does not exist: %s", bucket)
	}

	return client, bucket, nil
}

// objectKey builds "u/<owner>/f/<folder|unfiled>/<uuid>". The random tail
// makes keys non-guessable and collision-free.
func objectKey(hint StoreHint) string {
	folder := "unfiled"
	if hint.FolderID != nil {
		folder = hint.FolderID.String()
	}
	return fmt.Sprintf("u/%s/f/%s/%s", hint.OwnerID, folder, uuid.New())
}

func (s *MinioStore) Store(ctx context.Context, r io.Reader, hint StoreHint) (StorageRef, error) {
	key := objectKey(hint)

	_, err := s.client.PutObject(ctx, s.bucket, key, r, -1,
		minio.PutObjectOptions{ContentType: hint.ContentType})
	if err != nil {
		return StorageRef{}, fmt.Errorf("%w: put %s: %v", ErrUploadBackend, key, err)
	}

	retrievalURL := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL(), s.bucket, key)
	return StorageRef{Kind: StorageMinio, Key: key, URL: retrievalURL}, nil
}

func (s *MinioStore) Open(ctx context.Context, ref StorageRef) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUploadBackend, ref.Key, err)
	}

	// GetObject is lazy; Stat forces an early error for missing objects.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isMinioMissing(err) {
			return nil, ErrObjectMissing
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrUploadBackend, ref.Key, err)
	}

	return obj, nil
}

// Remove deletes by object key. A missing object is success.
func (s *MinioStore) Remove(ctx context.Context, ref StorageRef) error {
	err := s.client.RemoveObject(ctx, s.bucket, ref.Key, minio.RemoveObjectOptions{})
	if err != nil && !isMinioMissing(err) {
		return fmt.Errorf("%w: remove %s: %v", ErrUploadBackend, ref.Key, err)
	}
	return nil
}

func isMinioMissing(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.StatusCode == 404
	}
	return false
}
