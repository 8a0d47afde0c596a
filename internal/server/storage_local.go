// storage_local.go - Blob storage on the local filesystem under a managed
// upload directory.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes blobs into a single managed directory. Stored names
// combine a nanosecond timestamp with a random suffix so concurrent
// uploads of identically-named files never overwrite each other.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("upload directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func randSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

func (s *LocalStore) Store(ctx context.Context, r io.Reader, hint StoreHint) (StorageRef, error) {
	ext := filepath.Ext(SanitizeFilename(hint.Filename))
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), randSuffix(), ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StorageRef{}, fmt.Errorf("%w: create %s: %v", ErrUploadBackend, name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return StorageRef{}, fmt.Errorf("%w: write %s: %v", ErrUploadBackend, name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return StorageRef{}, fmt.Errorf("%w: close %s: %v", ErrUploadBackend, name, err)
	}

	return StorageRef{Kind: StorageLocal, Path: path}, nil
}

func (s *LocalStore) Open(ctx context.Context, ref StorageRef) (io.ReadCloser, error) {
	f, err := os.Open(ref.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectMissing
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrUploadBackend, ref.Path, err)
	}
	return f, nil
}

// Remove deletes the stored file. An already-absent file is success.
func (s *LocalStore) Remove(ctx context.Context, ref StorageRef) error {
	if err := os.Remove(ref.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", ErrUploadBackend, ref.Path, err)
	}
	return nil
}
