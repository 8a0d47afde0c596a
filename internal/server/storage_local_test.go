package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
)

var (
	_ BlobStore = (*LocalStore)(nil)
	_ BlobStore = (*MinioStore)(nil)
)

func TestLocalStoreRoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore error: %v", err)
	}

	content := []byte("hello stored world")
	hint := StoreHint{OwnerID: uuid.New(), Filename: "w2.pdf"}

	ref, err := s.Store(context.Background(), bytes.NewReader(content), hint)
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if ref.Kind != StorageLocal {
		t.Fatalf("ref kind: got %q want %q", ref.Kind, StorageLocal)
	}
	if !strings.HasSuffix(ref.Path, ".pdf") {
		t.Fatalf("stored name should keep the extension: %q", ref.Path)
	}

	rc, err := s.Open(context.Background(), ref)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("content mismatch: got %q want %q", got, content)
	}
}

func TestLocalStoreNoCollisionOnSameName(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore error: %v", err)
	}

	hint := StoreHint{OwnerID: uuid.New(), Filename: "same.txt"}

	refA, err := s.Store(context.Background(), strings.NewReader("first"), hint)
	if err != nil {
		t.Fatalf("first Store error: %v", err)
	}
	refB, err := s.Store(context.Background(), strings.NewReader("second"), hint)
	if err != nil {
		t.Fatalf("second Store error: %v", err)
	}

	if refA.Path == refB.Path {
		t.Fatalf("identically-named uploads collided on %q", refA.Path)
	}

	rc, err := s.Open(context.Background(), refA)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "first" {
		t.Fatalf("first upload was overwritten: got %q", got)
	}
}

func TestLocalStoreOpenMissing(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore error: %v", err)
	}

	ref := StorageRef{Kind: StorageLocal, Path: s.dir + "/nope.bin"}
	if _, err := s.Open(context.Background(), ref); !errors.Is(err, ErrObjectMissing) {
		t.Fatalf("expected ErrObjectMissing, got %v", err)
	}
}

func TestLocalStoreRemoveIdempotent(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore error: %v", err)
	}

	ref, err := s.Store(context.Background(), strings.NewReader("bye"), StoreHint{Filename: "bye.txt"})
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}

	if err := s.Remove(context.Background(), ref); err != nil {
		t.Fatalf("first Remove error: %v", err)
	}
	// Removing what is already gone must succeed.
	if err := s.Remove(context.Background(), ref); err != nil {
		t.Fatalf("second Remove error: %v", err)
	}

	if _, err := s.Open(context.Background(), ref); !errors.Is(err, ErrObjectMissing) {
		t.Fatalf("expected ErrObjectMissing after removal, got %v", err)
	}
}
