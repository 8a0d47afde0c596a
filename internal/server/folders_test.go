package server

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestFolderCreateRejectsBlankName(t *testing.T) {
	// nil DB: the name check must run before any insert.
	s := NewFolderStore(nil, false)

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := s.Create(context.Background(), uuid.New(), name); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Create(%q): expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestFolderRenameRejectsBlankName(t *testing.T) {
	s := NewFolderStore(nil, false)

	for _, name := range []string{"", "   "} {
		err := s.Rename(context.Background(), uuid.New(), name, uuid.New())
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Rename to %q: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestRequireOwnerPermissiveByDefault(t *testing.T) {
	// Enforcement off: the check passes for any actor without touching
	// the database at all.
	s := NewFolderStore(nil, false)

	if err := s.requireOwner(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("expected nil from permissive requireOwner, got %v", err)
	}
}
