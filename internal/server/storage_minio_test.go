package server

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantHost   string
		wantSecure bool
		wantErr    bool
	}{
		{"bare host", "minio:9000", "minio:9000", false, false},
		{"http scheme", "http://minio:9000", "minio:9000", false, false},
		{"https scheme", "https://minio:9000", "minio:9000", true, false},
		{"with whitespace", "  minio:9000 ", "minio:9000", false, false},
		{"empty", "", "", false, true},
		{"path not allowed", "http://minio:9000/data", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, secure, err := normaliseEndpoint(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if host != tt.wantHost || secure != tt.wantSecure {
				t.Fatalf("got (%q, %v), want (%q, %v)", host, secure, tt.wantHost, tt.wantSecure)
			}
		})
	}
}

func TestObjectKeyNamespacing(t *testing.T) {
	owner := uuid.New()
	folder := uuid.New()

	key := objectKey(StoreHint{OwnerID: owner, FolderID: &folder, Filename: "w2.pdf"})
	if !strings.HasPrefix(key, "u/"+owner.String()+"/f/"+folder.String()+"/") {
		t.Fatalf("folder upload key not namespaced by owner and folder: %q", key)
	}

	key = objectKey(StoreHint{OwnerID: owner, Filename: "w2.pdf"})
	if !strings.HasPrefix(key, "u/"+owner.String()+"/f/unfiled/") {
		t.Fatalf("unfiled upload key not namespaced: %q", key)
	}
}

func TestObjectKeyUnique(t *testing.T) {
	hint := StoreHint{OwnerID: uuid.New(), Filename: "same.txt"}
	if objectKey(hint) == objectKey(hint) {
		t.Fatal("identical hints must still produce distinct object keys")
	}
}

func TestNewMinioClientIncompleteConfig(t *testing.T) {
	t.Setenv("FD_S3_ENDPOINT", "")
	t.Setenv("FD_S3_ACCESS_KEY", "")
	t.Setenv("FD_S3_SECRET_KEY", "")
	t.Setenv("FD_BUCKET", "")

	if _, _, err := newMinioClient(); err == nil {
		t.Fatal("expected error for incomplete minio configuration")
	}
}
