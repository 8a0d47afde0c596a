package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// fakeBlobStore lets handler tests control backend behavior.
type fakeBlobStore struct {
	storeErr error
	stored   []StorageRef
}

func (f *fakeBlobStore) Store(ctx context.Context, r io.Reader, hint StoreHint) (StorageRef, error) {
	if f.storeErr != nil {
		return StorageRef{}, f.storeErr
	}
	ref := StorageRef{Kind: StorageLocal, Path: "/fake/" + uuid.NewString()}
	f.stored = append(f.stored, ref)
	return ref, nil
}

func (f *fakeBlobStore) Open(ctx context.Context, ref StorageRef) (io.ReadCloser, error) {
	return nil, ErrObjectMissing
}

func (f *fakeBlobStore) Remove(ctx context.Context, ref StorageRef) error {
	return nil
}

func withUser(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), currentUserKey, uuid.NewString())
	return r.WithContext(ctx)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadRejectsMissingFile(t *testing.T) {
	files := NewFileStore(nil, &fakeBlobStore{})
	h := Config{}.uploadHandler(files)

	body, contentType := multipartBody(t, map[string]string{"folderId": ""}, "", "", nil)
	req := withUser(httptest.NewRequest(http.MethodPost, "/upload", body))
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file part, got %d", rr.Code)
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	files := NewFileStore(nil, &fakeBlobStore{})
	h := Config{}.uploadHandler(files)

	body, contentType := multipartBody(t, nil, "file", "empty.txt", nil)
	req := withUser(httptest.NewRequest(http.MethodPost, "/upload", body))
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty file, got %d", rr.Code)
	}
}

func TestUploadRejectsBadFolderID(t *testing.T) {
	files := NewFileStore(nil, &fakeBlobStore{})
	h := Config{}.uploadHandler(files)

	body, contentType := multipartBody(t,
		map[string]string{"folderId": "not-a-uuid"}, "file", "w2.pdf", []byte("data"))
	req := withUser(httptest.NewRequest(http.MethodPost, "/upload", body))
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad folder id, got %d", rr.Code)
	}
}

func TestUploadBackendFailureWritesNoMetadata(t *testing.T) {
	// The store has a nil DB handle: if the handler tried to insert
	// metadata after the backend failed, this test would panic.
	files := NewFileStore(nil, &fakeBlobStore{storeErr: ErrUploadBackend})
	h := Config{}.uploadHandler(files)

	body, contentType := multipartBody(t, nil, "file", "w2.pdf", []byte("data"))
	req := withUser(httptest.NewRequest(http.MethodPost, "/upload", body))
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for backend failure, got %d", rr.Code)
	}
}

func TestDownloadRejectsBadID(t *testing.T) {
	files := NewFileStore(nil, &fakeBlobStore{})
	h := Config{}.downloadHandler(files)

	req := httptest.NewRequest(http.MethodGet, "/file/not-a-uuid/download", nil)
	req.SetPathValue("fileID", "not-a-uuid")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad file id, got %d", rr.Code)
	}
}
