// files.go - File registry: metadata CRUD plus the upload, download,
// delete, list, and detail handlers.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// File is a stored file's metadata record. The storage reference needed
// to retrieve or delete the blob is backend-specific and never serialized
// to clients.
type File struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	FolderID  *uuid.UUID `json:"folder_id"`
	Filename  string     `json:"filename"`
	MimeType  string     `json:"mime_type"`
	SizeBytes int64      `json:"size_bytes"`
	CreatedAt time.Time  `json:"created_at"`

	Ref StorageRef `json:"-"`
}

// FileWithFolder pairs a file with its folder's name for listings.
type FileWithFolder struct {
	File
	FolderName *string `json:"folder_name"`
}

const fileColumns = `SELECT id, user_id, folder_id, filename, mime_type,
	storage_kind, storage_path, storage_key, storage_url, size_bytes, created_at`

func scanFile(scan func(...any) error) (File, error) {
	var f File
	var folderID uuid.NullUUID
	err := scan(&f.ID, &f.UserID, &folderID, &f.Filename, &f.MimeType,
		&f.Ref.Kind, &f.Ref.Path, &f.Ref.Key, &f.Ref.URL, &f.SizeBytes, &f.CreatedAt)
	if err != nil {
		return File{}, err
	}
	if folderID.Valid {
		f.FolderID = &folderID.UUID
	}
	return f, nil
}

func scanFiles(rows *sql.Rows, err error) ([]File, error) {
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []File{}
	for rows.Next() {
		f, err := scanFile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	return out, nil
}

// FileStore performs file metadata operations and coordinates with the
// blob backend for the bytes themselves.
type FileStore struct {
	db    *sql.DB
	blobs BlobStore
}

func NewFileStore(db *sql.DB, blobs BlobStore) *FileStore {
	return &FileStore{db: db, blobs: blobs}
}

// Upload stores the blob first and writes metadata only after the backend
// confirms success, so a backend failure never leaves an orphaned record.
// The inverse window (blob stored, metadata insert fails) is possible and
// is logged as an anomaly.
func (s *FileStore) Upload(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, filename, mimeType string, body io.Reader, size int64) (File, error) {
	filename = SanitizeFilename(filename)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	ref, err := s.blobs.Store(ctx, body, StoreHint{
		OwnerID:     ownerID,
		FolderID:    folderID,
		Filename:    filename,
		ContentType: mimeType,
	})
	if err != nil {
		return File{}, err
	}

	f := File{
		ID:        uuid.New(),
		UserID:    ownerID,
		FolderID:  folderID,
		Filename:  filename,
		MimeType:  mimeType,
		SizeBytes: size,
		CreatedAt: time.Now().UTC(),
		Ref:       ref,
	}

	var dbFolderID uuid.NullUUID
	if folderID != nil {
		dbFolderID = uuid.NullUUID{UUID: *folderID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO files (id, user_id, folder_id, filename, mime_type,
			storage_kind, storage_path, storage_key, storage_url, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		f.ID, f.UserID, dbFolderID, f.Filename, f.MimeType,
		f.Ref.Kind, f.Ref.Path, f.Ref.Key, f.Ref.URL, f.SizeBytes, f.CreatedAt,
	)
	if err != nil {
		Error("blob stored but metadata insert failed, object is orphaned",
			map[string]any{"kind": f.Ref.Kind, "path": f.Ref.Path, "key": f.Ref.Key}, err)
		return File{}, fmt.Errorf("insert file: %w", err)
	}
	return f, nil
}

// Get returns one file's metadata.
func (s *FileStore) Get(ctx context.Context, fileID uuid.UUID) (File, error) {
	row := s.db.QueryRowContext(ctx, fileColumns+` FROM files WHERE id = $1`, fileID)
	f, err := scanFile(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, fmt.Errorf("lookup file: %w", err)
	}
	return f, nil
}

// ListAll returns the user's files with their folder names.
func (s *FileStore) ListAll(ctx context.Context, userID uuid.UUID) ([]FileWithFolder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.user_id, f.folder_id, f.filename, f.mime_type,
			f.storage_kind, f.storage_path, f.storage_key, f.storage_url,
			f.size_bytes, f.created_at, d.name
		FROM files f
		LEFT JOIN folders d ON d.id = f.folder_id
		WHERE f.user_id = $1
		ORDER BY f.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []FileWithFolder{}
	for rows.Next() {
		var f FileWithFolder
		var folderID uuid.NullUUID
		var folderName sql.NullString
		err := rows.Scan(&f.ID, &f.UserID, &folderID, &f.Filename, &f.MimeType,
			&f.Ref.Kind, &f.Ref.Path, &f.Ref.Key, &f.Ref.URL,
			&f.SizeBytes, &f.CreatedAt, &folderName)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if folderID.Valid {
			f.FolderID = &folderID.UUID
		}
		if folderName.Valid {
			f.FolderName = &folderName.String
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

// Delete removes the blob first, then the metadata record. A backend
// failure aborts the delete so the metadata keeps pointing at the blob.
// If the record delete fails after the blob is gone, the record is stale;
// that degraded state is logged and the error surfaced.
func (s *FileStore) Delete(ctx context.Context, fileID, actorID uuid.UUID) error {
	f, err := s.Get(ctx, fileID)
	if err != nil {
		return err
	}

	if err := s.blobs.Remove(ctx, f.Ref); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, fileID); err != nil {
		Error("blob removed but metadata delete failed, record is dangling",
			map[string]any{"file_id": fileID.String()}, err)
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

// HTTP handlers

// uploadHandler handles POST /upload multipart submissions: required
// "file" part, optional "folderId" field.
func (cfg Config) uploadHandler(files *FileStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}

		part, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			writeError(w, r, ErrNoFile)
			return
		}
		defer func() { _ = part.Close() }()

		if header.Size == 0 {
			writeError(w, r, ErrNoFile)
			return
		}

		var folderID *uuid.UUID
		if raw := r.FormValue("folderId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: bad folder id", ErrInvalidInput))
				return
			}
			folderID = &id
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		f, err := files.Upload(ctx, actor, folderID,
			header.Filename, header.Header.Get("Content-Type"), part, header.Size)
		if err != nil {
			GetMetrics().RecordUploadError()
			writeError(w, r, err)
			return
		}
		GetMetrics().RecordUpload(f.SizeBytes)

		http.Redirect(w, r, "/file/all", http.StatusSeeOther)
	})
}

// downloadHandler streams the blob through the service with an explicit
// filename and content type, regardless of where the bytes live.
func (cfg Config) downloadHandler(files *FileStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fileID, err := pathID(r, "fileID")
		if err != nil {
			writeError(w, r, err)
			return
		}

		f, err := files.Get(r.Context(), fileID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		blob, err := files.blobs.Open(ctx, f.Ref)
		if err != nil {
			GetMetrics().RecordDownloadError()
			writeError(w, r, err)
			return
		}
		defer func() { _ = blob.Close() }()

		w.Header().Set("Content-Type", f.MimeType)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, SanitizeFilename(f.Filename)))
		if f.SizeBytes > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(f.SizeBytes, 10))
		}
		w.WriteHeader(http.StatusOK)

		n, _ := io.Copy(w, blob)
		GetMetrics().RecordDownload(n)
	})
}

func (cfg Config) deleteFileHandler(files *FileStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		fileID, err := pathID(r, "fileID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := files.Delete(r.Context(), fileID, actor); err != nil {
			writeError(w, r, err)
			return
		}
		http.Redirect(w, r, "/file/all", http.StatusSeeOther)
	})
}

func (cfg Config) listFilesHandler(files *FileStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := files.ListAll(r.Context(), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
}

func (cfg Config) fileDetailHandler(files *FileStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fileID, err := pathID(r, "fileID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		f, err := files.Get(r.Context(), fileID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	})
}
