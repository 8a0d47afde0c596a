// folders.go - Folder registry: CRUD over the folders table plus the
// folder HTTP handlers.
//
// Historical quirk kept on purpose: rename, delete, and share do not check
// that the acting user owns the folder. Any logged-in user may invoke them
// by id, exactly as the service has always behaved. EnforceOwnership turns
// the checks on for deployments that want them.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Folder is a user-owned named container for files. The owner never
// changes after creation.
type Folder struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// FolderWithFiles is a folder together with its files.
type FolderWithFiles struct {
	Folder
	Files []File `json:"files"`
}

// FolderStore performs folder operations over the shared DB handle.
type FolderStore struct {
	db               *sql.DB
	enforceOwnership bool
}

func NewFolderStore(db *sql.DB, enforceOwnership bool) *FolderStore {
	return &FolderStore{db: db, enforceOwnership: enforceOwnership}
}

// Create inserts a folder owned by ownerID. Blank names are rejected.
func (s *FolderStore) Create(ctx context.Context, ownerID uuid.UUID, name string) (Folder, error) {
	name, err := validateFolderName(name)
	if err != nil {
		return Folder{}, err
	}

	f := Folder{ID: uuid.New(), UserID: ownerID, Name: name, CreatedAt: time.Now().UTC()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO folders (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		f.ID, f.UserID, f.Name, f.CreatedAt,
	)
	if err != nil {
		return Folder{}, fmt.Errorf("insert folder: %w", err)
	}
	return f, nil
}

// requireOwner is a no-op unless ownership enforcement is enabled.
func (s *FolderStore) requireOwner(ctx context.Context, folderID, actorID uuid.UUID) error {
	if !s.enforceOwnership {
		return nil
	}
	owner, err := s.Owner(ctx, folderID)
	if err != nil {
		return err
	}
	if owner != actorID {
		return ErrForbidden
	}
	return nil
}

// Owner returns the owning user of a folder.
func (s *FolderStore) Owner(ctx context.Context, folderID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM folders WHERE id = $1`, folderID,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("lookup folder owner: %w", err)
	}
	return owner, nil
}

// Rename updates the display name. Blank names are rejected and the stored
// name stays unchanged.
func (s *FolderStore) Rename(ctx context.Context, folderID uuid.UUID, newName string, actorID uuid.UUID) error {
	newName, err := validateFolderName(newName)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, folderID, actorID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE folders SET name = $2 WHERE id = $1`, folderID, newName,
	)
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the folder record only. Nothing cascades: files and
// shares referencing the folder make the delete fail with a foreign-key
// violation, which is surfaced, never swallowed.
func (s *FolderStore) Delete(ctx context.Context, folderID, actorID uuid.UUID) error {
	if err := s.requireOwner(ctx, folderID, actorID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, folderID)
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return fmt.Errorf("%w: folder still has files or shares", ErrConstraintViolation)
		}
		return fmt.Errorf("delete folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOwned returns the user's folders, each with its files.
func (s *FolderStore) ListOwned(ctx context.Context, userID uuid.UUID) ([]FolderWithFiles, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM folders WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[uuid.UUID]int)
	out := []FolderWithFiles{}
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		byID[f.ID] = len(out)
		out = append(out, FolderWithFiles{Folder: f, Files: []File{}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	files, err := scanFiles(s.db.QueryContext(ctx,
		fileColumns+` FROM files WHERE user_id = $1 AND folder_id IS NOT NULL ORDER BY created_at`,
		userID,
	))
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if i, ok := byID[*file.FolderID]; ok {
			out[i].Files = append(out[i].Files, file)
		}
	}
	return out, nil
}

// GetWithFiles returns one folder and its files.
func (s *FolderStore) GetWithFiles(ctx context.Context, folderID uuid.UUID) (FolderWithFiles, error) {
	var f Folder
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM folders WHERE id = $1`, folderID,
	).Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FolderWithFiles{}, ErrNotFound
		}
		return FolderWithFiles{}, fmt.Errorf("lookup folder: %w", err)
	}

	files, err := scanFiles(s.db.QueryContext(ctx,
		fileColumns+` FROM files WHERE folder_id = $1 ORDER BY created_at`, folderID,
	))
	if err != nil {
		return FolderWithFiles{}, err
	}
	return FolderWithFiles{Folder: f, Files: files}, nil
}

// canView reports whether userID may read the folder: the owner always
// can, and so can any share recipient.
func (s *FolderStore) canView(ctx context.Context, folderID, userID uuid.UUID) (bool, error) {
	owner, err := s.Owner(ctx, folderID)
	if err != nil {
		return false, err
	}
	if owner == userID {
		return true, nil
	}

	var shared bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM shares WHERE folder_id = $1 AND user_id = $2)`,
		folderID, userID,
	).Scan(&shared)
	if err != nil {
		return false, fmt.Errorf("lookup share: %w", err)
	}
	return shared, nil
}

// HTTP handlers

func (cfg Config) createFolderHandler(folders *FolderStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := folders.Create(r.Context(), actor, r.FormValue("name")); err != nil {
			writeError(w, r, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

func (cfg Config) renameFolderHandler(folders *FolderStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		folderID, err := pathID(r, "folderID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := folders.Rename(r.Context(), folderID, r.FormValue("newFolderName"), actor); err != nil {
			writeError(w, r, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

func (cfg Config) deleteFolderHandler(folders *FolderStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		folderID, err := pathID(r, "folderID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := folders.Delete(r.Context(), folderID, actor); err != nil {
			writeError(w, r, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

// folderContentsHandler serves GET /folder/{folderID}: the folder and its
// files. With ownership enforcement on, only the owner and share
// recipients may read it.
func (cfg Config) folderContentsHandler(folders *FolderStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		folderID, err := pathID(r, "folderID")
		if err != nil {
			writeError(w, r, err)
			return
		}

		if folders.enforceOwnership {
			ok, err := folders.canView(r.Context(), folderID, actor)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !ok {
				writeError(w, r, ErrForbidden)
				return
			}
		}

		folder, err := folders.GetWithFiles(r.Context(), folderID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, folder)
	})
}
