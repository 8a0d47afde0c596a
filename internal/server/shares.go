// shares.go - Sharing registry: grants that make a folder visible to a
// non-owning user, and the share HTTP handlers.
//
// Matching the long-standing behavior: the recipient is not validated,
// sharing a folder with its own owner is allowed, and re-sharing an
// already-shared pair just adds another grant row. Duplicate grants are
// harmless; listings collapse them per folder.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Share grants one user visibility into one folder. Ownership does not
// transfer.
type Share struct {
	ID        uuid.UUID `json:"id"`
	FolderID  uuid.UUID `json:"folder_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SharedFolder is one entry of a "shared with me" listing: the grant, the
// folder, and who shared it.
type SharedFolder struct {
	Share    Share     `json:"share"`
	Folder   Folder    `json:"folder"`
	SharedBy UserBrief `json:"shared_by"`
}

// UserBrief identifies a user in listings without exposing the full record.
type UserBrief struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// ShareStore performs share operations over the shared DB handle.
type ShareStore struct {
	db      *sql.DB
	folders *FolderStore
}

func NewShareStore(db *sql.DB, folders *FolderStore) *ShareStore {
	return &ShareStore{db: db, folders: folders}
}

// Share grants recipientID visibility into folderID. The folder must
// exist; the recipient is not checked.
func (s *ShareStore) Share(ctx context.Context, folderID, recipientID, actorID uuid.UUID) (Share, error) {
	// Existence check doubles as the ownership check when enforcement is on.
	if err := s.folders.requireOwner(ctx, folderID, actorID); err != nil {
		return Share{}, err
	}
	if _, err := s.folders.Owner(ctx, folderID); err != nil {
		return Share{}, err
	}

	grant := Share{ID: uuid.New(), FolderID: folderID, UserID: recipientID, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shares (id, folder_id, user_id, created_at) VALUES ($1, $2, $3, $4)`,
		grant.ID, grant.FolderID, grant.UserID, grant.CreatedAt,
	)
	if err != nil {
		return Share{}, fmt.Errorf("insert share: %w", err)
	}
	return grant, nil
}

// ListSharedWithMe returns the folders shared with userID, one entry per
// folder no matter how many duplicate grants exist.
func (s *ShareStore) ListSharedWithMe(ctx context.Context, userID uuid.UUID) ([]SharedFolder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (sh.folder_id)
			sh.id, sh.folder_id, sh.user_id, sh.created_at,
			f.id, f.user_id, f.name, f.created_at,
			u.id, u.email
		FROM shares sh
		JOIN folders f ON f.id = sh.folder_id
		JOIN users u ON u.id = f.user_id
		WHERE sh.user_id = $1
		ORDER BY sh.folder_id, sh.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []SharedFolder{}
	for rows.Next() {
		var e SharedFolder
		err := rows.Scan(
			&e.Share.ID, &e.Share.FolderID, &e.Share.UserID, &e.Share.CreatedAt,
			&e.Folder.ID, &e.Folder.UserID, &e.Folder.Name, &e.Folder.CreatedAt,
			&e.SharedBy.ID, &e.SharedBy.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return out, nil
}

// HTTP handlers

func (cfg Config) shareFolderHandler(shares *ShareStore) http.Handler {
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
		recipient, err := uuid.Parse(r.FormValue("userIdToShareWith"))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: bad recipient id", ErrInvalidInput))
			return
		}
		if _, err := shares.Share(r.Context(), folderID, recipient, actor); err != nil {
			writeError(w, r, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

func (cfg Config) sharedFoldersHandler(shares *ShareStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := shares.ListSharedWithMe(r.Context(), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
}
