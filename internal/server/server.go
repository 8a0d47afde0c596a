package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config wires the HTTP surface: DB handle, blob backend, session
// settings, and the behavior switches.
type Config struct {
	Addr  string // e.g. ":8080"
	Build BuildInfo
	Auth  AuthConfig
	DB    *sql.DB
	Blobs BlobStore

	// EnforceOwnership turns on ownership checks for folder rename,
	// delete, and share. Off by default: historically any logged-in user
	// could invoke these by id, and that behavior is preserved.
	EnforceOwnership bool

	// MaxUploadBytes caps upload request bodies; 0 means no limit.
	MaxUploadBytes int64
}

type Server struct {
	httpServer *http.Server
}

// New constructs the server: registries over the shared DB handle, one
// route table, auth and logging middleware around everything.
func New(cfg Config) *Server {
	users := NewUserStore(cfg.DB)
	folders := NewFolderStore(cfg.DB, cfg.EnforceOwnership)
	files := NewFileStore(cfg.DB, cfg.Blobs)
	shares := NewShareStore(cfg.DB, folders)

	guard := cfg.Auth.requireAuth

	mux := http.NewServeMux()

	mux.Handle("GET /health", cfg.healthHandler())
	mux.Handle("GET /ready", cfg.readyHandler())
	mux.Handle("GET /metrics", metricsHandler())

	mux.Handle("GET /login", authPageHandler("/login"))
	mux.Handle("GET /signup", authPageHandler("/create-user"))
	mux.Handle("POST /create-user", cfg.createUserHandler(users))
	mux.Handle("POST /login", cfg.Auth.loginHandler(users))
	mux.Handle("GET /logout", cfg.Auth.logoutHandler())

	mux.Handle("GET /{$}", guard(cfg.homeHandler(folders, files)))

	mux.Handle("POST /upload", guard(cfg.uploadHandler(files)))
	mux.Handle("GET /file/all", guard(cfg.listFilesHandler(files)))
	mux.Handle("GET /file/{fileID}", guard(cfg.fileDetailHandler(files)))
	mux.Handle("GET /file/{fileID}/download", guard(cfg.downloadHandler(files)))
	mux.Handle("POST /file/{fileID}/delete", guard(cfg.deleteFileHandler(files)))

	mux.Handle("POST /create-folder", guard(cfg.createFolderHandler(folders)))
	mux.Handle("GET /folder/{folderID}", guard(cfg.folderContentsHandler(folders)))
	mux.Handle("POST /folder/{folderID}/edit", guard(cfg.renameFolderHandler(folders)))
	mux.Handle("POST /folder/{folderID}/delete", guard(cfg.deleteFolderHandler(folders)))
	mux.Handle("POST /folder/{folderID}/share", guard(cfg.shareFolderHandler(shares)))
	mux.Handle("GET /shared-folders", guard(cfg.sharedFoldersHandler(shares)))

	var handler http.Handler = mux
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the fully wired handler chain, mainly for tests that
// mount the server on httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// homeHandler serves GET /: the session user's folders (with files) and
// unfiled files. Stands in for the rendered home view.
func (cfg Config) homeHandler(folders *FolderStore, files *FileStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		owned, err := folders.ListOwned(r.Context(), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		all, err := files.ListAll(r.Context(), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		unfiled := []FileWithFolder{}
		for _, f := range all {
			if f.FolderID == nil {
				unfiled = append(unfiled, f)
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"user_id":       actor,
			"folders":       owned,
			"unfiled_files": unfiled,
		})
	})
}

// authPageHandler stands in for the rendered login and signup pages: it
// names the form route and fields so the redirect targets resolve.
func authPageHandler(action string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"action": action,
			"fields": []string{"email", "password"},
		})
	})
}

// Shared handler helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// pathID parses a UUID path segment.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad %s", ErrInvalidInput, name)
	}
	return id, nil
}

// currentUserID returns the authenticated user's id. requireAuth always
// runs first on guarded routes, so a parse failure here means a token was
// minted with a non-UUID subject.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(UserFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, fmt.Errorf("session subject is not a user id: %w", err)
	}
	return id, nil
}
