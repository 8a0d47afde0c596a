// errors.go - Failure taxonomy shared by the registries and the HTTP boundary.
package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrInvalidInput covers client-correctable problems: blank folder
	// names, missing registration fields, malformed ids.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is deliberately undifferentiated: unknown
	// email and wrong password produce the same error so login attempts
	// cannot probe which emails are registered.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNotFound means no metadata record matched.
	ErrNotFound = errors.New("not found")

	// ErrObjectMissing means the metadata record exists but the stored
	// blob is gone. Kept distinct from ErrNotFound because metadata can
	// outlive the blob.
	ErrObjectMissing = errors.New("stored object missing")

	// ErrNoFile means the upload carried no file part.
	ErrNoFile = errors.New("no file provided")

	// ErrUploadBackend wraps storage backend failures during store/remove.
	ErrUploadBackend = errors.New("storage backend error")

	// ErrConstraintViolation surfaces referential-integrity failures,
	// e.g. deleting a folder that still has files or shares.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrForbidden is returned only when ownership enforcement is enabled.
	ErrForbidden = errors.New("forbidden")
)

// Postgres SQLSTATE codes the registries translate into typed errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// writeError maps a registry failure onto the HTTP surface. Unexpected
// errors are logged with the request id and collapse to a plain 500 so no
// internal detail leaks to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoFile):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrDuplicateEmail):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrObjectMissing):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrUploadBackend):
		http.Error(w, "storage backend error", http.StatusBadGateway)
	case errors.Is(err, ErrConstraintViolation):
		http.Error(w, "conflicting records exist", http.StatusInternalServerError)
	default:
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=unexpected_error path=%s err=%v", rid, r.URL.Path, err)
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}
