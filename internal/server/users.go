// users.go - Credential store adapter: registration and verification
// against the users table. Only the bcrypt hash is ever stored.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost 12 balances hashing time against login throughput.
const bcryptCost = 12

// User is an account record. PasswordHash is never serialized.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`

	passwordHash string
}

// UserStore performs credential operations over the shared DB handle.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

type loginCredentials struct {
	Email    string
	Password string
}

func (c loginCredentials) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required, validation.Length(8, 128)),
	)
}

// Register creates a user from an email and plaintext password. The email
// is normalized to lower case; the password is hashed exactly as supplied
// so Verify sees the same bytes. A taken email yields ErrDuplicateEmail.
func (s *UserStore) Register(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := (loginCredentials{Email: email, Password: password}).validate(); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{ID: uuid.New(), Email: email, CreatedAt: time.Now().UTC()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, string(hash), u.CreatedAt,
	)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// dummyHash keeps Verify's timing flat when the email is unknown: the
// bcrypt comparison runs either way.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// Verify checks an email/password pair and returns the matching user.
// Lookup failure and hash mismatch collapse into ErrInvalidCredentials.
func (s *UserStore) Verify(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.passwordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// createUserHandler handles POST /create-user form submissions and
// redirects to the login page on success.
func (cfg Config) createUserHandler(users *UserStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := users.Register(r.Context(), r.FormValue("email"), r.FormValue("password")); err != nil {
			writeError(w, r, err)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
