package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
)

const minPasswordLength = 8

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);`

// Store keeps user accounts in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (and creates if needed) the user database. dsn is a file
// path or a "file:" URI.
func OpenStore(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database url is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email address")
	}
	return email, nil
}

// CreateUser registers an email/password account.
func (s *Store) CreateUser(ctx context.Context, email, name, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, string(hash), u.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate checks an email/password pair.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	var (
		u         User
		hash      string
		createdAt int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.Name, &hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	// OAuth-only accounts have no password.
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &u, nil
}

// UpsertOAuthUser returns the account for an email verified by an OAuth
// provider, creating a password-less account on first sign-in.
func (s *Store) UpsertOAuthUser(ctx context.Context, email, name string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	u, err := s.getBy(ctx, "email", email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	u = &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getBy(ctx, "id", id)
}

func (s *Store) getBy(ctx context.Context, column, value string) (*User, error) {
	var (
		u         User
		createdAt int64
	)
	// column is always a constant chosen by this package.
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE `+column+` = ?`, value).
		Scan(&u.ID, &u.Email, &u.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
