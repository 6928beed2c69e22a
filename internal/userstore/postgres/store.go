// Package postgres is the production [storeAuth.UserProvider]: users, roles
// and role assignments in PostgreSQL over database/sql and the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	storeAuth "github.com/MrEthical07/storeAuth"
	"github.com/MrEthical07/storeAuth/internal/userstore/postgres/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DefaultRole is assigned to every account created through CreateUser.
const DefaultRole = "customer"

const (
	codeUniqueViolation   = "23505"
	codeInvalidTextFormat = "22P02"
	selectUserColumns     = `SELECT id, email, fname, lname, password_hash, is_active FROM users`
)

// Store implements [storeAuth.UserProvider].
type Store struct {
	db          *sql.DB
	defaultRole string
}

// Open opens a pgx-backed *sql.DB. It does not ping.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// New wraps db. An empty defaultRole falls back to [DefaultRole].
func New(db *sql.DB, defaultRole string) *Store {
	if defaultRole == "" {
		defaultRole = DefaultRole
	}
	return &Store{db: db, defaultRole: defaultRole}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (s *Store) queryUser(ctx context.Context, where string, arg any) (storeAuth.UserRecord, error) {
	var (
		u      storeAuth.UserRecord
		active bool
	)
	err := s.db.QueryRowContext(ctx, selectUserColumns+" WHERE "+where, arg).
		Scan(&u.UserID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || pgCode(err) == codeInvalidTextFormat {
			return storeAuth.UserRecord{}, storeAuth.ErrUserNotFound
		}
		return storeAuth.UserRecord{}, fmt.Errorf("db error: %w", err)
	}

	u.Status = storeAuth.AccountActive
	if !active {
		u.Status = storeAuth.AccountDisabled
	}
	return u, nil
}

// GetUserByIdentifier looks a user up by email.
func (s *Store) GetUserByIdentifier(ctx context.Context, identifier string) (storeAuth.UserRecord, error) {
	return s.queryUser(ctx, "email = $1", strings.ToLower(strings.TrimSpace(identifier)))
}

// GetUserByID looks a user up by id. Ids that are not UUIDs are reported
// as not found.
func (s *Store) GetUserByID(ctx context.Context, userID string) (storeAuth.UserRecord, error) {
	return s.queryUser(ctx, "id = $1", userID)
}

// CreateUser inserts the user and assigns the default role in one
// transaction. A taken email maps to [storeAuth.ErrAccountExists].
func (s *Store) CreateUser(ctx context.Context, in storeAuth.CreateUserInput) (storeAuth.UserRecord, error) {
	u := storeAuth.UserRecord{
		UserID:       uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: in.PasswordHash,
		Status:       storeAuth.AccountActive,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeAuth.UserRecord{}, fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, fname, lname, password_hash) VALUES ($1, $2, $3, $4, $5)`,
		u.UserID, u.Email, u.FirstName, u.LastName, u.PasswordHash)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return storeAuth.UserRecord{}, fmt.Errorf("%w: %s", storeAuth.ErrAccountExists, u.Email)
		}
		return storeAuth.UserRecord{}, fmt.Errorf("db error: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) SELECT $1, id FROM roles WHERE name = $2`,
		u.UserID, s.defaultRole)
	if err != nil {
		return storeAuth.UserRecord{}, fmt.Errorf("db error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return storeAuth.UserRecord{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// ResolveRoles returns the user's role names in name order.
func (s *Store) ResolveRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1 ORDER BY r.name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return roles, nil
}

// AssignRole grants role to userID. Granting a held role is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID, role string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) SELECT $1, id FROM roles WHERE name = $2 ON CONFLICT DO NOTHING`,
		userID, role)
	if err != nil {
		if pgCode(err) == codeInvalidTextFormat {
			return storeAuth.ErrUserNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, role).Scan(&exists); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if !exists {
			return fmt.Errorf("unknown role %q", role)
		}
	}
	return nil
}

// SetActive enables or disables an account.
func (s *Store) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, userID, active)
	if err != nil {
		if pgCode(err) == codeInvalidTextFormat {
			return storeAuth.ErrUserNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storeAuth.ErrUserNotFound
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
