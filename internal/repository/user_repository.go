package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

const (
	userColumns    = `id, email, password_hash, full_name, role, counselor_id, active, last_login, created_at, updated_at`
	sessionFields  = `id, user_id, token_hash, expires_at, created_at, revoked, revoked_at, ip_address, user_agent`
	userLookupByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
)

// UserRepository reads accounts and persists refresh sessions and audit rows.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail matches the address case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.one(ctx, "find user by email", `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

// FindByID returns sql.ErrNoRows when the user does not exist.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.one(ctx, "find user by id", userLookupByID, id)
}

func (r *UserRepository) one(ctx context.Context, op, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, query, arg)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// UpdateLastLogin stamps a successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, ts.UTC()); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// CreateRefreshSession stores a new refresh session.
func (r *UserRepository) CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (` + sessionFields + `)
VALUES (:id, :user_id, :token_hash, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create refresh session: %w", err)
	}
	return nil
}

// FindRefreshSession looks a session up by token hash.
func (r *UserRepository) FindRefreshSession(ctx context.Context, tokenHash string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	err := r.db.GetContext(ctx, &session, `SELECT `+sessionFields+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("find refresh session: %w", err)
	}
	return &session, nil
}

// RevokeRefreshSession revokes a live session. It reports false when the
// session was already revoked, so only one caller can rotate a token.
func (r *UserRepository) RevokeRefreshSession(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE`, id, at.UTC())
	if err != nil {
		return false, fmt.Errorf("revoke refresh session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh session: %w", err)
	}
	return n == 1, nil
}
