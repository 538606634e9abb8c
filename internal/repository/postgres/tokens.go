package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/core/port"
	"github.com/arklim/admin-panel-api/internal/repository"
)

const tokensTable = adminSchema + ".refresh_tokens"

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository wires a PostgreSQL-backed refresh token repository.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	return &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create persists a refresh token record. Only the token hash is stored.
func (r *TokenRepository) Create(ctx context.Context, token domain.RefreshToken) error {
	stmt, args, err := r.builder.Insert(tokensTable).
		Columns("id", "user_id", "token_hash", "created_at", "expires_at").
		Values(token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash looks up a stored token by its hash and joins the owning user
// so callers get the account state in the same round trip.
func (r *TokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	stmt, args, err := r.builder.
		Select(
			"t.id",
			"t.user_id",
			"t.token_hash",
			"t.created_at",
			"t.expires_at",
			"u.id",
			"u.email",
			"u.password_hash",
			"u.first_name",
			"u.last_name",
			"u.role",
			"u.is_active",
			"u.created_at",
			"u.updated_at",
		).
		From(tokensTable + " t").
		Join(usersTable + " u ON u.id = t.user_id").
		Where(squirrel.Eq{"t.token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select refresh token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		token     domain.RefreshToken
		firstName sql.NullString
		lastName  sql.NullString
	)

	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.Owner.ID,
		&token.Owner.Email,
		&token.Owner.PasswordHash,
		&firstName,
		&lastName,
		&token.Owner.Role,
		&token.Owner.IsActive,
		&token.Owner.CreatedAt,
		&token.Owner.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	if firstName.Valid {
		value := firstName.String
		token.Owner.FirstName = &value
	}
	if lastName.Valid {
		value := lastName.String
		token.Owner.LastName = &value
	}

	return &token, nil
}

// DeleteByID removes a single token row. Zero rows affected surfaces as
// repository.ErrNotFound, which makes concurrent rotations lose cleanly.
func (r *TokenRepository) DeleteByID(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete(tokensTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete refresh token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteByHash removes every row matching the hash and reports how many
// were removed. Deleting an absent hash is not an error.
func (r *TokenRepository) DeleteByHash(ctx context.Context, tokenHash string) (int64, error) {
	stmt, args, err := r.builder.Delete(tokensTable).
		Where(squirrel.Eq{"token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete refresh token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete refresh token by hash: %w", err)
	}

	return ct.RowsAffected(), nil
}

// DeleteExpiredBefore purges tokens whose expiry is at or before the cutoff.
func (r *TokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete(tokensTable).
		Where(squirrel.LtOrEq{"expires_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
