package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/repository"
)

func TestTokenRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	now := time.Now().UTC()
	token := domain.RefreshToken{
		ID:        "token-1",
		UserID:    "user-1",
		TokenHash: "hash-1",
		CreatedAt: now,
		ExpiresAt: now.Add(168 * time.Hour),
	}

	mock.ExpectExec(`INSERT INTO admin\.refresh_tokens`).
		WithArgs(token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_GetByHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	now := time.Now().UTC()
	firstName := "Alice"

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "token_hash", "created_at", "expires_at",
		"u_id", "u_email", "u_password_hash", "u_first_name", "u_last_name", "u_role", "u_is_active", "u_created_at", "u_updated_at",
	}).AddRow(
		"token-1", "user-1", "hash-1", now, now.Add(time.Hour),
		"user-1", "alice@example.com", "argon-hash", firstName, nil, domain.RoleUser, true, now, now,
	)

	mock.ExpectQuery(`SELECT .*FROM admin\.refresh_tokens`).
		WithArgs("hash-1").
		WillReturnRows(rows)

	token, err := repo.GetByHash(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("GetByHash returned error: %v", err)
	}
	if token.ID != "token-1" || token.UserID != "user-1" {
		t.Fatalf("unexpected token row: %+v", token)
	}
	if token.Owner.Email != "alice@example.com" || !token.Owner.IsActive {
		t.Fatalf("expected owner joined in: %+v", token.Owner)
	}
	if token.Owner.FirstName == nil || *token.Owner.FirstName != firstName {
		t.Fatalf("expected owner first name populated")
	}
	if token.Owner.LastName != nil {
		t.Fatalf("expected owner last name nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_GetByHashNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM admin\.refresh_tokens`).
		WithArgs("absent").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "token_hash", "created_at", "expires_at",
			"u_id", "u_email", "u_password_hash", "u_first_name", "u_last_name", "u_role", "u_is_active", "u_created_at", "u_updated_at",
		}))

	if _, err := repo.GetByHash(context.Background(), "absent"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectExec(`DELETE FROM admin\.refresh_tokens`).
		WithArgs("token-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.DeleteByID(context.Background(), "token-1"); err != nil {
		t.Fatalf("DeleteByID returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteByIDMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectExec(`DELETE FROM admin\.refresh_tokens`).
		WithArgs("token-gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.DeleteByID(context.Background(), "token-gone"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteByHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectExec(`DELETE FROM admin\.refresh_tokens`).
		WithArgs("hash-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	affected, err := repo.DeleteByHash(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("DeleteByHash returned error: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected two rows removed, got %d", affected)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteExpiredBefore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	cutoff := time.Now().UTC()

	mock.ExpectExec(`DELETE FROM admin\.refresh_tokens`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	affected, err := repo.DeleteExpiredBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteExpiredBefore returned error: %v", err)
	}
	if affected != 3 {
		t.Fatalf("expected three rows removed, got %d", affected)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
