package port

import (
	"context"
	"time"

	"github.com/arklim/admin-panel-api/internal/core/domain"
)

// TokenRepository manages refresh token records. The store, not the token
// signature, is the source of truth for refresh validity: a deleted row can
// never be presented again.
type TokenRepository interface {
	Create(ctx context.Context, token domain.RefreshToken) error
	// GetByHash returns the record with its owning user joined in.
	GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	// DeleteByID removes exactly one row and returns repository.ErrNotFound
	// when nothing was deleted. Rotation uses this as its serialization
	// point: concurrent refreshes racing on one token see at most one win.
	DeleteByID(ctx context.Context, id string) error
	// DeleteByHash is idempotent and reports how many rows were removed.
	DeleteByHash(ctx context.Context, hash string) (int64, error)
	// DeleteExpiredBefore garbage-collects rows whose expiry precedes cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
