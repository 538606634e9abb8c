package domain

import "time"

// RefreshToken represents a persisted refresh token (stored as a hash).
// A row exists for exactly one live link of a session chain; rotation
// deletes the row and creates its successor.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time

	// Owner is populated by the store lookup via a join so callers can
	// reject deactivated accounts without a second round trip.
	Owner User
}

// IsExpired reports whether the token has elapsed its validity window.
// The store row is authoritative; signature expiry alone is never trusted.
func (t RefreshToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}
