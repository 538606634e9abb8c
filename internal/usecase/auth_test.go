package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/core/port"
	"github.com/arklim/admin-panel-api/internal/infra/config"
	"github.com/arklim/admin-panel-api/internal/infra/security"
	"github.com/arklim/admin-panel-api/internal/repository"
)

type memoryUserRepo struct {
	byID    map[string]domain.User
	byEmail map[string]string
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (m *memoryUserRepo) Create(_ context.Context, user domain.User) error {
	if _, exists := m.byEmail[user.Email]; exists {
		return repository.ErrDuplicate
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cloned := user
	return &cloned, nil
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.GetByID(context.Background(), id)
}

func (m *memoryUserRepo) Update(_ context.Context, user domain.User) error {
	existing, ok := m.byID[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if existing.Email != user.Email {
		if _, taken := m.byEmail[user.Email]; taken {
			return repository.ErrDuplicate
		}
		delete(m.byEmail, existing.Email)
		m.byEmail[user.Email] = user.ID
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUserRepo) Delete(_ context.Context, id string) error {
	user, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.byEmail, user.Email)
	delete(m.byID, id)
	return nil
}

func (m *memoryUserRepo) List(_ context.Context, filter port.UserFilter) ([]domain.User, error) {
	users := make([]domain.User, 0, len(m.byID))
	for _, user := range m.byID {
		users = append(users, user)
	}
	return users, nil
}

func (m *memoryUserRepo) Count(_ context.Context) (int, error) {
	return len(m.byID), nil
}

type memoryTokenRepo struct {
	users  *memoryUserRepo
	byID   map[string]domain.RefreshToken
	byHash map[string]string
}

func newMemoryTokenRepo(users *memoryUserRepo) *memoryTokenRepo {
	return &memoryTokenRepo{
		users:  users,
		byID:   make(map[string]domain.RefreshToken),
		byHash: make(map[string]string),
	}
}

func (m *memoryTokenRepo) Create(_ context.Context, token domain.RefreshToken) error {
	if _, exists := m.byHash[token.TokenHash]; exists {
		return repository.ErrDuplicate
	}
	m.byID[token.ID] = token
	m.byHash[token.TokenHash] = token.ID
	return nil
}

func (m *memoryTokenRepo) GetByHash(_ context.Context, hash string) (*domain.RefreshToken, error) {
	id, ok := m.byHash[hash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	record := m.byID[id]
	owner, err := m.users.GetByID(context.Background(), record.UserID)
	if err != nil {
		return nil, err
	}
	record.Owner = *owner
	return &record, nil
}

func (m *memoryTokenRepo) DeleteByID(_ context.Context, id string) error {
	record, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.byHash, record.TokenHash)
	delete(m.byID, id)
	return nil
}

func (m *memoryTokenRepo) DeleteByHash(_ context.Context, hash string) (int64, error) {
	id, ok := m.byHash[hash]
	if !ok {
		return 0, nil
	}
	delete(m.byHash, hash)
	delete(m.byID, id)
	return 1, nil
}

func (m *memoryTokenRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for id, record := range m.byID {
		if !record.ExpiresAt.After(cutoff) {
			delete(m.byHash, record.TokenHash)
			delete(m.byID, id)
			removed++
		}
	}
	return removed, nil
}

type recordingAuditSink struct {
	entries []domain.AuditEntry
	err     error
}

func (s *recordingAuditSink) Record(_ context.Context, entry domain.AuditEntry) error {
	s.entries = append(s.entries, entry)
	return s.err
}

func (s *recordingAuditSink) countByAction(action string) int {
	count := 0
	for _, entry := range s.entries {
		if entry.Action == action {
			count++
		}
	}
	return count
}

type authFixture struct {
	service *AuthService
	users   *memoryUserRepo
	tokens  *memoryTokenRepo
	audit   *recordingAuditSink
	clock   *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	issuer, err := security.NewTokenIssuer("admin-panel-test", config.JWTSettings{
		AccessSecret:    "access-secret-for-tests",
		RefreshSecret:   "refresh-secret-for-tests",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 168 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	users := newMemoryUserRepo()
	tokens := newMemoryTokenRepo(users)
	audit := &recordingAuditSink{}
	now := time.Now().UTC()

	service := NewAuthService(users, tokens, issuer, audit, nil).
		WithClock(func() time.Time { return now })

	return &authFixture{
		service: service,
		users:   users,
		tokens:  tokens,
		audit:   audit,
		clock:   &now,
	}
}

func (f *authFixture) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()

	result, err := f.service.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return result
}

func TestRegisterAndCurrentUserRoundTrip(t *testing.T) {
	f := newAuthFixture(t)

	result := f.register(t, "alice@example.com", "pw12345678")

	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if result.User.PasswordHash != "" {
		t.Fatal("password hash leaked in registration result")
	}
	if result.User.Role != domain.RoleUser {
		t.Fatalf("expected default role USER, got %s", result.User.Role)
	}

	user, err := f.service.CurrentUser(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("unexpected email: %s", user.Email)
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash leaked from CurrentUser")
	}

	if len(f.audit.entries) != 0 {
		t.Fatalf("registration must not emit audit events, got %d", len(f.audit.entries))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)

	f.register(t, "alice@example.com", "pw12345678")

	_, err := f.service.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Password: "anotherPass99",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Password: "short",
	})
	if !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}
}

func TestLoginUniformErrorForUnknownAndWrongPassword(t *testing.T) {
	f := newAuthFixture(t)

	f.register(t, "alice@example.com", "pw12345678")

	_, unknownErr := f.service.Login(context.Background(), "nobody@example.com", "pw12345678")
	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", unknownErr)
	}

	_, wrongErr := f.service.Login(context.Background(), "alice@example.com", "wrong-password")
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongErr)
	}

	if unknownErr.Error() != wrongErr.Error() {
		t.Fatal("unknown email and wrong password must be indistinguishable")
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	f := newAuthFixture(t)

	result := f.register(t, "alice@example.com", "pw12345678")

	stored := f.users.byID[result.User.ID]
	stored.IsActive = false
	f.users.byID[result.User.ID] = stored

	_, err := f.service.Login(context.Background(), "alice@example.com", "pw12345678")
	if !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
}

func TestLoginEmitsAuditEvent(t *testing.T) {
	f := newAuthFixture(t)

	registered := f.register(t, "alice@example.com", "pw12345678")

	result, err := f.service.Login(context.Background(), "alice@example.com", "pw12345678")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Fatal("login returned a different user")
	}

	if f.audit.countByAction(domain.AuditActionUserLogin) != 1 {
		t.Fatalf("expected one USER_LOGIN audit event, got %d", len(f.audit.entries))
	}
	entry := f.audit.entries[0]
	if entry.UserID == nil || *entry.UserID != registered.User.ID {
		t.Fatal("audit event missing acting user id")
	}
}

func TestBackToBackLoginsIssueDistinctTokens(t *testing.T) {
	f := newAuthFixture(t)

	registered := f.register(t, "alice@example.com", "pw12345678")

	first, err := f.service.Login(context.Background(), "alice@example.com", "pw12345678")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	second, err := f.service.Login(context.Background(), "alice@example.com", "pw12345678")
	if err != nil {
		t.Fatalf("immediate second Login returned error: %v", err)
	}

	if first.RefreshToken == registered.RefreshToken || first.RefreshToken == second.RefreshToken {
		t.Fatal("each login must mint a distinct refresh token")
	}

	if len(f.tokens.byID) != 3 {
		t.Fatalf("expected 3 live refresh records, got %d", len(f.tokens.byID))
	}
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)

	result := f.register(t, "alice@example.com", "pw12345678")
	original := result.RefreshToken

	pair, err := f.service.Refresh(context.Background(), original)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if pair.RefreshToken == original {
		t.Fatal("rotation must issue a distinct refresh token")
	}

	if _, err := f.service.Refresh(context.Background(), original); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken on replay, got %v", err)
	}

	if _, err := f.service.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("successor token should remain valid, got %v", err)
	}
}

func TestRefreshExpiredTokenRemovesRecord(t *testing.T) {
	f := newAuthFixture(t)

	result := f.register(t, "alice@example.com", "pw12345678")

	*f.clock = f.clock.Add(169 * time.Hour)

	if _, err := f.service.Refresh(context.Background(), result.RefreshToken); !errors.Is(err, ErrExpiredRefreshToken) {
		t.Fatalf("expected ErrExpiredRefreshToken, got %v", err)
	}

	if len(f.tokens.byID) != 0 {
		t.Fatalf("expired record should be removed, %d remain", len(f.tokens.byID))
	}

	if _, err := f.service.Refresh(context.Background(), result.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after removal, got %v", err)
	}
}

func TestPurgeExpiredTokensRemovesOnlyExpiredRows(t *testing.T) {
	f := newAuthFixture(t)

	f.register(t, "alice@example.com", "pw12345678")

	*f.clock = f.clock.Add(169 * time.Hour)

	fresh := f.register(t, "bob@example.com", "pw12345678")

	removed, err := f.service.PurgeExpiredTokens(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpiredTokens returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged row, got %d", removed)
	}
	if len(f.tokens.byID) != 1 {
		t.Fatalf("expected 1 surviving record, got %d", len(f.tokens.byID))
	}

	if _, err := f.service.Refresh(context.Background(), fresh.RefreshToken); err != nil {
		t.Fatalf("live token must survive the purge, got %v", err)
	}
}

func TestRefreshDeactivatedOwner(t *testing.T) {
	f := newAuthFixture(t)

	result := f.register(t, "alice@example.com", "pw12345678")

	stored := f.users.byID[result.User.ID]
	stored.IsActive = false
	f.users.byID[result.User.ID] = stored

	if _, err := f.service.Refresh(context.Background(), result.RefreshToken); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)

	result := f.register(t, "alice@example.com", "pw12345678")

	if err := f.service.Logout(context.Background(), result.RefreshToken); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if err := f.service.Logout(context.Background(), result.RefreshToken); err != nil {
		t.Fatalf("repeated Logout returned error: %v", err)
	}
	if err := f.service.Logout(context.Background(), "never-issued-token"); err != nil {
		t.Fatalf("Logout of unknown token returned error: %v", err)
	}

	if f.audit.countByAction(domain.AuditActionUserLogout) != 1 {
		t.Fatalf("expected exactly one USER_LOGOUT audit event, got %d", f.audit.countByAction(domain.AuditActionUserLogout))
	}

	if _, err := f.service.Refresh(context.Background(), result.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected refresh to fail after logout, got %v", err)
	}
}

func TestAuditFailureDoesNotFailLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.audit.err = errors.New("sink unavailable")

	f.register(t, "alice@example.com", "pw12345678")

	if _, err := f.service.Login(context.Background(), "alice@example.com", "pw12345678"); err != nil {
		t.Fatalf("Login must succeed when the audit sink fails, got %v", err)
	}
}
