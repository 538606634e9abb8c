package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/core/port"
	"github.com/arklim/admin-panel-api/internal/infra/logger"
	"github.com/arklim/admin-panel-api/internal/infra/security"
	"github.com/arklim/admin-panel-api/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the identifier or password are incorrect.
	// Unknown email and wrong password collapse into this one error so the
	// response cannot be used for user enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDeactivated indicates the account exists but is disabled.
	ErrAccountDeactivated = errors.New("account is deactivated")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidRefreshToken indicates the refresh token does not exist or was already rotated.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the refresh token record outlived its expiry.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	// ErrPasswordPolicyViolation indicates the password does not satisfy the policy.
	ErrPasswordPolicyViolation = errors.New("password does not meet requirements")
)

// AuthService coordinates registration, login, and the refresh token
// lifecycle. The token repository is the single source of truth for refresh
// validity; all rotation coordination happens through it.
type AuthService struct {
	users             port.UserRepository
	tokens            port.TokenRepository
	issuer            *security.TokenIssuer
	audit             port.AuditRecorder
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	now               func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	tokens port.TokenRepository,
	issuer *security.TokenIssuer,
	audit port.AuditRecorder,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:             users,
		tokens:            tokens,
		issuer:            issuer,
		audit:             audit,
		passwordValidator: security.DefaultPasswordValidator(),
		logger:            log,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithClock injects a custom clock (primarily for testing).
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// TokenPair carries an access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	TokenPair
	User domain.User
}

// RegisterInput captures the registration payload.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

// Register creates a new account and signs it in. Self-registration emits
// no audit event; only admin-initiated user management is audited.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	if err := s.passwordValidator.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}
	if score := s.passwordValidator.Score(input.Password, email); score < 2 {
		s.logger.Warn("weak password accepted at registration",
			zap.String("email", logger.MaskEmail(email)),
			zap.Int("score", score),
		)
	}

	// Exact-match lookup; the unique constraint on the insert below covers
	// the race between check and create.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if first := strings.TrimSpace(input.FirstName); first != "" {
		user.FirstName = &first
	}
	if last := strings.TrimSpace(input.LastName); last != "" {
		user.LastName = &last
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{TokenPair: *pair, User: user.Sanitized()}, nil
}

// Login validates credentials and issues a token pair. Unknown email and
// wrong password return the same error; the deactivation check runs only
// after existence is confirmed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, *user)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, domain.AuditActionUserLogin, *user)

	return &AuthResult{TokenPair: *pair, User: user.Sanitized()}, nil
}

// Refresh rotates a refresh token: the presented token is consumed exactly
// once and a fresh pair bound to the same user is issued. Replaying a rotated
// token fails because its row no longer exists.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	hash := security.HashToken(refreshToken)
	record, err := s.tokens.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	// Expiry is checked against the stored row, not the token signature:
	// the store stays authoritative even for rows not yet garbage-collected.
	if record.IsExpired(s.now()) {
		if err := s.tokens.DeleteByID(ctx, record.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("delete expired refresh token: %w", err)
		}
		return nil, ErrExpiredRefreshToken
	}

	if !record.Owner.IsActive {
		return nil, ErrAccountDeactivated
	}

	// Deleting the old row before issuing the successor is the serialization
	// point for concurrent refreshes: of two racers, exactly one delete
	// affects a row and the other observes not-found.
	if err := s.tokens.DeleteByID(ctx, record.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	pair, err := s.issueTokens(ctx, record.Owner)
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout deletes the refresh token record if present. It is idempotent and
// always reports success; the audit event fires only when a row was actually
// removed.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	hash := security.HashToken(refreshToken)
	record, err := s.tokens.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup refresh token: %w", err)
	}

	affected, err := s.tokens.DeleteByHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	if affected > 0 {
		s.recordAudit(ctx, domain.AuditActionUserLogout, record.Owner)
	}

	return nil
}

// PurgeExpiredTokens removes refresh token rows whose expiry has passed and
// reports how many were removed. Rotation already rejects expired rows as it
// meets them; the sweep reclaims rows no client ever presents again.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	removed, err := s.tokens.DeleteExpiredBefore(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	return removed, nil
}

// CurrentUser returns the sanitized user for the authenticated subject.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user domain.User) (*TokenPair, error) {
	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.issuer.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := s.now()
	record := domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(refreshToken),
		CreatedAt: now,
		ExpiresAt: now.Add(s.issuer.RefreshTokenTTL()),
	}

	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// recordAudit hands an event to the sink and swallows any failure. Audit
// emission must never block or fail an auth flow.
func (s *AuthService) recordAudit(ctx context.Context, action string, user domain.User) {
	if s.audit == nil {
		return
	}

	userID := user.ID
	entry := domain.AuditEntry{
		ID:     uuid.NewString(),
		Action: action,
		UserID: &userID,
		Details: map[string]any{
			"userId": user.ID,
			"email":  user.Email,
		},
		CreatedAt: s.now(),
	}

	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit event dropped",
			zap.String("action", action),
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}
}
