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

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// UserService implements the administrative user management operations.
type UserService struct {
	users             port.UserRepository
	audit             port.AuditRecorder
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	now               func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(users port.UserRepository, audit port.AuditRecorder, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		users:             users,
		audit:             audit,
		passwordValidator: security.DefaultPasswordValidator(),
		logger:            log,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// UserPage is a paginated listing result.
type UserPage struct {
	Users      []domain.User
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// List returns a page of users ordered by creation time, newest first.
// Password hashes are stripped before the page leaves the usecase.
func (s *UserService) List(ctx context.Context, page, limit int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	users, err := s.users.List(ctx, port.UserFilter{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	for i := range users {
		users[i] = users[i].Sanitized()
	}

	totalPages := (total + limit - 1) / limit

	return &UserPage{
		Users:      users,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Get returns a single sanitized user.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// CreateUserInput captures the admin user-creation payload.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
	IsActive  *bool
}

// Create provisions a user on behalf of an administrator.
func (s *UserService) Create(ctx context.Context, actorID string, input CreateUserInput) (*domain.User, error) {
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

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     isActive,
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

	s.recordAudit(ctx, domain.AuditActionUserCreated, actorID, user)

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// UpdateUserInput captures a partial user update; nil fields stay untouched.
type UpdateUserInput struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Role      *domain.Role
	IsActive  *bool
}

// Update applies a partial update to an existing user.
func (s *UserService) Update(ctx context.Context, actorID, id string, input UpdateUserInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return nil, fmt.Errorf("email cannot be empty")
		}
		if email != user.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("lookup user: %w", err)
			}
			user.Email = email
		}
	}

	if input.Password != nil && *input.Password != "" {
		if err := s.passwordValidator.Validate(*input.Password); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
		hash, err := security.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if input.FirstName != nil {
		first := strings.TrimSpace(*input.FirstName)
		if first == "" {
			user.FirstName = nil
		} else {
			user.FirstName = &first
		}
	}
	if input.LastName != nil {
		last := strings.TrimSpace(*input.LastName)
		if last == "" {
			user.LastName = nil
		} else {
			user.LastName = &last
		}
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, fmt.Errorf("unknown role %q", *input.Role)
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, *user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.recordAudit(ctx, domain.AuditActionUserUpdated, actorID, *user)

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Delete removes a user. Refresh tokens cascade at the schema level.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.recordAudit(ctx, domain.AuditActionUserDeleted, actorID, *user)

	return nil
}

func (s *UserService) recordAudit(ctx context.Context, action, actorID string, subject domain.User) {
	if s.audit == nil {
		return
	}

	entry := domain.AuditEntry{
		ID:     uuid.NewString(),
		Action: action,
		Details: map[string]any{
			"userId": subject.ID,
			"email":  subject.Email,
		},
		CreatedAt: s.now(),
	}
	if actorID != "" {
		actor := actorID
		entry.UserID = &actor
	}

	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit event dropped",
			zap.String("action", action),
			zap.String("email", logger.MaskEmail(subject.Email)),
			zap.Error(err),
		)
	}
}
