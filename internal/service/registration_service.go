package service

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/coursespaces/internal/models"
	"github.com/campushub/coursespaces/internal/platform"
	appErrors "github.com/campushub/coursespaces/pkg/errors"
)

var sidPattern = regexp.MustCompile(`^\d{10}$`)

type userStore interface {
	Get(ctx context.Context, userID int64) (*models.UserRecord, error)
	Upsert(ctx context.Context, userID int64, rec models.UserRecord) error
	Delete(ctx context.Context, userID int64) error
}

// RegisterRequest carries the identity details a student submits.
type RegisterRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required"`
}

// RegisterResult reports a completed registration. RoleGranted is false when
// the record was stored but the community role could not be granted; the
// caller should ask the user to retry from inside the community.
type RegisterResult struct {
	RoleGranted bool
	Message     string
}

// RegistrationService validates and persists student identity records and
// maps registered users to the community student role. It is the access
// precondition for enrollment, enforced by callers rather than inside the
// orchestrator.
type RegistrationService struct {
	users       userStore
	roles       platform.RoleManager
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	roleName    string
	emailSuffix string
}

// NewRegistrationService constructs the service. metrics may be nil.
func NewRegistrationService(users userStore, roles platform.RoleManager, roleName, emailSuffix string, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		users:       users,
		roles:       roles,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
		roleName:    roleName,
		emailSuffix: emailSuffix,
	}
}

// RoleName returns the configured student role name.
func (s *RegistrationService) RoleName() string {
	return s.roleName
}

// Validate checks a registration triple, returning a caller-facing
// validation error or nil. Nothing is persisted.
func (s *RegistrationService) Validate(studentID, email, name string) error {
	req := RegisterRequest{StudentID: studentID, Email: email, Name: name}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if !sidPattern.MatchString(studentID) {
		return appErrors.Clone(appErrors.ErrValidation, "student ID must be exactly 10 digits")
	}
	if !strings.HasSuffix(strings.ToLower(email), strings.ToLower(s.emailSuffix)) {
		return appErrors.Clone(appErrors.ErrValidation, "email must end with "+s.emailSuffix)
	}
	trimmed := strings.TrimSpace(name)
	if n := utf8.RuneCountInString(trimmed); n < 1 || n > 50 {
		return appErrors.Clone(appErrors.ErrValidation, "name length must be between 1 and 50 characters")
	}
	return nil
}

// Register validates the triple, persists the record (email lowercased, name
// trimmed) and attempts to grant the student role. The record is kept even
// when the grant fails; RoleGranted tells the two outcomes apart.
func (s *RegistrationService) Register(ctx context.Context, userID int64, studentID, email, name string) (*RegisterResult, error) {
	if err := s.Validate(studentID, email, name); err != nil {
		s.observeRegistration("rejected")
		return nil, err
	}

	rec := models.UserRecord{
		StudentID: studentID,
		Email:     strings.ToLower(email),
		Name:      strings.TrimSpace(name),
	}
	if err := s.users.Upsert(ctx, userID, rec); err != nil {
		s.observeRegistration("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store registration")
	}

	if err := s.roles.GrantRole(ctx, userID, s.roleName); err != nil {
		s.logger.Warn("role grant failed",
			zap.Int64("user_id", userID),
			zap.String("role", s.roleName),
			zap.Error(err),
		)
		s.observeRegistration("role_pending")
		return &RegisterResult{
			RoleGranted: false,
			Message:     "registered, but the role could not be granted; retry from inside the community",
		}, nil
	}

	s.observeRegistration("registered")
	return &RegisterResult{
		RoleGranted: true,
		Message:     "registered and granted the " + s.roleName + " role",
	}, nil
}

// Unregister deletes the user's record and best-effort revokes the role.
func (s *RegistrationService) Unregister(ctx context.Context, userID int64) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete registration")
	}
	if err := s.roles.RevokeRole(ctx, userID, s.roleName); err != nil {
		s.logger.Warn("role revoke failed",
			zap.Int64("user_id", userID),
			zap.String("role", s.roleName),
			zap.Error(err),
		)
	}
	return nil
}

// MemberHasRole reports whether the user currently carries the student role.
// Callers use it as the access gate in front of enrollment operations.
func (s *RegistrationService) MemberHasRole(ctx context.Context, userID int64) (bool, error) {
	return s.roles.MemberHasRole(ctx, userID, s.roleName)
}

// Record returns the user's stored registration, or nil when absent.
func (s *RegistrationService) Record(ctx context.Context, userID int64) (*models.UserRecord, error) {
	return s.users.Get(ctx, userID)
}

func (s *RegistrationService) observeRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveRegistration(outcome)
	}
}
