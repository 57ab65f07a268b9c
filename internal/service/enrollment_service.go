package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/coursespaces/internal/course"
	"github.com/campushub/coursespaces/internal/models"
	"github.com/campushub/coursespaces/internal/platform"
	appErrors "github.com/campushub/coursespaces/pkg/errors"
)

type courseIndex interface {
	Upsert(ctx context.Context, slug string, ref models.CourseRef) error
	Get(ctx context.Context, slug string) (*models.CourseRef, error)
}

type enrollmentStore interface {
	Add(ctx context.Context, userID int64, slug string) error
	Remove(ctx context.Context, userID int64, slug string) error
	List(ctx context.Context, userID int64) ([]string, error)
	ListForTerm(ctx context.Context, userID int64, term string) ([]string, error)
	ByTermAndDept(ctx context.Context, userID int64, term, dept string) ([]string, error)
}

type termSource interface {
	Current() string
}

// EnrollmentService is the reconciliation engine: it derives canonical names,
// ensures the category/container/thread subtree exists on the platform, and
// keeps the local course index and per-user enrollment lists consistent with
// platform reality. All platform calls run sequentially within one workflow
// and no lock is held across them.
type EnrollmentService struct {
	index             courseIndex
	enrollments       enrollmentStore
	provisioner       platform.Provisioner
	terms             termSource
	metrics           *MetricsService
	logger            *zap.Logger
	privateContainers bool
}

// NewEnrollmentService constructs the orchestrator. metrics may be nil.
func NewEnrollmentService(index courseIndex, enrollments enrollmentStore, provisioner platform.Provisioner, terms termSource, metrics *MetricsService, logger *zap.Logger, privateContainers bool) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		index:             index,
		enrollments:       enrollments,
		provisioner:       provisioner,
		terms:             terms,
		metrics:           metrics,
		logger:            logger,
		privateContainers: privateContainers,
	}
}

// Enroll joins a user to the private thread for (dept, number) in the current
// term, provisioning the category, container and thread as needed. The
// operation is idempotent: an already-enrolled user gets a success result
// with EnrollStatusAlreadyJoined. A failure at any ensure step aborts the
// whole operation with no index or enrollment mutation.
func (s *EnrollmentService) Enroll(ctx context.Context, userID int64, dept, number string) (*models.EnrollResult, error) {
	if !course.IsDepartment(dept) {
		s.observeEnroll("rejected")
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown department")
	}
	if strings.TrimSpace(number) == "" {
		s.observeEnroll("rejected")
		return nil, appErrors.Clone(appErrors.ErrValidation, "course number is required")
	}

	term := s.terms.Current()
	slug := course.Slug(term, dept, number)
	log := s.logger.With(
		zap.String("op_id", uuid.NewString()),
		zap.Int64("user_id", userID),
		zap.String("slug", slug),
	)

	categoryID, err := s.provisioner.EnsureCategory(ctx, course.CategoryName(term))
	if err != nil {
		s.observeProvision("category", "error")
		s.observeEnroll("failed")
		return nil, s.platformError(err, "failed to ensure course category")
	}
	s.observeProvision("category", "ok")

	containerName := course.ContainerName(dept, term)
	containerID, err := s.provisioner.EnsureContainer(ctx, categoryID, containerName)
	if err != nil {
		s.observeProvision("container", "error")
		s.observeEnroll("failed")
		return nil, s.platformError(err, "failed to ensure course container")
	}
	s.observeProvision("container", "ok")

	threadID, err := s.provisioner.EnsurePrivateThread(ctx, containerID, slug)
	if err != nil {
		s.observeProvision("thread", "error")
		s.observeEnroll("failed")
		return nil, s.platformError(err, "failed to ensure course thread")
	}
	s.observeProvision("thread", "ok")

	if s.privateContainers {
		// Advisory: container visibility is a convenience, thread membership
		// is what gates participation.
		if err := s.provisioner.GrantContainerAccess(ctx, containerID, userID); err != nil {
			log.Warn("container access grant failed", zap.Error(err))
		}
	}

	member, err := s.provisioner.ThreadHasMember(ctx, threadID, userID)
	if err != nil {
		log.Debug("thread membership check failed", zap.Error(err))
		member = false
	}
	if member {
		s.observeEnroll("already_joined")
		return &models.EnrollResult{Slug: slug, ThreadID: threadID, Status: models.EnrollStatusAlreadyJoined}, nil
	}

	if err := s.provisioner.AddThreadMember(ctx, threadID, userID); err != nil {
		s.observeEnroll("failed")
		return nil, s.platformError(err, "failed to add user to "+slug)
	}

	if err := s.index.Upsert(ctx, slug, models.CourseRef{ContainerID: containerID, ThreadID: threadID}); err != nil {
		s.observeEnroll("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record course index entry")
	}
	if err := s.enrollments.Add(ctx, userID, slug); err != nil {
		s.observeEnroll("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record enrollment")
	}

	log.Info("enrolled", zap.Int64("thread_id", threadID))
	s.observeEnroll("joined")
	return &models.EnrollResult{Slug: slug, ThreadID: threadID, Status: models.EnrollStatusJoined}, nil
}

// Drop removes the user from each slug's thread, independently per slug, and
// reports the partition into dropped and failed. A slug whose thread cannot
// be resolved is treated as no longer enrolled: the enrollment record is
// removed but the slug is reported as a "not found" failure. When the
// platform refuses the removal the enrollment record is kept, so local state
// stays consistent with the user's actual thread membership. Index entries
// are never pruned here; stale ones are re-validated on the next resolution.
func (s *EnrollmentService) Drop(ctx context.Context, userID int64, slugs []string) *models.DropReport {
	report := &models.DropReport{}
	term := s.terms.Current()
	log := s.logger.With(
		zap.String("op_id", uuid.NewString()),
		zap.Int64("user_id", userID),
	)

	for _, slug := range slugs {
		threadID, found := s.ResolveThread(ctx, slug)
		if !found {
			if err := s.enrollments.Remove(ctx, userID, slug); err != nil {
				log.Warn("failed to remove enrollment record", zap.String("slug", slug), zap.Error(err))
			}
			report.Failed = append(report.Failed, models.DropFailure{Slug: slug, Reason: "not found"})
			s.observeDrop("not_found")
			continue
		}

		if err := s.provisioner.RemoveThreadMember(ctx, threadID, userID); err != nil {
			report.Failed = append(report.Failed, models.DropFailure{Slug: slug, Reason: err.Error()})
			s.observeDrop("failed")
			continue
		}

		if err := s.enrollments.Remove(ctx, userID, slug); err != nil {
			log.Warn("failed to remove enrollment record", zap.String("slug", slug), zap.Error(err))
		}
		report.Dropped = append(report.Dropped, slug)
		s.observeDrop("dropped")

		if s.privateContainers {
			s.maybeRevokeContainerAccess(ctx, log, userID, term, slug)
		}
	}
	return report
}

// ResolveThread locates the live thread for a slug. The index entry is
// consulted first and re-validated against the platform; a stale or missing
// entry falls back to discovery by derived container name, live threads
// first, then archived listings.
func (s *EnrollmentService) ResolveThread(ctx context.Context, slug string) (int64, bool) {
	if ref, err := s.index.Get(ctx, slug); err == nil && ref != nil {
		exists, err := s.provisioner.ThreadExists(ctx, ref.ThreadID)
		if err == nil && exists {
			return ref.ThreadID, true
		}
	}

	dept, ok := course.DeptFromSlug(slug)
	if !ok {
		return 0, false
	}
	containerID, err := s.provisioner.ContainerByName(ctx, course.ContainerName(dept, s.terms.Current()))
	if err != nil {
		return 0, false
	}
	threadID, err := s.provisioner.ThreadByName(ctx, containerID, slug)
	if err != nil {
		return 0, false
	}
	return threadID, true
}

// maybeRevokeContainerAccess clears the user's container overwrite once the
// user has no remaining enrollments in that department for the term.
// Best-effort throughout.
func (s *EnrollmentService) maybeRevokeContainerAccess(ctx context.Context, log *zap.Logger, userID int64, term, slug string) {
	dept, ok := course.DeptFromSlug(slug)
	if !ok {
		return
	}
	remaining, err := s.enrollments.ByTermAndDept(ctx, userID, term, dept)
	if err != nil || len(remaining) > 0 {
		return
	}
	containerID, err := s.provisioner.ContainerByName(ctx, course.ContainerName(dept, term))
	if err != nil {
		return
	}
	if err := s.provisioner.RevokeContainerAccess(ctx, containerID, userID); err != nil {
		log.Warn("container access revoke failed",
			zap.String("slug", slug),
			zap.Error(err),
		)
	}
}

func (s *EnrollmentService) platformError(err error, message string) error {
	if errors.Is(err, platform.ErrPermissionDenied) {
		return appErrors.Wrap(err, appErrors.ErrPermissionDenied.Code, appErrors.ErrPermissionDenied.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, message)
}

func (s *EnrollmentService) observeEnroll(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveEnroll(outcome)
	}
}

func (s *EnrollmentService) observeDrop(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveDrop(outcome)
	}
}

func (s *EnrollmentService) observeProvision(kind, result string) {
	if s.metrics != nil {
		s.metrics.ObserveProvision(kind, result)
	}
}
