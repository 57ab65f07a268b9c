package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/campushub/coursespaces/internal/models"
)

// CourseIndexRepository persists the slug → platform-object mapping. Entries
// are written on first successful enrollment and intentionally survive drops:
// a stale entry is cheap to re-validate and preserves the link to archived
// threads. Every call re-reads from the backing document; there is no
// in-memory cache.
type CourseIndexRepository struct {
	docs   DocumentStore
	logger *zap.Logger
}

// NewCourseIndexRepository constructs the repository.
func NewCourseIndexRepository(docs DocumentStore, logger *zap.Logger) *CourseIndexRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseIndexRepository{docs: docs, logger: logger}
}

// Upsert records the platform objects backing a slug.
func (r *CourseIndexRepository) Upsert(ctx context.Context, slug string, ref models.CourseRef) error {
	return updateDocument(ctx, r.docs, DocCourseIndex, r.logger, func(data map[string]models.CourseRef) map[string]models.CourseRef {
		data[slug] = ref
		return data
	})
}

// Get returns the entry for a slug, or nil when the slug is not indexed.
// The returned reference is advisory and must be re-validated against the
// live platform before use.
func (r *CourseIndexRepository) Get(ctx context.Context, slug string) (*models.CourseRef, error) {
	data, err := loadDocument[models.CourseRef](ctx, r.docs, DocCourseIndex, r.logger)
	if err != nil {
		return nil, err
	}
	ref, ok := data[slug]
	if !ok {
		return nil, nil
	}
	return &ref, nil
}
