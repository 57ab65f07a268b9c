package repository

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// EnrollmentRepository persists the per-user slug lists. A user's list keeps
// insertion order and holds no duplicates; the user's key is removed outright
// once the list empties.
type EnrollmentRepository struct {
	docs   DocumentStore
	logger *zap.Logger
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(docs DocumentStore, logger *zap.Logger) *EnrollmentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentRepository{docs: docs, logger: logger}
}

// Add appends a slug to the user's enrollments, a no-op when already present.
func (r *EnrollmentRepository) Add(ctx context.Context, userID int64, slug string) error {
	key := userKey(userID)
	return updateDocument(ctx, r.docs, DocEnrollments, r.logger, func(data map[string][]string) map[string][]string {
		entries := data[key]
		for _, s := range entries {
			if s == slug {
				return data
			}
		}
		data[key] = append(entries, slug)
		return data
	})
}

// Remove deletes a slug from the user's enrollments, dropping the user's key
// entirely when the list becomes empty.
func (r *EnrollmentRepository) Remove(ctx context.Context, userID int64, slug string) error {
	key := userKey(userID)
	return updateDocument(ctx, r.docs, DocEnrollments, r.logger, func(data map[string][]string) map[string][]string {
		entries := data[key]
		kept := entries[:0]
		for _, s := range entries {
			if s != slug {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(data, key)
		} else {
			data[key] = kept
		}
		return data
	})
}

// List returns the user's enrolled slugs in insertion order.
func (r *EnrollmentRepository) List(ctx context.Context, userID int64) ([]string, error) {
	data, err := loadDocument[[]string](ctx, r.docs, DocEnrollments, r.logger)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), data[userKey(userID)]...), nil
}

// ListForTerm returns the user's slugs carrying the term prefix,
// case-insensitively, preserving insertion order.
func (r *EnrollmentRepository) ListForTerm(ctx context.Context, userID int64, term string) ([]string, error) {
	all, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefix := strings.ToLower(term) + "-"
	var matches []string
	for _, slug := range all {
		if strings.HasPrefix(strings.ToLower(slug), prefix) {
			matches = append(matches, slug)
		}
	}
	return matches, nil
}

// ByTermAndDept returns the user's slugs for one department within a term.
// Used to decide whether a container-level permission grant is still needed.
func (r *EnrollmentRepository) ByTermAndDept(ctx context.Context, userID int64, term, dept string) ([]string, error) {
	all, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefix := strings.ToLower(term)
	needle := "-" + strings.ToLower(dept) + "-"
	var matches []string
	for _, slug := range all {
		lower := strings.ToLower(slug)
		if strings.HasPrefix(lower, prefix) && strings.Contains(lower, needle) {
			matches = append(matches, slug)
		}
	}
	return matches, nil
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
