package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/campushub/coursespaces/internal/models"
)

// UserRepository persists verified student records, at most one per user.
type UserRepository struct {
	docs   DocumentStore
	logger *zap.Logger
}

// NewUserRepository constructs the repository.
func NewUserRepository(docs DocumentStore, logger *zap.Logger) *UserRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserRepository{docs: docs, logger: logger}
}

// Get returns the user's record, or nil when the user never registered.
func (r *UserRepository) Get(ctx context.Context, userID int64) (*models.UserRecord, error) {
	data, err := loadDocument[models.UserRecord](ctx, r.docs, DocUsers, r.logger)
	if err != nil {
		return nil, err
	}
	rec, ok := data[userKey(userID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Upsert replaces the user's record wholesale.
func (r *UserRepository) Upsert(ctx context.Context, userID int64, rec models.UserRecord) error {
	return updateDocument(ctx, r.docs, DocUsers, r.logger, func(data map[string]models.UserRecord) map[string]models.UserRecord {
		data[userKey(userID)] = rec
		return data
	})
}

// Delete removes the user's record outright.
func (r *UserRepository) Delete(ctx context.Context, userID int64) error {
	return updateDocument(ctx, r.docs, DocUsers, r.logger, func(data map[string]models.UserRecord) map[string]models.UserRecord {
		delete(data, userKey(userID))
		return data
	})
}
