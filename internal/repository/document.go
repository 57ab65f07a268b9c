package repository

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Names of the three persisted documents.
const (
	DocCourseIndex = "course_index"
	DocEnrollments = "enrollments"
	DocUsers       = "users"
)

// DocumentStore persists whole named JSON documents. Save must be atomic
// from the perspective of a concurrent Load: readers never observe a
// partially written document. Update runs a full load-transform-save cycle
// while holding the document's lock, so two concurrent mutations of the same
// document cannot lose each other's writes. Load returns (nil, nil) for a
// document that does not exist yet.
type DocumentStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Update(ctx context.Context, name string, transform func(raw []byte) ([]byte, error)) error
}

// decodeDocument decodes a document into a string-keyed map. An absent or
// unparseable document yields an empty map: availability is prioritised over
// strict durability, so a corrupt document is reset on the next save rather
// than wedging every operation.
func decodeDocument[V any](name string, raw []byte, logger *zap.Logger) map[string]V {
	out := make(map[string]V)
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warn("document unreadable, treating as empty",
			zap.String("document", name),
			zap.Error(err),
		)
		return make(map[string]V)
	}
	return out
}

// loadDocument reads and decodes a document. Backend transport failures
// still propagate; only absence and corruption degrade to an empty map.
func loadDocument[V any](ctx context.Context, docs DocumentStore, name string, logger *zap.Logger) (map[string]V, error) {
	raw, err := docs.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return decodeDocument[V](name, raw, logger), nil
}

// updateDocument applies a pure transform to a document under the backend's
// document lock.
func updateDocument[V any](ctx context.Context, docs DocumentStore, name string, logger *zap.Logger, transform func(map[string]V) map[string]V) error {
	return docs.Update(ctx, name, func(raw []byte) ([]byte, error) {
		data := transform(decodeDocument[V](name, raw, logger))
		return json.MarshalIndent(data, "", "  ")
	})
}
