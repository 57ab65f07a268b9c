package models

// CourseRef maps a course slug to the platform objects backing it. Both IDs
// are opaque platform identifiers and advisory: the platform remains the
// source of truth, so holders must re-validate them before use.
type CourseRef struct {
	ContainerID int64 `json:"container_id"`
	ThreadID    int64 `json:"thread_id"`
}
