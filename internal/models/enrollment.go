package models

// EnrollStatus signals how an enrollment request concluded.
type EnrollStatus string

const (
	EnrollStatusJoined        EnrollStatus = "joined"
	EnrollStatusAlreadyJoined EnrollStatus = "already_joined"
)

// EnrollResult reports a successful enrollment.
type EnrollResult struct {
	Slug     string       `json:"slug"`
	ThreadID int64        `json:"thread_id"`
	Status   EnrollStatus `json:"status"`
}

// DropFailure records a slug that could not be dropped cleanly and why.
type DropFailure struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}

// DropReport partitions a batch drop into succeeded and failed slugs.
// Partial success is the normal case, not an error.
type DropReport struct {
	Dropped []string      `json:"dropped"`
	Failed  []DropFailure `json:"failed"`
}
