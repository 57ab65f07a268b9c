package models

// UserRecord holds the verified identity of a registered student.
type UserRecord struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}
