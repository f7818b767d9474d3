package models

import "time"

// BatchStatus tracks asynchronous batch processing.
type BatchStatus string

// Batch lifecycle states.
const (
	BatchStatusQueued    BatchStatus = "QUEUED"
	BatchStatusCompleted BatchStatus = "COMPLETED"
)

// BatchFailure records why a single student could not be enrolled.
type BatchFailure struct {
	StudentID string             `json:"student_id"`
	Code      string             `json:"code"`
	Reason    string             `json:"reason"`
	Conflicts []ScheduleConflict `json:"conflicts,omitempty"`
}

// BatchResult collects per-student outcomes, in input order.
type BatchResult struct {
	CourseID  string         `json:"course_id"`
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// BatchJob is the stored view of an asynchronous batch request.
type BatchJob struct {
	ID          string       `json:"id"`
	CourseID    string       `json:"course_id"`
	Status      BatchStatus  `json:"status"`
	Submitted   int          `json:"submitted"`
	Result      *BatchResult `json:"result,omitempty"`
	SubmittedBy string       `json:"submitted_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
