package models

import "time"

// Enrollment relates one student to one course.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Grade     *float64  `db:"grade" json:"grade,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Graded reports whether a grade has been assigned.
func (e Enrollment) Graded() bool {
	return e.Grade != nil
}

// TimetableEntry is one meeting slot in a student's weekly timetable.
type TimetableEntry struct {
	CourseID   string `db:"course_id" json:"course_id"`
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	TimeWindow
}

// EnrollmentCount is a persisted occupancy row used for ledger reconciliation.
type EnrollmentCount struct {
	CourseID string `db:"course_id"`
	Count    int    `db:"count"`
}
