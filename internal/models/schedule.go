package models

import "fmt"

// CourseSchedule is one persisted meeting slot of a course, optionally held in a classroom.
type CourseSchedule struct {
	ID          string  `db:"id" json:"id"`
	CourseID    string  `db:"course_id" json:"course_id"`
	ClassroomID *string `db:"classroom_id" json:"classroom_id,omitempty"`
	TimeWindow
}

// CourseWindows groups the meeting windows of a single course.
type CourseWindows struct {
	CourseID   string       `json:"course_id"`
	CourseName string       `json:"course_name,omitempty"`
	Windows    []TimeWindow `json:"windows"`
}

// ScheduleConflict pairs a candidate window with an existing window it overlaps.
type ScheduleConflict struct {
	Weekday               int        `json:"weekday"`
	ConflictingCourseID   string     `json:"conflicting_course_id"`
	ConflictingCourseName string     `json:"conflicting_course_name,omitempty"`
	ExistingWindow        TimeWindow `json:"existing_window"`
	CandidateWindow       TimeWindow `json:"candidate_window"`
}

// String describes the conflict for logs and messages.
func (c ScheduleConflict) String() string {
	name := c.ConflictingCourseName
	if name == "" {
		name = c.ConflictingCourseID
	}
	return fmt.Sprintf("%s overlaps %s (%s)", c.CandidateWindow, name, c.ExistingWindow)
}

// ScheduleConflictError is returned when a candidate course collides with enrolled courses.
type ScheduleConflictError struct {
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
