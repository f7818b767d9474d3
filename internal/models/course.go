package models

import "time"

// Course is an enrollable course section.
type Course struct {
	ID              string    `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	Name            string    `db:"name" json:"name"`
	Credit          float64   `db:"credit" json:"credit"`
	MaxCapacity     int       `db:"max_capacity" json:"max_capacity"`
	CurrentStudents int       `db:"current_students" json:"current_students"`
	TeacherID       *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CourseWithWindows is a course together with its weekly meeting windows.
type CourseWithWindows struct {
	Course
	Windows []TimeWindow `json:"windows"`
}

// CourseOccupancy summarises seat usage for a course.
type CourseOccupancy struct {
	CourseID       string `json:"course_id"`
	Occupancy      int    `json:"occupancy"`
	MaxCapacity    int    `json:"max_capacity"`
	AvailableSeats int    `json:"available_seats"`
}

// CourseFilter holds static predicates for course-section availability lookups.
type CourseFilter struct {
	MinCapacity int
}
