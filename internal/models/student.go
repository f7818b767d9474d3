package models

import "time"

// Student represents a learner known to the identity collaborator.
type Student struct {
	ID        string    `db:"id" json:"id"`
	StudentNo string    `db:"student_no" json:"student_no"`
	FullName  string    `db:"full_name" json:"full_name"`
	Cohort    string    `db:"cohort" json:"cohort"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
