package models

import "time"

// Classroom is a physical room that can host course meetings.
type Classroom struct {
	ID           string    `db:"id" json:"id"`
	RoomNumber   string    `db:"room_number" json:"room_number"`
	Building     string    `db:"building" json:"building"`
	Capacity     int       `db:"capacity" json:"capacity"`
	HasProjector bool      `db:"has_projector" json:"has_projector"`
	HasComputer  bool      `db:"has_computer" json:"has_computer"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter holds static capacity and equipment predicates.
type ClassroomFilter struct {
	MinCapacity      int
	RequireProjector bool
	RequireComputer  bool
}
