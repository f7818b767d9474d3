package models

// ResourceKind selects which resource family an availability query covers.
type ResourceKind string

// Supported resource kinds.
const (
	ResourceClassroom ResourceKind = "classroom"
	ResourceCourse    ResourceKind = "course"
)

// AvailabilityQuery describes a candidate window plus static filters.
type AvailabilityQuery struct {
	Kind             ResourceKind
	Weekday          int
	Start            Clock
	End              Clock
	MinCapacity      int
	RequireProjector bool
	RequireComputer  bool
}

// Resource is a classroom or course section free during the candidate window.
type Resource struct {
	Kind      ResourceKind `json:"kind"`
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Capacity  int          `json:"capacity"`
	Classroom *Classroom   `json:"classroom,omitempty"`
	Course    *Course      `json:"course,omitempty"`
}

// ScheduledResource carries a resource with the windows already booked on it.
type ScheduledResource struct {
	Resource
	Windows []TimeWindow
}
