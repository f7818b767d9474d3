package service

import "github.com/noah-isme/sma-enrollment-api/internal/models"

// DetectConflicts pairs every candidate window with every overlapping window
// of the existing courses. Results follow candidate order first, then the
// order of existing courses and their windows. A course with no windows never
// conflicts.
func DetectConflicts(candidate []models.TimeWindow, existing []models.CourseWindows) []models.ScheduleConflict {
	conflicts := make([]models.ScheduleConflict, 0)
	if len(candidate) == 0 || len(existing) == 0 {
		return conflicts
	}
	for _, cw := range candidate {
		for _, course := range existing {
			for _, ew := range course.Windows {
				if !models.Overlaps(cw, ew) {
					continue
				}
				conflicts = append(conflicts, models.ScheduleConflict{
					Weekday:               cw.Weekday,
					ConflictingCourseID:   course.CourseID,
					ConflictingCourseName: course.CourseName,
					ExistingWindow:        ew,
					CandidateWindow:       cw,
				})
			}
		}
	}
	return conflicts
}

// IsFree reports whether none of the scheduled windows overlap the candidate.
func IsFree(candidate models.TimeWindow, scheduled []models.TimeWindow) bool {
	return len(DetectConflicts([]models.TimeWindow{candidate}, []models.CourseWindows{{Windows: scheduled}})) == 0
}
