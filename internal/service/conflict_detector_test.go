package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
)

func window(day, startH, startM, endH, endM int) models.TimeWindow {
	return models.TimeWindow{Weekday: day, Start: models.NewClock(startH, startM), End: models.NewClock(endH, endM)}
}

func TestDetectConflictsEmptyInputs(t *testing.T) {
	assert.Empty(t, DetectConflicts(nil, []models.CourseWindows{{CourseID: "a", Windows: []models.TimeWindow{window(0, 9, 0, 10, 0)}}}))
	assert.Empty(t, DetectConflicts([]models.TimeWindow{window(0, 9, 0, 10, 0)}, nil))
	assert.NotNil(t, DetectConflicts(nil, nil))
}

func TestDetectConflictsSingleOverlap(t *testing.T) {
	existing := []models.CourseWindows{{CourseID: "course-a", Windows: []models.TimeWindow{window(0, 9, 0, 10, 0)}}}
	conflicts := DetectConflicts([]models.TimeWindow{window(0, 9, 30, 10, 30)}, existing)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "course-a", conflicts[0].ConflictingCourseID)
	assert.Equal(t, 0, conflicts[0].Weekday)
	assert.Equal(t, window(0, 9, 0, 10, 0), conflicts[0].ExistingWindow)
	assert.Equal(t, window(0, 9, 30, 10, 30), conflicts[0].CandidateWindow)
}

func TestDetectConflictsOrderFollowsInput(t *testing.T) {
	candidate := []models.TimeWindow{window(2, 13, 0, 15, 0), window(0, 8, 0, 12, 0)}
	existing := []models.CourseWindows{
		{CourseID: "late", Windows: []models.TimeWindow{window(0, 11, 0, 12, 0), window(2, 14, 0, 16, 0)}},
		{CourseID: "early", Windows: []models.TimeWindow{window(0, 8, 0, 9, 0)}},
		{CourseID: "none", Windows: nil},
	}

	conflicts := DetectConflicts(candidate, existing)

	require.Len(t, conflicts, 3)
	assert.Equal(t, "late", conflicts[0].ConflictingCourseID)
	assert.Equal(t, 2, conflicts[0].Weekday)
	assert.Equal(t, "late", conflicts[1].ConflictingCourseID)
	assert.Equal(t, window(0, 11, 0, 12, 0), conflicts[1].ExistingWindow)
	assert.Equal(t, "early", conflicts[2].ConflictingCourseID)
}

func TestDetectConflictsIgnoresTouchingAndOtherDays(t *testing.T) {
	existing := []models.CourseWindows{{CourseID: "a", Windows: []models.TimeWindow{window(0, 9, 0, 10, 0), window(1, 10, 0, 11, 0)}}}
	assert.Empty(t, DetectConflicts([]models.TimeWindow{window(0, 10, 0, 11, 0)}, existing))
}

func TestIsFree(t *testing.T) {
	scheduled := []models.TimeWindow{window(3, 9, 0, 10, 0)}
	assert.True(t, IsFree(window(3, 10, 0, 11, 0), scheduled))
	assert.False(t, IsFree(window(3, 9, 59, 11, 0), scheduled))
	assert.True(t, IsFree(window(3, 9, 0, 10, 0), nil))
}
