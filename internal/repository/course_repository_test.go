package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
)

func TestCourseRepositoryFindWithWindows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = $1")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows(courseColumns).AddRow("course-1", "MAT101", "Algebra", 3.0, 30, 12, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_schedules WHERE course_id IN ($1)")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "day_of_week", "start_time", "end_time"}).
			AddRow("course-1", 0, "08:00:00", "09:30:00").
			AddRow("course-1", 3, "08:00:00", "09:30:00"))

	course, err := repo.FindWithWindows(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 30, course.MaxCapacity)
	require.Len(t, course.Windows, 2)
	assert.Equal(t, 3, course.Windows[1].Weekday)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListAppliesMinCapacity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE max_capacity >= $1 ORDER BY code, id")).
		WithArgs(25).
		WillReturnRows(sqlmock.NewRows(courseColumns).AddRow("course-1", "MAT101", "Algebra", 3.0, 30, 0, nil, now, now))

	courses, err := repo.List(context.Background(), models.CourseFilter{MinCapacity: 25})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryWindowsByCourseEmptyInput(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	windows, err := repo.WindowsByCourse(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, windows)
	require.NoError(t, mock.ExpectationsWereMet())
}
