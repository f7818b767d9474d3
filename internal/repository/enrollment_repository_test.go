package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)")).
		WithArgs("stu-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateWithOccupancy(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments (id, student_id, course_id, created_at)")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET current_students = current_students + 1")).
		WithArgs("course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "stu-1", CourseID: "course-1"}
	require.NoError(t, repo.CreateWithOccupancy(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.False(t, enrollment.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDuplicateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.CreateWithOccupancy(context.Background(), &models.Enrollment{StudentID: "stu-1", CourseID: "course-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateEnrollment))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateRollsBackOnOccupancyFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET current_students")).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.CreateWithOccupancy(context.Background(), &models.Enrollment{StudentID: "stu-1", CourseID: "course-1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDuplicateEnrollment))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteWithOccupancy(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id = $1")).
		WithArgs("enr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET current_students = GREATEST(current_students - 1, 0)")).
		WithArgs("course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteWithOccupancy(context.Background(), &models.Enrollment{ID: "enr-1", CourseID: "course-1"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id = $1")).
		WithArgs("enr-9").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteWithOccupancy(context.Background(), &models.Enrollment{ID: "enr-9", CourseID: "course-1"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListCourseWindowsByStudentGroupsInOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"course_id", "course_name", "day_of_week", "start_time", "end_time"}).
		AddRow("course-b", "Biology", 0, "09:00:00", "10:00:00").
		AddRow("course-b", "Biology", 2, "09:00:00", "10:00:00").
		AddRow("course-a", "Algebra", 1, "13:00:00", "14:30:00")
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	windows, err := repo.ListCourseWindowsByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, "course-b", windows[0].CourseID)
	assert.Len(t, windows[0].Windows, 2)
	assert.Equal(t, "course-a", windows[1].CourseID)
	assert.Equal(t, models.NewClock(14, 30), windows[1].Windows[0].End)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_id, COUNT(*) AS count FROM enrollments GROUP BY course_id")).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "count"}).AddRow("course-1", 3).AddRow("course-2", 1))

	counts, err := repo.CountByCourse(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 3, counts[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, course_id, grade, created_at FROM enrollments WHERE id = $1")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "grade", "created_at"}).
			AddRow("enr-1", "stu-1", "course-1", 88.5, time.Now()))

	enrollment, err := repo.FindByID(context.Background(), "enr-1")
	require.NoError(t, err)
	require.NotNil(t, enrollment.Grade)
	assert.True(t, enrollment.Graded())
	require.NoError(t, mock.ExpectationsWereMet())
}
