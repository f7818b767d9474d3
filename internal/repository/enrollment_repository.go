package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
)

// ErrDuplicateEnrollment signals the (student_id, course_id) unique constraint fired.
var ErrDuplicateEnrollment = errors.New("duplicate enrollment")

const uniqueViolation = "23505"

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, grade, created_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether the student already holds a seat in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment exists: %w", err)
	}
	return exists, nil
}

// CreateWithOccupancy inserts the enrollment and bumps the stored course occupancy in one transaction.
func (r *EnrollmentRepository) CreateWithOccupancy(ctx context.Context, enrollment *models.Enrollment) (err error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO enrollments (id, student_id, course_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err = tx.ExecContext(ctx, insert, enrollment.ID, enrollment.StudentID, enrollment.CourseID, enrollment.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateEnrollment
			return err
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	const bump = `UPDATE courses SET current_students = current_students + 1, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, bump, enrollment.CourseID, enrollment.CreatedAt); err != nil {
		return fmt.Errorf("increment course occupancy: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment tx: %w", err)
	}
	return nil
}

// DeleteWithOccupancy removes the enrollment and decrements the stored course occupancy in one transaction.
func (r *EnrollmentRepository) DeleteWithOccupancy(ctx context.Context, enrollment *models.Enrollment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin withdraw tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, enrollment.ID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}
	const drop = `UPDATE courses SET current_students = GREATEST(current_students - 1, 0), updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, drop, enrollment.CourseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("decrement course occupancy: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit withdraw tx: %w", err)
	}
	return nil
}

type studentWindowRow struct {
	CourseID   string `db:"course_id"`
	CourseName string `db:"course_name"`
	models.TimeWindow
}

// ListCourseWindowsByStudent returns the windows of every course the student is enrolled in,
// grouped per course in enrollment order.
func (r *EnrollmentRepository) ListCourseWindowsByStudent(ctx context.Context, studentID string) ([]models.CourseWindows, error) {
	const query = `SELECT e.course_id, c.name AS course_name, cs.day_of_week, cs.start_time, cs.end_time
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN course_schedules cs ON cs.course_id = e.course_id
        WHERE e.student_id = $1
        ORDER BY e.created_at, e.id, cs.day_of_week, cs.start_time`
	var rows []studentWindowRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student course windows: %w", err)
	}
	result := make([]models.CourseWindows, 0)
	index := make(map[string]int)
	for _, row := range rows {
		pos, ok := index[row.CourseID]
		if !ok {
			pos = len(result)
			index[row.CourseID] = pos
			result = append(result, models.CourseWindows{CourseID: row.CourseID, CourseName: row.CourseName})
		}
		result[pos].Windows = append(result[pos].Windows, row.TimeWindow)
	}
	return result, nil
}

// ListTimetable returns the student's weekly meetings ordered by day and start time.
func (r *EnrollmentRepository) ListTimetable(ctx context.Context, studentID string) ([]models.TimetableEntry, error) {
	const query = `SELECT c.id AS course_id, c.code AS course_code, c.name AS course_name, cs.day_of_week, cs.start_time, cs.end_time
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN course_schedules cs ON cs.course_id = c.id
        WHERE e.student_id = $1
        ORDER BY cs.day_of_week, cs.start_time, c.code`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	return entries, nil
}

// CountByCourse returns persisted enrollment counts grouped by course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context) ([]models.EnrollmentCount, error) {
	const query = `SELECT course_id, COUNT(*) AS count FROM enrollments GROUP BY course_id`
	var counts []models.EnrollmentCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count enrollments by course: %w", err)
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
