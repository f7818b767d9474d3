package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
)

var courseColumns = []string{"id", "code", "name", "credit", "max_capacity", "current_students", "teacher_id", "created_at", "updated_at"}

// CourseRepository reads course sections and their meeting windows.
type CourseRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindByID returns a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query, args, err := r.sb.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build course query: %w", err)
	}
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, args...); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindWithWindows returns a course together with its meeting windows.
func (r *CourseRepository) FindWithWindows(ctx context.Context, id string) (*models.CourseWithWindows, error) {
	course, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	windows, err := r.WindowsByCourse(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return &models.CourseWithWindows{Course: *course, Windows: windows[id]}, nil
}

// List returns courses matching the static filter ordered by code.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	builder := r.sb.Select(courseColumns...).From("courses")
	if filter.MinCapacity > 0 {
		builder = builder.Where(squirrel.GtOrEq{"max_capacity": filter.MinCapacity})
	}
	query, args, err := builder.OrderBy("code", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build course list query: %w", err)
	}
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

type ownedWindowRow struct {
	OwnerID string `db:"owner_id"`
	models.TimeWindow
}

// WindowsByCourse returns meeting windows keyed by course ID.
func (r *CourseRepository) WindowsByCourse(ctx context.Context, courseIDs []string) (map[string][]models.TimeWindow, error) {
	return selectWindows(ctx, r.db, r.sb, "course_id", courseIDs)
}

func selectWindows(ctx context.Context, db *sqlx.DB, sb squirrel.StatementBuilderType, ownerColumn string, ids []string) (map[string][]models.TimeWindow, error) {
	result := make(map[string][]models.TimeWindow, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query, args, err := sb.Select(ownerColumn+" AS owner_id", "day_of_week", "start_time", "end_time").
		From("course_schedules").
		Where(squirrel.Eq{ownerColumn: ids}).
		OrderBy(ownerColumn, "day_of_week", "start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build window query: %w", err)
	}
	var rows []ownedWindowRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list windows by %s: %w", ownerColumn, err)
	}
	for _, row := range rows {
		result[row.OwnerID] = append(result[row.OwnerID], row.TimeWindow)
	}
	return result, nil
}
