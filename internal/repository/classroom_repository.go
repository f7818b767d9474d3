package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
)

// ClassroomRepository reads classrooms and the windows booked in them.
type ClassroomRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewClassroomRepository constructs a ClassroomRepository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// List returns classrooms matching the capacity and equipment filter.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, error) {
	where := squirrel.And{}
	if filter.MinCapacity > 0 {
		where = append(where, squirrel.GtOrEq{"capacity": filter.MinCapacity})
	}
	if filter.RequireProjector {
		where = append(where, squirrel.Eq{"has_projector": true})
	}
	if filter.RequireComputer {
		where = append(where, squirrel.Eq{"has_computer": true})
	}

	builder := r.sb.Select("id", "room_number", "building", "capacity", "has_projector", "has_computer", "created_at", "updated_at").
		From("classrooms")
	if len(where) > 0 {
		builder = builder.Where(where)
	}
	query, args, err := builder.OrderBy("building", "room_number").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build classroom query: %w", err)
	}
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return classrooms, nil
}

// WindowsByClassroom returns booked meeting windows keyed by classroom ID.
func (r *ClassroomRepository) WindowsByClassroom(ctx context.Context, classroomIDs []string) (map[string][]models.TimeWindow, error) {
	return selectWindows(ctx, r.db, r.sb, "classroom_id", classroomIDs)
}
