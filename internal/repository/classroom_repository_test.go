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

func TestClassroomRepositoryListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM classrooms WHERE (capacity >= $1 AND has_projector = $2) ORDER BY building, room_number")).
		WithArgs(40, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_number", "building", "capacity", "has_projector", "has_computer", "created_at", "updated_at"}).
			AddRow("room-1", "101", "A", 45, true, false, now, now))

	rooms, err := repo.List(context.Background(), models.ClassroomFilter{MinCapacity: 40, RequireProjector: true})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "101", rooms[0].RoomNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryListWithoutFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM classrooms ORDER BY building, room_number")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_number", "building", "capacity", "has_projector", "has_computer", "created_at", "updated_at"}))

	rooms, err := repo.List(context.Background(), models.ClassroomFilter{})
	require.NoError(t, err)
	assert.Empty(t, rooms)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryWindowsByClassroom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM course_schedules WHERE classroom_id IN ($1,$2) ORDER BY classroom_id, day_of_week, start_time")).
		WithArgs("room-1", "room-2").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "day_of_week", "start_time", "end_time"}).
			AddRow("room-2", 1, "10:00:00", "11:00:00"))

	windows, err := repo.WindowsByClassroom(context.Background(), []string{"room-1", "room-2"})
	require.NoError(t, err)
	assert.Empty(t, windows["room-1"])
	require.Len(t, windows["room-2"], 1)
	assert.Equal(t, models.NewClock(10, 0), windows["room-2"][0].Start)
	require.NoError(t, mock.ExpectationsWereMet())
}
