package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
)

const availabilityCachePattern = "availability:*"

type classroomSource interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, error)
	WindowsByClassroom(ctx context.Context, classroomIDs []string) (map[string][]models.TimeWindow, error)
}

type courseSource interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	WindowsByCourse(ctx context.Context, courseIDs []string) (map[string][]models.TimeWindow, error)
}

// AvailabilityService answers which classrooms or course sections are free in a weekly window.
// It reads without locks and tolerates slightly stale schedules.
type AvailabilityService struct {
	classrooms classroomSource
	courses    courseSource
	cache      *CacheService
	ttl        time.Duration
	logger     *zap.Logger
}

// NewAvailabilityService constructs AvailabilityService; cache may be nil.
func NewAvailabilityService(classrooms classroomSource, courses courseSource, cache *CacheService, ttl time.Duration, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{classrooms: classrooms, courses: courses, cache: cache, ttl: ttl, logger: logger}
}

// FindAvailable returns resources matching the static filter whose scheduled
// windows do not overlap the candidate window, in repository order.
func (s *AvailabilityService) FindAvailable(ctx context.Context, q models.AvailabilityQuery) ([]models.Resource, error) {
	candidate, err := models.NewTimeWindow(q.Weekday, q.Start, q.End)
	if err != nil {
		return nil, err
	}
	if q.Kind == "" {
		q.Kind = models.ResourceClassroom
	}
	if q.MinCapacity < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "min_capacity must not be negative")
	}
	if q.Kind == models.ResourceCourse && (q.RequireProjector || q.RequireComputer) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "projector and computer filters apply to classrooms only")
	}

	key := availabilityCacheKey(q)
	var cached []models.Resource
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	var scheduled []models.ScheduledResource
	switch q.Kind {
	case models.ResourceClassroom:
		scheduled, err = s.scheduledClassrooms(ctx, models.ClassroomFilter{
			MinCapacity:      q.MinCapacity,
			RequireProjector: q.RequireProjector,
			RequireComputer:  q.RequireComputer,
		})
	case models.ResourceCourse:
		scheduled, err = s.scheduledCourses(ctx, models.CourseFilter{MinCapacity: q.MinCapacity})
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown resource kind %q", q.Kind))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resources")
	}

	available := make([]models.Resource, 0, len(scheduled))
	for _, res := range scheduled {
		if IsFree(candidate, res.Windows) {
			available = append(available, res.Resource)
		}
	}
	s.cache.Set(ctx, key, available, s.ttl)
	return available, nil
}

// ClassroomSchedule lists the booked weekly windows of one classroom, ordered
// by weekday and start time. A classroom with no bookings yields an empty list.
func (s *AvailabilityService) ClassroomSchedule(ctx context.Context, classroomID string) ([]models.TimeWindow, error) {
	if classroomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroom id is required")
	}
	windows, err := s.classrooms.WindowsByClassroom(ctx, []string{classroomID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom schedule")
	}
	schedule := windows[classroomID]
	if schedule == nil {
		schedule = []models.TimeWindow{}
	}
	return schedule, nil
}

// Invalidate drops cached availability answers, e.g. after schedules change.
func (s *AvailabilityService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, availabilityCachePattern)
}

func (s *AvailabilityService) scheduledClassrooms(ctx context.Context, filter models.ClassroomFilter) ([]models.ScheduledResource, error) {
	rooms, err := s.classrooms.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
	}
	windows, err := s.classrooms.WindowsByClassroom(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make([]models.ScheduledResource, len(rooms))
	for i := range rooms {
		room := rooms[i]
		result[i] = models.ScheduledResource{
			Resource: models.Resource{
				Kind:      models.ResourceClassroom,
				ID:        room.ID,
				Name:      fmt.Sprintf("%s %s", room.Building, room.RoomNumber),
				Capacity:  room.Capacity,
				Classroom: &room,
			},
			Windows: windows[room.ID],
		}
	}
	return result, nil
}

func (s *AvailabilityService) scheduledCourses(ctx context.Context, filter models.CourseFilter) ([]models.ScheduledResource, error) {
	courses, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(courses))
	for i, course := range courses {
		ids[i] = course.ID
	}
	windows, err := s.courses.WindowsByCourse(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make([]models.ScheduledResource, len(courses))
	for i := range courses {
		course := courses[i]
		result[i] = models.ScheduledResource{
			Resource: models.Resource{
				Kind:     models.ResourceCourse,
				ID:       course.ID,
				Name:     course.Name,
				Capacity: course.MaxCapacity,
				Course:   &course,
			},
			Windows: windows[course.ID],
		}
	}
	return result, nil
}

func availabilityCacheKey(q models.AvailabilityQuery) string {
	return fmt.Sprintf("availability:%s:%d:%d:%d:%d:%t:%t", q.Kind, q.Weekday, q.Start, q.End, q.MinCapacity, q.RequireProjector, q.RequireComputer)
}
