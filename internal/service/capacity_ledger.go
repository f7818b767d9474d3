package service

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
)

// ErrLedgerUnderflow is reported when a release would push occupancy below zero.
var ErrLedgerUnderflow = errors.New("capacity ledger underflow")

type ledgerEntry struct {
	mu        sync.Mutex
	occupancy int
	max       int
}

// CapacityLedger tracks live occupancy per course. Each course has its own
// mutex so reservations on different courses never contend.
type CapacityLedger struct {
	mu      sync.RWMutex
	entries map[string]*ledgerEntry
	logger  *zap.Logger
	metrics *MetricsService
}

// NewCapacityLedger constructs an empty ledger.
func NewCapacityLedger(logger *zap.Logger, metrics *MetricsService) *CapacityLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityLedger{entries: make(map[string]*ledgerEntry), logger: logger, metrics: metrics}
}

func (l *CapacityLedger) entry(courseID string) *ledgerEntry {
	l.mu.RLock()
	e, ok := l.entries[courseID]
	l.mu.RUnlock()
	if ok {
		return e
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[courseID]; ok {
		return e
	}
	e = &ledgerEntry{}
	l.entries[courseID] = e
	return e
}

// TryReserve takes one seat if occupancy is below maxCapacity. The stored
// maximum is refreshed on every call so capacity edits apply from the next
// reservation on.
func (l *CapacityLedger) TryReserve(courseID string, maxCapacity int) error {
	e := l.entry(courseID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.max = maxCapacity
	if e.occupancy >= e.max {
		return appErrors.Clone(appErrors.ErrCourseFull, fmt.Sprintf("course %s is full (%d/%d)", courseID, e.occupancy, e.max))
	}
	e.occupancy++
	l.metrics.SetOccupancy(courseID, e.occupancy)
	return nil
}

// Release frees one seat. Releasing an empty course is a caller bug: it is
// reported as ErrLedgerUnderflow and occupancy stays at zero.
func (l *CapacityLedger) Release(courseID string) error {
	e := l.entry(courseID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.occupancy <= 0 {
		e.occupancy = 0
		l.logger.Warn("capacity ledger release below zero", zap.String("course_id", courseID))
		return fmt.Errorf("release course %s: %w", courseID, ErrLedgerUnderflow)
	}
	e.occupancy--
	l.metrics.SetOccupancy(courseID, e.occupancy)
	return nil
}

// Seed sets the occupancy of a single course, typically from persisted rows.
func (l *CapacityLedger) Seed(courseID string, occupancy int) {
	if occupancy < 0 {
		occupancy = 0
	}
	e := l.entry(courseID)
	e.mu.Lock()
	e.occupancy = occupancy
	e.mu.Unlock()
	l.metrics.SetOccupancy(courseID, occupancy)
}

// SeedAll replaces every entry with the provided counts. Courses missing from
// counts are reset to zero.
func (l *CapacityLedger) SeedAll(counts map[string]int) {
	l.mu.Lock()
	for courseID, e := range l.entries {
		if _, ok := counts[courseID]; !ok {
			e.mu.Lock()
			e.occupancy = 0
			e.mu.Unlock()
			l.metrics.SetOccupancy(courseID, 0)
		}
	}
	l.mu.Unlock()
	for courseID, count := range counts {
		l.Seed(courseID, count)
	}
}

// Snapshot returns the current occupancy and last known maximum for a course.
func (l *CapacityLedger) Snapshot(courseID string) (occupancy, maxCapacity int, ok bool) {
	l.mu.RLock()
	e, found := l.entries[courseID]
	l.mu.RUnlock()
	if !found {
		return 0, 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.occupancy, e.max, true
}
