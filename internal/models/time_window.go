package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
)

// Weekday bounds, 0 = Monday through 6 = Sunday.
const (
	MinWeekday = 0
	MaxWeekday = 6
)

const minutesPerDay = 24 * 60

var weekdayNames = [...]string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// Clock is a time of day expressed in minutes since midnight.
type Clock int

// NewClock builds a Clock from hour and minute components.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock accepts HH:MM or HH:MM:SS. Clocks have minute resolution, so a
// seconds part must be zero.
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if len(parts) == 3 {
		second, err := strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return 0, fmt.Errorf("invalid second in %q", raw)
		}
		if second != 0 {
			return 0, fmt.Errorf("clock %q is not on a whole minute", raw)
		}
	}
	return NewClock(hour, minute), nil
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalJSON encodes the clock as an HH:MM string.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes an HH:MM string.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan implements sql.Scanner for TIME and text columns.
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		if v.Second() != 0 || v.Nanosecond() != 0 {
			return fmt.Errorf("clock %s is not on a whole minute", v.Format("15:04:05"))
		}
		*c = NewClock(v.Hour(), v.Minute())
		return nil
	case []byte:
		parsed, err := ParseClock(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case string:
		parsed, err := ParseClock(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case int64:
		*c = Clock(v)
		return nil
	case nil:
		return fmt.Errorf("clock cannot be null")
	default:
		return fmt.Errorf("unsupported clock source %T", src)
	}
}

// Value implements driver.Valuer.
func (c Clock) Value() (driver.Value, error) {
	return c.String() + ":00", nil
}

// TimeWindow is one recurring weekly meeting slot, half-open on [Start, End).
type TimeWindow struct {
	Weekday int   `json:"weekday" db:"day_of_week"`
	Start   Clock `json:"start_time" db:"start_time"`
	End     Clock `json:"end_time" db:"end_time"`
}

// NewTimeWindow validates and builds a TimeWindow.
func NewTimeWindow(weekday int, start, end Clock) (TimeWindow, error) {
	w := TimeWindow{Weekday: weekday, Start: start, End: end}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// Validate reports INVALID_WINDOW for out-of-range weekdays or empty/inverted intervals.
func (w TimeWindow) Validate() error {
	if w.Weekday < MinWeekday || w.Weekday > MaxWeekday {
		return appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("weekday %d out of range", w.Weekday))
	}
	if w.Start < 0 || w.End > minutesPerDay {
		return appErrors.Clone(appErrors.ErrInvalidWindow, "time outside of day bounds")
	}
	if w.Start >= w.End {
		return appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("start %s must be before end %s", w.Start, w.End))
	}
	return nil
}

// Overlaps reports whether two windows share any minute on the same weekday.
// Windows that only touch at an endpoint do not overlap.
func Overlaps(a, b TimeWindow) bool {
	return a.Weekday == b.Weekday && a.Start < b.End && b.Start < a.End
}

// Overlaps is the method form of Overlaps.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return Overlaps(w, other)
}

// String renders e.g. "MON 09:00-10:30".
func (w TimeWindow) String() string {
	day := "?"
	if w.Weekday >= MinWeekday && w.Weekday <= MaxWeekday {
		day = weekdayNames[w.Weekday]
	}
	return fmt.Sprintf("%s %s-%s", day, w.Start, w.End)
}
