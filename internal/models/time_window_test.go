package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
)

func mustWindow(t *testing.T, day int, start, end string) TimeWindow {
	t.Helper()
	s, err := ParseClock(start)
	require.NoError(t, err)
	e, err := ParseClock(end)
	require.NoError(t, err)
	w, err := NewTimeWindow(day, s, e)
	require.NoError(t, err)
	return w
}

func TestNewTimeWindowRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name    string
		weekday int
		start   Clock
		end     Clock
	}{
		{"weekday below range", -1, NewClock(9, 0), NewClock(10, 0)},
		{"weekday above range", 7, NewClock(9, 0), NewClock(10, 0)},
		{"empty interval", 1, NewClock(9, 0), NewClock(9, 0)},
		{"inverted interval", 1, NewClock(11, 0), NewClock(10, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTimeWindow(tc.weekday, tc.start, tc.end)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidWindow.Code))
		})
	}
}

func TestOverlaps(t *testing.T) {
	base := mustWindow(t, 0, "09:00", "10:00")

	assert.True(t, Overlaps(base, mustWindow(t, 0, "09:30", "10:30")))
	assert.True(t, Overlaps(base, mustWindow(t, 0, "09:15", "09:45")))
	assert.True(t, Overlaps(base, base))
	assert.False(t, Overlaps(base, mustWindow(t, 0, "10:00", "11:00")), "touching windows share no minute")
	assert.False(t, Overlaps(base, mustWindow(t, 0, "08:00", "09:00")))
	assert.False(t, Overlaps(base, mustWindow(t, 1, "09:00", "10:00")), "different weekday")
}

func TestOverlapsIsSymmetric(t *testing.T) {
	windows := []TimeWindow{
		mustWindow(t, 0, "08:00", "09:30"),
		mustWindow(t, 0, "09:00", "10:00"),
		mustWindow(t, 0, "10:00", "12:00"),
		mustWindow(t, 4, "09:00", "10:00"),
	}
	for _, a := range windows {
		for _, b := range windows {
			assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "%s vs %s", a, b)
			assert.Equal(t, a.Overlaps(b), Overlaps(a, b))
		}
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("13:45")
	require.NoError(t, err)
	assert.Equal(t, Clock(13*60+45), c)
	assert.Equal(t, "13:45", c.String())

	c, err = ParseClock("07:05:00")
	require.NoError(t, err)
	assert.Equal(t, NewClock(7, 5), c)

	for _, raw := range []string{"", "7", "24:00", "12:60", "ab:cd", "1:2:3:4", "09:00:59", "09:00:60", "09:00:xx"} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestClockScanAndValue(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan([]byte("08:30:00")))
	assert.Equal(t, NewClock(8, 30), c)

	require.NoError(t, c.Scan(time.Date(0, 1, 1, 14, 15, 0, 0, time.UTC)))
	assert.Equal(t, NewClock(14, 15), c)

	require.NoError(t, c.Scan("10:00"))
	assert.Equal(t, NewClock(10, 0), c)

	assert.Error(t, c.Scan(nil))
	assert.Error(t, c.Scan(3.5))
	assert.Error(t, c.Scan([]byte("08:30:15")))
	assert.Error(t, c.Scan(time.Date(0, 1, 1, 8, 30, 15, 0, time.UTC)))

	v, err := NewClock(9, 5).Value()
	require.NoError(t, err)
	assert.Equal(t, "09:05:00", v)
}

func TestTimeWindowJSON(t *testing.T) {
	w := mustWindow(t, 2, "09:00", "10:30")
	raw, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"weekday":2,"start_time":"09:00","end_time":"10:30"}`, string(raw))

	var decoded TimeWindow
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, w, decoded)
	assert.Equal(t, "WED 09:00-10:30", decoded.String())
}
