package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mon 2026-01-05 is a weekday, Sat 2026-01-10 a weekend day.
func weekdayAt(hour, min int) time.Time {
	return time.Date(2026, 1, 5, hour, min, 0, 0, time.UTC)
}

func weekendAt(hour, min int) time.Time {
	return time.Date(2026, 1, 10, hour, min, 0, 0, time.UTC)
}

func mustBlock(t *testing.T, start, end string, sp float64) TimeBlock {
	t.Helper()
	b, err := NewTimeBlock(start, end, sp)
	require.NoError(t, err)
	return b
}

func TestNewTimeBlockParsing(t *testing.T) {
	b, err := NewTimeBlock("06:30", "08:00", 21.0)
	require.NoError(t, err)
	assert.Equal(t, 6*60+30, b.Start)
	assert.Equal(t, 8*60, b.End)
	assert.Equal(t, 21.0, b.Setpoint)

	_, err = NewTimeBlock("25:00", "08:00", 21.0)
	assert.Error(t, err)

	_, err = NewTimeBlock("06:00", "8am", 21.0)
	assert.Error(t, err)
}

func TestTimeBlockContains(t *testing.T) {
	day := mustBlock(t, "06:00", "22:00", 20.0)
	night := mustBlock(t, "22:00", "06:00", 16.0)

	tests := []struct {
		name      string
		at        time.Time
		wantDay   bool
		wantNight bool
	}{
		{"early morning", weekdayAt(3, 0), false, true},
		{"day start boundary", weekdayAt(6, 0), true, false},
		{"midday", weekdayAt(12, 30), true, false},
		{"just before night", weekdayAt(21, 59), true, false},
		{"night start boundary", weekdayAt(22, 0), false, true},
		{"before midnight", weekdayAt(23, 59), false, true},
		{"midnight", weekdayAt(0, 0), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantDay, day.Contains(tt.at), "day block")
			assert.Equal(t, tt.wantNight, night.Contains(tt.at), "night block")
		})
	}
}

func TestScheduleWeekdayWeekendSelection(t *testing.T) {
	s := &Schedule{
		WeekdayBlocks: []TimeBlock{mustBlock(t, "06:00", "22:00", 20.0)},
		WeekendBlocks: []TimeBlock{mustBlock(t, "08:00", "23:00", 21.5)},
	}

	sp, ok := s.Setpoint(weekdayAt(10, 0))
	require.True(t, ok)
	assert.Equal(t, 20.0, sp)

	sp, ok = s.Setpoint(weekendAt(10, 0))
	require.True(t, ok)
	assert.Equal(t, 21.5, sp)

	// 07:00 is inside the weekday block but before the weekend one.
	_, ok = s.Setpoint(weekendAt(7, 0))
	assert.False(t, ok)
}

func TestScheduleFirstMatchWins(t *testing.T) {
	s := &Schedule{
		WeekdayBlocks: []TimeBlock{
			mustBlock(t, "06:00", "09:00", 22.0),
			mustBlock(t, "06:00", "22:00", 19.0),
		},
	}

	sp, ok := s.Setpoint(weekdayAt(7, 0))
	require.True(t, ok)
	assert.Equal(t, 22.0, sp, "overlapping blocks resolve to the first declared")

	sp, ok = s.Setpoint(weekdayAt(12, 0))
	require.True(t, ok)
	assert.Equal(t, 19.0, sp)
}

func TestScheduleNoMatch(t *testing.T) {
	s := &Schedule{
		WeekdayBlocks: []TimeBlock{mustBlock(t, "06:00", "22:00", 20.0)},
	}

	_, ok := s.Setpoint(weekdayAt(3, 0))
	assert.False(t, ok, "outside all blocks heating is disabled")

	_, ok = s.Setpoint(weekendAt(12, 0))
	assert.False(t, ok, "no weekend blocks configured")
}
