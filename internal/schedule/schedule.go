// Package schedule implements the weekly setpoint schedule and the per-zone
// operating-mode state machine.
package schedule

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// TimeBlock is one scheduled window with a target setpoint. Start and end are
// minutes since midnight; a block with start > end crosses midnight
// (e.g. 22:00-06:00).
type TimeBlock struct {
	Start    int
	End      int
	Setpoint float64
}

// NewTimeBlock parses "HH:MM" start/end times.
func NewTimeBlock(start, end string, setpoint float64) (TimeBlock, error) {
	s, err := parseClock(start)
	if err != nil {
		return TimeBlock{}, fmt.Errorf("invalid block start %q: %w", start, err)
	}
	e, err := parseClock(end)
	if err != nil {
		return TimeBlock{}, fmt.Errorf("invalid block end %q: %w", end, err)
	}
	return TimeBlock{Start: s, End: e, Setpoint: setpoint}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether the given time of day falls inside the block.
func (b TimeBlock) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	if b.Start <= b.End {
		return b.Start <= m && m < b.End
	}
	// Midnight-crossing block.
	return m >= b.Start || m < b.End
}

func (b TimeBlock) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d: %.1f°C",
		b.Start/60, b.Start%60, b.End/60, b.End%60, b.Setpoint)
}

// Schedule holds separate block lists for weekdays and weekends.
type Schedule struct {
	WeekdayBlocks []TimeBlock
	WeekendBlocks []TimeBlock
}

// Setpoint returns the scheduled setpoint for the given instant, selecting
// weekday or weekend blocks and taking the first matching block in
// declaration order. The second return is false when no block matches.
func (s *Schedule) Setpoint(t time.Time) (float64, bool) {
	blocks := s.WeekdayBlocks
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		blocks = s.WeekendBlocks
	}

	for _, block := range blocks {
		if block.Contains(t) {
			return block.Setpoint, true
		}
	}

	log.Warn().
		Str("weekday", t.Weekday().String()).
		Str("time", t.Format("15:04")).
		Int("blocks", len(blocks)).
		Msg("No schedule block matches")
	return 0, false
}
