package zone

import (
	"time"

	"github.com/rs/zerolog/log"
)

// DetectWindowOpen flags a zone whose temperature is falling fast enough to
// indicate an open window: a drop of at least the 1-minute threshold over the
// last minute, or the 2-minute threshold per minute over the last two
// minutes. The flag clears once the short-term trend stops falling.
//
// Less than a minute of history never triggers detection.
func (z *Zone) DetectWindowOpen() bool {
	if z.cfg.WindowThreshold1Min <= 0 && z.cfg.WindowThreshold2Min <= 0 {
		return false
	}

	now := z.now()
	rate1, ok1 := z.dropRate(now, 1*time.Minute)
	rate2, ok2 := z.dropRate(now, 2*time.Minute)

	if !ok1 {
		return z.windowOpen
	}

	detected := (z.cfg.WindowThreshold1Min > 0 && rate1 >= z.cfg.WindowThreshold1Min) ||
		(ok2 && z.cfg.WindowThreshold2Min > 0 && rate2 >= z.cfg.WindowThreshold2Min)

	if detected && !z.windowOpen {
		z.windowOpen = true
		log.Warn().
			Str("zone", z.Name).
			Float64("drop_rate_1min", rate1).
			Msg("Window open detected, pausing heating")
	} else if z.windowOpen && rate1 <= 0 {
		z.windowOpen = false
		log.Info().Str("zone", z.Name).Msg("Temperature stabilized, window considered closed")
	}

	return z.windowOpen
}

// dropRate returns the temperature drop in °C per minute over the given
// window, positive when falling. ok is false when the history does not reach
// back far enough.
func (z *Zone) dropRate(now time.Time, window time.Duration) (float64, bool) {
	if len(z.tempHistory) < 2 {
		return 0, false
	}

	newest := z.tempHistory[len(z.tempHistory)-1]
	cutoff := now.Add(-window)

	// Oldest sample inside the window, provided the history spans it.
	if z.tempHistory[0].at.After(cutoff) {
		return 0, false
	}
	var oldest tempSample
	for i := len(z.tempHistory) - 1; i >= 0; i-- {
		if !z.tempHistory[i].at.After(cutoff) {
			oldest = z.tempHistory[i]
			break
		}
	}

	elapsed := newest.at.Sub(oldest.at).Minutes()
	if elapsed <= 0 {
		return 0, false
	}
	return (oldest.temp - newest.temp) / elapsed, true
}
