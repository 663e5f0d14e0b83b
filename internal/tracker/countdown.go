package tracker

import (
	"fmt"
	"math"
)

// FormatCountdown renders a SecondsTillNextContest value as text.
func FormatCountdown(seconds float64) string {
	switch {
	case math.IsInf(seconds, 1):
		return "No upcoming contest"
	case math.IsInf(seconds, -1):
		return "Failed to load contests"
	case seconds < 0:
		return "Loading contests..."
	}

	s := int64(seconds)
	days := s / 86400
	s %= 86400
	clock := fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, clock)
	}
	return clock
}
