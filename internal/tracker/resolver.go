package tracker

import (
	"math"

	"github.com/rewired-gh/contest-countdown/internal/models"
)

// SetNextContest filters the stored set and points the next contest at the
// earliest contest the user takes part in, or clears it if there is none.
func (t *Tracker) SetNextContest() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.setNextContestLocked()
}

func (t *Tracker) setNextContestLocked() {
	t.next = nil
	t.contests = models.FilterRelevant(t.contests, t.clock.Now())
	for i := range t.contests {
		if t.contests[i].IsParticipating() {
			c := t.contests[i]
			t.next = &c
			return
		}
	}
}

// currentLocked returns the next contest and the seconds until it starts.
// A stale pointer is re-resolved once; if the clock still overtakes the
// re-resolved contest the countdown is clamped to zero.
func (t *Tracker) currentLocked() (*models.Contest, int64) {
	if t.next == nil {
		return nil, 0
	}
	secs := t.next.SecondsTill(t.clock.Now())
	if secs >= 0 {
		return t.next, secs
	}

	t.setNextContestLocked()
	if t.next == nil {
		return nil, 0
	}
	return t.next, max(t.next.SecondsTill(t.clock.Now()), 0)
}

// SecondsTillNextContest returns the seconds until the next contest the user
// takes part in. Without such a contest it returns a sentinel:
//
//	-1    a retry cycle is in progress, data is not confirmed yet
//	-Inf  no contest data could be obtained at all
//	+Inf  there is no upcoming contest to take part in
func (t *Tracker) SecondsTillNextContest() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, secs := t.currentLocked(); c != nil {
		return float64(secs)
	}
	if t.retriesLeft < t.maxRetries {
		return -1
	}
	if len(t.contests) == 0 {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// NextContest returns the next contest the user takes part in.
func (t *Tracker) NextContest() (models.Contest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, _ := t.currentLocked()
	if c == nil {
		return models.Contest{}, false
	}
	return *c, true
}
