package tracker

import (
	"fmt"

	"github.com/rewired-gh/contest-countdown/internal/logger"
	"github.com/rewired-gh/contest-countdown/internal/models"
)

// UpdateContests merges fetched contests into the stored set.
//
// Relevant contests not stored yet are appended with Participating defaulting
// to true; contests already stored keep their local annotation. The whole set
// is then filtered again, the next contest is re-resolved and the set is
// persisted. A failed save is logged and leaves the in-memory set as is.
func (t *Tracker) UpdateContests(records []models.Contest) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.updateContestsLocked(records)
}

func (t *Tracker) updateContestsLocked(records []models.Contest) {
	fresh := models.FilterRelevant(records, t.clock.Now())

	known := make(map[int64]struct{}, len(t.contests)+len(fresh))
	for _, c := range t.contests {
		known[c.ID] = struct{}{}
	}

	added := 0
	for _, c := range fresh {
		if _, ok := known[c.ID]; ok {
			continue
		}
		if err := c.Validate(); err != nil {
			logger.Debug("Skipping malformed contest %d: %v", c.ID, err)
			continue
		}
		if c.Participating == nil {
			c.Participating = models.BoolPtr(true)
		}
		t.contests = append(t.contests, c)
		known[c.ID] = struct{}{}
		added++
	}

	t.contests = models.FilterRelevant(t.contests, t.clock.Now())
	logger.Debug("Merged contests: %d relevant fetched, %d new, %d stored", len(fresh), added, len(t.contests))

	t.setNextContestLocked()
	t.saveLocked()
}

// SetParticipating records whether the user takes part in contest id and
// re-resolves the next contest.
func (t *Tracker) SetParticipating(id int64, participating bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.contests {
		if t.contests[i].ID != id {
			continue
		}
		t.contests[i].Participating = models.BoolPtr(participating)
		t.setNextContestLocked()
		t.saveLocked()
		return nil
	}
	return fmt.Errorf("%w: %d", ErrContestNotFound, id)
}

func (t *Tracker) saveLocked() {
	if err := t.store.Save(t.contests); err != nil {
		logger.Warn("Failed to persist %d contests: %v", len(t.contests), err)
	}
}
