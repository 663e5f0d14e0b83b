package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/rewired-gh/contest-countdown/internal/models"
)

func TestUpdateContests_Dedup(t *testing.T) {
	tr, _ := newTestTracker(t, newFakeSource(), &memStore{}, nil)

	c := contestIn(1, time.Hour)
	tr.UpdateContests([]models.Contest{c})
	tr.UpdateContests([]models.Contest{c})
	tr.UpdateContests([]models.Contest{c, c, contestIn(2, 2*time.Hour)})

	assertIDs(t, []int64{1, 2}, tr.Contests())
}

func TestUpdateContests_FiltersIrrelevant(t *testing.T) {
	tr, _ := newTestTracker(t, newFakeSource(), &memStore{}, nil)

	finished := contestIn(2, time.Hour)
	finished.Phase = models.PhaseFinished
	noStart := models.Contest{ID: 3, Phase: models.PhaseBefore}
	coding := contestIn(4, -time.Minute)
	coding.Phase = models.PhaseCoding

	tr.UpdateContests([]models.Contest{
		contestIn(5, 3*time.Hour),
		finished,
		noStart,
		coding,
		contestIn(6, -time.Second),
		contestIn(1, time.Hour),
	})

	assertIDs(t, []int64{1, 5}, tr.Contests())
}

func TestUpdateContests_StableOrderAcrossMerges(t *testing.T) {
	tr, _ := newTestTracker(t, newFakeSource(), &memStore{}, nil)

	tr.UpdateContests([]models.Contest{contestIn(20, time.Hour), contestIn(10, time.Hour)})
	tr.UpdateContests([]models.Contest{contestIn(10, time.Hour), contestIn(30, time.Hour), contestIn(20, time.Hour)})
	tr.UpdateContests([]models.Contest{contestIn(5, 30*time.Minute)})

	assertIDs(t, []int64{5, 20, 10, 30}, tr.Contests())
}

func TestUpdateContests_ParticipatingFlag(t *testing.T) {
	tr, _ := newTestTracker(t, newFakeSource(), &memStore{}, nil)

	tr.UpdateContests([]models.Contest{contestIn(1, time.Hour), contestIn(2, 2*time.Hour)})

	for _, c := range tr.Contests() {
		if c.Participating == nil || !*c.Participating {
			t.Errorf("Expected contest %d to default to participating", c.ID)
		}
	}

	if err := tr.SetParticipating(1, false); err != nil {
		t.Fatalf("SetParticipating failed: %v", err)
	}
	if got := tr.SecondsTillNextContest(); got != 7200 {
		t.Errorf("Expected next contest to move to contest 2 (7200s), got %v", got)
	}

	// A fresh copy from the API must not reset the local annotation
	tr.UpdateContests([]models.Contest{contestIn(1, time.Hour)})
	if tr.Contests()[0].IsParticipating() {
		t.Error("Expected merge to keep participating=false")
	}

	if err := tr.SetParticipating(1, true); err != nil {
		t.Fatalf("SetParticipating failed: %v", err)
	}
	if got := tr.SecondsTillNextContest(); got != 3600 {
		t.Errorf("Expected contest 1 again (3600s), got %v", got)
	}
}

func TestSetParticipating_UnknownContest(t *testing.T) {
	tr, _ := newTestTracker(t, newFakeSource(), &memStore{}, nil)

	if err := tr.SetParticipating(42, false); !errors.Is(err, ErrContestNotFound) {
		t.Errorf("Expected ErrContestNotFound, got %v", err)
	}
}

func TestUpdateContests_PrunesStartedContests(t *testing.T) {
	tr, clock := newTestTracker(t, newFakeSource(), &memStore{}, nil)

	tr.UpdateContests([]models.Contest{contestIn(1, time.Minute), contestIn(2, time.Hour)})
	clock.Advance(2 * time.Minute)
	tr.UpdateContests(nil)

	assertIDs(t, []int64{2}, tr.Contests())
}

func TestUpdateContests_Persists(t *testing.T) {
	store := &memStore{}
	tr, _ := newTestTracker(t, newFakeSource(), store, nil)

	tr.UpdateContests([]models.Contest{contestIn(2, 2*time.Hour), contestIn(1, time.Hour)})

	if store.saveCount() != 1 {
		t.Fatalf("Expected 1 save, got %d", store.saveCount())
	}
	saved, _ := store.Load()
	assertIDs(t, []int64{1, 2}, saved)
}

func TestUpdateContests_SaveFailureKeepsMemory(t *testing.T) {
	store := &memStore{saveErr: errors.New("read-only file system")}
	tr, _ := newTestTracker(t, newFakeSource(), store, nil)

	tr.UpdateContests([]models.Contest{contestIn(1, time.Hour)})

	assertIDs(t, []int64{1}, tr.Contests())
	if got := tr.SecondsTillNextContest(); got != 3600 {
		t.Errorf("Expected 3600 seconds, got %v", got)
	}
}

func TestUpdateContests_SkipsMalformed(t *testing.T) {
	tr, _ := newTestTracker(t, newFakeSource(), &memStore{}, nil)

	malformed := contestIn(0, time.Hour)
	tr.UpdateContests([]models.Contest{malformed, contestIn(1, 2*time.Hour)})

	assertIDs(t, []int64{1}, tr.Contests())
}
