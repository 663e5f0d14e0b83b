// Package models defines the core domain entities for contest-countdown.
// A Contest mirrors one record of the Codeforces contest.list API, extended
// with a single local-only field recording whether the user takes part.
//
// Terminology (matching Codeforces naming):
//   - Phase: contest lifecycle state (BEFORE, CODING, PENDING_SYSTEM_TEST, ...).
//   - Relevant: a contest that has a start time, is in the BEFORE phase and
//     has not started yet.
package models

import (
	"errors"
	"sort"
	"time"
)

// Phase is the lifecycle state of a contest as reported by the API.
type Phase string

const (
	PhaseBefore            Phase = "BEFORE"
	PhaseCoding            Phase = "CODING"
	PhasePendingSystemTest Phase = "PENDING_SYSTEM_TEST"
	PhaseSystemTest        Phase = "SYSTEM_TEST"
	PhaseFinished          Phase = "FINISHED"
)

// Contest represents one upcoming or past contest.
//
// Participating is nil until the contest is first merged into the stored set,
// at which point it defaults to true. The user may later set it to false to
// exclude the contest from next-contest selection without removing it.
type Contest struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type,omitempty"` // CF, IOI or ICPC
	Phase               Phase  `json:"phase"`
	Frozen              bool   `json:"frozen,omitempty"`
	DurationSeconds     int64  `json:"durationSeconds,omitempty"`
	StartTimeSeconds    int64  `json:"startTimeSeconds,omitempty"`
	RelativeTimeSeconds int64  `json:"relativeTimeSeconds,omitempty"`
	Participating       *bool  `json:"participating,omitempty"`
}

// Validate checks that the contest carries the fields the tracker relies on.
func (c *Contest) Validate() error {
	if c.ID == 0 {
		return errors.New("contest ID must not be zero")
	}
	if c.Phase == "" {
		return errors.New("contest phase must not be empty")
	}
	if c.DurationSeconds < 0 {
		return errors.New("contest duration must not be negative")
	}
	return nil
}

// IsParticipating reports whether the user takes part in the contest.
// An unannotated contest counts as participating.
func (c *Contest) IsParticipating() bool {
	return c.Participating == nil || *c.Participating
}

// StartTime returns the contest start as a time.Time.
func (c *Contest) StartTime() time.Time {
	return time.Unix(c.StartTimeSeconds, 0)
}

// SecondsTill returns the whole seconds from now until the contest starts,
// rounded towards negative infinity. It is negative once the contest started.
func (c *Contest) SecondsTill(now time.Time) int64 {
	diff := c.StartTimeSeconds*1000 - now.UnixMilli()
	secs := diff / 1000
	if diff%1000 != 0 && diff < 0 {
		secs--
	}
	return secs
}

// IsRelevant reports whether the contest has a start time, has not left the
// BEFORE phase and has not started yet.
func (c *Contest) IsRelevant(now time.Time) bool {
	return c.StartTimeSeconds != 0 &&
		c.Phase == PhaseBefore &&
		c.SecondsTill(now) >= 0
}

// FilterRelevant returns the relevant contests sorted by start time.
// Contests starting at the same second keep their relative order.
// The input slice is not modified.
func FilterRelevant(contests []Contest, now time.Time) []Contest {
	out := make([]Contest, 0, len(contests))
	for _, c := range contests {
		if c.IsRelevant(now) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTimeSeconds < out[j].StartTimeSeconds
	})
	return out
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
