package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/contest-countdown/internal/logger"
)

// PollerState is a point-in-time view of the retry state machine.
type PollerState struct {
	RetriesLeft   int
	RetryDelay    time.Duration
	InFlight      bool
	NextRefreshAt time.Time // zero when no refresh is scheduled
}

// Start runs the first refresh in the background. Timer-driven refreshes use
// ctx, and the pending timer is cancelled once ctx is done.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	t.baseCtx = ctx
	t.stopped = false
	t.mu.Unlock()

	go func() {
		_ = t.Refresh(ctx)
	}()
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			t.Stop()
		}()
	}
}

// Stop cancels the pending refresh. A fetch already in flight completes but
// schedules nothing.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.cancelTimerLocked()
}

// State returns the current poller state.
func (t *Tracker) State() PollerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return PollerState{
		RetriesLeft:   t.retriesLeft,
		RetryDelay:    t.retryDelay,
		InFlight:      t.inFlight,
		NextRefreshAt: t.nextRefreshAt,
	}
}

// Refresh fetches the contest list once and merges it.
//
// On success the retry state is reset and the next refresh is scheduled after
// the refresh interval. On failure a retry is scheduled after a doubled delay
// while retries are left; once they run out the retry state is reset and
// nothing is scheduled until Refresh is called again. The fetch error is
// returned either way. ErrRefreshInProgress is returned without side effects
// if another fetch is pending.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	if t.inFlight {
		t.mu.Unlock()
		return ErrRefreshInProgress
	}
	t.inFlight = true
	t.retriesLeft--
	t.cancelTimerLocked()
	retriesLeft := t.retriesLeft
	t.mu.Unlock()

	attempt := uuid.NewString()
	logger.Debug("Refreshing contests (attempt %s, retries left %d)", attempt, retriesLeft)

	contests, err := t.source.FetchContests(ctx)

	t.mu.Lock()
	t.inFlight = false

	if err != nil {
		t.failures++
		logger.Warn("Contest refresh failed (attempt %s, retries left %d): %v", attempt, t.retriesLeft, err)

		if t.retriesLeft > 0 {
			t.retryDelay *= 2
			t.scheduleLocked(t.retryDelay)
			logger.Info("Retrying contest refresh in %v", t.retryDelay)
			t.mu.Unlock()
		} else {
			failures := t.failures
			t.resetRetriesLocked()
			t.mu.Unlock()
			logger.Error("Contest refresh gave up after %d attempts: %v", failures, err)
			t.notifier.OnExhausted(err)
		}
		return fmt.Errorf("refresh contests: %w", err)
	}

	t.updateContestsLocked(contests)
	failures := t.failures
	t.resetRetriesLocked()
	t.scheduleLocked(t.refreshInterval)
	stored := len(t.contests)
	t.mu.Unlock()

	logger.Info("Contest refresh succeeded (attempt %s): %d fetched, %d upcoming stored", attempt, len(contests), stored)
	if failures > 0 {
		t.notifier.OnRecovered(failures)
	}
	return nil
}

func (t *Tracker) resetRetriesLocked() {
	t.retriesLeft = t.maxRetries
	t.retryDelay = t.initialRetryDelay
	t.failures = 0
}

// scheduleLocked replaces the pending timer with one firing after d.
func (t *Tracker) scheduleLocked(d time.Duration) {
	t.cancelTimerLocked()
	if t.stopped {
		return
	}

	gen := t.timerGen
	t.nextRefreshAt = t.clock.Now().Add(d)
	t.timer = t.clock.AfterFunc(d, func() { t.onTimer(gen) })
}

// cancelTimerLocked stops the pending timer. Bumping the generation makes a
// callback that already fired ignore itself.
func (t *Tracker) cancelTimerLocked() {
	t.timerGen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.nextRefreshAt = time.Time{}
}

func (t *Tracker) onTimer(gen uint64) {
	t.mu.Lock()
	if gen != t.timerGen || t.stopped {
		t.mu.Unlock()
		return
	}
	ctx := t.baseCtx
	t.mu.Unlock()

	if err := t.Refresh(ctx); errors.Is(err, ErrRefreshInProgress) {
		logger.Debug("Scheduled contest refresh skipped: fetch already in flight")
	}
}
