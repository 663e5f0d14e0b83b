// Package tracker keeps the list of upcoming contests fresh and answers how
// long it is until the next contest the user takes part in.
//
// A Tracker combines three parts:
//
//	Poller    refreshes the list from a ContestSource on a timer, retrying
//	          failed fetches with exponential backoff.
//	Merger    folds fetched contests into the stored set, deduplicating by
//	          ID and dropping contests that started or left the BEFORE phase.
//	Resolver  picks the earliest participating contest and reports the
//	          seconds until it starts, or a sentinel when there is none.
//
// All state is guarded by a single mutex. The network fetch runs outside the
// lock and at most one fetch is in flight at any time.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rewired-gh/contest-countdown/internal/logger"
	"github.com/rewired-gh/contest-countdown/internal/models"
)

const (
	// DefaultRefreshInterval is the delay between successful refreshes.
	DefaultRefreshInterval = 6 * time.Hour
	// DefaultMaxRetries is the number of consecutive fetch attempts per cycle.
	DefaultMaxRetries = 5
	// DefaultInitialRetryDelay is doubled before every retry.
	DefaultInitialRetryDelay = time.Second
)

var (
	// ErrRefreshInProgress is returned by Refresh while another fetch is pending.
	ErrRefreshInProgress = errors.New("contest refresh already in progress")
	// ErrContestNotFound is returned when a contest ID is not in the stored set.
	ErrContestNotFound = errors.New("contest not found")
)

// ContestSource fetches the full remote contest list.
type ContestSource interface {
	FetchContests(ctx context.Context) ([]models.Contest, error)
}

// Store persists the contest set. Load returns an empty set when nothing was
// saved yet.
type Store interface {
	Load() ([]models.Contest, error)
	Save(contests []models.Contest) error
}

// Notifier is told about retry cycles that gave up and about the first
// success after failures. Calls happen outside the tracker lock.
type Notifier interface {
	OnExhausted(err error)
	OnRecovered(failures int)
}

type nopNotifier struct{}

func (nopNotifier) OnExhausted(error) {}
func (nopNotifier) OnRecovered(int)   {}

// Options tunes a Tracker. Zero values fall back to the defaults.
type Options struct {
	RefreshInterval   time.Duration
	MaxRetries        int
	InitialRetryDelay time.Duration
	Clock             clockwork.Clock
	Notifier          Notifier
}

// Tracker tracks upcoming contests
type Tracker struct {
	source   ContestSource
	store    Store
	clock    clockwork.Clock
	notifier Notifier

	refreshInterval   time.Duration
	maxRetries        int
	initialRetryDelay time.Duration

	mu       sync.Mutex
	contests []models.Contest
	next     *models.Contest

	// poller state
	retriesLeft   int
	retryDelay    time.Duration
	failures      int
	inFlight      bool
	timer         clockwork.Timer
	timerGen      uint64
	nextRefreshAt time.Time
	stopped       bool
	baseCtx       context.Context
}

// New creates a Tracker and loads the persisted contest set from store.
// A failed load is logged and the tracker starts with an empty set.
func New(source ContestSource, store Store, opts Options) *Tracker {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.InitialRetryDelay <= 0 {
		opts.InitialRetryDelay = DefaultInitialRetryDelay
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}

	t := &Tracker{
		source:            source,
		store:             store,
		clock:             opts.Clock,
		notifier:          opts.Notifier,
		refreshInterval:   opts.RefreshInterval,
		maxRetries:        opts.MaxRetries,
		initialRetryDelay: opts.InitialRetryDelay,
		retriesLeft:       opts.MaxRetries,
		retryDelay:        opts.InitialRetryDelay,
		baseCtx:           context.Background(),
	}

	loaded, err := store.Load()
	if err != nil {
		logger.Warn("Failed to load cached contests, starting empty: %v", err)
		loaded = nil
	}
	for i := range loaded {
		if loaded[i].Participating == nil {
			loaded[i].Participating = models.BoolPtr(true)
		}
	}
	t.contests = loaded
	t.setNextContestLocked()
	logger.Debug("Loaded %d cached contests", len(t.contests))

	return t
}

// Contests returns a copy of the stored contest set in start order.
func (t *Tracker) Contests() []models.Contest {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Contest, len(t.contests))
	copy(out, t.contests)
	return out
}
