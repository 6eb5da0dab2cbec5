// Package quota tracks consumption of the external monthly volume budget and
// of the rate-limited request channel, persisted per calendar month.
package quota

import (
	"log/slog"
	"time"

	"github.com/eforeli/XWebNews/engine/domain"
	"github.com/eforeli/XWebNews/pkg/statestore"
)

// MonthUsage is the persisted usage record for one calendar month. Request
// count and item count are tracked independently: a zero-item call still
// consumed a request against the rate limit.
type MonthUsage struct {
	RequestsMade    int    `json:"requests_made"`
	ItemsRetrieved  int    `json:"items_retrieved"`
	LastRequestDate string `json:"last_request_date,omitempty"`
}

// State maps month keys (YYYY-MM) to usage. Prior months are retained for
// audit; a new month's entry is created lazily.
type State map[string]MonthUsage

// Ledger enforces the monthly item ceiling. Every operation takes the run's
// clock, so a simulated run date charges the simulated month, matching the
// month the rotation history and snapshots are filed under.
type Ledger struct {
	store   *statestore.Store
	ceiling int
	log     *slog.Logger
}

// New creates a Ledger with the given monthly item ceiling.
func New(store *statestore.Store, ceiling int, log *slog.Logger) *Ledger {
	return &Ledger{store: store, ceiling: ceiling, log: log}
}

// Ceiling returns the configured monthly item ceiling.
func (l *Ledger) Ceiling() int { return l.ceiling }

// Usage returns the usage record for the month of now.
func (l *Ledger) Usage(now time.Time) (MonthUsage, error) {
	state, err := l.load()
	if err != nil {
		return MonthUsage{}, err
	}
	return state[domain.MonthKey(now)], nil
}

// CanAfford reports whether retrieving estimated more items would still fit
// under the ceiling for the month of now.
func (l *Ledger) CanAfford(now time.Time, estimated int) (bool, error) {
	usage, err := l.Usage(now)
	if err != nil {
		return false, err
	}
	return usage.ItemsRetrieved+estimated <= l.ceiling, nil
}

// Reserve durably charges the worst-case cost of one imminent external call:
// the full estimated item count plus the request itself. It must be called
// before the call goes out, so a crash mid-call leaves the reservation on
// record instead of unaccounted consumption.
func (l *Ledger) Reserve(now time.Time, estimated int) error {
	return l.Record(now, estimated, true)
}

// Reconcile replaces a reservation's estimate with the call's actual item
// count once the outcome is known. A failed or empty call reconciles to zero,
// releasing the whole estimate.
func (l *Ledger) Reconcile(now time.Time, estimated, actual int) error {
	if actual == estimated {
		return nil
	}
	return l.Record(now, actual-estimated, false)
}

// Record charges the month of now. items may be negative when a reservation
// is being reconciled down; the write is durable before it returns.
func (l *Ledger) Record(now time.Time, items int, requestMade bool) error {
	state, err := l.load()
	if err != nil {
		return err
	}

	month := domain.MonthKey(now)
	usage := state[month]
	if requestMade {
		usage.RequestsMade++
		usage.LastRequestDate = domain.DateKey(now)
	}
	usage.ItemsRetrieved += items
	state[month] = usage

	if err := statestore.Save(l.store, state); err != nil {
		return domain.Persistf("quota state", err)
	}

	l.log.Info("quota recorded",
		"month", month,
		"items", items,
		"items_retrieved", usage.ItemsRetrieved,
		"requests_made", usage.RequestsMade,
		"ceiling", l.ceiling)
	return nil
}

func (l *Ledger) load() (State, error) {
	state := State{}
	if _, err := statestore.Load(l.store, &state); err != nil {
		return nil, domain.Persistf("quota state", err)
	}
	return state, nil
}
