// Package rotation tracks which categories have been covered and which are
// due next, persisted across runs so daily invocations walk the full category
// list before repeating any of it.
package rotation

import (
	"log/slog"
	"time"

	"github.com/eforeli/XWebNews/engine/domain"
	"github.com/eforeli/XWebNews/pkg/statestore"
)

// State is the persisted rotation record. Cursor always points at the next
// category to serve; History maps each invocation day to the categories
// selected on that day.
type State struct {
	Cursor  int                          `json:"rotation_index"`
	History map[string][]domain.Category `json:"history"`
}

// Cursor selects the next unit of work deterministically and fairly.
type Cursor struct {
	store      *statestore.Store
	categories []domain.Category
	log        *slog.Logger
}

// New creates a Cursor over the given ordered category list backed by store.
func New(store *statestore.Store, categories []domain.Category, log *slog.Logger) *Cursor {
	return &Cursor{store: store, categories: categories, log: log}
}

// SelectToday returns the categories to cover on the calendar day of now.
//
// A repeated call on the same day returns the day's recorded selection with
// alreadyDone=true and changes no state. Otherwise it takes batchSize
// consecutive categories starting at the cursor (wrapping), advances the
// cursor by batchSize mod N, records the selection under today's date, and
// persists before returning. The cursor advances at selection time, so a run
// that is cancelled after selection will not re-select the same batch.
func (c *Cursor) SelectToday(now time.Time, batchSize int) (selected []domain.Category, alreadyDone bool, err error) {
	state := State{History: map[string][]domain.Category{}}
	if _, err := statestore.Load(c.store, &state); err != nil {
		return nil, false, domain.Persistf("rotation state", err)
	}
	if state.History == nil {
		state.History = map[string][]domain.Category{}
	}

	today := domain.DateKey(now)
	if done, ok := state.History[today]; ok {
		c.log.Info("rotation already recorded for today", "date", today, "categories", done)
		return append([]domain.Category(nil), done...), true, nil
	}

	n := len(c.categories)
	if batchSize <= 0 {
		batchSize = 1
	}
	count := batchSize
	if count > n {
		// Selecting more than N degenerates to full coverage.
		count = n
	}

	selected = make([]domain.Category, 0, count)
	for i := 0; i < count; i++ {
		selected = append(selected, c.categories[(state.Cursor+i)%n])
	}

	state.Cursor = (state.Cursor + batchSize) % n
	state.History[today] = selected

	if err := statestore.Save(c.store, state); err != nil {
		return nil, false, domain.Persistf("rotation state", err)
	}

	c.log.Info("rotation selected categories",
		"date", today, "categories", selected, "next_cursor", state.Cursor)
	return selected, false, nil
}
