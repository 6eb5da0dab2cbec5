package harvest

import (
	"path/filepath"

	"github.com/eforeli/XWebNews/engine/domain"
	"github.com/eforeli/XWebNews/pkg/statestore"
)

// SnapshotStore writes each run's full result as a dated JSON file. Snapshots
// exist for audit and replay; the only read path is the same-day short-circuit.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates a store rooted at dir.
func NewSnapshotStore(dir string) *SnapshotStore { return &SnapshotStore{dir: dir} }

func (s *SnapshotStore) file(date string) *statestore.Store {
	return statestore.New(filepath.Join(s.dir, "run_"+date+".json"))
}

// Save persists the result under its run date.
func (s *SnapshotStore) Save(result domain.RunResult) error {
	return statestore.Save(s.file(result.Date), result)
}

// Load reads the snapshot for the given date key. A missing snapshot returns
// ok=false without error.
func (s *SnapshotStore) Load(date string) (domain.RunResult, bool, error) {
	var result domain.RunResult
	ok, err := statestore.Load(s.file(date), &result)
	return result, ok, err
}
