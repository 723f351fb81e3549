// Package persist serializes the definitions of persistent activities at
// shutdown and re-creates them in initialized state at boot. It also loads
// seed definitions from a directory of YAML files.
package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/shared/types"
)

const stateFile = "activities.json"

// SavedActivity is one persisted activity: its id and the definition it
// was created from.
type SavedActivity struct {
	ID         uint64                   `json:"activityId"`
	Definition types.ActivityDefinition `json:"definition"`
}

// Store reads and writes the persisted activity state.
type Store struct {
	dir string
	log *logging.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, log *logging.Logger) *Store {
	return &Store{dir: dir, log: log.Named("persist")}
}

// Save writes the definitions of persistent activities.
func (s *Store) Save(defs map[uint64]types.ActivityDefinition) error {
	saved := make([]SavedActivity, 0, len(defs))
	for id, def := range defs {
		saved = append(saved, SavedActivity{ID: id, Definition: def})
	}

	data, err := sonic.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to marshal activity state: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create persist dir: %w", err)
	}

	path := filepath.Join(s.dir, stateFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write activity state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit activity state: %w", err)
	}

	s.log.Info("Persistent activities saved", zap.Int("count", len(saved)))
	return nil
}

// Load reads the persisted activity state. A missing file is an empty
// state, not an error.
func (s *Store) Load() ([]SavedActivity, error) {
	path := filepath.Join(s.dir, stateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read activity state: %w", err)
	}

	var saved []SavedActivity
	if err := sonic.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity state: %w", err)
	}

	s.log.Info("Persistent activities loaded", zap.Int("count", len(saved)))
	return saved, nil
}
