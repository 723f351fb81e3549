package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/shared/types"
)

// Seeder loads activity definitions from a directory of YAML files so
// deployments can ship built-in activities.
type Seeder struct {
	dir string
	log *logging.Logger
}

// NewSeeder creates a seeder for dir. An empty dir disables seeding.
func NewSeeder(dir string, log *logging.Logger) *Seeder {
	return &Seeder{dir: dir, log: log.Named("seeder")}
}

// Load parses every .yaml/.yml file in the seed directory. Files that fail
// to parse are skipped with a warning; seeding is best effort.
func (s *Seeder) Load() []types.ActivityDefinition {
	if s.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Failed to read seed directory", zap.Error(err))
		}
		return nil
	}

	var defs []types.ActivityDefinition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		def, err := s.loadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.log.Warn("Skipping seed definition",
				zap.String("file", name),
				zap.Error(err))
			continue
		}
		defs = append(defs, *def)
	}

	if len(defs) > 0 {
		s.log.Info("Seed definitions loaded", zap.Int("count", len(defs)))
	}
	return defs
}

func (s *Seeder) loadFile(path string) (*types.ActivityDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var def types.ActivityDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing seed definition: %w", err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("seed definition has no name")
	}
	if def.Creator.Type == "" {
		def.Creator = types.NamedBusID("activityd.seed")
	}
	return &def, nil
}
