// Package seed loads the starting roster from a directory of character files.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
)

// Loader reads *.json, *.yaml and *.yml character files. Each file holds one
// character; its id is the file name without extension.
type Loader struct {
	dir string
	log zerolog.Logger
}

func NewLoader(dir string, log zerolog.Logger) *Loader {
	return &Loader{dir: dir, log: log.With().Str("component", "seed").Logger()}
}

// Seed inserts every readable file into store unless store already holds
// characters. Files that fail to parse are logged and skipped. It returns the
// number of characters inserted.
func (l *Loader) Seed(ctx context.Context, store ports.CharacterSeeder) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: count: %w", err)
	}
	if n > 0 {
		l.log.Info().Int64("existing", n).Msg("store already populated, skipping seed")
		return 0, nil
	}

	chars, err := l.Load()
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, c := range chars {
		if err := store.Insert(ctx, c); err != nil {
			return inserted, fmt.Errorf("seed: insert %s: %w", c.ID, err)
		}
		inserted++
	}
	l.log.Info().Int("characters", inserted).Str("dir", l.dir).Msg("roster seeded")
	return inserted, nil
}

// Load parses every character file in the directory, ordered by file name.
func (l *Loader) Load() ([]*domain.Character, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("seed: read dir %s: %w", l.dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var chars []*domain.Character
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(l.dir, e.Name())
		c, err := ParseFile(path)
		if err != nil {
			l.log.Warn().Err(err).Str("file", path).Msg("skipping character file")
			continue
		}
		chars = append(chars, c)
	}
	return chars, nil
}

// ParseFile decodes one character file and prepares it for a fresh roster:
// full health, no temporary hit points.
func ParseFile(path string) (*domain.Character, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c domain.Character
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &c)
	default:
		err = yaml.Unmarshal(raw, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	base := filepath.Base(path)
	c.ID = strings.TrimSuffix(base, filepath.Ext(base))
	if c.HitPoints < 0 {
		return nil, fmt.Errorf("%s: negative hit points", c.ID)
	}
	c.CurrentHitPoints = c.HitPoints
	c.TemporaryHitPoints = 0
	c.Revision = 0

	for i, d := range c.Defenses {
		kind, err := domain.ParseDamageKind(string(d.Type))
		if err != nil {
			return nil, fmt.Errorf("%s: defense %d: %w", c.ID, i, err)
		}
		def, err := domain.ParseDefenseKind(string(d.Defense))
		if err != nil {
			return nil, fmt.Errorf("%s: defense %d: %w", c.ID, i, err)
		}
		c.Defenses[i] = domain.Defense{Type: kind, Defense: def}
	}
	return &c, nil
}
