package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// ErrStageDir is returned when the stage directory cannot be read.
var ErrStageDir = errors.New("stage directory unreadable")

// Store holds the staged documents served by the preview API.
//
// Collections are the {id}.json files at the top of the stage directory.
// Items are the stac_*.json files one directory down, the layout written by
// create-items. An item whose collection has no staged document still gets a
// bare collection so it can be browsed.
type Store struct {
	collections map[string]*stac.Collection
	items       map[string][]*stac.Item
}

// LoadStore reads every staged document under dir.
func LoadStore(fs afero.Fs, dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStageDir, err)
	}

	s := &Store{
		collections: make(map[string]*stac.Collection),
		items:       make(map[string][]*stac.Item),
	}

	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := s.loadItems(fs, p, e.Name(), logger); err != nil {
				return nil, err
			}
			continue
		}
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		coll, err := stac.DecodeCollection(data)
		if err != nil || coll.ID == "" || coll.Type != "Collection" {
			logger.Warn("skipping staged file", slog.String("path", p))
			continue
		}
		s.collections[coll.ID] = coll
	}

	for id, items := range s.items {
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		if _, ok := s.collections[id]; !ok {
			s.collections[id] = &stac.Collection{
				Type:        "Collection",
				Version:     stac.Version,
				ID:          id,
				Description: id,
				License:     "other",
				Links:       make([]*stac.Link, 0),
			}
		}
	}

	logger.Info("loaded stage directory",
		slog.String("dir", dir),
		slog.Int("collections", len(s.collections)),
		slog.Int("items", s.ItemTotal()),
	)
	return s, nil
}

func (s *Store) loadItems(fs afero.Fs, dir, dirName string, logger *slog.Logger) error {
	files, err := afero.ReadDir(fs, dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStageDir, err)
	}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, "stac") || filepath.Ext(name) != ".json" {
			continue
		}
		p := filepath.Join(dir, name)
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		var item stac.Item
		if err := json.Unmarshal(data, &item); err != nil || item.ID == "" {
			logger.Warn("skipping staged item", slog.String("path", p))
			continue
		}
		coll := item.Collection
		if coll == "" {
			coll = dirName
		}
		s.items[coll] = append(s.items[coll], &item)
	}
	return nil
}

// Collections returns every staged collection.
func (s *Store) Collections() []*stac.Collection {
	out := make([]*stac.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, c)
	}
	return out
}

// Collection returns one collection by id.
func (s *Store) Collection(id string) (*stac.Collection, bool) {
	c, ok := s.collections[id]
	return c, ok
}

// Items returns the items of a collection ordered by id.
func (s *Store) Items(collection string) []*stac.Item {
	return s.items[collection]
}

// Item returns one item of a collection.
func (s *Store) Item(collection, id string) (*stac.Item, bool) {
	for _, it := range s.items[collection] {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

// ItemTotal is the number of staged items.
func (s *Store) ItemTotal() int {
	n := 0
	for _, items := range s.items {
		n += len(items)
	}
	return n
}
