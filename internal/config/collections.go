package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// collectionExts are the file extensions read as collection documents.
var collectionExts = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// CollectionRegistry holds collection documents loaded from disk, indexed by ID.
type CollectionRegistry struct {
	collections map[string]*stac.Collection
	sources     map[string]string
}

// NewCollectionRegistry creates a new empty collection registry.
func NewCollectionRegistry() *CollectionRegistry {
	return &CollectionRegistry{
		collections: make(map[string]*stac.Collection),
		sources:     make(map[string]string),
	}
}

// LoadCollections loads collection documents from a single file or from
// every JSON/YAML file of a directory. The STAC_API placeholder is replaced
// with apiBase before decoding.
func LoadCollections(fs afero.Fs, path, apiBase string) (*CollectionRegistry, error) {
	registry := NewCollectionRegistry()

	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access collections path %q: %w", path, err)
	}

	if !info.IsDir() {
		collection, err := LoadCollectionFile(fs, path, apiBase)
		if err != nil {
			return nil, fmt.Errorf("failed to load collection from %q: %w", path, err)
		}
		if err := registry.Add(collection, path); err != nil {
			return nil, err
		}
		return registry, nil
	}

	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collections directory %q: %w", path, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if !collectionExts[strings.ToLower(filepath.Ext(filename))] {
			continue
		}

		filePath := filepath.Join(path, filename)
		collection, err := LoadCollectionFile(fs, filePath, apiBase)
		if err != nil {
			return nil, fmt.Errorf("failed to load collection from %q: %w", filePath, err)
		}

		if err := registry.Add(collection, filePath); err != nil {
			return nil, fmt.Errorf("failed to add collection from %q: %w", filePath, err)
		}
	}

	if registry.Count() == 0 {
		return nil, fmt.Errorf("no collection files found in %q", path)
	}

	return registry, nil
}

// LoadCollectionFile loads a single JSON or YAML collection document.
func LoadCollectionFile(fs afero.Fs, filePath, apiBase string) (*stac.Collection, error) {
	data, err := afero.ReadFile(fs, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	data = stac.SubstituteAPI(data, apiBase)

	// YAML is converted so the collection's own JSON decoding keeps unknown members.
	data, err = yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	collection, err := stac.DecodeCollection(data)
	if err != nil {
		return nil, err
	}

	if err := validateCollection(collection); err != nil {
		return nil, fmt.Errorf("invalid collection document: %w", err)
	}

	return collection, nil
}

// validateCollection checks that a collection document is valid.
func validateCollection(c *stac.Collection) error {
	if c.ID == "" {
		return fmt.Errorf("collection ID is required")
	}

	if c.ID != strings.ToLower(c.ID) {
		return fmt.Errorf("collection ID %q must be lower-case", c.ID)
	}

	if c.Description == "" {
		return fmt.Errorf("collection description is required")
	}

	if c.Extent == nil {
		return fmt.Errorf("collection extent is required")
	}

	if c.Extent.Spatial != nil {
		for i, bbox := range c.Extent.Spatial.Bbox {
			if len(bbox) != 4 && len(bbox) != 6 {
				return fmt.Errorf("bbox[%d] must have 4 or 6 values, got %d", i, len(bbox))
			}
		}
	}

	if c.Extent.Temporal != nil {
		for i, interval := range c.Extent.Temporal.Interval {
			if len(interval) != 2 {
				return fmt.Errorf("temporal interval[%d] must have exactly 2 values, got %d", i, len(interval))
			}
		}
	}

	return nil
}

// Add registers a collection in the registry.
// Returns an error if a collection with the same ID already exists.
func (r *CollectionRegistry) Add(collection *stac.Collection, source string) error {
	if collection == nil {
		return fmt.Errorf("cannot add nil collection")
	}

	if prev, exists := r.sources[collection.ID]; exists {
		return fmt.Errorf("collection with ID %q already loaded from %q", collection.ID, prev)
	}

	r.collections[collection.ID] = collection
	r.sources[collection.ID] = source
	return nil
}

// Get retrieves a collection by ID.
// Returns nil if the collection does not exist.
func (r *CollectionRegistry) Get(id string) *stac.Collection {
	return r.collections[id]
}

// Source returns the file a collection was loaded from.
func (r *CollectionRegistry) Source(id string) string {
	return r.sources[id]
}

// All returns all collections in the registry sorted by ID.
func (r *CollectionRegistry) All() []*stac.Collection {
	out := make([]*stac.Collection, 0, len(r.collections))
	for _, id := range r.IDs() {
		out = append(out, r.collections[id])
	}
	return out
}

// IDs returns all collection IDs in the registry in lexical order.
func (r *CollectionRegistry) IDs() []string {
	ids := make([]string, 0, len(r.collections))
	for id := range r.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of collections in the registry.
func (r *CollectionRegistry) Count() int {
	return len(r.collections)
}
