package translate

import (
	"sort"

	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// Band is one eo:bands summary entry derived from an asset label.
type Band struct {
	Name        string `json:"name"`
	CommonName  string `json:"common_name"`
	Description string `json:"description"`
}

// newBand names a band after an asset label. Labels carry no description.
func newBand(label string) Band {
	return Band{Name: label, CommonName: label, Description: "None"}
}

// BandSummaries accumulates, per parent collection, the asset labels seen
// while posting OpenEO items.
type BandSummaries struct {
	bands map[string][]Band
	seen  map[string]map[string]bool
}

// NewBandSummaries creates an empty accumulator.
func NewBandSummaries() *BandSummaries {
	return &BandSummaries{
		bands: make(map[string][]Band),
		seen:  make(map[string]map[string]bool),
	}
}

// Add records every asset label of item under the item's collection.
// Labels are recorded in sorted order the first time they are seen.
func (s *BandSummaries) Add(item *stac.Item) {
	labels := make([]string, 0, len(item.Assets))
	for label := range item.Assets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	collection := item.Collection
	if s.seen[collection] == nil {
		s.seen[collection] = make(map[string]bool)
	}
	for _, label := range labels {
		if s.seen[collection][label] {
			continue
		}
		s.seen[collection][label] = true
		s.bands[collection] = append(s.bands[collection], newBand(label))
	}
}

// Collections returns the ids of every collection with recorded bands.
func (s *BandSummaries) Collections() []string {
	ids := make([]string, 0, len(s.bands))
	for id := range s.bands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Bands returns the recorded bands of a collection.
func (s *BandSummaries) Bands(collection string) []Band {
	return s.bands[collection]
}

// MergeInto appends the recorded bands missing from the collection's
// eo:bands summary. It reports whether the collection changed.
func (s *BandSummaries) MergeInto(c *stac.Collection) bool {
	bands := s.bands[c.ID]
	if len(bands) == 0 {
		return false
	}

	var existing []any
	if c.Summaries != nil {
		existing, _ = c.Summaries["eo:bands"].([]any)
	}

	names := make(map[string]bool, len(existing))
	for _, e := range existing {
		switch b := e.(type) {
		case map[string]any:
			if name, ok := b["name"].(string); ok {
				names[name] = true
			}
		case Band:
			names[b.Name] = true
		}
	}

	changed := false
	for _, band := range bands {
		if names[band.Name] {
			continue
		}
		existing = append(existing, band)
		names[band.Name] = true
		changed = true
	}

	if !changed {
		return false
	}
	if c.Summaries == nil {
		c.Summaries = make(map[string]any)
	}
	c.Summaries["eo:bands"] = existing
	return true
}
