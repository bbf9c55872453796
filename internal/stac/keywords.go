package stac

import (
	"sort"
	"strings"
)

// KeywordSet is an order-irrelevant, duplicate-free set of keywords.
type KeywordSet map[string]struct{}

// NewKeywordSet returns a set holding every non-empty keyword in the lists.
func NewKeywordSet(lists ...[]string) KeywordSet {
	s := make(KeywordSet)
	for _, l := range lists {
		s.Add(l...)
	}
	return s
}

// Add inserts keywords into the set, skipping empty strings.
func (s KeywordSet) Add(keywords ...string) {
	for _, k := range keywords {
		if k == "" {
			continue
		}
		s[k] = struct{}{}
	}
}

// AddDotted inserts every dot-separated component of id.
func (s KeywordSet) AddDotted(id string) {
	s.Add(strings.Split(id, ".")...)
}

// Sorted returns the keywords in lexical order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
