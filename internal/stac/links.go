package stac

import "strings"

// singletonRels are relations of which only the first occurrence is kept.
var singletonRels = map[string]bool{
	"items":        true,
	"parent":       true,
	"root":         true,
	"self":         true,
	"aggregate":    true,
	"aggregations": true,
	"queryables":   true,
}

// NormalizeLinks removes duplicate links that accumulate as documents are
// fetched, mutated and written back.
//
// Relations in the singleton set keep their first occurrence only. Child
// links keep the first occurrence per href; when allowCapitalChildHrefs is
// false, child links whose href is not already lower-case are dropped.
// Every other relation passes through untouched. Input order is preserved.
func NormalizeLinks(links []*Link, allowCapitalChildHrefs bool) []*Link {
	out := make([]*Link, 0, len(links))
	seenRel := make(map[string]bool)
	seenChild := make(map[string]bool)

	for _, l := range links {
		if l == nil {
			continue
		}

		switch {
		case l.Rel == "child":
			if seenChild[l.Href] {
				continue
			}
			if !allowCapitalChildHrefs && l.Href != strings.ToLower(l.Href) {
				continue
			}
			seenChild[l.Href] = true

		case singletonRels[l.Rel]:
			if seenRel[l.Rel] {
				continue
			}
			seenRel[l.Rel] = true
		}

		out = append(out, l)
	}

	return out
}

// ChildLink returns a child link to href.
func ChildLink(href string) *Link {
	return &Link{Rel: "child", Type: MediaJSON, Href: href}
}
