package stac

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func link(rel, href string) *Link {
	return &Link{Rel: rel, Href: href, Type: MediaJSON}
}

func rels(links []*Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Rel + ":" + l.Href
	}
	return out
}

func TestNormalizeLinks_PolicyTable(t *testing.T) {
	in := []*Link{
		link("root", "https://api/"),
		link("self", "https://api/collections/a"),
		link("items", "https://api/collections/a/items"),
		link("aggregate", "https://api/collections/a/aggregate"),
		link("child", "https://api/collections/b"),
		link("root", "https://api/other"),
		link("self", "https://api/collections/a2"),
		link("aggregate", "https://api/collections/a/aggregate"),
		link("aggregations", "https://api/collections/a/aggregations"),
		link("aggregations", "https://api/collections/a/aggregations"),
		link("queryables", "https://api/collections/a/queryables"),
		link("queryables", "https://api/collections/a/queryables"),
		link("child", "https://api/collections/b"),
		link("child", "https://api/collections/c"),
		link("ceda_catalogue", "https://catalogue/uuid/x"),
		link("ceda_catalogue", "https://catalogue/uuid/x"),
		link("parent", "https://api/collections/p"),
		link("parent", "https://api/collections/q"),
	}

	got := NormalizeLinks(in, true)

	assert.Equal(t, []string{
		"root:https://api/",
		"self:https://api/collections/a",
		"items:https://api/collections/a/items",
		"aggregate:https://api/collections/a/aggregate",
		"child:https://api/collections/b",
		"aggregations:https://api/collections/a/aggregations",
		"queryables:https://api/collections/a/queryables",
		"child:https://api/collections/c",
		"ceda_catalogue:https://catalogue/uuid/x",
		"ceda_catalogue:https://catalogue/uuid/x",
		"parent:https://api/collections/p",
	}, rels(got))
}

func TestNormalizeLinks_CapitalChildHrefs(t *testing.T) {
	in := []*Link{
		link("child", "https://api/collections/ESACCI.Biomass"),
		link("child", "https://api/collections/esacci.biomass"),
	}

	allowed := NormalizeLinks(in, true)
	assert.Len(t, allowed, 2)

	strict := NormalizeLinks(in, false)
	require.Len(t, strict, 1)
	assert.Equal(t, "https://api/collections/esacci.biomass", strict[0].Href)
}

func TestNormalizeLinks_SkipsNil(t *testing.T) {
	got := NormalizeLinks([]*Link{nil, link("self", "x"), nil}, true)
	assert.Len(t, got, 1)
}

func TestNormalizeLinks_RandomisedInvariants(t *testing.T) {
	relPool := []string{"self", "root", "parent", "items", "child", "child", "license", "aggregate"}
	hrefPool := []string{"a", "b", "B", "c", "https://x/Y", "https://x/y"}
	r := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		n := r.Intn(20)
		in := make([]*Link, n)
		for i := range in {
			in[i] = link(relPool[r.Intn(len(relPool))], hrefPool[r.Intn(len(hrefPool))])
		}

		for _, allowCaps := range []bool{true, false} {
			out := NormalizeLinks(in, allowCaps)

			counts := map[string]int{}
			children := map[string]int{}
			for _, l := range out {
				counts[l.Rel]++
				if l.Rel == "child" {
					children[l.Href]++
					if !allowCaps {
						assert.Equal(t, strings.ToLower(l.Href), l.Href)
					}
				}
			}
			for _, rel := range []string{"self", "root", "parent", "items", "aggregate"} {
				assert.LessOrEqual(t, counts[rel], 1, fmt.Sprintf("run %d rel %s", run, rel))
			}
			for href, c := range children {
				assert.Equal(t, 1, c, "duplicate child href %s", href)
			}

			// Normalising twice changes nothing.
			assert.Equal(t, rels(out), rels(NormalizeLinks(out, allowCaps)))
		}
	}
}
