package collection

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/cci-stac-tools/internal/catalogue"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// seedTree stores cci -> proj -> m1 -> d1, with two items in d1, one of
// them an aggregation.
func seedTree(cat *memCatalogue) {
	node := func(id string, children ...string) {
		c := stac.NewCollectionTemplate(cat.client.BaseURL())
		c.ID = id
		c.Description = id
		for _, child := range children {
			c.Links = append(c.Links, stac.ChildLink(cat.href(child)))
		}
		cat.put(c)
	}
	node(RootID, "proj")
	node("proj", "m1")
	node("m1", "d1")
	node("d1")

	agg := stac.NewItem("agg", "d1")
	agg.Properties["aggregation"] = true
	cat.items["d1"] = []*stac.Item{stac.NewItem("a", "d1"), agg}
}

func TestManager_Delete_DryRun(t *testing.T) {
	cat := newMemCatalogue(t)
	seedTree(cat)
	m := NewManager(cat.client, afero.NewMemMapFs(), discard)

	report, err := m.Delete(context.Background(), "proj", DeleteOptions{Parent: RootID, Depth: -1})
	require.NoError(t, err)

	assert.Equal(t, []string{"d1", "m1", "proj"}, report.Collections)
	assert.Equal(t, []string{stac.ItemHref(cat.client.BaseURL(), "d1", "a")}, report.Items)
	assert.Equal(t, 1, report.KeptAggregations)
	assert.Equal(t, RootID, report.Unlinked)
	assert.Empty(t, cat.writes())
}

func TestManager_Delete_Execute(t *testing.T) {
	cat := newMemCatalogue(t)
	seedTree(cat)
	m := NewManager(cat.client, afero.NewMemMapFs(), discard)

	_, err := m.Delete(context.Background(), "proj", DeleteOptions{Parent: RootID, Depth: -1, Execute: true})
	require.NoError(t, err)

	for _, id := range []string{"proj", "m1", "d1"} {
		assert.False(t, cat.has(id), id)
	}
	require.Len(t, cat.items["d1"], 1)
	assert.Equal(t, "agg", cat.items["d1"][0].ID)
	assert.Empty(t, cat.doc(t, RootID).ChildHrefs())
}

func TestManager_Delete_Selection(t *testing.T) {
	tests := []struct {
		name     string
		opts     DeleteOptions
		want     []string
		unlinked string
	}{
		{name: "depth", opts: DeleteOptions{Depth: 2}, want: []string{"d1"}},
		{name: "lowest only", opts: DeleteOptions{Depth: -1, LowestOnly: true}, want: []string{"d1"}},
		{name: "top only", opts: DeleteOptions{Depth: -1, TopOnly: true, Parent: RootID}, want: []string{"proj"}, unlinked: RootID},
		{name: "keep collections", opts: DeleteOptions{Depth: -1, KeepCollections: true, ItemAggregations: true, Parent: RootID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := newMemCatalogue(t)
			seedTree(cat)
			m := NewManager(cat.client, afero.NewMemMapFs(), discard)

			report, err := m.Delete(context.Background(), "proj", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Collections)
			assert.Equal(t, tt.unlinked, report.Unlinked)
		})
	}
}

func TestManager_Delete_KeepCollectionsRemovesAggregations(t *testing.T) {
	cat := newMemCatalogue(t)
	seedTree(cat)
	m := NewManager(cat.client, afero.NewMemMapFs(), discard)

	report, err := m.Delete(context.Background(), "d1", DeleteOptions{Depth: -1, KeepCollections: true, ItemAggregations: true, Execute: true})
	require.NoError(t, err)
	assert.Len(t, report.Items, 2)
	assert.Empty(t, cat.items["d1"])
	assert.True(t, cat.has("d1"))
}

func TestManager_Delete_DepthBeyondDRS(t *testing.T) {
	m := NewManager(newMemCatalogue(t).client, afero.NewMemMapFs(), discard)
	_, err := m.Delete(context.Background(), "cci", DeleteOptions{Depth: 4})
	assert.ErrorIs(t, err, ErrDepthExceeded)
}

func TestManager_Migrate(t *testing.T) {
	cat := newMemCatalogue(t)
	seedTree(cat)
	archive := stac.NewCollectionTemplate(cat.client.BaseURL())
	archive.ID = "archive"
	cat.put(archive)

	m := NewManager(cat.client, afero.NewMemMapFs(), discard)
	require.NoError(t, m.Migrate(context.Background(), "proj", RootID, "archive"))

	assert.Empty(t, cat.doc(t, RootID).ChildHrefs())
	assert.Equal(t, []string{"proj"}, childIDs(cat.doc(t, "archive")))

	// Moving again is idempotent on the new parent.
	require.NoError(t, m.Migrate(context.Background(), "proj", "root", "archive"))
	assert.Equal(t, []string{"proj"}, childIDs(cat.doc(t, "archive")))

	err := m.Migrate(context.Background(), "proj", "root", "nowhere")
	assert.ErrorIs(t, err, ErrParentNotFound)
}

const manualJSON = `{
  "type": "Collection",
  "stac_version": "1.1.0",
  "id": "manual_a",
  "description": "A",
  "license": "other",
  "extent": {"spatial": {"bbox": [[-180, -90, 180, 90]]}, "temporal": {"interval": [["2000-01-01T00:00:00Z", null]]}},
  "links": [{"rel": "root", "href": "STAC_API"}]
}`

const manualYAML = `type: Collection
stac_version: 1.1.0
id: manual_b
description: B
license: other
extent:
  spatial:
    bbox: [[-180, -90, 180, 90]]
  temporal:
    interval: [["2000-01-01T00:00:00Z", null]]
links:
  - rel: root
    href: STAC_API
`

func TestManager_Upload(t *testing.T) {
	cat := newMemCatalogue(t)
	seedTree(cat)
	existing := stac.NewCollectionTemplate(cat.client.BaseURL())
	existing.ID = "manual_b"
	cat.put(existing)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "docs/a.json", []byte(manualJSON), 0o644))
	require.NoError(t, afero.WriteFile(fs, "docs/b.yaml", []byte(manualYAML), 0o644))
	require.NoError(t, afero.WriteFile(fs, "docs/notes.txt", []byte("ignored"), 0o644))

	m := NewManager(cat.client, fs, discard)
	outcomes, err := m.Upload(context.Background(), "docs/", RootID)
	require.NoError(t, err)

	assert.Equal(t, []Outcome{
		{Node: "manual_a", Action: catalogue.Created},
		{Node: "manual_b", Action: catalogue.Updated},
	}, outcomes)
	assert.Equal(t, "B", cat.doc(t, "manual_b").Description)
	assert.Equal(t, cat.client.BaseURL(), cat.doc(t, "manual_a").Links[0].Href)
	assert.Equal(t, []string{"manual_a", "manual_b", "proj"}, childIDs(cat.doc(t, RootID)))
}

func TestManager_Upload_MissingParent(t *testing.T) {
	cat := newMemCatalogue(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.json", []byte(manualJSON), 0o644))

	_, err := NewManager(cat.client, fs, discard).Upload(context.Background(), "a.json", "nowhere")
	assert.ErrorIs(t, err, ErrParentNotFound)
	assert.Empty(t, cat.writes())
}

func TestAddChild(t *testing.T) {
	cat := newMemCatalogue(t)
	parent := molesParent(cat)
	cat.put(parent)

	features := &fakeFeatures{dates: map[string][]string{"esacci.X.v1": {"2005-01-01T00:00:00"}}}
	r := newReconciler(cat, nil, features, nil, Options{})

	_, err := r.AddChild(context.Background(), "u9", ChildSpec{Kind: KindDRS, ID: "esacci.X.v1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u9/esacci.X.v1"}, features.calls)
	assert.Equal(t, []string{"esacci.x.v1"}, childIDs(cat.doc(t, "u9")))
	assert.Equal(t, features.DescriptionURL("u9", "esacci.X.v1"), cat.doc(t, "esacci.x.v1").Description)

	_, err = r.AddChild(context.Background(), "u9", ChildSpec{Kind: KindOpenEO, ID: "esacci.X.v1", UUID: "u9"})
	require.NoError(t, err)
	assert.True(t, cat.has("esacci.x.v1.openeo"))
	assert.Equal(t, []string{"esacci.x.v1", "esacci.x.v1.openeo"}, childIDs(cat.doc(t, "u9")))
}

func TestAddChild_Errors(t *testing.T) {
	cat := newMemCatalogue(t)
	cat.put(molesParent(cat))
	r := newReconciler(cat, nil, nil, nil, Options{})

	_, err := r.AddChild(context.Background(), "missing", ChildSpec{Kind: KindDRS})
	assert.ErrorIs(t, err, ErrParentNotFound)

	_, err = r.AddChild(context.Background(), "u9", ChildSpec{Kind: KindOpenEO, ID: "x"})
	assert.ErrorIs(t, err, ErrMissingUUID)

	_, err = r.AddChild(context.Background(), "u9", ChildSpec{Kind: "granule"})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = r.AddChild(context.Background(), "u9", ChildSpec{Kind: KindProject, ID: "glaciers", Start: "2020-01-01", End: "2019-12-31"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid temporal range for project glaciers")

	_, err = r.AddChild(context.Background(), "u9", ChildSpec{Kind: KindProject, ID: "glaciers", Start: "last year"})
	require.Error(t, err)
	assert.False(t, cat.has("glaciers"))

	_, err = ParseKind("Moles")
	assert.NoError(t, err)
	_, err = ParseKind("granule")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
