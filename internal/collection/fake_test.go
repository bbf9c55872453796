package collection

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/cci-stac-tools/internal/catalogue"
	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/search"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// memCatalogue is an in-memory STAC catalogue served over HTTP.
type memCatalogue struct {
	mu    sync.Mutex
	docs  map[string]*stac.Collection
	items map[string][]*stac.Item
	calls []string

	// failPost answers POSTs of these ids with the status.
	failPost map[string]int
	// conflictPost answers POSTs of these ids with 409 although GET reports
	// them missing.
	conflictPost map[string]bool

	server *httptest.Server
	client *catalogue.Client
}

func newMemCatalogue(t *testing.T) *memCatalogue {
	t.Helper()
	m := &memCatalogue{
		docs:         make(map[string]*stac.Collection),
		items:        make(map[string][]*stac.Item),
		failPost:     make(map[string]int),
		conflictPost: make(map[string]bool),
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			m.mu.Lock()
			m.calls = append(m.calls, req.Method+" "+req.URL.Path)
			m.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/collections/{id}", m.getCollection)
	r.Post("/collections", m.postCollection)
	r.Put("/collections/{id}", m.putCollection)
	r.Delete("/collections/{id}", m.deleteCollection)
	r.Get("/collections/{id}/items", m.getItems)
	r.Delete("/collections/{id}/items/{itemID}", m.deleteItem)

	m.server = httptest.NewServer(r)
	t.Cleanup(m.server.Close)

	m.client = catalogue.NewClient(config.CatalogueConfig{
		BaseURL:    m.server.URL,
		Timeout:    5 * time.Second,
		WriteRate:  10000,
		WriteBurst: 100,
	}, catalogue.Credentials{}).WithLogger(discard)
	return m
}

func (m *memCatalogue) put(c *stac.Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[c.ID] = c.Clone()
}

func (m *memCatalogue) doc(t *testing.T, id string) *stac.Collection {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[id]
	require.True(t, ok, "collection %s not stored", id)
	return c.Clone()
}

func (m *memCatalogue) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

func (m *memCatalogue) writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if c[:3] != "GET" {
			out = append(out, c)
		}
	}
	return out
}

func (m *memCatalogue) href(id string) string {
	return m.client.CollectionURL(id)
}

func (m *memCatalogue) getCollection(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	c, ok := m.docs[chi.URLParam(r, "id")]
	m.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_ = json.NewEncoder(w).Encode(c)
}

func (m *memCatalogue) postCollection(w http.ResponseWriter, r *http.Request) {
	var c stac.Collection
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if status, ok := m.failPost[c.ID]; ok {
		http.Error(w, "rejected", status)
		return
	}
	if _, exists := m.docs[c.ID]; exists || m.conflictPost[c.ID] {
		http.Error(w, "exists", http.StatusConflict)
		return
	}
	m.docs[c.ID] = &c
	w.WriteHeader(http.StatusCreated)
}

func (m *memCatalogue) putCollection(w http.ResponseWriter, r *http.Request) {
	var c stac.Collection
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.docs[chi.URLParam(r, "id")] = &c
	m.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (m *memCatalogue) deleteCollection(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := m.docs[id]; !ok {
		http.NotFound(w, r)
		return
	}
	delete(m.docs, id)
	w.WriteHeader(http.StatusNoContent)
}

func (m *memCatalogue) getItems(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	items := append([]*stac.Item(nil), m.items[chi.URLParam(r, "id")]...)
	m.mu.Unlock()
	_ = json.NewEncoder(w).Encode(stac.NewItemCollection(items))
}

func (m *memCatalogue) deleteItem(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := chi.URLParam(r, "id")
	kept := m.items[id][:0]
	for _, it := range m.items[id] {
		if it.ID != chi.URLParam(r, "itemID") {
			kept = append(kept, it)
		}
	}
	m.items[id] = kept
	w.WriteHeader(http.StatusNoContent)
}

type fakeIndex struct {
	byProject map[string][]search.CollectionRecord
}

func (f *fakeIndex) CollectionsForProject(_ context.Context, project string) ([]search.CollectionRecord, error) {
	return f.byProject[project], nil
}

func (f *fakeIndex) CollectionByID(_ context.Context, uuid string) (*search.CollectionRecord, error) {
	for _, recs := range f.byProject {
		for i := range recs {
			if recs[i].CollectionID == uuid {
				return &recs[i], nil
			}
		}
	}
	return nil, search.ErrNotFound
}

type fakeFeatures struct {
	dates map[string][]string
	calls []string
}

func (f *fakeFeatures) DescriptionURL(uuid, drs string) string {
	u := "https://os.test/opensearch/description.xml?parentIdentifier=" + uuid
	if drs != "" {
		u += "&drsId=" + drs
	}
	return u
}

func (f *fakeFeatures) FeatureDates(_ context.Context, uuid, drs string) ([]string, error) {
	f.calls = append(f.calls, uuid+"/"+drs)
	dates, ok := f.dates[drs]
	if !ok {
		return nil, errors.New("opensearch unavailable")
	}
	return dates, nil
}

type fakeAbstracts map[string]string

func (f fakeAbstracts) Abstract(_ context.Context, uuid string) (string, error) {
	if a, ok := f[uuid]; ok {
		return a, nil
	}
	return "", ErrNoAbstract
}

func childIDs(c *stac.Collection) []string {
	var ids []string
	for _, h := range c.ChildHrefs() {
		ids = append(ids, idFromHref(h))
	}
	sort.Strings(ids)
	return ids
}
