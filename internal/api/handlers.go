package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
	"github.com/robert-malhotra/cci-stac-tools/internal/translate"
)

// previewRels are the links replaced with preview-server hrefs when a staged
// collection is served.
var previewRels = map[string]bool{"self": true, "root": true, "items": true, "queryables": true}

// Handlers contains all HTTP handlers for the preview API.
type Handlers struct {
	cfg    *config.PreviewConfig
	store  *Store
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(cfg *config.PreviewConfig, store *Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// LandingPage returns the root catalog of the preview.
// GET /
func (h *Handlers) LandingPage(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.BaseURL

	landing := stac.NewLandingPage("cci-stac-preview", h.cfg.Title, h.cfg.Description)
	landing.AddLink("self", baseURL+"/", stac.MediaJSON)
	landing.AddLink("root", baseURL+"/", stac.MediaJSON)
	landing.AddLink("conformance", baseURL+"/conformance", stac.MediaJSON)
	landing.AddLink("data", baseURL+"/collections", stac.MediaJSON)

	for _, c := range stac.NewCollectionsList(h.store.Collections()).Collections {
		landing.Links = append(landing.Links, &stac.Link{
			Rel:   "child",
			Href:  stac.CollectionHref(baseURL, c.ID),
			Type:  stac.MediaJSON,
			Title: c.Title,
		})
	}

	WriteJSON(w, http.StatusOK, landing)
}

// Conformance returns the conformance classes of the preview.
// GET /conformance
func (h *Handlers) Conformance(w http.ResponseWriter, r *http.Request) {
	landing := stac.NewLandingPage("", "", "")
	WriteJSON(w, http.StatusOK, map[string][]string{"conformsTo": landing.ConformsTo})
}

// Collections returns every staged collection.
// GET /collections
func (h *Handlers) Collections(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.BaseURL

	staged := h.store.Collections()
	collections := make([]*stac.Collection, 0, len(staged))
	for _, c := range staged {
		collections = append(collections, h.withPreviewLinks(c))
	}

	response := stac.NewCollectionsList(collections)
	response.Links = append(response.Links,
		&stac.Link{Rel: "self", Href: baseURL + "/collections", Type: stac.MediaJSON},
		&stac.Link{Rel: "root", Href: baseURL + "/", Type: stac.MediaJSON},
	)

	WriteJSON(w, http.StatusOK, response)
}

// Collection returns a single staged collection.
// GET /collections/{collectionId}
func (h *Handlers) Collection(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")
	if collectionID == "" {
		WriteBadRequest(w, "collection ID is required")
		return
	}

	c, ok := h.store.Collection(collectionID)
	if !ok {
		WriteNotFound(w, fmt.Sprintf("collection %q not found", collectionID))
		return
	}

	WriteJSON(w, http.StatusOK, h.withPreviewLinks(c))
}

// Items returns a page of the staged items of a collection.
// GET /collections/{collectionId}/items
//
// Query parameters: limit, page, datetime, bbox and filter (CQL2-JSON).
func (h *Handlers) Items(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")
	if collectionID == "" {
		WriteBadRequest(w, "collection ID is required")
		return
	}
	if _, ok := h.store.Collection(collectionID); !ok {
		WriteNotFound(w, fmt.Sprintf("collection %q not found", collectionID))
		return
	}

	query := r.URL.Query()

	limit, err := h.parseLimit(query.Get("limit"))
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}
	page := 1
	if v := query.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			WriteInvalidParameter(w, fmt.Sprintf("invalid page %q: must be a positive integer", v))
			return
		}
	}

	match, err := compileItemFilter(query.Get("filter"), query.Get("filter-lang"), query.Get("datetime"), query.Get("bbox"))
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	var matched []*stac.Item
	for _, item := range h.store.Items(collectionID) {
		if match(item) {
			matched = append(matched, item)
		}
	}

	total := len(matched)
	// Pages past the end are empty; the bound keeps (page-1)*limit from
	// overflowing.
	from := total
	if page-1 <= total/limit {
		from = min((page-1)*limit, total)
	}
	to := min(from+limit, total)

	itemCollection := stac.NewItemCollection(matched[from:to])
	itemCollection.NumberMatched = &total

	baseURL := h.cfg.BaseURL
	selfURL := stac.CollectionHref(baseURL, collectionID) + "/items"
	itemCollection.AddLink("self", selfURL, stac.MediaGeoJSON)
	itemCollection.AddLink("root", baseURL+"/", stac.MediaJSON)
	itemCollection.AddLink("parent", stac.CollectionHref(baseURL, collectionID), stac.MediaJSON)
	itemCollection.AddLink("collection", stac.CollectionHref(baseURL, collectionID), stac.MediaJSON)

	params := query
	params.Set("limit", strconv.Itoa(limit))
	itemCollection.Links = append(itemCollection.Links, stac.BuildPaginationLinks(stac.PaginationInfo{
		BaseURL:       selfURL,
		CurrentPage:   page,
		Limit:         limit,
		TotalCount:    &total,
		ReturnedCount: len(itemCollection.Features),
		QueryParams:   params,
	})...)

	h.logger.Debug("served items",
		slog.String("collection", collectionID),
		slog.Int("matched", total),
		slog.Int("returned", len(itemCollection.Features)),
	)

	WriteGeoJSON(w, http.StatusOK, itemCollection)
}

// Item returns a single staged item.
// GET /collections/{collectionId}/items/{itemId}
func (h *Handlers) Item(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")
	itemID := chi.URLParam(r, "itemId")

	if collectionID == "" {
		WriteBadRequest(w, "collection ID is required")
		return
	}
	if itemID == "" {
		WriteBadRequest(w, "item ID is required")
		return
	}
	if _, ok := h.store.Collection(collectionID); !ok {
		WriteNotFound(w, fmt.Sprintf("collection %q not found", collectionID))
		return
	}

	item, ok := h.store.Item(collectionID, itemID)
	if !ok {
		WriteNotFound(w, fmt.Sprintf("item %q not found in collection %q", itemID, collectionID))
		return
	}

	WriteGeoJSON(w, http.StatusOK, item)
}

// Health returns the health status of the service with the staged totals.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"collections": len(h.store.Collections()),
		"items":       h.store.ItemTotal(),
	})
}

func (h *Handlers) parseLimit(v string) (int, error) {
	if v == "" {
		return h.cfg.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid limit %q: must be a positive integer", v)
	}
	return min(limit, h.cfg.MaxLimit), nil
}

// withPreviewLinks returns a copy of c whose navigation links point at the
// preview server. Other links, such as child links into the catalogue, are
// kept as staged.
func (h *Handlers) withPreviewLinks(c *stac.Collection) *stac.Collection {
	out := c.Clone()
	if out == nil {
		return c
	}

	baseURL := h.cfg.BaseURL
	self := stac.CollectionHref(baseURL, c.ID)

	links := make([]*stac.Link, 0, len(out.Links)+4)
	for _, l := range out.Links {
		if l != nil && !previewRels[l.Rel] {
			links = append(links, l)
		}
	}
	links = append(links,
		&stac.Link{Rel: "self", Href: self, Type: stac.MediaJSON},
		&stac.Link{Rel: "root", Href: baseURL + "/", Type: stac.MediaJSON},
		&stac.Link{Rel: "items", Href: self + "/items", Type: stac.MediaGeoJSON},
		&stac.Link{Rel: "queryables", Href: self + "/queryables", Type: "application/schema+json"},
	)
	out.Links = links
	return out
}

// compileItemFilter combines the filter, datetime and bbox parameters into a
// single predicate.
func compileItemFilter(filter, filterLang, datetime, bbox string) (translate.Predicate, error) {
	predicates := make([]translate.Predicate, 0, 3)

	if filter != "" {
		if filterLang != "" && filterLang != "cql2-json" {
			return nil, fmt.Errorf("unsupported filter-lang %q: only cql2-json is supported", filterLang)
		}
		var expr any
		if err := json.Unmarshal([]byte(filter), &expr); err != nil {
			return nil, fmt.Errorf("invalid filter: %v", err)
		}
		p, err := translate.CompileCQL2Filter(expr)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}

	if datetime != "" {
		start, end, err := translate.ParseDateTimeInterval(datetime)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, func(item *stac.Item) bool {
			s, e := itemInterval(item)
			return translate.OverlapsInterval(s, e, start, end)
		})
	}

	if bbox != "" {
		box, err := translate.ParseBBox(bbox)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, func(item *stac.Item) bool {
			return translate.BBoxIntersects(item.BBox, box)
		})
	}

	return func(item *stac.Item) bool {
		for _, p := range predicates {
			if !p(item) {
				return false
			}
		}
		return true
	}, nil
}

// itemInterval returns the item's start and end, falling back to the single
// datetime property.
func itemInterval(item *stac.Item) (string, string) {
	start, end := item.StartDatetime(), item.EndDatetime()
	if dt, ok := item.Properties["datetime"].(string); ok && dt != "" {
		if start == "" {
			start = dt
		}
		if end == "" {
			end = dt
		}
	}
	return start, end
}

// queryableTypes is the JSON schema of the item properties written by the
// item builder.
var queryableTypes = map[string]map[string]any{
	"datetime":         {"description": "Datetime of the item, null for ranges", "type": "string", "format": "date-time"},
	"start_datetime":   {"description": "Start of the file's temporal coverage", "type": "string", "format": "date-time"},
	"end_datetime":     {"description": "End of the file's temporal coverage", "type": "string", "format": "date-time"},
	"id":               {"description": "Item identifier", "type": "string"},
	"collection":       {"description": "Collection identifier", "type": "string"},
	"ecv":              {"description": "Essential Climate Variable", "type": "string"},
	"processing_level": {"description": "Processing level (e.g., L2P, L3C, L4)", "type": "string"},
	"product_version":  {"description": "Product version", "type": "string"},
	"version":          {"description": "Version found in the file metadata", "type": "string"},
	"file_type":        {"description": "File format", "type": "string"},
	"platforms":        {"description": "Platform identifiers", "type": "array", "items": map[string]any{"type": "string"}},
	"aggregation":      {"description": "Whether the item describes a whole-dataset aggregation", "type": "boolean"},
}

// Queryables returns the properties the items filter understands.
// GET /queryables
// GET /collections/{collectionId}/queryables
func (h *Handlers) Queryables(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")

	title := "Queryables for CCI STAC preview"
	id := h.cfg.BaseURL + "/queryables"

	if collectionID != "" {
		if _, ok := h.store.Collection(collectionID); !ok {
			WriteNotFound(w, "collection not found")
			return
		}
		title = "Queryables for " + collectionID
		id = stac.CollectionHref(h.cfg.BaseURL, collectionID) + "/queryables"
	}

	properties := make(map[string]any, len(queryableTypes))
	for name, schema := range queryableTypes {
		properties[name] = schema
	}

	if collectionID != "" {
		for name, values := range observedValues(h.store.Items(collectionID)) {
			schema := make(map[string]any, len(queryableTypes[name])+1)
			for k, v := range queryableTypes[name] {
				schema[k] = v
			}
			schema["enum"] = values
			properties[name] = schema
		}
	}

	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"$schema":              "https://json-schema.org/draft/2019-09/schema",
		"$id":                  id,
		"type":                 "object",
		"title":                title,
		"properties":           properties,
		"additionalProperties": true,
	}); err != nil {
		h.logger.Error("failed to encode queryables", slog.String("error", err.Error()))
	}
}

// enumProperties are the string facets listed as enums for a collection.
var enumProperties = []string{"ecv", "processing_level", "product_version", "file_type"}

// observedValues collects the distinct values of each enum property in
// first-seen order.
func observedValues(items []*stac.Item) map[string][]string {
	out := make(map[string][]string)
	for _, name := range enumProperties {
		seen := make(map[string]bool)
		for _, item := range items {
			v, ok := item.Properties[name].(string)
			if !ok || v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out[name] = append(out[name], v)
		}
	}
	return out
}
