// Package search queries the archive Elasticsearch cluster: the
// opensearch-files and opensearch-collections indices and the items_{id}
// mirrors of posted STAC Items.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
)

const (
	// DefaultPageSize is the page size used for search_after scans.
	DefaultPageSize = 10

	// TotalHitsCap is the hit count Elasticsearch stops counting at.
	TotalHitsCap = 10000

	collectionsPageSize = 1000
)

// Client handles communication with the archive search cluster.
type Client struct {
	es       *elasticsearch.Client
	pageSize int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewClient creates a search client. An API key is sent in the configured
// header when one is given (the CEDA cluster expects x-api-key), and as an
// Elasticsearch ApiKey authorization otherwise.
func NewClient(cfg config.SearchConfig) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{strings.TrimSuffix(cfg.Host, "/")},
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if cfg.APIKey != "" {
		if cfg.APIKeyHeader != "" {
			esCfg.Header = http.Header{}
			esCfg.Header.Set(cfg.APIKeyHeader, cfg.APIKey)
		} else {
			esCfg.APIKey = cfg.APIKey
		}
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Client{
		es:       es,
		pageSize: pageSize,
		timeout:  cfg.Timeout,
		logger:   slog.Default(),
	}, nil
}

// WithLogger sets a custom logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// Search runs one query body against index.
func (c *Client) Search(ctx context.Context, index string, body map[string]any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.DebugContext(ctx, "executing search",
		slog.String("index", index),
		slog.String("query", string(payload)),
	)

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if res.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: search on %s returned status %d: %s", ErrNotFound, index, res.StatusCode, string(body))
		}
		return nil, fmt.Errorf("search on %s returned status %d: %s", index, res.StatusCode, string(body))
	}

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	c.logger.DebugContext(ctx, "search completed",
		slog.String("index", index),
		slog.Int("total", out.Hits.Total.Value),
		slog.Int("returned", len(out.Hits.Hits)),
	)

	return &out, nil
}

// Scan pages through every hit of body with a search_after cursor. body
// must carry a sort clause; its size is overridden by the page size.
func (c *Client) Scan(ctx context.Context, index string, body map[string]any, fn func(Hit) error) error {
	body["size"] = c.pageSize
	delete(body, "search_after")

	for {
		resp, err := c.Search(ctx, index, body)
		if err != nil {
			return err
		}

		hits := resp.Hits.Hits
		for _, h := range hits {
			if err := fn(h); err != nil {
				return err
			}
		}

		if len(hits) < c.pageSize {
			return nil
		}

		last := hits[len(hits)-1].Sort
		if len(last) == 0 {
			return fmt.Errorf("search on %s returned hits without sort values", index)
		}
		body["search_after"] = last
	}
}

// FilesUnder calls fn for every indexed file whose directory starts with
// dir, ordered by directory then name.
func (c *Client) FilesUnder(ctx context.Context, dir string, fn func(*FileRecord) error) error {
	body := filesQuery("info.directory", dir)
	body["sort"] = []any{
		map[string]any{"info.directory": map[string]any{"order": "asc"}},
		map[string]any{"info.name": map[string]any{"order": "asc"}},
	}

	return c.Scan(ctx, FilesIndex, body, func(h Hit) error {
		var rec FileRecord
		if err := json.Unmarshal(h.Source, &rec); err != nil {
			return fmt.Errorf("failed to decode file record %s: %w", h.ID, err)
		}
		return fn(&rec)
	})
}

// FileByPath looks up one archived file. The index is queried by file name
// prefix; a hit in the same directory is preferred over the first hit.
func (c *Client) FileByPath(ctx context.Context, filePath string) (*FileRecord, error) {
	name := path.Base(filePath)
	body := filesQuery("info.name", name)
	body["sort"] = []any{
		map[string]any{"info.name": map[string]any{"order": "asc"}},
		map[string]any{"info.directory": map[string]any{"order": "asc"}},
	}
	body["size"] = c.pageSize

	resp, err := c.Search(ctx, FilesIndex, body)
	if err != nil {
		return nil, err
	}

	var first *FileRecord
	for _, h := range resp.Hits.Hits {
		var rec FileRecord
		if err := json.Unmarshal(h.Source, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode file record %s: %w", h.ID, err)
		}
		if rec.Path() == filePath {
			return &rec, nil
		}
		if first == nil {
			first = &rec
		}
	}
	if first == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
	}
	return first, nil
}

func filesQuery(prefixField, value string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"prefix": map[string]any{prefixField: value}},
					map[string]any{"exists": map[string]any{"field": "projects.opensearch"}},
				},
			},
		},
	}
}

// CollectionsForProject returns the moles records filed under a project.
func (c *Client) CollectionsForProject(ctx context.Context, project string) ([]CollectionRecord, error) {
	body := map[string]any{
		"query": map[string]any{
			"match": map[string]any{"project": strings.ToLower(project)},
		},
		"size": collectionsPageSize,
	}

	resp, err := c.Search(ctx, CollectionsIndex, body)
	if err != nil {
		return nil, err
	}

	out := make([]CollectionRecord, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		var rec CollectionRecord
		if err := json.Unmarshal(h.Source, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode collection record %s: %w", h.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// CollectionByID returns the moles record with the given uuid.
func (c *Client) CollectionByID(ctx context.Context, uuid string) (*CollectionRecord, error) {
	body := map[string]any{
		"query": map[string]any{
			"match": map[string]any{"collection_id": strings.ToLower(uuid)},
		},
		"size": 1,
	}

	resp, err := c.Search(ctx, CollectionsIndex, body)
	if err != nil {
		return nil, err
	}
	if len(resp.Hits.Hits) == 0 {
		return nil, fmt.Errorf("%w: collection %s", ErrNotFound, uuid)
	}

	var rec CollectionRecord
	if err := json.Unmarshal(resp.Hits.Hits[0].Source, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode collection record: %w", err)
	}
	return &rec, nil
}

// ItemsIn calls fn for every item mirrored for a collection, ordered by id.
func (c *Client) ItemsIn(ctx context.Context, collection string, fn func(*ItemRecord) error) error {
	body := map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"sort": []any{
			map[string]any{"id": map[string]any{"order": "asc"}},
		},
	}

	return c.Scan(ctx, ItemsIndex(collection), body, func(h Hit) error {
		var rec ItemRecord
		if err := json.Unmarshal(h.Source, &rec); err != nil {
			return fmt.Errorf("failed to decode item %s: %w", h.ID, err)
		}
		return fn(&rec)
	})
}

// ItemCount is the number of items in a collection. Capped is set when the
// count reached the cluster's tracking limit.
type ItemCount struct {
	Value  int
	Capped bool
}

// String renders the count, ">10000" when capped.
func (n ItemCount) String() string {
	if n.Capped {
		return fmt.Sprintf(">%d", n.Value)
	}
	return fmt.Sprintf("%d", n.Value)
}

// CountItems counts the items of a collection. Aggregation items are only
// counted when includeAggregations is set.
func (c *Client) CountItems(ctx context.Context, collection string, includeAggregations bool) (ItemCount, error) {
	query := map[string]any{
		"term": map[string]any{
			"properties.aggregation": map[string]any{"value": false},
		},
	}
	if includeAggregations {
		query = map[string]any{"match_all": map[string]any{}}
	}

	resp, err := c.Search(ctx, ItemsIndex(collection), map[string]any{
		"query": query,
		"size":  0,
	})
	if err != nil {
		return ItemCount{}, err
	}

	total := resp.Hits.Total
	return ItemCount{
		Value:  total.Value,
		Capped: total.Value >= TotalHitsCap || total.Relation == "gte",
	}, nil
}
