// Package catalogue provides a client for the STAC REST catalogue that the
// CCI collections and items are published to.
package catalogue

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// Action names the outcome of an upsert.
type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Skipped Action = "skipped"
)

// Credentials are OAuth2 client credentials for write requests. A zero
// value sends writes unauthenticated.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Client handles communication with the STAC catalogue API. Reads are
// anonymous; writes carry a client-credentials token and are throttled.
type Client struct {
	baseURL     string
	readClient  *http.Client
	writeClient *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a catalogue client.
func NewClient(cfg config.CatalogueConfig, creds Credentials) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	readClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	writeClient := readClient
	if creds.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, readClient)
		writeClient = cc.Client(ctx)
		writeClient.Timeout = cfg.Timeout
	}

	burst := cfg.WriteBurst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.WriteRate > 0 {
		limit = rate.Limit(cfg.WriteRate)
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		readClient:  readClient,
		writeClient: writeClient,
		limiter:     rate.NewLimiter(limit, burst),
		logger:      slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// BaseURL returns the catalogue root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CollectionURL returns the href of a collection.
func (c *Client) CollectionURL(id string) string {
	return stac.CollectionHref(c.baseURL, url.PathEscape(id))
}

func (c *Client) itemsURL(collection string) string {
	return c.CollectionURL(collection) + "/items"
}

func (c *Client) itemURL(collection, id string) string {
	return c.itemsURL(collection) + "/" + url.PathEscape(id)
}

// get fetches href and decodes a 2xx body into out. It reports false for a
// 404.
func (c *Client) get(ctx context.Context, href string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", stac.MediaJSON)

	c.logger.DebugContext(ctx, "catalogue request",
		slog.String("method", http.MethodGet),
		slog.String("url", href),
	)

	resp, err := c.readClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("catalogue request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if !success(resp.StatusCode) {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("catalogue GET %s returned status %d: %s", href, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", href, err)
	}
	return true, nil
}

// write sends a throttled, authenticated request. Any non-2xx status
// becomes a *WriteError.
func (c *Client) write(ctx context.Context, method, href string, doc any) error {
	var body io.Reader
	if doc != nil {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		body = bytes.NewReader(data)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("write throttle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, href, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if doc != nil {
		req.Header.Set("Content-Type", stac.MediaJSON)
	}

	c.logger.DebugContext(ctx, "catalogue request",
		slog.String("method", method),
		slog.String("url", href),
	)

	resp, err := c.writeClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalogue request failed: %w", err)
	}
	defer resp.Body.Close()

	if success(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	we := &WriteError{Method: method, URL: href, Status: resp.StatusCode, Body: string(respBody)}
	if resp.StatusCode != http.StatusConflict {
		c.logger.ErrorContext(ctx, "catalogue write failed",
			slog.String("method", method),
			slog.String("url", href),
			slog.Int("status", resp.StatusCode),
		)
	}
	return we
}

// GetCollection fetches a collection by id. A missing collection is
// reported as found=false, not as an error.
func (c *Client) GetCollection(ctx context.Context, id string) (*stac.Collection, bool, error) {
	var coll stac.Collection
	found, err := c.get(ctx, c.CollectionURL(id), &coll)
	if err != nil || !found {
		return nil, found, err
	}
	return &coll, true, nil
}

// GetCollectionByHref fetches a collection from a child link href.
func (c *Client) GetCollectionByHref(ctx context.Context, href string) (*stac.Collection, error) {
	var coll stac.Collection
	found, err := c.get(ctx, href, &coll)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, href)
	}
	return &coll, nil
}

// CreateCollection POSTs a new collection.
func (c *Client) CreateCollection(ctx context.Context, coll *stac.Collection) error {
	return c.write(ctx, http.MethodPost, c.baseURL+"/collections", coll)
}

// UpdateCollection PUTs an existing collection.
func (c *Client) UpdateCollection(ctx context.Context, coll *stac.Collection) error {
	return c.write(ctx, http.MethodPut, c.CollectionURL(coll.ID), coll)
}

// UpsertCollection POSTs a collection, falling back to PUT when the
// catalogue reports a conflict.
func (c *Client) UpsertCollection(ctx context.Context, coll *stac.Collection) (Action, error) {
	err := c.CreateCollection(ctx, coll)
	if err == nil {
		return Created, nil
	}
	if !IsConflict(err) {
		return "", err
	}
	if err := c.UpdateCollection(ctx, coll); err != nil {
		return "", err
	}
	return Updated, nil
}

// DeleteCollection removes a collection by id.
func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	return c.DeleteByHref(ctx, c.CollectionURL(id))
}

// DeleteByHref removes the document at href.
func (c *Client) DeleteByHref(ctx context.Context, href string) error {
	return c.write(ctx, http.MethodDelete, href, nil)
}

// UpsertItem POSTs an item to its collection, falling back to PUT on a
// conflict.
func (c *Client) UpsertItem(ctx context.Context, item *stac.Item) (Action, error) {
	err := c.write(ctx, http.MethodPost, c.itemsURL(item.Collection), item)
	if err == nil {
		return Created, nil
	}
	if !IsConflict(err) {
		return "", err
	}
	if err := c.write(ctx, http.MethodPut, c.itemURL(item.Collection, item.ID), item); err != nil {
		return "", err
	}
	return Updated, nil
}

// DeleteItem removes one item.
func (c *Client) DeleteItem(ctx context.Context, collection, id string) error {
	return c.write(ctx, http.MethodDelete, c.itemURL(collection, id), nil)
}

// ItemPage is one page of a collection's items.
type ItemPage struct {
	Items []*stac.Item
	// Next is the href of the following page, empty on the last page.
	Next string
}

// ItemsPage fetches a page of items. href is either a collection href, in
// which case its first items page is read, or a next link from a previous
// page. A missing collection yields an empty page.
func (c *Client) ItemsPage(ctx context.Context, href string) (*ItemPage, error) {
	if !strings.Contains(href, "/items") {
		href = strings.TrimSuffix(href, "/") + "/items"
	}

	var fc stac.ItemCollection
	found, err := c.get(ctx, href, &fc)
	if err != nil {
		return nil, err
	}
	page := &ItemPage{}
	if !found {
		return page, nil
	}

	page.Items = fc.Features
	for _, l := range fc.Links {
		if l != nil && l.Rel == "next" {
			page.Next = l.Href
		}
	}
	return page, nil
}

func success(status int) bool {
	return status/100 == 2
}
