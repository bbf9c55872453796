// Package opensearch reads the CEDA OpenSearch description and request
// endpoints.
package opensearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
)

// Default feature dates used when no feature of a DRS carries a date.
const (
	DefaultStart = "1970-01-01T00:00:00Z"
	DefaultEnd   = "2025-09-17T00:00:00Z"
)

const featurePageSize = 20

// Client performs GETs against the OpenSearch service. Requests are retried
// with exponential backoff, but only on HTTP 500 or transport failures.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	attempts        int
	multiplier      float64
	initialInterval time.Duration
	logger          *slog.Logger
}

// NewClient creates an OpenSearch client. A nil httpClient gets one with the
// configured timeout.
func NewClient(cfg config.OpenSearchConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	attempts := cfg.Retries
	if attempts < 1 {
		attempts = 1
	}
	multiplier := cfg.Backoff
	if multiplier < 1 {
		multiplier = 1
	}
	return &Client{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:      httpClient,
		attempts:        attempts,
		multiplier:      multiplier,
		initialInterval: time.Second,
		logger:          slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// DescriptionURL returns the description document location for a moles
// uuid, narrowed to a DRS when drs is set.
func (c *Client) DescriptionURL(uuid, drs string) string {
	u := c.baseURL + "/opensearch/description.xml?parentIdentifier=" + url.QueryEscape(uuid)
	if drs != "" {
		u += "&drsId=" + url.QueryEscape(drs)
	}
	return u
}

func (c *Client) requestURL(uuid, drs string) string {
	q := url.Values{}
	q.Set("parentIdentifier", uuid)
	if drs != "" {
		q.Set("drsId", drs)
	}
	q.Set("httpAccept", "application/geo+json")
	q.Set("maximumRecords", fmt.Sprint(featurePageSize))
	q.Set("startPage", "1")
	return c.baseURL + "/opensearch/request?" + q.Encode()
}

// Get fetches u and returns the body of a 200 response.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.Multiplier = c.multiplier
	b.MaxElapsedTime = 0

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		c.logger.DebugContext(ctx, "opensearch request",
			slog.String("url", u),
			slog.Int("attempt", attempt),
		)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("opensearch request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusInternalServerError {
			return &StatusError{URL: u, Status: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&StatusError{URL: u, Status: resp.StatusCode})
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "retrying opensearch request",
			slog.String("url", u),
			slog.String("error", err.Error()),
			slog.Duration("wait", wait),
		)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.attempts-1)), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		c.logger.ErrorContext(ctx, "opensearch request failed",
			slog.String("url", u),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return body, nil
}

// Description fetches and parses the description document of a moles uuid
// (and optionally one of its DRS).
func (c *Client) Description(ctx context.Context, uuid, drs string) (*Description, error) {
	body, err := c.Get(ctx, c.DescriptionURL(uuid, drs))
	if err != nil {
		return nil, err
	}
	return ParseDescription(body)
}

type featureCollection struct {
	TotalResults int `json:"totalResults"`
	Features     []struct {
		Properties struct {
			Date string `json:"date"`
		} `json:"properties"`
	} `json:"features"`
}

// FeatureDates returns every date bound of the first page of features of a
// DRS. A feature date is a "start/end" pair.
func (c *Client) FeatureDates(ctx context.Context, uuid, drs string) ([]string, error) {
	body, err := c.Get(ctx, c.requestURL(uuid, drs))
	if err != nil {
		return nil, err
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode features for %s/%s: %w", uuid, drs, err)
	}

	var dates []string
	for _, f := range fc.Features {
		if f.Properties.Date == "" {
			continue
		}
		dates = append(dates, strings.Split(f.Properties.Date, "/")...)
	}
	return dates, nil
}

// DatesInterval reduces feature dates to a [start, end] pair. Dates are
// sorted, any "+hh:mm" offset is dropped and a trailing Z is ensured. With
// no dates the default interval is returned.
func DatesInterval(dates []string) (string, string) {
	if len(dates) == 0 {
		return DefaultStart, DefaultEnd
	}

	sorted := append([]string(nil), dates...)
	sort.Strings(sorted)

	return normalizeDate(sorted[0]), normalizeDate(sorted[len(sorted)-1])
}

func normalizeDate(d string) string {
	d, _, _ = strings.Cut(d, "+")
	if !strings.HasSuffix(d, "Z") {
		d += "Z"
	}
	return d
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}
