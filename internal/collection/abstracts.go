package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// AbstractClient reads moles record abstracts from the CEDA catalogue API.
type AbstractClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAbstractClient creates a client for the catalogue at baseURL.
func NewAbstractClient(baseURL string, httpClient *http.Client) *AbstractClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AbstractClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *AbstractClient) WithLogger(logger *slog.Logger) *AbstractClient {
	c.logger = logger
	return c
}

type observations struct {
	Results []struct {
		Abstract string `json:"abstract"`
	} `json:"results"`
}

// Abstract returns the abstract of the ESACCI observation with the uuid.
func (c *AbstractClient) Abstract(ctx context.Context, uuid string) (string, error) {
	q := url.Values{}
	q.Set("discoveryKeywords__name", "ESACCI")
	q.Set("uuid", uuid)
	u := c.baseURL + "/api/v2/observations.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "catalogue abstract request", slog.String("url", u))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("abstract request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("catalogue API returned status %d: %s", resp.StatusCode, string(body))
	}

	var obs observations
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return "", fmt.Errorf("failed to decode observations: %w", err)
	}
	if len(obs.Results) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoAbstract, uuid)
	}
	return obs.Results[0].Abstract, nil
}
