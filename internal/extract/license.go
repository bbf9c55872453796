package extract

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultLicenceBaseURL is where ESA CCI licence documents are published.
const DefaultLicenceBaseURL = "https://artefacts.ceda.ac.uk/licences/specific_licences"

var licenceSuffixes = []string{
	"_terms_and_conditions_v2.pdf",
	"_terms_and_conditions.pdf",
	".pdf",
}

// LicenseResolver finds the licence document of an ECV. Results are cached
// for the lifetime of the resolver.
type LicenseResolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	cache      map[string]string
}

// NewLicenseResolver creates a resolver probing baseURL.
func NewLicenseResolver(baseURL string, httpClient *http.Client) *LicenseResolver {
	if baseURL == "" {
		baseURL = DefaultLicenceBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LicenseResolver{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     slog.Default(),
		cache:      make(map[string]string),
	}
}

// WithLogger sets a custom logger for the resolver.
func (r *LicenseResolver) WithLogger(logger *slog.Logger) *LicenseResolver {
	r.logger = logger
	return r
}

// Resolve returns the first candidate URL answering 200. When none does the
// last candidate is returned anyway; the failure is only logged.
func (r *LicenseResolver) Resolve(ctx context.Context, ecv string) string {
	if url, ok := r.cache[ecv]; ok {
		return url
	}

	var url string
	found := false
	for _, suffix := range licenceSuffixes {
		url = r.baseURL + "/esacci_" + ecv + suffix
		if r.probe(ctx, url) {
			found = true
			break
		}
	}
	if !found {
		r.logger.Warn("no licence document found, using last candidate",
			slog.String("ecv", ecv),
			slog.String("url", url),
		)
	}

	r.cache[ecv] = url
	return url
}

func (r *LicenseResolver) probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug("licence probe failed", slog.String("url", url), slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
