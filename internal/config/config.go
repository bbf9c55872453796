// Package config provides configuration management for the CCI STAC tooling.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/afero"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Catalogue  CatalogueConfig  `envPrefix:"CATALOGUE_"`
	Auth       AuthConfig       `envPrefix:"AUTH_"`
	Search     SearchConfig     `envPrefix:"SEARCH_"`
	OpenSearch OpenSearchConfig `envPrefix:"OPENSEARCH_"`
	CEDA       CEDAConfig       `envPrefix:"CEDA_"`
	Licence    LicenceConfig    `envPrefix:"LICENCE_"`
	Files      FilesConfig      `envPrefix:"CCI_"`
	Preview    PreviewConfig    `envPrefix:"PREVIEW_"`
	Metrics    MetricsConfig    `envPrefix:"METRICS_"`
	Sweep      SweepConfig      `envPrefix:"SWEEP_"`
	Logging    LoggingConfig    `envPrefix:"LOG_"`
}

// CatalogueConfig contains STAC catalogue API client configuration.
type CatalogueConfig struct {
	BaseURL string        `env:"BASE_URL"` // required
	Timeout time.Duration `env:"TIMEOUT" envDefault:"180s"`
	// WriteRate and WriteBurst throttle POST/PUT/DELETE requests.
	WriteRate  float64 `env:"WRITE_RATE" envDefault:"10"`
	WriteBurst int     `env:"WRITE_BURST" envDefault:"5"`
	Insecure   bool    `env:"INSECURE" envDefault:"false"`
}

// AuthConfig contains OAuth2 client-credential settings for catalogue writes.
type AuthConfig struct {
	TokenURL        string `env:"TOKEN_URL" envDefault:"https://accounts.ceda.ac.uk/realms/ceda/protocol/openid-connect/token"`
	ClientID        string `env:"CLIENT_ID" envDefault:""`
	ClientSecret    string `env:"CLIENT_SECRET" envDefault:""`
	CredentialsFile string `env:"CREDENTIALS_FILE" envDefault:""`
}

// SearchConfig contains Elasticsearch connection settings.
type SearchConfig struct {
	Host   string `env:"HOST" envDefault:"https://elasticsearch.ceda.ac.uk"`
	APIKey string `env:"API_KEY" envDefault:""`
	// APIKeyHeader sends the key in a custom header instead of the
	// Authorization: ApiKey scheme.
	APIKeyHeader string        `env:"API_KEY_HEADER" envDefault:""`
	PageSize     int           `env:"PAGE_SIZE" envDefault:"10"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"180s"`
}

// OpenSearchConfig contains settings for the CEDA OpenSearch endpoints.
type OpenSearchConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://archive.opensearch.ceda.ac.uk"`
	Retries int           `env:"RETRIES" envDefault:"3"`
	Backoff float64       `env:"BACKOFF" envDefault:"4"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"180s"`
}

// CEDAConfig contains the CEDA service locations embedded in documents.
type CEDAConfig struct {
	CatalogueURL string `env:"CATALOGUE_URL" envDefault:"https://catalogue.ceda.ac.uk"`
	// APIURL serves the observation records abstracts are read from.
	APIURL string `env:"API_URL" envDefault:"https://api.catalogue.ceda.ac.uk"`
	DAPURL string `env:"DAP_URL" envDefault:"https://dap.ceda.ac.uk"`
}

// LicenceConfig locates the ECV licence documents.
type LicenceConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"https://artefacts.ceda.ac.uk/licences/specific_licences"`
}

// FilesConfig locates reference documents on disk.
type FilesConfig struct {
	ProjectsFile string `env:"PROJECTS_FILE" envDefault:"config/cci_ecv_config.json"`
	TemplateFile string `env:"TEMPLATE_FILE" envDefault:"stac_collections/cci.json"`
	StageDir     string `env:"STAGE_DIR" envDefault:"stac_collections/gen"`
}

// PreviewConfig contains configuration of the staged-document preview server.
type PreviewConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Title           string        `env:"TITLE" envDefault:"CCI STAC preview"`
	Description     string        `env:"DESCRIPTION" envDefault:"Staged ESA CCI collections and items"`
	DefaultLimit    int           `env:"DEFAULT_LIMIT" envDefault:"10"`
	MaxLimit        int           `env:"MAX_LIMIT" envDefault:"250"`
}

// MetricsConfig contains run metrics settings.
type MetricsConfig struct {
	// Textfile is a Prometheus textfile-collector path; empty disables it.
	Textfile string `env:"TEXTFILE" envDefault:""`
}

// SweepConfig lists the services checked by the service sweep.
type SweepConfig struct {
	// Services are "name=url" pairs, reported in order.
	Services     []string      `env:"SERVICES" envSeparator:";" envDefault:"Opensearch (Live)=https://archive.opensearch.ceda.ac.uk/;Opensearch (Test)=https://opensearch-test.ceda.ac.uk/;Vocab Server=https://vocab.ceda.ac.uk;Data Bridge=https://eo-data-bridge.ceda.ac.uk;Postgres DB=https://eo-data-bridge.ceda.ac.uk/dataset/"`
	SlackWebhook string        `env:"SLACK_WEBHOOK" envDefault:""`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	return load(true)
}

// LoadLocal parses configuration for commands that only touch the local
// filesystem or third-party services. The catalogue base URL may be unset.
func LoadLocal() (*Config, error) {
	return load(false)
}

func load(requireCatalogue bool) (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: requireCatalogue,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.validate(requireCatalogue); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(requireCatalogue bool) error {
	if c.Catalogue.BaseURL == "" {
		if requireCatalogue {
			return fmt.Errorf("catalogue base URL is required")
		}
	} else if _, err := url.ParseRequestURI(c.Catalogue.BaseURL); err != nil {
		return fmt.Errorf("catalogue base URL is invalid: %w", err)
	}
	if c.Catalogue.Timeout <= 0 {
		return fmt.Errorf("catalogue timeout must be positive, got %s", c.Catalogue.Timeout)
	}
	if c.Catalogue.WriteRate <= 0 {
		return fmt.Errorf("catalogue write rate must be positive, got %g", c.Catalogue.WriteRate)
	}
	if c.Catalogue.WriteBurst < 1 {
		return fmt.Errorf("catalogue write burst must be at least 1, got %d", c.Catalogue.WriteBurst)
	}

	if (c.Auth.ClientID == "") != (c.Auth.ClientSecret == "") {
		return fmt.Errorf("auth client id and secret must be set together")
	}

	if c.Search.PageSize < 1 {
		return fmt.Errorf("search page size must be at least 1, got %d", c.Search.PageSize)
	}

	if c.OpenSearch.Retries < 1 {
		return fmt.Errorf("opensearch retries must be at least 1, got %d", c.OpenSearch.Retries)
	}
	if c.OpenSearch.Backoff < 1 {
		return fmt.Errorf("opensearch backoff multiplier must be >= 1, got %g", c.OpenSearch.Backoff)
	}

	if c.Preview.Port < 1 || c.Preview.Port > 65535 {
		return fmt.Errorf("preview port must be between 1 and 65535, got %d", c.Preview.Port)
	}
	if c.Preview.DefaultLimit < 1 {
		return fmt.Errorf("default limit must be at least 1, got %d", c.Preview.DefaultLimit)
	}
	if c.Preview.MaxLimit < c.Preview.DefaultLimit {
		return fmt.Errorf("max limit (%d) must be >= default limit (%d)", c.Preview.MaxLimit, c.Preview.DefaultLimit)
	}

	for _, svc := range c.Sweep.Services {
		if _, _, ok := strings.Cut(svc, "="); !ok {
			return fmt.Errorf("sweep service %q must be name=url", svc)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json":   true,
		"text":   true,
		"pretty": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text, pretty", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (p *PreviewConfig) Address() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// Credentials returns the OAuth2 client id and secret, reading the
// credentials file when one is configured. Empty values mean anonymous
// access.
func (a *AuthConfig) Credentials(fs afero.Fs) (id, secret string, err error) {
	if a.CredentialsFile == "" {
		return a.ClientID, a.ClientSecret, nil
	}

	data, err := afero.ReadFile(fs, a.CredentialsFile)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	var creds struct {
		ID     string `json:"id"`
		Secret string `json:"secret"`
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if creds.ID == "" || creds.Secret == "" {
		return "", "", fmt.Errorf("credentials file %s must contain id and secret", a.CredentialsFile)
	}
	return creds.ID, creds.Secret, nil
}
