// Package translate builds STAC Items from extracted archive metadata.
package translate

import (
	"log/slog"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
)

// ESACatalogueURL is the ESA Open Data Portal catalogue root used for esa_url.
const ESACatalogueURL = "https://climate.esa.int/en/catalogue"

// Builder assembles STAC Items. It holds no per-item state, so one Builder
// serves a whole run.
type Builder struct {
	apiBase        string
	dapBase        string
	opensearchBase string
	esaBase        string
	logger         *slog.Logger
}

// NewBuilder creates a Builder from the run configuration.
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		apiBase:        cfg.Catalogue.BaseURL,
		dapBase:        cfg.CEDA.DAPURL,
		opensearchBase: cfg.OpenSearch.BaseURL,
		esaBase:        ESACatalogueURL,
		logger:         logger,
	}
}

// APIBase returns the catalogue base URL used in item links.
func (b *Builder) APIBase() string {
	return b.apiBase
}
