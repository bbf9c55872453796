package main

import (
	"net/http"

	"github.com/robert-malhotra/cci-stac-tools/internal/batch"
	"github.com/robert-malhotra/cci-stac-tools/internal/catalogue"
	"github.com/robert-malhotra/cci-stac-tools/internal/collection"
	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/extract"
	"github.com/robert-malhotra/cci-stac-tools/internal/opensearch"
	"github.com/robert-malhotra/cci-stac-tools/internal/search"
	"github.com/robert-malhotra/cci-stac-tools/internal/translate"
)

func (a *app) catalogue() (*catalogue.Client, error) {
	id, secret, err := a.cfg.Auth.Credentials(a.fs)
	if err != nil {
		return nil, configError(err)
	}
	creds := catalogue.Credentials{
		ClientID:     id,
		ClientSecret: secret,
		TokenURL:     a.cfg.Auth.TokenURL,
	}
	return catalogue.NewClient(a.cfg.Catalogue, creds).WithLogger(a.logger), nil
}

func (a *app) search() (*search.Client, error) {
	client, err := search.NewClient(a.cfg.Search)
	if err != nil {
		return nil, configError(err)
	}
	return client.WithLogger(a.logger), nil
}

func (a *app) opensearch() *opensearch.Client {
	return opensearch.NewClient(a.cfg.OpenSearch, nil).WithLogger(a.logger)
}

func (a *app) builder() *translate.Builder {
	return translate.NewBuilder(a.cfg, a.logger)
}

// extractor reads rasters and CFA aggregations through gdalinfo and
// kerchunk or Zarr stores through their consolidated metadata.
func (a *app) extractor() *extract.Extractor {
	gdal := extract.NewGDALReader().WithLogger(a.logger)
	zarr := extract.NewZarrDatasetReader(&http.Client{Timeout: a.cfg.OpenSearch.Timeout}, a.fs).WithLogger(a.logger)

	readers := extract.EngineReaders{
		extract.EngineKerchunk: zarr,
		extract.EngineZarr:     zarr,
		extract.EngineCFA:      gdal,
	}
	return extract.NewExtractor(gdal, readers).WithLogger(a.logger)
}

func (a *app) licenses() *extract.LicenseResolver {
	return extract.NewLicenseResolver(a.cfg.Licence.BaseURL, &http.Client{Timeout: a.cfg.OpenSearch.Timeout}).WithLogger(a.logger)
}

// reconciler wires the catalogue, the search index, OpenSearch and the
// CEDA catalogue into a collection reconciler. Dryrun runs stage documents
// under stageDir.
func (a *app) reconciler(opts collection.Options, stageDir string) (*collection.Reconciler, error) {
	cat, err := a.catalogue()
	if err != nil {
		return nil, err
	}
	index, err := a.search()
	if err != nil {
		return nil, err
	}
	projects, err := config.LoadProjects(a.cfg.Files.ProjectsFile)
	if err != nil {
		return nil, configError(err)
	}
	abstracts := collection.NewAbstractClient(a.cfg.CEDA.APIURL, &http.Client{Timeout: a.cfg.OpenSearch.Timeout}).WithLogger(a.logger)

	opts.CEDACatalogueURL = a.cfg.CEDA.CatalogueURL
	opts.TemplateFile = a.cfg.Files.TemplateFile

	r := collection.NewReconciler(cat, index, a.opensearch(), abstracts, projects, opts).
		WithLogger(a.logger).
		WithFs(a.fs)
	if opts.DryRun {
		r = r.WithStager(collection.NewStager(a.fs, stageDir, a.logger))
	}
	return r, nil
}

// writeMetrics writes the run metrics when a textfile is configured. A
// failure is logged and does not fail the run.
func (a *app) writeMetrics(m *batch.Metrics) {
	path := a.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		a.logger.Warn("failed to write run metrics", "path", path, "error", err)
		return
	}
	a.logger.Debug("run metrics written", "path", path, "run_id", m.RunID)
}
