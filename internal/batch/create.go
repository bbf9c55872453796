// Package batch runs the bulk item commands: building STAC Items for the
// files of archive directories and posting built items to the catalogue.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/extract"
	"github.com/robert-malhotra/cci-stac-tools/internal/search"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
	"github.com/robert-malhotra/cci-stac-tools/internal/translate"
)

// NoDatasetFailureFile names the failure list of a run whose files carry no
// dataset id.
const NoDatasetFailureFile = "failed_files-no_datasetID.txt"

// FileSource finds archive files in the search index.
type FileSource interface {
	FilesUnder(ctx context.Context, dir string, fn func(*search.FileRecord) error) error
	FileByPath(ctx context.Context, path string) (*search.FileRecord, error)
}

// Extractor turns a file record into canonical metadata.
type Extractor interface {
	Extract(ctx context.Context, rec *search.FileRecord, opts extract.RasterOptions) (*extract.Info, error)
}

// Licenses resolves the licence document of an ECV.
type Licenses interface {
	Resolve(ctx context.Context, ecv string) string
}

// CreateOptions control a create run.
type CreateOptions struct {
	// OutputDir receives {collection}/stac_{id}.json and the failure lists.
	OutputDir string
	// DRS overrides the collection of every item unless a batch entry
	// names its own.
	DRS string
	// Splitter assigns OpenEO asset labels unless a batch entry names its
	// own.
	Splitter *config.Splitter
	// Exclusion skips files whose name contains it.
	Exclusion string
	Raster    extract.RasterOptions
	OpenEO    bool
	// Halt stops at the first failure.
	Halt bool
}

// Stats counts the files of one batch entry.
type Stats struct {
	Target      string
	Succeeded   int
	Failed      int
	Incomplete  int
	Excluded    int
	Missing     int
	FailureFile string
}

// Creator builds items for archive files.
type Creator struct {
	files     FileSource
	extractor Extractor
	builder   *translate.Builder
	licenses  Licenses
	fs        afero.Fs
	metrics   *Metrics
	logger    *slog.Logger
}

// NewCreator creates a Creator writing through fs.
func NewCreator(files FileSource, extractor Extractor, builder *translate.Builder, licenses Licenses, fs afero.Fs) *Creator {
	return &Creator{
		files:     files,
		extractor: extractor,
		builder:   builder,
		licenses:  licenses,
		fs:        fs,
		logger:    slog.Default(),
	}
}

// WithLogger sets a custom logger for the creator.
func (c *Creator) WithLogger(logger *slog.Logger) *Creator {
	c.logger = logger
	return c
}

// WithMetrics counts outcomes into m.
func (c *Creator) WithMetrics(m *Metrics) *Creator {
	c.metrics = m
	return c
}

// Run processes target. A target naming an existing local file is a batch
// configuration with one directory[,drs[,splitter]] entry per line; any
// other target is a single entry.
func (c *Creator) Run(ctx context.Context, target string, opts CreateOptions) ([]Stats, error) {
	entries := []config.BatchEntry{{Directory: target}}

	if c.isFile(target) {
		f, err := c.fs.Open(target)
		if err != nil {
			return nil, fmt.Errorf("failed to open batch configuration: %w", err)
		}
		entries, err = config.ParseBatch(f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	var all []Stats
	for _, entry := range entries {
		entryOpts := opts
		if entry.DRS != "" {
			entryOpts.DRS = entry.DRS
		}
		if entry.Splitter != "" {
			s, err := config.ResolveSplitter(c.fs, entry.Splitter)
			if err != nil {
				return all, err
			}
			entryOpts.Splitter = s
		}

		stats, err := c.runEntry(ctx, entry.Directory, entryOpts)
		all = append(all, stats)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// run holds the state of one batch entry.
type run struct {
	stats     Stats
	failures  []string
	datasetID string
}

func (r *run) fail(file, reason string) {
	r.failures = append(r.failures, file+":"+reason)
}

func (c *Creator) runEntry(ctx context.Context, target string, opts CreateOptions) (Stats, error) {
	r := &run{stats: Stats{Target: target}}
	c.logger.InfoContext(ctx, "creating items",
		slog.String("target", target),
		slog.String("output", opts.OutputDir),
		slog.String("drs", opts.DRS),
	)

	var err error
	if c.isFile(target) {
		err = c.runFiles(ctx, target, opts, r)
	} else {
		hits := 0
		err = c.files.FilesUnder(ctx, target, func(rec *search.FileRecord) error {
			hits++
			return c.process(ctx, rec, opts, r)
		})
		if err == nil && hits == 0 {
			c.logger.WarnContext(ctx, "no index records under directory", slog.String("directory", target))
		}
	}

	if werr := c.writeFailures(opts.OutputDir, r); werr != nil && err == nil {
		err = werr
	}

	c.logger.InfoContext(ctx, "items created",
		slog.String("target", target),
		slog.Int("succeeded", r.stats.Succeeded),
		slog.Int("failed", r.stats.Failed),
		slog.Int("incomplete", r.stats.Incomplete),
		slog.Int("excluded", r.stats.Excluded),
	)
	return r.stats, err
}

// runFiles processes a single archive file, or every path listed in a
// .txt file.
func (c *Creator) runFiles(ctx context.Context, target string, opts CreateOptions, r *run) error {
	paths := []string{target}
	if strings.HasSuffix(target, ".txt") {
		data, err := afero.ReadFile(c.fs, target)
		if err != nil {
			return fmt.Errorf("failed to read file list: %w", err)
		}
		paths = paths[:0]
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if p := strings.TrimSpace(scanner.Text()); p != "" {
				paths = append(paths, p)
			}
		}
	}

	for _, p := range paths {
		rec, err := c.files.FileByPath(ctx, p)
		if errors.Is(err, search.ErrNotFound) {
			r.stats.Missing++
			c.metrics.Item(OutcomeMissing)
			c.logger.WarnContext(ctx, "file not found in index", slog.String("file", p))
			continue
		}
		if err != nil {
			return err
		}
		if err := c.process(ctx, rec, opts, r); err != nil {
			return err
		}
	}
	return nil
}

// process builds and writes the item of one record. Failures are recorded;
// only with Halt do they end the run.
func (c *Creator) process(ctx context.Context, rec *search.FileRecord, opts CreateOptions, r *run) error {
	file := rec.Path()
	if id := rec.DatasetID(); id != "" {
		r.datasetID = id
	}

	if opts.Exclusion != "" && strings.Contains(rec.Info.Name, opts.Exclusion) {
		r.stats.Excluded++
		c.metrics.Item(OutcomeExcluded)
		c.logger.DebugContext(ctx, "file excluded", slog.String("file", file), slog.String("exclusion", opts.Exclusion))
		return nil
	}

	item, incomplete, err := c.build(ctx, rec, opts)
	if err == nil {
		err = c.writeItem(opts.OutputDir, item, opts.OpenEO)
	}
	if err != nil {
		r.stats.Failed++
		r.fail(file, "Failed:"+err.Error())
		c.metrics.Item(OutcomeFailed)
		c.logger.ErrorContext(ctx, "failed to create item", slog.String("file", file), slog.String("error", err.Error()))
		if opts.Halt {
			return fmt.Errorf("%w: %s: %w", ErrHalted, file, err)
		}
		return nil
	}

	r.stats.Succeeded++
	c.metrics.Item(OutcomeCreated)
	if incomplete {
		r.stats.Incomplete++
		r.fail(file, "incomplete")
		c.metrics.Item(OutcomeIncomplete)
	}
	return nil
}

func (c *Creator) build(ctx context.Context, rec *search.FileRecord, opts CreateOptions) (*stac.Item, bool, error) {
	rasterOpts := opts.Raster
	rasterOpts.OpenEO = opts.OpenEO

	info, err := c.extractor.Extract(ctx, rec, rasterOpts)
	if err != nil {
		return nil, false, err
	}

	ic := translate.ContextFromRecord(rec)
	ic.DRSOverride = opts.DRS
	ic.OpenEO = opts.OpenEO
	ic.Splitter = opts.Splitter
	if c.licenses != nil && ic.ECV != "" {
		ic.LicenseURL = c.licenses.Resolve(ctx, ic.ECV)
	}

	item, err := c.builder.Build(info, ic)
	if err != nil {
		return nil, false, err
	}
	return item, info.Incomplete, nil
}

// ItemPath returns where the item of a collection is written.
func ItemPath(outputDir, collection, id string) string {
	return filepath.Join(outputDir, collection, "stac_"+id+".json")
}

// writeItem writes the item as indented JSON. OpenEO items sharing an id are
// merged into the file already written.
func (c *Creator) writeItem(outputDir string, item *stac.Item, openeo bool) error {
	dir := filepath.Join(outputDir, item.Collection)
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	p := ItemPath(outputDir, item.Collection, item.ID)

	if openeo {
		existing, err := readItem(c.fs, p)
		switch {
		case err == nil:
			item = translate.CombineRecords(existing, item)
		case !errors.Is(err, os.ErrNotExist):
			return err
		}
	}

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", item.ID, err)
	}
	if err := afero.WriteFile(c.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write item %s: %w", item.ID, err)
	}
	return nil
}

func readItem(fs afero.Fs, p string) (*stac.Item, error) {
	data, err := afero.ReadFile(fs, p)
	if err != nil {
		return nil, err
	}
	var item stac.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path.Base(p), err)
	}
	return &item, nil
}

func (c *Creator) writeFailures(outputDir string, r *run) error {
	if len(r.failures) == 0 {
		return nil
	}
	name := NoDatasetFailureFile
	if r.datasetID != "" {
		name = "failed_files_" + r.datasetID + ".txt"
	}
	p := filepath.Join(outputDir, name)
	if err := c.fs.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", outputDir, err)
	}
	if err := afero.WriteFile(c.fs, p, []byte(strings.Join(r.failures, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write failure list: %w", err)
	}
	r.stats.FailureFile = p
	c.logger.Warn("failed or incomplete files listed", slog.String("path", p), slog.Int("count", len(r.failures)))
	return nil
}

func (c *Creator) isFile(p string) bool {
	info, err := c.fs.Stat(p)
	return err == nil && !info.IsDir()
}
