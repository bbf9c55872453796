package extract

import (
	"context"
	"fmt"

	"github.com/robert-malhotra/cci-stac-tools/internal/search"
)

// Extract dispatches a file record on its extension. Index-only formats
// never fail; GeoTIFFs are opened from the archive path of the record.
func (e *Extractor) Extract(ctx context.Context, rec *search.FileRecord, opts RasterOptions) (*Info, error) {
	ext := rec.Ext()
	switch {
	case IsOpenSearchExt(ext):
		return FromOpenSearch(rec), nil
	case IsRasterExt(ext):
		return e.FromRaster(ctx, rec.Path(), opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}
