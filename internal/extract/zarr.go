package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ZarrDatasetReader reads the consolidated metadata of Zarr stores and
// kerchunk reference sets. Endpoints are fetched over HTTP when they carry
// an http(s) scheme and from the filesystem otherwise. Chunks are never
// read, so the time coordinate is not decoded and callers fall back to the
// time_coverage attributes.
type ZarrDatasetReader struct {
	httpClient *http.Client
	fs         afero.Fs
	logger     *slog.Logger
}

// NewZarrDatasetReader creates a reader.
func NewZarrDatasetReader(httpClient *http.Client, fs afero.Fs) *ZarrDatasetReader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ZarrDatasetReader{
		httpClient: httpClient,
		fs:         fs,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger for the reader.
func (r *ZarrDatasetReader) WithLogger(logger *slog.Logger) *ZarrDatasetReader {
	r.logger = logger
	return r
}

// ReadDataset implements DatasetReader for EngineZarr and EngineKerchunk.
func (r *ZarrDatasetReader) ReadDataset(ctx context.Context, endpoint string, engine Engine) (*DatasetMetadata, error) {
	var entries map[string]json.RawMessage

	switch engine {
	case EngineZarr:
		data, err := r.load(ctx, strings.TrimSuffix(endpoint, "/")+"/.zmetadata")
		if err != nil {
			return nil, err
		}
		var consolidated struct {
			Metadata map[string]json.RawMessage `json:"metadata"`
		}
		if err := json.Unmarshal(data, &consolidated); err != nil {
			return nil, fmt.Errorf("failed to decode consolidated metadata: %w", err)
		}
		entries = consolidated.Metadata

	case EngineKerchunk:
		data, err := r.load(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		var refs struct {
			Refs map[string]json.RawMessage `json:"refs"`
		}
		if err := json.Unmarshal(data, &refs); err != nil {
			return nil, fmt.Errorf("failed to decode kerchunk references: %w", err)
		}
		entries = refs.Refs
		if entries == nil {
			// version 0 reference sets have no refs wrapper
			if err := json.Unmarshal(data, &entries); err != nil {
				return nil, fmt.Errorf("failed to decode kerchunk references: %w", err)
			}
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEngine, engine)
	}

	r.logger.Debug("read dataset metadata",
		slog.String("endpoint", endpoint),
		slog.String("engine", string(engine)),
		slog.Int("keys", len(entries)),
	)
	return decodeZarrEntries(entries)
}

func (r *ZarrDatasetReader) load(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := afero.ReadFile(r.fs, location)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", location, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", location, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", location, resp.StatusCode)
	}
	return body, nil
}

// decodeZarrEntry decodes a metadata entry that is either an inline JSON
// object or a JSON string holding one (kerchunk stores them as strings).
func decodeZarrEntry(raw json.RawMessage, v any) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return json.Unmarshal([]byte(s), v)
	}
	return json.Unmarshal(raw, v)
}

func decodeZarrEntries(entries map[string]json.RawMessage) (*DatasetMetadata, error) {
	md := &DatasetMetadata{
		Attrs: map[string]any{},
		Dims:  map[string]int{},
	}

	if raw, ok := entries[".zattrs"]; ok {
		if err := decodeZarrEntry(raw, &md.Attrs); err != nil {
			return nil, fmt.Errorf("failed to decode global attributes: %w", err)
		}
	}

	vars := map[string]*Variable{}
	variable := func(name string) *Variable {
		if v, ok := vars[name]; ok {
			return v
		}
		v := &Variable{Name: name, Attrs: map[string]any{}}
		vars[name] = v
		return v
	}

	for key, raw := range entries {
		name, file, ok := strings.Cut(key, "/")
		if !ok || strings.Contains(file, "/") {
			continue
		}
		switch file {
		case ".zarray":
			var arr struct {
				Shape []int `json:"shape"`
			}
			if err := decodeZarrEntry(raw, &arr); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", key, err)
			}
			variable(name).Shape = arr.Shape
		case ".zattrs":
			v := variable(name)
			if err := decodeZarrEntry(raw, &v.Attrs); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", key, err)
			}
			if dims, ok := v.Attrs["_ARRAY_DIMENSIONS"].([]any); ok {
				for _, d := range dims {
					if s, ok := d.(string); ok {
						v.Dims = append(v.Dims, s)
					}
				}
				delete(v.Attrs, "_ARRAY_DIMENSIONS")
			}
		}
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := vars[name]
		for i, dim := range v.Dims {
			if i < len(v.Shape) {
				md.Dims[dim] = v.Shape[i]
			}
		}
		md.Variables = append(md.Variables, *v)
	}
	return md, nil
}
