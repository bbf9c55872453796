package collection

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/spf13/afero"

	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// Stager writes dryrun documents to a directory as {id}.json and logs what
// would change in the catalogue as a JSON merge patch.
type Stager struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
}

// NewStager creates a Stager writing under dir.
func NewStager(fs afero.Fs, dir string, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{fs: fs, dir: dir, logger: logger}
}

// Dir returns the stage directory.
func (s *Stager) Dir() string {
	return s.dir
}

// Stage writes doc and returns the file path. base is the stored document
// doc was derived from, nil for a new collection.
func (s *Stager) Stage(id string, doc, base *stac.Collection) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", id, err)
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create stage directory: %w", err)
	}
	path := filepath.Join(s.dir, id+".json")
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", id, err)
	}

	if base == nil {
		s.logger.Info("staged new collection", slog.String("collection", id), slog.String("path", path))
		return path, nil
	}

	patch, err := Diff(base, doc)
	if err != nil {
		return "", err
	}
	s.logger.Info("staged collection update",
		slog.String("collection", id),
		slog.String("path", path),
		slog.String("changes", string(patch)),
	)
	return path, nil
}

// Diff returns the JSON merge patch that turns from into to.
func Diff(from, to *stac.Collection) ([]byte, error) {
	a, err := json.Marshal(from)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collection: %w", err)
	}
	b, err := json.Marshal(to)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collection: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s: %w", to.ID, err)
	}
	return patch, nil
}
