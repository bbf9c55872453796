// Package archive walks the CCI data archive on disk.
package archive

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
)

var (
	// ErrVersionMismatch is returned when numeric and lexical ordering of
	// version directories disagree about the newest one.
	ErrVersionMismatch = errors.New("data version directory mismatch")

	// ErrOutputExists is returned instead of overwriting an output file.
	ErrOutputExists = errors.New("output file already exists")
)

var versionDir = regexp.MustCompile(`^v(\d+(?:\.\d+)*)$`)

// padWidth is the width version names are right-padded with zeros to before
// lexical comparison, so v4.3 reads as v4.30.
const padWidth = 5

// Latest is the newest version directory below one parent.
type Latest struct {
	Parent string
	Path   string
}

type candidate struct {
	name    string
	padded  string
	version *semver.Version
}

// FindLatest returns, for every directory under root holding version
// directories (v1, v2.1, ...), the path of the newest one. Results are
// sorted by parent.
func FindLatest(fs afero.Fs, root string, logger *slog.Logger) ([]Latest, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var found []Latest
	err := afero.Walk(fs, root, func(dir string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}

		var versions []candidate
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			m := versionDir.FindStringSubmatch(e.Name())
			if m == nil {
				continue
			}
			v, err := semver.NewVersion(m[1])
			if err != nil {
				logger.Warn("skipping unparseable version directory",
					slog.String("directory", filepath.Join(dir, e.Name())),
					slog.String("error", err.Error()),
				)
				continue
			}
			versions = append(versions, candidate{name: e.Name(), padded: pad(e.Name()), version: v})
		}
		if len(versions) == 0 {
			return nil
		}

		latest, err := newest(versions)
		if err != nil {
			return fmt.Errorf("%s: %w", dir, err)
		}
		found = append(found, Latest{Parent: dir, Path: filepath.Join(dir, latest)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Parent < found[j].Parent })
	return found, nil
}

func pad(name string) string {
	if len(name) >= padWidth {
		return name
	}
	return name + strings.Repeat("0", padWidth-len(name))
}

// newest picks the highest version and checks it against the highest
// padded name.
func newest(versions []candidate) (string, error) {
	numeric, lexical := versions[0], versions[0]
	for _, c := range versions[1:] {
		if c.version.GreaterThan(numeric.version) {
			numeric = c
		}
		if c.padded > lexical.padded {
			lexical = c
		}
	}
	if numeric.name != lexical.name {
		return "", fmt.Errorf("%w: %s and %s", ErrVersionMismatch, lexical.name, numeric.name)
	}
	return numeric.name, nil
}

// WriteLatest writes the newest version paths under root to output, one
// per line. An existing output file is never overwritten.
func WriteLatest(fs afero.Fs, root, output string, logger *slog.Logger) ([]Latest, error) {
	exists, err := afero.Exists(fs, output)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrOutputExists, output)
	}

	latest, err := FindLatest(fs, root, logger)
	if err != nil {
		return nil, err
	}

	if err := fs.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	paths := make([]string, len(latest))
	for i, l := range latest {
		paths[i] = l.Path
	}
	if err := afero.WriteFile(fs, output, []byte(strings.Join(paths, "\n")), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", output, err)
	}
	return latest, nil
}
