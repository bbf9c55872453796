// Package server provides a public API for embedding the staged-document
// preview of the CCI STAC tooling in another application.
package server

import (
	"errors"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"

	"github.com/robert-malhotra/cci-stac-tools/internal/api"
	"github.com/robert-malhotra/cci-stac-tools/internal/config"
)

// ErrNoStageDir is returned by New when Options.StageDir is empty.
var ErrNoStageDir = errors.New("stage directory is required")

// Options configures the preview server.
type Options struct {
	// StageDir is the directory written by dryrun and create-items runs (required).
	StageDir string

	// BaseURL is the public-facing URL for self-referential links.
	// Default: "http://localhost:8080"
	BaseURL string

	// Title is the landing page title.
	// Default: "CCI STAC preview"
	Title string

	// Description is the landing page description.
	Description string

	// DefaultLimit is the default number of items per page.
	// Default: 10
	DefaultLimit int

	// MaxLimit is the maximum number of items per page.
	// Default: 250
	MaxLimit int

	// Fs is the filesystem the stage directory is read from.
	// Default: the OS filesystem
	Fs afero.Fs

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server serves one stage directory.
type Server struct {
	router chi.Router
	store  *api.Store
}

// New loads the stage directory and builds the router.
func New(opts Options) (*Server, error) {
	if opts.StageDir == "" {
		return nil, ErrNoStageDir
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8080"
	}
	if opts.Title == "" {
		opts.Title = "CCI STAC preview"
	}
	if opts.Description == "" {
		opts.Description = "Staged ESA CCI collections and items"
	}
	if opts.DefaultLimit == 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit == 0 {
		opts.MaxLimit = 250
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := &config.PreviewConfig{
		BaseURL:      opts.BaseURL,
		Title:        opts.Title,
		Description:  opts.Description,
		DefaultLimit: opts.DefaultLimit,
		MaxLimit:     max(opts.MaxLimit, opts.DefaultLimit),
	}

	store, err := api.LoadStore(opts.Fs, opts.StageDir, opts.Logger)
	if err != nil {
		return nil, err
	}

	handlers := api.NewHandlers(cfg, store, opts.Logger)
	return &Server{
		router: api.NewRouter(handlers, opts.Logger),
		store:  store,
	}, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Counts returns the number of staged collections and items being served.
func (s *Server) Counts() (collections, items int) {
	return len(s.store.Collections()), s.store.ItemTotal()
}
