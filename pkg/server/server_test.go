package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestNew(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/stage/sst/stac_a.json",
		[]byte(`{"type":"Feature","id":"a","collection":"sst","properties":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(Options{
		StageDir: "/stage",
		BaseURL:  "https://preview.test/cci",
		Fs:       fs,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if c, i := s.Counts(); c != 1 || i != 1 {
		t.Errorf("Counts() = %d, %d, want 1, 1", c, i)
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/sst/items", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "https://preview.test/cci/collections/sst/items") {
		t.Errorf("Expected links under the configured base URL, got %s", w.Body.String())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNoStageDir) {
		t.Errorf("Expected ErrNoStageDir, got %v", err)
	}
	if _, err := New(Options{StageDir: "/nope", Fs: afero.NewMemMapFs()}); err == nil {
		t.Error("Expected an error for a missing stage directory")
	}
}
