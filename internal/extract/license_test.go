package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLicenseResolver(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/esacci_biomass_terms_and_conditions.pdf":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	seen := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), requests...)
	}

	resolver := NewLicenseResolver(server.URL+"/", server.Client())

	t.Run("second candidate wins", func(t *testing.T) {
		mu.Lock()
		requests = nil
		mu.Unlock()
		got := resolver.Resolve(context.Background(), "biomass")
		assert.Equal(t, server.URL+"/esacci_biomass_terms_and_conditions.pdf", got)
		assert.Equal(t, []string{
			"/esacci_biomass_terms_and_conditions_v2.pdf",
			"/esacci_biomass_terms_and_conditions.pdf",
		}, seen())
	})

	t.Run("cached", func(t *testing.T) {
		mu.Lock()
		requests = nil
		mu.Unlock()
		resolver.Resolve(context.Background(), "biomass")
		assert.Empty(t, seen())
	})

	t.Run("falls back to last candidate", func(t *testing.T) {
		mu.Lock()
		requests = nil
		mu.Unlock()
		got := resolver.Resolve(context.Background(), "fire")
		assert.Equal(t, server.URL+"/esacci_fire.pdf", got)
		assert.Len(t, seen(), 3)
	})
}
