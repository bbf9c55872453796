package sweep

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	services, err := ParseServices([]string{"Vocab Server=https://vocab.test", " STAC API = https://stac.test/?a=b"})
	require.NoError(t, err)
	assert.Equal(t, []Service{
		{Name: "Vocab Server", URL: "https://vocab.test"},
		{Name: "STAC API", URL: "https://stac.test/?a=b"},
	}, services)

	_, err = ParseServices([]string{"no url"})
	assert.Error(t, err)
}

func TestSweeper_Check(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	s := NewSweeper(nil).WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	statuses := s.Check(context.Background(), []Service{
		{Name: "Up", URL: up.URL},
		{Name: "Down", URL: down.URL},
		{Name: "Broken", URL: "http://%zz"},
	})
	require.Len(t, statuses, 3)

	assert.True(t, statuses[0].Up())
	assert.Equal(t, http.StatusNoContent, statuses[0].Code)
	assert.False(t, statuses[1].Up())
	assert.Equal(t, http.StatusServiceUnavailable, statuses[1].Code)
	assert.Error(t, statuses[2].Err)

	assert.Equal(t,
		"Service Status Report:\nServices: Up, Down, Broken\n"+Green+" "+Red+" "+Red,
		Message(statuses))
}

func TestNotifier(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	require.NoError(t, NewNotifier(server.URL, server.Client()).Notify(context.Background(), "hello"))
	assert.Equal(t, map[string]string{"text": "hello", "username": Username}, got)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer failing.Close()
	err := NewNotifier(failing.URL, nil).Notify(context.Background(), "hello")
	assert.ErrorContains(t, err, "status 403")
}
