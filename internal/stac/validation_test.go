package stac

import (
	"net/url"
	"testing"
)

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2020-01-01T00:00:00+00:00", "2020-01-01T00:00:00Z"},
		{"2020-01-01T00:00:00", "2020-01-01T00:00:00Z"},
		{"2020-01-01T00:00:00Z", "2020-01-01T00:00:00Z"},
		{" 2020-01-01T00:00:00 ", "2020-01-01T00:00:00Z"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTimestamp(tt.in); got != tt.want {
			t.Errorf("NormalizeTimestamp(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateInterval(t *testing.T) {
	if err := ValidateInterval("2020-01-01T00:00:00Z", "2020-12-31T23:59:59Z"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateInterval("2021-01-01T00:00:00Z", "2020-12-31T23:59:59Z"); err == nil {
		t.Error("expected error for reversed interval")
	}
	if err := ValidateInterval("yesterday", "2020-12-31T23:59:59Z"); err == nil {
		t.Error("expected error for unparseable start")
	}
}

func TestBuildPaginationLinks(t *testing.T) {
	total := 25
	links := BuildPaginationLinks(PaginationInfo{
		BaseURL:       "http://localhost/collections/a/items",
		CurrentPage:   2,
		Limit:         10,
		TotalCount:    &total,
		ReturnedCount: 10,
		QueryParams:   url.Values{"limit": {"10"}},
	})

	if len(links) != 2 {
		t.Fatalf("expected prev and next links, got %d", len(links))
	}
	if links[0].Rel != "prev" || links[0].Href != "http://localhost/collections/a/items?limit=10&page=1" {
		t.Errorf("unexpected prev link: %+v", links[0])
	}
	if links[1].Rel != "next" || links[1].Href != "http://localhost/collections/a/items?limit=10&page=3" {
		t.Errorf("unexpected next link: %+v", links[1])
	}
}

func TestBuildPaginationLinks_LastPage(t *testing.T) {
	total := 20
	links := BuildPaginationLinks(PaginationInfo{
		BaseURL:       "http://localhost/x",
		CurrentPage:   2,
		Limit:         10,
		TotalCount:    &total,
		ReturnedCount: 10,
	})

	if len(links) != 1 || links[0].Rel != "prev" {
		t.Errorf("expected only a prev link, got %+v", links)
	}
}
