package stac

import (
	"net/url"
	"strconv"
)

// PaginationInfo holds information needed to generate pagination links.
type PaginationInfo struct {
	BaseURL       string
	CurrentPage   int
	Limit         int
	TotalCount    *int // nil if unknown
	ReturnedCount int
	QueryParams   url.Values
}

// BuildPaginationLinks generates next and prev links based on pagination info.
func BuildPaginationLinks(info PaginationInfo) []*Link {
	links := make([]*Link, 0, 2)

	if info.CurrentPage > 1 {
		links = append(links, &Link{
			Rel:  "prev",
			Href: buildPageURL(info.BaseURL, info.QueryParams, info.CurrentPage-1),
			Type: MediaGeoJSON,
		})
	}

	hasNextPage := false
	if info.TotalCount != nil && info.Limit > 0 {
		totalPages := (*info.TotalCount + info.Limit - 1) / info.Limit
		hasNextPage = info.CurrentPage < totalPages
	} else {
		// Unknown total: a full page suggests there may be more
		hasNextPage = info.ReturnedCount >= info.Limit
	}

	if hasNextPage {
		links = append(links, &Link{
			Rel:  "next",
			Href: buildPageURL(info.BaseURL, info.QueryParams, info.CurrentPage+1),
			Type: MediaGeoJSON,
		})
	}

	return links
}

// buildPageURL constructs a URL with the given page number.
func buildPageURL(baseURL string, params url.Values, page int) string {
	newParams := url.Values{}
	for key, values := range params {
		for _, value := range values {
			newParams.Add(key, value)
		}
	}
	newParams.Set("page", strconv.Itoa(page))
	return baseURL + "?" + newParams.Encode()
}
