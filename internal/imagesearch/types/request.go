package types

import "net/http"

// SearchQuery is an immutable search request value.
type SearchQuery struct {
	Text    string   `json:"text"`
	Tags    []string `json:"tags,omitempty"`
	Page    int      `json:"page,omitempty"`
	PerPage int      `json:"per_page,omitempty"`
}

// Normalized returns a copy with the page floor applied.
func (q SearchQuery) Normalized() SearchQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// Request is a fully built provider request: target URL plus headers.
// It is stateless and discarded after the fetch.
type Request struct {
	Provider ProviderID
	URL      string
	Header   http.Header
}
