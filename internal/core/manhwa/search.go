// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package manhwa's SearchEngine reduces a raw search request to a ranked,
paginated response shape, independent of cache or coalescing concerns
(those live one layer up, in [Service]).
*/
package manhwa

import (
	"context"
	"math"
	"strings"
)

// SearchParams is the sanitised input to [SearchEngine.FullTextSearch].
type SearchParams struct {
	Query           string
	Filter          Filter
	Page            int
	Limit           int
	IncludeExternal bool
}

// ManhwaSearchResult is a single entry of a [SearchResponse].
type ManhwaSearchResult struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	CoverThumb    string   `json:"coverThumb,omitempty"`
	Synopsis      string   `json:"synopsis"`
	Status        string   `json:"status"`
	TotalChapters *int     `json:"totalChapters,omitempty"`
	Genres        []string `json:"genres"`
	Score         *float64 `json:"score,omitempty"`
}

// Pagination describes the paging metadata attached to a [SearchResponse].
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalResults int `json:"totalResults"`
}

// Metadata carries diagnostic information about how a search was served.
type Metadata struct {
	SourcesQueried []string `json:"sourcesQueried"`
	QueryTimeMs    int64    `json:"queryTime_ms"`
}

// SearchResponse is the shape returned to every search caller, whether
// served from Store alone or blended with an Upstream fallback.
type SearchResponse struct {
	Results    []ManhwaSearchResult `json:"results"`
	Pagination Pagination           `json:"pagination"`
	Metadata   Metadata             `json:"metadata"`
}

// maxSynopsisRunes is the truncation length applied to every result's
// synopsis, matching the upstream-fallback truncation rule exactly so both
// paths produce visually consistent results.
const maxSynopsisRunes = 200

// SearchEngine runs ranked and filtered queries against [Store] and shapes
// the result into the transport-facing [SearchResponse].
type SearchEngine struct {
	store Store
}

// NewSearchEngine constructs a [SearchEngine] over store.
func NewSearchEngine(store Store) *SearchEngine {
	return &SearchEngine{store: store}
}

// sanitizeQuery drops characters that would otherwise be interpreted by the
// underlying text-search parser (§4.5 step 1).
func sanitizeQuery(query string) string {
	replacer := strings.NewReplacer("'", "", `"`, "", `\`, "")
	return strings.TrimSpace(replacer.Replace(query))
}

// FullTextSearch dispatches to Store.FullTextSearch when the sanitised query
// is non-empty, else to Store.FilterSearch, and shapes the combined result.
func (e *SearchEngine) FullTextSearch(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	clean := sanitizeQuery(params.Query)
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	page := params.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	var rows []SearchResult
	var total int
	var err error

	if clean != "" {
		rows, total, err = e.store.FullTextSearch(ctx, clean, params.Filter, limit, offset)
	} else {
		rows, total, err = e.store.FilterSearch(ctx, params.Filter, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	results := make([]ManhwaSearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, toSearchResult(row.Manhwa, &row.Score))
	}

	return &SearchResponse{
		Results: results,
		Pagination: Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages(total, limit),
			TotalResults: total,
		},
		Metadata: Metadata{
			SourcesQueried: []string{"local"},
		},
	}, nil
}

// Trending returns up to limit Ongoing rows ordered by updatedAt desc,
// capped at 100 regardless of the caller's request.
func (e *SearchEngine) Trending(ctx context.Context, limit int) ([]*Manhwa, error) {
	return e.store.ListTrending(ctx, clampLimit(limit))
}

// RecentlyAdded returns up to limit rows ordered by createdAt desc, capped
// at 100 regardless of the caller's request.
func (e *SearchEngine) RecentlyAdded(ctx context.Context, limit int) ([]*Manhwa, error) {
	return e.store.ListRecentlyAdded(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

// toSearchResult projects a full [Manhwa] row into the compact search shape,
// truncating the synopsis and lower-casing status.
func toSearchResult(m *Manhwa, score *float64) ManhwaSearchResult {
	genreNames := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		genreNames = append(genreNames, g.Name)
	}

	return ManhwaSearchResult{
		ID:            m.ID,
		Title:         m.TitleData.Primary,
		CoverThumb:    m.CoverThumb,
		Synopsis:      truncateSynopsis(m.Synopsis),
		Status:        strings.ToLower(string(m.Status)),
		TotalChapters: m.TotalChapters,
		Genres:        genreNames,
		Score:         score,
	}
}

// truncateSynopsis caps a synopsis at maxSynopsisRunes, appending an
// ellipsis exactly when truncation occurred.
func truncateSynopsis(s string) string {
	runes := []rune(s)
	if len(runes) <= maxSynopsisRunes {
		return s
	}
	return string(runes[:maxSynopsisRunes]) + "…"
}
