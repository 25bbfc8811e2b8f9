// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package manhwa

import (
	"context"
	"time"
)

// SearchResult is a single row returned by [Store.FullTextSearch] or
// [Store.FilterSearch], carrying the relevance score alongside the entity.
type SearchResult struct {
	Manhwa *Manhwa
	Score  float64
}

// Store is the persistence boundary for the catalogue domain.
//
// Implementations may fail any method with an [apperr.AppError] classified as
// NotFound, Conflict, Transient, or a validation (Invalid) error; callers
// should not assume any particular underlying storage engine.
type Store interface {
	// FindByID returns the manhwa with the given id.
	FindByID(ctx context.Context, id int) (*Manhwa, error)

	// FindByIDs returns every manhwa among ids that exists; missing ids are
	// silently omitted rather than causing an error.
	FindByIDs(ctx context.Context, ids []int) ([]*Manhwa, error)

	// FindByUpstreamID returns the manhwa mirrored from the given upstream id.
	FindByUpstreamID(ctx context.Context, upstreamID string) (*Manhwa, error)

	// Insert persists a new manhwa row and returns its assigned id.
	Insert(ctx context.Context, row *Manhwa) (int, error)

	// Update applies a partial update to an existing row, recomputing the
	// search vector whenever title or synopsis changes and bumping Version
	// when requested by the caller (see [UpdatePatch.BumpVersion]).
	Update(ctx context.Context, id int, patch UpdatePatch) error

	// MarkSyncFailed flags a row's syncStatus as Failed after a failed sync attempt.
	MarkSyncFailed(ctx context.Context, id int) error

	// FullTextSearch ranks rows against query using the precomputed search
	// vector, AND-composed with filter, and paginates the result.
	FullTextSearch(ctx context.Context, query string, filter Filter, limit, offset int) ([]SearchResult, int, error)

	// FilterSearch returns rows matching filter ordered by updatedAt desc,
	// used when the search query is empty.
	FilterSearch(ctx context.Context, filter Filter, limit, offset int) ([]SearchResult, int, error)

	// ListTrending returns up to limit Ongoing rows ordered by updatedAt desc.
	ListTrending(ctx context.Context, limit int) ([]*Manhwa, error)

	// ListRecentlyAdded returns up to limit rows ordered by createdAt desc.
	ListRecentlyAdded(ctx context.Context, limit int) ([]*Manhwa, error)

	// ListOutdated returns up to 100 Upstream-sourced rows eligible for the
	// background sync sweep (Failed-first, then oldest lastSyncedAt first).
	ListOutdated(ctx context.Context) ([]*Manhwa, error)

	// ListGenresBySlug resolves a set of genre slugs to their full records.
	ListGenresBySlug(ctx context.Context, slugs []string) ([]Genre, error)

	// ListAllGenres returns every known genre.
	ListAllGenres(ctx context.Context) ([]Genre, error)
}

// UpdatePatch carries the fields of a partial [Manhwa] update.
//
// Only non-nil / non-zero fields are applied; GenreIDs is distinguished from
// "untouched" by nil-ness (nil means leave junction rows alone, a non-nil
// empty slice means clear them).
type UpdatePatch struct {
	TitleData    *TitleData
	Synopsis     *string
	Status       *Status
	Publisher    *string
	StartYear    *int
	EndYear      *int
	TotalChapters   *int
	SpecialChapters *int
	CoverThumb   *string
	CoverMedium  *string
	CoverLarge   *string
	LastSyncedAt *time.Time
	SyncStatus   *SyncStatus
	GenreIDs     []int

	// BumpVersion increments the stored Version counter atomically when true.
	BumpVersion bool
}
