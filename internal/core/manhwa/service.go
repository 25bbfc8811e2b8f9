// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package manhwa's Service is the catalogue's single entry point, composing
Store, the cache tiers, the Coalescer, the SearchEngine, and the Upstream
client into the read/write operations the HTTP layer calls.

Core Responsibility:

  - Caching: every read path checks its tier first, coalesces concurrent
    misses for the same key through a single producer call, and writes the
    result back before returning.
  - Freshness: GetByID decides whether an Upstream-sourced row is stale
    enough to warrant a background refresh, handed off to a [RefreshTrigger]
    (the Syncer) rather than blocking the caller.
  - External fallback: Search queries Upstream in place of an empty local
    result set, but only when the caller opts in with IncludeExternal,
    normalising genre names to the Upstream tag dictionary on the way.
*/
package manhwa

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/taibuivan/yomira/internal/platform/apperr"
	"github.com/taibuivan/yomira/internal/platform/cache"
	"github.com/taibuivan/yomira/internal/platform/coalesce"
	"github.com/taibuivan/yomira/internal/upstream"
)

// staleAfter is how long an Upstream-sourced row may go unsynchronised
// before it is considered due for a background refresh (§4.6 shouldRefresh).
const staleAfter = 24 * time.Hour

// RefreshTrigger is the subset of the Syncer's surface the Service depends
// on, so a background refresh never blocks a foreground request.
type RefreshTrigger interface {
	Enqueue(id int, upstreamID string, priority int)
}

// UpstreamClient is the subset of [upstream.Client] the Service depends on.
type UpstreamClient interface {
	Search(ctx context.Context, params upstream.SearchParams) (*upstream.SearchResult, error)
	GetManga(ctx context.Context, upstreamID string) (*upstream.Transformed, error)
	ListTags(ctx context.Context) []upstream.Tag
}

// Service is the catalogue's application-layer facade.
type Service struct {
	store   Store
	engine  *SearchEngine
	caches  *cache.Tiers
	group   *coalesce.Group
	client  UpstreamClient
	syncer  RefreshTrigger
	baseURL string
	logger  *slog.Logger
}

// NewService wires the catalogue's dependencies into a [Service]. syncer may
// be nil until the background syncer is constructed; GetByID then simply
// skips scheduling a refresh.
func NewService(store Store, engine *SearchEngine, caches *cache.Tiers, group *coalesce.Group, client UpstreamClient, syncer RefreshTrigger, upstreamBaseURL string, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		engine:  engine,
		caches:  caches,
		group:   group,
		client:  client,
		syncer:  syncer,
		baseURL: upstreamBaseURL,
		logger:  logger,
	}
}

// SetSyncer attaches the background syncer once it has been constructed,
// breaking the construction-order cycle between Service and Syncer.
func (s *Service) SetSyncer(syncer RefreshTrigger) { s.syncer = syncer }

// Search serves a ranked/filtered query from the Search cache tier,
// coalescing concurrent misses for an identical request and falling back to
// Upstream when the caller opted in and the local result set is empty.
func (s *Service) Search(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	start := time.Now()
	key := searchCacheKey(params)

	if cached, ok := s.caches.Search.Get(key); ok {
		resp := cached.(SearchResponse)
		resp.Metadata.QueryTimeMs = time.Since(start).Milliseconds()
		return &resp, nil
	}

	value, err := s.group.Coalesce(key, func() (any, error) {
		resp, err := s.engine.FullTextSearch(ctx, params)
		if err != nil {
			return nil, err
		}

		if params.IncludeExternal && len(resp.Results) == 0 && s.client != nil {
			s.blendUpstream(ctx, params, resp)
		}

		s.caches.Search.Set(key, *resp)
		return *resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := value.(SearchResponse)
	resp.Metadata.QueryTimeMs = time.Since(start).Milliseconds()
	return &resp, nil
}

// blendUpstream fills an empty local page with Upstream search hits, tagging
// the response's sources accordingly. The external path does not paginate,
// so totalPages is fixed at 1 regardless of the caller's limit. A failed
// Upstream call degrades silently: the empty local response is returned with
// "external (failed)" appended to sourcesQueried rather than as an error.
func (s *Service) blendUpstream(ctx context.Context, params SearchParams, resp *SearchResponse) {
	tagIDs := s.resolveGenreTagIDs(ctx, params.Filter.Genres)

	limit := clampLimit(params.Limit)
	page := params.Page
	if page <= 0 {
		page = 1
	}

	upstreamParams := upstream.SearchParams{
		Title:          params.Query,
		Limit:          limit,
		Offset:         (page - 1) * limit,
		IncludedTagIDs: tagIDs,
	}
	for _, st := range params.Filter.Status {
		upstreamParams.Status = append(upstreamParams.Status, string(st))
	}

	result, err := s.client.Search(ctx, upstreamParams)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("search_upstream_fallback_failed", slog.String("error", err.Error()))
		}
		resp.Metadata.SourcesQueried = append(resp.Metadata.SourcesQueried, "external (failed)")
		return
	}

	results := make([]ManhwaSearchResult, 0, len(result.Results))
	for _, t := range result.Results {
		results = append(results, upstreamResultToSearchResult(t))
	}

	resp.Results = results
	resp.Pagination.TotalResults = len(results)
	resp.Pagination.TotalPages = 1
	resp.Metadata.SourcesQueried = append(resp.Metadata.SourcesQueried, "external")
}

// resolveGenreTagIDs maps genre slugs to Upstream tag UUIDs via the Tag
// cache tier, populating it from Upstream on a miss. Slugs with no known
// mapping are silently dropped.
func (s *Service) resolveGenreTagIDs(ctx context.Context, slugs []string) []string {
	if len(slugs) == 0 {
		return nil
	}

	dict := s.tagDictionary(ctx)
	ids := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		name := strings.ReplaceAll(slug, "-", " ")
		if id, ok := dict[strings.ToLower(name)]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

const tagDictionaryCacheKey = "tags:dictionary"

func (s *Service) tagDictionary(ctx context.Context) map[string]string {
	if cached, ok := s.caches.Tag.Get(tagDictionaryCacheKey); ok {
		return cached.(map[string]string)
	}

	tags := s.client.ListTags(ctx)
	dict := make(map[string]string, len(tags))
	for _, t := range tags {
		dict[strings.ToLower(t.Name)] = t.ID
	}
	s.caches.Tag.Set(tagDictionaryCacheKey, dict)
	return dict
}

// GetByID returns a single manhwa by id, serving from the Entity cache tier
// when possible. When the row is Upstream-sourced and due for refresh, a
// background sync is scheduled rather than blocking the caller, unless
// forceRefresh requests an immediate synchronous resync. A failed forced
// resync is logged and the row as currently stored is returned.
func (s *Service) GetByID(ctx context.Context, id int, forceRefresh bool) (*Manhwa, error) {
	key := entityCacheKey(id)

	if !forceRefresh {
		if cached, ok := s.caches.Entity.Get(key); ok {
			row := cached.(Manhwa)
			s.maybeScheduleRefresh(&row)
			return &row, nil
		}
	}

	value, err := s.group.Coalesce(key, func() (any, error) {
		row, err := s.store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return *row, nil
	})
	if err != nil {
		return nil, err
	}

	row := value.(Manhwa)
	s.caches.Entity.Set(key, row)

	if forceRefresh {
		if err := s.SyncOne(ctx, row.ID, derefString(row.UpstreamID)); err != nil {
			if s.logger != nil {
				s.logger.Warn("force_refresh_failed", slog.Int("id", id), slog.String("error", err.Error()))
			}
			return &row, nil
		}
		refreshed, err := s.store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.caches.Entity.Set(key, *refreshed)
		return refreshed, nil
	}

	s.maybeScheduleRefresh(&row)
	return &row, nil
}

// maybeScheduleRefresh enqueues a background resync for a stale
// Upstream-sourced row (§4.6 shouldRefresh), without blocking the caller.
func (s *Service) maybeScheduleRefresh(row *Manhwa) {
	if s.syncer == nil || !shouldRefresh(row) {
		return
	}
	s.syncer.Enqueue(row.ID, derefString(row.UpstreamID), 1)
}

// shouldRefresh reports whether an Upstream-sourced row has gone stale:
// never synchronised, or last synchronised more than staleAfter ago.
func shouldRefresh(row *Manhwa) bool {
	if row.DataSource != DataSourceUpstream {
		return false
	}
	if row.LastSyncedAt == nil {
		return true
	}
	return time.Since(*row.LastSyncedAt) > staleAfter
}

// BulkGet returns every manhwa among ids that exists, serving each from the
// Entity cache tier where possible and filling misses with a single Store
// round-trip.
func (s *Service) BulkGet(ctx context.Context, ids []int) ([]*Manhwa, error) {
	out := make([]*Manhwa, 0, len(ids))
	missing := make([]int, 0)

	for _, id := range ids {
		if cached, ok := s.caches.Entity.Get(entityCacheKey(id)); ok {
			row := cached.(Manhwa)
			out = append(out, &row)
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return out, nil
	}

	rows, err := s.store.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.caches.Entity.Set(entityCacheKey(row.ID), *row)
		out = append(out, row)
	}

	return out, nil
}

// CreateInput is the caller-supplied payload for [Service.Create].
type CreateInput struct {
	TitleData       TitleData
	Synopsis        string
	Status          Status
	Publisher       *string
	StartYear       *int
	EndYear         *int
	SpecialChapters *int
	CoverThumb      string
	CoverMedium     string
	CoverLarge      string
	GenreSlugs      []string
}

// Create validates and persists a new Local manhwa row, invalidating every
// cached search page since the new row may now match an arbitrary number of
// previously-cached queries.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Manhwa, error) {
	if strings.TrimSpace(input.TitleData.Primary) == "" {
		return nil, apperr.ValidationError("title is required", apperr.FieldError{Field: "titleData.primary", Message: "must not be empty"})
	}
	if !input.Status.IsValid() {
		return nil, apperr.ValidationError("invalid status", apperr.FieldError{Field: "status", Message: "must be one of ongoing, completed, hiatus, cancelled"})
	}

	genreIDs, err := s.resolveGenreIDs(ctx, input.GenreSlugs)
	if err != nil {
		return nil, err
	}

	row := &Manhwa{
		DataSource:      DataSourceLocal,
		TitleData:       input.TitleData,
		Synopsis:        input.Synopsis,
		Status:          input.Status,
		Publisher:       input.Publisher,
		StartYear:       input.StartYear,
		EndYear:         input.EndYear,
		SpecialChapters: input.SpecialChapters,
		CoverThumb:      input.CoverThumb,
		CoverMedium:     input.CoverMedium,
		CoverLarge:      input.CoverLarge,
		SyncStatus:      SyncStatusCurrent,
		GenreIDs:        genreIDs,
	}

	id, err := s.store.Insert(ctx, row)
	if err != nil {
		return nil, err
	}

	s.caches.Search.DeleteMatching("search:")

	created, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.caches.Entity.Set(entityCacheKey(id), *created)
	return created, nil
}

// resolveGenreIDs validates genre slugs against Store and returns their ids.
// An unknown slug is a [apperr.BadInput], not a silent drop.
func (s *Service) resolveGenreIDs(ctx context.Context, slugs []string) ([]int, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	genres, err := s.store.ListGenresBySlug(ctx, slugs)
	if err != nil {
		return nil, err
	}
	if len(genres) != len(unique(slugs)) {
		return nil, apperr.BadInput("one or more genre slugs are unknown")
	}

	ids := make([]int, 0, len(genres))
	for _, g := range genres {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// Import fetches a manga from Upstream by its upstream id and inserts it as
// an Upstream-sourced, Current row. Importing an id already on file is
// rejected rather than silently duplicated.
func (s *Service) Import(ctx context.Context, upstreamID string) (*Manhwa, error) {
	if existing, err := s.store.FindByUpstreamID(ctx, upstreamID); err == nil && existing != nil {
		return nil, apperr.BadInput(fmt.Sprintf("manhwa %s is already imported", upstreamID))
	} else if err != nil && apperr.As(err) != nil && apperr.As(err).Code != "NOT_FOUND" {
		return nil, err
	}

	transformed, err := s.client.GetManga(ctx, upstreamID)
	if err != nil {
		return nil, err
	}

	genreIDs, err := s.genreIDsForNames(ctx, transformed.GenreNames)
	if err != nil {
		return nil, err
	}

	thumb, medium, large := upstream.CoverURLs(s.baseURL, transformed.UpstreamID, transformed.CoverFileName)
	now := time.Now()

	row := &Manhwa{
		UpstreamID: &transformed.UpstreamID,
		DataSource: DataSourceUpstream,
		TitleData: TitleData{
			Primary:      transformed.TitlePrimary,
			Alternatives: toTitleAlternatives(transformed.TitleAlternatives),
			Romanized:    transformed.TitleRomanized,
		},
		Synopsis:     transformed.Synopsis,
		Status:       Status(transformed.Status),
		CoverThumb:   thumb,
		CoverMedium:  medium,
		CoverLarge:   large,
		LastSyncedAt: &now,
		SyncStatus:   SyncStatusCurrent,
		GenreIDs:     genreIDs,
	}
	if transformed.TotalChapters > 0 {
		row.TotalChapters = &transformed.TotalChapters
	}

	id, err := s.store.Insert(ctx, row)
	if err != nil {
		return nil, err
	}

	s.caches.Search.DeleteMatching("search:")

	created, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.caches.Entity.Set(entityCacheKey(id), *created)
	return created, nil
}

// genreIDsForNames resolves Upstream genre names to local genre ids,
// tolerating names with no local match by skipping them rather than
// rejecting the whole import.
func (s *Service) genreIDsForNames(ctx context.Context, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}

	all, err := s.store.ListAllGenres(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]int, len(all))
	for _, g := range all {
		byName[strings.ToLower(g.Name)] = g.ID
	}

	ids := make([]int, 0, len(names))
	for _, name := range names {
		if id, ok := byName[strings.ToLower(name)]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SyncOne re-fetches a single Upstream-sourced row and applies the result as
// a versioned update. A failure marks the row syncStatus = Failed and wraps
// the cause as [apperr.SyncFailed], rather than leaving the row's prior
// syncStatus in place.
func (s *Service) SyncOne(ctx context.Context, id int, upstreamID string) error {
	if upstreamID == "" {
		return apperr.BadInput("manhwa has no upstream id to synchronise against")
	}

	fail := func(msg string, err error) error {
		if markErr := s.store.MarkSyncFailed(ctx, id); markErr != nil && s.logger != nil {
			s.logger.Error("mark_sync_failed_error", slog.Int("id", id), slog.String("error", markErr.Error()))
		}
		if s.logger != nil {
			s.logger.Warn("sync_one_failed", slog.Int("id", id), slog.String("upstreamId", upstreamID), slog.String("error", err.Error()))
		}
		return apperr.SyncFailed(msg, err)
	}
	genericMsg := fmt.Sprintf("failed to synchronise manhwa %d against upstream", id)

	transformed, err := s.client.GetManga(ctx, upstreamID)
	if err != nil {
		msg := genericMsg
		if ae := apperr.As(err); ae != nil && ae.Code == "NOT_FOUND" {
			msg = "Manga no longer exists on Upstream"
		} else if ae != nil && (ae.Code == "RATE_LIMITED" || ae.Code == "captcha_required") {
			msg += ": " + ae.Message
		}
		return fail(msg, err)
	}

	genreIDs, err := s.genreIDsForNames(ctx, transformed.GenreNames)
	if err != nil {
		return fail(genericMsg, err)
	}

	thumb, medium, large := upstream.CoverURLs(s.baseURL, transformed.UpstreamID, transformed.CoverFileName)
	now := time.Now()
	status := Status(transformed.Status)
	chapters := transformed.TotalChapters

	patch := UpdatePatch{
		TitleData: &TitleData{
			Primary:      transformed.TitlePrimary,
			Alternatives: toTitleAlternatives(transformed.TitleAlternatives),
			Romanized:    transformed.TitleRomanized,
		},
		Synopsis:     &transformed.Synopsis,
		Status:       &status,
		CoverThumb:   &thumb,
		CoverMedium:  &medium,
		CoverLarge:   &large,
		TotalChapters: &chapters,
		LastSyncedAt: &now,
		SyncStatus:   syncStatusPtr(SyncStatusCurrent),
		GenreIDs:     genreIDs,
		BumpVersion:  true,
	}

	if err := s.store.Update(ctx, id, patch); err != nil {
		return fail(genericMsg, err)
	}

	s.caches.Entity.Delete(entityCacheKey(id))
	s.caches.Search.DeleteMatching("search:")

	if s.logger != nil {
		s.logger.Info("sync:success", slog.Int("id", id), slog.String("upstreamId", upstreamID))
	}
	return nil
}

// ListGenres returns every known genre, sorted by name.
func (s *Service) ListGenres(ctx context.Context) ([]Genre, error) {
	genres, err := s.store.ListAllGenres(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })
	return genres, nil
}

// CacheStatus reports the three cache tiers' occupancy and hit/miss counters.
func (s *Service) CacheStatus() map[string]cache.Stats {
	return map[string]cache.Stats{
		"entity": s.caches.Entity.Stats(),
		"search": s.caches.Search.Stats(),
		"tag":    s.caches.Tag.Stats(),
	}
}

// ClearCache empties every cache tier's entries whose key contains prefix
// as a substring (or everything, when prefix is empty).
func (s *Service) ClearCache(prefix string) int {
	return s.caches.Entity.DeleteMatching(prefix) +
		s.caches.Search.DeleteMatching(prefix) +
		s.caches.Tag.DeleteMatching(prefix)
}

// entityCacheKey derives the Entity tier cache key for a manhwa id.
func entityCacheKey(id int) string {
	return "manhwa:entity:" + strconv.Itoa(id)
}

// searchCacheKey derives a canonical Search tier cache key from params, so
// field order and slice order never affect cache coherence (§8 property:
// search cache keys are order-independent over filter fields).
func searchCacheKey(params SearchParams) string {
	var b strings.Builder
	b.WriteString("search:q=")
	b.WriteString(sanitizeQuery(params.Query))
	b.WriteString("&page=")
	b.WriteString(strconv.Itoa(params.Page))
	b.WriteString("&limit=")
	b.WriteString(strconv.Itoa(params.Limit))

	status := make([]string, 0, len(params.Filter.Status))
	for _, st := range params.Filter.Status {
		status = append(status, string(st))
	}
	sort.Strings(status)
	b.WriteString("&status=")
	b.WriteString(strings.Join(status, ","))

	genres := append([]string(nil), params.Filter.Genres...)
	sort.Strings(genres)
	b.WriteString("&genres=")
	b.WriteString(strings.Join(genres, ","))

	if yr := params.Filter.YearRange; yr != nil {
		b.WriteString("&yearStart=")
		b.WriteString(intPtrString(yr.Start))
		b.WriteString("&yearEnd=")
		b.WriteString(intPtrString(yr.End))
	}

	b.WriteString("&external=")
	b.WriteString(strconv.FormatBool(params.IncludeExternal))

	return b.String()
}

func intPtrString(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func syncStatusPtr(s SyncStatus) *SyncStatus { return &s }

func toTitleAlternatives(alts []upstream.TitleAlt) []TitleAlternative {
	out := make([]TitleAlternative, 0, len(alts))
	for _, a := range alts {
		out = append(out, TitleAlternative{Language: a.Language, Title: a.Title})
	}
	return out
}

// upstreamResultToSearchResult projects an Upstream search hit into the
// same compact shape as a local result, with no score (Upstream doesn't
// report one) and synopsis truncation applied identically.
func upstreamResultToSearchResult(t upstream.Transformed) ManhwaSearchResult {
	genreNames := append([]string(nil), t.GenreNames...)
	var chapters *int
	if t.TotalChapters > 0 {
		c := t.TotalChapters
		chapters = &c
	}

	return ManhwaSearchResult{
		Title:         t.TitlePrimary,
		Synopsis:      truncateSynopsis(t.Synopsis),
		Status:        strings.ToLower(t.Status),
		TotalChapters: chapters,
		Genres:        genreNames,
	}
}
