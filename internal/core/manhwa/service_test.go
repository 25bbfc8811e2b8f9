// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package manhwa_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira/internal/core/manhwa"
	"github.com/taibuivan/yomira/internal/platform/apperr"
	"github.com/taibuivan/yomira/internal/platform/cache"
	"github.com/taibuivan/yomira/internal/platform/coalesce"
	"github.com/taibuivan/yomira/internal/upstream"
)

// fakeStore is a minimal in-memory [manhwa.Store] for service-level tests.
type fakeStore struct {
	rows   map[int]*manhwa.Manhwa
	nextID int
	genres []manhwa.Genre
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[int]*manhwa.Manhwa), nextID: 1}
}

func (f *fakeStore) FindByID(_ context.Context, id int) (*manhwa.Manhwa, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("manhwa")
	}
	cp := *row
	return &cp, nil
}

func (f *fakeStore) FindByIDs(_ context.Context, ids []int) ([]*manhwa.Manhwa, error) {
	out := make([]*manhwa.Manhwa, 0, len(ids))
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) FindByUpstreamID(_ context.Context, upstreamID string) (*manhwa.Manhwa, error) {
	for _, row := range f.rows {
		if row.UpstreamID != nil && *row.UpstreamID == upstreamID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("manhwa")
}

func (f *fakeStore) Insert(_ context.Context, row *manhwa.Manhwa) (int, error) {
	id := f.nextID
	f.nextID++
	cp := *row
	cp.ID = id
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = time.Now()
	f.rows[id] = &cp
	return id, nil
}

func (f *fakeStore) Update(_ context.Context, id int, patch manhwa.UpdatePatch) error {
	row, ok := f.rows[id]
	if !ok {
		return apperr.NotFound("manhwa")
	}
	if patch.TitleData != nil {
		row.TitleData = *patch.TitleData
	}
	if patch.Synopsis != nil {
		row.Synopsis = *patch.Synopsis
	}
	if patch.Status != nil {
		row.Status = *patch.Status
	}
	if patch.SyncStatus != nil {
		row.SyncStatus = *patch.SyncStatus
	}
	if patch.LastSyncedAt != nil {
		row.LastSyncedAt = patch.LastSyncedAt
	}
	if patch.BumpVersion {
		row.Version++
	}
	return nil
}

func (f *fakeStore) MarkSyncFailed(_ context.Context, id int) error {
	if row, ok := f.rows[id]; ok {
		row.SyncStatus = manhwa.SyncStatusFailed
	}
	return nil
}

func (f *fakeStore) FullTextSearch(_ context.Context, _ string, _ manhwa.Filter, _, _ int) ([]manhwa.SearchResult, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) FilterSearch(_ context.Context, _ manhwa.Filter, _, _ int) ([]manhwa.SearchResult, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) ListTrending(_ context.Context, _ int) ([]*manhwa.Manhwa, error) { return nil, nil }

func (f *fakeStore) ListRecentlyAdded(_ context.Context, _ int) ([]*manhwa.Manhwa, error) {
	return nil, nil
}

func (f *fakeStore) ListOutdated(_ context.Context) ([]*manhwa.Manhwa, error) { return nil, nil }

func (f *fakeStore) ListGenresBySlug(_ context.Context, slugs []string) ([]manhwa.Genre, error) {
	wanted := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		wanted[s] = struct{}{}
	}
	out := make([]manhwa.Genre, 0, len(slugs))
	for _, g := range f.genres {
		if _, ok := wanted[g.Slug]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAllGenres(_ context.Context) ([]manhwa.Genre, error) {
	return f.genres, nil
}

// fakeUpstreamClient is a minimal [manhwa.UpstreamClient] double.
type fakeUpstreamClient struct {
	manga map[string]*upstream.Transformed
	err   error
}

func (f *fakeUpstreamClient) Search(_ context.Context, _ upstream.SearchParams) (*upstream.SearchResult, error) {
	return &upstream.SearchResult{}, nil
}

func (f *fakeUpstreamClient) GetManga(_ context.Context, upstreamID string) (*upstream.Transformed, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.manga[upstreamID]
	if !ok {
		return nil, apperr.NotFound("upstream manga")
	}
	return m, nil
}

func (f *fakeUpstreamClient) ListTags(_ context.Context) []upstream.Tag { return nil }

func newTestService(t *testing.T, store *fakeStore, client manhwa.UpstreamClient) *manhwa.Service {
	t.Helper()
	caches, err := cache.NewTiers(context.Background(), time.Minute, time.Minute, time.Minute, 1000, discardLogger())
	require.NoError(t, err)
	engine := manhwa.NewSearchEngine(store)
	return manhwa.NewService(store, engine, caches, coalesce.New(), client, nil, "https://upstream.example", discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestService_Create_RejectsUnknownGenreSlug confirms Create refuses a genre
slug that does not resolve to a known genre rather than silently dropping
it.
*/
func TestService_Create_RejectsUnknownGenreSlug(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)

	_, err := svc.Create(context.Background(), manhwa.CreateInput{
		TitleData:  manhwa.TitleData{Primary: "Tower of God"},
		Status:     manhwa.StatusOngoing,
		GenreSlugs: []string{"action"},
	})

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "BAD_INPUT", ae.Code)
}

/*
TestService_Create_PersistsAndCachesTheNewRow confirms a successful Create
both inserts the row and primes the Entity cache tier so the very next
GetByID is served without a second Store round-trip.
*/
func TestService_Create_PersistsAndCachesTheNewRow(t *testing.T) {
	store := newFakeStore()
	store.genres = []manhwa.Genre{{ID: 1, Name: "Action", Slug: "action"}}
	svc := newTestService(t, store, nil)

	created, err := svc.Create(context.Background(), manhwa.CreateInput{
		TitleData:  manhwa.TitleData{Primary: "Tower of God"},
		Status:     manhwa.StatusOngoing,
		GenreSlugs: []string{"action"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Tower of God", created.TitleData.Primary)

	delete(store.rows, created.ID) // prove the next read comes from cache, not the store
	row, err := svc.GetByID(context.Background(), created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, row.ID)
}

/*
TestService_Import_RejectsAlreadyImportedUpstreamID confirms importing an
upstream id already on file is rejected rather than creating a duplicate.
*/
func TestService_Import_RejectsAlreadyImportedUpstreamID(t *testing.T) {
	store := newFakeStore()
	upstreamID := "abc-123"
	_, err := store.Insert(context.Background(), &manhwa.Manhwa{
		UpstreamID: &upstreamID,
		DataSource: manhwa.DataSourceUpstream,
		TitleData:  manhwa.TitleData{Primary: "Existing"},
		Status:     manhwa.StatusOngoing,
	})
	require.NoError(t, err)

	svc := newTestService(t, store, &fakeUpstreamClient{})

	_, err = svc.Import(context.Background(), upstreamID)
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "BAD_INPUT", ae.Code)
}

/*
TestService_SyncOne_MarksFailedOnUpstreamError confirms a failed resync
leaves the row's syncStatus as Failed and returns a [apperr.SyncFailed]
wrapping the upstream cause, rather than leaving the prior status in place
silently.
*/
func TestService_SyncOne_MarksFailedOnUpstreamError(t *testing.T) {
	store := newFakeStore()
	upstreamID := "abc-123"
	id, err := store.Insert(context.Background(), &manhwa.Manhwa{
		UpstreamID: &upstreamID,
		DataSource: manhwa.DataSourceUpstream,
		TitleData:  manhwa.TitleData{Primary: "Existing"},
		Status:     manhwa.StatusOngoing,
		SyncStatus: manhwa.SyncStatusCurrent,
	})
	require.NoError(t, err)

	client := &fakeUpstreamClient{err: apperr.ExternalAPIError(assertErr{})}
	svc := newTestService(t, store, client)

	err = svc.SyncOne(context.Background(), id, upstreamID)
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "sync_failed", ae.Code)
	assert.Equal(t, manhwa.SyncStatusFailed, store.rows[id].SyncStatus)
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated upstream failure" }
