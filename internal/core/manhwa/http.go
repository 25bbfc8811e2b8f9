// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package manhwa's Handler exposes the catalogue over HTTP.

# Routing Strategy

  - Discovery (Public): search, lookup, trending/recent, genre listing.
  - Management (Admin Protected): creation, import, forced refresh, and
    operational introspection of the cache and sync subsystems.

The handler translates between the web/JSON layer and [Service]; it holds no
business logic of its own.
*/
package manhwa

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira/internal/platform/apperr"
	"github.com/taibuivan/yomira/internal/platform/middleware"
	requestutil "github.com/taibuivan/yomira/internal/platform/request"
	"github.com/taibuivan/yomira/internal/platform/respond"
	"github.com/taibuivan/yomira/internal/platform/validate"
)

// fullSyncTimeout bounds the detached goroutine POST /sync/all launches,
// since it intentionally outlives the request that triggered it.
const fullSyncTimeout = 10 * time.Minute

// Handler implements the HTTP layer for the catalogue domain.
//
// The operational sync endpoints are wired through plain function values
// rather than an interface onto the syncer package directly, since the
// syncer package depends on manhwa (for [Store] and [Manhwa]) and an
// interface referencing its concrete types back here would cycle.
type Handler struct {
	service    *Service
	syncNow    func(ctx context.Context) error
	syncStatus func() any
}

// NewHandler constructs a new manhwa [Handler]. syncNow and syncStatus may
// be nil if the background syncer has not been wired; the corresponding
// admin endpoints then report 503.
func NewHandler(service *Service, syncNow func(ctx context.Context) error, syncStatus func() any) *Handler {
	return &Handler{service: service, syncNow: syncNow, syncStatus: syncStatus}
}

// Routes returns a [chi.Router] configured with the catalogue's endpoints.
func (h *Handler) Routes(adminToken string) chi.Router {
	router := chi.NewRouter()

	// ## Public Discovery Endpoints
	router.Post("/search", h.search)
	router.Get("/{id}", h.getByID)
	router.Post("/bulk", h.bulkGet)
	router.Get("/trending", h.trending)
	router.Get("/recent", h.recentlyAdded)
	router.Get("/genres", h.listGenres)

	// ## Admin Protected
	router.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminGuard(adminToken))

		admin.Post("/", h.create)
		admin.Post("/import", h.importManhwa)
		admin.Post("/{id}/refresh", h.refresh)
		admin.Get("/cache/status", h.cacheStatus)
		admin.Post("/cache/clear", h.cacheClear)
		admin.Post("/sync/{id}", h.syncOneAdmin)
		admin.Post("/sync/all", h.syncAllAdmin)
		admin.Get("/sync/status", h.syncStatusHandler)
	})

	return router
}

// # Request Payloads

type searchRequest struct {
	Query  string   `json:"query"`
	Status []string `json:"status"`
	Genres []string `json:"genres"`
	Year   *struct {
		Start *int `json:"start"`
		End   *int `json:"end"`
	} `json:"year"`
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	IncludeExternal bool `json:"includeExternal"`
}

func (r searchRequest) toParams() SearchParams {
	filter := Filter{Genres: r.Genres}
	for _, s := range r.Status {
		filter.Status = append(filter.Status, Status(s))
	}
	if r.Year != nil {
		filter.YearRange = &YearRange{Start: r.Year.Start, End: r.Year.End}
	}
	return SearchParams{
		Query:           r.Query,
		Filter:          filter,
		Page:            r.Page,
		Limit:           r.Limit,
		IncludeExternal: r.IncludeExternal,
	}
}

// POST /api/v1/manhwa/search
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := requestutil.DecodeJSON(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}

	resp, err := h.service.Search(r.Context(), body.toParams())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, resp)
}

// GET /api/v1/manhwa/{id}
func (h *Handler) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	forceRefresh := r.URL.Query().Get("refresh") == "true"

	row, err := h.service.GetByID(r.Context(), id, forceRefresh)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, row)
}

type bulkGetRequest struct {
	IDs []int `json:"ids"`
}

// POST /api/v1/manhwa/bulk
func (h *Handler) bulkGet(w http.ResponseWriter, r *http.Request) {
	var body bulkGetRequest
	if err := requestutil.DecodeJSON(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}

	rows, err := h.service.BulkGet(r.Context(), body.IDs)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	entities := make(map[string]*Manhwa, len(rows))
	for _, row := range rows {
		entities[strconv.Itoa(row.ID)] = row
	}
	notFound := make([]int, 0)
	for _, id := range body.IDs {
		if _, ok := entities[strconv.Itoa(id)]; !ok {
			notFound = append(notFound, id)
		}
	}
	respond.OK(w, map[string]any{"entities": entities, "notFound": notFound})
}

// GET /api/v1/manhwa/trending
func (h *Handler) trending(w http.ResponseWriter, r *http.Request) {
	limit := parseLimitParam(r)
	rows, err := h.service.engine.Trending(r.Context(), limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, rows)
}

// GET /api/v1/manhwa/recent
func (h *Handler) recentlyAdded(w http.ResponseWriter, r *http.Request) {
	limit := parseLimitParam(r)
	rows, err := h.service.engine.RecentlyAdded(r.Context(), limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, rows)
}

// GET /api/v1/manhwa/genres
func (h *Handler) listGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.service.ListGenres(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, genres)
}

type createRequest struct {
	Title           string             `json:"title"`
	Alternatives    []TitleAlternative `json:"alternatives"`
	Romanized       string             `json:"romanized"`
	Synopsis        string             `json:"synopsis"`
	Status          string             `json:"status"`
	Publisher       *string            `json:"publisher"`
	StartYear       *int               `json:"startYear"`
	EndYear         *int               `json:"endYear"`
	SpecialChapters *int               `json:"specialChapters"`
	CoverThumb      string             `json:"coverThumb"`
	CoverMedium     string             `json:"coverMedium"`
	CoverLarge      string             `json:"coverLarge"`
	GenreSlugs      []string           `json:"genreSlugs"`
}

// POST /api/v1/manhwa (admin)
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := requestutil.DecodeJSON(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}

	v := &validate.Validator{}
	v.Required("title", body.Title)
	if err := v.Err(); err != nil {
		respond.Error(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), CreateInput{
		TitleData: TitleData{
			Primary:      body.Title,
			Alternatives: body.Alternatives,
			Romanized:    body.Romanized,
		},
		Synopsis:        body.Synopsis,
		Status:          Status(body.Status),
		Publisher:       body.Publisher,
		StartYear:       body.StartYear,
		EndYear:         body.EndYear,
		SpecialChapters: body.SpecialChapters,
		CoverThumb:      body.CoverThumb,
		CoverMedium:     body.CoverMedium,
		CoverLarge:      body.CoverLarge,
		GenreSlugs:      body.GenreSlugs,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Created(w, created)
}

type importRequest struct {
	UpstreamID string `json:"upstreamId"`
}

// POST /api/v1/manhwa/import (admin)
func (h *Handler) importManhwa(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	if err := requestutil.DecodeJSON(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}
	if strings.TrimSpace(body.UpstreamID) == "" {
		respond.Error(w, r, apperr.ValidationError("upstreamId is required", apperr.FieldError{Field: "upstreamId", Message: "This field is required"}))
		return
	}

	created, err := h.service.Import(r.Context(), body.UpstreamID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Created(w, created)
}

// POST /api/v1/manhwa/{id}/refresh (admin)
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	row, err := h.service.GetByID(r.Context(), id, true)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, row)
}

// GET /api/v1/manhwa/cache/status (admin)
func (h *Handler) cacheStatus(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, h.service.CacheStatus())
}

type cacheClearRequest struct {
	Pattern string `json:"pattern"`
}

// POST /api/v1/manhwa/cache/clear (admin)
func (h *Handler) cacheClear(w http.ResponseWriter, r *http.Request) {
	var body cacheClearRequest
	_ = requestutil.DecodeJSON(r, &body)
	removed := h.service.ClearCache(body.Pattern)
	respond.OK(w, map[string]int{"removed": removed})
}

// POST /api/v1/manhwa/sync/{id} (admin)
func (h *Handler) syncOneAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	row, err := h.service.store.FindByID(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	upstreamID := ""
	if row.UpstreamID != nil {
		upstreamID = *row.UpstreamID
	}

	if err := h.service.SyncOne(r.Context(), id, upstreamID); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.NoContent(w)
}

// POST /api/v1/manhwa/sync/all (admin)
func (h *Handler) syncAllAdmin(w http.ResponseWriter, r *http.Request) {
	if h.syncNow == nil {
		respond.Error(w, r, apperr.ServiceUnavailable("background sync is not configured"))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fullSyncTimeout)
		defer cancel()
		_ = h.syncNow(ctx)
	}()
	respond.NoContent(w)
}

// GET /api/v1/manhwa/sync/status (admin)
func (h *Handler) syncStatusHandler(w http.ResponseWriter, r *http.Request) {
	if h.syncStatus == nil {
		respond.Error(w, r, apperr.ServiceUnavailable("background sync is not configured"))
		return
	}
	respond.OK(w, h.syncStatus())
}

// # Helpers

func parseID(r *http.Request, name string) (int, error) {
	raw := requestutil.ID(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperr.BadInput("id must be a positive integer")
	}
	return id, nil
}

func parseLimitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 20
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 20
	}
	return n
}
