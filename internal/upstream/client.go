// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package upstream is the client for the external Korean manhwa catalogue
("Upstream") that Manhwa rows with dataSource = Upstream mirror.

Core Responsibility:

  - Transport: issues rate-limited, retried HTTP requests against Upstream,
    grounded on headtomatoes-mangahub's MangaDexClient — the same 10 s
    client-level timeout, exponential-backoff retry loop, and
    shouldRetry(status) idiom (a Retry-After header is reported in the
    returned RateLimited error; it does not set the wait between attempts),
    adapted to a non-blocking rate limiter
    (Allow, not Wait) since the specification treats RateLimited as the
    only backpressure surface the caller ever sees.
  - Session: maintains a proactively-refreshed session token for the
    handful of protected endpoints, attaching it only where required.
  - Normalisation: reduces raw upstream error and manga payloads into the
    core's [apperr.AppError] kinds and [Transformed] records respectively.
*/
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/yomira/internal/platform/apperr"
)

const (
	requestTimeout = 10 * time.Second

	maxRetries   = 3
	initialDelay = 500 * time.Millisecond
	maxDelay     = 8 * time.Second

	paginationCeiling = 10000
)

// Config carries the credentials and identity the client presents to Upstream.
type Config struct {
	BaseURL   string
	Username  string
	Secret    string
	UserAgent string
}

// Client is the Upstream HTTP client.
type Client struct {
	baseURL   string
	username  string
	secret    string
	userAgent string

	httpClient *http.Client
	limiters   *limiterSet

	token          *sessionToken
	tokenRefreshMu sync.Mutex

	logger *slog.Logger
}

// NewClient constructs an Upstream client. The HTTP timeout is set on the
// client itself (not per-request), as in the teacher's MangaDexClient.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		username:  cfg.Username,
		secret:    cfg.Secret,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		limiters: newLimiterSet(),
		token:    &sessionToken{},
		logger:   logger,
	}
}

// SearchResult is the normalised response from [Client.Search].
type SearchResult struct {
	Results []Transformed
	Total   int
}

// Search queries Upstream's manga search endpoint and transforms every hit.
//
// The caller's pagination ceiling is enforced before any HTTP call is made:
// offset+limit > 10000 always yields [apperr.PaginationLimitExceeded] (§8
// property 6).
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Offset+params.Limit > paginationCeiling {
		return nil, apperr.PaginationLimitExceeded()
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := url.Values{}
	if params.Title != "" {
		query.Set("title", params.Title)
	}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(params.Offset))

	contentRating := params.ContentRating
	if len(contentRating) == 0 {
		contentRating = []string{"safe", "suggestive"}
	}
	for _, cr := range contentRating {
		query.Add("contentRating[]", cr)
	}
	for _, st := range params.Status {
		query.Add("status[]", st)
	}
	for _, demo := range params.PublicationDemo {
		query.Add("publicationDemographic[]", demo)
	}
	for _, tag := range params.IncludedTagIDs {
		query.Add("includedTags[]", tag)
	}
	for _, tag := range params.ExcludedTagIDs {
		query.Add("excludedTags[]", tag)
	}
	query.Set("order[relevance]", "desc")
	query.Add("includes[]", "cover_art")
	query.Add("includes[]", "author")
	query.Add("includes[]", "artist")

	var resp searchResponse
	if err := c.doRequest(ctx, http.MethodGet, "/manga", query, false, &resp); err != nil {
		return nil, err
	}

	out := &SearchResult{Total: resp.Total}
	for _, record := range resp.Data {
		transformed := transformManga(record)
		out.Results = append(out.Results, transformed)
	}
	return out, nil
}

// GetManga fetches and transforms a single manga record by its upstream id.
func (c *Client) GetManga(ctx context.Context, upstreamID string) (*Transformed, error) {
	query := url.Values{}
	query.Add("includes[]", "cover_art")
	query.Add("includes[]", "author")
	query.Add("includes[]", "artist")

	var resp entityResponse
	if err := c.doRequest(ctx, http.MethodGet, "/manga/"+upstreamID, query, false, &resp); err != nil {
		return nil, err
	}

	transformed := transformManga(resp.Data)
	return &transformed, nil
}

// ListTags returns Upstream's tag dictionary. Failures degrade to an empty
// list rather than propagating (§4.4 "Failures return an empty list").
func (c *Client) ListTags(ctx context.Context) []Tag {
	var resp tagListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/manga/tag", nil, false, &resp); err != nil {
		if c.logger != nil {
			c.logger.Warn("upstream_list_tags_failed", slog.String("error", err.Error()))
		}
		return nil
	}

	tags := make([]Tag, 0, len(resp.Data))
	for _, t := range resp.Data {
		tags = append(tags, Tag{
			ID:    t.ID,
			Name:  resolveTagName(t.Attributes.Name),
			Group: t.Attributes.Group,
		})
	}
	return tags
}

// login exchanges the configured credentials for a fresh session token,
// storing it for ensureToken to reuse until it nears expiry.
func (c *Client) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.secret,
	})
	if err != nil {
		return "", fmt.Errorf("upstream: failed to encode login body: %w", err)
	}

	var resp loginResponse
	if err := c.doRequestWithBody(ctx, http.MethodPost, "/auth/login", nil, body, false, &resp); err != nil {
		return "", err
	}

	c.token.set(resp.Token.Session)
	return resp.Token.Session, nil
}

// doRequest issues a GET-shaped (no body) request.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, authenticated bool, result any) error {
	return c.doRequestWithBody(ctx, method, path, query, nil, authenticated, result)
}

// doRequestWithBody performs a rate-limited, retried HTTP round-trip,
// attaching the session token when the path requires it, and retrying once
// on a 401 from a protected endpoint after discarding the cached token.
func (c *Client) doRequestWithBody(ctx context.Context, method, path string, query url.Values, body []byte, authenticated bool, result any) error {
	endpointName := c.endpointBucket(path)
	if err := c.limiters.Allow(endpointName); err != nil {
		return err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	needsAuth := authenticated || isProtectedPath(path)
	usedRetryOnUnauthorized := false

	delay := initialDelay
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader(body))
		if err != nil {
			return fmt.Errorf("upstream: failed to build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		if needsAuth {
			token, err := c.ensureToken(ctx)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				time.Sleep(delay)
				delay = minDuration(delay*2, maxDelay)
				continue
			}
			return apperr.ExternalAPIError(fmt.Errorf("upstream: request failed after %d attempts: %w", maxRetries+1, lastErr))
		}

		status, retryErr := c.handleResponse(resp, result)
		resp.Body.Close()

		if retryErr == nil {
			return nil
		}

		if status == http.StatusUnauthorized && needsAuth && !usedRetryOnUnauthorized {
			usedRetryOnUnauthorized = true
			c.token.clear()
			continue
		}

		if shouldRetry(status) && attempt < maxRetries {
			lastErr = retryErr
			time.Sleep(delay)
			delay = minDuration(delay*2, maxDelay)
			continue
		}

		if appErr := apperr.As(retryErr); appErr != nil {
			return appErr
		}

		return retryErr
	}

	return apperr.ExternalAPIError(fmt.Errorf("upstream: request failed after %d attempts: %w", maxRetries+1, lastErr))
}

// handleResponse decodes a successful body into result, or maps a non-2xx
// response into a typed error. It returns the raw HTTP status so the caller
// can decide whether to retry or re-authenticate.
func (c *Client) handleResponse(resp *http.Response, result any) (int, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if result == nil {
			return resp.StatusCode, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("upstream: failed to decode response: %w", err)
		}
		return resp.StatusCode, nil
	}

	raw, _ := io.ReadAll(resp.Body)

	var envelope errorResponse
	_ = json.Unmarshal(raw, &envelope)

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, apperr.Unauthorized("upstream session token rejected")
	}

	if len(envelope.Errors) > 0 {
		return resp.StatusCode, mapUpstreamError(envelope.Errors[0], resp.StatusCode)
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			return resp.StatusCode, apperr.RateLimited(seconds)
		}
	}

	ae := apperr.ExternalAPIError(fmt.Errorf("upstream: HTTP %d: %s", resp.StatusCode, string(raw)))
	ae.HTTPStatus = resp.StatusCode
	return resp.StatusCode, ae
}

// mapUpstreamError normalises Upstream's {result:"error", errors:[...]}
// payload into the core's error kinds (§4.4).
func mapUpstreamError(item apiErrItem, httpStatus int) error {
	switch item.Title {
	case "captcha_required_exception":
		captcha := apperr.RateLimited(0).WithCode("captcha_required")
		captcha.HTTPStatus = http.StatusForbidden
		return captcha
	case "validation_exception":
		return apperr.BadInput(item.Detail)
	case "entity_not_found_exception":
		return apperr.NotFound("Upstream manga")
	default:
		ae := apperr.ExternalAPIError(fmt.Errorf("upstream: %s: %s (http %d)", item.Title, item.Detail, httpStatus))
		ae.HTTPStatus = httpStatus
		return ae
	}
}

// endpointBucket maps a request path to the named rate-limit overlay it
// belongs to, or "" for the unoverlaid default bucket.
func (c *Client) endpointBucket(path string) string {
	switch {
	case strings.HasPrefix(path, "/auth/login"):
		return "login"
	case strings.HasPrefix(path, "/manga/random"):
		return "random"
	default:
		return ""
	}
}

// shouldRetry reports whether an HTTP status warrants a retry: 429 or 5xx.
func shouldRetry(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}
