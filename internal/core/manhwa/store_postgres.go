// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package manhwa's PostgreSQL store implements the full-text query contract
described in the catalogue specification:

  - FullTextSearch ranks rows against 'websearch_to_tsquery('simple', unaccent($n))'
    run against the precomputed search_vector column, AND-composed with status,
    genre, and year-range filters, and returns the relevance rank as a score.
  - FilterSearch serves the empty-query path, ordering by updated_at desc.
  - Update recomputes nothing itself: a database trigger (see migrations)
    recomputes search_vector whenever title_primary or synopsis changes;
    this store only issues the UPDATE.

It follows the dynamic WHERE-builder and window-function-count idiom used
elsewhere in this codebase's PostgreSQL repositories.
*/
package manhwa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira/internal/platform/apperr"
	"github.com/taibuivan/yomira/internal/platform/database/schema"
	"github.com/taibuivan/yomira/internal/platform/dberr"
)

// marshalTitleAlts encodes the alternative-title set stored in the
// title_alt jsonb column.
func marshalTitleAlts(alts []TitleAlternative) ([]byte, error) {
	if alts == nil {
		alts = []TitleAlternative{}
	}
	return json.Marshal(alts)
}

// unmarshalTitleAlts decodes the title_alt jsonb column back into its slice form.
func unmarshalTitleAlts(raw []byte, out *[]TitleAlternative) error {
	return json.Unmarshal(raw, out)
}

// postgresStore implements [Store] using pgx.
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgreSQL-backed manhwa store.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

// columns used by every row-hydrating SELECT, in scan order.
var manhwaColumns = []string{
	schema.Manhwa.ID, schema.Manhwa.UpstreamID, schema.Manhwa.DataSource,
	schema.Manhwa.TitlePrimary, schema.Manhwa.TitleAlt, schema.Manhwa.TitleRomanized,
	schema.Manhwa.Synopsis, schema.Manhwa.Status,
	schema.Manhwa.Publisher, schema.Manhwa.StartYear, schema.Manhwa.EndYear,
	schema.Manhwa.TotalChapters, schema.Manhwa.SpecialChapters,
	schema.Manhwa.CoverThumb, schema.Manhwa.CoverMedium, schema.Manhwa.CoverLarge,
	schema.Manhwa.CreatedAt, schema.Manhwa.UpdatedAt,
	schema.Manhwa.LastSyncedAt, schema.Manhwa.SyncStatus, schema.Manhwa.Version,
}

// scanManhwa scans the manhwaColumns projection (plus titleAlt raw JSON) into a row.
func scanManhwa(row pgx.Row) (*Manhwa, error) {
	m := &Manhwa{}
	var titleAltJSON []byte

	err := row.Scan(
		&m.ID, &m.UpstreamID, &m.DataSource,
		&m.TitleData.Primary, &titleAltJSON, &m.TitleData.Romanized,
		&m.Synopsis, &m.Status,
		&m.Publisher, &m.StartYear, &m.EndYear,
		&m.TotalChapters, &m.SpecialChapters,
		&m.CoverThumb, &m.CoverMedium, &m.CoverLarge,
		&m.CreatedAt, &m.UpdatedAt,
		&m.LastSyncedAt, &m.SyncStatus, &m.Version,
	)
	if err != nil {
		return nil, err
	}

	if len(titleAltJSON) > 0 {
		if err := unmarshalTitleAlts(titleAltJSON, &m.TitleData.Alternatives); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal title alternatives: %w", err)
		}
	}

	return m, nil
}

func selectColumnsSQL() string {
	quoted := make([]string, len(manhwaColumns))
	copy(quoted, manhwaColumns)
	return strings.Join(quoted, ", ")
}

// FindByID returns the manhwa with the given id, including its genre links.
func (s *postgresStore) FindByID(ctx context.Context, id int) (*Manhwa, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		selectColumnsSQL(), schema.Manhwa.Table, schema.Manhwa.ID)

	m, err := scanManhwa(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Manhwa")
		}
		return nil, dberr.Wrap(err, "find_manhwa_by_id")
	}

	genres, err := s.genresForManhwa(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Genres = genres

	return m, nil
}

// FindByIDs returns every manhwa among ids that exists; missing ids are omitted.
func (s *postgresStore) FindByIDs(ctx context.Context, ids []int) ([]*Manhwa, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ANY($1)`,
		selectColumnsSQL(), schema.Manhwa.Table, schema.Manhwa.ID)

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, dberr.Wrap(err, "find_manhwa_by_ids")
	}
	defer rows.Close()

	var out []*Manhwa
	for rows.Next() {
		m, err := scanManhwa(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_manhwa")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "find_manhwa_by_ids")
	}

	for _, m := range out {
		genres, err := s.genresForManhwa(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		m.Genres = genres
	}

	return out, nil
}

// FindByUpstreamID returns the manhwa mirrored from the given upstream id.
func (s *postgresStore) FindByUpstreamID(ctx context.Context, upstreamID string) (*Manhwa, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		selectColumnsSQL(), schema.Manhwa.Table, schema.Manhwa.UpstreamID)

	m, err := scanManhwa(s.pool.QueryRow(ctx, query, upstreamID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Manhwa")
		}
		return nil, dberr.Wrap(err, "find_manhwa_by_upstream_id")
	}
	return m, nil
}

// Insert persists a new manhwa row and its genre junction links within a
// single transaction, returning the assigned id.
func (s *postgresStore) Insert(ctx context.Context, row *Manhwa) (int, error) {
	titleAltJSON, err := marshalTitleAlts(row.TitleData.Alternatives)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to marshal title alternatives: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, dberr.Wrap(err, "begin_insert_manhwa")
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO %s (
			%s, %s, %s, %s, %s, %s, %s,
			%s, %s, %s, %s, %s,
			%s, %s, %s,
			%s, %s, %s
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING %s`,
		schema.Manhwa.Table,
		schema.Manhwa.UpstreamID, schema.Manhwa.DataSource, schema.Manhwa.TitlePrimary,
		schema.Manhwa.TitleAlt, schema.Manhwa.TitleRomanized, schema.Manhwa.Synopsis, schema.Manhwa.Status,
		schema.Manhwa.Publisher, schema.Manhwa.StartYear, schema.Manhwa.EndYear,
		schema.Manhwa.TotalChapters, schema.Manhwa.SpecialChapters,
		schema.Manhwa.CoverThumb, schema.Manhwa.CoverMedium, schema.Manhwa.CoverLarge,
		schema.Manhwa.LastSyncedAt, schema.Manhwa.SyncStatus, schema.Manhwa.Version,
		schema.Manhwa.ID,
	)

	var id int
	err = tx.QueryRow(ctx, query,
		row.UpstreamID, row.DataSource, row.TitleData.Primary,
		titleAltJSON, row.TitleData.Romanized, row.Synopsis, row.Status,
		row.Publisher, row.StartYear, row.EndYear,
		row.TotalChapters, row.SpecialChapters,
		row.CoverThumb, row.CoverMedium, row.CoverLarge,
		row.LastSyncedAt, row.SyncStatus, 1,
	).Scan(&id)
	if err != nil {
		return 0, dberr.Wrap(err, "insert_manhwa")
	}

	if len(row.GenreIDs) > 0 {
		if err := s.replaceGenreLinks(ctx, tx, id, row.GenreIDs); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, dberr.Wrap(err, "commit_insert_manhwa")
	}

	return id, nil
}

// Update applies a partial update, letting the database trigger recompute
// search_vector whenever title_primary or synopsis is touched (invariant 2).
func (s *postgresStore) Update(ctx context.Context, id int, patch UpdatePatch) error {
	var set []string
	var args []any
	argID := 1

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argID))
		args = append(args, val)
		argID++
	}

	if patch.TitleData != nil {
		add(schema.Manhwa.TitlePrimary, patch.TitleData.Primary)
		altJSON, err := marshalTitleAlts(patch.TitleData.Alternatives)
		if err != nil {
			return fmt.Errorf("postgres: failed to marshal title alternatives: %w", err)
		}
		add(schema.Manhwa.TitleAlt, altJSON)
		add(schema.Manhwa.TitleRomanized, patch.TitleData.Romanized)
	}
	if patch.Synopsis != nil {
		add(schema.Manhwa.Synopsis, *patch.Synopsis)
	}
	if patch.Status != nil {
		add(schema.Manhwa.Status, *patch.Status)
	}
	if patch.Publisher != nil {
		add(schema.Manhwa.Publisher, *patch.Publisher)
	}
	if patch.StartYear != nil {
		add(schema.Manhwa.StartYear, *patch.StartYear)
	}
	if patch.EndYear != nil {
		add(schema.Manhwa.EndYear, *patch.EndYear)
	}
	if patch.TotalChapters != nil {
		add(schema.Manhwa.TotalChapters, *patch.TotalChapters)
	}
	if patch.SpecialChapters != nil {
		add(schema.Manhwa.SpecialChapters, *patch.SpecialChapters)
	}
	if patch.CoverThumb != nil {
		add(schema.Manhwa.CoverThumb, *patch.CoverThumb)
	}
	if patch.CoverMedium != nil {
		add(schema.Manhwa.CoverMedium, *patch.CoverMedium)
	}
	if patch.CoverLarge != nil {
		add(schema.Manhwa.CoverLarge, *patch.CoverLarge)
	}
	if patch.LastSyncedAt != nil {
		add(schema.Manhwa.LastSyncedAt, *patch.LastSyncedAt)
	}
	if patch.SyncStatus != nil {
		add(schema.Manhwa.SyncStatus, *patch.SyncStatus)
	}
	if patch.BumpVersion {
		set = append(set, fmt.Sprintf("%s = %s + 1", schema.Manhwa.Version, schema.Manhwa.Version))
	}
	set = append(set, fmt.Sprintf("%s = NOW()", schema.Manhwa.UpdatedAt))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "begin_update_manhwa")
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $%d`,
		schema.Manhwa.Table, strings.Join(set, ", "), schema.Manhwa.ID, argID)
	args = append(args, id)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return dberr.Wrap(err, "update_manhwa")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Manhwa")
	}

	if patch.GenreIDs != nil {
		if err := s.replaceGenreLinks(ctx, tx, id, patch.GenreIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Wrap(err, "commit_update_manhwa")
	}

	return nil
}

// MarkSyncFailed flags a row's syncStatus as Failed after a failed sync attempt.
func (s *postgresStore) MarkSyncFailed(ctx context.Context, id int) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2`,
		schema.Manhwa.Table, schema.Manhwa.SyncStatus, schema.Manhwa.UpdatedAt, schema.Manhwa.ID)

	tag, err := s.pool.Exec(ctx, query, SyncStatusFailed, id)
	if err != nil {
		return dberr.Wrap(err, "mark_sync_failed")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Manhwa")
	}
	return nil
}

// FullTextSearch ranks rows against query using the precomputed search
// vector, AND-composed with filter, and paginates the result (§4.1).
func (s *postgresStore) FullTextSearch(ctx context.Context, query string, filter Filter, limit, offset int) ([]SearchResult, int, error) {
	var where []string
	var args []any
	argID := 1

	tsQueryArg := argID
	args = append(args, query)
	argID++
	where = append(where, fmt.Sprintf(
		"%s @@ websearch_to_tsquery('simple', unaccent($%d))", schema.Manhwa.SearchVector, tsQueryArg))

	whereExtra, args := buildFilterClauses("m", filter, &argID, args)
	where = append(where, whereExtra...)

	sql := fmt.Sprintf(`
		SELECT %s,
			COUNT(*) OVER() AS total_count,
			ts_rank(%s, websearch_to_tsquery('simple', unaccent($%d))) AS score
		FROM %s
		WHERE %s
		ORDER BY score DESC, %s DESC
		LIMIT $%d OFFSET $%d`,
		prefixedColumns("m"), "m."+schema.Manhwa.SearchVector, tsQueryArg,
		schema.Manhwa.Table+" m",
		strings.Join(where, " AND "),
		"m."+schema.Manhwa.ID,
		argID, argID+1,
	)
	args = append(args, limit, offset)

	return s.runSearchQuery(ctx, sql, args, true)
}

// FilterSearch serves the empty-query path: order by updatedAt desc (§4.1).
func (s *postgresStore) FilterSearch(ctx context.Context, filter Filter, limit, offset int) ([]SearchResult, int, error) {
	argID := 1
	var args []any
	where, args := buildFilterClauses("m", filter, &argID, args)
	if len(where) == 0 {
		where = []string{"TRUE"}
	}

	sql := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d`,
		prefixedColumns("m"),
		schema.Manhwa.Table+" m",
		strings.Join(where, " AND "),
		"m."+schema.Manhwa.UpdatedAt,
		argID, argID+1,
	)
	args = append(args, limit, offset)

	return s.runSearchQuery(ctx, sql, args, false)
}

// ListTrending returns up to limit Ongoing rows ordered by updatedAt desc.
func (s *postgresStore) ListTrending(ctx context.Context, limit int) ([]*Manhwa, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT $2`,
		selectColumnsSQL(), schema.Manhwa.Table, schema.Manhwa.Status, schema.Manhwa.UpdatedAt)
	return s.listSimple(ctx, query, StatusOngoing, limit)
}

// ListRecentlyAdded returns up to limit rows ordered by createdAt desc.
func (s *postgresStore) ListRecentlyAdded(ctx context.Context, limit int) ([]*Manhwa, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s DESC LIMIT $1`,
		selectColumnsSQL(), schema.Manhwa.Table, schema.Manhwa.CreatedAt)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_recently_added")
	}
	defer rows.Close()
	return collectManhwa(rows)
}

// ListOutdated selects up to 100 Upstream-sourced rows eligible for the
// background sync sweep, Failed-first then oldest lastSyncedAt first (§4.7).
func (s *postgresStore) ListOutdated(ctx context.Context) ([]*Manhwa, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s IS NOT NULL
			AND (%s IS NULL OR %s < $2 OR %s = $3)
		ORDER BY (%s = $3) DESC, %s ASC NULLS FIRST
		LIMIT 100`,
		selectColumnsSQL(), schema.Manhwa.Table,
		schema.Manhwa.DataSource, schema.Manhwa.UpstreamID,
		schema.Manhwa.LastSyncedAt, schema.Manhwa.LastSyncedAt, schema.Manhwa.SyncStatus,
		schema.Manhwa.SyncStatus, schema.Manhwa.LastSyncedAt,
	)

	cutoff := time.Now().Add(-24 * time.Hour)
	rows, err := s.pool.Query(ctx, query, DataSourceUpstream, cutoff, SyncStatusFailed)
	if err != nil {
		return nil, dberr.Wrap(err, "list_outdated")
	}
	defer rows.Close()
	return collectManhwa(rows)
}

// ListGenresBySlug resolves a set of genre slugs to their full records.
func (s *postgresStore) ListGenresBySlug(ctx context.Context, slugs []string) ([]Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = ANY($1)`,
		schema.Genre.ID, schema.Genre.Name, schema.Genre.Slug, schema.Genre.Table, schema.Genre.Slug)

	rows, err := s.pool.Query(ctx, query, slugs)
	if err != nil {
		return nil, dberr.Wrap(err, "list_genres_by_slug")
	}
	defer rows.Close()

	var out []Genre
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, dberr.Wrap(err, "scan_genre")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListAllGenres returns every known genre ordered by name ascending.
func (s *postgresStore) ListAllGenres(ctx context.Context) ([]Genre, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s FROM %s ORDER BY %s ASC`,
		schema.Genre.ID, schema.Genre.Name, schema.Genre.Slug, schema.Genre.Table, schema.Genre.Name)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_all_genres")
	}
	defer rows.Close()

	var out []Genre
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, dberr.Wrap(err, "scan_genre")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// # Internal helpers

// buildFilterClauses AND-composes status, genre, and year-range filters
// (§4.1), qualifying every manhwa column reference with alias. Year-range
// matches rows whose [startYear, endYear] interval overlaps the requested
// interval, treating a null endYear as open-ended.
func buildFilterClauses(alias string, filter Filter, argID *int, args []any) ([]string, []any) {
	var where []string
	col := func(name string) string { return alias + "." + name }

	if len(filter.Status) > 0 {
		where = append(where, fmt.Sprintf("%s = ANY($%d)", col(schema.Manhwa.Status), *argID))
		args = append(args, filter.Status)
		*argID++
	}

	if len(filter.Genres) > 0 {
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM %s mg JOIN %s g ON g.%s = mg.%s
			WHERE mg.%s = %s AND g.%s = ANY($%d)
		)`, schema.ManhwaGenre.Table, schema.Genre.Table, schema.Genre.ID, schema.ManhwaGenre.GenreID,
			schema.ManhwaGenre.ManhwaID, col(schema.Manhwa.ID), schema.Genre.Slug, *argID))
		args = append(args, filter.Genres)
		*argID++
	}

	if filter.YearRange != nil {
		yr := filter.YearRange
		if yr.Start != nil {
			where = append(where, fmt.Sprintf(
				"(%s IS NULL OR %s >= $%d)", col(schema.Manhwa.EndYear), col(schema.Manhwa.EndYear), *argID))
			args = append(args, *yr.Start)
			*argID++
		}
		if yr.End != nil {
			where = append(where, fmt.Sprintf("%s <= $%d", col(schema.Manhwa.StartYear), *argID))
			args = append(args, *yr.End)
			*argID++
		}
	}

	return where, args
}

func prefixedColumns(alias string) string {
	cols := make([]string, len(manhwaColumns))
	for i, c := range manhwaColumns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// runSearchQuery executes a paginated search SQL string and hydrates
// [SearchResult] rows, optionally scanning a trailing rank column.
func (s *postgresStore) runSearchQuery(ctx context.Context, sql string, args []any, withScore bool) ([]SearchResult, int, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "search_manhwa")
	}
	defer rows.Close()

	var results []SearchResult
	var total int

	for rows.Next() {
		m := &Manhwa{}
		var titleAltJSON []byte
		var score float64

		scanTargets := []any{
			&m.ID, &m.UpstreamID, &m.DataSource,
			&m.TitleData.Primary, &titleAltJSON, &m.TitleData.Romanized,
			&m.Synopsis, &m.Status,
			&m.Publisher, &m.StartYear, &m.EndYear,
			&m.TotalChapters, &m.SpecialChapters,
			&m.CoverThumb, &m.CoverMedium, &m.CoverLarge,
			&m.CreatedAt, &m.UpdatedAt,
			&m.LastSyncedAt, &m.SyncStatus, &m.Version,
			&total,
		}
		if withScore {
			scanTargets = append(scanTargets, &score)
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_search_result")
		}
		if len(titleAltJSON) > 0 {
			if err := unmarshalTitleAlts(titleAltJSON, &m.TitleData.Alternatives); err != nil {
				return nil, 0, fmt.Errorf("postgres: failed to unmarshal title alternatives: %w", err)
			}
		}

		results = append(results, SearchResult{Manhwa: m, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "search_manhwa")
	}

	return results, total, nil
}

func (s *postgresStore) listSimple(ctx context.Context, query string, args ...any) ([]*Manhwa, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "list_manhwa")
	}
	defer rows.Close()
	return collectManhwa(rows)
}

func collectManhwa(rows pgx.Rows) ([]*Manhwa, error) {
	var out []*Manhwa
	for rows.Next() {
		m, err := scanManhwa(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_manhwa")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// genresForManhwa hydrates the genre slice for a single manhwa via the
// junction table.
func (s *postgresStore) genresForManhwa(ctx context.Context, id int) ([]Genre, error) {
	query := fmt.Sprintf(`
		SELECT g.%s, g.%s, g.%s
		FROM %s g
		JOIN %s mg ON mg.%s = g.%s
		WHERE mg.%s = $1
		ORDER BY g.%s ASC`,
		schema.Genre.ID, schema.Genre.Name, schema.Genre.Slug,
		schema.Genre.Table, schema.ManhwaGenre.Table,
		schema.ManhwaGenre.GenreID, schema.Genre.ID,
		schema.ManhwaGenre.ManhwaID, schema.Genre.Name,
	)

	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, dberr.Wrap(err, "list_manhwa_genres")
	}
	defer rows.Close()

	var out []Genre
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, dberr.Wrap(err, "scan_genre")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// replaceGenreLinks implements the clear-and-insert junction rewrite used
// throughout the catalogue (grounded on comic.updateJunction).
func (s *postgresStore) replaceGenreLinks(ctx context.Context, tx pgx.Tx, manhwaID int, genreIDs []int) error {
	delQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.ManhwaGenre.Table, schema.ManhwaGenre.ManhwaID)
	if _, err := tx.Exec(ctx, delQuery, manhwaID); err != nil {
		return dberr.Wrap(err, "clear_manhwa_genres")
	}
	if len(genreIDs) == 0 {
		return nil
	}

	insQuery := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`,
		schema.ManhwaGenre.Table, schema.ManhwaGenre.ManhwaID, schema.ManhwaGenre.GenreID)
	batch := &pgx.Batch{}
	for _, gid := range genreIDs {
		batch.Queue(insQuery, manhwaID, gid)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return dberr.Wrap(err, "insert_manhwa_genres")
	}
	return nil
}
