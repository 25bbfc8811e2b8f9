// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package manhwa defines the core domain entities of the catalogue.

It manages the lifecycle of Korean serialised web-comics sourced either
locally (created directly through the admin API) or from the upstream
third-party catalogue.

Core Responsibility:

  - Catalogue: Defines the Manhwa aggregate, its publication status, and the
    sync bookkeeping (dataSource, syncStatus, version, lastSyncedAt) needed to
    keep a local copy of an upstream-sourced title eventually consistent.
  - Discovery: Cross-references Genre associations for filtering.

This package acts as the source of truth for all catalogue-related data models.
*/
package manhwa

import "time"

// # Domain Enums

// DataSource identifies where a [Manhwa] row originated.
type DataSource string

const (
	// DataSourceLocal rows are created directly and never synchronise against Upstream.
	DataSourceLocal DataSource = "local"

	// DataSourceUpstream rows are mirrored from the external catalogue and are
	// eligible for background and forced re-synchronisation.
	DataSourceUpstream DataSource = "upstream"
)

// Status represents the publication status of a manhwa.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusHiatus    Status = "hiatus"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a recognised [Status] value.
func (s Status) IsValid() bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusHiatus, StatusCancelled:
		return true
	}
	return false
}

// SyncStatus tracks the freshness of an Upstream-sourced row.
type SyncStatus string

const (
	// SyncStatusCurrent means the row was synchronised within the last 24h.
	SyncStatusCurrent SyncStatus = "current"

	// SyncStatusOutdated means the row is eligible for the next background sweep.
	SyncStatusOutdated SyncStatus = "outdated"

	// SyncStatusFailed means the last sync attempt failed; retried with priority.
	SyncStatusFailed SyncStatus = "failed"
)

// # Core Entities

// TitleData is the structured title record carried by every [Manhwa].
type TitleData struct {
	// Primary is the canonical display title.
	Primary string `json:"primary"`
	// Alternatives holds (languageCode, title) pairs in no particular order.
	Alternatives []TitleAlternative `json:"alternatives,omitempty"`
	// Romanized is the Latin-alphabet transliteration, when known.
	Romanized string `json:"romanized,omitempty"`
}

// TitleAlternative is a single localized title.
type TitleAlternative struct {
	Language string `json:"language"`
	Title    string `json:"title"`
}

// Manhwa is the central aggregate of the catalogue domain.
type Manhwa struct {
	ID         int        `json:"id"`
	UpstreamID *string    `json:"upstreamId,omitempty"`
	DataSource DataSource `json:"dataSource"`

	TitleData TitleData `json:"titleData"`
	Synopsis  string    `json:"synopsis"`
	Status    Status    `json:"status"`

	Publisher       *string `json:"publisher,omitempty"`
	StartYear       *int    `json:"startYear,omitempty"`
	EndYear         *int    `json:"endYear,omitempty"`
	TotalChapters   *int    `json:"totalChapters,omitempty"`
	SpecialChapters *int    `json:"specialChapters,omitempty"`

	CoverThumb  string `json:"coverThumb,omitempty"`
	CoverMedium string `json:"coverMedium,omitempty"`
	CoverLarge  string `json:"coverLarge,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	SyncStatus   SyncStatus `json:"syncStatus"`
	Version      int        `json:"version"`

	Genres []Genre `json:"genres,omitempty"`

	// GenreIDs carries the junction write-set on Create; nil means "leave untouched".
	GenreIDs []int `json:"-"`
}

// Genre represents a genre/theme classifier attached to a [Manhwa].
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// # Search & Filtering

// YearRange selects rows whose [startYear, endYear] publication interval
// overlaps [Start, End]. Either bound may be nil (open), and a row with no
// end year is treated as still running.
type YearRange struct {
	Start *int
	End   *int
}

// Filter holds the parameters for a filtered manhwa list query.
type Filter struct {
	Status    []Status
	Genres    []string // genre slugs
	YearRange *YearRange
}

// # Field Identifiers

const (
	FieldID         = "id"
	FieldUpstreamID = "upstreamId"
	FieldTitle      = "titleData"
	FieldSynopsis   = "synopsis"
	FieldStatus     = "status"
	FieldGenres     = "genres"
)
