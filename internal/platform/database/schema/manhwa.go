package schema

// ManhwaTable represents the 'catalogue.manhwa' table.
type ManhwaTable struct {
	Table           string
	ID              string
	UpstreamID      string
	DataSource      string
	TitlePrimary    string
	TitleAlt        string
	TitleRomanized  string
	Synopsis        string
	Status          string
	Publisher       string
	StartYear       string
	EndYear         string
	TotalChapters   string
	SpecialChapters string
	CoverThumb      string
	CoverMedium     string
	CoverLarge      string
	CreatedAt       string
	UpdatedAt       string
	LastSyncedAt    string
	SyncStatus      string
	Version         string
	SearchVector    string
}

// Manhwa is the schema definition for catalogue.manhwa.
var Manhwa = ManhwaTable{
	Table:           "catalogue.manhwa",
	ID:              "id",
	UpstreamID:      "upstream_id",
	DataSource:      "data_source",
	TitlePrimary:    "title_primary",
	TitleAlt:        "title_alt",
	TitleRomanized:  "title_romanized",
	Synopsis:        "synopsis",
	Status:          "status",
	Publisher:       "publisher",
	StartYear:       "start_year",
	EndYear:         "end_year",
	TotalChapters:   "total_chapters",
	SpecialChapters: "special_chapters",
	CoverThumb:      "cover_thumb",
	CoverMedium:     "cover_medium",
	CoverLarge:      "cover_large",
	CreatedAt:       "created_at",
	UpdatedAt:       "updated_at",
	LastSyncedAt:    "last_synced_at",
	SyncStatus:      "sync_status",
	Version:         "version",
	SearchVector:    "search_vector",
}

func (t ManhwaTable) Columns() []string {
	return []string{
		t.ID, t.UpstreamID, t.DataSource, t.TitlePrimary, t.TitleAlt, t.TitleRomanized,
		t.Synopsis, t.Status, t.Publisher, t.StartYear, t.EndYear, t.TotalChapters,
		t.SpecialChapters, t.CoverThumb, t.CoverMedium, t.CoverLarge,
		t.CreatedAt, t.UpdatedAt, t.LastSyncedAt, t.SyncStatus, t.Version,
	}
}

// GenreTable represents the 'catalogue.genre' table.
type GenreTable struct {
	Table string
	ID    string
	Name  string
	Slug  string
}

// Genre is the schema definition for catalogue.genre.
var Genre = GenreTable{
	Table: "catalogue.genre",
	ID:    "id",
	Name:  "name",
	Slug:  "slug",
}

func (t GenreTable) Columns() []string {
	return []string{t.ID, t.Name, t.Slug}
}

// ManhwaGenreTable represents the 'catalogue.manhwa_genre' junction table.
type ManhwaGenreTable struct {
	Table     string
	ManhwaID  string
	GenreID   string
}

// ManhwaGenre is the schema definition for catalogue.manhwa_genre.
var ManhwaGenre = ManhwaGenreTable{
	Table:    "catalogue.manhwa_genre",
	ManhwaID: "manhwa_id",
	GenreID:  "genre_id",
}
