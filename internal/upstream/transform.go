// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package upstream

import (
	"fmt"
	"strings"
)

// Transformed is a partial manhwa record reduced from an upstream catalogue
// entry, ready for [manhwa.Manhwa] assembly by the calling service.
type Transformed struct {
	UpstreamID      string
	TitlePrimary    string
	TitleAlternatives []TitleAlt
	TitleRomanized  string
	Synopsis        string
	Status          string
	TotalChapters   int
	GenreNames      []string
	CoverFileName   string
}

// TitleAlt is a single localized title pulled from an upstream altTitles entry.
type TitleAlt struct {
	Language string
	Title    string
}

// preferredTitleLanguages is the fallback order used for both title and
// description selection (§4.4: "first non-empty of en, ko, ja, else any").
var preferredTitleLanguages = []string{"en", "ko", "ja"}

// romanizedKeys are the alt-title language keys that carry a Latin-alphabet
// transliteration.
var romanizedKeys = []string{"ja-ro", "ko-ro", "en-ro"}

// statusDefault is used whenever Upstream reports an unrecognised status.
const statusDefault = "ongoing"

var knownStatuses = map[string]struct{}{
	"ongoing":   {},
	"completed": {},
	"hiatus":    {},
	"cancelled": {},
}

// preferredString returns the first non-empty value among preferred keys,
// else the first available value in m (in unspecified map order), else "".
func preferredString(m titleMap, preferred []string) string {
	for _, lang := range preferred {
		if v, ok := m[lang]; ok && v != "" {
			return v
		}
	}
	for _, v := range m {
		if v != "" {
			return v
		}
	}
	return ""
}

// transformManga reduces a raw upstream manga record into [Transformed].
func transformManga(data mangaData) Transformed {
	t := Transformed{
		UpstreamID:   data.ID,
		TitlePrimary: preferredString(data.Attributes.Title, preferredTitleLanguages),
		Synopsis:     preferredString(data.Attributes.Description, preferredTitleLanguages),
	}

	for _, alt := range data.Attributes.AltTitles {
		for lang, title := range alt {
			t.TitleAlternatives = append(t.TitleAlternatives, TitleAlt{Language: lang, Title: title})
			for _, roKey := range romanizedKeys {
				if lang == roKey && t.TitleRomanized == "" {
					t.TitleRomanized = title
				}
			}
		}
	}

	status := strings.ToLower(strings.TrimSpace(data.Attributes.Status))
	if _, ok := knownStatuses[status]; !ok {
		status = statusDefault
	}
	t.Status = status

	if data.Attributes.LastChapter != "" {
		var chapters int
		fmt.Sscanf(data.Attributes.LastChapter, "%d", &chapters)
		t.TotalChapters = chapters
	}

	for _, tag := range data.Attributes.Tags {
		if tag.Attributes.Group != "genre" {
			continue
		}
		name := preferredString(tag.Attributes.Name, preferredTitleLanguages)
		if name != "" {
			t.GenreNames = append(t.GenreNames, name)
		}
	}

	for _, rel := range data.Relationships {
		if rel.Type != "cover_art" {
			continue
		}
		if fileName, ok := rel.Attributes["fileName"].(string); ok {
			t.CoverFileName = fileName
		}
	}

	return t
}

// CoverURLs constructs the thumb/medium/large cover URLs for an upstream
// manga whose cover_art relationship resolved to fileName. An empty
// fileName yields empty URLs throughout (§4.4 "Absent cover_art
// relationship → no URL").
func CoverURLs(baseURL, upstreamID, fileName string) (thumb, medium, large string) {
	if fileName == "" {
		return "", "", ""
	}
	root := fmt.Sprintf("%s/covers/%s/%s", strings.TrimRight(baseURL, "/"), upstreamID, fileName)
	return root + ".256.jpg", root + ".512.jpg", root
}

// resolveTagName picks a single display name for a tag dictionary entry,
// tolerating a missing English name by falling back to any localisation.
func resolveTagName(m titleMap) string {
	return preferredString(m, preferredTitleLanguages)
}
