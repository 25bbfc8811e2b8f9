// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package manhwa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestSanitizeQuery_DropsQuoteAndBackslashCharacters confirms characters that
would otherwise confuse the text-search parser are stripped, and surrounding
whitespace is trimmed.
*/
func TestSanitizeQuery_DropsQuoteAndBackslashCharacters(t *testing.T) {
	cases := map[string]string{
		`  tower of god  `: "tower of god",
		`o'brien`:          "obrien",
		`say "hi"`:         "say hi",
		`back\slash`:       "backslash",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeQuery(in))
	}
}

/*
TestTruncateSynopsis_OnlyTruncatesOverLimit confirms a synopsis at or under
the rune cap passes through unchanged, and one over it is cut at exactly
maxSynopsisRunes runes with an ellipsis appended.
*/
func TestTruncateSynopsis_OnlyTruncatesOverLimit(t *testing.T) {
	short := "a short synopsis"
	assert.Equal(t, short, truncateSynopsis(short))

	long := strings.Repeat("a", maxSynopsisRunes+50)
	truncated := truncateSynopsis(long)
	runes := []rune(truncated)
	assert.Equal(t, maxSynopsisRunes+1, len(runes)) // + the appended ellipsis rune
	assert.Equal(t, "…", string(runes[len(runes)-1]))
}

/*
TestTotalPages_CeilingDivision confirms totalPages rounds up rather than
truncating, and reports zero when limit is non-positive.
*/
func TestTotalPages_CeilingDivision(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 20))
	assert.Equal(t, 1, totalPages(1, 20))
	assert.Equal(t, 1, totalPages(20, 20))
	assert.Equal(t, 2, totalPages(21, 20))
	assert.Equal(t, 0, totalPages(100, 0))
}

/*
TestClampLimit_DefaultsAndCaps confirms a non-positive limit defaults to 20
and anything above 100 is capped at 100.
*/
func TestClampLimit_DefaultsAndCaps(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0))
	assert.Equal(t, 20, clampLimit(-5))
	assert.Equal(t, 50, clampLimit(50))
	assert.Equal(t, 100, clampLimit(500))
}

/*
TestSearchCacheKey_OrderIndependent confirms two semantically identical
queries whose status/genre slices are supplied in a different order collide
on the same cache key (§8 property: search cache keys are order-independent
over filter fields).
*/
func TestSearchCacheKey_OrderIndependent(t *testing.T) {
	a := SearchParams{
		Query: "tower",
		Filter: Filter{
			Status: []Status{StatusOngoing, StatusCompleted},
			Genres: []string{"action", "fantasy"},
		},
		Page:  1,
		Limit: 20,
	}
	b := SearchParams{
		Query: "tower",
		Filter: Filter{
			Status: []Status{StatusCompleted, StatusOngoing},
			Genres: []string{"fantasy", "action"},
		},
		Page:  1,
		Limit: 20,
	}

	assert.Equal(t, searchCacheKey(a), searchCacheKey(b))
}

/*
TestSearchCacheKey_DistinguishesDifferentQueries confirms two genuinely
different requests never collide.
*/
func TestSearchCacheKey_DistinguishesDifferentQueries(t *testing.T) {
	a := SearchParams{Query: "tower", Page: 1, Limit: 20}
	b := SearchParams{Query: "solo leveling", Page: 1, Limit: 20}

	assert.NotEqual(t, searchCacheKey(a), searchCacheKey(b))
}
