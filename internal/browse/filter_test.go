package browse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/liamwears/movielist/internal/models"
)

func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func movie(id int, title, release string, rating float64, genres ...int) models.Movie {
	m := models.Movie{
		ID:          id,
		Title:       title,
		VoteAverage: floatPtr(rating),
		GenreIDs:    genres,
	}
	if release != "" {
		m.ReleaseDate = strPtr(release)
	}
	m.EnsureGenres()
	return m
}

func ids(movies []models.Movie) []int {
	out := make([]int, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.ID)
	}
	return out
}

var june15 = time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

func TestApply_Filters(t *testing.T) {
	movies := []models.Movie{
		movie(1, "Alien", "1979-05-25", 8.5, 27, 878),
		movie(2, "Brazil", "1985-02-20", 5.5, 35, 878),
		movie(3, "Aliens", "1986-07-18", 7.9, 28, 878),
		movie(4, "Heat", "", 8.3, 80),
	}

	testCases := map[string]struct {
		filter Filter
		want   []int
	}{
		"empty filter keeps everything": {Filter{}, []int{1, 2, 3, 4}},
		"min rating":                    {Filter{MinRating: floatPtr(7)}, []int{1, 3, 4}},
		"min rating is inclusive":       {Filter{MinRating: floatPtr(8.5)}, []int{1}},
		"genre keeps input order":       {Filter{GenreID: intPtr(878)}, []int{1, 2, 3}},
		"year":                          {Filter{Year: intPtr(1985)}, []int{2}},
		"year excludes missing dates":   {Filter{Year: intPtr(0)}, []int{}},
		"query is case insensitive":     {Filter{Query: "ALIEN"}, []int{1, 3}},
		"query is trimmed":              {Filter{Query: "  heat "}, []int{4}},
		"predicates combine": {
			Filter{Query: "alien", GenreID: intPtr(28), MinRating: floatPtr(7)},
			[]int{3},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := Apply(movies, tc.filter, models.SortCustom, june15)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestApply_RatingScenario(t *testing.T) {
	movies := []models.Movie{
		movie(1, "A", "2020-01-01", 8.5),
		movie(2, "B", "2020-01-01", 5.5),
	}

	got := Apply(movies, Filter{MinRating: floatPtr(7)}, models.SortTitleAZ, june15)
	assert.Equal(t, []int{1}, ids(got))
}

func TestApply_NowPlaying(t *testing.T) {
	movies := []models.Movie{
		movie(1, "Earlier this month", "2025-06-10", 7),
		movie(2, "Later this month", "2025-06-20", 7),
		movie(3, "Today", "2025-06-15", 7),
		movie(4, "Next year", "2026-01-05", 7),
		movie(5, "No date", "", 7),
	}

	got := Apply(movies, Filter{NowPlaying: true}, models.SortCustom, june15)
	assert.Equal(t, []int{2, 3}, ids(got))
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	movies := []models.Movie{
		movie(1, "Zodiac", "2007-03-02", 7.7),
		movie(2, "Amelie", "2001-04-25", 7.9),
	}

	got := Apply(movies, Filter{}, models.SortTitleAZ, june15)
	assert.Equal(t, []int{2, 1}, ids(got))
	assert.Equal(t, []int{1, 2}, ids(movies))
}

func TestSort(t *testing.T) {
	base := []models.Movie{
		movie(1, "beta", "2001-01-01", 6),
		movie(2, "Alpha", "", 9),
		movie(3, "gamma", "1999-01-01", 7),
		movie(4, "Delta", "2010-01-01", 7),
	}

	testCases := map[string]struct {
		mode models.SortMode
		want []int
	}{
		"title a-z":            {models.SortTitleAZ, []int{2, 1, 4, 3}},
		"title z-a":            {models.SortTitleZA, []int{3, 4, 1, 2}},
		"newest, missing last": {models.SortReleaseDateNewest, []int{4, 1, 3, 2}},
		"oldest, missing last": {models.SortReleaseDateOldest, []int{3, 1, 4, 2}},
		"rating high, stable":  {models.SortRatingHighLow, []int{2, 3, 4, 1}},
		"rating low, stable":   {models.SortRatingLowHigh, []int{1, 3, 4, 2}},
		"custom keeps order":   {models.SortCustom, []int{1, 2, 3, 4}},
		"unknown keeps order":  {models.SortMode("shuffle"), []int{1, 2, 3, 4}},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			movies := append([]models.Movie(nil), base...)
			Sort(movies, tc.mode)
			assert.Equal(t, tc.want, ids(movies))
		})
	}
}

func TestSort_TitleZAReversesAZ(t *testing.T) {
	movies := []models.Movie{
		movie(1, "Memento", "", 0),
		movie(2, "Inception", "", 0),
		movie(3, "Tenet", "", 0),
		movie(4, "Dunkirk", "", 0),
	}

	az := append([]models.Movie(nil), movies...)
	Sort(az, models.SortTitleAZ)
	za := append([]models.Movie(nil), movies...)
	Sort(za, models.SortTitleZA)

	reversed := ids(az)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	assert.Equal(t, reversed, ids(za))
}
