package models

// Genre is a catalog genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AllGenres is the static genre table. Listing endpoints only return genre
// ids, which are joined against this table.
var AllGenres = []Genre{
	{ID: 28, Name: "Action"},
	{ID: 12, Name: "Adventure"},
	{ID: 16, Name: "Animation"},
	{ID: 35, Name: "Comedy"},
	{ID: 80, Name: "Crime"},
	{ID: 99, Name: "Documentary"},
	{ID: 18, Name: "Drama"},
	{ID: 10751, Name: "Family"},
	{ID: 14, Name: "Fantasy"},
	{ID: 36, Name: "History"},
	{ID: 27, Name: "Horror"},
	{ID: 10402, Name: "Music"},
	{ID: 9648, Name: "Mystery"},
	{ID: 10749, Name: "Romance"},
	{ID: 878, Name: "Science Fiction"},
	{ID: 10770, Name: "TV Movie"},
	{ID: 53, Name: "Thriller"},
	{ID: 10752, Name: "War"},
	{ID: 37, Name: "Western"},
}

var genresByID = func() map[int]Genre {
	m := make(map[int]Genre, len(AllGenres))
	for _, g := range AllGenres {
		m[g.ID] = g
	}
	return m
}()

// ResolveGenres maps genre ids to genres in input order. Unknown ids are dropped.
func ResolveGenres(ids []int) []Genre {
	genres := make([]Genre, 0, len(ids))
	for _, id := range ids {
		if g, ok := GenreByID(id); ok {
			genres = append(genres, g)
		}
	}
	return genres
}

// GenreByID looks up a single genre in the static table
func GenreByID(id int) (Genre, bool) {
	g, ok := genresByID[id]
	return g, ok
}
