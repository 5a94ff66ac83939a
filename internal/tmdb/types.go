// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tmdb

// Movie is a list entry as returned by popular, search, discover and
// similar.
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	GenreIDs         []int   `json:"genre_ids"`
	Popularity       float64 `json:"popularity"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
}

// MovieList is TMDB's paginated envelope.
type MovieList struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// EmptyMovieList is the fallback page served when popular cannot load.
func EmptyMovieList() *MovieList {
	return &MovieList{Page: 1, Results: []Movie{}}
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ProductionCompany struct {
	ID            int     `json:"id"`
	LogoPath      *string `json:"logo_path"`
	Name          string  `json:"name"`
	OriginCountry string  `json:"origin_country"`
}

type ProductionCountry struct {
	ISO3166_1 string `json:"iso_3166_1"`
	Name      string `json:"name"`
}

type SpokenLanguage struct {
	EnglishName string `json:"english_name"`
	ISO639_1    string `json:"iso_639_1"`
	Name        string `json:"name"`
}

type Collection struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
}

// MovieDetails is /movie/{id}.
type MovieDetails struct {
	ID                  int                 `json:"id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	Overview            string              `json:"overview"`
	Tagline             string              `json:"tagline"`
	PosterPath          *string             `json:"poster_path"`
	BackdropPath        *string             `json:"backdrop_path"`
	ReleaseDate         string              `json:"release_date"`
	Runtime             int                 `json:"runtime"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	Popularity          float64             `json:"popularity"`
	Adult               bool                `json:"adult"`
	Video               bool                `json:"video"`
	OriginalLanguage    string              `json:"original_language"`
	Status              string              `json:"status"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	Homepage            *string             `json:"homepage"`
	IMDbID              *string             `json:"imdb_id"`
	Genres              []Genre             `json:"genres"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	BelongsToCollection *Collection         `json:"belongs_to_collection"`
}

type CastMember struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	Character          string  `json:"character"`
	ProfilePath        *string `json:"profile_path"`
	Order              int     `json:"order"`
	CastID             int     `json:"cast_id"`
	CreditID           string  `json:"credit_id"`
	Adult              bool    `json:"adult"`
	Gender             *int    `json:"gender"`
	KnownForDepartment string  `json:"known_for_department"`
	OriginalName       string  `json:"original_name"`
	Popularity         float64 `json:"popularity"`
}

type CrewMember struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	Job                string  `json:"job"`
	Department         string  `json:"department"`
	ProfilePath        *string `json:"profile_path"`
	CreditID           string  `json:"credit_id"`
	Adult              bool    `json:"adult"`
	Gender             *int    `json:"gender"`
	KnownForDepartment string  `json:"known_for_department"`
	OriginalName       string  `json:"original_name"`
	Popularity         float64 `json:"popularity"`
}

// Credits is /movie/{id}/credits.
type Credits struct {
	ID   int          `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

type Video struct {
	ID          string `json:"id"`
	ISO639_1    string `json:"iso_639_1"`
	ISO3166_1   string `json:"iso_3166_1"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Official    bool   `json:"official"`
	PublishedAt string `json:"published_at"`
	Site        string `json:"site"`
	Size        int    `json:"size"`
	Type        string `json:"type"`
}

// Videos is /movie/{id}/videos.
type Videos struct {
	ID      int     `json:"id"`
	Results []Video `json:"results"`
}

// DiscoverParams are the /discover/movie filters the app uses. Zero values
// are omitted, except SortBy which defaults to popularity.desc.
type DiscoverParams struct {
	Page           int
	WithGenres     string
	SortBy         string
	VoteCountGTE   int
	VoteAverageGTE float64
}
