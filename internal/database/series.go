package database

import "time"

// Series is a tracked TV series.
type Series struct {
	ID               int64                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title            string               `gorm:"column:title;not null" json:"title" validate:"required,notblank"`
	Year             *int                 `gorm:"column:year" json:"year,omitempty" validate:"omitempty,gte=1920,lte=2200"`
	Runtime          *int                 `gorm:"column:runtime" json:"runtime,omitempty" validate:"omitempty,gte=0"`
	Plot             *string              `gorm:"column:plot" json:"plot,omitempty"`
	PosterPath       *string              `gorm:"column:poster_path" json:"poster_path,omitempty"`
	Genres           JSONList[string]     `gorm:"column:genres" json:"genres"`
	TotalSeasons     *int                 `gorm:"column:total_seasons" json:"total_seasons,omitempty" validate:"omitempty,gte=0"`
	TotalEpisodes    *int                 `gorm:"column:total_episodes" json:"total_episodes,omitempty" validate:"omitempty,gte=0"`
	Seasons          JSONList[Season]     `gorm:"column:seasons" json:"seasons"`
	IMDbRating       *float64             `gorm:"column:imdb_rating" json:"imdb_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	UserRating       *float64             `gorm:"column:user_rating" json:"user_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	TMDbRating       *float64             `gorm:"column:tmdb_rating" json:"tmdb_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	TMDbVotes        *int                 `gorm:"column:tmdb_votes" json:"tmdb_votes,omitempty" validate:"omitempty,gte=0"`
	IMDbVotes        *int                 `gorm:"column:imdb_votes" json:"imdb_votes,omitempty" validate:"omitempty,gte=0"`
	RottenTomatoes   *string              `gorm:"column:rotten_tomatoes" json:"rotten_tomatoes,omitempty"`
	Metascore        *int                 `gorm:"column:metascore" json:"metascore,omitempty" validate:"omitempty,gte=0,lte=100"`
	IMDbID           *string              `gorm:"column:imdb_id" json:"imdb_id,omitempty"`
	TMDbID           *int64               `gorm:"column:tmdb_id" json:"tmdb_id,omitempty"`
	Creator          *string              `gorm:"column:creator" json:"creator,omitempty"`
	Cast             JSONList[CastMember] `gorm:"column:cast" json:"cast"`
	Trailer          *string              `gorm:"column:trailer" json:"trailer,omitempty"`
	Section          Section              `gorm:"column:section;default:want_to_watch;index" json:"section"`
	LastUpdate       *time.Time           `gorm:"column:last_update" json:"last_update,omitempty"`
	MALID            *int64               `gorm:"column:mal_id" json:"mal_id,omitempty"`
	MALRating        *float64             `gorm:"column:mal_rating" json:"mal_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	RatingsUpdatedAt *time.Time           `gorm:"column:ratings_updated_at" json:"ratings_updated_at,omitempty"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
}

func (*Series) TableName() string { return "series" }
func (*Series) Kind() Kind { return KindSeries }
func (s *Series) GetID() int64 { return s.ID }
func (s *Series) SetID(id int64) { s.ID = id }
func (s *Series) GetTitle() string { return s.Title }
func (s *Series) GetYear() *int { return s.Year }
func (s *Series) GetSection() Section { return s.Section }
func (s *Series) SetSection(sec Section) { s.Section = sec }
func (*Series) DefaultSection() Section { return SectionWantToWatch }
func (*Series) SortColumns() []SortColumn { return seriesSortColumns }

var seriesSortColumns = []SortColumn{
	SortTitle, SortYear, SortUserRating, SortCreatedAt, SortLastUpdate,
	SortIMDbRating, SortTMDbRating, SortMALRating, SortRuntime,
}
