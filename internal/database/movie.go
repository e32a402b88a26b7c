package database

import "time"

// Movie is a tracked film.
type Movie struct {
	ID               int64                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title            string               `gorm:"column:title;not null" json:"title" validate:"required,notblank"`
	Year             *int                 `gorm:"column:year" json:"year,omitempty" validate:"omitempty,gte=1870,lte=2200"`
	Runtime          *int                 `gorm:"column:runtime" json:"runtime,omitempty" validate:"omitempty,gte=0"`
	Plot             *string              `gorm:"column:plot" json:"plot,omitempty"`
	PosterPath       *string              `gorm:"column:poster_path" json:"poster_path,omitempty"`
	Genres           JSONList[string]     `gorm:"column:genres" json:"genres"`
	IMDbRating       *float64             `gorm:"column:imdb_rating" json:"imdb_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	UserRating       *float64             `gorm:"column:user_rating" json:"user_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	TMDbRating       *float64             `gorm:"column:tmdb_rating" json:"tmdb_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	TMDbVotes        *int                 `gorm:"column:tmdb_votes" json:"tmdb_votes,omitempty" validate:"omitempty,gte=0"`
	IMDbVotes        *int                 `gorm:"column:imdb_votes" json:"imdb_votes,omitempty" validate:"omitempty,gte=0"`
	RottenTomatoes   *string              `gorm:"column:rotten_tomatoes" json:"rotten_tomatoes,omitempty"`
	Metascore        *int                 `gorm:"column:metascore" json:"metascore,omitempty" validate:"omitempty,gte=0,lte=100"`
	IMDbID           *string              `gorm:"column:imdb_id" json:"imdb_id,omitempty"`
	TMDbID           *int64               `gorm:"column:tmdb_id" json:"tmdb_id,omitempty"`
	Director         *string              `gorm:"column:director" json:"director,omitempty"`
	Cast             JSONList[CastMember] `gorm:"column:cast" json:"cast"`
	Trailer          *string              `gorm:"column:trailer" json:"trailer,omitempty"`
	Section          Section              `gorm:"column:section;default:want_to_watch;index" json:"section"`
	LastUpdate       *time.Time           `gorm:"column:last_update" json:"last_update,omitempty"`
	MALRating        *float64             `gorm:"column:mal_rating" json:"mal_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	MALID            *int64               `gorm:"column:mal_id" json:"mal_id,omitempty"`
	RatingsUpdatedAt *time.Time           `gorm:"column:ratings_updated_at" json:"ratings_updated_at,omitempty"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
}

func (*Movie) TableName() string { return "movies" }
func (*Movie) Kind() Kind { return KindMovie }
func (m *Movie) GetID() int64 { return m.ID }
func (m *Movie) SetID(id int64) { m.ID = id }
func (m *Movie) GetTitle() string { return m.Title }
func (m *Movie) GetYear() *int { return m.Year }
func (m *Movie) GetSection() Section { return m.Section }
func (m *Movie) SetSection(s Section) { m.Section = s }
func (*Movie) DefaultSection() Section { return SectionWantToWatch }
func (*Movie) SortColumns() []SortColumn { return movieSortColumns }

var movieSortColumns = []SortColumn{
	SortTitle, SortYear, SortUserRating, SortCreatedAt, SortLastUpdate,
	SortIMDbRating, SortTMDbRating, SortMALRating, SortRuntime,
}
