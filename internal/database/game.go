package database

import "time"

// Game is a tracked video game.
type Game struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title      string           `gorm:"column:title;not null" json:"title" validate:"required,notblank"`
	Year       *int             `gorm:"column:year" json:"year,omitempty" validate:"omitempty,gte=1950,lte=2200"`
	Platforms  JSONList[string] `gorm:"column:platforms" json:"platforms"`
	Genres     JSONList[string] `gorm:"column:genres" json:"genres"`
	Rating     *float64         `gorm:"column:rating" json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Metascore  *int             `gorm:"column:metascore" json:"metascore,omitempty" validate:"omitempty,gte=0,lte=100"`
	Playtime   *int             `gorm:"column:playtime" json:"playtime,omitempty" validate:"omitempty,gte=0"`
	UserRating *float64         `gorm:"column:user_rating" json:"user_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	PosterPath *string          `gorm:"column:poster_path" json:"poster_path,omitempty"`
	Plot       *string          `gorm:"column:plot" json:"plot,omitempty"`
	RawgID     *int64           `gorm:"column:rawg_id" json:"rawg_id,omitempty"`
	Developers JSONList[string] `gorm:"column:developers" json:"developers"`
	Section    Section          `gorm:"column:section;default:want_to_play;index" json:"section"`
	LastUpdate *time.Time       `gorm:"column:last_update" json:"last_update,omitempty"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
}

func (*Game) TableName() string { return "games" }
func (*Game) Kind() Kind { return KindGame }
func (g *Game) GetID() int64 { return g.ID }
func (g *Game) SetID(id int64) { g.ID = id }
func (g *Game) GetTitle() string { return g.Title }
func (g *Game) GetYear() *int { return g.Year }
func (g *Game) GetSection() Section { return g.Section }
func (g *Game) SetSection(s Section) { g.Section = s }
func (*Game) DefaultSection() Section { return SectionWantToPlay }
func (*Game) SortColumns() []SortColumn { return gameSortColumns }

var gameSortColumns = []SortColumn{
	SortTitle, SortYear, SortUserRating, SortCreatedAt, SortLastUpdate,
	SortRating, SortMetascore,
}
