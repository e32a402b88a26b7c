package database

import "time"

// Manga is a tracked manga or comic.
type Manga struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title      string           `gorm:"column:title;not null" json:"title" validate:"required,notblank"`
	Chapters   *int             `gorm:"column:chapters" json:"chapters,omitempty" validate:"omitempty,gte=0"`
	Volumes    *int             `gorm:"column:volumes" json:"volumes,omitempty" validate:"omitempty,gte=0"`
	Status     *string          `gorm:"column:status" json:"status,omitempty"` // ongoing / completed
	PosterPath *string          `gorm:"column:poster_path" json:"poster_path,omitempty"`
	Genres     JSONList[string] `gorm:"column:genres" json:"genres"`
	Plot       *string          `gorm:"column:plot" json:"plot,omitempty"`
	MALID      *int64           `gorm:"column:mal_id" json:"mal_id,omitempty"`
	MALRating  *float64         `gorm:"column:mal_rating" json:"mal_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Authors    JSONList[string] `gorm:"column:authors" json:"authors"`
	UserRating *float64         `gorm:"column:user_rating" json:"user_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Section    Section          `gorm:"column:section;default:reading;index" json:"section"`
	LastUpdate *time.Time       `gorm:"column:last_update" json:"last_update,omitempty"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
}

func (*Manga) TableName() string { return "manga" }
func (*Manga) Kind() Kind { return KindManga }
func (m *Manga) GetID() int64 { return m.ID }
func (m *Manga) SetID(id int64) { m.ID = id }
func (m *Manga) GetTitle() string { return m.Title }
func (m *Manga) GetSection() Section { return m.Section }
func (m *Manga) SetSection(s Section) { m.Section = s }
func (*Manga) DefaultSection() Section { return SectionReading }
func (*Manga) SortColumns() []SortColumn { return mangaSortColumns }

var mangaSortColumns = []SortColumn{
	SortTitle, SortUserRating, SortCreatedAt, SortLastUpdate,
	SortMALRating, SortChapters,
}
