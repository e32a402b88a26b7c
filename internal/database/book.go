package database

import "time"

// Book is a tracked book.
type Book struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title      string           `gorm:"column:title;not null" json:"title" validate:"required,notblank"`
	Author     *string          `gorm:"column:author" json:"author,omitempty"`
	Pages      *int             `gorm:"column:pages" json:"pages,omitempty" validate:"omitempty,gte=0"`
	Year       *int             `gorm:"column:year" json:"year,omitempty" validate:"omitempty,lte=2200"`
	Genres     JSONList[string] `gorm:"column:genres" json:"genres"`
	PosterPath *string          `gorm:"column:poster_path" json:"poster_path,omitempty"`
	Plot       *string          `gorm:"column:plot" json:"plot,omitempty"`
	ISBN       *string          `gorm:"column:isbn" json:"isbn,omitempty" validate:"omitempty,isbn"`
	UserRating *float64         `gorm:"column:user_rating" json:"user_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Section    Section          `gorm:"column:section;default:reading;index" json:"section"`
	LastUpdate *time.Time       `gorm:"column:last_update" json:"last_update,omitempty"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
}

func (*Book) TableName() string { return "books" }
func (*Book) Kind() Kind { return KindBook }
func (b *Book) GetID() int64 { return b.ID }
func (b *Book) SetID(id int64) { b.ID = id }
func (b *Book) GetTitle() string { return b.Title }
func (b *Book) GetYear() *int { return b.Year }
func (b *Book) GetSection() Section { return b.Section }
func (b *Book) SetSection(s Section) { b.Section = s }
func (*Book) DefaultSection() Section { return SectionReading }
func (*Book) SortColumns() []SortColumn { return bookSortColumns }

var bookSortColumns = []SortColumn{
	SortTitle, SortYear, SortUserRating, SortCreatedAt, SortLastUpdate,
	SortAuthor, SortPages,
}
