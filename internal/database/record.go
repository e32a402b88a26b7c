package database

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrMissingID is returned when an update is attempted on a record without an ID.
	ErrMissingID = errors.New("record must have an ID to update")
	// ErrEmptySection is returned when a section filter is required but empty.
	ErrEmptySection = errors.New("section must be provided")
	// ErrInvalidSortColumn is returned when a sort column is not sortable for a record kind.
	ErrInvalidSortColumn = errors.New("invalid sort column")
	// ErrNotFound is returned when an update matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownKind is returned when a kind name cannot be resolved.
	ErrUnknownKind = errors.New("unknown record kind")
)

// Kind identifies a media record kind. Every kind has its own table.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
	KindGame   Kind = "game"
	KindManga  Kind = "manga"
	KindBook   Kind = "book"
)

// Kinds lists all record kinds in display order.
var Kinds = []Kind{KindMovie, KindSeries, KindGame, KindManga, KindBook}

// ParseKind resolves a kind name. Plural forms ("movies", "books") are accepted.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "movie", "movies":
		return KindMovie, nil
	case "series", "tv", "show", "shows":
		return KindSeries, nil
	case "game", "games":
		return KindGame, nil
	case "manga", "comic", "comics":
		return KindManga, nil
	case "book", "books":
		return KindBook, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Section is the watch/read status bucket a record belongs to.
// The store does not restrict the value; unknown sections are stored as given.
type Section string

const (
	SectionWatching           Section = "watching"
	SectionWantToWatch        Section = "want_to_watch"
	SectionContinueLater      Section = "continue_later"
	SectionDontWantToContinue Section = "dont_want_to_continue"
	SectionWatched            Section = "watched"
	SectionWantToPlay         Section = "want_to_play"
	SectionReading            Section = "reading"
)

// Sections lists the well-known sections.
var Sections = []Section{
	SectionWatching,
	SectionWantToWatch,
	SectionContinueLater,
	SectionDontWantToContinue,
	SectionWatched,
	SectionWantToPlay,
	SectionReading,
}

// SortColumn is a column a listing can be ordered by.
type SortColumn string

const (
	SortTitle      SortColumn = "title"
	SortYear       SortColumn = "year"
	SortUserRating SortColumn = "user_rating"
	SortCreatedAt  SortColumn = "created_at"
	SortLastUpdate SortColumn = "last_update"
	SortIMDbRating SortColumn = "imdb_rating"
	SortTMDbRating SortColumn = "tmdb_rating"
	SortMALRating  SortColumn = "mal_rating"
	SortRuntime    SortColumn = "runtime"
	SortRating     SortColumn = "rating"
	SortMetascore  SortColumn = "metascore"
	SortChapters   SortColumn = "chapters"
	SortAuthor     SortColumn = "author"
	SortPages      SortColumn = "pages"
)

// Record is implemented by every media record kind.
type Record interface {
	Kind() Kind
	GetID() int64
	SetID(id int64)
	GetTitle() string
	GetSection() Section
	SetSection(s Section)
	DefaultSection() Section
	SortColumns() []SortColumn
}

// Recorder constrains a pointer to a record struct so generic code can allocate T
// and still call the Record methods on *T.
type Recorder[T any] interface {
	*T
	Record
}

// ValidateSortColumn checks col against the allow-list of the given record.
// An empty column selects the default (title).
func ValidateSortColumn(r Record, col SortColumn) (SortColumn, error) {
	if col == "" {
		return SortTitle, nil
	}
	if !slices.Contains(r.SortColumns(), col) {
		return "", fmt.Errorf("%w %q for %s", ErrInvalidSortColumn, col, r.Kind())
	}
	return col, nil
}
