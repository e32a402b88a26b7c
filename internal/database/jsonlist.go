package database

import (
	"database/sql/driver"
	"fmt"

	"github.com/goccy/go-json"
)

// JSONList is an ordered list stored as JSON text in a single column.
// NULL or empty text decodes to an empty, non-nil list; an empty list is stored as NULL.
// Order and duplicates are preserved.
type JSONList[T any] []T

// Scan implements sql.Scanner.
func (l *JSONList[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = JSONList[T]{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into JSONList", src)
	}
	if len(data) == 0 {
		*l = JSONList[T]{}
		return nil
	}
	out := make([]T, 0)
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to decode json column: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	*l = out
	return nil
}

// Value implements driver.Valuer.
func (l JSONList[T]) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	data, err := json.Marshal([]T(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode json column: %w", err)
	}
	return string(data), nil
}

// GormDataType tells gorm to create the column as TEXT.
func (JSONList[T]) GormDataType() string {
	return "text"
}

// CastMember is a single credited actor.
type CastMember struct {
	Name      string  `json:"name"`
	Character string  `json:"character,omitempty"`
	Profile   *string `json:"profile,omitempty"`
	Order     *int    `json:"order,omitempty"`
}

// Season describes a single season of a series.
type Season struct {
	SeasonNumber int    `json:"season_number"`
	SeasonName   string `json:"season_name"`
	TMDbSeasonID *int   `json:"tmdb_season_id,omitempty"`
	EpisodeCount *int   `json:"episode_count,omitempty"`
	AirDate      string `json:"air_date,omitempty"`
}
