package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements the CRUD operations for one record kind.
// Every read returns fresh copies; callers never share state with the store.
type Repository[T any, PT Recorder[T]] struct {
	db *gorm.DB
}

var lastStamp struct {
	sync.Mutex
	t time.Time
}

// stamp returns the current time, never equal to or before a previous stamp of this process.
func stamp() time.Time {
	lastStamp.Lock()
	defer lastStamp.Unlock()
	now := time.Now()
	if !now.After(lastStamp.t) {
		now = lastStamp.t.Add(time.Nanosecond)
	}
	lastStamp.t = now
	return now
}

// NewRepository creates a repository for the record type T.
func NewRepository[T any, PT Recorder[T]](db *gorm.DB) *Repository[T, PT] {
	return &Repository[T, PT]{db: db}
}

// Kind returns the record kind this repository serves.
func (r *Repository[T, PT]) Kind() Kind {
	return PT(new(T)).Kind()
}

// Insert stores a new record and assigns its ID and creation time.
// Any ID already set on rec is ignored. An empty section is replaced by the kind's default.
func (r *Repository[T, PT]) Insert(ctx context.Context, rec PT) (PT, error) {
	rec.SetID(0)
	if rec.GetSection() == "" {
		rec.SetSection(rec.DefaultSection())
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		log.Error("failed to insert record", "kind", rec.Kind(), "error", err)
		return nil, err
	}
	return rec, nil
}

// Update rewrites every column of an existing record. The last writer wins.
func (r *Repository[T, PT]) Update(ctx context.Context, rec PT) (PT, error) {
	if rec.GetID() == 0 {
		return nil, ErrMissingID
	}
	result := r.db.WithContext(ctx).Model(rec).Select("*").Omit("id", "created_at").Updates(rec)
	if result.Error != nil {
		log.Error("failed to update record", "kind", rec.Kind(), "id", rec.GetID(), "error", result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Delete removes a record permanently. It reports whether a row existed.
func (r *Repository[T, PT]) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(PT(new(T)), id)
	if result.Error != nil {
		log.Error("failed to delete record", "kind", r.Kind(), "id", id, "error", result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByID fetches a single record. It returns nil without an error if no record has that ID.
func (r *Repository[T, PT]) GetByID(ctx context.Context, id int64) (PT, error) {
	var rec T
	err := r.db.WithContext(ctx).Take(&rec, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Error("failed to get record by ID", "kind", r.Kind(), "id", id, "error", err)
		return nil, err
	}
	return PT(&rec), nil
}

// ListBySection returns all records in a section ordered by col.
// The column must be in the kind's sortable allow-list; an empty column sorts by title.
func (r *Repository[T, PT]) ListBySection(ctx context.Context, section Section, col SortColumn, desc bool) ([]PT, error) {
	if section == "" {
		return nil, ErrEmptySection
	}
	col, err := ValidateSortColumn(PT(new(T)), col)
	if err != nil {
		return nil, err
	}

	var recs []T
	err = r.db.WithContext(ctx).
		Where("section = ?", section).
		Order(clause.OrderByColumn{Column: clause.Column{Name: string(col)}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Find(&recs).Error
	if err != nil {
		log.Error("failed to list records", "kind", r.Kind(), "section", section, "error", err)
		return nil, err
	}
	return toPointers[T, PT](recs), nil
}

// ListAll returns every record of the kind ordered by ID.
func (r *Repository[T, PT]) ListAll(ctx context.Context) ([]PT, error) {
	var recs []T
	if err := r.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		log.Error("failed to list all records", "kind", r.Kind(), "error", err)
		return nil, err
	}
	return toPointers[T, PT](recs), nil
}

// MoveSection moves a record to another section and stamps last_update.
// It reports whether the record existed.
func (r *Repository[T, PT]) MoveSection(ctx context.Context, id int64, section Section) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(PT(new(T))).
		Where("id = ?", id).
		Updates(map[string]any{
			"section":     section,
			"last_update": stamp(),
		})
	if result.Error != nil {
		log.Error("failed to move record", "kind", r.Kind(), "id", id, "section", section, "error", result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Count returns the number of records in a section.
func (r *Repository[T, PT]) Count(ctx context.Context, section Section) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(PT(new(T))).Where("section = ?", section).Count(&count).Error; err != nil {
		log.Error("failed to count records", "kind", r.Kind(), "section", section, "error", err)
		return 0, err
	}
	return count, nil
}

// CountBySection returns the number of records per section.
func (r *Repository[T, PT]) CountBySection(ctx context.Context) (map[Section]int64, error) {
	var rows []struct {
		Section Section
		Count   int64
	}
	err := r.db.WithContext(ctx).
		Model(PT(new(T))).
		Select("section, COUNT(*) AS count").
		Group("section").
		Scan(&rows).Error
	if err != nil {
		log.Error("failed to count records by section", "kind", r.Kind(), "error", err)
		return nil, err
	}
	counts := make(map[Section]int64, len(rows))
	for _, row := range rows {
		counts[row.Section] = row.Count
	}
	return counts, nil
}

func toPointers[T any, PT Recorder[T]](recs []T) []PT {
	out := make([]PT, len(recs))
	for i := range recs {
		out[i] = PT(&recs[i])
	}
	return out
}
