package database

import (
	"context"
	"fmt"
)

// Store is a Repository with the record type erased, for callers that pick the
// kind at runtime.
type Store interface {
	Kind() Kind
	// New allocates an empty record of the store's kind.
	New() Record
	Insert(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (Record, error)
	ListBySection(ctx context.Context, section Section, col SortColumn, desc bool) ([]Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	MoveSection(ctx context.Context, id int64, section Section) (bool, error)
	Count(ctx context.Context, section Section) (int64, error)
	CountBySection(ctx context.Context) (map[Section]int64, error)
}

// Store returns the store of a record kind.
func (c *Client) Store(kind Kind) (Store, error) {
	switch kind {
	case KindMovie:
		return erased[Movie, *Movie]{c.movies}, nil
	case KindSeries:
		return erased[Series, *Series]{c.series}, nil
	case KindGame:
		return erased[Game, *Game]{c.games}, nil
	case KindManga:
		return erased[Manga, *Manga]{c.manga}, nil
	case KindBook:
		return erased[Book, *Book]{c.books}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

type erased[T any, PT Recorder[T]] struct {
	repo *Repository[T, PT]
}

func (e erased[T, PT]) Kind() Kind  { return e.repo.Kind() }
func (e erased[T, PT]) New() Record { return PT(new(T)) }

func (e erased[T, PT]) cast(rec Record) (PT, error) {
	pt, ok := rec.(PT)
	if !ok || pt == nil {
		return nil, fmt.Errorf("%w: expected %s record, got %T", ErrUnknownKind, e.Kind(), rec)
	}
	return pt, nil
}

func (e erased[T, PT]) Insert(ctx context.Context, rec Record) (Record, error) {
	pt, err := e.cast(rec)
	if err != nil {
		return nil, err
	}
	out, err := e.repo.Insert(ctx, pt)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e erased[T, PT]) Update(ctx context.Context, rec Record) (Record, error) {
	pt, err := e.cast(rec)
	if err != nil {
		return nil, err
	}
	out, err := e.repo.Update(ctx, pt)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e erased[T, PT]) Delete(ctx context.Context, id int64) (bool, error) {
	return e.repo.Delete(ctx, id)
}

// GetByID returns a nil interface, not a typed nil, when the record is absent.
func (e erased[T, PT]) GetByID(ctx context.Context, id int64) (Record, error) {
	rec, err := e.repo.GetByID(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec, nil
}

func (e erased[T, PT]) ListBySection(ctx context.Context, section Section, col SortColumn, desc bool) ([]Record, error) {
	recs, err := e.repo.ListBySection(ctx, section, col, desc)
	if err != nil {
		return nil, err
	}
	return toRecords(recs), nil
}

func (e erased[T, PT]) ListAll(ctx context.Context) ([]Record, error) {
	recs, err := e.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toRecords(recs), nil
}

func (e erased[T, PT]) MoveSection(ctx context.Context, id int64, section Section) (bool, error) {
	return e.repo.MoveSection(ctx, id, section)
}

func (e erased[T, PT]) Count(ctx context.Context, section Section) (int64, error) {
	return e.repo.Count(ctx, section)
}

func (e erased[T, PT]) CountBySection(ctx context.Context) (map[Section]int64, error) {
	return e.repo.CountBySection(ctx)
}

func toRecords[PT Record](recs []PT) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out
}
