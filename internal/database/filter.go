package database

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

type yearer interface {
	GetYear() *int
}

// Matches reports whether q occurs in the record's title (case-insensitive)
// or equals its year. An empty q matches everything.
func Matches(rec Record, q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(rec.GetTitle()), strings.ToLower(q)) {
		return true
	}
	if y, ok := rec.(yearer); ok && y.GetYear() != nil {
		return strconv.Itoa(*y.GetYear()) == q
	}
	return false
}

// Filter keeps the records that match q, preserving order.
func Filter[PT Record](recs []PT, q string) []PT {
	out := make([]PT, 0, len(recs))
	for _, r := range recs {
		if Matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

// Pick returns a random record, or the zero value and false when recs is empty.
func Pick[PT Record](recs []PT) (PT, bool) {
	var zero PT
	if len(recs) == 0 {
		return zero, false
	}
	return recs[rand.IntN(len(recs))], true
}
