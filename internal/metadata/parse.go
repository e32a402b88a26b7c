package metadata

import (
	"math"
	"strconv"
	"strings"

	"github.com/ccoveille/go-safecast"
)

// parseFloat reads provider numbers such as "7.8". "N/A" and empty strings yield nil.
func parseFloat(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseInt reads provider integers such as "1,234,567" or "58 min".
func parseInt(s string) *int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if f := strings.Fields(s); len(f) > 0 {
		s = f[0]
	}
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	n, err := safecast.ToInt(v)
	if err != nil {
		return nil
	}
	return &n
}

// parseYear reads the leading four digit year of a date like "2021-09-15" or "2016–2025".
func parseYear(s string) *int {
	if len(s) < 4 {
		return nil
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y <= 0 {
		return nil
	}
	return &y
}

// splitList splits a comma separated provider list like "Drama, Mystery".
func splitList(s string) []string {
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func optString(s string) *string {
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil
	}
	return &s
}
