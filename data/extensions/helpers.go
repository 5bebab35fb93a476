package extensions

import (
	"fmt"
	"strings"
	"time"
)

// FilterMultiple return all elements that satisfy the predicate
func FilterMultiple[T any](elements []T, predicate func(T) bool) (results []T) {
	for _, element := range elements {
		if predicate(element) {
			results = append(results, element)
		}
	}
	return
}

// FilterMultiplePtr return all pointers that satisfy the predicate
func FilterMultiplePtr[T any](elements []*T, predicate func(*T) bool) (results []*T) {
	for _, element := range elements {
		if predicate(element) {
			results = append(results, element)
		}
	}
	return
}

// FilterSingle return the single element that satisfies the predicate.
// If zero or more than one, default T and an error is returned.
func FilterSingle[T any](elements []T, predicate func(T) bool) (T, error) {
	res := FilterMultiple(elements, predicate)

	if len(res) != 1 {
		var zero T
		return zero, fmt.Errorf("error getting single, found %d matches", len(res))
	}

	return res[0], nil
}

// Unique returns the elements in first seen order with duplicates removed
func Unique[T comparable](elements []T) []T {
	seen := make(map[T]bool, len(elements))
	res := make([]T, 0, len(elements))
	for _, e := range elements {
		if seen[e] {
			continue
		}
		seen[e] = true
		res = append(res, e)
	}
	return res
}

// DateOnly truncates a time to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseShort parses a date only string into midnight UTC
func ParseShort(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// FmtShort formats a time in a date only string
func FmtShort(t time.Time) string {
	return t.Format(time.DateOnly)
}

// FmtLong formats a time to a full date string
func FmtLong(t time.Time) string {
	return t.Format(time.RFC3339)
}
