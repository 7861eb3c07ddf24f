package erpsync

import (
	"sort"
	"strings"
	"time"
)

// Derived views are pure functions over (records, filters): same inputs,
// same output, no store mutation. They recompute from scratch on every call
// so the UI layer can memoize them however it likes.

// Sentinel filter values meaning "no constraint".
const (
	FilterAll  = "Tous"
	FilterAllF = "Toutes"
)

func isSentinel(v string) bool {
	return v == "" || v == FilterAll || v == FilterAllF
}

// DateRange is a day-granular inclusive interval. Zero bounds are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the date string (RFC 3339 or YYYY-MM-DD) falls
// within the range, comparing at day granularity. Unparseable dates pass an
// open range and fail a bounded one.
func (r DateRange) Contains(date string) bool {
	if r.Start.IsZero() && r.End.IsZero() {
		return true
	}
	t, ok := parseAnyDate(date)
	if !ok {
		return false
	}
	day := truncateDay(t)
	if !r.Start.IsZero() && day.Before(truncateDay(r.Start)) {
		return false
	}
	if !r.End.IsZero() && day.After(truncateDay(r.End)) {
		return false
	}
	return true
}

func (r DateRange) isOpen() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func parseAnyDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// matchesSearch reports whether the lowercased haystack fields contain the
// lowercased term.
func matchesSearch(term string, fields ...string) bool {
	haystack := strings.ToLower(strings.Join(fields, " "))
	return strings.Contains(haystack, strings.ToLower(term))
}

// CountDistinct counts distinct non-empty keys over records.
func CountDistinct[T any](records []T, key func(T) string) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		k := strings.ToLower(strings.TrimSpace(key(r)))
		if k == "" {
			continue
		}
		seen[k] = struct{}{}
	}
	return len(seen)
}

// sortedCopy returns a sorted copy without touching the input.
func sortedCopy[T any](in []T, less func(a, b T) bool) []T {
	out := append([]T(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
