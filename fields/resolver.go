package fields

import (
	"fmt"
	"strings"
	"time"

	"hermannm.dev/widgetengine/value"
)

const (
	HierarchySeparator = "___"
	UnknownDate        = "Unknown"
)

// Resolve looks up a field token in a row. An exact key match wins, so data sources that
// return pre-derived hierarchy columns under their composite name are used as is. Then keys are
// compared case-insensitively after trimming, and finally "base___level" tokens are derived
// from the base field's date. Base values that cannot be read as dates derive to "Unknown".
//
// The second return value is false when the row has no data for the field; callers exclude
// such rows from aggregations instead of treating it as an error.
func Resolve(row value.Row, field string) (value.Value, bool) {
	if fieldValue, ok := row.Get(field); ok {
		return fieldValue, true
	}

	normalized := normalizeKey(field)
	for _, key := range row.Keys() {
		if normalizeKey(key) == normalized {
			return row.Get(key)
		}
	}

	base, level, ok := SplitHierarchy(field)
	if !ok {
		return value.Null(), false
	}

	baseValue, ok := Resolve(row, base)
	if !ok {
		return value.Null(), false
	}

	date, ok := ParseDate(baseValue)
	if !ok {
		return value.String(UnknownDate), true
	}
	return value.String(DeriveLevel(date, level)), true
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// SplitHierarchy splits "base___level" into its parts. ok is false for plain field names and
// for unknown level suffixes.
func SplitHierarchy(field string) (base string, level Level, ok bool) {
	index := strings.LastIndex(field, HierarchySeparator)
	if index <= 0 {
		return "", 0, false
	}

	level, ok = ParseLevel(strings.ToLower(field[index+len(HierarchySeparator):]))
	if !ok {
		return "", 0, false
	}
	return field[:index], level, true
}

func HierarchyField(base string, level Level) string {
	return base + HierarchySeparator + level.String()
}

func IsHierarchyField(field string) bool {
	_, _, ok := SplitHierarchy(field)
	return ok
}

var dateLikeFieldNames = []string{"date", "time", "year", "month", "quarter", "day", "week", "period"}

// LooksLikeDateField guesses from a field name whether it holds dates, for picking a default
// chronological sort.
func LooksLikeDateField(field string) bool {
	if IsHierarchyField(field) {
		return true
	}
	lower := strings.ToLower(field)
	for _, candidate := range dateLikeFieldNames {
		if strings.Contains(lower, candidate) {
			return true
		}
	}
	return false
}

// DeriveLevel renders a date at the given hierarchy level. Outputs are fixed-width within each
// year so that they sort chronologically as strings.
func DeriveLevel(date time.Time, level Level) string {
	date = date.UTC()
	year := date.Year()
	month0 := int(date.Month()) - 1

	switch level {
	case LevelYear:
		return fmt.Sprintf("%04d", year)
	case LevelHalf:
		half := 1
		if month0 >= 6 {
			half = 2
		}
		return fmt.Sprintf("%04d H%d", year, half)
	case LevelQuarter:
		return fmt.Sprintf("%04d Q%d", year, month0/3+1)
	case LevelMonth:
		return fmt.Sprintf("%04d-%02d", year, month0+1)
	case LevelDay:
		return date.Format("2006-01-02")
	default:
		return UnknownDate
	}
}
