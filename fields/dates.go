package fields

import (
	"strings"
	"time"

	"hermannm.dev/widgetengine/value"
)

// Epoch values below this are taken as seconds, larger ones as milliseconds.
const epochSecondsLimit = 10_000_000_000

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Mon Jan 2 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate reads a value as a date: date values as is, numbers as epoch seconds or
// milliseconds, strings by trying the known layouts, then as a numeric epoch, then once more
// with '/' replaced by '-'. Dates without a zone are taken as UTC.
func ParseDate(fieldValue value.Value) (time.Time, bool) {
	switch fieldValue.Kind() {
	case value.KindDate:
		date, _ := fieldValue.AsDate()
		return date, true
	case value.KindNumber:
		number, ok := fieldValue.Float()
		if !ok {
			return time.Time{}, false
		}
		return fromEpoch(number), true
	case value.KindString:
		text, _ := fieldValue.AsString()
		return parseDateString(text)
	default:
		return time.Time{}, false
	}
}

func parseDateString(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	if date, ok := parseLayouts(text); ok {
		return date, true
	}

	if number, ok := value.ParseNumber(text); ok {
		return fromEpoch(number), true
	}

	if strings.ContainsRune(text, '/') {
		if date, ok := parseLayouts(strings.ReplaceAll(text, "/", "-")); ok {
			return date, true
		}
	}

	return time.Time{}, false
}

func parseLayouts(text string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, text); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

func fromEpoch(number float64) time.Time {
	if number < epochSecondsLimit {
		return time.UnixMilli(int64(number * 1000)).UTC()
	}
	return time.UnixMilli(int64(number)).UTC()
}
