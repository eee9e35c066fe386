package format

import (
	"strconv"
	"strings"
	"time"

	"hermannm.dev/widgetengine/fields"
)

// FormatAxisLabel shortens a date-hierarchy value for display on a chart axis. It accepts both
// the derived form ("2024 Q3", "2024-08") and the bare number some warehouses return for a level
// ("3", "8"). Values it does not recognize are returned unchanged.
func FormatAxisLabel(level fields.Level, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == fields.UnknownDate {
		return raw
	}

	switch level {
	case fields.LevelHalf:
		if part, ok := periodPart(raw, " H", 2); ok {
			return "H" + strconv.Itoa(part)
		}
	case fields.LevelQuarter:
		if part, ok := periodPart(raw, " Q", 4); ok {
			return "Q" + strconv.Itoa(part)
		}
	case fields.LevelMonth:
		if month, ok := periodPart(raw, "-", 12); ok {
			return MonthAbbreviation(month)
		}
	}
	return raw
}

// periodPart reads n from "YYYY{separator}n", or from a bare "n", checking 1 <= n <= limit.
func periodPart(raw string, separator string, limit int) (int, bool) {
	if _, after, found := strings.Cut(raw, separator); found {
		raw = after
	}

	part, err := strconv.Atoi(raw)
	if err != nil || part < 1 || part > limit {
		return 0, false
	}
	return part, true
}

// MonthAbbreviation returns "Jan" for 1, and so on through "Dec" for 12.
func MonthAbbreviation(month int) string {
	if month < 1 || month > 12 {
		return strconv.Itoa(month)
	}
	return time.Month(month).String()[:3]
}
