package format

import (
	"fmt"
	"strings"
	"time"

	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/value"
)

var defaultDatePatterns = map[string]string{
	"date":     "YYYY-MM-DD",
	"datetime": "YYYY-MM-DD HH:mm:ss",
	"time":     "HH:mm:ss",
}

func formatDate(fieldValue value.Value, code string, pattern string) string {
	date, ok := fields.ParseDate(fieldValue)
	if !ok {
		return fieldValue.String()
	}

	if pattern == "" {
		pattern = defaultDatePatterns[code]
	}
	return FormatDatePattern(date.UTC(), pattern)
}

// Tokens are matched longest first, so "MMMM" is not read as two "MM".
var dateTokens = []string{"YYYY", "MMMM", "MMM", "YY", "MM", "DD", "HH", "hh", "mm", "ss", "A"}

// FormatDatePattern renders a date with the tokens YYYY, YY, MMMM (January), MMM (Jan),
// MM, DD, HH (24-hour), hh (12-hour), mm, ss and A (AM/PM). Other characters are kept as is.
func FormatDatePattern(date time.Time, pattern string) string {
	var builder strings.Builder

outer:
	for i := 0; i < len(pattern); {
		for _, token := range dateTokens {
			if strings.HasPrefix(pattern[i:], token) {
				builder.WriteString(renderToken(date, token))
				i += len(token)
				continue outer
			}
		}
		builder.WriteByte(pattern[i])
		i++
	}

	return builder.String()
}

func renderToken(date time.Time, token string) string {
	switch token {
	case "YYYY":
		return fmt.Sprintf("%04d", date.Year())
	case "YY":
		return fmt.Sprintf("%02d", date.Year()%100)
	case "MMMM":
		return date.Month().String()
	case "MMM":
		return date.Month().String()[:3]
	case "MM":
		return fmt.Sprintf("%02d", int(date.Month()))
	case "DD":
		return fmt.Sprintf("%02d", date.Day())
	case "HH":
		return fmt.Sprintf("%02d", date.Hour())
	case "hh":
		hour := date.Hour() % 12
		if hour == 0 {
			hour = 12
		}
		return fmt.Sprintf("%02d", hour)
	case "mm":
		return fmt.Sprintf("%02d", date.Minute())
	case "ss":
		return fmt.Sprintf("%02d", date.Second())
	case "A":
		if date.Hour() < 12 {
			return "AM"
		}
		return "PM"
	default:
		return token
	}
}
