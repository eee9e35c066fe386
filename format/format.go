// Package format renders cell values as display strings according to widget format codes.
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"hermannm.dev/widgetengine/value"
)

// Blank is what null and empty values render as.
const Blank = "-"

// Format renders a value per format code. It never fails: values that do not fit the code are
// returned as their plain string form, and unknown codes fall back to 2-decimal fixed point.
//
// Date codes ("date", "datetime", "time") take an optional token pattern after a colon, e.g.
// "date:DD MMM YYYY".
func Format(fieldValue value.Value, code string) string {
	if fieldValue.IsBlank() {
		return Blank
	}

	code = strings.TrimSpace(code)
	name, pattern, _ := strings.Cut(code, ":")
	name = strings.ToLower(name)

	switch name {
	case "":
		return fieldValue.String()
	case "date", "datetime", "time":
		return formatDate(fieldValue, name, pattern)
	}

	amount, ok := fieldValue.Float()
	if !ok {
		return fieldValue.String()
	}

	switch name {
	case "integer":
		return grouped(language.AmericanEnglish, math.Round(amount), 0, 0)
	case "compact", "compact_short":
		return compact(amount, shortUnits)
	case "compact_long":
		return compact(amount, longUnits)
	case "fixed_1", "fixed_2", "fixed_3", "fixed_4":
		digits := int(name[len(name)-1] - '0')
		return grouped(language.AmericanEnglish, amount, digits, digits)
	case "scientific":
		return scientific(amount)
	case "percentage":
		// The stored number is already a percentage: dividing by 100 and formatting as a percent
		// (which multiplies by 100) leaves it unchanged.
		return grouped(language.AmericanEnglish, amount, 0, 2) + "%"
	case "percentage_0", "percentage_1", "percentage_2":
		digits := int(name[len(name)-1] - '0')
		return grouped(language.AmericanEnglish, amount, digits, digits) + "%"
	case "smart_axis":
		return SmartAxis(amount)
	}

	if currency, ok := currencies[name]; ok {
		return currency.format(amount)
	}

	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// grouped formats a number with the digit grouping and decimal separator of the given locale.
func grouped(locale language.Tag, amount float64, minDecimals int, maxDecimals int) string {
	printer := message.NewPrinter(locale)
	return printer.Sprintf(
		"%v",
		number.Decimal(
			roundTo(amount, maxDecimals),
			number.MinFractionDigits(minDecimals),
			number.MaxFractionDigits(maxDecimals),
		),
	)
}

// roundTo rounds half away from zero, so that rounding does not depend on the printer.
func roundTo(number float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	rounded := math.Round(number*factor) / factor
	if rounded == 0 {
		return 0 // no "-0"
	}
	return rounded
}

// trimmedDecimals formats with at most the given decimals, dropping trailing zeros.
func trimmedDecimals(number float64, decimals int) string {
	formatted := strconv.FormatFloat(roundTo(number, decimals), 'f', decimals, 64)
	if strings.ContainsRune(formatted, '.') {
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimSuffix(formatted, ".")
	}
	return formatted
}

type unit struct {
	size   float64
	suffix string
}

var shortUnits = []unit{{1e12, "T"}, {1e9, "B"}, {1e6, "M"}, {1e3, "K"}}

var longUnits = []unit{{1e12, " trillion"}, {1e9, " billion"}, {1e6, " million"}, {1e3, " thousand"}}

// compact abbreviates to two significant digits (more when the integer part is longer),
// e.g. 1234 -> "1.2K", 12345 -> "12K", 123456 -> "123K".
func compact(number float64, units []unit) string {
	magnitude := math.Abs(number)
	for i, candidate := range units {
		if magnitude < candidate.size {
			continue
		}

		scaled := compactDigits(magnitude / candidate.size)
		// 999_999 rounds up to "1000K", which reads better as the next unit.
		if scaled >= 1000 && i > 0 {
			scaled = compactDigits(magnitude / units[i-1].size)
			candidate = units[i-1]
		}
		return sign(number) + trimmedDecimals(scaled, 1) + candidate.suffix
	}
	return sign(number) + trimmedDecimals(compactDigits(magnitude), 1)
}

func compactDigits(magnitude float64) float64 {
	if magnitude >= 10 {
		return math.Round(magnitude)
	}
	return roundTo(magnitude, 1)
}

func sign(number float64) string {
	if number < 0 {
		return "-"
	}
	return ""
}

// SmartAxis scales axis ticks to k/M/B with one decimal, dropping a trailing ".0".
func SmartAxis(number float64) string {
	magnitude := math.Abs(number)
	switch {
	case magnitude >= 1e9:
		return sign(number) + trimmedDecimals(magnitude/1e9, 1) + "B"
	case magnitude >= 1e6:
		return sign(number) + trimmedDecimals(magnitude/1e6, 1) + "M"
	case magnitude >= 1e3:
		return sign(number) + trimmedDecimals(magnitude/1e3, 1) + "k"
	default:
		return sign(number) + trimmedDecimals(magnitude, 2)
	}
}

// scientific matches the usual "1.23e+6" notation, without zero-padding the exponent.
func scientific(number float64) string {
	formatted := strconv.FormatFloat(number, 'e', 2, 64)
	mantissa, exponent, ok := strings.Cut(formatted, "e")
	if !ok || len(exponent) < 2 {
		return formatted
	}

	exponentSign := exponent[:1]
	digits := strings.TrimLeft(exponent[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + exponentSign + digits
}

type currency struct {
	locale   language.Tag
	symbol   string
	suffixed bool
	decimals int
}

var currencies = map[string]currency{
	"currency_usd": {locale: language.AmericanEnglish, symbol: "$", decimals: 2},
	"currency_eur": {locale: language.German, symbol: "€", suffixed: true, decimals: 2},
	"currency_gbp": {locale: language.BritishEnglish, symbol: "£", decimals: 2},
	"currency_jpy": {locale: language.Japanese, symbol: "￥", decimals: 0},
	"currency_vnd": {locale: language.Vietnamese, symbol: "₫", suffixed: true, decimals: 0},
}

func (currency currency) format(amount float64) string {
	rounded := roundTo(amount, currency.decimals)
	digits := grouped(currency.locale, math.Abs(rounded), currency.decimals, currency.decimals)

	if currency.suffixed {
		return sign(rounded) + digits + " " + currency.symbol
	}
	return sign(rounded) + currency.symbol + digits
}
