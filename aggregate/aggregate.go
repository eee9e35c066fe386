// Package aggregate reduces rows to numbers: single measures, one- and two-level groupings, and
// row/column cross-tabs with totals.
package aggregate

import (
	"math"

	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/value"
)

// Aggregate reduces one field across rows. Values are resolved with fields.Resolve and coerced to
// numbers; missing, blank and non-numeric values are skipped, except by count (which counts every
// row) and countDistinct (which counts distinct non-null values of any kind). Sums and averages
// are rounded to 10 decimals. Without numeric values, the result is 0.
func Aggregate(rows []value.Row, field string, kind Kind) float64 {
	switch kind {
	case KindCount:
		return float64(len(rows))
	case KindCountDistinct:
		return float64(countDistinct(rows, field))
	}

	numbers := numericValues(rows, field)
	if len(numbers) == 0 {
		return 0
	}

	switch kind {
	case KindAverage:
		return Round10(sum(numbers) / float64(len(numbers)))
	case KindMin:
		smallest := numbers[0]
		for _, number := range numbers[1:] {
			if number < smallest {
				smallest = number
			}
		}
		return smallest
	case KindMax:
		largest := numbers[0]
		for _, number := range numbers[1:] {
			if number > largest {
				largest = number
			}
		}
		return largest
	case KindNone:
		return numbers[0]
	default:
		return Round10(sum(numbers))
	}
}

func numericValues(rows []value.Row, field string) []float64 {
	numbers := make([]float64, 0, len(rows))
	for _, row := range rows {
		if number, ok := NumericValue(row, field); ok {
			numbers = append(numbers, number)
		}
	}
	return numbers
}

// NumericValue resolves a field and coerces it to a finite number.
func NumericValue(row value.Row, field string) (float64, bool) {
	resolved, ok := fields.Resolve(row, field)
	if !ok || resolved.IsBlank() {
		return 0, false
	}
	return resolved.Float()
}

func countDistinct(rows []value.Row, field string) int {
	distinct := make(map[string]struct{})
	for _, row := range rows {
		resolved, ok := fields.Resolve(row, field)
		if !ok || resolved.IsNull() {
			continue
		}
		distinct[resolved.DistinctKey()] = struct{}{}
	}
	return len(distinct)
}

func sum(numbers []float64) float64 {
	var total float64
	for _, number := range numbers {
		total += number
	}
	return total
}

// Round10 rounds to 10 decimals, removing floating-point noise like 0.1+0.2 = 0.30000000000000004.
func Round10(number float64) float64 {
	if math.IsNaN(number) || math.IsInf(number, 0) || math.Abs(number) >= 1e15 {
		return number
	}
	return math.Round(number*1e10) / 1e10
}
