// Package quickcalc derives series from already aggregated, already ordered values: running
// totals, moving averages, period-over-period changes and shares of the total.
package quickcalc

import (
	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/value"
)

const DefaultMovingAverageWindow = 3

// Rows this far back are compared by year-over-year, assuming one row per month.
const monthsPerYear = 12

type Calculation struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Window is the moving-average window size. Defaults to DefaultMovingAverageWindow.
	Window int `json:"window,omitempty" yaml:"window,omitempty"`
}

// Compute transforms a series in order. Results are rounded to 10 decimals. Year-over-year gives
// null where there is no value 12 positions back; every other output is a number.
func Compute(values []float64, calculation Calculation) []value.Value {
	results := make([]value.Value, len(values))

	switch calculation.Kind {
	case KindPercentOfTotal:
		var total float64
		for _, number := range values {
			total += number
		}
		for i, number := range values {
			results[i] = rounded(ratio(number, total) * 100)
		}
	case KindRunningTotal:
		var runningTotal float64
		for i, number := range values {
			runningTotal += number
			results[i] = rounded(runningTotal)
		}
	case KindMovingAverage:
		window := calculation.Window
		if window <= 0 {
			window = DefaultMovingAverageWindow
		}
		for i := range values {
			results[i] = rounded(centeredAverage(values, i, window/2))
		}
	case KindYearOverYear:
		for i, number := range values {
			if i < monthsPerYear {
				results[i] = value.Null()
				continue
			}
			previous := values[i-monthsPerYear]
			results[i] = rounded(ratio(number-previous, previous) * 100)
		}
	case KindDifference:
		for i, number := range values {
			if i == 0 {
				results[i] = value.Number(0)
				continue
			}
			results[i] = rounded(number - values[i-1])
		}
	case KindPercentChange:
		for i, number := range values {
			if i == 0 {
				results[i] = value.Number(0)
				continue
			}
			results[i] = rounded(ratio(number-values[i-1], values[i-1]) * 100)
		}
	default:
		for i := range results {
			results[i] = value.Null()
		}
	}

	return results
}

// ratio divides, giving 0 for a zero denominator.
func ratio(numerator float64, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// centeredAverage averages the values within radius of index, clipped at the ends of the series.
func centeredAverage(values []float64, index int, radius int) float64 {
	start := max(0, index-radius)
	end := min(len(values)-1, index+radius)

	var sum float64
	for i := start; i <= end; i++ {
		sum += values[i]
	}
	return sum / float64(end-start+1)
}

func rounded(number float64) value.Value {
	return value.Number(aggregate.Round10(number))
}

// Apply computes a calculation over a field of ordered rows, returning copies of the rows with
// the result stored under outputField. Rows without a numeric value count as 0.
func Apply(rows []value.Row, valueField string, outputField string, calculation Calculation) []value.Row {
	values := make([]float64, len(rows))
	for i, row := range rows {
		if number, ok := aggregate.NumericValue(row, valueField); ok {
			values[i] = number
		}
	}

	results := Compute(values, calculation)

	output := make([]value.Row, len(rows))
	for i, row := range rows {
		output[i] = row.Clone()
		output[i].Set(outputField, results[i])
	}
	return output
}
