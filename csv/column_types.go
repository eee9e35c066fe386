package csv

import (
	"strconv"
	"strings"
	"time"

	"hermannm.dev/enumnames"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/wrap"
)

type ColumnType int8

const (
	ColumnTypeNumber ColumnType = iota + 1
	ColumnTypeBool
	ColumnTypeDate
	ColumnTypeText
)

var columnTypeNames = enumnames.NewMap(map[ColumnType]string{
	ColumnTypeNumber: "number",
	ColumnTypeBool:   "bool",
	ColumnTypeDate:   "date",
	ColumnTypeText:   "text",
})

func (columnType ColumnType) IsValid() bool {
	return columnTypeNames.ContainsEnumValue(columnType)
}

func (columnType ColumnType) String() string {
	return columnTypeNames.GetNameOrFallback(columnType, "INVALID_COLUMN_TYPE")
}

func (columnType ColumnType) MarshalJSON() ([]byte, error) {
	return columnTypeNames.MarshalToNameJSON(columnType)
}

type Column struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Optional bool       `json:"optional"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// DeduceColumnTypes reads the header row and up to maxRowsToCheck data rows. A column whose
// fields disagree on type falls back to text, and a column with only blank fields is text.
func (reader *Reader) DeduceColumnTypes(maxRowsToCheck int) (columns []Column, err error) {
	// Leaves the reader just after the header row
	defer func() {
		if resetErr := reader.ResetReadPosition(); resetErr != nil {
			err = wrap.Error(resetErr, "failed to reset CSV file after deducing column types")
			return
		}
		if _, headerErr := reader.ReadHeaderRow(); headerErr != nil && err == nil {
			err = wrap.Error(headerErr, "failed to skip CSV header row after deducing column types")
		}
	}()

	headers, err := reader.ReadHeaderRow()
	if err != nil {
		return nil, wrap.Error(err, "failed to read CSV column names from header row")
	}

	columns = make([]Column, 0, len(headers))
	for _, header := range headers {
		columns = append(columns, Column{Name: strings.TrimSpace(header)})
	}

	for {
		row, rowNumber, done, err := reader.ReadRow()
		if done || rowNumber > maxRowsToCheck+1 {
			break
		}
		if err != nil {
			return nil, wrap.Errorf(err, "failed to read row %d of CSV file", reader.currentRow)
		}

		for i, field := range row {
			if i >= len(columns) {
				break
			}
			columns[i].observe(field)
		}
	}

	for i := range columns {
		if !columns[i].Type.IsValid() {
			columns[i].Type = ColumnTypeText
		}
	}
	return columns, nil
}

func (column *Column) observe(field string) {
	deducedType, isBlank := deduceColumnTypeFromField(field)
	switch {
	case isBlank:
		column.Optional = true
	case !column.Type.IsValid():
		column.Type = deducedType
	case column.Type != deducedType:
		column.Type = ColumnTypeText
	}
}

func deduceColumnTypeFromField(field string) (deducedType ColumnType, isBlank bool) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, true
	}
	if _, ok := value.ParseNumber(field); ok {
		return ColumnTypeNumber, false
	}
	if _, err := strconv.ParseBool(field); err == nil {
		return ColumnTypeBool, false
	}
	if _, ok := parseDate(field); ok {
		return ColumnTypeDate, false
	}
	return ColumnTypeText, false
}

func parseDate(field string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, field); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

func (column Column) convert(field string) value.Value {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return value.Null()
	}

	switch column.Type {
	case ColumnTypeNumber:
		if number, ok := value.ParseNumber(trimmed); ok {
			return value.Number(number)
		}
	case ColumnTypeBool:
		if truth, err := strconv.ParseBool(trimmed); err == nil {
			return value.Bool(truth)
		}
	case ColumnTypeDate:
		if date, ok := parseDate(trimmed); ok {
			return value.Date(date)
		}
	}
	return value.String(field)
}
