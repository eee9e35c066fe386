package csv

import (
	"errors"
	"io"

	"hermannm.dev/widgetengine/value"
	"hermannm.dev/wrap"
)

const typeDeductionRows = 1000

var errTooManyFields = errors.New("row contains more fields than there are columns")

// ReadRows loads every data row of the file, keyed by the header row's column names and
// converted to the column types deduced from the first rows. Missing trailing fields are null.
func ReadRows(csvFile io.ReadSeeker) ([]value.Row, []Column, error) {
	reader, err := NewReader(csvFile)
	if err != nil {
		return nil, nil, wrap.Error(err, "failed to deduce CSV field delimiter")
	}

	columns, err := reader.DeduceColumnTypes(typeDeductionRows)
	if err != nil {
		return nil, nil, err
	}

	var rows []value.Row
	for {
		rawRow, rowNumber, done, err := reader.ReadRow()
		if done {
			break
		}
		if err != nil {
			return nil, nil, wrap.Errorf(err, "failed to read row %d of CSV file", reader.currentRow)
		}
		if isBlankRow(rawRow) {
			continue
		}
		if len(rawRow) > len(columns) {
			return nil, nil, wrap.Errorf(
				errTooManyFields,
				"row %d has %d fields but header has %d",
				rowNumber,
				len(rawRow),
				len(columns),
			)
		}

		row := value.NewRow(len(columns))
		for i, column := range columns {
			if i < len(rawRow) {
				row.Set(column.Name, column.convert(rawRow[i]))
			} else {
				row.Set(column.Name, value.Null())
			}
		}
		rows = append(rows, row)
	}

	return rows, columns, nil
}

func isBlankRow(row []string) bool {
	return len(row) == 1 && row[0] == ""
}
