package clickhouse

import (
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/wrap"
)

// scanRows reads every result row into a value.Row, scanning each column into its driver type.
func scanRows(rows driver.Rows) ([]value.Row, error) {
	columns := rows.Columns()
	columnTypes := rows.ColumnTypes()

	var result []value.Row
	for rows.Next() {
		targets := make([]any, len(columnTypes))
		for i, columnType := range columnTypes {
			targets[i] = reflect.New(columnType.ScanType()).Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, wrap.Errorf(err, "failed to scan result row %d", len(result)+1)
		}

		row := value.NewRow(len(columns))
		for i, column := range columns {
			row.Set(column, value.FromAny(targets[i]))
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap.Error(err, "failed to read result rows")
	}
	return result, nil
}
