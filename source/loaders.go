package source

import (
	"bufio"
	"errors"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
	"hermannm.dev/widgetengine/csv"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/wrap"
)

func loadCSV(path string, _ string) ([]value.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, wrap.Error(err, "failed to open CSV file")
	}
	defer file.Close()

	rows, _, err := csv.ReadRows(file)
	return rows, err
}

func loadParquet(path string, _ string) ([]value.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, wrap.Error(err, "failed to open Parquet file")
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, wrap.Error(err, "failed to stat Parquet file")
	}

	parquetFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, wrap.Error(err, "failed to read Parquet metadata")
	}

	fields := parquetFile.Schema().Fields()
	columns := make([]string, 0, len(fields))
	for _, field := range fields {
		columns = append(columns, field.Name())
	}

	reader := parquet.NewReader(parquetFile)
	defer reader.Close()

	var rows []value.Row
	for {
		record := make(map[string]any, len(columns))
		if err := reader.Read(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, wrap.Errorf(err, "failed to read Parquet row %d", len(rows)+1)
		}

		row := value.NewRow(len(columns))
		for _, column := range columns {
			row.Set(column, convertDecoded(record[column]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Reads the first sheet, with its first row as the header. Cells are text in the workbook
// format; numeric text becomes a number.
func loadXLSX(path string, _ string) ([]value.Row, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, wrap.Error(err, "failed to open XLSX file")
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	cells, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read sheet '%s'", sheets[0])
	}
	if len(cells) == 0 {
		return nil, nil
	}

	header := cells[0]
	rows := make([]value.Row, 0, len(cells)-1)
	for _, record := range cells[1:] {
		if len(record) == 0 {
			continue
		}

		row := value.NewRow(len(header))
		for i, column := range header {
			if i >= len(record) || strings.TrimSpace(record[i]) == "" {
				row.Set(column, value.Null())
			} else if number, ok := value.ParseNumber(record[i]); ok {
				row.Set(column, value.Number(number))
			} else {
				row.Set(column, value.String(record[i]))
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// With no JSONPath, a top-level array yields one row per element and an object yields one row.
func loadJSON(path string, jsonPath string) ([]value.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap.Error(err, "failed to read JSON file")
	}

	document, err := oj.Parse(data)
	if err != nil {
		return nil, wrap.Error(err, "failed to parse JSON")
	}

	var selected []any
	if jsonPath == "" {
		if array, isArray := document.([]any); isArray {
			selected = array
		} else {
			selected = []any{document}
		}
	} else {
		expression, err := jp.ParseString(jsonPath)
		if err != nil {
			return nil, wrap.Errorf(err, "invalid JSONPath '%s'", jsonPath)
		}
		selected = expression.Get(document)
	}

	rows := make([]value.Row, 0, len(selected))
	for i, element := range selected {
		row, err := objectToRow(element)
		if err != nil {
			return nil, wrap.Errorf(err, "failed to convert JSON element %d", i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func loadJSONLines(path string, _ string) ([]value.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, wrap.Error(err, "failed to open JSON lines file")
	}
	defer file.Close()

	var rows []value.Row
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		element, err := oj.ParseString(line)
		if err != nil {
			return nil, wrap.Errorf(err, "failed to parse line %d", lineNumber)
		}
		row, err := objectToRow(element)
		if err != nil {
			return nil, wrap.Errorf(err, "failed to convert line %d", lineNumber)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, wrap.Error(err, "failed to scan JSON lines file")
	}
	return rows, nil
}

// Keys are sorted, since the parsed object does not keep source order.
func objectToRow(element any) (value.Row, error) {
	object, ok := element.(map[string]any)
	if !ok {
		return value.Row{}, errors.New("expected a JSON object")
	}

	row := value.NewRow(len(object))
	for _, key := range slices.Sorted(maps.Keys(object)) {
		row.Set(key, convertDecoded(object[key]))
	}
	return row, nil
}

// Nested objects and lists are kept as JSON text.
func convertDecoded(raw any) value.Value {
	switch raw := raw.(type) {
	case map[string]any, []any:
		return value.String(oj.JSON(raw))
	default:
		return value.FromAny(raw)
	}
}
