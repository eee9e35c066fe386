package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/value"
)

func writeFile(t *testing.T, dir string, name string, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFetchCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv", "Region,Revenue\nEU,100\nUS,40\n")
	loader := Loader{dir: dir}

	for _, table := range []string{"orders.csv", "orders"} {
		rows, err := loader.FetchRows(context.Background(), table)
		require.NoError(t, err, table)
		assert.Equal(
			t,
			[]value.Row{
				value.RowOf("Region", "EU", "Revenue", 100),
				value.RowOf("Region", "US", "Revenue", 40),
			},
			rows,
			table,
		)
	}
}

func TestFetchGlobConcatenatesInPathOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sales/2024/q2.csv", "Month,Units\nApr,4\n")
	writeFile(t, dir, "sales/2024/q1.csv", "Month,Units\nJan,1\nFeb,2\n")
	writeFile(t, dir, "sales/notes.md", "ignored")

	rows, err := Loader{dir: dir}.FetchRows(context.Background(), "sales/**/*.csv")
	require.NoError(t, err)

	months := make([]string, 0, len(rows))
	for _, row := range rows {
		month, _ := row.Get("Month")
		months = append(months, month.String())
	}
	assert.Equal(t, []string{"Jan", "Feb", "Apr"}, months)
}

func TestFetchRowLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv", "Region\nEU\nUS\nAPAC\n")

	rows, err := Loader{dir: dir, rowLimit: 2}.FetchRows(context.Background(), "orders.csv")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFetchJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.json", `{"data": {"items": [
		{"Region": "EU", "Revenue": 100, "Closed": true},
		{"Region": "US", "Revenue": 40.5, "Closed": null}
	]}}`)
	writeFile(t, dir, "flat.json", `[{"b": 2, "a": "x"}]`)
	loader := Loader{dir: dir}

	rows, err := loader.FetchRows(context.Background(), "orders.json#$.data.items[*]")
	require.NoError(t, err)
	assert.Equal(
		t,
		[]value.Row{
			value.RowOf("Closed", true, "Region", "EU", "Revenue", 100),
			value.RowOf("Closed", nil, "Region", "US", "Revenue", 40.5),
		},
		rows,
	)

	rows, err = loader.FetchRows(context.Background(), "flat.json")
	require.NoError(t, err)
	assert.Equal(t, []value.Row{value.RowOf("a", "x", "b", 2)}, rows)
}

func TestFetchJSONLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "events.jsonl", "{\"Kind\": \"click\"}\n\n{\"Kind\": \"view\", \"Tags\": [1]}\n")

	rows, err := Loader{dir: dir}.FetchRows(context.Background(), "events.jsonl")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	tags, _ := rows[1].Get("Tags")
	assert.Equal(t, value.String("[1]"), tags)
}

func TestFetchXLSX(t *testing.T) {
	dir := t.TempDir()
	workbook := excelize.NewFile()
	require.NoError(t, workbook.SetSheetRow("Sheet1", "A1", &[]any{"Region", "Revenue"}))
	require.NoError(t, workbook.SetSheetRow("Sheet1", "A2", &[]any{"EU", 100}))
	require.NoError(t, workbook.SetSheetRow("Sheet1", "A3", &[]any{"US"}))
	require.NoError(t, workbook.SaveAs(filepath.Join(dir, "orders.xlsx")))
	require.NoError(t, workbook.Close())

	rows, err := Loader{dir: dir}.FetchRows(context.Background(), "orders.xlsx")
	require.NoError(t, err)
	assert.Equal(
		t,
		[]value.Row{
			value.RowOf("Region", "EU", "Revenue", 100),
			value.RowOf("Region", "US", "Revenue", nil),
		},
		rows,
	)
}

type parquetOrder struct {
	Region  string  `parquet:"Region"`
	Revenue float64 `parquet:"Revenue"`
}

func TestFetchParquet(t *testing.T) {
	dir := t.TempDir()
	file, err := os.Create(filepath.Join(dir, "orders.parquet"))
	require.NoError(t, err)

	writer := parquet.NewGenericWriter[parquetOrder](file)
	_, err = writer.Write([]parquetOrder{{"EU", 100}, {"US", 40}})
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, file.Close())

	rows, err := Loader{dir: dir}.FetchRows(context.Background(), "orders.parquet")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"Region", "Revenue"}, rows[0].Keys())
	revenue, _ := rows[1].Get("Revenue")
	assert.Equal(t, value.Number(40), revenue)
}

func TestFetchRejectsInvalidTables(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv", "Region\nEU\n")
	loader := Loader{dir: dir}

	for _, table := range []string{"../orders.csv", "", "missing.csv", "/etc/passwd"} {
		_, err := loader.FetchRows(context.Background(), table)
		assert.ErrorIs(t, err, query.ErrConfiguration, table)
	}
}

func TestFetchCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv", "Region\nEU\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Loader{dir: dir}.FetchRows(ctx, "orders.csv")
	assert.ErrorIs(t, err, context.Canceled)
}
