package csv

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermannm.dev/widgetengine/value"
)

func TestDeduceFieldDelimiter(t *testing.T) {
	for _, testCase := range []struct {
		name     string
		content  string
		expected rune
	}{
		{"comma", "Region,Revenue\nEU,10\nUS,20\n", ','},
		{"semicolon", "Region;Revenue\nEU;10,5\nUS;20\n", ';'},
		{"tab", "Region\tRevenue\nEU\t10\n", '\t'},
		{"quoted commas", "Name|Note\nA|\"x, y, z\"\nB|plain\n", '|'},
		{"single column", "Region\nEU\nUS\n", ','},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			file := strings.NewReader(testCase.content)

			delimiter, err := DeduceFieldDelimiter(file, 20, DefaultDelimitersToCheck)
			require.NoError(t, err)
			assert.Equal(t, string(testCase.expected), string(delimiter))

			position, err := file.Seek(0, 1)
			require.NoError(t, err)
			assert.Zero(t, position)
		})
	}
}

func TestReadRows(t *testing.T) {
	content := strings.Join([]string{
		"Region;Revenue;Date;Closed;Code",
		"EU;120.5;2024-01-15;true;A1",
		"US;;2024-02-01;false;7",
		"APAC;30;;true",
	}, "\n")

	rows, columns, err := ReadRows(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, []Column{
		{Name: "Region", Type: ColumnTypeText},
		{Name: "Revenue", Type: ColumnTypeNumber, Optional: true},
		{Name: "Date", Type: ColumnTypeDate, Optional: true},
		{Name: "Closed", Type: ColumnTypeBool},
		{Name: "Code", Type: ColumnTypeText},
	}, columns)

	require.Len(t, rows, 3)
	assert.Equal(
		t,
		value.RowOf(
			"Region", "EU",
			"Revenue", 120.5,
			"Date", time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			"Closed", true,
			"Code", "A1",
		),
		rows[0],
	)

	revenue, _ := rows[1].Get("Revenue")
	assert.True(t, revenue.IsNull())
	code, _ := rows[1].Get("Code")
	assert.Equal(t, value.String("7"), code)

	missing, ok := rows[2].Get("Code")
	assert.True(t, ok)
	assert.True(t, missing.IsNull())
}

func TestReadRowsRejectsExtraFields(t *testing.T) {
	_, _, err := ReadRows(strings.NewReader("a,b\n1,2\n1,2,3\n"))
	assert.ErrorContains(t, err, "row 3 has 3 fields but header has 2")
}

func TestReadRowsEmptyFile(t *testing.T) {
	_, _, err := ReadRows(strings.NewReader(""))
	assert.ErrorContains(t, err, "csv file ended before header row")
}
