package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"testing"
	"time"

	"hermannm.dev/devlog"
	"hermannm.dev/widgetengine/csv"
	"hermannm.dev/widgetengine/formula"
	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/widgetengine/widget"
	"hermannm.dev/wrap"
)

const benchmarkFormula = "IF([value] > 500, ROUND([value] * 1.25, 2), [value] - [discount])"

var (
	testRows []value.Row

	testSpec = widget.Spec{
		Type:   widget.TypeChart,
		XAxis:  "date___quarter",
		Legend: "currency",
		YAxis:  []string{"value", "net"},
		CalculatedFields: []widget.CalculatedField{
			{Name: "net", Formula: "[value] - [discount]"},
		},
		Filters: []widget.Filter{
			{Field: "responsibleName", Operator: widget.OperatorIsNotNull},
		},
	}
)

type staticSource []value.Row

func (source staticSource) FetchRows(context.Context, string) ([]value.Row, error) {
	return source, nil
}

// Sets up logger and generates test data before running benchmarks.
func TestMain(m *testing.M) {
	logHandler := devlog.NewHandler(os.Stdout, &devlog.Options{Level: slog.LevelWarn})
	slog.SetDefault(slog.New(logHandler))

	testRows = generateRows(10000)

	os.Exit(m.Run())
}

func generateRows(count int) []value.Row {
	random := rand.New(rand.NewSource(1))
	currencies := []string{"NOK", "EUR", "USD", "SEK"}
	names := []string{"Ada", "Grace", "Linus", "Ken"}
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	rows := make([]value.Row, 0, count)
	for i := 0; i < count; i++ {
		var responsible any
		if random.Intn(10) != 0 {
			responsible = names[random.Intn(len(names))]
		}

		rows = append(rows, value.RowOf(
			"currency", currencies[random.Intn(len(currencies))],
			"value", random.Intn(1000),
			"discount", random.Float64()*50,
			"date", start.AddDate(0, 0, random.Intn(730)),
			"invoiceNumber", i,
			"responsibleName", responsible,
		))
	}
	return rows
}

func BenchmarkCompiledFormula(b *testing.B) {
	compiled := formula.Compile(benchmarkFormula)
	if err := compiled.Err(); err != nil {
		b.Fatal(wrap.Error(err, "failed to compile benchmark formula"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, row := range testRows {
			compiled.Eval(row)
		}
	}
}

func BenchmarkAdHocFormula(b *testing.B) {
	for i := 0; i < b.N; i++ {
		for _, row := range testRows {
			formula.Evaluate(benchmarkFormula, row)
		}
	}
}

func BenchmarkLocalQuery(b *testing.B) {
	plan, err := query.BuildPlan(testSpec)
	if err != nil {
		b.Fatal(wrap.Error(err, "failed to build plan for benchmark spec"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		query.RunLocal(plan, testRows)
	}
}

func BenchmarkConcurrentQueries(b *testing.B) {
	const concurrentQueries = 1024

	engine := query.NewEngine(nil, staticSource(testRows))

	// Divides by GOMAXPROCS, since SetParallelism multiplies its argument by GOMAXPROCS, and we
	// want exactly concurrentQueries number of concurrent queries
	b.SetParallelism(max(concurrentQueries/runtime.GOMAXPROCS(0), 1))

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := engine.Run(context.Background(), testSpec, "invoices"); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkReadCSV(b *testing.B) {
	var data bytes.Buffer
	data.WriteString("currency;value;date;invoiceNumber\n")
	for i, row := range testRows[:2000] {
		currency, _ := row.Get("currency")
		amount, _ := row.Get("value")
		date, _ := row.Get("date")
		fmt.Fprintf(&data, "%s;%s;%s;%d\n", currency, amount, date, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := csv.ReadRows(bytes.NewReader(data.Bytes())); err != nil {
			b.Fatal(wrap.Error(err, "failed to read CSV test data"))
		}
	}
}
