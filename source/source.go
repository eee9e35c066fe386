// Package source loads raw rows from files in a local data directory, for widgets computed
// without a database.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"hermannm.dev/devlog/log"
	"hermannm.dev/widgetengine/config"
	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/wrap"
)

// Loader implements query.RowSource over files in a directory. A table name is a file name, a
// file name without extension, or a doublestar glob ("sales/**/*.csv"); rows of all matched
// files are concatenated in path order. JSON tables may select rows with a JSONPath suffix:
// "orders.json#$.data[*]".
type Loader struct {
	dir      string
	rowLimit int
}

func NewLoader(config config.Config) Loader {
	return Loader{dir: config.Local.DataDir, rowLimit: config.RowFetchLimit}
}

type fileLoader func(path string, jsonPath string) ([]value.Row, error)

var loadersByExtension = map[string]fileLoader{
	".csv":     loadCSV,
	".tsv":     loadCSV,
	".txt":     loadCSV,
	".parquet": loadParquet,
	".xlsx":    loadXLSX,
	".json":    loadJSON,
	".jsonl":   loadJSONLines,
	".ndjson":  loadJSONLines,
}

func (loader Loader) FetchRows(ctx context.Context, table string) ([]value.Row, error) {
	table, jsonPath, _ := strings.Cut(table, "#")

	paths, err := loader.resolve(table)
	if err != nil {
		return nil, err
	}

	var rows []value.Row
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		load := loadersByExtension[strings.ToLower(filepath.Ext(path))]
		fileRows, err := load(path, jsonPath)
		if err != nil {
			return nil, wrap.Errorf(err, "failed to load rows from '%s'", path)
		}

		rows = append(rows, fileRows...)
		if loader.rowLimit > 0 && len(rows) >= loader.rowLimit {
			log.Warnf("row limit of %d reached when loading table '%s'", loader.rowLimit, table)
			rows = rows[:loader.rowLimit]
			break
		}
	}

	log.Debug(
		"loaded local rows",
		slog.String("table", table),
		slog.Int("files", len(paths)),
		slog.Int("rows", len(rows)),
	)
	return rows, nil
}

func (loader Loader) resolve(table string) ([]string, error) {
	if table == "" || !filepath.IsLocal(table) {
		return nil, &query.ConfigError{
			Message: fmt.Sprintf("table '%s' must be a path inside the data directory", table),
		}
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(table)) {
		return nil, &query.ConfigError{Message: fmt.Sprintf("invalid table pattern '%s'", table)}
	}

	pattern := filepath.Join(loader.dir, table)
	if filepath.Ext(table) == "" {
		pattern += ".*"
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to match files for table '%s'", table)
	}

	paths := make([]string, 0, len(matches))
	for _, match := range matches {
		if _, supported := loadersByExtension[strings.ToLower(filepath.Ext(match))]; !supported {
			continue
		}
		if info, err := os.Stat(match); err != nil || info.IsDir() {
			continue
		}
		paths = append(paths, match)
	}

	if len(paths) == 0 {
		return nil, &query.ConfigError{
			Message: fmt.Sprintf("no supported data files found for table '%s'", table),
		}
	}
	return paths, nil
}
