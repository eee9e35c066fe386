// Package elasticsearch loads raw documents from an Elasticsearch index for local widget
// execution. Aggregations are never pushed down to Elasticsearch.
package elasticsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	elastictypes "github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/devlog/log"
	"hermannm.dev/widgetengine/config"
	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/wrap"
)

// Implements query.RowSource and query.RemoteExecutor. Supports always rejects plans, so the
// engine computes every widget locally from the fetched documents.
type ElasticsearchDB struct {
	client   *elasticsearch.TypedClient
	rowLimit int
}

func NewElasticsearchDB(config config.Config) (ElasticsearchDB, error) {
	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses:         []string{config.Elasticsearch.Address},
		EnableDebugLogger: config.Elasticsearch.Debug,
	})
	if err != nil {
		return ElasticsearchDB{}, wrap.Error(err, "failed to connect to Elasticsearch")
	}

	return ElasticsearchDB{client: client, rowLimit: config.RowFetchLimit}, nil
}

const elasticIndexNotFoundException = "index_not_found_exception"

var errNoPushdown = errors.New("Elasticsearch backend does not execute aggregations")

func (elastic ElasticsearchDB) Supports(query.Plan) error {
	return errNoPushdown
}

func (elastic ElasticsearchDB) Execute(context.Context, query.Plan, string) ([]value.Row, error) {
	return nil, errNoPushdown
}

func (elastic ElasticsearchDB) FetchRows(ctx context.Context, index string) ([]value.Row, error) {
	response, err := elastic.client.Search().Index(index).Size(elastic.rowLimit).Do(ctx)
	if err != nil {
		return nil, searchError(err, index)
	}

	log.Debug(
		"fetched documents from Elasticsearch",
		slog.String("index", index),
		slog.Int("count", len(response.Hits.Hits)),
	)

	rows := make([]value.Row, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		row, err := documentToRow(hit.Source_)
		if err != nil {
			return nil, wrap.Errorf(err, "failed to decode document in index '%s'", index)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// searchError turns a missing index into a *query.ConfigError, since it comes from the widget's
// table name. Other Elasticsearch errors are flattened to their reason and root causes.
func searchError(err error, index string) error {
	var elasticErr *elastictypes.ElasticsearchError
	if !errors.As(err, &elasticErr) {
		return wrap.Errorf(err, "search request on index '%s' failed", index)
	}

	cause := elasticErr.ErrorCause
	if cause.Type == elasticIndexNotFoundException {
		return &query.ConfigError{Message: fmt.Sprintf("index '%s' does not exist", index)}
	}

	message := fmt.Sprintf(
		"Elasticsearch rejected search on index '%s' with status %d: %s",
		index,
		elasticErr.Status,
		describeCause(cause.Type, cause.Reason),
	)
	if len(cause.RootCause) == 0 {
		return errors.New(message)
	}

	rootCauses := make([]error, len(cause.RootCause))
	for i, rootCause := range cause.RootCause {
		rootCauses[i] = errors.New(describeCause(rootCause.Type, rootCause.Reason))
	}
	return wrap.Errors(message, rootCauses...)
}

func describeCause(causeType string, reason *string) string {
	if reason == nil {
		return causeType
	}
	return fmt.Sprintf("%s [%s]", *reason, causeType)
}

// Nested objects and arrays are kept as their JSON text.
func documentToRow(source []byte) (value.Row, error) {
	if len(source) == 0 {
		return value.NewRow(0), nil
	}

	var row value.Row
	if err := row.UnmarshalJSON(source); err != nil {
		return value.Row{}, err
	}
	return row, nil
}
