// Package clickhouse runs widget queries on ClickHouse, either pushed down as grouped SQL or as
// raw row fetches for local execution.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ClickHouse/clickhouse-go/v2/lib/proto"
	"hermannm.dev/devlog/log"
	"hermannm.dev/widgetengine/config"
	"hermannm.dev/widgetengine/db/sqlquery"
	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/wrap"
)

// Implements query.RemoteExecutor and query.RowSource for ClickHouse.
type ClickHouseDB struct {
	conn     driver.Conn
	rowLimit int
}

func NewClickHouseDB(config config.Config) (ClickHouseDB, error) {
	// Options docs: https://clickhouse.com/docs/en/integrations/go#connection-settings
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{config.ClickHouse.Address},
		Auth: clickhouse.Auth{
			Database: config.ClickHouse.DatabaseName,
			Username: config.ClickHouse.Username,
			Password: config.ClickHouse.Password,
		},
		Debug:       config.ClickHouse.Debug,
		Debugf:      log.Debugf,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return ClickHouseDB{}, wrap.Error(err, "failed to connect to ClickHouse")
	}

	if err := conn.Ping(context.Background()); err != nil {
		return ClickHouseDB{}, wrap.Error(err, "failed to ping ClickHouse connection")
	}

	return ClickHouseDB{conn: conn, rowLimit: config.RowFetchLimit}, nil
}

func (clickhouse ClickHouseDB) Close() error {
	return clickhouse.conn.Close()
}

func (clickhouse ClickHouseDB) Supports(plan query.Plan) error {
	return sqlquery.Supports(sqlquery.ClickHouse, plan)
}

func (clickhouse ClickHouseDB) Execute(
	ctx context.Context,
	plan query.Plan,
	table string,
) ([]value.Row, error) {
	built, err := sqlquery.Build(sqlquery.ClickHouse, plan, table)
	if err != nil {
		return nil, wrap.Error(err, "failed to build query")
	}

	log.Debug(
		"generated clickhouse query",
		slog.String("plan", plan.ID),
		slog.String("query", built.SQL),
	)

	rows, err := clickhouse.conn.Query(ctx, built.SQL, built.Args...)
	if err != nil {
		return nil, wrapQueryError(err, table)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, wrap.Error(err, "failed to parse query result")
	}
	return result, nil
}

func (clickhouse ClickHouseDB) FetchRows(ctx context.Context, table string) ([]value.Row, error) {
	if err := sqlquery.ClickHouse.ValidateIdentifier(table); err != nil {
		return nil, wrap.Error(err, "invalid table name")
	}

	var query sqlquery.QueryBuilder
	query.WriteString("SELECT * FROM ")
	query.WriteString(sqlquery.ClickHouse.QuoteIdentifier(table))
	query.WriteString(" LIMIT ")
	query.WriteInt(clickhouse.rowLimit)

	rows, err := clickhouse.conn.Query(ctx, query.String())
	if err != nil {
		return nil, wrapQueryError(err, table)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, wrap.Error(err, "failed to parse fetched rows")
	}
	return result, nil
}

// See https://github.com/ClickHouse/ClickHouse/blob/bd387f6d2c30f67f2822244c0648f2169adab4d3/src/Common/ErrorCodes.cpp#L66
const clickhouseUnknownTableErrorCode = 60

func wrapQueryError(err error, table string) error {
	clickHouseErr, isClickHouseErr := err.(*proto.Exception)
	if isClickHouseErr && clickHouseErr.Code == clickhouseUnknownTableErrorCode {
		return &query.ConfigError{Message: fmt.Sprintf("table '%s' does not exist in ClickHouse", table)}
	}
	return wrap.Error(err, "failed to execute query against ClickHouse")
}
