// Package postgres runs widget queries on PostgreSQL (including TimescaleDB).
package postgres

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"hermannm.dev/devlog/log"
	"hermannm.dev/widgetengine/config"
	"hermannm.dev/widgetengine/db/sqlquery"
	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/wrap"
)

// Implements query.RemoteExecutor and query.RowSource for PostgreSQL.
type PostgresDB struct {
	// pgx.Conn is not safe for concurrent use.
	lock     *sync.Mutex
	conn     *pgx.Conn
	rowLimit int
}

func NewPostgresDB(ctx context.Context, config config.Config) (PostgresDB, error) {
	conn, err := pgx.Connect(ctx, config.Postgres.URI)
	if err != nil {
		return PostgresDB{}, wrap.Error(err, "failed to connect to PostgreSQL")
	}

	if err := conn.Ping(ctx); err != nil {
		return PostgresDB{}, wrap.Error(err, "failed to ping PostgreSQL connection")
	}

	return PostgresDB{lock: new(sync.Mutex), conn: conn, rowLimit: config.RowFetchLimit}, nil
}

func (postgres PostgresDB) Close(ctx context.Context) error {
	return postgres.conn.Close(ctx)
}

func (postgres PostgresDB) Supports(plan query.Plan) error {
	return sqlquery.Supports(sqlquery.PostgreSQL, plan)
}

func (postgres PostgresDB) Execute(
	ctx context.Context,
	plan query.Plan,
	table string,
) ([]value.Row, error) {
	built, err := sqlquery.Build(sqlquery.PostgreSQL, plan, table)
	if err != nil {
		return nil, wrap.Error(err, "failed to build query")
	}

	log.Debug(
		"generated postgres query",
		slog.String("plan", plan.ID),
		slog.String("query", built.SQL),
	)

	return postgres.collect(ctx, built.SQL, built.Args...)
}

func (postgres PostgresDB) FetchRows(ctx context.Context, table string) ([]value.Row, error) {
	if err := sqlquery.PostgreSQL.ValidateIdentifier(table); err != nil {
		return nil, wrap.Error(err, "invalid table name")
	}

	var builder sqlquery.QueryBuilder
	builder.WriteString("SELECT * FROM ")
	builder.WriteString(sqlquery.PostgreSQL.QuoteIdentifier(table))
	builder.WriteString(" LIMIT ")
	builder.WriteInt(postgres.rowLimit)

	return postgres.collect(ctx, builder.String())
}

func (postgres PostgresDB) collect(ctx context.Context, sql string, args ...any) ([]value.Row, error) {
	postgres.lock.Lock()
	defer postgres.lock.Unlock()

	rows, err := postgres.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrap.Error(err, "failed to execute query against PostgreSQL")
	}

	result, err := pgx.CollectRows(rows, toRow)
	if err != nil {
		return nil, wrap.Error(err, "failed to read query result")
	}
	return result, nil
}

func toRow(row pgx.CollectableRow) (value.Row, error) {
	values, err := row.Values()
	if err != nil {
		return value.Row{}, err
	}

	fieldDescriptions := row.FieldDescriptions()
	converted := value.NewRow(len(fieldDescriptions))
	for i, field := range fieldDescriptions {
		converted.Set(field.Name, convertValue(values[i]))
	}
	return converted, nil
}

// convertValue maps pgx's decoded values to a value.Value. NUMERIC columns, which sum() and avg()
// return, decode to pgtype.Numeric rather than a Go number.
func convertValue(raw any) value.Value {
	if numeric, ok := raw.(pgtype.Numeric); ok {
		float, err := numeric.Float64Value()
		if err != nil || !float.Valid {
			return value.Null()
		}
		return value.Number(float.Float64)
	}
	return value.FromAny(raw)
}
