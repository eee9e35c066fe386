package sqlquery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/fields"
)

var (
	ClickHouse Dialect = clickHouseDialect{}
	PostgreSQL Dialect = postgresDialect{}
)

type clickHouseDialect struct{}

func (clickHouseDialect) Name() string {
	return "ClickHouse"
}

func (clickHouseDialect) ValidateIdentifier(identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return errors.New("identifier is blank")
	}
	if strings.ContainsRune(identifier, '`') {
		return fmt.Errorf("'%s' contains `, which is incompatible with database", identifier)
	}
	return nil
}

func (clickHouseDialect) QuoteIdentifier(identifier string) string {
	return "`" + identifier + "`"
}

func (clickHouseDialect) Placeholder(int) string {
	return "?"
}

// See https://clickhouse.com/docs/en/sql-reference/functions/type-conversion-functions#parsedatetimebesteffort
func (clickHouseDialect) DatePart(expression string, level fields.Level) string {
	date := "parseDateTimeBestEffortOrNull(toString(" + expression + "), 'UTC')"

	var part string
	switch level {
	case fields.LevelYear:
		part = "toString(toYear(" + date + "))"
	case fields.LevelHalf:
		part = "concat(toString(toYear(" + date + ")), ' H', if(toMonth(" + date + ") <= 6, '1', '2'))"
	case fields.LevelQuarter:
		part = "concat(toString(toYear(" + date + ")), ' Q', toString(toQuarter(" + date + ")))"
	case fields.LevelMonth:
		part = "formatDateTime(" + date + ", '%Y-%m')"
	default:
		part = "formatDateTime(" + date + ", '%Y-%m-%d')"
	}
	return "ifNull(" + part + ", '" + fields.UnknownDate + "')"
}

func (clickHouseDialect) Aggregate(kind aggregate.Kind, expression string) (string, error) {
	switch kind {
	case aggregate.KindSum:
		return "sum(" + expression + ")", nil
	case aggregate.KindAverage:
		return "avg(" + expression + ")", nil
	case aggregate.KindMin:
		return "min(" + expression + ")", nil
	case aggregate.KindMax:
		return "max(" + expression + ")", nil
	case aggregate.KindCount:
		return "count()", nil
	case aggregate.KindCountDistinct:
		return "uniqExact(" + expression + ")", nil
	case aggregate.KindNone:
		return "any(" + expression + ")", nil
	default:
		return "", fmt.Errorf("unsupported aggregation '%s'", kind)
	}
}

func (clickHouseDialect) Contains(expression string, placeholder string) string {
	return "positionCaseInsensitiveUTF8(toString(" + expression + "), " + placeholder + ") > 0"
}

type postgresDialect struct{}

func (postgresDialect) Name() string {
	return "PostgreSQL"
}

func (postgresDialect) ValidateIdentifier(identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return errors.New("identifier is blank")
	}
	if strings.ContainsRune(identifier, 0) {
		return fmt.Errorf("'%s' contains a null byte", identifier)
	}
	return nil
}

func (postgresDialect) QuoteIdentifier(identifier string) string {
	return pgx.Identifier{identifier}.Sanitize()
}

func (postgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

// Columns are cast to timestamp, so text columns must hold values PostgreSQL can parse.
//
// See https://www.postgresql.org/docs/current/functions-formatting.html
func (postgresDialect) DatePart(expression string, level fields.Level) string {
	date := "CAST(" + expression + " AS timestamp)"

	var part string
	switch level {
	case fields.LevelYear:
		part = "to_char(" + date + ", 'YYYY')"
	case fields.LevelHalf:
		part = "to_char(" + date + ", 'YYYY') || ' H' || CASE WHEN EXTRACT(MONTH FROM " + date +
			") <= 6 THEN '1' ELSE '2' END"
	case fields.LevelQuarter:
		part = "to_char(" + date + ", 'YYYY \"Q\"Q')"
	case fields.LevelMonth:
		part = "to_char(" + date + ", 'YYYY-MM')"
	default:
		part = "to_char(" + date + ", 'YYYY-MM-DD')"
	}
	return "COALESCE(" + part + ", '" + fields.UnknownDate + "')"
}

func (postgresDialect) Aggregate(kind aggregate.Kind, expression string) (string, error) {
	switch kind {
	case aggregate.KindSum:
		return "sum(" + expression + ")", nil
	case aggregate.KindAverage:
		return "avg(" + expression + ")", nil
	case aggregate.KindMin:
		return "min(" + expression + ")", nil
	case aggregate.KindMax:
		return "max(" + expression + ")", nil
	case aggregate.KindCount:
		return "count(*)", nil
	case aggregate.KindCountDistinct:
		return "count(DISTINCT " + expression + ")", nil
	case aggregate.KindNone:
		return "(array_agg(" + expression + ") FILTER (WHERE " + expression + " IS NOT NULL))[1]", nil
	default:
		return "", fmt.Errorf("unsupported aggregation '%s'", kind)
	}
}

func (postgresDialect) Contains(expression string, placeholder string) string {
	return "strpos(lower(CAST(" + expression + " AS text)), lower(" + placeholder + ")) > 0"
}
