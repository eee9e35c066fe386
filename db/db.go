// Package db connects the configured backend to the query engine.
package db

import (
	"context"
	"fmt"

	"hermannm.dev/devlog/log"
	"hermannm.dev/widgetengine/config"
	"hermannm.dev/widgetengine/db/clickhouse"
	"hermannm.dev/widgetengine/db/elasticsearch"
	"hermannm.dev/widgetengine/db/postgres"
	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/source"
)

// Backend holds the executor and row source for the configured backend. Remote is nil for the
// local file backend.
type Backend struct {
	Remote query.RemoteExecutor
	Source query.RowSource
	close  func(ctx context.Context) error
}

func Open(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendClickHouse:
		db, err := clickhouse.NewClickHouseDB(cfg)
		if err != nil {
			return Backend{}, err
		}
		return Backend{
			Remote: db,
			Source: db,
			close:  func(context.Context) error { return db.Close() },
		}, nil
	case config.BackendPostgres:
		db, err := postgres.NewPostgresDB(ctx, cfg)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Remote: db, Source: db, close: db.Close}, nil
	case config.BackendElasticsearch:
		db, err := elasticsearch.NewElasticsearchDB(cfg)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Remote: db, Source: db}, nil
	case config.BackendLocal:
		return Backend{Source: source.NewLoader(cfg)}, nil
	default:
		return Backend{}, fmt.Errorf("unsupported backend '%s'", cfg.Backend)
	}
}

func (backend Backend) Engine() *query.Engine {
	return query.NewEngine(backend.Remote, backend.Source)
}

func (backend Backend) Close(ctx context.Context) {
	if backend.close == nil {
		return
	}
	if err := backend.close(ctx); err != nil {
		log.ErrorCause(err, "failed to close database connection")
	}
}
