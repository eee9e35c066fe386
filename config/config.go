package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"hermannm.dev/enumnames"
	"hermannm.dev/wrap"
)

type Config struct {
	BaseConfig
	ClickHouse    ClickHouse
	Postgres      Postgres
	Elasticsearch Elasticsearch
	Local         Local
}

type BaseConfig struct {
	IsProduction bool    `env:"PRODUCTION" envDefault:"false"`
	Backend      Backend `env:"BACKEND"`
	// RowFetchLimit caps the raw rows fetched for local execution.
	RowFetchLimit int    `env:"ROW_FETCH_LIMIT" envDefault:"100000"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	API           API
}

type API struct {
	Port string `env:"API_PORT"`
}

type ClickHouse struct {
	Address      string `env:"CLICKHOUSE_ADDRESS"`
	DatabaseName string `env:"CLICKHOUSE_DB_NAME"`
	Username     string `env:"CLICKHOUSE_USERNAME"`
	Password     string `env:"CLICKHOUSE_PASSWORD"`
	Debug        bool   `env:"CLICKHOUSE_DEBUG_ENABLED" envDefault:"false"`
}

type Postgres struct {
	URI string `env:"POSTGRES_URI"`
}

type Elasticsearch struct {
	Address string `env:"ELASTICSEARCH_ADDRESS"`
	Debug   bool   `env:"ELASTICSEARCH_DEBUG_ENABLED" envDefault:"false"`
}

type Local struct {
	// DataDir holds one file (or glob match set) per table.
	DataDir string `env:"LOCAL_DATA_DIR"`
}

type Backend int8

const (
	BackendClickHouse Backend = iota + 1
	BackendPostgres
	BackendElasticsearch
	BackendLocal
)

var backendNames = enumnames.NewMap(map[Backend]string{
	BackendClickHouse:    "clickhouse",
	BackendPostgres:      "postgres",
	BackendElasticsearch: "elasticsearch",
	BackendLocal:         "local",
})

func (backend Backend) IsValid() bool {
	return backendNames.ContainsEnumValue(backend)
}

func (backend Backend) String() string {
	return backendNames.GetNameOrFallback(backend, "INVALID_BACKEND")
}

// UnmarshalText lets env parse backends from their names.
func (backend *Backend) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for _, candidate := range []Backend{
		BackendClickHouse,
		BackendPostgres,
		BackendElasticsearch,
		BackendLocal,
	} {
		if candidate.String() == name {
			*backend = candidate
			return nil
		}
	}
	return fmt.Errorf("must be one of: 'clickhouse', 'postgres', 'elasticsearch', 'local'")
}

func (config BaseConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func ReadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, wrap.Error(err, "failed to load .env file")
	}

	parseOptions := env.Options{RequiredIfNoDef: true}

	var config Config

	if err := env.ParseWithOptions(&config.BaseConfig, parseOptions); err != nil {
		return Config{}, err
	}

	var err error
	switch config.Backend {
	case BackendClickHouse:
		err = env.ParseWithOptions(&config.ClickHouse, parseOptions)
	case BackendPostgres:
		err = env.ParseWithOptions(&config.Postgres, parseOptions)
	case BackendElasticsearch:
		err = env.ParseWithOptions(&config.Elasticsearch, parseOptions)
	case BackendLocal:
		err = env.ParseWithOptions(&config.Local, parseOptions)
	}
	if err != nil {
		return Config{}, wrap.Errorf(err, "invalid config for backend '%s'", config.Backend)
	}

	if config.RowFetchLimit <= 0 {
		return Config{}, fmt.Errorf("ROW_FETCH_LIMIT must be positive, got %d", config.RowFetchLimit)
	}

	return config, nil
}
