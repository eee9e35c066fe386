package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"hermannm.dev/devlog"
	"hermannm.dev/devlog/log"
	"hermannm.dev/widgetengine/api"
	"hermannm.dev/widgetengine/config"
	"hermannm.dev/widgetengine/db"
)

func main() {
	logHandler := devlog.NewHandler(os.Stdout, &devlog.Options{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(logHandler))

	log.Info("loading config from environment")
	conf, err := config.ReadFromEnv()
	if err != nil {
		log.ErrorCause(err, "failed to read config from env")
		os.Exit(1)
	}

	logHandler = devlog.NewHandler(os.Stdout, &devlog.Options{Level: conf.SlogLevel()})
	slog.SetDefault(slog.New(logHandler))

	log.Infof("connecting to %s backend", conf.Backend)
	backend, err := db.Open(context.Background(), conf)
	if err != nil {
		log.ErrorCause(err, "failed to initialize backend")
		os.Exit(1)
	}
	defer backend.Close(context.Background())

	widgetAPI := api.NewWidgetAPI(backend.Engine(), http.NewServeMux(), api.Config{Port: conf.API.Port})

	log.Infof("listening on port %s", conf.API.Port)
	if err := widgetAPI.ListenAndServe(); err != nil {
		log.ErrorCause(err, "server stopped")
	}
}
