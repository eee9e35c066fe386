// Package api exposes widget queries and formula tooling over HTTP.
package api

import (
	"fmt"
	"net/http"
	"sync"

	"hermannm.dev/widgetengine/query"
)

type WidgetAPI struct {
	engine *query.Engine
	router *http.ServeMux
	config Config

	runnersLock sync.Mutex
	// One runner per widget ID, so a new query for a widget supersedes the one in flight.
	runners map[string]*query.Runner
}

type Config struct {
	Port string
}

func NewWidgetAPI(engine *query.Engine, router *http.ServeMux, config Config) *WidgetAPI {
	api := &WidgetAPI{
		engine:  engine,
		router:  router,
		config:  config,
		runners: make(map[string]*query.Runner),
	}

	api.router.HandleFunc("POST /widgets/query", api.QueryWidget)
	api.router.HandleFunc("POST /formulas/validate", api.ValidateFormula)
	api.router.HandleFunc("POST /formulas/evaluate", api.EvaluateFormula)
	api.router.HandleFunc("GET /formulas/helpers", api.ListFormulaHelpers)

	return api
}

func (api *WidgetAPI) ListenAndServe() error {
	return http.ListenAndServe(fmt.Sprintf(":%s", api.config.Port), api.router)
}

func (api *WidgetAPI) runner(widgetID string) *query.Runner {
	api.runnersLock.Lock()
	defer api.runnersLock.Unlock()

	runner, ok := api.runners[widgetID]
	if !ok {
		runner = query.NewRunner(api.engine)
		api.runners[widgetID] = runner
	}
	return runner
}
