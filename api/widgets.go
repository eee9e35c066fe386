package api

import (
	"errors"
	"io"
	"net/http"

	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/widget"
)

const maxSpecBytes = 1 << 20

// Expects:
//   - query parameter 'table': table, index or data file to query
//   - query parameter 'widget' (optional): widget ID, defaulting to the spec's ID
//   - body: widget spec as JSON or YAML
//
// Returns:
//   - JSON-encoded query.Result
//   - 204 No Content if a newer query for the same widget replaced this one
func (api *WidgetAPI) QueryWidget(res http.ResponseWriter, req *http.Request) {
	table := req.URL.Query().Get("table")
	if table == "" {
		sendClientError(res, nil, "missing 'table' query parameter in request")
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxSpecBytes))
	if err != nil {
		sendClientError(res, err, "failed to read request body")
		return
	}

	spec, err := widget.Decode(body)
	if err != nil {
		sendClientError(res, err, "")
		return
	}

	widgetID := req.URL.Query().Get("widget")
	if widgetID == "" {
		widgetID = spec.ID
	}

	var result query.Result
	if widgetID == "" {
		result, err = api.engine.Run(req.Context(), spec, table)
	} else {
		result, err = api.runner(widgetID).Run(req.Context(), spec, table)
	}

	switch {
	case err == nil:
		sendJSON(res, result)
	case query.IsCancellation(err):
		res.WriteHeader(http.StatusNoContent)
	case errors.Is(err, query.ErrConfiguration):
		sendClientError(res, err, "invalid widget configuration")
	default:
		sendServerError(res, err, "failed to run widget query")
	}
}
