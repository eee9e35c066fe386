package api

import (
	"encoding/json"
	"net/http"

	"hermannm.dev/widgetengine/formula"
	"hermannm.dev/widgetengine/value"
)

type ValidateFormulaRequest struct {
	Formula string   `json:"formula"`
	Fields  []string `json:"fields"`
}

// Expects:
//   - body: JSON-encoded ValidateFormulaRequest
//
// Returns:
//   - JSON-encoded formula.Validation
func (api *WidgetAPI) ValidateFormula(res http.ResponseWriter, req *http.Request) {
	var body ValidateFormulaRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		sendClientError(res, err, "invalid request body")
		return
	}

	sendJSON(res, formula.ValidateFormula(body.Formula, body.Fields))
}

type EvaluateFormulaRequest struct {
	Formula string    `json:"formula"`
	Row     value.Row `json:"row"`
}

type EvaluateFormulaResponse struct {
	Value value.Value `json:"value"`
	Error string      `json:"error,omitempty"`
}

// Evaluates a formula against a single row, as a preview while editing a calculated field.
// Parse errors are reported in the response rather than as a failed request.
func (api *WidgetAPI) EvaluateFormula(res http.ResponseWriter, req *http.Request) {
	var body EvaluateFormulaRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		sendClientError(res, err, "invalid request body")
		return
	}

	compiled := formula.Compile(body.Formula)
	if err := compiled.Err(); err != nil {
		sendJSON(res, EvaluateFormulaResponse{Value: value.Null(), Error: err.Error()})
		return
	}

	sendJSON(res, EvaluateFormulaResponse{Value: compiled.Eval(body.Row)})
}

func (api *WidgetAPI) ListFormulaHelpers(res http.ResponseWriter, req *http.Request) {
	sendJSON(res, formula.HelperNames())
}
