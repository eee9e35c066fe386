package elasticsearch

import (
	"errors"
	"testing"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/value"
)

func TestDocumentToRow(t *testing.T) {
	row, err := documentToRow([]byte(`{"Region":"EU","Revenue":120.5,"Tags":["a"],"Closed":null}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Region", "Revenue", "Tags", "Closed"}, row.Keys())
	assert.Equal(
		t,
		value.RowOf("Region", "EU", "Revenue", 120.5, "Tags", `["a"]`, "Closed", nil),
		row,
	)

	empty, err := documentToRow(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestSearchError(t *testing.T) {
	reason := "failed to parse date field [x]"
	shardReason := "shard 0 failed"

	for _, testCase := range []struct {
		name          string
		err           error
		expectedError string
		configError   bool
	}{
		{
			name: "missing index",
			err: &types.ElasticsearchError{
				Status:     404,
				ErrorCause: types.ErrorCause{Type: elasticIndexNotFoundException},
			},
			expectedError: "index 'orders' does not exist",
			configError:   true,
		},
		{
			name: "reason with root causes",
			err: &types.ElasticsearchError{
				Status: 400,
				ErrorCause: types.ErrorCause{
					Type:   "search_phase_execution_exception",
					Reason: &reason,
					RootCause: []types.ErrorCause{
						{Type: "parse_exception", Reason: &shardReason},
						{Type: "query_shard_exception"},
					},
				},
			},
			expectedError: "Elasticsearch rejected search on index 'orders' with status 400: " +
				"failed to parse date field [x] [search_phase_execution_exception]",
		},
		{
			name:          "transport failure",
			err:           errors.New("connection refused"),
			expectedError: "search request on index 'orders' failed",
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			err := searchError(testCase.err, "orders")

			assert.ErrorContains(t, err, testCase.expectedError)
			var configErr *query.ConfigError
			assert.Equal(t, testCase.configError, errors.As(err, &configErr))
		})
	}
}
