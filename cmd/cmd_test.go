// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelq/cli/internal/dispatch"
	"panelq/cli/internal/result"
)

func TestParseBatch(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []result.Request
	}{
		{
			name: "yaml object",
			input: `
queries:
  - dataset_id: 1
    label: reach
    query: SELECT 1
  - dataset_id: 2
    query: SELECT 2
`,
			want: []result.Request{{DatasetID: 1, Label: "reach", SQL: "SELECT 1"}, {DatasetID: 2, SQL: "SELECT 2"}},
		},
		{
			name:  "json list",
			input: `[{"dataset_id": 3, "query": "SELECT nccs FROM t"}]`,
			want:  []result.Request{{DatasetID: 3, SQL: "SELECT nccs FROM t"}},
		},
		{
			name:  "json object",
			input: `{"queries": [{"dataset_id": 4, "query": "SELECT 4"}], "apply_weights": false}`,
			want:  []result.Request{{DatasetID: 4, SQL: "SELECT 4"}},
		},
		{name: "empty", input: "  \n", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseBatch([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Queries)
		})
	}
}

func TestParseBatchKeepsSwitches(t *testing.T) {
	req, err := parseBatch([]byte(`{"queries": [], "apply_weights": false}`))
	require.NoError(t, err)
	require.NotNil(t, req.ApplyWeights)
	assert.False(t, *req.ApplyWeights)
	assert.Nil(t, req.ApplySegmentMerge)
}

func TestParseBatchRejectsGarbage(t *testing.T) {
	_, err := parseBatch([]byte("queries: [unclosed"))
	assert.Error(t, err)
}

func TestParseDatasetID(t *testing.T) {
	id, err := parseDatasetID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseDatasetID(bad)
		assert.Error(t, err, bad)
	}
}

func TestOutputFlagsApply(t *testing.T) {
	o := outputFlags{noMerge: true}
	var req dispatch.BatchRequest
	o.apply(&req)
	assert.Nil(t, req.ApplyWeights, "unset switches keep the engine default")
	require.NotNil(t, req.ApplySegmentMerge)
	assert.False(t, *req.ApplySegmentMerge)
}

func TestOutputFlagsKeepBatchFileSwitches(t *testing.T) {
	req, err := parseBatch([]byte(`
apply_weights: false
apply_segment_merge: false
queries:
  - dataset_id: 1
    query: SELECT 1
`))
	require.NoError(t, err)

	var o outputFlags
	o.apply(&req)

	require.NotNil(t, req.ApplyWeights)
	require.NotNil(t, req.ApplySegmentMerge)
	assert.False(t, *req.ApplyWeights)
	assert.False(t, *req.ApplySegmentMerge)
}

func TestOutputFlagsWriteJSON(t *testing.T) {
	o := outputFlags{json: true}
	b := result.NewBatchResult("b-1", []result.QueryResult{{Label: "Query 1", Success: true}}, 0)

	var buf bytes.Buffer
	require.NoError(t, o.write(&buf, b))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "b-1", decoded["batch_id"])
	assert.EqualValues(t, 1, decoded["successful"])
	assert.Nil(t, o.renderer())
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "abc", truncateText("abc", 5))
	assert.Equal(t, "ab...", truncateText("abcd", 2))
}
