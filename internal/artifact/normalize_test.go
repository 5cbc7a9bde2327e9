package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChartNormalizes(t *testing.T) {
	raw := `{"title":"Revenue","type":"waterfall","xAxisKey":"quarter","dataKeys":["Revenue","Revenue","Cost"],"data":[{"quarter":"Q1","Revenue":120}]}`

	chart, err := DecodeChart(raw)
	require.NoError(t, err)
	assert.Equal(t, ChartBar, chart.Kind, "unknown kind falls back to bar")
	assert.Equal(t, []string{"Revenue", "Cost"}, chart.ValueFields)
	assert.Len(t, chart.DataRows, 1)
}

func TestDecodeChartRepairsMalformedJSON(t *testing.T) {
	// Trailing comma and unquoted key, as truncated LLM output tends to look.
	raw := `{title: "Margins", "type": "line", "dataKeys": ["Margin"], "data": [],}`

	chart, err := DecodeChart(raw)
	require.NoError(t, err)
	assert.Equal(t, "Margins", chart.Title)
	assert.Equal(t, ChartLine, chart.Kind)
}

func TestDecodeChartEmptyArguments(t *testing.T) {
	_, err := DecodeChart("   ")
	require.Error(t, err)
}

func TestDecodeTableDefaults(t *testing.T) {
	table, err := DecodeTable(`{"columns":["Item","Value",""]}`)
	require.NoError(t, err)
	assert.Equal(t, "Untitled Table", table.Title)
	assert.Equal(t, []string{"Item", "Value"}, table.Columns)
	assert.NotNil(t, table.Rows)
}

func TestDecodeMetrics(t *testing.T) {
	raw := `{"metrics":[{"label":"Revenue","value":"$1.2B","color":"#16a34a"},{"label":"","value":"dropped"},{"label":"EPS","value":"2.41"}]}`

	metrics, err := DecodeMetrics(raw)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "#16a34a", metrics[0].ColorToken)
	assert.Equal(t, "#3b82f6", metrics[1].ColorToken, "missing color defaults")
}
