package assistant

// Tool declarations for the generateContent API. The assistant pushes
// workspace content exclusively through these three functions.

const (
	toolRenderChart      = "renderChart"
	toolRenderTable      = "renderTable"
	toolHighlightMetrics = "highlightKeyMetrics"
)

func functionDeclarations() []map[string]any {
	return []map[string]any{
		{
			"name":        toolRenderChart,
			"description": "Render a financial chart (bar, line, area, composed) on the user dashboard. Use when the user asks to visualize data or when analysis of a filing surfaces a trend.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":    map[string]any{"type": "string"},
					"type":     map[string]any{"type": "string", "enum": []string{"bar", "line", "area", "composed"}},
					"xAxisKey": map[string]any{"type": "string", "description": "Key in data objects used for the X axis, e.g. 'quarter'"},
					"dataKeys": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"data":     map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
					"description": map[string]any{
						"type": "string", "description": "Brief analysis of the chart data",
					},
				},
				"required": []string{"title", "type", "xAxisKey", "dataKeys", "data"},
			},
		},
		{
			"name":        toolRenderTable,
			"description": "Render a detailed financial table on the user dashboard, for structured data extracted from filings or produced by analysis.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string"},
					"columns":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"rows":        map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
					"description": map[string]any{"type": "string"},
				},
				"required": []string{"title", "columns", "rows"},
			},
		},
		{
			"name":        toolHighlightMetrics,
			"description": "Highlight key financial figures extracted from the bound document, such as Revenue, Net Income or EPS.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"metrics": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"label": map[string]any{"type": "string"},
								"value": map[string]any{"type": "string"},
								"color": map[string]any{"type": "string", "description": "Hex color token, e.g. '#3b82f6'"},
							},
							"required": []string{"label", "value", "color"},
						},
					},
				},
				"required": []string{"metrics"},
			},
		},
	}
}
