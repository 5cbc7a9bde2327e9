// Package artifact defines the chart, table and highlighted-metric shapes
// produced by the assistant and destined for the workspace pane.
package artifact

// ChartKind enumerates the supported chart renderings.
type ChartKind string

const (
	ChartBar      ChartKind = "bar"
	ChartLine     ChartKind = "line"
	ChartArea     ChartKind = "area"
	ChartComposed ChartKind = "composed"
)

// Valid reports whether the kind is one of the supported renderings.
func (k ChartKind) Valid() bool {
	switch k {
	case ChartBar, ChartLine, ChartArea, ChartComposed:
		return true
	}
	return false
}

// Chart is a chart specification. ValueFields order is plot order. Every
// value field should appear as a key in each data row; the renderer
// degrades gracefully when one is missing, so this is not enforced here.
type Chart struct {
	Title       string           `json:"title"`
	Kind        ChartKind        `json:"type"`
	XAxisField  string           `json:"xAxisKey"`
	ValueFields []string         `json:"dataKeys"`
	DataRows    []map[string]any `json:"data"`
	Note        string           `json:"description,omitempty"`
}

// Table is a table specification. Row keys generally match Columns.
type Table struct {
	Title   string           `json:"title"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Note    string           `json:"description,omitempty"`
}

// HighlightedMetric is a labeled, colored value extracted from a source
// document. Value is pre-formatted display text, never parsed.
type HighlightedMetric struct {
	Label      string `json:"label"`
	Value      string `json:"value"`
	ColorToken string `json:"color"`
}
