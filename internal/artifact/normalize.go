package artifact

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Tool-call argument shapes arrive from the assistant boundary duck-typed
// and occasionally truncated or mis-quoted. Decode* functions repair the
// JSON when needed and coerce missing fields to safe defaults so a
// malformed artifact degrades to an empty display instead of failing.

func decodeArgs(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty tool arguments")
	}
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}
	fixed, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return fmt.Errorf("repair tool arguments: %w", repairErr)
	}
	if err := json.Unmarshal([]byte(fixed), out); err != nil {
		return fmt.Errorf("parse repaired tool arguments: %w", err)
	}
	return nil
}

// DecodeChart parses renderChart arguments into a normalized Chart.
func DecodeChart(raw string) (Chart, error) {
	var chart Chart
	if err := decodeArgs(raw, &chart); err != nil {
		return Chart{}, err
	}
	return NormalizeChart(chart), nil
}

// DecodeTable parses renderTable arguments into a normalized Table.
func DecodeTable(raw string) (Table, error) {
	var table Table
	if err := decodeArgs(raw, &table); err != nil {
		return Table{}, err
	}
	return NormalizeTable(table), nil
}

// DecodeMetrics parses highlightKeyMetrics arguments. The payload wraps
// the metric list in a "metrics" field.
func DecodeMetrics(raw string) ([]HighlightedMetric, error) {
	var payload struct {
		Metrics []HighlightedMetric `json:"metrics"`
	}
	if err := decodeArgs(raw, &payload); err != nil {
		return nil, err
	}
	return NormalizeMetrics(payload.Metrics), nil
}

// NormalizeChart coerces an untrusted chart to a renderable shape:
// invalid kinds become bar charts, duplicate value fields collapse to
// their first occurrence, nil rows become an empty slice.
func NormalizeChart(chart Chart) Chart {
	if !chart.Kind.Valid() {
		chart.Kind = ChartBar
	}
	if chart.Title == "" {
		chart.Title = "Untitled Chart"
	}
	chart.ValueFields = dedupeFields(chart.ValueFields)
	if chart.DataRows == nil {
		chart.DataRows = []map[string]any{}
	}
	return chart
}

// NormalizeTable coerces an untrusted table to a renderable shape.
func NormalizeTable(table Table) Table {
	if table.Title == "" {
		table.Title = "Untitled Table"
	}
	table.Columns = dedupeFields(table.Columns)
	if table.Rows == nil {
		table.Rows = []map[string]any{}
	}
	return table
}

// NormalizeMetrics drops entries without a label and defaults the color
// token so the highlight panel always has something to paint with.
func NormalizeMetrics(metrics []HighlightedMetric) []HighlightedMetric {
	normalized := make([]HighlightedMetric, 0, len(metrics))
	for _, metric := range metrics {
		if strings.TrimSpace(metric.Label) == "" {
			continue
		}
		if metric.ColorToken == "" {
			metric.ColorToken = "#3b82f6"
		}
		normalized = append(normalized, metric)
	}
	return normalized
}

func dedupeFields(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out
}
