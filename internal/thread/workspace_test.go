package thread

import (
	"testing"

	"github.com/tridinhbui/finpartner-ai/internal/artifact"
)

func TestSetChartForcesTab(t *testing.T) {
	ws := NewWorkspace()
	for _, prior := range []Tab{TabDocument, TabTable, TabSpreadsheet, TabChart} {
		ws.SetActiveTab(prior)
		ws.SetChart(artifact.Chart{Title: "Revenue", Kind: artifact.ChartBar})
		if ws.ActiveTab != TabChart {
			t.Fatalf("after SetChart with prior tab %s, got tab %s", prior, ws.ActiveTab)
		}
	}
}

func TestSetTableForcesTab(t *testing.T) {
	ws := NewWorkspace()
	ws.SetTable(artifact.Table{Title: "Income Statement"})
	if ws.ActiveTab != TabTable {
		t.Fatalf("expected table tab, got %s", ws.ActiveTab)
	}
}

func TestSetActiveTabKeepsRetainedArtifacts(t *testing.T) {
	ws := NewWorkspace()
	ws.SetChart(artifact.Chart{Title: "Margins"})
	ws.SetTable(artifact.Table{Title: "Balance Sheet"})

	ws.SetActiveTab(TabDocument)
	if ws.Chart == nil || ws.Chart.Title != "Margins" {
		t.Fatal("chart slot lost on tab switch")
	}
	if ws.Table == nil || ws.Table.Title != "Balance Sheet" {
		t.Fatal("table slot lost on tab switch")
	}

	ws.SetActiveTab("sidebar")
	if ws.ActiveTab != TabDocument {
		t.Fatalf("invalid tab accepted: %s", ws.ActiveTab)
	}
}

func TestReplaceDocumentTabRouting(t *testing.T) {
	cases := []struct {
		fileName string
		want     Tab
	}{
		{"q3-report.pdf", TabDocument},
		{"model.xlsx", TabSpreadsheet},
		{"legacy.XLS", TabSpreadsheet},
		{"scan.png", TabDocument},
	}
	for _, tc := range cases {
		ws := NewWorkspace()
		ws.SetActiveTab(TabChart)
		ws.ReplaceDocument(DocumentBinding{FileName: tc.fileName, EncodedBytes: "aGk=", MimeType: "application/octet-stream"})
		if ws.ActiveTab != tc.want {
			t.Fatalf("%s: expected tab %s, got %s", tc.fileName, tc.want, ws.ActiveTab)
		}
	}
}
