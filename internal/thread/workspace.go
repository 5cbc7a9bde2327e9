package thread

import (
	"strings"

	"github.com/tridinhbui/finpartner-ai/internal/artifact"
)

// WorkspaceState is the current view of the right-hand pane. All three
// slots are retained simultaneously so switching tabs never discards
// data; ActiveTab only selects which one is on screen.
type WorkspaceState struct {
	ActiveTab Tab             `json:"activeTab"`
	Chart     *artifact.Chart `json:"chartData,omitempty"`
	Table     *artifact.Table `json:"tableData,omitempty"`
	Document  DocumentBinding `json:"document"`
}

// NewWorkspace returns the empty workspace a fresh thread starts with.
func NewWorkspace() WorkspaceState {
	return WorkspaceState{ActiveTab: TabDocument}
}

// SetActiveTab switches the visible slot. Invalid tabs are ignored;
// retained artifacts are untouched either way.
func (w *WorkspaceState) SetActiveTab(tab Tab) {
	if !tab.Valid() {
		return
	}
	w.ActiveTab = tab
}

// SetChart replaces the chart slot and brings it on screen, so a freshly
// produced chart is visible without a second user action.
func (w *WorkspaceState) SetChart(chart artifact.Chart) {
	w.Chart = &chart
	w.ActiveTab = TabChart
}

// SetTable replaces the table slot and brings it on screen.
func (w *WorkspaceState) SetTable(table artifact.Table) {
	w.Table = &table
	w.ActiveTab = TabTable
}

// ReplaceDocument installs a new binding and focuses the matching tab.
// The caller is responsible for revoking the previous binding's
// ephemeral handle before calling this (see document.Manager).
func (w *WorkspaceState) ReplaceDocument(binding DocumentBinding) {
	w.Document = binding
	if IsSpreadsheetName(binding.FileName) {
		w.ActiveTab = TabSpreadsheet
	} else {
		w.ActiveTab = TabDocument
	}
}

// IsSpreadsheetName reports whether the file name carries a spreadsheet
// suffix. Detection is by suffix only; content sniffing is not performed.
func IsSpreadsheetName(fileName string) bool {
	lower := strings.ToLower(fileName)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}
