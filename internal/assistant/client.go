// Package assistant defines the boundary to the external LLM: one
// request carries text plus an optional attachment, and may deliver
// zero or more typed workspace updates through the sink before the
// final reply text is returned.
package assistant

import (
	"context"

	"github.com/tridinhbui/finpartner-ai/internal/artifact"
)

// Attachment is the payload forwarded with a user message.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

// UpdateSink receives out-of-band artifact deliveries during a single
// request. Each method may be called zero, one or many times, in any
// order, strictly before SendMessage returns. Implementations must be
// idempotent per kind: a later delivery simply overwrites.
type UpdateSink interface {
	OnChart(chart artifact.Chart)
	OnTable(table artifact.Table)
	OnMetrics(metrics []artifact.HighlightedMetric)
}

// Client is the request/response assistant boundary. The client keeps
// its own multi-turn context across calls; Reset drops it (invoked on
// login and logout).
type Client interface {
	SendMessage(ctx context.Context, text string, attachment *Attachment, sink UpdateSink) (string, error)
	Reset()
}
