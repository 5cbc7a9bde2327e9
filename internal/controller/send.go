package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tridinhbui/finpartner-ai/internal/artifact"
	"github.com/tridinhbui/finpartner-ai/internal/assistant"
	"github.com/tridinhbui/finpartner-ai/internal/thread"
)

// FaultBody is the fixed user-facing text appended in place of an
// assistant turn when the boundary fails.
const FaultBody = "**System Alert**\n\nThe connection was interrupted. Please try again."

// inFlightState tracks one send cycle. Artifacts delivered mid-flight
// are remembered here so the terminal assistant turn can link back to
// what it produced.
type inFlightState struct {
	chart *artifact.Chart
	table *artifact.Table
}

// Send runs one full request cycle: append the user turn, dispatch to
// the assistant boundary, merge deliveries as they arrive, and finish
// with exactly one assistant turn or one fault turn. A send while one
// is in flight is rejected, not queued. There is no cancellation once
// dispatched.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	active := c.col.Active()
	if active == nil {
		c.mu.Unlock()
		return ErrNoActiveThread
	}
	attachment := c.pending
	if text == "" && attachment == nil {
		c.mu.Unlock()
		return ErrEmptySend
	}

	// Optimistic UI: the staged attachment is consumed now, whatever the
	// outcome, and the loading flag blocks further sends.
	c.pending = nil
	c.sending = true
	c.inFlight = inFlightState{}

	requestText := text
	if requestText == "" {
		requestText = fmt.Sprintf("Analyze the file %s and extract the key figures.", attachment.Name)
	}
	body := requestText
	if attachment != nil {
		body = fmt.Sprintf("[File Uploaded: %s]\n%s", attachment.Name, requestText)
	}

	userTurn := thread.ConversationTurn{
		ID:        thread.NewTurnID(),
		Speaker:   thread.SpeakerUser,
		Body:      body,
		CreatedAt: time.Now(),
	}
	active.AppendTurn(userTurn)
	originID := active.ID
	c.syncLocked()
	c.notify(Event{Type: EventTurnAppended, ThreadID: originID})
	c.mu.Unlock()

	// Suspension point: deliveries arrive through the sink while this
	// call is outstanding, each routed to whatever thread is active at
	// delivery time.
	reply, err := c.client.SendMessage(ctx, requestText, attachment, deliverySink{c})

	c.mu.Lock()
	defer func() {
		// Clearing the loading flag is the final step on both paths.
		c.sending = false
		c.mu.Unlock()
	}()

	linkedChart := c.inFlight.chart
	linkedTable := c.inFlight.table
	c.inFlight = inFlightState{}

	origin := c.col.ByID(originID)
	if origin == nil {
		// The thread was deleted mid-flight; the terminal turn has
		// nowhere to land and the merge is a no-op.
		c.logger.Warn("send completed for deleted thread %s, dropping reply", originID)
		return nil
	}

	if err != nil {
		c.logger.Error("assistant boundary failed: %v", err)
		origin.InsertTurnAfter(userTurn.ID, thread.ConversationTurn{
			ID:        thread.NewTurnID(),
			Speaker:   thread.SpeakerAssistant,
			Body:      FaultBody,
			CreatedAt: time.Now(),
			IsFault:   true,
		})
		c.syncLocked()
		c.notify(Event{Type: EventTurnAppended, ThreadID: originID})
		return nil
	}

	if reply != "" {
		origin.InsertTurnAfter(userTurn.ID, thread.ConversationTurn{
			ID:          thread.NewTurnID(),
			Speaker:     thread.SpeakerAssistant,
			Body:        reply,
			CreatedAt:   time.Now(),
			LinkedChart: linkedChart,
			LinkedTable: linkedTable,
		})
		c.syncLocked()
		c.notify(Event{Type: EventTurnAppended, ThreadID: originID})
	}
	return nil
}

// deliverySink routes mid-flight assistant deliveries. Each delivery
// resolves the active thread fresh at delivery time: the user may have
// switched threads since the send began, and the update belongs to
// whatever is on screen now. Deliveries of the same kind simply
// overwrite each other.
type deliverySink struct {
	c *Controller
}

func (s deliverySink) OnChart(chart artifact.Chart) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.inFlight.chart = &chart
	s.c.updateActiveLocked(func(t *thread.Aggregate) {
		t.Workspace.SetChart(chart)
	})
}

func (s deliverySink) OnTable(table artifact.Table) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.inFlight.table = &table
	s.c.updateActiveLocked(func(t *thread.Aggregate) {
		t.Workspace.SetTable(table)
	})
}

func (s deliverySink) OnMetrics(metrics []artifact.HighlightedMetric) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.updateActiveLocked(func(t *thread.Aggregate) {
		t.HighlightedMetrics = metrics
		// Focus the document pane only when a document is actually
		// bound; highlights over an empty pane would steal the view.
		if t.Workspace.Document.HasContent() {
			t.Workspace.SetActiveTab(thread.TabDocument)
		}
	})
}

var _ assistant.UpdateSink = deliverySink{}
