package thread

import (
	"fmt"
	"time"

	"github.com/tridinhbui/finpartner-ai/internal/artifact"
)

// WelcomeBody seeds every new thread with one system turn so the chat
// pane is never empty.
const WelcomeBody = "**FinPartner Pro is online.**\n\nThe dual-screen analysis workstation is ready.\n\nThe left pane is the conversation channel; the right pane is the **Workspace** for source documents and charts. Upload a financial statement or ask for a forecast to begin."

// Aggregate bundles one conversation's message log, workspace view and
// highlighted metrics under a single identity. It is the unit of
// persistence and of user-facing conversation switching.
type Aggregate struct {
	ID                 string                       `json:"id"`
	Title              string                       `json:"title"`
	Turns              []ConversationTurn           `json:"messages"`
	CreatedAt          time.Time                    `json:"createdAt"`
	UpdatedAt          time.Time                    `json:"updatedAt"`
	Workspace          WorkspaceState               `json:"workspace"`
	HighlightedMetrics []artifact.HighlightedMetric `json:"highlightedNumbers,omitempty"`
}

// New creates a thread seeded with the welcome turn and an empty
// workspace. seq is the thread's position for the default title.
func New(seq int) *Aggregate {
	now := time.Now()
	return &Aggregate{
		ID:    NewThreadID(),
		Title: fmt.Sprintf("Conversation %d", seq),
		Turns: []ConversationTurn{{
			ID:        NewTurnID(),
			Speaker:   SpeakerSystem,
			Body:      WelcomeBody,
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
		Workspace: NewWorkspace(),
	}
}

// AppendTurn appends to the message log and refreshes UpdatedAt.
func (a *Aggregate) AppendTurn(turn ConversationTurn) {
	a.Turns = append(a.Turns, turn)
	a.Touch()
}

// InsertTurnAfter places turn directly after the turn with the given id,
// preserving anything appended later. When the anchor is gone (the turn
// sequence was replaced while a request was in flight) the turn is
// appended at the end instead of being dropped.
func (a *Aggregate) InsertTurnAfter(anchorID string, turn ConversationTurn) {
	for i := range a.Turns {
		if a.Turns[i].ID != anchorID {
			continue
		}
		a.Turns = append(a.Turns[:i+1], append([]ConversationTurn{turn}, a.Turns[i+1:]...)...)
		a.Touch()
		return
	}
	a.AppendTurn(turn)
}

// TurnByID returns a pointer into the live turn sequence, or nil.
func (a *Aggregate) TurnByID(id string) *ConversationTurn {
	for i := range a.Turns {
		if a.Turns[i].ID == id {
			return &a.Turns[i]
		}
	}
	return nil
}

// Touch refreshes the modification timestamp.
func (a *Aggregate) Touch() {
	a.UpdatedAt = time.Now()
}
