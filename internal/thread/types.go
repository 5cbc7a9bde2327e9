// Package thread holds the conversation-thread data model: turns, the
// workspace pane state, document bindings and the thread collection.
package thread

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tridinhbui/finpartner-ai/internal/artifact"
)

// Speaker identifies who produced a conversation turn. Wire values match
// the persisted format ("model" for the assistant).
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "model"
	SpeakerSystem    Speaker = "system"
)

// ConversationTurn is one entry in a thread's message log. LinkedChart
// and LinkedTable are set only on the assistant turn that produced the
// artifact; they are a pointer back to "what produced this", used for
// jump-to-workspace recall, not for display binding.
type ConversationTurn struct {
	ID          string          `json:"id"`
	Speaker     Speaker         `json:"role"`
	Body        string          `json:"text"`
	CreatedAt   time.Time       `json:"timestamp"`
	IsFault     bool            `json:"isError,omitempty"`
	LinkedChart *artifact.Chart `json:"relatedChart,omitempty"`
	LinkedTable *artifact.Table `json:"relatedTable,omitempty"`
}

// HasLinkedArtifact reports whether the chat UI can offer a
// jump-to-workspace action for this turn.
func (t ConversationTurn) HasLinkedArtifact() bool {
	return t.LinkedChart != nil || t.LinkedTable != nil
}

// Tab selects which workspace slot is on screen.
type Tab string

const (
	TabChart       Tab = "chart"
	TabTable       Tab = "table"
	TabDocument    Tab = "document"
	TabSpreadsheet Tab = "spreadsheet"
)

// Valid reports whether the tab is one of the four selectors.
func (t Tab) Valid() bool {
	switch t {
	case TabChart, TabTable, TabDocument, TabSpreadsheet:
		return true
	}
	return false
}

// DocumentBinding pairs a durable document encoding with an ephemeral,
// process-local preview handle. EphemeralRef is a cache over
// EncodedBytes, never a source of truth: it must be revoked whenever the
// bytes change, and it is never persisted.
type DocumentBinding struct {
	FileName     string `json:"documentName,omitempty"`
	EncodedBytes string `json:"documentData,omitempty"`
	MimeType     string `json:"documentMimeType,omitempty"`
	EphemeralRef string `json:"-"`
}

// HasContent reports whether durable bytes are bound.
func (b DocumentBinding) HasContent() bool {
	return b.EncodedBytes != ""
}

var turnSeq atomic.Uint64

// NewTurnID returns a creation-time-derived identifier. A process-local
// counter keeps ids distinct when turns land within the same millisecond.
func NewTurnID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), turnSeq.Add(1))
}

// NewThreadID returns an identifier for a new thread.
func NewThreadID() string {
	return fmt.Sprintf("thread-%d-%d", time.Now().UnixMilli(), turnSeq.Add(1))
}
