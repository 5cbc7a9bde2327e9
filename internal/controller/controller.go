// Package controller owns the thread collection, the active-thread
// pointer, and the send cycle that merges assistant deliveries into it.
// All mutation funnels through one mutex-guarded path so ordering across
// the async boundary gaps stays correct; persistence fan-out hangs off
// that same path.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/tridinhbui/finpartner-ai/internal/assistant"
	"github.com/tridinhbui/finpartner-ai/internal/document"
	"github.com/tridinhbui/finpartner-ai/internal/logging"
	"github.com/tridinhbui/finpartner-ai/internal/storage/threadsync"
	"github.com/tridinhbui/finpartner-ai/internal/thread"
	"github.com/tridinhbui/finpartner-ai/internal/upload"
)

var (
	// ErrSendInFlight rejects a new send while one is already running.
	// Sends are neither queued nor interleaved.
	ErrSendInFlight = errors.New("a send is already in flight")
	// ErrNoActiveThread is returned when an operation needs an active
	// thread and the collection has none.
	ErrNoActiveThread = errors.New("no active thread")
	// ErrEmptySend rejects a send with neither text nor attachment.
	ErrEmptySend = errors.New("nothing to send")
)

// Event describes a state change pushed to render surfaces.
type Event struct {
	Type     string `json:"type"`
	ThreadID string `json:"threadId,omitempty"`
}

// Event types.
const (
	EventThreadsChanged   = "threads_changed"
	EventWorkspaceUpdated = "workspace_updated"
	EventTurnAppended     = "turn_appended"
)

// Controller orchestrates the thread collection.
type Controller struct {
	mu     sync.Mutex
	col    *thread.Collection
	docs   *document.Manager
	client assistant.Client
	store  *threadsync.Mirror
	logger logging.Logger

	profile *threadsync.Profile
	theme   string

	pending *assistant.Attachment
	sending bool

	// inFlight collects the artifacts produced by the current send so
	// the terminal assistant turn can link back to them.
	inFlight inFlightState

	notify func(Event)
}

// New constructs a controller. notify may be nil.
func New(docs *document.Manager, client assistant.Client, store *threadsync.Mirror, notify func(Event)) *Controller {
	if notify == nil {
		notify = func(Event) {}
	}
	return &Controller{
		col:    thread.NewCollection(),
		docs:   docs,
		client: client,
		store:  store,
		logger: logging.NewComponentLogger("ThreadController"),
		theme:  "light",
		notify: notify,
	}
}

// Start restores persisted state: profile, theme, and the thread
// collection. Every binding with durable bytes gets an ephemeral handle
// synthesized eagerly so the first render of any thread already has a
// valid preview, and an empty collection is seeded with one thread.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if profile, ok := c.store.LoadProfile(); ok {
		c.profile = profile
	}
	c.theme = c.store.LoadTheme()

	userID := c.userIDLocked()
	c.col = c.store.LoadCollection(ctx, userID)
	for _, t := range c.col.Threads {
		c.docs.Rehydrate(&t.Workspace.Document)
	}
	if len(c.col.Threads) == 0 {
		c.createThreadLocked()
	}
	c.logger.Info("restored %d thread(s), active=%s", len(c.col.Threads), c.col.ActiveThreadID)
}

// CreateThread starts a fresh conversation, makes it active and
// persists the collection.
func (c *Controller) CreateThread() *thread.Aggregate {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.createThreadLocked()
	return t
}

func (c *Controller) createThreadLocked() *thread.Aggregate {
	if outgoing := c.col.Active(); outgoing != nil {
		c.docs.Release(&outgoing.Workspace.Document)
	}
	t := thread.New(len(c.col.Threads) + 1)
	c.col.Prepend(t)
	c.col.ActiveThreadID = t.ID
	c.syncLocked()
	c.notify(Event{Type: EventThreadsChanged, ThreadID: t.ID})
	return t
}

// SelectThread switches the active conversation. The outgoing thread's
// preview handle is revoked on the way out; the incoming binding is
// regenerated unconditionally, which is idempotent and guards against
// stale handles. A stale id is a no-op.
func (c *Controller) SelectThread(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	incoming := c.col.ByID(id)
	if incoming == nil || id == c.col.ActiveThreadID {
		return
	}
	if outgoing := c.col.Active(); outgoing != nil {
		c.docs.Release(&outgoing.Workspace.Document)
	}
	c.col.ActiveThreadID = id
	c.docs.Rehydrate(&incoming.Workspace.Document)
	c.syncLocked()
	c.notify(Event{Type: EventThreadsChanged, ThreadID: id})
}

// DeleteThread removes a conversation, releases its preview handle, and
// repoints the active pointer per collection rules. A stale id is a
// no-op. The deleted thread is not synced again.
func (c *Controller) DeleteThread(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasActive := id == c.col.ActiveThreadID
	removed := c.col.Remove(id)
	if removed == nil {
		return
	}
	c.docs.Release(&removed.Workspace.Document)
	if wasActive {
		if next := c.col.Active(); next != nil {
			c.docs.Rehydrate(&next.Workspace.Document)
		}
	}
	c.store.ForgetThread(c.userIDLocked(), id)
	c.syncLocked()
	c.notify(Event{Type: EventThreadsChanged})
}

// RenameThread updates a thread's title. A stale id is a no-op.
func (c *Controller) RenameThread(id, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.col.ByID(id)
	if t == nil {
		return
	}
	t.Title = title
	t.Touch()
	c.syncLocked()
	c.notify(Event{Type: EventThreadsChanged, ThreadID: id})
}

// UpdateActiveThread is the single generic mutation entry point for
// turns, workspace and metrics: it applies the mutation to the active
// thread only, bumps its timestamp, and triggers the persistence sync.
// With no active thread it does nothing.
func (c *Controller) UpdateActiveThread(mutate func(*thread.Aggregate)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateActiveLocked(mutate)
}

func (c *Controller) updateActiveLocked(mutate func(*thread.Aggregate)) {
	active := c.col.Active()
	if active == nil {
		return
	}
	mutate(active)
	active.Touch()
	c.syncLocked()
	c.notify(Event{Type: EventWorkspaceUpdated, ThreadID: active.ID})
}

// SetActiveTab switches the visible workspace slot of the active thread.
func (c *Controller) SetActiveTab(tab thread.Tab) {
	c.UpdateActiveThread(func(t *thread.Aggregate) {
		t.Workspace.SetActiveTab(tab)
	})
}

// StageUpload validates an uploaded file, binds it into the active
// thread's workspace (releasing the previous preview handle first), and
// stages it as the pending attachment for the next send. Unsupported
// types return upload.ErrUnsupportedType with no state change.
func (c *Controller) StageUpload(fileName string, raw []byte, mimeType string) error {
	attachment, err := upload.Build(fileName, raw, mimeType)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	active := c.col.Active()
	if active == nil {
		return ErrNoActiveThread
	}

	c.docs.Release(&active.Workspace.Document)
	binding := c.docs.Mint(attachment.Name, raw, mimeType)
	active.Workspace.ReplaceDocument(binding)
	active.Touch()
	c.pending = &attachment
	c.syncLocked()
	c.notify(Event{Type: EventWorkspaceUpdated, ThreadID: active.ID})
	return nil
}

// ClearAttachment drops the staged attachment without touching the
// workspace binding.
func (c *Controller) ClearAttachment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

// Sending reports whether a send is in flight (the loading indicator).
func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// ResolveDocument returns the preview bytes behind an ephemeral handle.
func (c *Controller) ResolveDocument(handle string) ([]byte, bool) {
	return c.docs.Resolve(handle)
}

// ThreadSummary is the list-view projection of a thread.
type ThreadSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	TurnCount int       `json:"turnCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Active    bool      `json:"active"`
}

// SnapshotThreads returns list summaries, newest first.
func (c *Controller) SnapshotThreads() []ThreadSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summaries := make([]ThreadSummary, 0, len(c.col.Threads))
	for _, t := range c.col.Threads {
		summaries = append(summaries, ThreadSummary{
			ID:        t.ID,
			Title:     t.Title,
			TurnCount: len(t.Turns),
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
			Active:    t.ID == c.col.ActiveThreadID,
		})
	}
	return summaries
}

// SnapshotActive returns a deep copy of the active thread, safe to read
// and marshal outside the controller's lock. The copy carries the live
// ephemeral handle so render surfaces can resolve the preview.
func (c *Controller) SnapshotActive() (*thread.Aggregate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := c.col.Active()
	if active == nil {
		return nil, false
	}
	data, err := json.Marshal(active)
	if err != nil {
		c.logger.Error("snapshot active thread: %v", err)
		return nil, false
	}
	var copied thread.Aggregate
	if err := json.Unmarshal(data, &copied); err != nil {
		c.logger.Error("snapshot active thread: %v", err)
		return nil, false
	}
	copied.Workspace.Document.EphemeralRef = active.Workspace.Document.EphemeralRef
	return &copied, true
}

// syncLocked mirrors the collection to the persistence boundary.
// Failures are logged inside the mirror and never surface here.
func (c *Controller) syncLocked() {
	c.store.SaveCollection(c.col, c.userIDLocked())
}

func (c *Controller) userIDLocked() string {
	if c.profile == nil {
		return ""
	}
	return c.profile.Email
}
