package threadsync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tridinhbui/finpartner-ai/internal/storage/cloudstore"
	"github.com/tridinhbui/finpartner-ai/internal/storage/localstore"
	"github.com/tridinhbui/finpartner-ai/internal/thread"
)

type fakeCloud struct {
	mu       sync.Mutex
	gate     chan struct{}
	upserts  []string
	payloads [][]byte
	deletes  []string
	threads  []*thread.Aggregate
	loadErr  error
	upserted chan struct{}
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{upserted: make(chan struct{}, 16)}
}

func (f *fakeCloud) UpsertThread(_ context.Context, userID string, t *thread.Aggregate) error {
	if f.gate != nil {
		<-f.gate
	}
	// Marshal outside the lock, the way the REST store serializes rows.
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, t.ID)
	f.payloads = append(f.payloads, data)
	f.upserted <- struct{}{}
	return nil
}

func (f *fakeCloud) LoadThreads(_ context.Context, _ string) ([]*thread.Aggregate, error) {
	return f.threads, f.loadErr
}

func (f *fakeCloud) DeleteThread(_ context.Context, _ string, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, threadID)
	f.upserted <- struct{}{}
	return nil
}

var _ cloudstore.Store = (*fakeCloud)(nil)

func newLocal(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.New(t.TempDir(), 0)
	require.NoError(t, err)
	return store
}

func TestCollectionRoundTrip(t *testing.T) {
	local := newLocal(t)
	mirror := New(local, nil)

	raw := []byte("annual report bytes")
	col := thread.NewCollection()
	th := thread.New(1)
	th.AppendTurn(thread.ConversationTurn{
		ID: thread.NewTurnID(), Speaker: thread.SpeakerUser,
		Body: "[File Uploaded: report.pdf]\nAnalyze this", CreatedAt: time.Now(),
	})
	th.Workspace.ReplaceDocument(thread.DocumentBinding{
		FileName:     "report.pdf",
		EncodedBytes: base64.StdEncoding.EncodeToString(raw),
		MimeType:     "application/pdf",
		EphemeralRef: "blob:should-not-persist",
	})
	col.Prepend(th)
	col.ActiveThreadID = th.ID

	mirror.SaveCollection(col, "")

	// Simulate a fresh process over the same local store.
	reloaded := New(local, nil).LoadCollection(context.Background(), "")
	require.Len(t, reloaded.Threads, 1)
	got := reloaded.Threads[0]

	assert.Equal(t, th.ID, got.ID)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, th.Turns[1].Body, got.Turns[1].Body)
	assert.WithinDuration(t, th.UpdatedAt, got.UpdatedAt, time.Second)
	assert.Equal(t, "report.pdf", got.Workspace.Document.FileName)
	assert.Equal(t, th.Workspace.Document.EncodedBytes, got.Workspace.Document.EncodedBytes)
	assert.Empty(t, got.Workspace.Document.EphemeralRef, "ephemeral handle must not persist")
	assert.Equal(t, th.ID, reloaded.ActiveThreadID)
}

func TestSaveCollectionUpsertsLatestRemote(t *testing.T) {
	cloud := newFakeCloud()
	mirror := New(newLocal(t), cloud)

	col := thread.NewCollection()
	older := thread.New(1)
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := thread.New(2)
	col.Prepend(older)
	col.Prepend(newer)

	mirror.SaveCollection(col, "user-7")

	select {
	case <-cloud.upserted:
	case <-time.After(2 * time.Second):
		t.Fatal("remote upsert never fired")
	}
	cloud.mu.Lock()
	defer cloud.mu.Unlock()
	require.Len(t, cloud.upserts, 1)
	assert.Equal(t, newer.ID, cloud.upserts[0], "only the most recently modified thread is upserted")
}

func TestSaveCollectionUpsertDetachedFromLiveThread(t *testing.T) {
	cloud := newFakeCloud()
	cloud.gate = make(chan struct{})
	mirror := New(newLocal(t), cloud)

	col := thread.NewCollection()
	th := thread.New(1)
	anchor := thread.ConversationTurn{
		ID: thread.NewTurnID(), Speaker: thread.SpeakerUser,
		Body: "revenue?", CreatedAt: time.Now(),
	}
	th.AppendTurn(anchor)
	col.Prepend(th)
	col.ActiveThreadID = th.ID
	turnsAtSave := len(th.Turns)

	mirror.SaveCollection(col, "user-1")

	// The upsert goroutine is parked on the gate; keep editing the live
	// thread the way the controller does after its next sends. The row
	// eventually serialized must be the snapshot taken at save time, not
	// a view of this churn.
	for i := 0; i < 50; i++ {
		th.InsertTurnAfter(anchor.ID, thread.ConversationTurn{
			ID: thread.NewTurnID(), Speaker: thread.SpeakerAssistant,
			Body: "later reply", CreatedAt: time.Now(),
		})
	}
	close(cloud.gate)

	select {
	case <-cloud.upserted:
	case <-time.After(2 * time.Second):
		t.Fatal("remote upsert never fired")
	}

	cloud.mu.Lock()
	defer cloud.mu.Unlock()
	require.Len(t, cloud.payloads, 1)
	row := &thread.Aggregate{}
	require.NoError(t, json.Unmarshal(cloud.payloads[0], row))
	assert.Equal(t, th.ID, row.ID)
	assert.Len(t, row.Turns, turnsAtSave)
	assert.Equal(t, anchor.ID, row.Turns[len(row.Turns)-1].ID)
}

func TestSaveCollectionSkipsRemoteWithoutIdentity(t *testing.T) {
	cloud := newFakeCloud()
	mirror := New(newLocal(t), cloud)

	col := thread.NewCollection()
	col.Prepend(thread.New(1))
	mirror.SaveCollection(col, "")

	select {
	case <-cloud.upserted:
		t.Fatal("remote upsert fired without a user identity")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLoadPrefersRemoteWhenAuthenticated(t *testing.T) {
	local := newLocal(t)

	localOnly := thread.NewCollection()
	localThread := thread.New(1)
	localOnly.Prepend(localThread)
	New(local, nil).SaveCollection(localOnly, "")

	remoteThread := thread.New(2)
	cloud := newFakeCloud()
	cloud.threads = []*thread.Aggregate{remoteThread}

	col := New(local, cloud).LoadCollection(context.Background(), "user-7")
	require.Len(t, col.Threads, 1)
	assert.Equal(t, remoteThread.ID, col.Threads[0].ID)
	assert.Equal(t, remoteThread.ID, col.ActiveThreadID)
}

func TestLoadFallsBackToLocalOnRemoteFailure(t *testing.T) {
	local := newLocal(t)
	localOnly := thread.NewCollection()
	localThread := thread.New(1)
	localOnly.Prepend(localThread)
	localOnly.ActiveThreadID = localThread.ID
	New(local, nil).SaveCollection(localOnly, "")

	cloud := newFakeCloud()
	cloud.loadErr = errors.New("unreachable")

	col := New(local, cloud).LoadCollection(context.Background(), "user-7")
	require.Len(t, col.Threads, 1)
	assert.Equal(t, localThread.ID, col.Threads[0].ID)
}

func TestQuotaFailureIsSwallowed(t *testing.T) {
	local, err := localstore.New(t.TempDir(), 16)
	require.NoError(t, err)
	mirror := New(local, nil)

	col := thread.NewCollection()
	col.Prepend(thread.New(1))

	// The serialized collection is far above 16 bytes; the save must not
	// panic or surface an error.
	mirror.SaveCollection(col, "")

	reloaded := mirror.LoadCollection(context.Background(), "")
	assert.Empty(t, reloaded.Threads)
}

func TestProfileAndThemePersistence(t *testing.T) {
	local := newLocal(t)
	mirror := New(local, nil)

	_, ok := mirror.LoadProfile()
	assert.False(t, ok)
	assert.Equal(t, "light", mirror.LoadTheme())

	mirror.SaveProfile(&Profile{Name: "Tri", Email: "tri@finpartner.ai", Role: "Lead Analyst"})
	mirror.SaveTheme("dark")

	profile, ok := mirror.LoadProfile()
	require.True(t, ok)
	assert.Equal(t, "Tri", profile.Name)
	assert.Equal(t, "dark", mirror.LoadTheme())

	mirror.ClearProfile()
	_, ok = mirror.LoadProfile()
	assert.False(t, ok)
}
