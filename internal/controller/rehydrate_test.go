package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tridinhbui/finpartner-ai/internal/assistant"
	"github.com/tridinhbui/finpartner-ai/internal/document"
	"github.com/tridinhbui/finpartner-ai/internal/logging"
	"github.com/tridinhbui/finpartner-ai/internal/storage/blobstore"
	"github.com/tridinhbui/finpartner-ai/internal/storage/localstore"
	"github.com/tridinhbui/finpartner-ai/internal/storage/threadsync"
)

// Simulates an app restart: the second controller shares the first one's
// local store but owns a fresh handle registry, the way a new process
// would.
func TestStartRehydratesPersistedBindings(t *testing.T) {
	dir := t.TempDir()
	raw := []byte("%PDF persisted across restart")

	local, err := localstore.New(dir, 0)
	require.NoError(t, err)
	first := New(
		document.NewManager(blobstore.NewRegistry(), logging.Nop()),
		&assistant.MockClient{},
		threadsync.New(local, nil),
		nil,
	)
	first.Start(context.Background())
	require.NoError(t, first.StageUpload("annual.pdf", raw, "application/pdf"))
	firstActive, ok := first.SnapshotActive()
	require.True(t, ok)

	reopened, err := localstore.New(dir, 0)
	require.NoError(t, err)
	docs := document.NewManager(blobstore.NewRegistry(), logging.Nop())
	second := New(docs, &assistant.MockClient{}, threadsync.New(reopened, nil), nil)
	second.Start(context.Background())

	active, ok := second.SnapshotActive()
	require.True(t, ok)
	assert.Equal(t, firstActive.ID, active.ID)
	assert.Equal(t, "annual.pdf", active.Workspace.Document.FileName)

	// Rule: rehydration synthesizes handles eagerly, before the thread is
	// ever made active, so the first render already has a valid preview.
	require.NotEmpty(t, active.Workspace.Document.EphemeralRef)
	got, resolved := second.ResolveDocument(active.Workspace.Document.EphemeralRef)
	require.True(t, resolved)
	assert.Equal(t, raw, got, "regenerated preview bytes must equal the durable encoding decoded")
}

func TestLoginResetsAssistantSession(t *testing.T) {
	local, err := localstore.New(t.TempDir(), 0)
	require.NoError(t, err)
	mock := &assistant.MockClient{}
	c := New(
		document.NewManager(blobstore.NewRegistry(), logging.Nop()),
		mock,
		threadsync.New(local, nil),
		nil,
	)
	c.Start(context.Background())

	c.Login(context.Background(), threadsync.Profile{Name: "Tri", Email: "tri@finpartner.ai", Role: "Lead Analyst"})
	require.NotNil(t, c.Profile())
	assert.Equal(t, 1, mock.Resets())

	c.Logout()
	assert.Nil(t, c.Profile())
	assert.Equal(t, 2, mock.Resets())

	// Profile does not survive logout in the store either.
	_, ok := threadsync.New(local, nil).LoadProfile()
	assert.False(t, ok)
}
