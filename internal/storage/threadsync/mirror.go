// Package threadsync mirrors the in-memory thread collection into the
// persistence boundary. The local store is written synchronously on
// every save; when a user identity is present the most recently
// modified thread is additionally upserted to the cloud store in the
// background. Persistence failures are logged and swallowed: the
// running session's in-memory state stays authoritative.
package threadsync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tridinhbui/finpartner-ai/internal/logging"
	"github.com/tridinhbui/finpartner-ai/internal/storage/cloudstore"
	"github.com/tridinhbui/finpartner-ai/internal/storage/localstore"
	"github.com/tridinhbui/finpartner-ai/internal/thread"
)

// Persisted-entry keys in the local store.
const (
	KeyThreads = "finpartner_threads"
	KeyProfile = "finpartner_user"
	KeyTheme   = "finpartner_theme"
)

const remoteTimeout = 15 * time.Second

// Profile is the persisted authenticated-user record.
type Profile struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl"`
}

// Mirror coordinates the two persistence backends.
type Mirror struct {
	local  *localstore.Store
	cloud  cloudstore.Store
	logger logging.Logger
}

// New constructs a mirror. cloud may be nil when no remote backend is
// configured; the mirror then runs local-only.
func New(local *localstore.Store, cloud cloudstore.Store) *Mirror {
	return &Mirror{
		local:  local,
		cloud:  cloud,
		logger: logging.NewComponentLogger("ThreadSync"),
	}
}

// SaveCollection mirrors the collection to the local store and, when a
// user identity is present, fires a background upsert of the most
// recently modified thread. It never fails the caller.
func (m *Mirror) SaveCollection(col *thread.Collection, userID string) {
	data, err := json.Marshal(col)
	if err != nil {
		m.logger.Error("marshal thread collection: %v", err)
		return
	}
	if err := m.local.Set(KeyThreads, string(data)); err != nil {
		if errors.Is(err, localstore.ErrQuotaExceeded) {
			m.logger.Warn("local store full, collection not mirrored: %v", err)
		} else {
			m.logger.Error("write thread collection: %v", err)
		}
	}

	if m.cloud == nil || userID == "" {
		return
	}
	latest := mostRecentlyModified(col)
	if latest == nil {
		return
	}
	// The upsert runs outside the caller's lock, so it must not share
	// memory with the live aggregate: detach a deep copy here, while the
	// caller still owns the collection.
	detached, err := detach(latest)
	if err != nil {
		m.logger.Error("detach thread %s for upsert: %v", latest.ID, err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if err := m.cloud.UpsertThread(ctx, userID, detached); err != nil {
			m.logger.Warn("cloud upsert of thread %s failed: %v", detached.ID, err)
		}
	}()
}

func detach(t *thread.Aggregate) (*thread.Aggregate, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	copied := &thread.Aggregate{}
	if err := json.Unmarshal(data, copied); err != nil {
		return nil, err
	}
	return copied, nil
}

// LoadCollection restores the collection: the cloud store is preferred
// when a user identity is present and returns threads, otherwise the
// local entry is used. An absent or unreadable entry yields an empty
// collection, never an error to the caller.
func (m *Mirror) LoadCollection(ctx context.Context, userID string) *thread.Collection {
	if m.cloud != nil && userID != "" {
		threads, err := m.cloud.LoadThreads(ctx, userID)
		if err != nil {
			m.logger.Warn("cloud load failed, falling back to local: %v", err)
		} else if len(threads) > 0 {
			col := thread.NewCollection()
			col.Threads = threads
			col.ActiveThreadID = threads[0].ID
			return col
		}
	}

	raw, ok := m.local.Get(KeyThreads)
	if !ok {
		return thread.NewCollection()
	}
	col := thread.NewCollection()
	if err := json.Unmarshal([]byte(raw), col); err != nil {
		m.logger.Error("decode persisted thread collection: %v", err)
		return thread.NewCollection()
	}
	if col.Active() == nil && len(col.Threads) > 0 {
		col.ActiveThreadID = col.Threads[0].ID
	}
	return col
}

// ForgetThread removes the thread from the cloud store in the
// background. The local mirror is refreshed by the SaveCollection that
// follows every delete.
func (m *Mirror) ForgetThread(userID, threadID string) {
	if m.cloud == nil || userID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if err := m.cloud.DeleteThread(ctx, userID, threadID); err != nil {
			m.logger.Warn("cloud delete of thread %s failed: %v", threadID, err)
		}
	}()
}

// SaveProfile persists the authenticated user record locally.
func (m *Mirror) SaveProfile(profile *Profile) {
	data, err := json.Marshal(profile)
	if err != nil {
		m.logger.Error("marshal profile: %v", err)
		return
	}
	if err := m.local.Set(KeyProfile, string(data)); err != nil {
		m.logger.Warn("persist profile: %v", err)
	}
}

// LoadProfile restores the persisted user record, if any.
func (m *Mirror) LoadProfile() (*Profile, bool) {
	raw, ok := m.local.Get(KeyProfile)
	if !ok {
		return nil, false
	}
	var profile Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		m.logger.Error("decode persisted profile: %v", err)
		return nil, false
	}
	return &profile, true
}

// ClearProfile removes the persisted user record (logout).
func (m *Mirror) ClearProfile() {
	m.local.Delete(KeyProfile)
}

// SaveTheme persists the theme preference string.
func (m *Mirror) SaveTheme(theme string) {
	if err := m.local.Set(KeyTheme, theme); err != nil {
		m.logger.Warn("persist theme: %v", err)
	}
}

// LoadTheme restores the theme preference, defaulting to "light".
func (m *Mirror) LoadTheme() string {
	theme, ok := m.local.Get(KeyTheme)
	if !ok || theme == "" {
		return "light"
	}
	return theme
}

func mostRecentlyModified(col *thread.Collection) *thread.Aggregate {
	var latest *thread.Aggregate
	for _, t := range col.Threads {
		if latest == nil || t.UpdatedAt.After(latest.UpdatedAt) {
			latest = t
		}
	}
	return latest
}
