package controller

import (
	"context"

	"github.com/tridinhbui/finpartner-ai/internal/storage/threadsync"
)

// Process-scoped session state: the authenticated user, the theme
// preference, and the assistant's multi-turn context. Initialized from
// persistence on Start and torn down explicitly on logout.

// Login installs the authenticated profile, resets the assistant
// session, persists the profile, and reloads the collection so cloud
// threads for this identity become visible.
func (c *Controller) Login(ctx context.Context, profile threadsync.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.profile = &profile
	c.store.SaveProfile(&profile)
	c.client.Reset()

	for _, t := range c.col.Threads {
		c.docs.Release(&t.Workspace.Document)
	}
	c.col = c.store.LoadCollection(ctx, c.userIDLocked())
	for _, t := range c.col.Threads {
		c.docs.Rehydrate(&t.Workspace.Document)
	}
	if len(c.col.Threads) == 0 {
		c.createThreadLocked()
	} else {
		c.notify(Event{Type: EventThreadsChanged})
	}
	c.logger.Info("user %s logged in, %d thread(s)", profile.Email, len(c.col.Threads))
}

// Logout clears the authenticated profile and resets dependent session
// state. Threads stay loaded for the running session; they simply stop
// mirroring to the cloud.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.profile = nil
	c.store.ClearProfile()
	c.client.Reset()
	c.logger.Info("user logged out")
}

// Profile returns the authenticated user, or nil.
func (c *Controller) Profile() *threadsync.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		return nil
	}
	copied := *c.profile
	return &copied
}

// Theme returns the current theme preference.
func (c *Controller) Theme() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theme
}

// SetTheme updates and persists the theme preference.
func (c *Controller) SetTheme(theme string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.theme = theme
	c.store.SaveTheme(theme)
}
