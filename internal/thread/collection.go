package thread

import "errors"

// ErrThreadNotFound is returned when an id no longer references a live
// thread. Most callers treat it as a no-op rather than an error.
var ErrThreadNotFound = errors.New("thread not found")

// Collection owns the full set of threads, newest first, plus the
// active-thread pointer. ActiveThreadID is weak: it must be revalidated
// after any delete.
type Collection struct {
	Threads        []*Aggregate `json:"threads"`
	ActiveThreadID string       `json:"activeThreadId"`
}

// NewCollection returns an empty collection with no active thread.
func NewCollection() *Collection {
	return &Collection{}
}

// Prepend inserts a thread at the front, keeping newest-first order.
func (c *Collection) Prepend(t *Aggregate) {
	c.Threads = append([]*Aggregate{t}, c.Threads...)
}

// ByID returns the thread with the given id, or nil.
func (c *Collection) ByID(id string) *Aggregate {
	for _, t := range c.Threads {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Active returns the thread the ActiveThreadID points at, or nil when
// the pointer is empty or stale.
func (c *Collection) Active() *Aggregate {
	if c.ActiveThreadID == "" {
		return nil
	}
	return c.ByID(c.ActiveThreadID)
}

// Remove deletes the thread with the given id and repoints
// ActiveThreadID at the new first thread (or clears it when the
// collection becomes empty). It returns the removed thread so the caller
// can release its resources, or nil when the id was already gone.
func (c *Collection) Remove(id string) *Aggregate {
	for i, t := range c.Threads {
		if t.ID != id {
			continue
		}
		c.Threads = append(c.Threads[:i], c.Threads[i+1:]...)
		if c.ActiveThreadID == id {
			if len(c.Threads) > 0 {
				c.ActiveThreadID = c.Threads[0].ID
			} else {
				c.ActiveThreadID = ""
			}
		}
		return t
	}
	return nil
}
