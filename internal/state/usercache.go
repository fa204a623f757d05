package state

import "sync"

// UserCache tracks TalkTalk users already provisioned on Sendbird so repeat
// messages skip the create call. Entries are never invalidated.
type UserCache struct {
	mu    sync.RWMutex
	known map[string]struct{}
}

func NewUserCache() *UserCache {
	return &UserCache{known: make(map[string]struct{})}
}

func (c *UserCache) Known(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.known[userID]
	return ok
}

func (c *UserCache) Add(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[userID] = struct{}{}
}

func (c *UserCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.known)
}
