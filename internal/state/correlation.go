// Package state holds the relay's in-memory bookkeeping: which Sendbird
// conversation belongs to which TalkTalk user, which deliveries were already
// processed, and which users are already provisioned. All state is
// process-lifetime only and is lost on restart.
package state

import "sync"

// Correlation remembers the backend conversation for a user together with the
// last text forwarded on the user's behalf (used for echo suppression).
type Correlation struct {
	LastOutboundText string
	ChannelURL       string
}

// CorrelationStore maps users to their Sendbird conversation. A reverse index
// by channel URL gives constant-time routing of bot replies back to the user.
// Records are never evicted.
type CorrelationStore struct {
	mu     sync.RWMutex
	byUser map[string]Correlation
	byChan map[string]string // channel URL -> user ID
}

func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{
		byUser: make(map[string]Correlation),
		byChan: make(map[string]string),
	}
}

// Upsert records a successful user-to-agent relay, keeping the reverse index
// in step when the user's conversation moves to a different channel.
func (s *CorrelationStore) Upsert(userID, text, channelURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byUser[userID]; ok && prev.ChannelURL != channelURL {
		delete(s.byChan, prev.ChannelURL)
	}
	s.byUser[userID] = Correlation{LastOutboundText: text, ChannelURL: channelURL}
	s.byChan[channelURL] = userID
}

func (s *CorrelationStore) Get(userID string) (Correlation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byUser[userID]
	return rec, ok
}

// UserForChannel resolves which user a Sendbird channel belongs to.
func (s *CorrelationStore) UserForChannel(channelURL string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byChan[channelURL]
	return userID, ok
}

func (s *CorrelationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser)
}
