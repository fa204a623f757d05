package domain

// Direction indicates which way an event flows through the relay.
type Direction int

const (
	// UserToAgent is a TalkTalk user message headed for Sendbird.
	UserToAgent Direction = iota
	// AgentToUser is a Sendbird message headed back to TalkTalk.
	AgentToUser
)

// Kind classifies an inbound event.
type Kind int

const (
	KindMessage Kind = iota
	KindSystem
)

// Event is the normalized form of a webhook delivery from either platform.
// Adapters construct one per request; it is discarded after processing.
type Event struct {
	Direction  Direction
	UserID     string // TalkTalk user identifier
	Kind       Kind
	Text       string
	SenderID   string // Sendbird sender, AgentToUser only
	ChannelURL string // Sendbird channel URL, AgentToUser only
}
