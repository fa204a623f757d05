package domain

import "context"

// Typing indicator actions understood by the TalkTalk event API.
const (
	TypingOn  = "typingOn"
	TypingOff = "typingOff"
)

// UserChannel delivers text and presence signals to the consumer-facing
// platform (TalkTalk).
type UserChannel interface {
	SendText(ctx context.Context, userID, text string) error
	SendAction(ctx context.Context, userID, action string) error
}

// AgentPlatform hosts the automated agent's conversations (Sendbird).
type AgentPlatform interface {
	// EnsureUser provisions the user, treating "already exists" as success.
	EnsureUser(ctx context.Context, userID string) error
	// SendDistinctMessage sends text from senderID to receiverID, reusing the
	// distinct channel for the pair, and returns the channel URL.
	SendDistinctMessage(ctx context.Context, senderID, receiverID, text string) (string, error)
}
