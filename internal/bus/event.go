package bus

import "time"

// Event kinds. The part before the dot is the namespace subscribers filter on.
const (
	SessionChanged = "session.changed"

	ConversationStateChanged = "conversation.state_changed"
	ConversationUpdated      = "conversation.updated"
	ConversationPending      = "conversation.pending"
	ConversationSendFailed   = "conversation.send_failed"

	ChatListUpdated = "chatlist.updated"

	SupportUpdated    = "support.updated"
	SupportSendFailed = "support.send_failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind string
	// Key identifies the subject, e.g. a conversation id. Empty for global events.
	Key       string
	Timestamp time.Time
	Payload   any
}
