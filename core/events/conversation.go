package events

// KindConversationStateUpdated identifies an applied conversation state
// transition.
const KindConversationStateUpdated Kind = "conversation.state_updated"

// ConversationStateUpdated marks an applied conversation state transition.
// Version identifies the snapshot that resulted from the transition.
type ConversationStateUpdated struct {
	Base
	Version uint64
}

// NewConversationStateUpdated creates a conversation state updated event.
func NewConversationStateUpdated(version uint64) ConversationStateUpdated {
	return ConversationStateUpdated{Base: NewBase(KindConversationStateUpdated), Version: version}
}
