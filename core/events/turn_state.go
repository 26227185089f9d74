package events

// KindUserTurnCompleted identifies a confirmed end of the user's turn.
const KindUserTurnCompleted Kind = "turn_state.user_turn_completed"

// UserTurnCompleted marks a confirmed end of the user's turn with buffered
// speech.
type UserTurnCompleted struct {
	Base
	Transcript string
}

// NewUserTurnCompleted creates a user turn completed event.
func NewUserTurnCompleted(transcript string) UserTurnCompleted {
	return UserTurnCompleted{Base: NewBase(KindUserTurnCompleted), Transcript: transcript}
}

// KindAssistantTurnCompleted identifies a confirmed end of the assistant's
// turn.
const KindAssistantTurnCompleted Kind = "turn_state.assistant_turn_completed"

// AssistantTurnCompleted marks a confirmed end of the assistant's turn with
// buffered speech.
type AssistantTurnCompleted struct {
	Base
	Speech string
}

// NewAssistantTurnCompleted creates an assistant turn completed event.
func NewAssistantTurnCompleted(speech string) AssistantTurnCompleted {
	return AssistantTurnCompleted{Base: NewBase(KindAssistantTurnCompleted), Speech: speech}
}
