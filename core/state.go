package conversation

import "time"

// SpeakerState is one party's place in the turn-taking protocol.
type SpeakerState string

const (
	SpeakerStateIdle        SpeakerState = "idle"
	SpeakerStateListening   SpeakerState = "listening"
	SpeakerStateThinking    SpeakerState = "thinking"
	SpeakerStateSpeaking    SpeakerState = "speaking"
	SpeakerStateInterrupted SpeakerState = "interrupted"
)

// Speaker identifies which party holds the conversational floor.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerNone      Speaker = "none"
)

// State is a point-in-time snapshot of the conversation. Snapshots are
// immutable and level-triggered: subscribers always receive the full state
// and compare against their own last-seen version.
//
// Invariant: CurrentSpeaker == SpeakerUser holds exactly when
// UserState == SpeakerStateSpeaking, and symmetrically for the assistant.
type State struct {
	UserState      SpeakerState
	AssistantState SpeakerState

	CurrentSpeaker Speaker
	LastSpeaker    Speaker

	// UserPauseDuration and AssistantPauseDuration are the elapsed silence
	// since that party's last speech end, zero while they speak.
	UserPauseDuration      time.Duration
	AssistantPauseDuration time.Duration

	InterruptionCount int
	ConversationTurns int

	// IsProcessingInterruption is true during the short cooldown right after
	// an interruption, while new interruptions are suppressed.
	IsProcessingInterruption bool

	// UseFallbackMode reports whether speech input is running the degraded
	// recognition profile.
	UseFallbackMode bool

	Version uint64
}
