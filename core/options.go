package conversation

import (
	"time"

	"github.com/koscakluka/duplex-core/core/speechinput"
	"github.com/koscakluka/duplex-core/core/speechoutput"
)

const (
	defaultUserPauseThreshold      = 500 * time.Millisecond
	defaultAssistantPauseThreshold = 100 * time.Millisecond
	defaultInterruptionCooldown    = 200 * time.Millisecond
)

type managerConfig struct {
	userPauseThreshold      time.Duration
	assistantPauseThreshold time.Duration
	interruptionCooldown    time.Duration
	allowInterruptions      bool
}

type observeCallbacks struct {
	onStateChanged          func(state State)
	onSpeakingStateChanged  func(speaking bool)
	onInterimTranscription  func(transcript string)
	onTranscription         func(transcript string)
	onUserTurnComplete      func(transcript string)
	onAssistantTurnComplete func(speech string)
	onInterruption          func(capturedSpeech string)
	onRecognitionError      func(err error)
	onFallbackModeChanged   func(fallbackActive bool)
}

type ManagerOption func(*Manager)

// WithUserPauseThreshold tunes how long the user must stay quiet before
// their utterance counts as finished.
func WithUserPauseThreshold(threshold time.Duration) ManagerOption {
	return func(m *Manager) { m.cfg.userPauseThreshold = threshold }
}

// WithAssistantPauseThreshold tunes the assistant's pause confirmation. It
// is much shorter than the user's because assistant pauses are
// inter-sentence gaps, not thinking time.
func WithAssistantPauseThreshold(threshold time.Duration) ManagerOption {
	return func(m *Manager) { m.cfg.assistantPauseThreshold = threshold }
}

// WithInterruptions toggles whether a party may take the floor while the
// other is mid-utterance.
func WithInterruptions(allowed bool) ManagerOption {
	return func(m *Manager) { m.cfg.allowInterruptions = allowed }
}

// WithInterruptionCooldown tunes the window after an interruption during
// which further interruptions are suppressed.
func WithInterruptionCooldown(cooldown time.Duration) ManagerOption {
	return func(m *Manager) { m.cfg.interruptionCooldown = cooldown }
}

// WithSpeechInput binds the recognition supervisor. StartListening wires its
// transcript and error stream into the turn-taking state machine.
func WithSpeechInput(supervisor *speechinput.Supervisor) ManagerOption {
	return func(m *Manager) { m.speechInput = supervisor }
}

// WithSpeechOutput binds the speech queue. Say enqueues into it and the
// interruption protocol cuts it off.
func WithSpeechOutput(queue *speechoutput.Queue) ManagerOption {
	return func(m *Manager) { m.speechOutput = queue }
}

func WithStateChangedCallback(callback func(state State)) ManagerOption {
	return func(m *Manager) { m.callbacks.onStateChanged = callback }
}

// WithSpeakingStateChangedCallback reports the user's voice activity edges.
func WithSpeakingStateChangedCallback(callback func(speaking bool)) ManagerOption {
	return func(m *Manager) { m.callbacks.onSpeakingStateChanged = callback }
}

func WithInterimTranscriptionCallback(callback func(transcript string)) ManagerOption {
	return func(m *Manager) { m.callbacks.onInterimTranscription = callback }
}

func WithTranscriptionCallback(callback func(transcript string)) ManagerOption {
	return func(m *Manager) { m.callbacks.onTranscription = callback }
}

// WithUserTurnCompleteCallback fires once a confirmed pause turns the user's
// buffered utterance into a completed turn.
func WithUserTurnCompleteCallback(callback func(transcript string)) ManagerOption {
	return func(m *Manager) { m.callbacks.onUserTurnComplete = callback }
}

func WithAssistantTurnCompleteCallback(callback func(speech string)) ManagerOption {
	return func(m *Manager) { m.callbacks.onAssistantTurnComplete = callback }
}

// WithInterruptionCallback fires when the interruption protocol runs,
// carrying the assistant's captured in-flight sentence if there was one.
func WithInterruptionCallback(callback func(capturedSpeech string)) ManagerOption {
	return func(m *Manager) { m.callbacks.onInterruption = callback }
}

func WithRecognitionErrorCallback(callback func(err error)) ManagerOption {
	return func(m *Manager) { m.callbacks.onRecognitionError = callback }
}

func WithFallbackModeChangedCallback(callback func(fallbackActive bool)) ManagerOption {
	return func(m *Manager) { m.callbacks.onFallbackModeChanged = callback }
}
