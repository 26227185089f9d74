// Package conversation implements the turn-taking core of a spoken,
// interruptible conversation between a user and an assistant: who holds the
// floor, when a pause means the turn is over, and how interruptions are
// arbitrated.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/koscakluka/duplex-core/core/events"
	"github.com/koscakluka/duplex-core/core/speechinput"
	"github.com/koscakluka/duplex-core/core/speechoutput"
	"github.com/koscakluka/duplex-core/internal/timers"
)

// Manager holds the canonical conversation state and drives the bound
// speech input and output components. All transitions are serialized under
// one mutex; timer callbacks re-enter through the same mutex and revalidate
// state before acting.
type Manager struct {
	mu sync.Mutex

	cfg       managerConfig
	callbacks observeCallbacks
	emitters  []eventEmitter

	speechInput  *speechinput.Supervisor
	speechOutput *speechoutput.Queue

	userState      SpeakerState
	assistantState SpeakerState
	currentSpeaker Speaker
	lastSpeaker    Speaker

	userSpeechEndedAt      time.Time
	assistantSpeechEndedAt time.Time

	interruptionCount      int
	conversationTurns      int
	processingInterruption bool
	interruptedParty       Speaker
	fallbackMode           bool
	version                uint64

	userSpeechBuffer      string
	assistantSpeechBuffer string

	interruptedSpeech    string
	hasInterruptedSpeech bool

	subscribers []func(State)

	userPauseTimer      timers.Resettable
	assistantPauseTimer timers.Resettable
	cooldownTimer       timers.Resettable
}

func NewManager(opts ...ManagerOption) *Manager {
	manager := &Manager{
		cfg: managerConfig{
			userPauseThreshold:      defaultUserPauseThreshold,
			assistantPauseThreshold: defaultAssistantPauseThreshold,
			interruptionCooldown:    defaultInterruptionCooldown,
			allowInterruptions:      true,
		},
		userState:      SpeakerStateIdle,
		assistantState: SpeakerStateIdle,
		currentSpeaker: SpeakerNone,
		lastSpeaker:    SpeakerNone,
	}

	for _, opt := range opts {
		opt(manager)
	}

	manager.emitters = append(manager.emitters, newCallbackEventEmitter(manager.callbacks))

	return manager
}

// Subscribe registers a state observer. Observers receive the full snapshot
// after every transition and must treat it as level-triggered.
func (m *Manager) Subscribe(callback func(state State)) {
	if callback == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, callback)
}

// SubscribeEvents registers a typed event observer.
func (m *Manager) SubscribeEvents(emitter func(event events.Event)) {
	if emitter == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitters = append(m.emitters, emitter)
}

// State returns an immutable snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

// InterruptedSpeech returns the assistant sentence captured by the last
// interruption. The slot is never auto-replayed; resuming or acknowledging
// it is the caller's decision.
func (m *Manager) InterruptedSpeech() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.interruptedSpeech, m.hasInterruptedSpeech
}

// UserStartsSpeaking records that the user's voice activity began. If the
// assistant is mid-utterance and interruptions are allowed, the interruption
// protocol runs first. The call is ignored while an interruption cooldown
// would be violated.
func (m *Manager) UserStartsSpeaking() {
	m.mu.Lock()
	if m.userState == SpeakerStateSpeaking {
		m.mu.Unlock()
		return
	}

	var pending []events.Event
	if m.assistantState == SpeakerStateSpeaking {
		if !m.cfg.allowInterruptions || m.processingInterruption {
			m.mu.Unlock()
			return
		}
		pending = append(pending, m.interruptLocked(SpeakerAssistant)...)
	}

	m.userPauseTimer.Cancel()
	m.userState = SpeakerStateSpeaking
	m.currentSpeaker = SpeakerUser
	m.userSpeechEndedAt = time.Time{}
	pending = append(pending, events.NewUserSpeechStarted())

	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, pending)
}

// UserStopsSpeaking records a detected pause or end of utterance, buffering
// finalTranscript for the pause-confirmation timer. A no-op unless the user
// was speaking.
func (m *Manager) UserStopsSpeaking(finalTranscript string) {
	m.mu.Lock()
	if m.userState != SpeakerStateSpeaking {
		m.mu.Unlock()
		return
	}

	pending := m.stopUserSpeechLocked(finalTranscript)
	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, pending)
}

func (m *Manager) stopUserSpeechLocked(finalTranscript string) []events.Event {
	if finalTranscript != "" {
		m.userSpeechBuffer = finalTranscript
	}

	m.userState = SpeakerStateIdle
	m.lastSpeaker = SpeakerUser
	m.currentSpeaker = SpeakerNone
	m.userSpeechEndedAt = time.Now()
	m.userPauseTimer.Schedule(m.cfg.userPauseThreshold, m.handleUserPauseComplete)

	pending := []events.Event{events.NewUserSpeechEnded()}
	if finalTranscript != "" {
		pending = append(pending, events.NewUserTranscriptFinal(finalTranscript))
	}
	return pending
}

// handleUserPauseComplete confirms that the user's pause means the turn is
// over. A guaranteed no-op when the user resumed speaking before the timer
// fired.
func (m *Manager) handleUserPauseComplete() {
	m.mu.Lock()
	if m.userState == SpeakerStateSpeaking {
		m.mu.Unlock()
		return
	}

	transcript := m.userSpeechBuffer
	m.userSpeechBuffer = ""

	var pending []events.Event
	if transcript != "" {
		m.conversationTurns++
		pending = append(pending, events.NewUserTurnCompleted(transcript))
	}

	// The floor opens: the assistant is invited to listen unless it is
	// already mid-something.
	if m.assistantState == SpeakerStateIdle {
		m.assistantState = SpeakerStateListening
	}
	m.currentSpeaker = SpeakerNone

	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, pending)
}

// AssistantStartsSpeaking is symmetric to UserStartsSpeaking, with the user
// as the potentially interrupted party.
func (m *Manager) AssistantStartsSpeaking() {
	m.mu.Lock()
	if m.assistantState == SpeakerStateSpeaking {
		m.mu.Unlock()
		return
	}

	var pending []events.Event
	if m.userState == SpeakerStateSpeaking {
		if !m.cfg.allowInterruptions || m.processingInterruption {
			m.mu.Unlock()
			return
		}
		pending = append(pending, m.interruptLocked(SpeakerUser)...)
	}

	m.assistantPauseTimer.Cancel()
	m.assistantState = SpeakerStateSpeaking
	m.currentSpeaker = SpeakerAssistant
	m.assistantSpeechEndedAt = time.Time{}

	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, pending)
}

// AssistantStopsSpeaking is symmetric to UserStopsSpeaking, with the much
// shorter assistant pause threshold since assistant pauses are
// inter-sentence gaps.
func (m *Manager) AssistantStopsSpeaking(finalSpeech string) {
	m.mu.Lock()
	if m.assistantState != SpeakerStateSpeaking {
		m.mu.Unlock()
		return
	}

	if finalSpeech != "" {
		m.assistantSpeechBuffer = finalSpeech
	}

	m.assistantState = SpeakerStateIdle
	m.lastSpeaker = SpeakerAssistant
	m.currentSpeaker = SpeakerNone
	m.assistantSpeechEndedAt = time.Now()
	m.assistantPauseTimer.Schedule(m.cfg.assistantPauseThreshold, m.handleAssistantPauseComplete)

	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, nil)
}

func (m *Manager) handleAssistantPauseComplete() {
	m.mu.Lock()
	if m.assistantState == SpeakerStateSpeaking {
		m.mu.Unlock()
		return
	}

	speech := m.assistantSpeechBuffer
	m.assistantSpeechBuffer = ""

	var pending []events.Event
	if speech != "" {
		m.conversationTurns++
		pending = append(pending, events.NewAssistantTurnCompleted(speech))
	}

	if m.userState == SpeakerStateIdle {
		m.userState = SpeakerStateListening
	}
	m.currentSpeaker = SpeakerNone

	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, pending)
}

// AssistantStartsThinking marks the assistant as generating a response. A
// latency-hiding signal only; ignored while the assistant is speaking.
func (m *Manager) AssistantStartsThinking() {
	m.mu.Lock()
	if m.assistantState == SpeakerStateSpeaking || m.assistantState == SpeakerStateThinking {
		m.mu.Unlock()
		return
	}

	m.assistantState = SpeakerStateThinking
	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, nil)
}

func (m *Manager) AssistantStopsThinking() {
	m.mu.Lock()
	if m.assistantState != SpeakerStateThinking {
		m.mu.Unlock()
		return
	}

	m.assistantState = SpeakerStateIdle
	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, nil)
}

// interruptLocked runs the interruption protocol against the currently
// speaking party. Interrupting the assistant also cuts off the bound speech
// queue and captures its in-flight sentence.
func (m *Manager) interruptLocked(interrupted Speaker) []events.Event {
	m.interruptionCount++
	m.processingInterruption = true
	m.interruptedParty = interrupted

	captured := ""
	if interrupted == SpeakerAssistant {
		m.assistantState = SpeakerStateInterrupted
		m.assistantSpeechEndedAt = time.Now()
		if m.speechOutput != nil {
			if sentence, ok := m.speechOutput.Interrupt(); ok {
				captured = sentence
				m.interruptedSpeech = sentence
				m.hasInterruptedSpeech = true
			}
		}
	} else {
		m.userState = SpeakerStateInterrupted
		m.userSpeechEndedAt = time.Now()
	}
	m.currentSpeaker = SpeakerNone

	m.cooldownTimer.Schedule(m.cfg.interruptionCooldown, m.handleInterruptionCooldown)

	logger.Info("interruption recorded",
		"interrupted", string(interrupted),
		"interruption_count", m.interruptionCount)

	pending := []events.Event{events.NewInterruptionRecorded(string(interrupted), captured)}
	if captured != "" {
		pending = append(pending, events.NewAssistantSpeechInterrupted(captured))
	}
	return pending
}

// handleInterruptionCooldown ends the post-interruption settling window and
// returns the interrupted party to idle if nothing else moved it on.
func (m *Manager) handleInterruptionCooldown() {
	m.mu.Lock()
	m.processingInterruption = false

	switch m.interruptedParty {
	case SpeakerAssistant:
		if m.assistantState == SpeakerStateInterrupted {
			m.assistantState = SpeakerStateIdle
		}
	case SpeakerUser:
		if m.userState == SpeakerStateInterrupted {
			m.userState = SpeakerStateIdle
		}
	}
	m.interruptedParty = SpeakerNone

	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, []events.Event{events.NewInterruptionCooldownEnded()})
}

// Reset cancels all timers, clears buffers and counters, restores the
// initial state, and releases the bound speech components.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.userPauseTimer.Cancel()
	m.assistantPauseTimer.Cancel()
	m.cooldownTimer.Cancel()

	m.userState = SpeakerStateIdle
	m.assistantState = SpeakerStateIdle
	m.currentSpeaker = SpeakerNone
	m.lastSpeaker = SpeakerNone
	m.userSpeechEndedAt = time.Time{}
	m.assistantSpeechEndedAt = time.Time{}
	m.interruptionCount = 0
	m.conversationTurns = 0
	m.processingInterruption = false
	m.interruptedParty = SpeakerNone
	m.fallbackMode = false
	m.userSpeechBuffer = ""
	m.assistantSpeechBuffer = ""
	m.interruptedSpeech = ""
	m.hasInterruptedSpeech = false

	speechInput := m.speechInput
	speechOutput := m.speechOutput

	snapshot := m.commitLocked()
	m.mu.Unlock()

	if speechOutput != nil {
		speechOutput.Interrupt()
	}
	if speechInput != nil {
		speechInput.Reset()
	}

	m.publish(snapshot, nil)
}

// StartListening starts the bound speech input supervisor and wires its
// transcript, voice-activity, and error streams into the state machine.
func (m *Manager) StartListening(ctx context.Context) error {
	m.mu.Lock()
	supervisor := m.speechInput
	m.mu.Unlock()

	if supervisor == nil {
		return fmt.Errorf("no speech input bound")
	}

	if err := supervisor.Start(ctx, speechinput.SessionCallbacks{
		OnSpeechStarted: m.UserStartsSpeaking,
		OnSpeechEnded:   func() { m.UserStopsSpeaking("") },
		OnTranscript:    m.handleTranscript,
		OnError:         m.handleRecognitionError,
		OnModeChanged:   m.handleFallbackModeChanged,
	}); err != nil {
		recordedErr := fmt.Errorf("failed to start speech input: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return recordedErr
	}

	return nil
}

// StopListening stops the bound speech input supervisor.
func (m *Manager) StopListening() {
	m.mu.Lock()
	supervisor := m.speechInput
	m.mu.Unlock()

	if supervisor != nil {
		supervisor.Stop()
	}
}

// handleTranscript folds recognition results into the turn-taking machine.
// Final transcripts that arrive after the speech-ended edge are still
// buffered for the pending pause confirmation.
func (m *Manager) handleTranscript(transcript string, isFinal bool) {
	if !isFinal {
		m.emitEvents(events.NewUserTranscriptInterimUpdated(transcript))
		return
	}

	m.mu.Lock()
	if m.userState == SpeakerStateSpeaking {
		pending := m.stopUserSpeechLocked(transcript)
		snapshot := m.commitLocked()
		m.mu.Unlock()

		m.publish(snapshot, pending)
		return
	}

	m.userSpeechBuffer = transcript
	if !m.userPauseTimer.Pending() {
		m.userPauseTimer.Schedule(m.cfg.userPauseThreshold, m.handleUserPauseComplete)
	}
	m.mu.Unlock()

	m.emitEvents(events.NewUserTranscriptFinal(transcript))
}

func (m *Manager) handleRecognitionError(err error) {
	logger.Warn("speech recognition error", "error", err)
	m.emitEvents(events.NewRecognitionErrorRaised(
		recognitionErrorCode(err), err.Error(), speechinput.IsRecoverable(err)))

	if m.callbacks.onRecognitionError != nil {
		m.callbacks.onRecognitionError(err)
	}
}

func (m *Manager) handleFallbackModeChanged(fallbackActive bool) {
	m.mu.Lock()
	m.fallbackMode = fallbackActive
	snapshot := m.commitLocked()
	m.mu.Unlock()

	m.publish(snapshot, []events.Event{events.NewRecognitionModeChanged(fallbackActive)})
}

// Say stops any thinking signal and enqueues text into the bound speech
// queue, mirroring the queue's playback lifecycle into the assistant's
// state.
func (m *Manager) Say(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	queue := m.speechOutput
	m.mu.Unlock()

	if queue == nil {
		return "", fmt.Errorf("no speech output bound")
	}

	m.AssistantStopsThinking()

	ctx, span := tracer.Start(ctx, "conversation.say")

	id, err := queue.Speak(ctx, text,
		speechoutput.WithStartedCallback(func() {
			m.AssistantStartsSpeaking()
			m.emitEvents(events.NewAssistantSpeechStarted())
		}),
		speechoutput.WithEndedCallback(func(transcript string) {
			m.AssistantStopsSpeaking(transcript)
			m.emitEvents(events.NewAssistantSpeechEnded(transcript))
			span.End()
		}),
		speechoutput.WithSentenceStartedCallback(func(sentence string, index int) {
			m.emitEvents(events.NewAssistantSentenceStarted(sentence, index))
		}),
		speechoutput.WithSentenceEndedCallback(func(sentence string, index int) {
			m.emitEvents(events.NewAssistantSentenceEnded(sentence, index))
		}),
		speechoutput.WithInterruptedCallback(func(string) {
			span.End()
		}),
		speechoutput.WithErrorCallback(func(speakErr error) {
			span.RecordError(speakErr)
			span.SetStatus(codes.Error, speakErr.Error())
			span.End()
		}),
	)
	if err != nil {
		recordedErr := fmt.Errorf("failed to enqueue speech: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		span.End()
		return "", recordedErr
	}

	return id, nil
}

func (m *Manager) snapshotLocked() State {
	snapshot := State{
		UserState:                m.userState,
		AssistantState:           m.assistantState,
		CurrentSpeaker:           m.currentSpeaker,
		LastSpeaker:              m.lastSpeaker,
		InterruptionCount:        m.interruptionCount,
		ConversationTurns:        m.conversationTurns,
		IsProcessingInterruption: m.processingInterruption,
		UseFallbackMode:          m.fallbackMode,
		Version:                  m.version,
	}

	if m.userState != SpeakerStateSpeaking && !m.userSpeechEndedAt.IsZero() {
		snapshot.UserPauseDuration = time.Since(m.userSpeechEndedAt)
	}
	if m.assistantState != SpeakerStateSpeaking && !m.assistantSpeechEndedAt.IsZero() {
		snapshot.AssistantPauseDuration = time.Since(m.assistantSpeechEndedAt)
	}

	return snapshot
}

// commitLocked bumps the version and returns the snapshot to publish.
func (m *Manager) commitLocked() State {
	m.version++
	return m.snapshotLocked()
}

// publish delivers a snapshot and its accompanying typed events outside the
// lock, in transition order.
func (m *Manager) publish(snapshot State, pending []events.Event) {
	pending = append(pending, events.NewConversationStateUpdated(snapshot.Version))

	m.mu.Lock()
	subscribers := append([](func(State))(nil), m.subscribers...)
	emitters := append([]eventEmitter(nil), m.emitters...)
	onStateChanged := m.callbacks.onStateChanged
	m.mu.Unlock()

	if onStateChanged != nil {
		onStateChanged(snapshot)
	}
	for _, subscriber := range subscribers {
		subscriber(snapshot)
	}
	for _, event := range pending {
		for _, emitter := range emitters {
			emitter(event)
		}
	}
}

func (m *Manager) emitEvents(pending ...events.Event) {
	m.mu.Lock()
	emitters := append([]eventEmitter(nil), m.emitters...)
	m.mu.Unlock()

	for _, event := range pending {
		for _, emitter := range emitters {
			emitter(event)
		}
	}
}

func recognitionErrorCode(err error) string {
	switch {
	case errors.Is(err, speechinput.ErrNoSpeechDetected):
		return string(speechinput.ErrorCodeNoSpeech)
	case errors.Is(err, speechinput.ErrEngineAborted):
		return string(speechinput.ErrorCodeAborted)
	case errors.Is(err, speechinput.ErrNetwork):
		return string(speechinput.ErrorCodeNetwork)
	case errors.Is(err, speechinput.ErrPermissionDenied):
		return string(speechinput.ErrorCodeNotAllowed)
	case errors.Is(err, speechinput.ErrNoMicrophone):
		return string(speechinput.ErrorCodeAudioCapture)
	case errors.Is(err, speechinput.ErrRecoveryExhausted):
		return "recovery-exhausted"
	default:
		return "unknown"
	}
}
