package speechinput

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/duplex-core/internal/timers"
)

// Mode is the supervisor's coarse operating state layered on top of the raw
// engine lifecycle.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeCooldown Mode = "cooldown"
	ModeFallback Mode = "fallback"
)

const (
	defaultMaxRestartAttempts    = 5
	defaultAbortedErrorThreshold = 3
	defaultNoSpeechRestartDelay  = 300 * time.Millisecond
	defaultCooldownBase          = time.Second
	defaultNetworkRetryDelay     = 2 * time.Second
	defaultNoSpeechTimeout       = 8 * time.Second
	defaultRecoveryWindow        = 10 * time.Second
	defaultWatchdogInterval      = 30 * time.Second

	// maxCooldownMultiplier caps how far the aborted-error cooldown grows.
	maxCooldownMultiplier = 5
)

type supervisorConfig struct {
	maxRestartAttempts    int
	abortedErrorThreshold int
	noSpeechRestartDelay  time.Duration
	cooldownBase          time.Duration
	networkRetryDelay     time.Duration
	noSpeechTimeout       time.Duration
	recoveryWindow        time.Duration
	watchdogInterval      time.Duration

	// maxNoSpeechRetries, when set, overrides the active profile's bound on
	// silent no-speech restarts across profile switches.
	maxNoSpeechRetries *int
}

// SessionCallbacks carries the consumer-facing callbacks for one listening
// session. All callbacks are optional and are invoked outside the
// supervisor's lock.
type SessionCallbacks struct {
	// OnTranscript receives every transcript regardless of how many times the
	// underlying engine was restarted underneath.
	OnTranscript func(transcript string, isFinal bool)

	OnSpeechStarted func()
	OnSpeechEnded   func()

	// OnError receives surfaced errors from the taxonomy in errors.go.
	// Recoverable ones are informational; non-recoverable ones mean the
	// supervisor stopped retrying.
	OnError func(err error)

	// OnModeChanged reports switches between the normal and fallback
	// recognition profiles.
	OnModeChanged func(fallbackActive bool)
}

type retryState struct {
	consecutiveErrors  int
	restartAttempts    int
	noSpeechRetryCount int
	lastErrorAt        time.Time
	cooldownUntil      time.Time
	fallbackActive     bool
}

// Supervisor owns one recognition engine session at a time and converts raw
// engine errors into a controlled retry/backoff/fallback state machine. The
// consumer sees one clean transcript stream no matter how many times the
// engine was restarted underneath.
type Supervisor struct {
	mu sync.Mutex

	engine   Engine
	pipeline *Pipeline
	cfg      supervisorConfig

	baseContext context.Context
	callbacks   SessionCallbacks

	profile Profile
	retry   retryState

	// session is the engine session epoch; callbacks from stopped sessions
	// carry an older epoch and are dropped.
	session uint64
	running bool
	// terminal is set once auto-recovery stops (recovery exhausted or a
	// permission/hardware error); only Reset clears it.
	terminal bool

	// notifiedDegraded coalesces repeated aborted-error notifications once
	// the consumer has been told about the degraded mode.
	notifiedDegraded bool
	networkRetried   bool

	restartTimer  timers.Resettable
	noSpeechTimer timers.Resettable
	recoveryTimer timers.Resettable
	watchdogTimer timers.Resettable
}

type SupervisorOption func(*Supervisor)

// WithCapturePipeline hands the supervisor the singleton microphone
// pipeline. The pipeline is released and reacquired on every engine restart
// and profile switch.
func WithCapturePipeline(pipeline *Pipeline) SupervisorOption {
	return func(s *Supervisor) { s.pipeline = pipeline }
}

func WithMaxRestartAttempts(attempts int) SupervisorOption {
	return func(s *Supervisor) { s.cfg.maxRestartAttempts = attempts }
}

func WithAbortedErrorThreshold(threshold int) SupervisorOption {
	return func(s *Supervisor) { s.cfg.abortedErrorThreshold = threshold }
}

func WithNoSpeechRestartDelay(delay time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.cfg.noSpeechRestartDelay = delay }
}

func WithCooldownBase(base time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.cfg.cooldownBase = base }
}

func WithNetworkRetryDelay(delay time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.cfg.networkRetryDelay = delay }
}

// WithMaxNoSpeechRetries overrides how many no-speech errors are absorbed
// with a silent restart before one is surfaced. Without this option the
// bound comes from the active recognition profile.
func WithMaxNoSpeechRetries(retries int) SupervisorOption {
	return func(s *Supervisor) { s.cfg.maxNoSpeechRetries = &retries }
}

// WithNoSpeechTimeout bounds how long a session may run without any result
// before a no-speech error is raised locally. Zero disables the watchdog.
func WithNoSpeechTimeout(timeout time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.cfg.noSpeechTimeout = timeout }
}

// WithRecoveryWindow tunes how long the error count must stay at zero after
// a successful transcript before fallback mode is exited.
func WithRecoveryWindow(window time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.cfg.recoveryWindow = window }
}

func WithWatchdogInterval(interval time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.cfg.watchdogInterval = interval }
}

func NewSupervisor(engine Engine, opts ...SupervisorOption) *Supervisor {
	supervisor := &Supervisor{
		engine:      engine,
		baseContext: context.Background(),
		profile:     NormalProfile(),
		cfg: supervisorConfig{
			maxRestartAttempts:    defaultMaxRestartAttempts,
			abortedErrorThreshold: defaultAbortedErrorThreshold,
			noSpeechRestartDelay:  defaultNoSpeechRestartDelay,
			cooldownBase:          defaultCooldownBase,
			networkRetryDelay:     defaultNetworkRetryDelay,
			noSpeechTimeout:       defaultNoSpeechTimeout,
			recoveryWindow:        defaultRecoveryWindow,
			watchdogInterval:      defaultWatchdogInterval,
		},
	}

	for _, opt := range opts {
		opt(supervisor)
	}

	return supervisor
}

// Start begins listening. Starting a running supervisor is an error, as is
// starting one that stopped terminally without a Reset in between.
func (s *Supervisor) Start(ctx context.Context, callbacks SessionCallbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("supervisor already listening")
	}
	if s.terminal {
		return fmt.Errorf("supervisor requires reset: %w", ErrRecoveryExhausted)
	}

	s.baseContext = ctx
	s.callbacks = callbacks
	s.running = true

	if err := s.startEngineLocked(); err != nil {
		s.running = false
		return fmt.Errorf("failed to start recognition: %w", err)
	}

	s.armWatchdogLocked()
	return nil
}

// Stop ends the session and releases the microphone. Stopping an idle
// supervisor is a no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	s.stopSessionLocked()
	s.restartTimer.Cancel()
	s.recoveryTimer.Cancel()
	s.watchdogTimer.Cancel()
}

// Reset stops the supervisor and clears all retry state, including a
// terminal stop. After Reset the supervisor starts in normal mode again.
func (s *Supervisor) Reset() {
	s.mu.Lock()
	wasFallback := s.retry.fallbackActive

	if s.running {
		s.running = false
		s.stopSessionLocked()
	}
	s.restartTimer.Cancel()
	s.recoveryTimer.Cancel()
	s.watchdogTimer.Cancel()

	s.retry = retryState{}
	s.profile = NormalProfile()
	s.terminal = false
	s.notifiedDegraded = false
	s.networkRetried = false
	onModeChanged := s.callbacks.OnModeChanged
	s.mu.Unlock()

	if wasFallback && onModeChanged != nil {
		onModeChanged(false)
	}
}

// Mode reports the supervisor's coarse operating state.
func (s *Supervisor) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.retry.fallbackActive:
		return ModeFallback
	case time.Now().Before(s.retry.cooldownUntil):
		return ModeCooldown
	default:
		return ModeNormal
	}
}

func (s *Supervisor) FallbackActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retry.fallbackActive
}

func (s *Supervisor) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// startEngineLocked starts a fresh engine session (and the capture pipeline
// when one is configured) under a new session epoch.
func (s *Supervisor) startEngineLocked() error {
	s.session++
	sessionID := s.session
	profile := s.profile

	recognitionOptions := []RecognitionOption{
		WithProfile(profile),
		WithEncodingInfo(s.pipeline.EncodingInfo()),
		WithResultCallback(func(transcript string, isFinal bool) {
			s.handleResult(sessionID, transcript, isFinal)
		}),
		WithSpeechStartedCallback(func() { s.handleSpeechActivity(sessionID, true) }),
		WithSpeechEndedCallback(func() { s.handleSpeechActivity(sessionID, false) }),
		WithEndedCallback(func() { s.handleEngineEnded(sessionID) }),
		WithErrorCallback(func(code ErrorCode, message string) {
			s.handleEngineError(sessionID, code, message)
		}),
	}

	if s.pipeline != nil {
		callbacks := pipelineCallbacks{
			onSpeechStarted: func() { s.handleSpeechActivity(sessionID, true) },
			onSpeechEnded:   func() { s.handleSpeechActivity(sessionID, false) },
		}
		if sink, ok := s.engine.(AudioSink); ok {
			callbacks.onAudio = func(frame []byte) { _ = sink.SendAudio(frame) }
		}

		if err := s.pipeline.Start(s.baseContext, profile, callbacks); err != nil {
			return fmt.Errorf("failed to start capture pipeline: %w", err)
		}
	}

	if err := s.engine.Listen(s.baseContext, recognitionOptions...); err != nil {
		if s.pipeline != nil {
			_ = s.pipeline.Stop()
		}
		return fmt.Errorf("failed to start recognition engine: %w", err)
	}

	s.armNoSpeechTimerLocked(sessionID)
	return nil
}

// stopSessionLocked tears down the current engine session and releases the
// microphone pipeline. Bumping the epoch drops any late callbacks the engine
// still delivers.
func (s *Supervisor) stopSessionLocked() {
	s.session++
	s.noSpeechTimer.Cancel()
	if err := s.engine.Stop(); err != nil {
		logger.Warn("failed to stop recognition engine", "error", err)
	}
	if s.pipeline != nil {
		if err := s.pipeline.Stop(); err != nil {
			logger.Warn("failed to release capture pipeline", "error", err)
		}
	}
}

func (s *Supervisor) sessionActiveLocked(sessionID uint64) bool {
	return s.running && s.session == sessionID
}

func (s *Supervisor) handleResult(sessionID uint64, transcript string, isFinal bool) {
	s.mu.Lock()
	if !s.sessionActiveLocked(sessionID) {
		s.mu.Unlock()
		return
	}

	s.armNoSpeechTimerLocked(sessionID)

	onTranscript := s.callbacks.OnTranscript
	if isFinal && strings.TrimSpace(transcript) != "" {
		s.retry.consecutiveErrors = 0
		s.retry.restartAttempts = 0
		s.retry.noSpeechRetryCount = 0
		s.networkRetried = false

		if s.retry.fallbackActive {
			s.armRecoveryTimerLocked()
		}
	}
	s.mu.Unlock()

	if onTranscript != nil {
		onTranscript(transcript, isFinal)
	}
}

func (s *Supervisor) handleSpeechActivity(sessionID uint64, started bool) {
	s.mu.Lock()
	if !s.sessionActiveLocked(sessionID) {
		s.mu.Unlock()
		return
	}

	s.armNoSpeechTimerLocked(sessionID)
	callback := s.callbacks.OnSpeechEnded
	if started {
		callback = s.callbacks.OnSpeechStarted
	}
	s.mu.Unlock()

	if callback != nil {
		callback()
	}
}

// handleEngineEnded restarts the engine when a session ends underneath a
// running supervisor. Non-continuous profiles end after every utterance, so
// this is their normal steady-state loop; the restart budget still applies
// but is replenished by every successful transcript.
func (s *Supervisor) handleEngineEnded(sessionID uint64) {
	s.mu.Lock()
	if !s.sessionActiveLocked(sessionID) {
		s.mu.Unlock()
		return
	}

	surfaced := s.scheduleRestartLocked(0)
	s.mu.Unlock()

	s.notify(surfaced, nil)
}

func (s *Supervisor) handleEngineError(sessionID uint64, code ErrorCode, message string) {
	s.mu.Lock()
	if !s.sessionActiveLocked(sessionID) {
		s.mu.Unlock()
		return
	}

	now := time.Now()
	s.retry.lastErrorAt = now

	var surfaced error
	var modeChanged *bool

	switch code {
	case ErrorCodeNoSpeech:
		if s.retry.noSpeechRetryCount < s.maxNoSpeechRetriesLocked() && !s.inCooldownLocked(now) {
			s.retry.noSpeechRetryCount++
			surfaced = s.scheduleRestartLocked(s.cfg.noSpeechRestartDelay)
		} else {
			s.retry.noSpeechRetryCount = 0
			surfaced = fmt.Errorf("%w: %s", ErrNoSpeechDetected, message)
		}

	case ErrorCodeAborted:
		s.retry.consecutiveErrors++
		cooldown := time.Duration(min(s.retry.consecutiveErrors, maxCooldownMultiplier)) * s.cfg.cooldownBase
		s.retry.cooldownUntil = now.Add(cooldown)

		if s.retry.consecutiveErrors >= s.cfg.abortedErrorThreshold && !s.retry.fallbackActive {
			s.retry.fallbackActive = true
			s.profile = FallbackProfile()
			s.notifiedDegraded = true
			modeChanged = &s.retry.fallbackActive
			surfaced = fmt.Errorf("%w: switching to fallback recognition", ErrEngineAborted)
			logger.Warn("recognition repeatedly aborted, switching to fallback profile",
				"consecutive_errors", s.retry.consecutiveErrors)
		} else if !s.notifiedDegraded {
			surfaced = fmt.Errorf("%w: %s", ErrEngineAborted, message)
		}

		if restartErr := s.scheduleRestartLocked(cooldown); restartErr != nil {
			surfaced = restartErr
		}

	case ErrorCodeNetwork:
		surfaced = fmt.Errorf("%w: %s", ErrNetwork, message)
		if !s.networkRetried {
			s.networkRetried = true
			s.retry.cooldownUntil = now.Add(s.cfg.networkRetryDelay)
			if restartErr := s.scheduleRestartLocked(s.cfg.networkRetryDelay); restartErr != nil {
				surfaced = restartErr
			}
		}

	case ErrorCodeNotAllowed:
		surfaced = fmt.Errorf("%w: %s", ErrPermissionDenied, message)
		s.terminal = true
		s.running = false
		s.stopSessionLocked()

	case ErrorCodeAudioCapture:
		surfaced = fmt.Errorf("%w: %s", ErrNoMicrophone, message)
		s.terminal = true
		s.running = false
		s.stopSessionLocked()

	default:
		surfaced = fmt.Errorf("unrecognized engine error %q: %s", code, message)
	}
	s.mu.Unlock()

	s.notify(surfaced, modeChanged)
}

// scheduleRestartLocked arms the restart timer, deferring past any active
// cooldown window so restart storms cannot form. It returns a terminal error
// once the restart budget is spent.
func (s *Supervisor) scheduleRestartLocked(delay time.Duration) error {
	if s.terminal || !s.running {
		return nil
	}

	if s.retry.restartAttempts >= s.cfg.maxRestartAttempts {
		s.terminal = true
		s.running = false
		s.stopSessionLocked()
		return fmt.Errorf("%w: %d restart attempts failed", ErrRecoveryExhausted, s.retry.restartAttempts)
	}
	s.retry.restartAttempts++

	if until := time.Until(s.retry.cooldownUntil); until > delay {
		delay = until
	}

	s.restartTimer.Schedule(delay, s.restart)
	return nil
}

func (s *Supervisor) restart() {
	s.mu.Lock()
	if !s.running || s.terminal {
		s.mu.Unlock()
		return
	}

	s.stopSessionLocked()
	err := s.startEngineLocked()
	var surfaced error
	if err != nil {
		logger.Warn("recognition restart failed", "error", err)
		surfaced = s.scheduleRestartLocked(s.cfg.cooldownBase)
	}
	s.mu.Unlock()

	s.notify(surfaced, nil)
}

// armRecoveryTimerLocked schedules the fallback-to-normal transition. The
// transition only happens if the error count is still zero when the window
// elapses; any error in between starts the wait over.
func (s *Supervisor) armRecoveryTimerLocked() {
	window := s.cfg.recoveryWindow
	s.recoveryTimer.Schedule(window, func() {
		s.mu.Lock()
		if !s.running || !s.retry.fallbackActive || s.retry.consecutiveErrors != 0 {
			s.mu.Unlock()
			return
		}

		s.retry.fallbackActive = false
		s.profile = NormalProfile()
		s.notifiedDegraded = false
		s.stopSessionLocked()
		err := s.startEngineLocked()
		onModeChanged := s.callbacks.OnModeChanged
		var surfaced error
		if err != nil {
			logger.Warn("failed to restore normal recognition profile", "error", err)
			surfaced = s.scheduleRestartLocked(s.cfg.cooldownBase)
		}
		s.mu.Unlock()

		if onModeChanged != nil {
			onModeChanged(false)
		}
		s.notify(surfaced, nil)
	})
}

func (s *Supervisor) armNoSpeechTimerLocked(sessionID uint64) {
	if s.cfg.noSpeechTimeout <= 0 {
		return
	}

	s.noSpeechTimer.Schedule(s.cfg.noSpeechTimeout, func() {
		s.handleEngineError(sessionID, ErrorCodeNoSpeech, "no speech within timeout")
	})
}

// armWatchdogLocked periodically clears the error counters after a quiet
// interval, so a past noisy period doesn't permanently bias the supervisor
// toward fallback mode.
func (s *Supervisor) armWatchdogLocked() {
	interval := s.cfg.watchdogInterval
	if interval <= 0 {
		return
	}

	s.watchdogTimer.Schedule(interval, func() {
		s.mu.Lock()
		if s.running {
			if time.Since(s.retry.lastErrorAt) >= interval {
				s.retry.consecutiveErrors = 0
				s.retry.restartAttempts = 0
			}
			s.armWatchdogLocked()
		}
		s.mu.Unlock()
	})
}

func (s *Supervisor) maxNoSpeechRetriesLocked() int {
	if s.cfg.maxNoSpeechRetries != nil {
		return *s.cfg.maxNoSpeechRetries
	}
	return s.profile.MaxNoSpeechRetries
}

func (s *Supervisor) inCooldownLocked(now time.Time) bool {
	return now.Before(s.retry.cooldownUntil)
}

// notify delivers surfaced errors and mode changes outside the lock.
func (s *Supervisor) notify(surfaced error, modeChanged *bool) {
	if surfaced == nil && modeChanged == nil {
		return
	}

	s.mu.Lock()
	onError := s.callbacks.OnError
	onModeChanged := s.callbacks.OnModeChanged
	s.mu.Unlock()

	if modeChanged != nil && onModeChanged != nil {
		onModeChanged(*modeChanged)
	}
	if surfaced != nil && onError != nil {
		onError(surfaced)
	}
}
