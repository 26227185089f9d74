package speechinput

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/duplex-core/core/audio"
)

type fakeEngine struct {
	mu        sync.Mutex
	sessions  []RecognitionOptions
	stopCalls int
}

func (e *fakeEngine) Listen(ctx context.Context, opts ...RecognitionOption) error {
	options := RecognitionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions = append(e.sessions, options)
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCalls++
	return nil
}

func (e *fakeEngine) sessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *fakeEngine) session(i int) RecognitionOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[i]
}

func (e *fakeEngine) latestSession() RecognitionOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[len(e.sessions)-1]
}

type callbackRecorder struct {
	mu          sync.Mutex
	transcripts []string
	errors      []error
	modeChanges []bool
}

func (r *callbackRecorder) sessionCallbacks() SessionCallbacks {
	return SessionCallbacks{
		OnTranscript: func(transcript string, isFinal bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.transcripts = append(r.transcripts, transcript)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, err)
		},
		OnModeChanged: func(fallbackActive bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.modeChanges = append(r.modeChanges, fallbackActive)
		},
	}
}

func (r *callbackRecorder) transcriptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transcripts)
}

func (r *callbackRecorder) lastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errors) == 0 {
		return nil
	}
	return r.errors[len(r.errors)-1]
}

func (r *callbackRecorder) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func (r *callbackRecorder) lastModeChange() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.modeChanges) == 0 {
		return false, false
	}
	return r.modeChanges[len(r.modeChanges)-1], true
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected condition within %v, timed out", timeout)
}

func newTestSupervisor(engine *fakeEngine, opts ...SupervisorOption) *Supervisor {
	baseOpts := []SupervisorOption{
		WithCooldownBase(time.Millisecond),
		WithNoSpeechRestartDelay(time.Millisecond),
		WithNetworkRetryDelay(time.Millisecond),
		WithNoSpeechTimeout(0),
		WithWatchdogInterval(0),
	}

	return NewSupervisor(engine, append(baseOpts, opts...)...)
}

func TestSupervisorDeliversTranscripts(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine)

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	engine.session(0).ResultCallback("hello there", true)

	if got := recorder.transcriptCount(); got != 1 {
		t.Fatalf("expected 1 transcript, got %d", got)
	}
	if got := supervisor.Mode(); got != ModeNormal {
		t.Fatalf("expected mode %q, got %q", ModeNormal, got)
	}
}

func TestSupervisorRejectsDoubleStart(t *testing.T) {
	engine := &fakeEngine{}
	supervisor := newTestSupervisor(engine)

	if err := supervisor.Start(context.Background(), SessionCallbacks{}); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	if err := supervisor.Start(context.Background(), SessionCallbacks{}); err == nil {
		t.Fatal("expected second start to fail, got nil")
	}
}

func TestSupervisorSwitchesToFallbackAfterRepeatedAborts(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine, WithAbortedErrorThreshold(3))

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	for i := 0; i < 3; i++ {
		engine.session(i).ErrorCallback(ErrorCodeAborted, "engine gave up")
		waitFor(t, time.Second, func() bool { return engine.sessionCount() == i+2 })
	}

	if !supervisor.FallbackActive() {
		t.Fatal("expected fallback mode after repeated aborts")
	}
	fallbackActive, notified := recorder.lastModeChange()
	if !notified || !fallbackActive {
		t.Fatalf("expected mode change notification to fallback, got (%v, %v)", fallbackActive, notified)
	}
	if restarted := engine.latestSession(); restarted.Profile.Continuous || restarted.Profile.InterimResults {
		t.Fatalf("expected fallback profile on restart, got %+v", restarted.Profile)
	}
}

func TestSupervisorFinalTranscriptResetsErrorCounters(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine, WithAbortedErrorThreshold(3))

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	for i := 0; i < 2; i++ {
		engine.session(i).ErrorCallback(ErrorCodeAborted, "engine gave up")
		waitFor(t, time.Second, func() bool { return engine.sessionCount() == i+2 })
	}

	engine.latestSession().ResultCallback("still here", true)

	for i := 0; i < 2; i++ {
		before := engine.sessionCount()
		engine.latestSession().ErrorCallback(ErrorCodeAborted, "engine gave up")
		waitFor(t, time.Second, func() bool { return engine.sessionCount() == before+1 })
	}

	if supervisor.FallbackActive() {
		t.Fatal("expected error counters to reset on final transcript, got fallback mode")
	}
}

func TestSupervisorBoundsNoSpeechRetries(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine)

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	retries := NormalProfile().MaxNoSpeechRetries
	for i := 0; i < retries; i++ {
		engine.session(i).ErrorCallback(ErrorCodeNoSpeech, "nothing heard")
		waitFor(t, time.Second, func() bool { return engine.sessionCount() == i+2 })
	}
	if got := recorder.errorCount(); got != 0 {
		t.Fatalf("expected silent restarts within the retry budget, got %d errors", got)
	}

	before := engine.sessionCount()
	engine.latestSession().ErrorCallback(ErrorCodeNoSpeech, "nothing heard")

	if !errors.Is(recorder.lastError(), ErrNoSpeechDetected) {
		t.Fatalf("expected %v once retries are spent, got %v", ErrNoSpeechDetected, recorder.lastError())
	}
	time.Sleep(10 * time.Millisecond)
	if got := engine.sessionCount(); got != before {
		t.Fatalf("expected no restart after surfacing no-speech, got %d sessions (had %d)", got, before)
	}
}

func TestSupervisorMaxNoSpeechRetriesOverride(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine, WithMaxNoSpeechRetries(1))

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	engine.session(0).ErrorCallback(ErrorCodeNoSpeech, "nothing heard")
	waitFor(t, time.Second, func() bool { return engine.sessionCount() == 2 })
	if got := recorder.errorCount(); got != 0 {
		t.Fatalf("expected a silent restart within the override, got %d errors", got)
	}

	// The profile would allow more retries, but the override caps them at 1.
	engine.session(1).ErrorCallback(ErrorCodeNoSpeech, "nothing heard")
	if !errors.Is(recorder.lastError(), ErrNoSpeechDetected) {
		t.Fatalf("expected %v after the override is spent, got %v", ErrNoSpeechDetected, recorder.lastError())
	}
}

func TestSupervisorNetworkErrorRetriesOnce(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine)

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	engine.session(0).ErrorCallback(ErrorCodeNetwork, "socket closed")
	waitFor(t, time.Second, func() bool { return engine.sessionCount() == 2 })
	if !errors.Is(recorder.lastError(), ErrNetwork) {
		t.Fatalf("expected %v, got %v", ErrNetwork, recorder.lastError())
	}

	engine.session(1).ErrorCallback(ErrorCodeNetwork, "socket closed")
	time.Sleep(10 * time.Millisecond)
	if got := engine.sessionCount(); got != 2 {
		t.Fatalf("expected a single network retry, got %d sessions", got)
	}
}

func TestSupervisorPermissionDeniedIsTerminal(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine)

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	engine.session(0).ErrorCallback(ErrorCodeNotAllowed, "permission denied")

	if !errors.Is(recorder.lastError(), ErrPermissionDenied) {
		t.Fatalf("expected %v, got %v", ErrPermissionDenied, recorder.lastError())
	}
	if supervisor.Listening() {
		t.Fatal("expected supervisor to stop after permission denial")
	}
	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err == nil {
		t.Fatal("expected restart without reset to fail, got nil")
	}

	supervisor.Reset()
	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start after reset to succeed, got %v", err)
	}
	supervisor.Stop()
}

func TestSupervisorRecoveryExhausted(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine, WithMaxRestartAttempts(2))

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	for i := 0; i < 2; i++ {
		engine.session(i).EndedCallback()
		waitFor(t, time.Second, func() bool { return engine.sessionCount() == i+2 })
	}

	engine.latestSession().EndedCallback()

	if !errors.Is(recorder.lastError(), ErrRecoveryExhausted) {
		t.Fatalf("expected %v, got %v", ErrRecoveryExhausted, recorder.lastError())
	}
	if supervisor.Listening() {
		t.Fatal("expected supervisor to stay stopped after exhausting recovery")
	}
}

func TestSupervisorExitsFallbackAfterStableWindow(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine,
		WithAbortedErrorThreshold(1),
		WithRecoveryWindow(20*time.Millisecond),
	)

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	engine.session(0).ErrorCallback(ErrorCodeAborted, "engine gave up")
	waitFor(t, time.Second, func() bool { return engine.sessionCount() == 2 })
	if !supervisor.FallbackActive() {
		t.Fatal("expected fallback mode after abort")
	}

	engine.latestSession().ResultCallback("all good now", true)

	waitFor(t, time.Second, func() bool { return !supervisor.FallbackActive() })
	waitFor(t, time.Second, func() bool { return engine.sessionCount() == 3 })
	if restored := engine.latestSession(); !restored.Profile.Continuous {
		t.Fatalf("expected normal profile after recovery, got %+v", restored.Profile)
	}
	fallbackActive, notified := recorder.lastModeChange()
	if !notified || fallbackActive {
		t.Fatalf("expected mode change notification back to normal, got (%v, %v)", fallbackActive, notified)
	}
}

func TestSupervisorDropsStaleSessionCallbacks(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := newTestSupervisor(engine)

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	stale := engine.session(0)
	stale.ErrorCallback(ErrorCodeAborted, "engine gave up")
	waitFor(t, time.Second, func() bool { return engine.sessionCount() == 2 })

	stale.ResultCallback("ghost transcript", true)

	if got := recorder.transcriptCount(); got != 0 {
		t.Fatalf("expected stale session transcripts to be dropped, got %d", got)
	}
}

func TestSupervisorNoSpeechTimeoutRaisesError(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &callbackRecorder{}
	supervisor := NewSupervisor(engine,
		WithCooldownBase(time.Millisecond),
		WithNoSpeechRestartDelay(time.Millisecond),
		WithNoSpeechTimeout(10*time.Millisecond),
		WithWatchdogInterval(0),
	)

	if err := supervisor.Start(context.Background(), recorder.sessionCallbacks()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer supervisor.Stop()

	// The first silent timeouts restart within the retry budget.
	retries := NormalProfile().MaxNoSpeechRetries
	waitFor(t, time.Second, func() bool { return engine.sessionCount() > retries })
	waitFor(t, time.Second, func() bool { return errors.Is(recorder.lastError(), ErrNoSpeechDetected) })
}
