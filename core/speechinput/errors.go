package speechinput

import "errors"

// ErrorCode classifies raw engine errors. The codes mirror what continuous
// recognition engines report; the supervisor maps them onto its retry,
// cooldown and fallback behavior.
type ErrorCode string

const (
	ErrorCodeNoSpeech     ErrorCode = "no-speech"
	ErrorCodeAborted      ErrorCode = "aborted"
	ErrorCodeNetwork      ErrorCode = "network"
	ErrorCodeNotAllowed   ErrorCode = "not-allowed"
	ErrorCodeAudioCapture ErrorCode = "audio-capture"
)

var (
	// ErrNoSpeechDetected is surfaced once the bounded no-speech retries are
	// spent. The caller decides whether to prompt the user.
	ErrNoSpeechDetected = errors.New("no speech detected")
	// ErrEngineAborted is surfaced informationally while the supervisor
	// restarts an aborting engine.
	ErrEngineAborted = errors.New("recognition engine aborted")
	// ErrNetwork is surfaced informationally; the supervisor retries once
	// after a short cooldown.
	ErrNetwork = errors.New("recognition network failure")
	// ErrPermissionDenied requires the user to grant microphone access; it is
	// never auto-retried.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrNoMicrophone requires the user to attach a working microphone; it is
	// never auto-retried.
	ErrNoMicrophone = errors.New("no microphone available")
	// ErrRecoveryExhausted is terminal: all auto-recovery budget is spent and
	// the supervisor stays stopped until Reset is called.
	ErrRecoveryExhausted = errors.New("recognition recovery exhausted")
)

// IsRecoverable reports whether the supervisor keeps retrying after
// surfacing err, so callers can treat it as informational.
func IsRecoverable(err error) bool {
	switch {
	case errors.Is(err, ErrEngineAborted), errors.Is(err, ErrNetwork):
		return true
	default:
		return false
	}
}

// UserFacingMessage renders err as brief, mode-specific guidance instead of
// a raw engine code.
func UserFacingMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoSpeechDetected):
		return "I didn't catch that. Could you say it again?"
	case errors.Is(err, ErrEngineAborted):
		return "Switching to a simpler listening mode."
	case errors.Is(err, ErrNetwork):
		return "Connection hiccup, retrying."
	case errors.Is(err, ErrPermissionDenied):
		return "Please allow microphone access to continue."
	case errors.Is(err, ErrNoMicrophone):
		return "Please check that a microphone is connected."
	case errors.Is(err, ErrRecoveryExhausted):
		return "Voice input stopped working. Restart listening to try again."
	default:
		return "Something went wrong with voice input."
	}
}
