package events

// KindRecognitionErrorRaised identifies a surfaced recognition error.
const KindRecognitionErrorRaised Kind = "recognition.error_raised"

// RecognitionErrorRaised marks a recognition error surfaced by the speech
// input supervisor. Recoverable reports whether the supervisor keeps
// retrying on its own; non-recoverable errors require caller action.
type RecognitionErrorRaised struct {
	Base
	Code        string
	Message     string
	Recoverable bool
}

// NewRecognitionErrorRaised creates a recognition error event.
func NewRecognitionErrorRaised(code, message string, recoverable bool) RecognitionErrorRaised {
	return RecognitionErrorRaised{
		Base:        NewBase(KindRecognitionErrorRaised),
		Code:        code,
		Message:     message,
		Recoverable: recoverable,
	}
}

// KindRecognitionModeChanged identifies a recognition profile switch.
const KindRecognitionModeChanged Kind = "recognition.mode_changed"

// RecognitionModeChanged marks a switch between the normal and fallback
// recognition profiles.
type RecognitionModeChanged struct {
	Base
	FallbackActive bool
}

// NewRecognitionModeChanged creates a recognition mode changed event.
func NewRecognitionModeChanged(fallbackActive bool) RecognitionModeChanged {
	return RecognitionModeChanged{Base: NewBase(KindRecognitionModeChanged), FallbackActive: fallbackActive}
}
