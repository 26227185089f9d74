package speechinput

import "time"

// Profile is an immutable recognition configuration. Switching profiles
// produces a new value; nothing mutates a profile in place.
type Profile struct {
	// Continuous keeps the engine session open across utterances instead of
	// closing after the first final transcript.
	Continuous bool
	// InterimResults requests mutable partial transcripts while the user is
	// still speaking.
	InterimResults bool
	// PauseThreshold is how long the engine waits in silence before treating
	// an utterance as finished.
	PauseThreshold time.Duration
	// MaxNoSpeechRetries bounds silent restarts after no-speech errors.
	MaxNoSpeechRetries int
	// NoiseFilter and SpeechEnhancer toggle the capture pipeline's optional
	// processing stages.
	NoiseFilter    bool
	SpeechEnhancer bool
}

// NormalProfile is the responsive default: continuous recognition with
// interim results and the full processing pipeline.
func NormalProfile() Profile {
	return Profile{
		Continuous:         true,
		InterimResults:     true,
		PauseThreshold:     500 * time.Millisecond,
		MaxNoSpeechRetries: 3,
		NoiseFilter:        true,
		SpeechEnhancer:     true,
	}
}

// FallbackProfile trades responsiveness for stability: single-utterance
// sessions, no interim results, a longer pause threshold, fewer retries and
// the processing stages disabled.
func FallbackProfile() Profile {
	return Profile{
		Continuous:         false,
		InterimResults:     false,
		PauseThreshold:     1500 * time.Millisecond,
		MaxNoSpeechRetries: 1,
		NoiseFilter:        false,
		SpeechEnhancer:     false,
	}
}
