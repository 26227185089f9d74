package speechoutput

// speakCallbacks are the per-utterance lifecycle callbacks. They fire from
// the queue's drain goroutine, so they must not block for long.
type speakCallbacks struct {
	onStarted         func()
	onEnded           func(transcript string)
	onSentenceStarted func(sentence string, index int)
	onSentenceEnded   func(sentence string, index int)
	onInterrupted     func(sentence string)
	onError           func(err error)
}

type SpeakOption func(*speakCallbacks)

// WithStartedCallback fires when the utterance's first sentence is about to
// be synthesized.
func WithStartedCallback(callback func()) SpeakOption {
	return func(c *speakCallbacks) { c.onStarted = callback }
}

// WithEndedCallback fires after the last sentence finished playing. It does
// not fire for interrupted or aborted utterances.
func WithEndedCallback(callback func(transcript string)) SpeakOption {
	return func(c *speakCallbacks) { c.onEnded = callback }
}

func WithSentenceStartedCallback(callback func(sentence string, index int)) SpeakOption {
	return func(c *speakCallbacks) { c.onSentenceStarted = callback }
}

func WithSentenceEndedCallback(callback func(sentence string, index int)) SpeakOption {
	return func(c *speakCallbacks) { c.onSentenceEnded = callback }
}

// WithInterruptedCallback fires when the utterance is cut off, carrying the
// sentence that was playing at the time (empty between sentences).
func WithInterruptedCallback(callback func(sentence string)) SpeakOption {
	return func(c *speakCallbacks) { c.onInterrupted = callback }
}

// WithErrorCallback fires when synthesis or playback fails; the utterance is
// abandoned but the queue keeps draining.
func WithErrorCallback(callback func(err error)) SpeakOption {
	return func(c *speakCallbacks) { c.onError = callback }
}
