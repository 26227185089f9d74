package events

// KindAssistantSpeechStarted identifies the start of assistant playback.
const KindAssistantSpeechStarted Kind = "assistant_speech.started"

// AssistantSpeechStarted marks the start of playback for a queued reply.
type AssistantSpeechStarted struct{ Base }

// NewAssistantSpeechStarted creates an assistant speech started event.
func NewAssistantSpeechStarted() AssistantSpeechStarted {
	return AssistantSpeechStarted{Base: NewBase(KindAssistantSpeechStarted)}
}

// KindAssistantSentenceStarted identifies the start of one sentence's
// playback.
const KindAssistantSentenceStarted Kind = "assistant_speech.sentence_started"

// AssistantSentenceStarted marks the start of one sentence's playback.
type AssistantSentenceStarted struct {
	Base
	Sentence string
	Index    int
}

// NewAssistantSentenceStarted creates a sentence started event.
func NewAssistantSentenceStarted(sentence string, index int) AssistantSentenceStarted {
	return AssistantSentenceStarted{Base: NewBase(KindAssistantSentenceStarted), Sentence: sentence, Index: index}
}

// KindAssistantSentenceEnded identifies the completion of one sentence's
// playback.
const KindAssistantSentenceEnded Kind = "assistant_speech.sentence_ended"

// AssistantSentenceEnded marks the completion of one sentence's playback.
type AssistantSentenceEnded struct {
	Base
	Sentence string
	Index    int
}

// NewAssistantSentenceEnded creates a sentence ended event.
func NewAssistantSentenceEnded(sentence string, index int) AssistantSentenceEnded {
	return AssistantSentenceEnded{Base: NewBase(KindAssistantSentenceEnded), Sentence: sentence, Index: index}
}

// KindAssistantSpeechEnded identifies the completion of a queued reply's
// playback.
const KindAssistantSpeechEnded Kind = "assistant_speech.ended"

// AssistantSpeechEnded marks the completion of a queued reply's playback.
type AssistantSpeechEnded struct {
	Base
	Transcript string
}

// NewAssistantSpeechEnded creates an assistant speech ended event.
func NewAssistantSpeechEnded(transcript string) AssistantSpeechEnded {
	return AssistantSpeechEnded{Base: NewBase(KindAssistantSpeechEnded), Transcript: transcript}
}

// KindAssistantSpeechInterrupted identifies playback cut off mid-utterance.
const KindAssistantSpeechInterrupted Kind = "assistant_speech.interrupted"

// AssistantSpeechInterrupted marks playback cut off mid-utterance. Sentence
// holds the sentence that was in flight when playback stopped.
type AssistantSpeechInterrupted struct {
	Base
	Sentence string
}

// NewAssistantSpeechInterrupted creates an assistant speech interrupted
// event.
func NewAssistantSpeechInterrupted(sentence string) AssistantSpeechInterrupted {
	return AssistantSpeechInterrupted{Base: NewBase(KindAssistantSpeechInterrupted), Sentence: sentence}
}
