package conversation

import "github.com/koscakluka/duplex-core/core/events"

type eventEmitter func(events.Event)

// newCallbackEventEmitter translates typed events into the plain callbacks
// configured on the manager.
func newCallbackEventEmitter(callbacks observeCallbacks) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.UserSpeechStarted:
			if callbacks.onSpeakingStateChanged != nil {
				callbacks.onSpeakingStateChanged(true)
			}
		case events.UserSpeechEnded:
			if callbacks.onSpeakingStateChanged != nil {
				callbacks.onSpeakingStateChanged(false)
			}
		case events.UserTranscriptInterimUpdated:
			if callbacks.onInterimTranscription != nil {
				callbacks.onInterimTranscription(typedEvent.Transcript)
			}
		case events.UserTranscriptFinal:
			if callbacks.onTranscription != nil {
				callbacks.onTranscription(typedEvent.Transcript)
			}
		case events.UserTurnCompleted:
			if callbacks.onUserTurnComplete != nil {
				callbacks.onUserTurnComplete(typedEvent.Transcript)
			}
		case events.AssistantTurnCompleted:
			if callbacks.onAssistantTurnComplete != nil {
				callbacks.onAssistantTurnComplete(typedEvent.Speech)
			}
		case events.InterruptionRecorded:
			if callbacks.onInterruption != nil {
				callbacks.onInterruption(typedEvent.CapturedSpeech)
			}
		case events.RecognitionModeChanged:
			if callbacks.onFallbackModeChanged != nil {
				callbacks.onFallbackModeChanged(typedEvent.FallbackActive)
			}
		}
	}
}
