package events

import "testing"

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "conversation state updated", event: NewConversationStateUpdated(1), expected: KindConversationStateUpdated},
		{name: "user speech started", event: NewUserSpeechStarted(), expected: KindUserSpeechStarted},
		{name: "user speech ended", event: NewUserSpeechEnded(), expected: KindUserSpeechEnded},
		{name: "user interim updated", event: NewUserTranscriptInterimUpdated("text"), expected: KindUserTranscriptInterimUpdated},
		{name: "user transcript final", event: NewUserTranscriptFinal("text"), expected: KindUserTranscriptFinal},
		{name: "user turn completed", event: NewUserTurnCompleted("text"), expected: KindUserTurnCompleted},
		{name: "assistant turn completed", event: NewAssistantTurnCompleted("text"), expected: KindAssistantTurnCompleted},
		{name: "interruption recorded", event: NewInterruptionRecorded("assistant", "sentence"), expected: KindInterruptionRecorded},
		{name: "interruption cooldown ended", event: NewInterruptionCooldownEnded(), expected: KindInterruptionCooldownEnded},
		{name: "recognition error raised", event: NewRecognitionErrorRaised("aborted", "engine aborted", true), expected: KindRecognitionErrorRaised},
		{name: "recognition mode changed", event: NewRecognitionModeChanged(true), expected: KindRecognitionModeChanged},
		{name: "assistant speech started", event: NewAssistantSpeechStarted(), expected: KindAssistantSpeechStarted},
		{name: "assistant sentence started", event: NewAssistantSentenceStarted("sentence", 0), expected: KindAssistantSentenceStarted},
		{name: "assistant sentence ended", event: NewAssistantSentenceEnded("sentence", 0), expected: KindAssistantSentenceEnded},
		{name: "assistant speech ended", event: NewAssistantSpeechEnded("text"), expected: KindAssistantSpeechEnded},
		{name: "assistant speech interrupted", event: NewAssistantSpeechInterrupted("sentence"), expected: KindAssistantSpeechInterrupted},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestTimestampsAreSet(t *testing.T) {
	event := NewUserSpeechStarted()
	if event.Timestamp().IsZero() {
		t.Fatalf("expected event timestamp to be set")
	}
}
