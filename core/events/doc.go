// Package events defines the typed conversation event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - conversation.*
//   - user_input.*
//   - turn_state.*
//   - interruption.*
//   - recognition.*
//   - assistant_speech.*
//
// conversation events
//
//   - ConversationStateUpdated (conversation.state_updated): a conversation
//     state transition was applied; carries the snapshot version so consumers
//     can fetch the matching snapshot level-triggered.
//
// user_input events
//
//   - UserSpeechStarted (user_input.speech_started): voice activity began.
//   - UserSpeechEnded (user_input.speech_ended): voice activity ended.
//   - UserTranscriptInterimUpdated (user_input.transcript_interim_updated):
//     mutable interim transcript snapshot.
//   - UserTranscriptFinal (user_input.transcript_final): terminal transcript
//     for the utterance.
//
// turn_state events
//
//   - UserTurnCompleted (turn_state.user_turn_completed): the user's pause
//     was confirmed with buffered speech; the floor is open.
//   - AssistantTurnCompleted (turn_state.assistant_turn_completed): the
//     assistant's pause was confirmed with buffered speech.
//
// interruption events
//
//   - InterruptionRecorded (interruption.recorded): one party started
//     speaking over the other; carries the interrupted party and any
//     captured in-flight sentence.
//   - InterruptionCooldownEnded (interruption.cooldown_ended): the
//     post-interruption debounce window elapsed.
//
// recognition events
//
//   - RecognitionErrorRaised (recognition.error_raised): the speech input
//     supervisor surfaced an engine error; Recoverable reports whether the
//     supervisor keeps retrying on its own.
//   - RecognitionModeChanged (recognition.mode_changed): the supervisor
//     switched between the normal and fallback recognition profiles.
//
// assistant_speech events
//
//   - AssistantSpeechStarted (assistant_speech.started): playback of a
//     queued reply began.
//   - AssistantSentenceStarted (assistant_speech.sentence_started): playback
//     of one sentence began.
//   - AssistantSentenceEnded (assistant_speech.sentence_ended): playback of
//     one sentence completed.
//   - AssistantSpeechEnded (assistant_speech.ended): playback of the queued
//     reply completed; carries the full spoken text.
//   - AssistantSpeechInterrupted (assistant_speech.interrupted): playback
//     was cut off; carries the sentence that was in flight.
package events
