package events

// KindInterruptionRecorded identifies a recorded interruption.
const KindInterruptionRecorded Kind = "interruption.recorded"

// InterruptionRecorded marks one party starting to speak while the other was
// mid-utterance. CapturedSpeech holds the interrupted party's in-flight
// sentence, if any; replaying it is left to the application.
type InterruptionRecorded struct {
	Base
	Interrupted    string
	CapturedSpeech string
}

// NewInterruptionRecorded creates an interruption recorded event.
func NewInterruptionRecorded(interrupted, capturedSpeech string) InterruptionRecorded {
	return InterruptionRecorded{
		Base:           NewBase(KindInterruptionRecorded),
		Interrupted:    interrupted,
		CapturedSpeech: capturedSpeech,
	}
}

// KindInterruptionCooldownEnded identifies the end of the post-interruption
// debounce window.
const KindInterruptionCooldownEnded Kind = "interruption.cooldown_ended"

// InterruptionCooldownEnded marks the end of the post-interruption debounce
// window.
type InterruptionCooldownEnded struct{ Base }

// NewInterruptionCooldownEnded creates an interruption cooldown ended event.
func NewInterruptionCooldownEnded() InterruptionCooldownEnded {
	return InterruptionCooldownEnded{Base: NewBase(KindInterruptionCooldownEnded)}
}
