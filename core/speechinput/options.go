package speechinput

import (
	"context"

	"github.com/koscakluka/duplex-core/core/audio"
)

// Engine is the continuous-recognition boundary. Implementations deliver
// results and lifecycle signals through the callbacks configured at Listen
// time and stop delivering them after Stop returns.
//
// Callers must not assume every Listen produces a StartedCallback, nor that
// Stop is followed by an EndedCallback; flaky engines drop both.
type Engine interface {
	Listen(ctx context.Context, opts ...RecognitionOption) error
	Stop() error
}

// AudioSink is an optional engine capability for push-style engines that
// accept raw capture frames.
type AudioSink interface {
	SendAudio(audio []byte) error
}

type RecognitionOptions struct {
	Profile      Profile
	EncodingInfo audio.EncodingInfo

	// ResultCallback is called for every transcript the engine produces.
	// isFinal distinguishes terminal utterance transcripts from interim ones.
	ResultCallback func(transcript string, isFinal bool)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	StartedCallback func()
	EndedCallback   func()
	ErrorCallback   func(code ErrorCode, message string)
}

type RecognitionOption func(*RecognitionOptions)

func WithProfile(profile Profile) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.Profile = profile
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) RecognitionOption {
	return func(o *RecognitionOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}

func WithResultCallback(callback func(transcript string, isFinal bool)) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.ResultCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithStartedCallback(callback func()) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.StartedCallback = callback
	}
}

func WithEndedCallback(callback func()) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.EndedCallback = callback
	}
}

func WithErrorCallback(callback func(code ErrorCode, message string)) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.ErrorCallback = callback
	}
}
