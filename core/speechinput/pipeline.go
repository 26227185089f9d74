package speechinput

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/duplex-core/core/audio"
)

// CaptureClient is the microphone boundary consumed by the pipeline.
type CaptureClient interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() audio.EncodingInfo
}

// FrameProcessor is an optional processing stage (noise filter, speech
// enhancer) applied to capture frames before they reach the engine. The
// actual signal processing lives behind this boundary.
type FrameProcessor interface {
	Process(frame []byte) []byte
}

type pipelineCallbacks struct {
	onAudio         func(audio []byte)
	onSpeechStarted func()
	onSpeechEnded   func()
}

// Pipeline wraps the singleton microphone resource for one session: the
// capture client, the optional processing stages and a local energy VAD.
//
// Exactly one holder may run the pipeline at a time; switching recognition
// profiles must Stop and re-Start it rather than share it across two engine
// sessions.
type Pipeline struct {
	mu sync.Mutex

	client         CaptureClient
	noiseFilter    FrameProcessor
	speechEnhancer FrameProcessor
	vad            *energyVAD

	profile   Profile
	callbacks pipelineCallbacks

	running bool
}

type PipelineOption func(*Pipeline)

// WithNoiseFilter installs the noise filter stage. It only runs for profiles
// that enable it.
func WithNoiseFilter(processor FrameProcessor) PipelineOption {
	return func(p *Pipeline) { p.noiseFilter = processor }
}

// WithSpeechEnhancer installs the speech enhancer stage. It only runs for
// profiles that enable it.
func WithSpeechEnhancer(processor FrameProcessor) PipelineOption {
	return func(p *Pipeline) { p.speechEnhancer = processor }
}

// WithVoiceActivityThreshold tunes the local VAD's attack threshold.
func WithVoiceActivityThreshold(threshold float64) PipelineOption {
	return func(p *Pipeline) { p.vad = newEnergyVAD(threshold) }
}

func NewPipeline(client CaptureClient, opts ...PipelineOption) *Pipeline {
	pipeline := &Pipeline{
		client: client,
		vad:    newEnergyVAD(defaultVoiceActivityThreshold),
	}

	for _, opt := range opts {
		opt(pipeline)
	}

	return pipeline
}

func (p *Pipeline) EncodingInfo() audio.EncodingInfo {
	if p == nil || p.client == nil {
		return audio.GetDefaultEncodingInfo()
	}

	return p.client.EncodingInfo()
}

// Start acquires the microphone and begins forwarding processed frames.
// Speech started/ended edges come from the local VAD only when the profile
// has no engine VAD (non-continuous or no interim results).
func (p *Pipeline) Start(ctx context.Context, profile Profile, callbacks pipelineCallbacks) error {
	if p == nil || p.client == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("capture pipeline already held by an active session")
	}

	p.profile = profile
	p.callbacks = callbacks
	p.vad.Reset()

	if err := p.client.StartCapture(ctx, p.processFrame); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	p.running = true
	return nil
}

// Stop releases the microphone. Stopping an idle pipeline is a no-op.
func (p *Pipeline) Stop() error {
	if p == nil || p.client == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	p.running = false
	p.callbacks = pipelineCallbacks{}
	if err := p.client.StopCapture(); err != nil {
		return fmt.Errorf("failed to stop capture: %w", err)
	}

	return nil
}

func (p *Pipeline) processFrame(frame []byte) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}

	profile := p.profile
	callbacks := p.callbacks

	if profile.NoiseFilter && p.noiseFilter != nil {
		frame = p.noiseFilter.Process(frame)
	}
	if profile.SpeechEnhancer && p.speechEnhancer != nil {
		frame = p.speechEnhancer.Process(frame)
	}

	var edge func()
	if p.useLocalVAD(profile) {
		wasSpeaking := p.vad.inSpeech
		speaking := p.vad.Push(frame)
		if speaking && !wasSpeaking {
			edge = callbacks.onSpeechStarted
		} else if !speaking && wasSpeaking {
			edge = callbacks.onSpeechEnded
		}
	}
	p.mu.Unlock()

	if edge != nil {
		edge()
	}
	if callbacks.onAudio != nil {
		callbacks.onAudio(frame)
	}
}

// useLocalVAD reports whether voice activity edges must be synthesized
// locally because the profile gives the engine no way to report them.
func (p *Pipeline) useLocalVAD(profile Profile) bool {
	return !profile.Continuous || !profile.InterimResults
}
