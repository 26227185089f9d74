package speechinput

import (
	"context"
	"sync"
	"testing"

	"github.com/koscakluka/duplex-core/core/audio"
)

type fakeCaptureClient struct {
	mu      sync.Mutex
	onAudio func(audio []byte)
	started int
	stopped int
}

func (c *fakeCaptureClient) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAudio = onAudio
	c.started++
	return nil
}

func (c *fakeCaptureClient) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
	return nil
}

func (c *fakeCaptureClient) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (c *fakeCaptureClient) emit(frame []byte) {
	c.mu.Lock()
	onAudio := c.onAudio
	c.mu.Unlock()
	onAudio(frame)
}

type countingProcessor struct{ applied int }

func (p *countingProcessor) Process(frame []byte) []byte {
	p.applied++
	return frame
}

func TestPipelineExclusiveHold(t *testing.T) {
	client := &fakeCaptureClient{}
	pipeline := NewPipeline(client)

	if err := pipeline.Start(context.Background(), NormalProfile(), pipelineCallbacks{}); err != nil {
		t.Fatalf("expected first start to succeed, got %v", err)
	}
	if err := pipeline.Start(context.Background(), NormalProfile(), pipelineCallbacks{}); err == nil {
		t.Fatal("expected second start to fail while held")
	}

	if err := pipeline.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	if err := pipeline.Start(context.Background(), FallbackProfile(), pipelineCallbacks{}); err != nil {
		t.Fatalf("expected restart after stop to succeed, got %v", err)
	}
	_ = pipeline.Stop()

	if client.started != 2 || client.stopped != 2 {
		t.Fatalf("expected 2 starts and 2 stops, got %d and %d", client.started, client.stopped)
	}
}

func TestPipelineAppliesProcessorsPerProfile(t *testing.T) {
	client := &fakeCaptureClient{}
	filter := &countingProcessor{}
	pipeline := NewPipeline(client, WithNoiseFilter(filter))

	frame := linear16Frame(0.2, 160)

	if err := pipeline.Start(context.Background(), NormalProfile(), pipelineCallbacks{}); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	client.emit(frame)
	_ = pipeline.Stop()

	if filter.applied != 1 {
		t.Fatalf("expected noise filter to run once, got %d", filter.applied)
	}

	if err := pipeline.Start(context.Background(), FallbackProfile(), pipelineCallbacks{}); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	client.emit(frame)
	_ = pipeline.Stop()

	if filter.applied != 1 {
		t.Fatalf("expected noise filter to be skipped in fallback profile, got %d runs", filter.applied)
	}
}

func TestPipelineLocalVADEdges(t *testing.T) {
	client := &fakeCaptureClient{}
	pipeline := NewPipeline(client, WithVoiceActivityThreshold(0.1))

	var mu sync.Mutex
	var started, ended int
	callbacks := pipelineCallbacks{
		onSpeechStarted: func() { mu.Lock(); started++; mu.Unlock() },
		onSpeechEnded:   func() { mu.Lock(); ended++; mu.Unlock() },
	}

	if err := pipeline.Start(context.Background(), FallbackProfile(), callbacks); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer pipeline.Stop()

	loud := linear16Frame(0.5, 160)
	quiet := linear16Frame(0.001, 160)

	for i := 0; i < vadAttackFrames; i++ {
		client.emit(loud)
	}
	for i := 0; i < vadReleaseFrames; i++ {
		client.emit(quiet)
	}

	mu.Lock()
	defer mu.Unlock()
	if started != 1 || ended != 1 {
		t.Fatalf("expected one speech started and one ended edge, got %d and %d", started, ended)
	}
}
