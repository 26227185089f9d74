// Package miniaudio provides microphone capture and speaker playback on top
// of the malgo miniaudio bindings.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/duplex-core/core/audio"
)

// Client owns the miniaudio context plus one capture and one playback
// device. Capture satisfies the recognition pipeline's capture boundary;
// playback satisfies the speech queue's player boundary.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
	}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

// Play queues audio on the playback device and blocks until the device has
// drained it or ctx is cancelled. Cancellation clears the device buffer so
// playback cuts off immediately.
func (c *Client) Play(ctx context.Context, audioData []byte) error {
	if err := c.playbackClient.SendAudio(audioData); err != nil {
		return fmt.Errorf("failed to queue audio for playback: %w", err)
	}

	done := make(chan struct{})
	c.playbackClient.Mark(func() { close(done) })

	select {
	case <-ctx.Done():
		c.playbackClient.ClearBuffer()
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.FormatLinear16,
	}
}
