// Package portaudio provides an alternative microphone capture client for
// systems where miniaudio is unavailable.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/duplex-core/core/audio"
)

type Client struct {
	bufferSize int
	stream     *portaudio.Stream
	in         []int16

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.DefaultSampleRate, bufferSize, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
	}, nil
}

// StartCapture begins reading microphone frames into onAudio until
// StopCapture is called or ctx is cancelled.
func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return fmt.Errorf("capture already running")
	}

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stopped = make(chan struct{})

	go func(stopped chan struct{}) {
		defer close(stopped)
		for {
			select {
			case <-captureCtx.Done():
				return
			default:
				if err := c.stream.Read(); err != nil {
					continue
				}

				audioBuffer := bytes.Buffer{}
				_ = binary.Write(&audioBuffer, binary.LittleEndian, c.in)
				onAudio(audioBuffer.Bytes())
			}
		}
	}(c.stopped)

	return nil
}

func (c *Client) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return nil
	}

	c.cancel()
	<-c.stopped
	c.cancel = nil
	c.stopped = nil

	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop portaudio stream: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	_ = c.StopCapture()
	c.stream.Close()
	portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.FormatLinear16,
	}
}
