package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/duplex-core/core/audio"
)

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	leftoverAudio []byte
	marks         []playbackMark

	mu      sync.Mutex
	audioMu sync.Mutex
	marksMu sync.Mutex
}

// playbackMark is a position in the buffered audio whose callback fires once
// the device has played past it.
type playbackMark struct {
	position int
	callback func()
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.ClearBuffer()
	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = append(c.leftoverAudio, audio...)
	return nil
}

// ClearBuffer drops all buffered audio and pending marks; mark callbacks for
// the dropped audio never fire.
func (c *playbackClient) ClearBuffer() {
	c.audioMu.Lock()
	c.marksMu.Lock()
	defer c.audioMu.Unlock()
	defer c.marksMu.Unlock()
	c.leftoverAudio = make([]byte, 0)
	c.marks = nil
}

// Mark registers a callback for when playback reaches the current end of the
// buffered audio.
func (c *playbackClient) Mark(callback func()) {
	c.audioMu.Lock()
	position := len(c.leftoverAudio)
	c.audioMu.Unlock()

	c.marksMu.Lock()
	defer c.marksMu.Unlock()
	c.marks = append(c.marks, playbackMark{
		position: position,
		callback: callback,
	})
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	c.device.Uninit()
	c.device = nil

	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.audioMu.Lock()
		available := len(c.leftoverAudio)
		consumed := min(available, need)
		_ = copy(pOutput, c.leftoverAudio[:consumed])
		c.leftoverAudio = c.leftoverAudio[consumed:]
		c.audioMu.Unlock()

		c.processMarks(consumed, available)
	}
}

// processMarks fires callbacks for marks the device has played past. Marks
// at the very end of the buffer fire once the buffer fully drains.
func (c *playbackClient) processMarks(consumed, available int) {
	c.marksMu.Lock()
	passedMarks := 0
	for i := range c.marks {
		if c.marks[i].position > consumed || (c.marks[i].position == consumed && consumed < available) {
			c.marks[i].position -= consumed
		} else {
			passedMarks++
		}
	}
	toCall := append([]playbackMark(nil), c.marks[:passedMarks]...)
	c.marks = c.marks[passedMarks:]
	c.marksMu.Unlock()

	if len(toCall) > 0 {
		go func() {
			for _, mark := range toCall {
				mark.callback()
			}
		}()
	}
}
