package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = FormatLinear16
)

type Format string

const (
	FormatMulaw    Format = "mulaw"
	FormatALaw     Format = "alaw"
	FormatLinear16 Format = "linear16"
)

func (f Format) Name() string { return string(f) }

func (f Format) ByteSize() int {
	switch f {
	case FormatMulaw, FormatALaw:
		return 1
	case FormatLinear16:
		return 2
	}
	return -1
}

type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: DefaultFormat}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case FormatALaw:
		return 0x55
	case FormatMulaw:
		return 0xFF
	case FormatLinear16:
		return 0
	}

	return 0
}

// Duration reports how long the given raw audio plays for under this encoding.
func (e EncodingInfo) Duration(audio []byte) time.Duration {
	if e.IsZero() || e.Format.ByteSize() <= 0 {
		return 0
	}

	samples := len(audio) / e.Format.ByteSize()
	return time.Duration(float64(samples) / float64(e.SampleRate) * float64(time.Second))
}

// Samples reports how many samples cover the given duration under this
// encoding.
func (e EncodingInfo) Samples(duration time.Duration) int {
	if e.IsZero() {
		return 0
	}

	return int(float64(duration) / float64(time.Second) * float64(e.SampleRate))
}
