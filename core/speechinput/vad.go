package speechinput

import (
	"encoding/binary"
	"math"
)

const (
	defaultVoiceActivityThreshold = 0.015
	// silenceReleaseRatio keeps the release threshold below the attack
	// threshold so the detector doesn't flicker at the boundary.
	silenceReleaseRatio = 0.55

	vadAttackFrames  = 3
	vadReleaseFrames = 25
)

// energyVAD is a pure-Go voice activity detector over linear16 capture
// frames, based on RMS energy with hysteresis. It backs speech started/ended
// edges for profiles where the engine provides no VAD events of its own.
type energyVAD struct {
	attackThreshold  float64
	releaseThreshold float64

	inSpeech     bool
	speechCount  int
	silenceCount int
}

func newEnergyVAD(threshold float64) *energyVAD {
	if threshold <= 0 {
		threshold = defaultVoiceActivityThreshold
	}

	return &energyVAD{
		attackThreshold:  threshold,
		releaseThreshold: threshold * silenceReleaseRatio,
	}
}

// Push feeds one capture frame and reports whether the detector considers
// speech active after the frame.
func (v *energyVAD) Push(frame []byte) bool {
	level := rmsLinear16(frame)

	if v.inSpeech {
		if level < v.releaseThreshold {
			v.silenceCount++
			v.speechCount = 0
			if v.silenceCount >= vadReleaseFrames {
				v.inSpeech = false
				v.silenceCount = 0
			}
		} else {
			v.silenceCount = 0
		}
	} else {
		if level >= v.attackThreshold {
			v.speechCount++
			v.silenceCount = 0
			if v.speechCount >= vadAttackFrames {
				v.inSpeech = true
				v.speechCount = 0
			}
		} else {
			v.speechCount = 0
		}
	}

	return v.inSpeech
}

func (v *energyVAD) Reset() {
	v.inSpeech = false
	v.speechCount = 0
	v.silenceCount = 0
}

// rmsLinear16 computes normalized RMS energy of a little-endian linear16
// frame, in [0, 1].
func rmsLinear16(frame []byte) float64 {
	samples := len(frame) / 2
	if samples == 0 {
		return 0
	}

	sum := 0.0
	for i := 0; i < samples*2; i += 2 {
		sample := int16(binary.LittleEndian.Uint16(frame[i:]))
		normalized := float64(sample) / math.MaxInt16
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(samples))
}
