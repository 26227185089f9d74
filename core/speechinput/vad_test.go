package speechinput

import (
	"encoding/binary"
	"math"
	"testing"
)

func linear16Frame(amplitude float64, samples int) []byte {
	frame := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		value := int16(amplitude * math.MaxInt16)
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(value))
	}
	return frame
}

func TestEnergyVADDetectsSpeechEdges(t *testing.T) {
	vad := newEnergyVAD(0.1)

	loud := linear16Frame(0.5, 160)
	quiet := linear16Frame(0.001, 160)

	for i := 0; i < vadAttackFrames-1; i++ {
		if vad.Push(loud) {
			t.Fatalf("expected no speech before %d loud frames", vadAttackFrames)
		}
	}
	if !vad.Push(loud) {
		t.Fatal("expected speech after sustained loud frames")
	}

	for i := 0; i < vadReleaseFrames-1; i++ {
		if !vad.Push(quiet) {
			t.Fatalf("expected speech to hold before %d quiet frames", vadReleaseFrames)
		}
	}
	if vad.Push(quiet) {
		t.Fatal("expected speech to end after sustained quiet frames")
	}
}

func TestEnergyVADIgnoresShortBursts(t *testing.T) {
	vad := newEnergyVAD(0.1)

	loud := linear16Frame(0.5, 160)
	quiet := linear16Frame(0.001, 160)

	for i := 0; i < 10; i++ {
		vad.Push(loud)
		if vad.Push(quiet) {
			t.Fatal("expected single-frame bursts to be ignored")
		}
	}
}

func TestEnergyVADHysteresisHoldsThroughDips(t *testing.T) {
	vad := newEnergyVAD(0.1)

	loud := linear16Frame(0.5, 160)
	// Above the release threshold but below the attack threshold.
	dip := linear16Frame(0.07, 160)

	for i := 0; i < vadAttackFrames; i++ {
		vad.Push(loud)
	}
	for i := 0; i < vadReleaseFrames*2; i++ {
		if !vad.Push(dip) {
			t.Fatal("expected speech to hold through a shallow dip")
		}
	}
}

func TestRMSLinear16(t *testing.T) {
	if got := rmsLinear16(nil); got != 0 {
		t.Fatalf("expected 0 for empty frame, got %f", got)
	}

	got := rmsLinear16(linear16Frame(0.5, 160))
	if math.Abs(got-0.5) > 0.01 {
		t.Fatalf("expected rms near 0.5, got %f", got)
	}
}
