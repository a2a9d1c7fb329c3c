package speech

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestToneProducesValidWAV(t *testing.T) {
	d := 100 * time.Millisecond
	wav := Tone(440, d)

	wantSamples := int(float64(SampleRate) * d.Seconds())
	if len(wav) != 44+wantSamples*2 {
		t.Fatalf("len = %d, want %d", len(wav), 44+wantSamples*2)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatal("malformed RIFF header")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != uint32(SampleRate) {
		t.Fatalf("sample rate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(wantSamples*2) {
		t.Fatalf("data length = %d, want %d", got, wantSamples*2)
	}

	// Mid-tone samples carry signal; the very first sample is faded to
	// silence.
	signal := false
	for i := wantSamples / 2; i < wantSamples/2+50; i++ {
		v := int16(binary.LittleEndian.Uint16(wav[44+i*2 : 46+i*2]))
		if v != 0 {
			signal = true
			break
		}
	}
	if !signal {
		t.Fatal("expected nonzero samples mid-tone")
	}
	first := int16(binary.LittleEndian.Uint16(wav[44:46]))
	if first != 0 {
		t.Fatalf("expected faded-in first sample, got %d", first)
	}
}
