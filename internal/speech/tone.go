package speech

import (
	"encoding/binary"
	"math"
	"time"
)

// Tone generates a mono 16-bit WAV sine tone at the player's sample
// rate. The alert channel uses it for ring and chime sounds so alerts
// work without bundled audio assets.
func Tone(freq float64, d time.Duration) []byte {
	n := int(float64(SampleRate) * d.Seconds())
	pcm := make([]byte, n*2)

	for i := 0; i < n; i++ {
		// Short fade at both ends to avoid clicks.
		amp := 0.6
		fade := SampleRate / 100 // 10 ms
		if i < fade {
			amp *= float64(i) / float64(fade)
		}
		if n-i < fade {
			amp *= float64(n-i) / float64(fade)
		}
		v := int16(amp * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(SampleRate)))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	return wrapWAV(pcm)
}

// wrapWAV prepends a canonical 44-byte RIFF header.
func wrapWAV(pcm []byte) []byte {
	const headerLen = 44
	byteRate := SampleRate * ChannelCount * BitDepth / 8
	blockAlign := ChannelCount * BitDepth / 8

	buf := make([]byte, headerLen+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(ChannelCount))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(BitDepth))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[headerLen:], pcm)
	return buf
}
