package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/aide/internal/logger"
)

// Player plays WAV audio through the system output via oto. One sound
// at a time: starting a new Play while another is active is the
// caller's responsibility to sequence (the Speaker does), and Stop
// interrupts whatever is playing.
type Player struct {
	ctx    *oto.Context
	log    *logger.Logger
	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewPlayer initializes the system audio output. Returns an error when
// no output device is available.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	log.Debug("player: initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play plays WAV data synchronously. Blocks until playback finishes or
// Stop is called.
func (p *Player) Play(wav []byte) error {
	pcm, err := pcmChunk(wav)
	if err != nil {
		return err
	}

	pl := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	if p.active != nil {
		// A new sound supersedes whatever was playing.
		p.active.Pause()
	}
	p.active = pl
	p.mu.Unlock()

	pl.Play()

	for pl.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	p.mu.Lock()
	if p.active == pl {
		p.active = nil
	}
	p.mu.Unlock()

	return pl.Close()
}

// Stop interrupts the currently playing audio, if any. Safe to call
// concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("player: interrupted")
	}
}

// pcmChunk walks the RIFF chunks and returns the raw PCM payload.
func pcmChunk(wav []byte) ([]byte, error) {
	if len(wav) < 44 {
		return nil, errors.New("wav data too short")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a valid WAV file")
	}

	pos := 12
	for pos+8 <= len(wav) {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))

		if id == "data" {
			start := pos + 8
			end := start + size
			if end > len(wav) {
				end = len(wav)
			}
			return wav[start:end], nil
		}

		pos += 8 + size
		if size%2 != 0 { // chunks are word-aligned
			pos++
		}
	}
	return nil, errors.New("data chunk not found in WAV")
}
