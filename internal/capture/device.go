// Package capture records microphone audio through miniaudio (malgo).
// One recording session owns the device at a time; the orchestrator is
// responsible for never opening two at once.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/hammamikhairi/aide/internal/domain"
	"github.com/hammamikhairi/aide/internal/logger"
)

const (
	sampleRate = 16000
	channels   = 1
	bitDepth   = 16
)

// Device opens the default capture device on demand. It implements
// domain.CaptureDevice.
type Device struct {
	log *logger.Logger
}

// NewDevice creates a capture device backed by the system microphone.
func NewDevice(log *logger.Logger) *Device {
	return &Device{log: log}
}

// EnsurePermission opens and immediately closes the microphone to
// verify access. A refusal surfaces as domain.ErrPermissionDenied.
func (d *Device) EnsurePermission(ctx context.Context) error {
	mCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(_ string) {})
	if err != nil {
		return fmt.Errorf("%w: audio context: %v", domain.ErrPermissionDenied, err)
	}
	defer func() { _ = mCtx.Uninit(); mCtx.Free() }()

	devCfg := deviceConfig()
	device, err := malgo.InitDevice(mCtx.Context, devCfg, malgo.DeviceCallbacks{
		Data: func(_, _ []byte, _ uint32) {},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	}
	device.Uninit()
	d.log.Debug("capture: microphone access verified")
	return nil
}

// Start opens the microphone and begins buffering PCM until the
// session is stopped or aborted.
func (d *Device) Start(ctx context.Context) (domain.RecordingSession, error) {
	mCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(_ string) {})
	if err != nil {
		return nil, fmt.Errorf("%w: audio context: %v", domain.ErrCaptureFailed, err)
	}

	s := &session{mCtx: mCtx, log: d.log}

	devCfg := deviceConfig()
	device, err := malgo.InitDevice(mCtx.Context, devCfg, malgo.DeviceCallbacks{
		Data: func(_ []byte, raw []byte, _ uint32) {
			if len(raw) == 0 {
				return
			}
			s.mu.Lock()
			if !s.closed {
				s.pcm = append(s.pcm, raw...)
			}
			s.mu.Unlock()
		},
	})
	if err != nil {
		_ = mCtx.Uninit()
		mCtx.Free()
		return nil, fmt.Errorf("%w: %v", domain.ErrCaptureFailed, err)
	}
	s.device = device

	if err := device.Start(); err != nil {
		s.teardown()
		return nil, fmt.Errorf("%w: %v", domain.ErrCaptureFailed, err)
	}
	d.log.Debug("capture: session started (rate=%d)", sampleRate)
	return s, nil
}

func deviceConfig() malgo.DeviceConfig {
	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = sampleRate
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = channels
	devCfg.Alsa.NoMMap = 1
	return devCfg
}

// session is one live recording. Stop returns the buffered audio as a
// WAV clip; Abort discards it.
type session struct {
	mCtx   *malgo.AllocatedContext
	device *malgo.Device
	log    *logger.Logger

	mu     sync.Mutex
	pcm    []byte
	closed bool
}

// Stop ends the recording and returns the captured clip. A session
// with no samples yields an empty clip, not an error.
func (s *session) Stop() (*domain.AudioClip, error) {
	pcm := s.teardown()
	if len(pcm) == 0 {
		return &domain.AudioClip{}, nil
	}
	samples := len(pcm) / (bitDepth / 8)
	clip := &domain.AudioClip{
		WAV:      wrapWAV(pcm),
		Duration: time.Duration(samples) * time.Second / sampleRate,
	}
	s.log.Debug("capture: session stopped (%.1fs)", clip.Duration.Seconds())
	return clip, nil
}

// Abort ends the recording and discards the audio.
func (s *session) Abort() {
	s.teardown()
	s.log.Debug("capture: session aborted")
}

// teardown closes the device once and returns the buffered PCM.
func (s *session) teardown() []byte {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pcm := s.pcm
	s.mu.Unlock()

	_ = s.device.Stop()
	s.device.Uninit()
	_ = s.mCtx.Uninit()
	s.mCtx.Free()
	return pcm
}
