// Package wakeword provides an optional on-device acoustic wake
// trigger. A single ONNX scoring model runs over a sliding one-second
// audio window; frames below an energy floor never reach the model.
//
// The detector owns its own capture device, so the pipeline wires it
// in only when continuous transcription listening is turned off.
package wakeword

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/hammamikhairi/aide/internal/logger"
)

const (
	sampleRate    = 16000
	chunkSamples  = 1280 // 80 ms @ 16 kHz
	windowSamples = sampleRate // one second of scoring context
	audioQueueCap = 32
)

// Config holds the model paths and tuning knobs for a Detector.
type Config struct {
	// Model paths (required).
	WakeModel string // e.g. "models/hey_aide.onnx"
	OnnxLib   string // e.g. "bin/libonnxruntime.so"

	// Detection tuning.
	Threshold   float64       // score >= threshold triggers (default 0.5)
	Cooldown    time.Duration // min time between triggers (default 2 s)
	EnergyFloor float64       // RMS below this skips scoring (default 0.01)
}

func (c *Config) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = 0.5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 2 * time.Second
	}
	if c.EnergyFloor <= 0 {
		c.EnergyFloor = 0.01
	}
}

// Detector listens continuously and fires OnDetected when the wake
// model scores above the threshold.
type Detector struct {
	cfg Config
	log *logger.Logger

	// OnDetected fires from the processing goroutine. Set before Start.
	OnDetected func()

	mu         sync.Mutex
	pauseDepth int
	device     *malgo.Device
}

// New creates a Detector. Call Start to begin listening.
func New(cfg Config, log *logger.Logger) *Detector {
	cfg.defaults()
	return &Detector{cfg: cfg, log: log}
}

// Pause releases the microphone: the capture device is halted so
// another consumer can record, and scoring stops. Pauses nest; the
// device restarts when the matching Resume lands. Safe before Start.
func (d *Detector) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauseDepth++
	if d.pauseDepth == 1 && d.device != nil {
		if err := d.device.Stop(); err != nil {
			d.log.Warn("wakeword: device stop failed: %v", err)
		}
	}
}

// Resume restarts the capture device and re-enables scoring once every
// outstanding Pause has been matched.
func (d *Detector) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pauseDepth == 0 {
		return
	}
	d.pauseDepth--
	if d.pauseDepth == 0 && d.device != nil {
		if err := d.device.Start(); err != nil {
			d.log.Error("wakeword: device restart failed: %v", err)
		}
	}
}

func (d *Detector) isPaused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pauseDepth > 0
}

// Start initialises the model and the capture device, then scores
// audio in a blocking loop until ctx is cancelled. Run in its own
// goroutine.
func (d *Detector) Start(ctx context.Context) error {
	ort.SetSharedLibraryPath(d.cfg.OnnxLib)
	if err := ort.InitializeEnvironment(); err != nil {
		d.log.Error("wakeword: ONNX init failed: %v", err)
		return err
	}
	defer ort.DestroyEnvironment()

	in, err := ort.NewEmptyTensor[float32](ort.NewShape(1, windowSamples))
	if err != nil {
		return err
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return err
	}
	defer out.Destroy()

	inInfo, outInfo, err := ort.GetInputOutputInfo(d.cfg.WakeModel)
	if err != nil {
		return err
	}
	sess, err := ort.NewAdvancedSession(
		d.cfg.WakeModel,
		[]string{inInfo[0].Name}, []string{outInfo[0].Name},
		[]ort.Value{in}, []ort.Value{out},
		nil,
	)
	if err != nil {
		return err
	}
	defer sess.Destroy()

	mCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(_ string) {})
	if err != nil {
		return err
	}
	defer func() { _ = mCtx.Uninit(); mCtx.Free() }()

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = sampleRate
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = 1
	devCfg.Alsa.NoMMap = 1

	audioCh := make(chan []int16, audioQueueCap)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_ []byte, raw []byte, _ uint32) {
			if len(raw) == 0 {
				return
			}
			n := len(raw) / 2
			pcm := make([]int16, n)
			for i := 0; i < n; i++ {
				pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
			}
			select {
			case audioCh <- pcm:
			default: // drop under backpressure
			}
		},
	}

	device, err := malgo.InitDevice(mCtx.Context, devCfg, callbacks)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.device = device
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.device = nil
		d.mu.Unlock()
		_ = device.Stop()
		device.Uninit()
	}()

	if err := device.Start(); err != nil {
		d.log.Error("wakeword: device start failed: %v", err)
		return err
	}
	d.log.Debug("wakeword: capture started (rate=%d)", sampleRate)

	window := make([]float32, 0, windowSamples)
	lastDetect := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case frame := <-audioCh:
			if d.isPaused() {
				window = window[:0]
				continue
			}

			for _, s := range frame {
				window = append(window, float32(s)/32768.0)
			}
			if len(window) < windowSamples {
				continue
			}
			if over := len(window) - windowSamples; over > 0 {
				window = window[over:]
			}

			if rms(window) < d.cfg.EnergyFloor {
				window = trimPreRoll(window)
				continue
			}

			copy(in.GetData(), window)
			if err := sess.Run(); err != nil {
				d.log.Error("wakeword: scoring failed: %v", err)
				continue
			}
			score := float64(out.GetData()[0])

			if score >= d.cfg.Threshold && time.Since(lastDetect) >= d.cfg.Cooldown {
				lastDetect = time.Now()
				d.log.Info("wakeword: triggered (score=%.2f)", score)
				window = window[:0]
				if d.OnDetected != nil {
					d.OnDetected()
				}
			}
		}
	}
}

// trimPreRoll shrinks a quiet window to its newest chunk, so speech
// arriving next still has a little leading context. Copied down in
// place; a plain reslice would keep the stale head instead.
func trimPreRoll(window []float32) []float32 {
	if len(window) <= chunkSamples {
		return window
	}
	n := copy(window, window[len(window)-chunkSamples:])
	return window[:n]
}

// rms returns the root-mean-square amplitude of normalized samples.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
