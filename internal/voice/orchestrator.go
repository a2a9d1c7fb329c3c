// Package voice implements the voice interaction pipeline: continuous
// wake-phrase scanning, command capture, dispatch and spoken feedback.
//
// The Orchestrator owns the microphone. Every recording in the process
// goes through it, one at a time; the wake loop never opens a clip
// while another recording, dispatch or utterance is outstanding.
// Cancellation is cooperative: Stop sets a flag and tears down the
// open recording session, but an in-flight transcription call runs to
// completion and its result is discarded.
package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hammamikhairi/aide/internal/domain"
	"github.com/hammamikhairi/aide/internal/logger"
	"github.com/hammamikhairi/aide/internal/speech"
	"github.com/hammamikhairi/aide/internal/transcribe"
)

// Dispatcher routes a captured command to a domain handler and returns
// a speakable result. It must never panic or block indefinitely.
type Dispatcher interface {
	Process(ctx context.Context, cmd domain.VoiceCommand) domain.CommandResult
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithWakeClipDuration sets the length of each wake-probe recording.
func WithWakeClipDuration(d time.Duration) Option {
	return func(o *Orchestrator) { o.wakeClipDur = d }
}

// WithCommandClipDuration sets the length of a command recording.
func WithCommandClipDuration(d time.Duration) Option {
	return func(o *Orchestrator) { o.cmdClipDur = d }
}

// WithLoopGap sets the pause between wake probes.
func WithLoopGap(d time.Duration) Option {
	return func(o *Orchestrator) { o.loopGap = d }
}

// WithMatcher replaces the default wake-phrase matcher.
func WithMatcher(m *Matcher) Option {
	return func(o *Orchestrator) { o.matcher = m }
}

// WithQuietLines disables the spoken acknowledgment/farewell/apology
// lines. Mainly for tests and headless runs.
func WithQuietLines() Option {
	return func(o *Orchestrator) { o.quiet = true }
}

// Orchestrator is the voice pipeline state machine. It is a single
// shared instance; callers must not invoke two lifecycle operations
// concurrently.
type Orchestrator struct {
	device     domain.CaptureDevice
	stt        domain.Transcriber
	tts        domain.Synthesizer
	dispatcher Dispatcher
	matcher    *Matcher
	log        *logger.Logger
	cb         Callbacks
	quiet      bool

	wakeClipDur time.Duration
	cmdClipDur  time.Duration
	loopGap     time.Duration

	// micMu is the single choke point for microphone ownership. Every
	// recording session is opened and closed while holding it.
	micMu sync.Mutex

	mu          sync.Mutex
	state       State
	listening   bool // liveness flag checked at loop boundaries
	cycle       bool // a capture/dispatch cycle owns the pipeline
	initialized bool
	session     domain.RecordingSession // in-flight, torn down on Stop
	cancelLoop  context.CancelFunc
	loopDone    chan struct{}
}

// New creates an orchestrator. Call Initialize before any lifecycle
// operation.
func New(device domain.CaptureDevice, stt domain.Transcriber, tts domain.Synthesizer, dispatcher Dispatcher, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		device:      device,
		stt:         stt,
		tts:         tts,
		dispatcher:  dispatcher,
		log:         log,
		wakeClipDur: 2 * time.Second,
		cmdClipDur:  5 * time.Second,
		loopGap:     300 * time.Millisecond,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.matcher == nil {
		o.matcher = NewMatcher(nil)
	}
	return o
}

// Initialize installs the callback protocol and requests microphone
// permission. Returns whether the microphone is available. Idempotent;
// a denial surfaces once through OnError and through the returned
// error, and can be retried.
func (o *Orchestrator) Initialize(ctx context.Context, cb Callbacks) (bool, error) {
	o.mu.Lock()
	o.cb = cb
	done := o.initialized
	o.mu.Unlock()

	if done {
		return true, nil
	}

	if err := o.device.EnsurePermission(ctx); err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			o.log.Warn("orchestrator: microphone permission denied")
			o.cb.error("microphone permission denied")
		} else {
			o.log.Error("orchestrator: permission check failed: %v", err)
			o.cb.error("microphone unavailable: " + err.Error())
		}
		return false, err
	}

	o.mu.Lock()
	o.initialized = true
	o.mu.Unlock()
	o.log.Info("orchestrator: initialized")
	return true, nil
}

// SetWakePhrases replaces the wake-phrase set. Takes effect on the
// next wake probe.
func (o *Orchestrator) SetWakePhrases(phrases []string) {
	o.matcher.SetPhrases(phrases)
	o.log.Info("orchestrator: wake phrases set to %v", o.matcher.Phrases())
}

// IsActive reports whether continuous wake listening is enabled.
func (o *Orchestrator) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.listening
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// StartWakeListening enables continuous listening: Idle → WakeListening.
// Speaks a short acknowledgment, then runs the wake loop until
// StopWakeListening. No-op if already listening.
func (o *Orchestrator) StartWakeListening(ctx context.Context) {
	o.mu.Lock()
	if o.listening {
		o.mu.Unlock()
		o.log.Info("orchestrator: already listening, start ignored")
		return
	}
	o.listening = true
	o.state = StateWakeListening
	loopCtx, cancel := context.WithCancel(ctx)
	o.cancelLoop = cancel
	done := make(chan struct{})
	o.loopDone = done
	o.mu.Unlock()

	o.log.Info("orchestrator: wake listening enabled (clip=%s, gap=%s)", o.wakeClipDur, o.loopGap)
	o.cb.listeningStart()
	if !o.quiet {
		o.speak(ctx, speech.LineWakeEnabled())
	}

	go o.wakeLoop(loopCtx, done)
}

// StopWakeListening disables listening from any state: sets the
// liveness flag, tears down any open recording session, waits for the
// loop to observe the flag (bounded by one in-flight clip), and speaks
// a short farewell. Calling it again while already idle is a logged
// no-op, so a double stop produces a single farewell.
func (o *Orchestrator) StopWakeListening(ctx context.Context) {
	o.mu.Lock()
	active := o.listening || o.state != StateIdle
	o.listening = false
	cancel := o.cancelLoop
	o.cancelLoop = nil
	sess := o.session
	done := o.loopDone
	o.loopDone = nil
	o.mu.Unlock()

	if !active {
		o.log.Debug("orchestrator: stop while idle, ignored")
		return
	}

	if cancel != nil {
		cancel()
	}
	if sess != nil {
		sess.Abort()
	}
	if done != nil {
		<-done
	}

	o.setState(StateIdle)
	if !o.quiet {
		o.speak(ctx, speech.LineFarewell())
	}
	o.cb.listeningStop()
	o.log.Info("orchestrator: wake listening disabled")
}

// ListenForCommand captures a single command without a wake phrase:
// speaks an acknowledgment, records until the command clip duration
// elapses or ctx is cancelled (manual stop), transcribes, dispatches
// and speaks the response. Returns ErrBusy — immediately, without
// opening a recording — when a capture, dispatch or utterance already
// owns the pipeline, and ErrNoSpeech when the clip transcribed to
// nothing. Mutual exclusion, not queuing.
func (o *Orchestrator) ListenForCommand(ctx context.Context) (*domain.VoiceCommand, error) {
	if !o.beginCycle() {
		o.log.Info("orchestrator: listen request ignored, pipeline busy (%s)", o.State())
		return nil, domain.ErrBusy
	}
	return o.captureAndDispatch(ctx, true)
}

// beginCycle claims the capture/dispatch phase. At most one cycle owns
// the pipeline at a time, whether it came from the wake loop or from a
// manual one-shot; endCycle releases the claim.
func (o *Orchestrator) beginCycle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cycle {
		return false
	}
	switch o.state {
	case StateWakeTriggered, StateCommandListening, StateDispatching, StateSpeaking:
		return false
	}
	o.cycle = true
	return true
}

func (o *Orchestrator) cycleInProgress() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cycle
}

// ── Wake loop ────────────────────────────────────────────────────

func (o *Orchestrator) wakeLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if !o.IsActive() || ctx.Err() != nil {
			return
		}

		// A manual one-shot owns the pipeline; probe again once it
		// is done rather than record over it.
		if o.cycleInProgress() {
			o.sleep(ctx, o.loopGap)
			continue
		}

		clip, err := o.recordClip(ctx, o.wakeClipDur, false)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.log.Error("orchestrator: wake probe failed: %v", err)
			o.cb.error("audio capture failed: " + err.Error())
			o.sleep(ctx, o.loopGap)
			continue
		}

		tr, err := o.stt.Transcribe(ctx, clip)

		// The transcription ran to completion; if we were stopped
		// meanwhile, its result is discarded.
		if !o.IsActive() || ctx.Err() != nil {
			return
		}
		if err != nil {
			// Treated as "heard nothing", never fatal.
			o.log.Debug("orchestrator: wake transcription failed: %v", err)
			o.sleep(ctx, o.loopGap)
			continue
		}

		text := transcribe.Clean(tr.Text)
		if text == "" {
			o.sleep(ctx, o.loopGap)
			continue
		}
		o.log.Debug("orchestrator: wake probe heard %q", text)

		phrase, ok := o.matcher.Match(text)
		if !ok {
			o.sleep(ctx, o.loopGap)
			continue
		}

		if !o.beginCycle() {
			// A one-shot claimed the pipeline while this probe's
			// transcription was in flight. The match is stale.
			o.log.Debug("orchestrator: wake match %q dropped, pipeline busy", phrase)
			o.sleep(ctx, o.loopGap)
			continue
		}

		o.log.Info("orchestrator: wake phrase %q detected in %q", phrase, text)
		o.cb.wakeWordDetected(phrase)
		o.setState(StateWakeTriggered)

		o.captureAndDispatch(ctx, false)

		if !o.IsActive() || ctx.Err() != nil {
			return
		}
	}
}

// ── Command capture ──────────────────────────────────────────────

// captureAndDispatch runs one CommandListening → Dispatching →
// Speaking cycle and restores the loop state. The caller must have
// claimed the cycle via beginCycle. oneShot marks a manual capture,
// where ctx cancellation finishes the recording early instead of
// discarding it.
func (o *Orchestrator) captureAndDispatch(ctx context.Context, oneShot bool) (*domain.VoiceCommand, error) {
	o.setState(StateCommandListening)
	if !o.quiet {
		o.speak(ctx, speech.LineListening())
	}

	clip, err := o.recordClip(ctx, o.cmdClipDur, oneShot)
	if err != nil {
		if ctx.Err() == nil {
			o.log.Error("orchestrator: command capture failed: %v", err)
			o.cb.error("audio capture failed: " + err.Error())
			if !o.quiet {
				o.speak(ctx, speech.LineApology())
			}
		}
		o.endCycle()
		return nil, err
	}

	// A manual stop ends the recording but the captured audio still
	// flows through transcription and dispatch.
	runCtx := ctx
	if oneShot && ctx.Err() != nil {
		runCtx = context.WithoutCancel(ctx)
	}

	tr, err := o.stt.Transcribe(runCtx, clip)
	if !oneShot && (!o.IsActive() || ctx.Err() != nil) {
		o.endCycle()
		return nil, ctx.Err() // stopped meanwhile, discard
	}

	text := ""
	if err == nil {
		text = transcribe.Clean(tr.Text)
	} else {
		o.log.Debug("orchestrator: command transcription failed: %v", err)
	}
	if text == "" {
		if !o.quiet {
			o.speak(runCtx, speech.LineApology())
		}
		o.endCycle()
		return nil, domain.ErrNoSpeech
	}

	cmd := domain.VoiceCommand{
		Text:       text,
		Confidence: tr.Confidence,
		Timestamp:  time.Now(),
	}
	o.log.Info("orchestrator: command %q (confidence=%.2f)", cmd.Text, cmd.Confidence)
	o.cb.commandReceived(cmd)

	o.setState(StateDispatching)
	res := o.dispatcher.Process(runCtx, cmd)

	o.setState(StateSpeaking)
	o.speak(runCtx, res.Response)

	o.endCycle()
	return &cmd, nil
}

// endCycle releases the cycle claim and returns the state machine to
// WakeListening when continuous mode is still enabled, Idle otherwise.
func (o *Orchestrator) endCycle() {
	o.mu.Lock()
	o.cycle = false
	o.mu.Unlock()
	if o.IsActive() {
		o.setState(StateWakeListening)
	} else {
		o.setState(StateIdle)
	}
}

// ── Recording ────────────────────────────────────────────────────

// recordClip opens a session, waits for the clip duration (or ctx
// cancellation) and closes it. All microphone ownership funnels
// through here. With finishOnCancel, cancellation stops the session
// and keeps the partial clip; otherwise the session is aborted.
func (o *Orchestrator) recordClip(ctx context.Context, d time.Duration, finishOnCancel bool) (*domain.AudioClip, error) {
	o.micMu.Lock()
	defer o.micMu.Unlock()

	sess, err := o.device.Start(ctx)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.session = sess
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.session = nil
		o.mu.Unlock()
	}()

	select {
	case <-time.After(d):
	case <-ctx.Done():
		if !finishOnCancel {
			sess.Abort()
			return nil, ctx.Err()
		}
	}

	clip, err := sess.Stop()
	if err != nil {
		return nil, err
	}
	if clip.Empty() {
		return nil, domain.ErrCaptureFailed
	}
	return clip, nil
}

// ── Helpers ──────────────────────────────────────────────────────

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	if prev != s {
		o.log.Debug("orchestrator: %s -> %s", prev, s)
	}
}

// speak utters text through the synthesizer, bracketing it with the
// speaking callbacks. Synthesis failures are reported, never fatal.
func (o *Orchestrator) speak(ctx context.Context, text string) {
	if text == "" {
		return
	}
	o.cb.speakingStart(text)
	if err := o.tts.Speak(ctx, text); err != nil {
		o.log.Error("orchestrator: speech failed: %v", err)
		o.cb.error("speech synthesis failed: " + err.Error())
	}
	o.cb.speakingEnd(text)
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
