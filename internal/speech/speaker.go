package speech

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/aide/internal/domain"
	"github.com/hammamikhairi/aide/internal/logger"
)

// Backend synthesizes text to WAV bytes. *TTSClient implements it;
// tests substitute fakes.
type Backend interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Output plays WAV audio. *Player implements it.
type Output interface {
	Play(wav []byte) error
	Stop()
}

// Events is the synthesizer's notification protocol: start when
// playback begins, finish when it completes, cancel when an utterance
// was interrupted or dropped before finishing. Fields may be nil.
type Events struct {
	OnStart  func(text string)
	OnFinish func(text string)
	OnCancel func(text string)
}

// SpeakerOption configures the Speaker.
type SpeakerOption func(*Speaker)

// WithEvents installs the event protocol.
func WithEvents(ev Events) SpeakerOption {
	return func(s *Speaker) { s.events = ev }
}

// WithSpeakerCache enables the audio cache.
func WithSpeakerCache(cache *AudioCache) SpeakerOption {
	return func(s *Speaker) { s.cache = cache }
}

// Speaker serializes all speech output through a single pipeline:
// queue -> synthesize -> play. Only one thing speaks at a time; higher
// priority items are spoken first. Interrupt clears the queue and
// stops playback mid-utterance.
type Speaker struct {
	tts    Backend
	out    Output
	log    *logger.Logger
	cache  *AudioCache
	events Events

	mu          sync.Mutex
	queue       []request
	notify      chan struct{}
	speaking    bool
	interrupted bool // set by Interrupt, checked around playback
}

type request struct {
	text     string
	priority Priority
	queuedAt time.Time
	done     chan error // nil for fire-and-forget
}

// Compile-time interface check.
var _ domain.Synthesizer = (*Speaker)(nil)

// NewSpeaker creates a speech serializer. Call Start before speaking.
func NewSpeaker(tts Backend, out Output, log *logger.Logger, opts ...SpeakerOption) *Speaker {
	s := &Speaker{
		tts:    tts,
		out:    out,
		log:    log,
		notify: make(chan struct{}, 32),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the processing goroutine. Non-blocking.
func (s *Speaker) Start(ctx context.Context) {
	go s.processLoop(ctx)
	s.log.Info("speaker started")
}

// Speak queues text at normal priority and blocks until it has been
// spoken (or cancelled). This is the synthesizer contract the
// orchestrator awaits.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	done := make(chan error, 1)
	s.enqueue(request{text: text, priority: PriorityNormal, queuedAt: time.Now(), done: done})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Say queues text at the given priority without waiting.
func (s *Speaker) Say(text string, priority Priority) {
	s.enqueue(request{text: text, priority: priority, queuedAt: time.Now()})
}

// Interrupt stops the current utterance and drops everything queued.
// Dropped and cut-off utterances report through OnCancel.
func (s *Speaker) Interrupt() {
	s.mu.Lock()
	dropped := s.queue
	s.queue = nil
	s.interrupted = true
	s.mu.Unlock()

	s.out.Stop()

	for _, req := range dropped {
		s.finish(req, context.Canceled, true)
	}
	s.log.Debug("speaker: interrupted, %d queued items dropped", len(dropped))
}

// IsSpeaking reports whether an utterance is being synthesized or played.
func (s *Speaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// QueueLen returns the number of pending utterances.
func (s *Speaker) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Prefetch synthesizes the given texts in the background and stores
// them in the cache, so later playback starts instantly. No-op without
// a cache.
func (s *Speaker) Prefetch(ctx context.Context, texts ...string) {
	if s.cache == nil {
		return
	}
	for _, text := range texts {
		if text == "" || s.cache.Has(text) {
			continue
		}
		go func(t string) {
			audio, err := s.tts.Synthesize(ctx, t)
			if err != nil {
				s.log.Debug("speaker: prefetch failed: %v", err)
				return
			}
			s.cache.Put(t, audio)
		}(text)
	}
}

// ── Internals ────────────────────────────────────────────────────

func (s *Speaker) enqueue(req request) {
	s.mu.Lock()
	s.queue = append(s.queue, req)
	n := len(s.queue)
	s.mu.Unlock()

	s.log.Debug("speaker: queued (priority=%d, queue_len=%d)", req.priority, n)

	select {
	case s.notify <- struct{}{}:
	default: // already signaled
	}
}

func (s *Speaker) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drainCancelled()
			s.log.Info("speaker stopped")
			return
		case <-s.notify:
			s.drain(ctx)
		}
	}
}

// drain processes queued items, highest priority first.
func (s *Speaker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		s.interrupted = false
		req, ok := s.dequeueLocked()
		if !ok {
			s.mu.Unlock()
			return
		}
		s.speaking = true
		s.mu.Unlock()

		s.process(ctx, req)

		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
	}
}

// dequeueLocked removes and returns the highest priority item.
// Must be called with s.mu held.
func (s *Speaker) dequeueLocked() (request, bool) {
	if len(s.queue) == 0 {
		return request{}, false
	}
	best := 0
	for i, req := range s.queue {
		if req.priority > s.queue[best].priority {
			best = i
		}
	}
	req := s.queue[best]
	s.queue = append(s.queue[:best], s.queue[best+1:]...)
	return req, true
}

func (s *Speaker) process(ctx context.Context, req request) {
	wait := time.Since(req.queuedAt).Round(time.Millisecond)
	s.log.Debug("speaker: speaking (priority=%d, waited=%s)", req.priority, wait)

	audio, err := s.synthesize(ctx, req.text)
	if err != nil {
		s.log.Error("speaker: synthesis failed: %v", err)
		s.finish(req, err, false)
		return
	}

	if s.wasInterrupted() {
		s.finish(req, context.Canceled, true)
		return
	}

	if s.events.OnStart != nil {
		s.events.OnStart(req.text)
	}

	playErr := s.out.Play(audio)
	if playErr != nil {
		s.log.Error("speaker: playback failed: %v", playErr)
	}

	if s.wasInterrupted() {
		s.finish(req, context.Canceled, true)
		return
	}
	if s.events.OnFinish != nil {
		s.events.OnFinish(req.text)
	}
	if req.done != nil {
		req.done <- playErr
	}
}

func (s *Speaker) synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.cache != nil {
		if audio, ok := s.cache.Get(text); ok {
			return audio, nil
		}
	}
	audio, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Put(text, audio)
	}
	return audio, nil
}

func (s *Speaker) wasInterrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted
}

// finish resolves a request, reporting cancellation through OnCancel.
func (s *Speaker) finish(req request, err error, cancelled bool) {
	if cancelled && s.events.OnCancel != nil {
		s.events.OnCancel(req.text)
	}
	if req.done != nil {
		req.done <- err
	}
}

// drainCancelled resolves everything left in the queue on shutdown so
// no Speak caller stays blocked.
func (s *Speaker) drainCancelled() {
	s.mu.Lock()
	left := s.queue
	s.queue = nil
	s.mu.Unlock()
	for _, req := range left {
		s.finish(req, context.Canceled, true)
	}
}
