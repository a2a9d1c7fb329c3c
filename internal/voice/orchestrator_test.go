package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/aide/internal/domain"
	"github.com/hammamikhairi/aide/internal/logger"
)

// fakeDevice hands out scripted recordings. Each Start consumes the
// next line of the script; the fake transcriber echoes it back. The
// device also tracks how many sessions are open at once.
type fakeDevice struct {
	mu      sync.Mutex
	script  []string
	idx     int
	permErr error

	open    int
	maxOpen int
	starts  int
}

func (d *fakeDevice) EnsurePermission(ctx context.Context) error { return d.permErr }

func (d *fakeDevice) Start(ctx context.Context) (domain.RecordingSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	d.open++
	if d.open > d.maxOpen {
		d.maxOpen = d.open
	}
	text := ""
	if d.idx < len(d.script) {
		text = d.script[d.idx]
		d.idx++
	}
	return &fakeSession{device: d, text: text}, nil
}

func (d *fakeDevice) startCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts
}

type fakeSession struct {
	device *fakeDevice
	text   string

	mu     sync.Mutex
	closed bool
}

func (s *fakeSession) Stop() (*domain.AudioClip, error) {
	s.release()
	return &domain.AudioClip{
		WAV:      []byte("wav:" + s.text),
		Duration: 100 * time.Millisecond,
	}, nil
}

func (s *fakeSession) Abort() { s.release() }

func (s *fakeSession) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.device.mu.Lock()
	s.device.open--
	s.device.mu.Unlock()
}

// fakeSTT recovers the scripted text from the fake clip.
type fakeSTT struct{}

func (fakeSTT) Transcribe(ctx context.Context, clip *domain.AudioClip) (domain.Transcription, error) {
	text := strings.TrimPrefix(string(clip.WAV), "wav:")
	return domain.Transcription{Text: text, Confidence: 0.92}, nil
}

type fakeTTS struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeTTS) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeTTS) Interrupt() {}

func (f *fakeTTS) count(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.spoken {
		if s == text {
			n++
		}
	}
	return n
}

type fakeDispatcher struct {
	mu      sync.Mutex
	cmds    []domain.VoiceCommand
	res     domain.CommandResult
	entered chan struct{} // closed on first Process call, if set
	release chan struct{} // Process blocks on this, if set

	inFlight    int
	maxInFlight int
}

func (f *fakeDispatcher) Process(ctx context.Context, cmd domain.VoiceCommand) domain.CommandResult {
	f.mu.Lock()
	f.cmds = append(f.cmds, cmd)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	entered := f.entered
	f.entered = nil
	f.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return f.res
}

func (f *fakeDispatcher) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeDispatcher) received() []domain.VoiceCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.VoiceCommand, len(f.cmds))
	copy(out, f.cmds)
	return out
}

// recorder keeps the callback firing order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count(e string) int {
	n := 0
	for _, got := range r.list() {
		if got == e {
			n++
		}
	}
	return n
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnWakeWordDetected: func(p string) { r.add("wake:" + p) },
		OnListeningStart:   func() { r.add("listen-start") },
		OnListeningStop:    func() { r.add("listen-stop") },
		OnCommandReceived:  func(c domain.VoiceCommand) { r.add("command:" + c.Text) },
		OnSpeakingStart:    func(t string) { r.add("speak-start") },
		OnSpeakingEnd:      func(t string) { r.add("speak-end") },
		OnError:            func(m string) { r.add("error:" + m) },
	}
}

func newTestOrchestrator(t *testing.T, device *fakeDevice, disp *fakeDispatcher, tts *fakeTTS, opts ...Option) *Orchestrator {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	base := []Option{
		WithWakeClipDuration(10 * time.Millisecond),
		WithCommandClipDuration(10 * time.Millisecond),
		WithLoopGap(5 * time.Millisecond),
		WithQuietLines(),
	}
	return New(device, fakeSTT{}, tts, disp, log, append(base, opts...)...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWakeToDispatchCycle(t *testing.T) {
	device := &fakeDevice{script: []string{
		"just some background noise",
		"hey aide",
		"what's on my calendar today",
	}}
	disp := &fakeDispatcher{res: domain.CommandResult{
		Success: true, Response: "You have one event today.", Action: "check_calendar",
	}}
	tts := &fakeTTS{}
	rec := &recorder{}
	ctx := context.Background()

	o := newTestOrchestrator(t, device, disp, tts)
	ok, err := o.Initialize(ctx, rec.callbacks())
	if !ok || err != nil {
		t.Fatalf("initialize: ok=%v err=%v", ok, err)
	}

	o.StartWakeListening(ctx)
	waitFor(t, 2*time.Second, func() bool { return len(disp.received()) == 1 })
	o.StopWakeListening(ctx)

	cmds := disp.received()
	if len(cmds) != 1 || cmds[0].Text != "what's on my calendar today" {
		t.Fatalf("unexpected dispatched commands: %+v", cmds)
	}
	if cmds[0].Confidence != 0.92 {
		t.Fatalf("confidence not propagated: %v", cmds[0].Confidence)
	}
	if tts.count("You have one event today.") != 1 {
		t.Fatalf("response was not spoken: %v", tts.spoken)
	}
	if got := rec.count("wake:hey aide"); got != 1 {
		t.Fatalf("expected exactly one wake detection, got %d (%v)", got, rec.list())
	}
	if got := rec.count("command:what's on my calendar today"); got != 1 {
		t.Fatalf("expected one command callback, got %d", got)
	}

	// Ordering: wake before command, speak-start before speak-end.
	events := rec.list()
	idx := func(e string) int {
		for i, got := range events {
			if got == e {
				return i
			}
		}
		return -1
	}
	if idx("wake:hey aide") > idx("command:what's on my calendar today") {
		t.Fatalf("wake must precede command: %v", events)
	}
	if idx("speak-start") > idx("speak-end") {
		t.Fatalf("speaking callbacks out of order: %v", events)
	}

	if device.maxOpen > 1 {
		t.Fatalf("two recording sessions were open at once (max=%d)", device.maxOpen)
	}
	if o.State() != StateIdle {
		t.Fatalf("expected idle after stop, got %s", o.State())
	}
}

func TestListenForCommandWhileBusy(t *testing.T) {
	device := &fakeDevice{script: []string{"check my email"}}
	disp := &fakeDispatcher{
		res:     domain.CommandResult{Success: true, Response: "Done."},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	tts := &fakeTTS{}
	rec := &recorder{}
	ctx := context.Background()

	o := newTestOrchestrator(t, device, disp, tts)
	if ok, err := o.Initialize(ctx, rec.callbacks()); !ok || err != nil {
		t.Fatalf("initialize: ok=%v err=%v", ok, err)
	}

	entered := disp.entered
	resultCh := make(chan *domain.VoiceCommand, 1)
	go func() {
		cmd, _ := o.ListenForCommand(ctx)
		resultCh <- cmd
	}()

	<-entered // first capture is now inside Process

	startsBefore := device.startCount()
	if cmd, err := o.ListenForCommand(ctx); cmd != nil || !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy while pipeline busy, got cmd=%+v err=%v", cmd, err)
	}
	if device.startCount() != startsBefore {
		t.Fatal("busy listen request must not open a second recording")
	}

	close(disp.release)
	cmd := <-resultCh
	if cmd == nil || cmd.Text != "check my email" {
		t.Fatalf("unexpected one-shot result: %+v", cmd)
	}
	if o.State() != StateIdle {
		t.Fatalf("expected idle after one-shot, got %s", o.State())
	}
}

// gateSTT blocks transcription of one phrase until released, so a test
// can hold a wake probe in flight at a chosen moment.
type gateSTT struct {
	word    string
	seen    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateSTT) Transcribe(ctx context.Context, clip *domain.AudioClip) (domain.Transcription, error) {
	text := strings.TrimPrefix(string(clip.WAV), "wav:")
	if text == g.word {
		g.once.Do(func() { close(g.seen) })
		<-g.release
	}
	return domain.Transcription{Text: text, Confidence: 0.92}, nil
}

func TestOneShotDuringWakeListeningStaysExclusive(t *testing.T) {
	device := &fakeDevice{script: []string{
		"hey aide",
		"check my email",
	}}
	stt := &gateSTT{
		word:    "hey aide",
		seen:    make(chan struct{}),
		release: make(chan struct{}),
	}
	disp := &fakeDispatcher{
		res:     domain.CommandResult{Success: true, Response: "Done."},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	tts := &fakeTTS{}
	rec := &recorder{}
	ctx := context.Background()

	log := logger.New(logger.LevelOff, nil)
	o := New(device, stt, tts, disp, log,
		WithWakeClipDuration(10*time.Millisecond),
		WithCommandClipDuration(10*time.Millisecond),
		WithLoopGap(5*time.Millisecond),
		WithQuietLines(),
	)
	if ok, err := o.Initialize(ctx, rec.callbacks()); !ok || err != nil {
		t.Fatalf("initialize: ok=%v err=%v", ok, err)
	}

	o.StartWakeListening(ctx)
	<-stt.seen // wake probe transcription now in flight

	entered := disp.entered
	resultCh := make(chan *domain.VoiceCommand, 1)
	go func() {
		cmd, _ := o.ListenForCommand(ctx)
		resultCh <- cmd
	}()
	<-entered // one-shot reached the dispatcher

	// Let the probe finish; its wake match must yield to the running
	// one-shot instead of starting a second cycle.
	close(stt.release)
	time.Sleep(50 * time.Millisecond)

	close(disp.release)
	cmd := <-resultCh
	o.StopWakeListening(ctx)

	if cmd == nil || cmd.Text != "check my email" {
		t.Fatalf("unexpected one-shot result: %+v", cmd)
	}
	if got := disp.maxConcurrent(); got != 1 {
		t.Fatalf("dispatcher ran %d cycles concurrently", got)
	}
	cmds := disp.received()
	if len(cmds) != 1 || cmds[0].Text != "check my email" {
		t.Fatalf("expected exactly the one-shot command, got %+v", cmds)
	}
	if got := rec.count("wake:hey aide"); got != 0 {
		t.Fatalf("stale wake match must be dropped, got %d detections", got)
	}
	if device.maxOpen > 1 {
		t.Fatalf("two recording sessions were open at once (max=%d)", device.maxOpen)
	}
}

func TestListenForCommandHearsNothing(t *testing.T) {
	device := &fakeDevice{script: []string{""}}
	disp := &fakeDispatcher{res: domain.CommandResult{Success: true, Response: "nope"}}
	tts := &fakeTTS{}
	rec := &recorder{}
	ctx := context.Background()

	o := newTestOrchestrator(t, device, disp, tts)
	if ok, err := o.Initialize(ctx, rec.callbacks()); !ok || err != nil {
		t.Fatalf("initialize: ok=%v err=%v", ok, err)
	}

	if cmd, err := o.ListenForCommand(ctx); cmd != nil || !errors.Is(err, domain.ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech for silent clip, got cmd=%+v err=%v", cmd, err)
	}
	if len(disp.received()) != 0 {
		t.Fatal("silence must not reach the dispatcher")
	}
	if o.State() != StateIdle {
		t.Fatalf("expected idle, got %s", o.State())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	device := &fakeDevice{}
	disp := &fakeDispatcher{}
	tts := &fakeTTS{}
	rec := &recorder{}
	ctx := context.Background()

	log := logger.New(logger.LevelOff, nil)
	// Spoken lines enabled: the farewell count is the point here.
	o := New(device, fakeSTT{}, tts, disp, log,
		WithWakeClipDuration(10*time.Millisecond),
		WithLoopGap(5*time.Millisecond),
	)
	if ok, err := o.Initialize(ctx, rec.callbacks()); !ok || err != nil {
		t.Fatalf("initialize: ok=%v err=%v", ok, err)
	}

	o.StartWakeListening(ctx)
	o.StartWakeListening(ctx) // no-op

	waitFor(t, time.Second, func() bool { return device.startCount() >= 1 })

	o.StopWakeListening(ctx)
	o.StopWakeListening(ctx) // no-op, no second farewell

	if got := rec.count("listen-start"); got != 1 {
		t.Fatalf("expected one listening-start, got %d", got)
	}
	if got := rec.count("listen-stop"); got != 1 {
		t.Fatalf("expected one listening-stop, got %d", got)
	}
	if got := tts.count("Voice assistant deactivated."); got != 1 {
		t.Fatalf("expected exactly one farewell, got %d (%v)", got, tts.spoken)
	}
	if o.IsActive() {
		t.Fatal("expected inactive after stop")
	}
}

func TestInitializePermissionDenied(t *testing.T) {
	device := &fakeDevice{permErr: domain.ErrPermissionDenied}
	disp := &fakeDispatcher{}
	tts := &fakeTTS{}
	rec := &recorder{}
	ctx := context.Background()

	o := newTestOrchestrator(t, device, disp, tts)
	ok, err := o.Initialize(ctx, rec.callbacks())
	if ok || err == nil {
		t.Fatalf("expected denial, got ok=%v err=%v", ok, err)
	}
	if rec.count("error:microphone permission denied") != 1 {
		t.Fatalf("expected error callback, got %v", rec.list())
	}

	// Permission granted on retry.
	device.permErr = nil
	ok, err = o.Initialize(ctx, rec.callbacks())
	if !ok || err != nil {
		t.Fatalf("retry should succeed: ok=%v err=%v", ok, err)
	}
}
