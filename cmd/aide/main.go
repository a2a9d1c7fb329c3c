// Aide — a voice-driven personal assistant.
//
// Usage:
//
//	aide [-verbose] [-quiet] [-text-only]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/aide/internal/accounts"
	"github.com/hammamikhairi/aide/internal/alert"
	"github.com/hammamikhairi/aide/internal/capture"
	"github.com/hammamikhairi/aide/internal/config"
	"github.com/hammamikhairi/aide/internal/dispatch"
	"github.com/hammamikhairi/aide/internal/display"
	"github.com/hammamikhairi/aide/internal/domain"
	"github.com/hammamikhairi/aide/internal/logger"
	"github.com/hammamikhairi/aide/internal/speech"
	"github.com/hammamikhairi/aide/internal/transcribe"
	"github.com/hammamikhairi/aide/internal/voice"
	"github.com/hammamikhairi/aide/internal/wakeword"
)

func main() {
	_ = godotenv.Load()

	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".aide-logs/aide.log", "file to write logs to (use \"stderr\" to log to console)")
	noSpeech := flag.Bool("no-speech", false, "disable text-to-speech even if speech keys are set")
	textOnly := flag.Bool("text-only", false, "disable the microphone pipeline, typed commands only")
	wholeWords := flag.Bool("whole-words", false, "match wake phrases on word boundaries instead of substrings")
	wakeFlag := flag.String("wake", "", "comma-separated wake phrases (overrides AIDE_WAKE_PHRASES)")
	acoustic := flag.Bool("acoustic", false, "use the on-device wake model instead of continuous transcription")
	flag.Parse()

	cfg := config.Load()

	// Configure logger.
	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Direct logs to a file by default so the REPL stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire dependencies. The seeded store backs every domain service
	// until real provider connectors exist.
	store := accounts.Seeded()
	dispatcher := dispatch.New(store, store, store, log)

	var orch *voice.Orchestrator
	var alerts *alert.Channel

	ui := display.NewUI(func() (string, []display.StatusLine) {
		state := "text only"
		if orch != nil {
			state = orch.State().String()
		}
		var lines []display.StatusLine
		if alerts != nil {
			for _, rec := range alerts.Active() {
				lines = append(lines, display.StatusLine{
					Label: fmt.Sprintf("[%s] %s", rec.Level, rec.Title),
					Hot:   rec.Level >= alert.LevelHigh,
				})
			}
		}
		return state, lines
	})

	// Text-to-speech.
	var tts domain.Synthesizer = silentSynth{}
	var speaker *speech.Speaker
	var player *speech.Player

	speechKey := os.Getenv(speech.EnvSpeechKey)
	speechRegion := os.Getenv(speech.EnvSpeechRegion)

	if speechKey != "" && speechRegion != "" && !*noSpeech {
		ttsClient := speech.NewTTSClient(speechKey, speechRegion, log, speech.WithVoice(cfg.Voice))

		p, err := speech.NewPlayer(log)
		if err != nil {
			log.Error("audio player init failed, speech disabled: %v", err)
		} else {
			player = p
			speaker = speech.NewSpeaker(ttsClient, player, log,
				speech.WithSpeakerCache(speech.NewAudioCache(cfg.Voice, log)),
			)
			speaker.Start(ctx)
			speaker.Prefetch(ctx, speech.Fillers()...)
			tts = speaker
			log.Info("TTS enabled (voice=%s, region=%s)", cfg.Voice, speechRegion)
		}
	} else if !*noSpeech {
		log.Info("TTS disabled: set %s and %s env vars to enable", speech.EnvSpeechKey, speech.EnvSpeechRegion)
	}

	// Alerts. Deliver through the shared player when audio is up, the
	// logger otherwise.
	var sink alert.Sink
	if player != nil {
		sink = alert.NewToneSink(player, log, func(rec alert.Record) {
			ui.PrintUrgent(fmt.Sprintf("[%s] %s — %s", rec.Level, rec.Title, rec.Message))
		})
	} else {
		sink = alert.NewLogSink(log)
	}
	alerts = alert.New(sink, log)
	alerts.Subscribe(func(rec alert.Record) {
		if speaker == nil || rec.Level == alert.LevelLow {
			return
		}
		prio := speech.PriorityNormal
		if rec.Level >= alert.LevelHigh {
			prio = speech.PriorityCritical
		}
		speaker.Say(speech.LineAlert(rec.Title, rec.Message), prio)
	})

	// Voice pipeline.
	var detector *wakeword.Detector
	voiceReady := false

	if !*textOnly && speechKey != "" && speechRegion != "" {
		stt := transcribe.NewClient(speechKey, speechRegion, log,
			transcribe.WithLanguage(cfg.Language),
		)
		device := capture.NewDevice(log)

		matcherOpts := []voice.MatcherOption{}
		if *wholeWords || cfg.MatchWholeWords {
			matcherOpts = append(matcherOpts, voice.MatchWholeWords())
		}
		phrases := cfg.WakePhrases
		if *wakeFlag != "" {
			phrases = strings.Split(*wakeFlag, ",")
		}

		orch = voice.New(device, stt, tts, dispatcher, log,
			voice.WithMatcher(voice.NewMatcher(phrases, matcherOpts...)),
			voice.WithWakeClipDuration(time.Duration(cfg.WakeClipSeconds*float64(time.Second))),
			voice.WithCommandClipDuration(time.Duration(cfg.CmdClipSeconds*float64(time.Second))),
			voice.WithLoopGap(time.Duration(cfg.LoopGapMillis)*time.Millisecond),
		)

		cb := voice.Callbacks{
			OnWakeWordDetected: func(phrase string) { ui.PrintHint("wake word: " + phrase) },
			OnListeningStart:   func() { ui.PrintHint("listening for the wake word") },
			OnListeningStop:    func() { ui.PrintHint("wake listening stopped") },
			OnCommandReceived:  func(cmd domain.VoiceCommand) { ui.PrintVoice(cmd.Text) },
			OnSpeakingStart: func(text string) {
				// Keep the acoustic probe from hearing our own voice.
				if detector != nil {
					detector.Pause()
				}
				ui.PrintChat(text)
			},
			OnSpeakingEnd: func(string) {
				if detector != nil {
					detector.Resume()
				}
			},
			OnError: func(msg string) { ui.PrintUrgent(msg) },
		}

		ok, err := orch.Initialize(ctx, cb)
		if err != nil {
			log.Error("voice init failed: %v", err)
		}
		voiceReady = ok
	} else if !*textOnly {
		log.Info("voice input disabled: set %s and %s env vars to enable", speech.EnvSpeechKey, speech.EnvSpeechRegion)
	}

	// With the acoustic model the wake probe runs on-device and the
	// transcribing wake loop stays off; the two must never share the
	// microphone.
	if voiceReady && *acoustic && cfg.AcousticWakeModel != "" {
		detector = wakeword.New(wakeword.Config{
			WakeModel: cfg.AcousticWakeModel,
			OnnxLib:   cfg.OnnxLib,
		}, log)
		detector.OnDetected = func() {
			ui.PrintHint("wake word (acoustic)")
			// The detector's device is released for the whole capture
			// cycle; the orchestrator is the only recorder meanwhile.
			go func() {
				detector.Pause()
				defer detector.Resume()
				if _, err := orch.ListenForCommand(ctx); err != nil {
					log.Debug("acoustic one-shot: %v", err)
				}
			}()
		}
		go func() {
			if err := detector.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error("acoustic detector: %v", err)
			}
		}()
		log.Info("acoustic wake detection enabled (model=%s)", cfg.AcousticWakeModel)
	} else if voiceReady {
		orch.StartWakeListening(ctx)
	}

	app := &cliApp{
		dispatcher: dispatcher,
		orch:       orch,
		alerts:     alerts,
		speaker:    speaker,
		log:        log,
		ui:         ui,
		escalation: cfg.AlertEscalation,
	}

	fmt.Println(display.RenderBanner())
	if voiceReady {
		fmt.Println(display.BannerStyle.Render("  Voice mode ON — say the wake phrase, or type commands."))
	} else {
		fmt.Println(display.BannerStyle.Render("  Type commands — 'help' for a list."))
	}
	fmt.Println(display.BannerStyle.Render("  Type 'quit' to exit."))
	fmt.Println()

	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal — blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	if orch != nil {
		orch.StopWakeListening(context.Background())
	}
	alerts.DismissAll()
	cancel()
}

// silentSynth stands in for the speaker when TTS is unavailable.
type silentSynth struct{}

func (silentSynth) Speak(ctx context.Context, text string) error { return nil }
func (silentSynth) Interrupt()                                   {}

type cliApp struct {
	dispatcher *dispatch.Dispatcher
	orch       *voice.Orchestrator // nil when voice is disabled
	alerts     *alert.Channel
	speaker    *speech.Speaker // nil when TTS is disabled
	log        *logger.Logger
	ui         *display.UI
	escalation time.Duration
}

// say prints a line and queues it for speech.
func (a *cliApp) say(text string, priority speech.Priority) {
	a.ui.PrintChat(text)
	if a.speaker != nil {
		a.speaker.Say(text, priority)
	}
}

func (a *cliApp) run(ctx context.Context) {
	uiCh := a.ui.InputChan()

	for {
		var input string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case input, ok = <-uiCh:
			if !ok {
				return
			}
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if a.speaker != nil {
			a.speaker.Interrupt()
		}

		switch lower := strings.ToLower(input); lower {
		case "quit", "exit":
			a.say("Goodbye.", speech.PriorityNormal)
			time.Sleep(300 * time.Millisecond)
			return
		case "help":
			a.showHelp()
		case "listen":
			a.listenOnce(ctx)
		case "wake on":
			if a.orch != nil {
				a.orch.StartWakeListening(ctx)
			} else {
				a.ui.PrintHint("voice input is disabled")
			}
		case "wake off":
			if a.orch != nil {
				a.orch.StopWakeListening(ctx)
			}
		case "dismiss", "ok":
			a.alerts.DismissAll()
			a.ui.PrintHint("alerts dismissed")
		case "test alert":
			a.testAlert()
		default:
			a.log.Debug("typed command: %q", input)
			res := a.dispatcher.Process(ctx, domain.VoiceCommand{
				Text:       input,
				Confidence: 1,
				Timestamp:  time.Now(),
			})
			a.say(res.Response, speech.PriorityNormal)
		}
	}
}

// listenOnce runs a single capture/dispatch cycle without a wake word.
func (a *cliApp) listenOnce(ctx context.Context) {
	if a.orch == nil {
		a.ui.PrintHint("voice input is disabled")
		return
	}
	if _, err := a.orch.ListenForCommand(ctx); errors.Is(err, domain.ErrBusy) {
		a.ui.PrintHint("already busy with a voice cycle")
	}
}

// testAlert raises a persistent medium alert so the escalation path
// can be exercised end to end.
func (a *cliApp) testAlert() {
	id, err := a.alerts.Trigger(alert.TriggerConfig{
		Level:                alert.LevelMedium,
		Reason:               "manual test",
		Title:                "Test alert",
		Message:              "This is a drill. Type 'dismiss' to acknowledge.",
		PersistUntilResponse: true,
		EscalationAfter:      a.escalation,
	})
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("alert failed: %v", err))
		return
	}
	a.ui.PrintHint(fmt.Sprintf("raised %s (escalates in %s)", id, a.escalation))
}

func (a *cliApp) showHelp() {
	a.ui.PrintHint("Commands:")
	a.ui.PrintHint("  check my email      Unread and urgent counts across accounts")
	a.ui.PrintHint("  what's on my calendar   Today's events")
	a.ui.PrintHint("  any meetings?       Upcoming meetings in the next 24h")
	a.ui.PrintHint("  listen              One-shot voice command without the wake word")
	a.ui.PrintHint("  wake on / wake off  Toggle wake-word listening")
	a.ui.PrintHint("  dismiss / ok        Acknowledge all alerts")
	a.ui.PrintHint("  test alert          Raise a persistent alert that escalates")
	a.ui.PrintHint("  quit                Exit")
}
