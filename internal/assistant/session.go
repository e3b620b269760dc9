// Package assistant runs conversation turns: listen, recognize, reply and
// speak, one at a time, with a shared bounded history.
package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"miku/internal/audio"
	"miku/internal/fault"
	"miku/internal/history"
	"miku/internal/llm"
	"miku/internal/router"
	"miku/internal/tts"
	"miku/pkg/audioconv"
	"miku/pkg/stt"
)

var (
	ErrBusy         = errors.New("a turn is already running")
	ErrNotListening = errors.New("not listening")
)

type Recorder interface {
	Listen(ctx context.Context, opt audio.ListenOptions) ([]float32, error)
	Devices() ([]string, error)
	Probe(ctx context.Context, d time.Duration) (float64, error)
}

type CuePlayer interface {
	PlayFile(ctx context.Context, path string) error
}

type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, d time.Duration) error
	UnduckOthers(ctx context.Context, d time.Duration) error
}

// Deps are the collaborators of a Session. Cues, Ducker, Router and Reporter
// are optional.
type Deps struct {
	Recorder   Recorder
	Recognizer stt.Recognizer
	Generator  llm.Generator
	Speaker    tts.Speaker
	Cues       CuePlayer
	Ducker     Ducker
	Router     *router.Router
	Reporter   Reporter
}

type Options struct {
	Languages     []Language
	Persona       string
	HistoryLimit  int
	SampleRate    int
	Listen        audio.ListenOptions
	StartCue      string
	EndCue        string
	RouteCommands bool
	Duck          bool
	RecordDir     string

	RecognizeTimeout time.Duration // per language attempt
	GenerateTimeout  time.Duration
}

// DefaultListen bounds a capture when Options leave a field zero.
var DefaultListen = audio.ListenOptions{
	Calibrate:       500 * time.Millisecond,
	Timeout:         15 * time.Second,
	PhraseLimit:     8 * time.Second,
	Pause:           800 * time.Millisecond,
	EnergyThreshold: 0.01,
}

func listenDefaults(o audio.ListenOptions) audio.ListenOptions {
	d := DefaultListen
	if o.Calibrate <= 0 {
		o.Calibrate = d.Calibrate
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.PhraseLimit <= 0 {
		o.PhraseLimit = d.PhraseLimit
	}
	if o.Pause <= 0 {
		o.Pause = d.Pause
	}
	if o.EnergyThreshold <= 0 {
		o.EnergyThreshold = d.EnergyThreshold
	}
	return o
}

const (
	duckFactor = 0.3
	duckFade   = 300 * time.Millisecond
	probeTime  = 500 * time.Millisecond
)

// Session owns the listening flag, the history and the single turn worker.
type Session struct {
	deps    Deps
	opts    Options
	history *history.History

	listening atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(deps Deps, opts Options) *Session {
	if deps.Reporter == nil {
		deps.Reporter = LogReporter{}
	}
	if opts.Languages == nil {
		opts.Languages = DefaultLanguages
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = audioconv.DefaultSampleRate
	}
	opts.Listen = listenDefaults(opts.Listen)
	return &Session{
		deps:    deps,
		opts:    opts,
		history: history.New(opts.HistoryLimit),
	}
}

func (s *Session) Listening() bool {
	return s.listening.Load()
}

// History returns a copy of the conversation so far.
func (s *Session) History() []history.Turn {
	return s.history.Turns()
}

// Start sets the listening flag and runs one turn in the background.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	turnCtx, release, err := s.claimLocked(ctx)
	if err == nil {
		s.listening.Store(true)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	go func() {
		defer release()
		if err := s.RunTurn(turnCtx); err != nil {
			log.Debug("Turn ended", "kind", fault.KindOf(err), "err", err)
		}
	}()
	return nil
}

// claimLocked reserves the single worker slot, which turns and microphone
// tests share. release frees it. s.mu must be held.
func (s *Session) claimLocked(ctx context.Context) (context.Context, func(), error) {
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return nil, nil, ErrBusy
		}
	}

	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	return wctx, func() {
		cancel()
		close(done)
	}, nil
}

// Stop clears the listening flag and cancels the running turn, if any.
func (s *Session) Stop() {
	s.listening.Store(false)

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.deps.Reporter.Status("Stopped listening")
}

// Toggle starts a turn when idle and stops it otherwise. It reports whether
// the session is now listening.
func (s *Session) Toggle(ctx context.Context) (bool, error) {
	if s.Listening() {
		s.Stop()
		return false, nil
	}
	if err := s.Start(ctx); err != nil {
		return s.Listening(), err
	}
	return true, nil
}

// Wait blocks until the current turn, if any, has finished.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Session) Clear() {
	s.history.Clear()
	s.deps.Reporter.Status("Chat cleared")
}

// TestMicrophone lists the input devices and opens the default one briefly.
// It is refused with ErrBusy while a turn holds the microphone.
func (s *Session) TestMicrophone(ctx context.Context) error {
	s.mu.Lock()
	ctx, release, err := s.claimLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	defer release()

	rep := s.deps.Reporter

	names, err := s.deps.Recorder.Devices()
	if err != nil {
		rep.Status(fmt.Sprintf("Microphone test failed: %v", err))
		return err
	}
	rep.Status(fmt.Sprintf("Available microphones: %d", len(names)))
	for i, name := range names {
		if i == 3 {
			break
		}
		rep.Status(fmt.Sprintf("  %d: %s", i, name))
	}

	level, err := s.deps.Recorder.Probe(ctx, probeTime)
	if err != nil {
		rep.Status(fmt.Sprintf("Microphone test failed: %v", err))
		return err
	}
	log.Debug("Microphone probe", "rms", level)
	rep.Status("Microphone access successful!")
	return nil
}

// RunTurn performs one listen, recognize, reply, speak cycle. The listening
// flag must be set on entry and is always cleared on return.
func (s *Session) RunTurn(ctx context.Context) (err error) {
	if !s.listening.Load() {
		return ErrNotListening
	}

	rep := s.deps.Reporter
	logger := log.With("turn", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Turn panicked", "panic", r)
			rep.Status("Unexpected error occurred")
			err = fmt.Errorf("turn panicked: %v", r)
		}
		s.listening.Store(false)
	}()

	pcm, err := s.listen(ctx, logger)
	if err != nil {
		return err
	}
	if !s.listening.Load() {
		logger.Info("Listening stopped, dropping utterance")
		return fault.New(fault.Cancelled, "turn", ErrNotListening)
	}
	s.record(pcm, logger)

	rep.Status("Processing speech...")
	res, err := Recognize(ctx, s.deps.Recognizer, pcm, s.opts.Languages, s.opts.RecognizeTimeout, rep)
	if err != nil {
		if fault.Is(err, fault.NoMatch) {
			rep.Status("Could not understand audio in any language")
		}
		return err
	}
	logger.Info("Recognized", "lang", res.Language.Name, "attempts", len(res.Attempts), "text", res.Text)
	rep.Chat(history.RoleUser, fmt.Sprintf("[%s] %s", res.Language.Name, res.Text))

	rep.Status("Generating response...")
	reply := s.reply(ctx, res.Text, logger)
	rep.Chat(history.RoleAssistant, reply)

	if err := s.speak(ctx, reply, logger); err != nil {
		return err
	}
	rep.Status("Ready to listen...")
	return nil
}

func (s *Session) listen(ctx context.Context, logger *log.Logger) ([]float32, error) {
	rep := s.deps.Reporter

	s.cue(ctx, s.opts.StartCue, logger)
	rep.Status("Listening... (speak now)")

	pcm, err := s.deps.Recorder.Listen(ctx, s.opts.Listen)
	switch fault.KindOf(err) {
	case fault.None:
		logger.Debug("Captured utterance", "samples", len(pcm))
		return pcm, nil
	case fault.Timeout:
		rep.Status(fmt.Sprintf("Timeout - no speech detected within %s", secondsText(s.opts.Listen.Timeout)))
	case fault.Cancelled:
		logger.Info("Listen cancelled")
	case fault.Device:
		rep.Status(fmt.Sprintf("Microphone access error: %v", err))
	default:
		rep.Status(fmt.Sprintf("Microphone setup error: %v", err))
	}
	return nil, err
}

func secondsText(d time.Duration) string {
	n := int(d.Round(time.Second) / time.Second)
	if n == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", n)
}

// reply answers text through the router when enabled and a trigger matches,
// otherwise through the generator with the conversation as context.
func (s *Session) reply(ctx context.Context, text string, logger *log.Logger) string {
	if s.opts.RouteCommands && s.deps.Router != nil {
		if name, ok := s.deps.Router.Match(text); ok {
			r := s.deps.Router.Handle(ctx, text)
			logger.Info("Routed command", "trigger", name, "err", r.Err)
			s.history.Append(
				history.Turn{Role: history.RoleUser, Content: text},
				history.Turn{Role: history.RoleAssistant, Content: r.Text},
			)
			return r.Text
		}
	}

	prompt := history.BuildPrompt(s.opts.Persona, s.history.Turns(), text)

	gctx, cancel := withTimeout(ctx, s.opts.GenerateTimeout)
	defer cancel()

	out, err := s.deps.Generator.Generate(gctx, prompt)
	if err == nil && strings.TrimSpace(out) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		logger.Error("Generation failed", "kind", fault.KindOf(err), "err", err)
		return fmt.Sprintf("Sorry, I encountered an error: %v", err)
	}

	out = strings.TrimSpace(out)
	s.history.Append(
		history.Turn{Role: history.RoleUser, Content: text},
		history.Turn{Role: history.RoleAssistant, Content: out},
	)
	return out
}

func (s *Session) speak(ctx context.Context, text string, logger *log.Logger) error {
	rep := s.deps.Reporter
	rep.Status("Speaking response...")

	if s.opts.Duck && s.deps.Ducker != nil {
		if err := s.deps.Ducker.DuckOthers(ctx, duckFactor, duckFade); err != nil {
			logger.Debug("Duck failed", "err", err)
		}
		defer func() {
			if err := s.deps.Ducker.UnduckOthers(context.WithoutCancel(ctx), duckFade); err != nil {
				logger.Debug("Unduck failed", "err", err)
			}
		}()
	}

	if err := s.deps.Speaker.Speak(ctx, text); err != nil {
		logger.Error("Speech failed", "err", err)
		rep.Status(fmt.Sprintf("Could not speak the reply: %v", err))
		if fault.KindOf(err) == fault.Unknown {
			return fault.New(fault.Playback, "speak", err)
		}
		return err
	}

	s.cue(ctx, s.opts.EndCue, logger)
	return nil
}

// cue plays an optional sound; a missing file is skipped silently.
func (s *Session) cue(ctx context.Context, path string, logger *log.Logger) {
	if path == "" || s.deps.Cues == nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := s.deps.Cues.PlayFile(ctx, path); err != nil {
		logger.Warn("Cue failed", "path", path, "err", err)
	}
}

func (s *Session) record(pcm []float32, logger *log.Logger) {
	if s.opts.RecordDir == "" {
		return
	}
	name := filepath.Join(s.opts.RecordDir, time.Now().Format("20060102-150405.000")+".wav")
	f, err := os.Create(name)
	if err != nil {
		logger.Warn("Recording not saved", "err", err)
		return
	}
	defer f.Close()

	if err := audioconv.EncodeWAV(f, pcm, s.opts.SampleRate); err != nil {
		logger.Warn("Recording not saved", "path", name, "err", err)
		return
	}
	logger.Debug("Saved recording", "path", name)
}
