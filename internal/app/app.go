// Package app turns a loaded configuration into the clients the binaries
// share.
package app

import (
	"context"
	"fmt"
	log "log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"miku/internal/assistant"
	"miku/internal/audio"
	"miku/internal/config"
	"miku/internal/llm"
	"miku/internal/proxy"
	"miku/internal/router"
	"miku/internal/tts"
	"miku/pkg/stt"
)

// Flags are the command-line overrides common to every binary. Empty values
// leave the config untouched.
type Flags struct {
	EnvFile  string
	Config   string
	LogLevel string
	Proxy    string
}

// LoadConfig reads the env file, finds and loads the config, applies flag
// overrides, installs the default logger and resolves credentials.
func LoadConfig(f Flags) (*config.Config, error) {
	if f.EnvFile != "" {
		if err := godotenv.Load(f.EnvFile); err != nil {
			log.Debug("No env file loaded", "path", f.EnvFile, "err", err)
		}
	}

	path, err := config.FindConfig(f.Config)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.Proxy != "" {
		cfg.Proxy = f.Proxy
	}

	logger, err := config.NewLogger(os.Stdout, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetDefault(logger)
	if path != "" {
		log.Debug("Loaded config", "path", path)
	}

	if err := cfg.ResolveCredentials(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPClient returns the proxied client for the generation service, or nil
// when no proxy is configured.
func HTTPClient(cfg *config.Config) (*http.Client, error) {
	if cfg.Proxy == "" {
		return nil, nil
	}
	hc, err := proxy.NewSocksClient(cfg.Proxy, cfg.LLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("socks proxy %s: %w", cfg.Proxy, err)
	}
	return hc, nil
}

func Generator(ctx context.Context, cfg *config.Config, hc *http.Client) (llm.Generator, error) {
	return llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	}, hc)
}

func Recognizer(ctx context.Context, cfg *config.Config) (stt.Recognizer, error) {
	switch cfg.Recognition.Provider {
	case "whisper":
		return stt.NewWhisper(cfg.Recognition.WhisperModel)
	default:
		return stt.NewGoogle(ctx, cfg.Audio.SampleRate, cfg.Recognition.DefaultLocale, cfg.Recognition.APIKey)
	}
}

// Speaker builds the configured synthesizer. The returned close func
// releases its client.
func Speaker(ctx context.Context, cfg *config.Config, player tts.Player) (tts.Speaker, func() error, error) {
	switch cfg.TTS.Provider {
	case "espeak":
		e, err := tts.NewEspeak(cfg.TTS.Language, cfg.TTS.Rate)
		if err != nil {
			return nil, nil, err
		}
		return e, func() error { return nil }, nil
	default:
		g, err := tts.NewGoogle(ctx, cfg.TTS.Language, cfg.TTS.Voice, cfg.TTS.Rate, cfg.TTS.APIKey)
		if err != nil {
			return nil, nil, err
		}
		v := tts.NewVoice(g, player, cfg.TTS.TempDir)
		v.SynthTimeout = cfg.TTS.Timeout
		return v, g.Close, nil
	}
}

func Router(cfg *config.Config, gen llm.Generator) *router.Router {
	return router.New(router.Config{
		YouTubeURL: cfg.Commands.YouTubeURL,
		SearchURL:  cfg.Commands.SearchURL,
		ResumePath: cfg.Commands.ResumePath,
		Programs:   cfg.Commands.Programs,
	}, gen, router.NewSystem())
}

func Languages(cfg *config.Config) []assistant.Language {
	langs := make([]assistant.Language, len(cfg.Recognition.Languages))
	for i, l := range cfg.Recognition.Languages {
		langs[i] = assistant.Language{Tag: l.Tag, Name: l.Name}
	}
	return langs
}

func SessionOptions(cfg *config.Config) assistant.Options {
	a, au := cfg.Assistant, cfg.Audio
	return assistant.Options{
		Languages:     Languages(cfg),
		Persona:       a.Persona,
		HistoryLimit:  a.HistoryLimit,
		SampleRate:    au.SampleRate,
		StartCue:      a.StartCue,
		EndCue:        a.EndCue,
		RouteCommands: a.RouteCommands,
		Duck:          a.Duck,
		RecordDir:     a.RecordDir,
		Listen: audio.ListenOptions{
			Calibrate:       au.Calibrate,
			Timeout:         au.ListenTimeout,
			PhraseLimit:     au.PhraseLimit,
			Pause:           au.PauseThreshold,
			EnergyThreshold: au.EnergyThreshold,
			Dynamic:         au.DynamicEnergy,
		},

		RecognizeTimeout: cfg.Recognition.Timeout,
		GenerateTimeout:  cfg.LLM.Timeout,
	}
}
