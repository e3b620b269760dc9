// Package config loads the assistant configuration: an optional YAML file
// layered over built-in defaults, plus credentials from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned by ResolveCredentials when the key for the
// configured generation provider is not set.
var ErrMissingCredential = errors.New("missing credential")

// Config holds all assistant configuration.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Socket      string            `yaml:"socket"`
	Proxy       string            `yaml:"proxy"`
	Bus         string            `yaml:"bus"`
	Assistant   AssistantConfig   `yaml:"assistant"`
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	LLM         LLMConfig         `yaml:"llm"`
	TTS         TTSConfig         `yaml:"tts"`
	Commands    CommandsConfig    `yaml:"commands"`
}

// AssistantConfig controls the turn orchestrator.
type AssistantConfig struct {
	Persona      string `yaml:"persona"`
	HistoryLimit int    `yaml:"history_limit"`
	// RouteCommands lets the voice loop consult the command router before
	// generation. Off by default; the router is its own front-end.
	RouteCommands bool   `yaml:"route_commands"`
	Duck          bool   `yaml:"duck"`
	StartCue      string `yaml:"start_cue"`
	EndCue        string `yaml:"end_cue"`
	// RecordDir, when set, receives a WAV copy of every captured utterance.
	RecordDir string `yaml:"record_dir"`
}

// AudioConfig controls microphone capture.
type AudioConfig struct {
	SampleRate      int           `yaml:"sample_rate"`
	Calibrate       time.Duration `yaml:"calibrate"`
	ListenTimeout   time.Duration `yaml:"listen_timeout"`
	PhraseLimit     time.Duration `yaml:"phrase_limit"`
	PauseThreshold  time.Duration `yaml:"pause_threshold"`
	EnergyThreshold float64       `yaml:"energy_threshold"` // RMS in [0,1]
	DynamicEnergy   bool          `yaml:"dynamic_energy"`
}

// Language is one entry of the recognition fallback order.
type Language struct {
	Tag  string `yaml:"tag"`
	Name string `yaml:"name"`
}

// RecognitionConfig selects the speech recognizer.
type RecognitionConfig struct {
	Provider      string        `yaml:"provider"` // google | whisper
	Languages     []Language    `yaml:"languages"`
	DefaultLocale string        `yaml:"default_locale"`
	WhisperModel  string        `yaml:"whisper_model"`
	Timeout       time.Duration `yaml:"timeout"`
	APIKey        string        `yaml:"-"`
}

// LLMConfig selects the generative-language service.
type LLMConfig struct {
	Provider string        `yaml:"provider"` // gemini | openai
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	APIKey   string        `yaml:"-"`
}

// TTSConfig selects the speech synthesizer.
type TTSConfig struct {
	Provider string        `yaml:"provider"` // google | espeak
	Language string        `yaml:"language"`
	Voice    string        `yaml:"voice"`
	Rate     float64       `yaml:"rate"`
	TempDir  string        `yaml:"temp_dir"`
	Timeout  time.Duration `yaml:"timeout"`
	APIKey   string        `yaml:"-"`
}

// CommandsConfig holds the targets of the command router. Programs map a
// program name ("notepad", "calculator") to an argv; an unset entry makes the
// router answer that the program is not configured.
type CommandsConfig struct {
	YouTubeURL string              `yaml:"youtube_url"`
	SearchURL  string              `yaml:"search_url"`
	ResumePath string              `yaml:"resume_path"`
	Programs   map[string][]string `yaml:"programs"`
}

const DefaultPersona = "You are Miku, a cheerful and helpful voice assistant who loves music and technology.\n" +
	"Keep your answers conversational and concise."

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Socket:   "/tmp/miku.sock",
		Assistant: AssistantConfig{
			Persona:      DefaultPersona,
			HistoryLimit: 20,
			StartCue:     "assets/voice_start.mp3",
			EndCue:       "assets/voice_end.mp3",
		},
		Audio: AudioConfig{
			SampleRate:      16000,
			Calibrate:       500 * time.Millisecond,
			ListenTimeout:   15 * time.Second,
			PhraseLimit:     8 * time.Second,
			PauseThreshold:  800 * time.Millisecond,
			EnergyThreshold: 0.01,
			DynamicEnergy:   true,
		},
		Recognition: RecognitionConfig{
			Provider: "google",
			Languages: []Language{
				{Tag: "en-US", Name: "English"},
				{Tag: "ja-JP", Name: "Japanese"},
				{Tag: "en-GB", Name: "English (UK)"},
				{Tag: "es-ES", Name: "Spanish"},
				{Tag: "fr-FR", Name: "French"},
				{Tag: "de-DE", Name: "German"},
			},
			DefaultLocale: "en-US",
			WhisperModel:  "models/ggml-base.bin",
			Timeout:       30 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-1.5-flash",
			Timeout:  60 * time.Second,
		},
		TTS: TTSConfig{
			Provider: "google",
			Language: "ja-JP",
			Rate:     1.0,
			Timeout:  30 * time.Second,
		},
		Commands: CommandsConfig{
			YouTubeURL: "https://www.youtube.com",
			SearchURL:  "https://www.google.com/search?q=",
			Programs:   map[string][]string{},
		},
	}
}

// DefaultSearchPaths returns the config file search order used when no
// explicit path is given.
func DefaultSearchPaths() []string {
	paths := []string{"miku.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "miku", "config.yaml"))
	}
	return paths
}

// FindConfig locates a config file. An explicit path must exist; otherwise the
// first existing default path is returned, or "" when there is none.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a turn.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Assistant.HistoryLimit <= 0 {
		return fmt.Errorf("assistant.history_limit must be positive, got %d", c.Assistant.HistoryLimit)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if len(c.Recognition.Languages) == 0 {
		return errors.New("recognition.languages is empty")
	}
	for i, l := range c.Recognition.Languages {
		if _, err := language.Parse(l.Tag); err != nil {
			return fmt.Errorf("recognition.languages[%d]: bad tag %q: %w", i, l.Tag, err)
		}
	}
	if c.Recognition.DefaultLocale != "" {
		if _, err := language.Parse(c.Recognition.DefaultLocale); err != nil {
			return fmt.Errorf("recognition.default_locale: bad tag %q: %w", c.Recognition.DefaultLocale, err)
		}
	}
	switch c.Recognition.Provider {
	case "google", "whisper":
	default:
		return fmt.Errorf("recognition.provider: unknown %q (valid: google, whisper)", c.Recognition.Provider)
	}
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("llm.provider: unknown %q (valid: gemini, openai)", c.LLM.Provider)
	}
	switch c.TTS.Provider {
	case "google", "espeak":
	default:
		return fmt.Errorf("tts.provider: unknown %q (valid: google, espeak)", c.TTS.Provider)
	}
	return nil
}

// CredentialEnv names the environment variable holding the key for the
// configured generation provider.
func (c *Config) CredentialEnv() string {
	if c.LLM.Provider == "openai" {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// ResolveCredentials copies keys from the environment into the config. The
// generation key is required; the Google Cloud key is optional because the
// speech clients fall back to application default credentials.
func (c *Config) ResolveCredentials(getenv func(string) string) error {
	name := c.CredentialEnv()
	c.LLM.APIKey = getenv(name)
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: %s not set", ErrMissingCredential, name)
	}

	google := getenv("GOOGLE_API_KEY")
	c.Recognition.APIKey = google
	c.TTS.APIKey = google
	return nil
}
