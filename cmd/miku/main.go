package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	cli "github.com/spf13/pflag"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	log "log/slog"

	"miku/internal/app"
	"miku/internal/assistant"
	"miku/internal/audio"
	"miku/internal/config"
	"miku/internal/tts"
	"miku/pkg/audioconv"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configPath := cli.StringP("config", "c", "", "Config file path")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides config)")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address (overrides config)")
	audioPath := cli.StringP("audio", "a", "", "Transcribe this audio file and route the transcript")
	lang := cli.String("lang", "", "Recognition language tag for --audio (default: configured order)")
	speak := cli.Bool("speak", false, "Speak every reply")
	cli.Parse()

	cfg, err := app.LoadConfig(app.Flags{
		EnvFile:  *envFile,
		Config:   *configPath,
		LogLevel: *logLevel,
		Proxy:    *proxyAddr,
	})
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	httpClient, err := app.HTTPClient(cfg)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}
	gen, err := app.Generator(ctx, cfg, httpClient)
	if err != nil {
		log.Error("Failed to init language model", "err", err)
		os.Exit(1)
	}
	rt := app.Router(cfg, gen)

	var speaker tts.Speaker
	if *speak {
		player := audio.NewPlayer(0)
		defer player.Close()

		var closeSpeaker func() error
		speaker, closeSpeaker, err = app.Speaker(ctx, cfg, player)
		if err != nil {
			log.Error("Failed to init speech synthesis", "err", err)
			os.Exit(1)
		}
		defer closeSpeaker()
	}

	answer := func(text string) {
		r := rt.Handle(ctx, text)
		log.Debug("Handled", "trigger", r.Trigger, "err", r.Err)
		fmt.Println(r.Text)
		if speaker != nil {
			if err := speaker.Speak(ctx, r.Text); err != nil {
				log.Error("Failed to voice out", "err", err)
			}
		}
	}

	switch {
	case *audioPath != "":
		text, err := transcribe(ctx, cfg, *audioPath, *lang)
		if err != nil {
			log.Error("Failed to transcribe", "file", *audioPath, "err", err)
			os.Exit(1)
		}
		answer(text)
	case cli.NArg() > 0:
		answer(strings.Join(cli.Args(), " "))
	default:
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				answer(line)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func transcribe(ctx context.Context, cfg *config.Config, path, tag string) (string, error) {
	langs := app.Languages(cfg)
	if tag != "" {
		t, err := language.Parse(tag)
		if err != nil {
			return "", fmt.Errorf("bad --lang %q: %w", tag, err)
		}
		langs = []assistant.Language{{Tag: t.String(), Name: display.English.Tags().Name(t)}}
	}

	pcm, err := audioconv.DecodeFile(ctx, path, audioconv.Options{SampleRate: cfg.Audio.SampleRate})
	if err != nil {
		return "", err
	}

	rec, err := app.Recognizer(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer rec.Close()

	res, err := assistant.Recognize(ctx, rec, pcm, langs, cfg.Recognition.Timeout, assistant.LogReporter{})
	if err != nil {
		return "", err
	}
	fmt.Printf("[%s] %s\n", res.Language.Name, res.Text)
	return res.Text, nil
}
