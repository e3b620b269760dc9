package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	log "log/slog"

	"miku/internal/app"
	"miku/internal/assistant"
	"miku/internal/audio"
	"miku/internal/bus"
	"miku/internal/ipc"
)

const busName = "miku"

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configPath := cli.StringP("config", "c", "", "Config file path")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides config)")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address (overrides config)")
	busURL := cli.StringP("bus", "b", "", "Websocket hub url (overrides config)")
	socket := cli.StringP("socket", "s", "", "Control socket path (overrides config)")
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
	if *busURL != "" {
		cfg.Bus = *busURL
	}
	if *socket != "" {
		cfg.Socket = *socket
	}

	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := app.HTTPClient(cfg)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	gen, err := app.Generator(ctx, cfg, httpClient)
	if err != nil {
		log.Error("Failed to init language model", "provider", cfg.LLM.Provider, "err", err)
		os.Exit(1)
	}
	log.Debug("Loaded language model", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	recognizer, err := app.Recognizer(ctx, cfg)
	if err != nil {
		log.Error("Failed to init recognizer", "provider", cfg.Recognition.Provider, "err", err)
		os.Exit(1)
	}
	defer recognizer.Close()
	log.Debug("Loaded recognizer", "provider", cfg.Recognition.Provider)

	player := audio.NewPlayer(0)
	defer player.Close()

	speaker, closeSpeaker, err := app.Speaker(ctx, cfg, player)
	if err != nil {
		log.Error("Failed to init speech synthesis", "provider", cfg.TTS.Provider, "err", err)
		os.Exit(1)
	}
	defer closeSpeaker()
	log.Debug("Loaded synthesizer", "provider", cfg.TTS.Provider)

	mic := audio.NewRecorder(cfg.Audio.SampleRate)
	if err := mic.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer mic.Close()
	log.Debug("Loaded recorder", "rate", mic.SampleRate())

	reporters := assistant.Reporters{assistant.LogReporter{}}

	var hub *bus.Bus
	if cfg.Bus != "" {
		hub, err = bus.Dial(ctx, cfg.Bus, busName)
		if err != nil {
			log.Warn("Status bus unavailable", "url", cfg.Bus, "err", err)
		} else {
			defer hub.Close()
			reporters = append(reporters, hub)
			log.Debug("Connected to status bus", "url", cfg.Bus)
		}
	}

	session := assistant.New(assistant.Deps{
		Recorder:   mic,
		Recognizer: recognizer,
		Generator:  gen,
		Speaker:    speaker,
		Cues:       player,
		Ducker:     audio.NewDucker([]string{busName, "miku-daemon"}, 5),
		Router:     app.Router(cfg, gen),
		Reporter:   reporters,
	}, app.SessionOptions(cfg))

	handle := func(cmd string) ipc.Reply {
		return control(ctx, session, cmd)
	}

	srv, err := ipc.Serve(cfg.Socket, func(msg ipc.ControlMessage) ipc.Reply {
		return handle(msg.Cmd)
	})
	if err != nil {
		log.Error("Failed ipc server", "socket", cfg.Socket, "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	if hub != nil {
		go func() {
			err := hub.Commands(ctx, func(cmd string) string {
				data, _ := json.Marshal(handle(cmd))
				return string(data)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("Status bus closed", "err", err)
			}
		}()
	}

	log.Info("Boot up - successful", "socket", cfg.Socket)
	reporters.Status("Ready to listen...")

	<-ctx.Done()

	log.Info("Shutting down")
	session.Stop()
	session.Wait()
}

func control(ctx context.Context, session *assistant.Session, cmd string) ipc.Reply {
	log.Debug("Control command", "cmd", cmd)

	var err error
	switch cmd {
	case "toggle":
		_, err = session.Toggle(ctx)
	case "start":
		err = session.Start(ctx)
	case "stop":
		session.Stop()
	case "clear":
		session.Clear()
	case "test-mic":
		err = session.TestMicrophone(ctx)
	case "status":
	default:
		log.Warn("Unknown command", "cmd", cmd)
		return ipc.Reply{Listening: session.Listening(), Message: "unknown command: " + cmd}
	}

	r := ipc.Reply{OK: err == nil, Listening: session.Listening()}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}
