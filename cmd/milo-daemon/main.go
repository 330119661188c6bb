package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"milo/internal/assistant"
	"milo/internal/audio"
	"milo/internal/chat"
	"milo/internal/config"
	"milo/internal/console"
	"milo/internal/ipc"
	"milo/internal/lang"
	"milo/internal/lock"
	"milo/internal/notify"
	"milo/internal/proxy"
	"milo/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	dataDir := cli.StringP("data", "d", "", "Data directory (default: user config dir)")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS proxy address")
	consoleAddr := cli.StringP("console", "c", "127.0.0.1:8092", "Console websocket address")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	ring := console.NewRing(console.DefaultCapacity)
	log.SetDefault(log.New(console.NewTeeHandler(
		tint.NewHandler(os.Stdout, &tint.Options{Level: logLevelMap[*logLevel]}),
		ring,
	)))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	dir, err := resolveDataDir(*dataDir)
	if err != nil {
		log.Error("Failed to prepare data directory", "err", err)
		os.Exit(1)
	}
	log.Debug("Using data directory", "dir", dir)

	phrases := lang.NewManager("en-US")
	notifier := notify.Desktop{}

	lk, err := lock.Acquire(dir)
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyLocked) {
			notifier.Notify(phrases.Get(lang.AlreadyRunningTitle), phrases.Get(lang.AlreadyRunningBody))
		}
		log.Error("Failed to acquire instance lock", "err", err)
		os.Exit(1)
	}
	defer lk.Release()

	settingsStore := config.NewSettingsStore(dir)
	agentStore := config.NewAgentStore(dir)

	settings, err := settingsStore.Load()
	if err != nil {
		log.Error("Failed to load settings", "err", err)
		os.Exit(1)
	}
	agents, err := agentStore.Load()
	if err != nil {
		log.Error("Failed to load agents", "err", err)
		os.Exit(1)
	}

	httpClient, err := proxy.NewClient(*proxyAddr)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}

	engine := audio.NewEngine()
	devices := audio.NewManager(engine)
	if err := devices.Start(); err != nil {
		log.Error("Failed to init audio host", "err", err)
		os.Exit(1)
	}
	defer devices.Close()

	chatMgr := chat.NewManager(httpClient)
	rt := assistant.NewRuntime(chatMgr, devices, phrases, notifier, os.Getenv("OPENAI_API_KEY"), httpClient)
	if err := rt.Apply(settings, agents, true); err != nil {
		log.Error("Failed to apply configuration", "err", err)
		os.Exit(1)
	}

	modelPath := settings.WhisperModelPath
	if !filepath.IsAbs(modelPath) {
		modelPath = filepath.Join(dir, modelPath)
	}
	recognizer, err := stt.NewTranscriber(modelPath)
	if err != nil {
		log.Error("Failed to load whisper model", "path", modelPath, "err", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	log.Debug("Loaded whisper", "model", modelPath)

	cues := notify.LoadCues(dir, engine)
	ducker := audio.NewDucker([]string{"milo"}, 20)

	mainStop := &assistant.Flag{}
	speechStop := &assistant.Flag{}

	consoleSrv := console.NewServer(*consoleAddr, ring)
	consoleSrv.Start()

	var curStatus atomic.Value
	curStatus.Store(string(assistant.StatusOff))
	status := assistant.StatusFunc(func(s assistant.Status) {
		curStatus.Store(string(s))
		consoleSrv.SetStatus(string(s))
	})

	synth := assistant.NewSynthesizer(dir, rt, engine, ducker, phrases, speechStop, mainStop, status)
	orch := assistant.NewOrchestrator(
		rt.Config,
		func() assistant.Listener {
			if m := rt.Mic(); m != nil {
				return m
			}
			return nil
		},
		recognizer, chatMgr, synth, assistant.SystemBrowser{}, cues, status,
		phrases, notifier, mainStop,
	)

	done := make(chan struct{})
	go func() {
		orch.Run(context.Background())
		close(done)
	}()

	ipcSrv, err := ipc.StartServer(ipc.SocketPath(dir), func(req ipc.Request) ipc.Response {
		switch req.Cmd {
		case ipc.CmdStatus:
			resp := ipc.Response{
				OK:        true,
				Status:    curStatus.Load().(string),
				Voices:    config.VoiceIDs(),
				Languages: lang.Available(),
			}
			if cfg := rt.Config(); cfg != nil {
				resp.Agent = cfg.AgentName
			}
			if agents, err := agentStore.Load(); err == nil {
				resp.Agents = config.Names(agents)
			}
			if names, err := audio.InputNames(); err == nil {
				resp.Inputs = names
			}
			if names, err := audio.OutputNames(); err == nil {
				resp.Outputs = names
			}
			return resp
		case ipc.CmdReload:
			settings, err := settingsStore.Load()
			if err != nil {
				return ipc.Response{Error: "load settings: " + err.Error()}
			}
			agents, err := agentStore.Load()
			if err != nil {
				return ipc.Response{Error: "load agents: " + err.Error()}
			}
			if err := rt.Apply(settings, agents, false); err != nil {
				return ipc.Response{Error: "apply: " + err.Error()}
			}
			return ipc.Response{OK: true}
		case ipc.CmdQuiet:
			speechStop.Set()
			return ipc.Response{OK: true}
		case ipc.CmdShutdown:
			mainStop.Set()
			speechStop.Set()
			return ipc.Response{OK: true}
		default:
			return ipc.Response{Error: "unknown command: " + req.Cmd}
		}
	})
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer ipcSrv.Close()

	log.Info("Boot up - successful")
	cues.Startup()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		log.Info("Shutting down")
		mainStop.Set()
		speechStop.Set()
	case <-done:
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn("Assistant loop did not stop in time")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	consoleSrv.Shutdown(ctx)

	log.Info("Shutdown complete")
}

func resolveDataDir(flag string) (string, error) {
	dir := flag
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "milo")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
