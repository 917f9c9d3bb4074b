// Command gostt-dictate is a push-to-talk dictation daemon: hold the hotkey,
// speak, release, and the transcript is typed into the focused application.
//
// Usage:
//
//	gostt-dictate [-config FILE] [run]
//	gostt-dictate init
//	gostt-dictate key set [VALUE] | status | delete
//	gostt-dictate transcribe FILE
//	gostt-dictate model download [NAME]
//	gostt-dictate permissions [grant|revoke microphone|speech]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chaz8081/gostt-dictate/internal/audio"
	"github.com/chaz8081/gostt-dictate/internal/config"
	"github.com/chaz8081/gostt-dictate/internal/credential"
	"github.com/chaz8081/gostt-dictate/internal/hotkey"
	"github.com/chaz8081/gostt-dictate/internal/inject"
	"github.com/chaz8081/gostt-dictate/internal/logging"
	"github.com/chaz8081/gostt-dictate/internal/models"
	"github.com/chaz8081/gostt-dictate/internal/permission"
	"github.com/chaz8081/gostt-dictate/internal/session"
	"github.com/chaz8081/gostt-dictate/internal/transcribe"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/gostt-dictate/config.yaml)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	cmd := "run"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	// init must work before any config exists.
	if cmd == "init" {
		exitOn(runInit())
		return
	}

	cfg, loadedFrom, err := loadConfig(*configPath)
	if err != nil {
		fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("config validation: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if loadedFrom != "" {
		log.Debug().Str("path", loadedFrom).Msg("config loaded")
	} else {
		log.Info().Msg("no config file found, using defaults")
	}

	switch cmd {
	case "run":
		exitOn(run(cfg, log))
		// Exit directly to avoid gohook's C cleanup crash.
		// The OS reclaims the event hook on process exit.
		os.Exit(0)
	case "key":
		exitOn(runKey(cfg, args))
	case "transcribe":
		exitOn(runTranscribe(cfg, args, log))
	case "model":
		exitOn(runModel(cfg, args, log))
	case "permissions":
		exitOn(runPermissions(cfg, args, log))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: gostt-dictate [-config FILE] <command>

Commands:
  run                                   start the dictation daemon (default)
  init                                  write a default config file
  key set [VALUE] | status | delete     manage the API key
  transcribe FILE                       transcribe a recorded file once
  model download [NAME]                 download a whisper model (default base.en)
  permissions [grant|revoke microphone|speech]
                                        show or change permission status

Flags:
`)
	flag.PrintDefaults()
}

// run wires the capture session to the hotkey and text injector and blocks
// until SIGINT/SIGTERM.
func run(cfg *config.Config, log zerolog.Logger) error {
	printBanner(cfg)

	creds, err := credential.New(cfg.Credential)
	if err != nil {
		return err
	}
	perms, err := permission.LoadFile(cfg.PermissionsFile)
	if err != nil {
		return err
	}

	if cfg.Backend == "cloud" {
		if _, err := creds.Get(); errors.Is(err, credential.ErrNotFound) {
			log.Warn().Msg("no API key stored; run 'gostt-dictate key set' (dictation will report Missing API key)")
		}
	}

	backend, err := transcribe.New(cfg, creds, perms, logging.Component(log, "transcribe"))
	if err != nil {
		return fmt.Errorf("%w\n\nCheck that the model file exists at: %s\nRun 'gostt-dictate model download' to fetch it.", err, cfg.OnDevice.ModelPath)
	}
	defer backend.Close()

	recorder, err := audio.NewRecorder(audio.Options{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		FilePath:   cfg.Audio.FilePath,
		Device:     cfg.Audio.Device,
	}, logging.Component(log, "audio"))
	if err != nil {
		return fmt.Errorf("initializing audio recorder: %w", err)
	}
	defer recorder.Close()

	mic := permission.MicrophoneFromProbe(recorder.Probe())
	if mic != perms.Microphone() {
		perms.SetMicrophone(mic)
		if err := perms.Save(); err != nil {
			log.Warn().Err(err).Msg("saving permission status")
		}
	}
	for _, item := range permission.Checklist(perms) {
		ev := log.Info()
		if !item.OK {
			ev = log.Warn()
		}
		ev.Str("permission", item.Name).Str("status", item.Status).Msg("permission")
	}

	injector := inject.NewInjector(cfg.Inject.Method, os.Stdout, logging.Component(log, "inject"))

	sessLog := logging.Component(log, "session")
	sess := session.New(recorder, backend, injector.Output(), session.Options{
		MinDuration:         cfg.Audio.MinDuration,
		ReportCaptureErrors: cfg.Session.ReportCaptureErrors,
		OnStateChange: func(st session.State) {
			sessLog.Debug().Stringer("state", st).Msg(st.Label())
		},
	}, sessLog)

	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.Mode, logging.Component(log, "hotkey"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- sess.Run(ctx) }()
	go hotkey.Forward(listener.Signals(), sess)
	go listener.Start()

	log.Info().
		Str("hotkey", strings.Join(cfg.Hotkey.Keys, "+")).
		Str("mode", cfg.Hotkey.Mode).
		Str(logging.FieldBackend, backend.Name()).
		Msg("ready, hold the hotkey to dictate (Ctrl+C to quit)")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	listener.Stop()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runInit() error {
	path, err := config.WriteDefault()
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
		return nil
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}

func runKey(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: gostt-dictate key set [VALUE] | status | delete")
	}
	store, err := credential.New(cfg.Credential)
	if err != nil {
		return err
	}

	switch args[0] {
	case "set":
		value := ""
		if len(args) > 1 {
			value = args[1]
		} else {
			fmt.Fprint(os.Stderr, "API key: ")
			sc := bufio.NewScanner(os.Stdin)
			if sc.Scan() {
				value = sc.Text()
			}
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return errors.New("empty API key")
		}
		if err := store.Set(value); err != nil {
			return err
		}
		fmt.Printf("API key saved (%s)\n", credential.Mask(value))
	case "status":
		v, err := store.Get()
		if errors.Is(err, credential.ErrNotFound) {
			fmt.Println("API key: not set")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("API key: %s\n", credential.Mask(v))
	case "delete":
		if err := store.Delete(); err != nil {
			return err
		}
		fmt.Println("API key deleted")
	default:
		return fmt.Errorf("unknown key command %q", args[0])
	}
	return nil
}

func runTranscribe(cfg *config.Config, args []string, log zerolog.Logger) error {
	if len(args) != 1 {
		return errors.New("usage: gostt-dictate transcribe FILE")
	}
	creds, err := credential.New(cfg.Credential)
	if err != nil {
		return err
	}
	perms, err := permission.LoadFile(cfg.PermissionsFile)
	if err != nil {
		return err
	}
	backend, err := transcribe.New(cfg, creds, perms, logging.Component(log, "transcribe"))
	if err != nil {
		return err
	}
	defer backend.Close()

	text, err := backend.Transcribe(context.Background(), args[0])
	if err != nil {
		fmt.Println(session.FormatFailure(err))
		return err
	}
	fmt.Println(session.FormatSuccess(text))
	return nil
}

func runModel(cfg *config.Config, args []string, log zerolog.Logger) error {
	if len(args) == 0 || args[0] != "download" {
		return errors.New("usage: gostt-dictate model download [NAME]")
	}
	name := "base.en"
	if len(args) > 1 {
		name = args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, err := models.DownloadWhisper(ctx, filepath.Dir(cfg.OnDevice.ModelPath), name, os.Stdout, log)
	if err != nil {
		return err
	}
	if path != cfg.OnDevice.ModelPath {
		fmt.Printf("Set ondevice.model_path: %s in your config to use this model.\n", path)
	}
	return nil
}

func runPermissions(cfg *config.Config, args []string, log zerolog.Logger) error {
	perms, err := permission.LoadFile(cfg.PermissionsFile)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		if len(args) != 2 {
			return errors.New("usage: gostt-dictate permissions [grant|revoke microphone|speech]")
		}
		grant := args[0] == "grant"
		if !grant && args[0] != "revoke" {
			return fmt.Errorf("unknown permissions command %q", args[0])
		}
		switch args[1] {
		case "microphone":
			if grant {
				perms.SetMicrophone(permission.MicrophoneGranted)
			} else {
				perms.SetMicrophone(permission.MicrophoneDenied)
			}
		case "speech":
			if grant {
				perms.SetSpeech(permission.SpeechAuthorized)
			} else {
				perms.SetSpeech(permission.SpeechDenied)
			}
		default:
			return fmt.Errorf("unknown permission %q (supported: microphone, speech)", args[1])
		}
		if err := perms.Save(); err != nil {
			return err
		}
		log.Debug().Str("path", cfg.PermissionsFile).Msg("permissions saved")
	}

	for _, item := range permission.Checklist(perms) {
		mark := "✗"
		if item.OK {
			mark = "✓"
		}
		fmt.Printf("  %s %-20s %s\n", mark, item.Name, item.Status)
	}
	return nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults. It also returns the
// path that was read, if any.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, defaultPath, nil
	}

	return config.Default(), "", nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== gostt-dictate ===")
	switch cfg.Backend {
	case "ondevice":
		fmt.Printf("  Backend: ondevice (%s)\n", cfg.OnDevice.ModelPath)
	default:
		fmt.Printf("  Backend: cloud (%s, %s)\n", cfg.Cloud.Model, cfg.Cloud.Endpoint)
	}
	fmt.Printf("  Hotkey:  %s (%s mode)\n", strings.Join(cfg.Hotkey.Keys, "+"), cfg.Hotkey.Mode)
	fmt.Printf("  Audio:   %dHz, %dch -> %s\n", cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.FilePath)
	fmt.Printf("  Inject:  %s\n", cfg.Inject.Method)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("=====================")
}

func exitOn(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "gostt-dictate: "+format+"\n", args...)
	os.Exit(1)
}
